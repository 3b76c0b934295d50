package driving

import (
	"context"
	"io"
)

// MappingStatus reports the state of the inventory mapping process.
type MappingStatus struct {
	Running     bool
	Imported    int
	LastApplied int
	LastError   string
}

// MappingService imports inventory spreadsheets and marks matching certificates.
type MappingService interface {
	// Import replaces the stored mappings with the rows of an XLSX file.
	Import(ctx context.Context, r io.Reader) (int, error)

	// Apply marks unmapped records whose serial number has a mapping.
	Apply(ctx context.Context) (int, error)

	// Status returns the current mapping status.
	Status() MappingStatus
}
