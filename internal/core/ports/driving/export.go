package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

// ExportService gives read-only access to the synced dataset.
type ExportService interface {
	// AllRecords returns every stored record ordered by ID.
	AllRecords(ctx context.Context) ([]domain.Record, error)

	// Export renders all records as a spreadsheet into w and returns the
	// number of rows written. Returns domain.ErrNotFound when the store is empty.
	Export(ctx context.Context, w io.Writer) (int, error)
}
