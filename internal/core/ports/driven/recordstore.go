package driven

import (
	"context"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

// RecordStore is durable keyed storage for synced records and sync metadata.
// All failures are returned as *domain.StorageError.
type RecordStore interface {
	// CommitPage upserts records by ID and saves the checkpoint in a single
	// transaction. Either both persist or neither does.
	CommitPage(ctx context.Context, records []domain.Record, cp domain.Checkpoint) (domain.UpsertResult, error)

	// Upsert inserts or overwrites records by ID without touching the checkpoint.
	Upsert(ctx context.Context, records []domain.Record) (domain.UpsertResult, error)

	// LoadCheckpoint returns the last durable checkpoint, or the epoch-floor
	// checkpoint when none has been saved.
	LoadCheckpoint(ctx context.Context) (domain.Checkpoint, error)

	// SaveCheckpoint overwrites the checkpoint.
	SaveCheckpoint(ctx context.Context, cp domain.Checkpoint) error

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int, error)

	// AllRecords returns a snapshot of every record ordered by ID.
	AllRecords(ctx context.Context) ([]domain.Record, error)

	// SaveRun creates or updates a sync run.
	SaveRun(ctx context.Context, run *domain.SyncRun) error

	// LatestRun returns the most recently started run.
	// Returns domain.ErrNotFound if no run exists.
	LatestRun(ctx context.Context) (*domain.SyncRun, error)

	// Reset deletes all records, the checkpoint and the run history.
	Reset(ctx context.Context) error
}

// MappingStore persists imported inventory mappings and applies them to records.
type MappingStore interface {
	// ReplaceMappings truncates the mapping table and stores the given rows.
	ReplaceMappings(ctx context.Context, mappings []domain.InventoryMapping) error

	// ListMappings returns all stored mappings.
	ListMappings(ctx context.Context) ([]domain.InventoryMapping, error)

	// ApplyMappings marks unmapped records whose serial number matches a
	// mapping. Returns the number of records changed.
	ApplyMappings(ctx context.Context, mappings []domain.InventoryMapping) (int, error)
}
