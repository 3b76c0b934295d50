package domain

import "time"

// EpochFloor is the cursor that means "from the beginning".
// The remote inventory is queried by validFromDate, starting in 1900.
const EpochFloor = "1900-01-01T00:00:00Z"

// Checkpoint is the durable resume position of a sync.
// It is only ever advanced in the same transaction that persisted
// the records of the page it points past.
type Checkpoint struct {
	// Cursor is an opaque token understood by the page fetcher.
	Cursor string

	// PageSize is the page size the cursor was produced with.
	// Zero means no page has been committed yet.
	PageSize int

	// Total is the number of records committed since the last reset.
	Total int

	// UpdatedAt is when the checkpoint was last written.
	UpdatedAt time.Time
}

// NewCheckpoint returns the epoch-floor checkpoint used for first runs
// and full re-syncs.
func NewCheckpoint() Checkpoint {
	return Checkpoint{Cursor: EpochFloor}
}

// IsFloor reports whether the checkpoint points at the epoch floor.
func (c Checkpoint) IsFloor() bool {
	return c.Cursor == "" || c.Cursor == EpochFloor
}

// Advance returns the checkpoint that follows a committed page.
func (c Checkpoint) Advance(next string, pageSize, committed int, now time.Time) Checkpoint {
	return Checkpoint{
		Cursor:    next,
		PageSize:  pageSize,
		Total:     c.Total + committed,
		UpdatedAt: now,
	}
}
