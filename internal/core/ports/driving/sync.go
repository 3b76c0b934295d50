package driving

import (
	"context"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

// SyncEngine is the trigger interface of the resumable sync.
type SyncEngine interface {
	// StartFull resets the checkpoint to the epoch floor and starts a new run.
	// Returns domain.ErrSyncInProgress if a run is active.
	StartFull(ctx context.Context) (*domain.SyncRun, error)

	// Resume continues from the stored checkpoint.
	// Returns domain.ErrSyncInProgress if a run is active and
	// domain.ErrInvalidTransition after a completed run.
	Resume(ctx context.Context) (*domain.SyncRun, error)

	// Cancel asks the active run to pause at the next page boundary and
	// waits for it to stop. It is a no-op when nothing is running.
	Cancel(ctx context.Context) error

	// Wait blocks until the active run, if any, has stopped.
	Wait(ctx context.Context) error
}

// StatusReporter is the read-only view of sync progress.
type StatusReporter interface {
	// CurrentStatus returns the status at the instant of the call.
	CurrentStatus(ctx context.Context) (*domain.SyncStatus, error)
}

// Resetter clears synced data so the next run starts from scratch.
type Resetter interface {
	// Reset deletes records, the checkpoint and run history.
	// Returns domain.ErrSyncInProgress while a run is active.
	Reset(ctx context.Context) error
}
