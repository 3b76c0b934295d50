package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
	"github.com/custodia-labs/certsync/internal/core/ports/driving"
)

// Ensure StatusReporter implements the interface.
var _ driving.StatusReporter = (*StatusReporter)(nil)

// StatusReporter derives sync status from the engine's run snapshot and
// the store. It never blocks the running sync.
type StatusReporter struct {
	engine *SyncEngine
	store  driven.RecordStore
}

// NewStatusReporter creates a status reporter.
func NewStatusReporter(engine *SyncEngine, store driven.RecordStore) *StatusReporter {
	return &StatusReporter{engine: engine, store: store}
}

// CurrentStatus returns the status at the instant of the call.
func (r *StatusReporter) CurrentStatus(ctx context.Context) (*domain.SyncStatus, error) {
	if err := r.engine.Load(ctx); err != nil {
		return nil, err
	}

	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	cp, err := r.store.LoadCheckpoint(ctx)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	status := &domain.SyncStatus{
		State:    domain.RunIdle,
		Records:  count,
		Cursor:   cp.Cursor,
		PageSize: cp.PageSize,
	}

	run, ok := r.engine.Snapshot()
	if !ok {
		return status, nil
	}
	status.RunID = run.ID
	status.State = run.State
	status.Mode = run.Mode
	status.Fetched = run.Fetched
	status.Pages = run.Pages
	status.LastError = run.Error
	status.StartedAt = run.StartedAt
	status.EndedAt = run.EndedAt
	return status, nil
}
