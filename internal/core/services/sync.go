package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
	"github.com/custodia-labs/certsync/internal/core/ports/driving"
	"github.com/custodia-labs/certsync/internal/logger"
)

// Ensure SyncEngine implements the interfaces.
var (
	_ driving.SyncEngine = (*SyncEngine)(nil)
	_ driving.Resetter   = (*SyncEngine)(nil)
)

// errInterrupted is recorded on a run found in running state at load time.
var errInterrupted = errors.New("interrupted: process stopped while the run was active")

// SyncEngineOptions configures a SyncEngine.
type SyncEngineOptions struct {
	// PageSize is used by full syncs and by resumes from a checkpoint
	// that carries no page size. Defaults to domain.DefaultPageSize.
	PageSize int

	// Metrics receives run and page telemetry. Nil disables it.
	Metrics driven.SyncMetrics

	// Now overrides the clock for tests.
	Now func() time.Time
}

// SyncEngine drives the page loop of a resumable sync.
// It owns the current run; only one run is active per engine.
type SyncEngine struct {
	store    driven.RecordStore
	fetcher  driven.PageFetcher
	metrics  driven.SyncMetrics
	pageSize int
	now      func() time.Time

	mu       sync.RWMutex
	loaded   bool
	run      *domain.SyncRun
	stop     chan struct{}
	stopOnce *sync.Once
	done     chan struct{}
}

// NewSyncEngine creates a sync engine over a record store and page fetcher.
func NewSyncEngine(store driven.RecordStore, fetcher driven.PageFetcher, opts SyncEngineOptions) *SyncEngine {
	if opts.PageSize <= 0 {
		opts.PageSize = domain.DefaultPageSize
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SyncEngine{
		store:    store,
		fetcher:  fetcher,
		metrics:  opts.Metrics,
		pageSize: opts.PageSize,
		now:      opts.Now,
	}
}

// Load reads the most recent run from the store. It runs once; later calls
// are no-ops. A run left in running state by a crashed process is demoted
// to paused so it can be resumed.
func (e *SyncEngine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadLocked(ctx)
}

func (e *SyncEngine) loadLocked(ctx context.Context) error {
	if e.loaded {
		return nil
	}

	run, err := e.store.LatestRun(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		run = nil
	case err != nil:
		return fmt.Errorf("load latest run: %w", err)
	}

	if run != nil && run.State == domain.RunRunning {
		run.Finish(domain.RunPaused, e.now(), nil)
		run.Error = &domain.RunError{Kind: domain.KindCancelled, Message: errInterrupted.Error()}
		if err := e.store.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("demote interrupted run: %w", err)
		}
		logger.Warn("Run %s was interrupted; it can be resumed", run.ID)
	}

	e.run = run
	e.loaded = true
	return nil
}

// StartFull resets the checkpoint to the epoch floor and starts a new run.
// ctx bounds the lifetime of the run; cancelling it pauses the run.
func (e *SyncEngine) StartFull(ctx context.Context) (*domain.SyncRun, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.loadLocked(ctx); err != nil {
		return nil, err
	}
	if !e.stateLocked().CanStartFull() {
		return nil, domain.ErrSyncInProgress
	}

	floor := domain.NewCheckpoint()
	floor.PageSize = e.pageSize
	floor.UpdatedAt = e.now()
	if err := e.store.SaveCheckpoint(ctx, floor); err != nil {
		return nil, fmt.Errorf("reset checkpoint: %w", err)
	}

	return e.launchLocked(ctx, domain.ModeFull, floor.Cursor)
}

// Resume continues from the stored checkpoint. A store that has never
// been synced starts at the epoch floor.
func (e *SyncEngine) Resume(ctx context.Context) (*domain.SyncRun, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.loadLocked(ctx); err != nil {
		return nil, err
	}
	state := e.stateLocked()
	if state == domain.RunRunning {
		return nil, domain.ErrSyncInProgress
	}
	if !state.CanResume() {
		return nil, fmt.Errorf("%w: cannot resume a %s run, start a full sync instead",
			domain.ErrInvalidTransition, state)
	}

	cp, err := e.store.LoadCheckpoint(ctx)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	return e.launchLocked(ctx, domain.ModeResume, cp.Cursor)
}

// Cancel asks the active run to pause at the next page boundary and waits
// for the loop to exit or ctx to end.
func (e *SyncEngine) Cancel(ctx context.Context) error {
	e.mu.Lock()
	if e.stateLocked() != domain.RunRunning {
		e.mu.Unlock()
		return nil
	}
	e.requestStopLocked()
	done := e.done
	e.mu.Unlock()

	logger.Info("Stop requested; pausing after the current page")
	return waitFor(ctx, done)
}

// Wait blocks until the active run, if any, has stopped.
func (e *SyncEngine) Wait(ctx context.Context) error {
	e.mu.RLock()
	done := e.done
	e.mu.RUnlock()

	if done == nil {
		return nil
	}
	return waitFor(ctx, done)
}

// Snapshot returns a copy of the current run. The boolean is false when no
// run has been started against the store.
func (e *SyncEngine) Snapshot() (domain.SyncRun, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.run == nil {
		return domain.SyncRun{}, false
	}
	return e.run.Clone(), true
}

// Reset deletes all records, the checkpoint and the run history, and
// returns the engine to idle. Inventory mappings are kept.
// Returns domain.ErrSyncInProgress while a run is active.
func (e *SyncEngine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stateLocked() == domain.RunRunning {
		return fmt.Errorf("%w: cannot clear state while running", domain.ErrSyncInProgress)
	}
	if err := e.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	e.run = nil
	e.done = nil
	e.loaded = true

	logger.Info("Sync state cleared")
	return nil
}

func (e *SyncEngine) stateLocked() domain.RunState {
	if e.run == nil {
		return domain.RunIdle
	}
	return e.run.State
}

func (e *SyncEngine) requestStopLocked() {
	if e.stopOnce != nil {
		e.stopOnce.Do(func() { close(e.stop) })
	}
}

func (e *SyncEngine) launchLocked(ctx context.Context, mode domain.RunMode, cursor string) (*domain.SyncRun, error) {
	run := &domain.SyncRun{
		ID:        uuid.New().String(),
		Mode:      mode,
		State:     domain.RunRunning,
		StartedAt: e.now(),
		Cursor:    cursor,
	}
	if err := e.store.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	e.run = run
	e.stop = make(chan struct{})
	e.stopOnce = &sync.Once{}
	e.done = make(chan struct{})

	logger.Info("Sync run %s started (%s) from %s", run.ID, mode, cursor)

	go e.loop(ctx, e.stop, e.done)

	snapshot := run.Clone()
	return &snapshot, nil
}

// loop runs pages until the source is exhausted, a fatal error occurs,
// or a stop is requested.
func (e *SyncEngine) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	start, _ := e.Snapshot()
	runCtx := e.metrics.StartRun(ctx, &start)

	state, err := e.drive(runCtx, stop)

	// The terminal state must persist even when ctx was cancelled.
	persistCtx := context.WithoutCancel(runCtx)
	final := e.finish(persistCtx, state, err)
	e.metrics.EndRun(persistCtx, &final)

	switch final.State {
	case domain.RunCompleted:
		logger.Info("Sync run %s completed: %d records in %d pages", final.ID, final.Fetched, final.Pages)
	case domain.RunPaused:
		logger.Info("Sync run %s paused at %s", final.ID, final.Cursor)
	default:
		logger.Error("Sync run %s failed: %v", final.ID, err)
	}
}

// drive processes pages and returns the terminal state of the run.
func (e *SyncEngine) drive(ctx context.Context, stop <-chan struct{}) (domain.RunState, error) {
	for {
		select {
		case <-stop:
			return domain.RunPaused, nil
		default:
		}
		if err := ctx.Err(); err != nil {
			return domain.RunPaused, err
		}

		done, err := e.step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return domain.RunPaused, ctx.Err()
			}
			return domain.RunFailed, err
		}
		if done {
			return domain.RunCompleted, nil
		}
	}
}

// step fetches and commits one page. The checkpoint moves only inside the
// commit that writes the page's records.
func (e *SyncEngine) step(ctx context.Context) (bool, error) {
	cp, err := e.store.LoadCheckpoint(ctx)
	if err != nil {
		return false, fmt.Errorf("load checkpoint: %w", err)
	}
	pageSize := cp.PageSize
	if pageSize <= 0 {
		pageSize = e.pageSize
	}

	pageCtx := e.metrics.StartPage(ctx, cp.Cursor)
	started := e.now()

	page, err := e.fetcher.FetchPage(pageCtx, cp.Cursor, pageSize)
	if err != nil {
		e.metrics.EndPage(pageCtx, domain.UpsertResult{}, e.now().Sub(started), err)
		return false, fmt.Errorf("fetch page at %s: %w", cp.Cursor, err)
	}
	if !page.Done && (page.NextCursor == "" || page.NextCursor == cp.Cursor) {
		err := &domain.ValidationError{Field: "cursor", Reason: "next cursor did not advance from " + cp.Cursor}
		e.metrics.EndPage(pageCtx, domain.UpsertResult{}, e.now().Sub(started), err)
		return false, err
	}

	next := cp.Advance(page.NextCursor, pageSize, len(page.Records), e.now())

	// A fetched page is committed even if ctx ends meanwhile.
	result, err := e.store.CommitPage(context.WithoutCancel(pageCtx), page.Records, next)
	e.metrics.EndPage(pageCtx, result, e.now().Sub(started), err)
	if err != nil {
		return false, fmt.Errorf("commit page at %s: %w", cp.Cursor, err)
	}

	logger.Debug("Committed page at %s: %d new, %d updated", cp.Cursor, result.Inserted, result.Updated)

	run := e.advance(next.Cursor, len(page.Records), result)
	if err := e.store.SaveRun(context.WithoutCancel(ctx), &run); err != nil {
		return false, fmt.Errorf("save run: %w", err)
	}

	return page.Done, nil
}

// advance applies a committed page to the run counters and returns a copy.
func (e *SyncEngine) advance(cursor string, fetched int, result domain.UpsertResult) domain.SyncRun {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.run.Cursor = cursor
	e.run.Pages++
	e.run.Fetched += fetched
	e.run.Inserted += result.Inserted
	e.run.Updated += result.Updated
	return e.run.Clone()
}

// finish records the terminal state and persists the run. The lock is held
// through the save so a Reset cannot clear the store between the state
// change and the write.
func (e *SyncEngine) finish(ctx context.Context, state domain.RunState, err error) domain.SyncRun {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.run.Finish(state, e.now(), err)
	final := e.run.Clone()
	if saveErr := e.store.SaveRun(ctx, &final); saveErr != nil {
		logger.Error("Failed to save run %s: %v", final.ID, saveErr)
	}
	return final
}

func waitFor(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// noopMetrics discards telemetry.
type noopMetrics struct{}

func (noopMetrics) StartRun(ctx context.Context, _ *domain.SyncRun) context.Context { return ctx }

func (noopMetrics) EndRun(context.Context, *domain.SyncRun) {}

func (noopMetrics) StartPage(ctx context.Context, _ string) context.Context { return ctx }

func (noopMetrics) EndPage(context.Context, domain.UpsertResult, time.Duration, error) {}
