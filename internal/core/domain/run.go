package domain

import "time"

// RunState is the lifecycle state of a sync run.
type RunState string

const (
	// RunIdle means no run has ever been started against the store.
	RunIdle RunState = "idle"

	// RunRunning means the engine is fetching and committing pages.
	RunRunning RunState = "running"

	// RunPaused means the run was cancelled at a page boundary.
	RunPaused RunState = "paused"

	// RunCompleted means the source reported no more pages.
	RunCompleted RunState = "completed"

	// RunFailed means the run stopped on a fatal error.
	RunFailed RunState = "failed"
)

// String returns the string representation.
func (s RunState) String() string {
	return string(s)
}

// IsValid returns true if the state is recognised.
func (s RunState) IsValid() bool {
	switch s {
	case RunIdle, RunRunning, RunPaused, RunCompleted, RunFailed:
		return true
	default:
		return false
	}
}

// CanResume reports whether a resume may be issued from this state.
// Idle shares the resume path so a first run starts at the epoch floor.
func (s RunState) CanResume() bool {
	return s == RunIdle || s == RunPaused || s == RunFailed
}

// CanStartFull reports whether a full sync may be issued from this state.
func (s RunState) CanStartFull() bool {
	return s != RunRunning
}

// IsTerminal reports whether the run has stopped.
func (s RunState) IsTerminal() bool {
	return s == RunPaused || s == RunCompleted || s == RunFailed
}

// RunMode records how a run was triggered.
type RunMode string

const (
	// ModeFull restarts from the epoch floor.
	ModeFull RunMode = "full"

	// ModeResume continues from the stored checkpoint.
	ModeResume RunMode = "resume"
)

// RunError is the error detail kept on a run for status display.
type RunError struct {
	Kind    ErrorKind
	Message string
}

// SyncRun is one sync attempt. Only the sync engine mutates it.
type SyncRun struct {
	// ID uniquely identifies the run.
	ID string

	// Mode is how the run was started.
	Mode RunMode

	// State is the current lifecycle state.
	State RunState

	// StartedAt is when the run was created.
	StartedAt time.Time

	// EndedAt is set on every terminal transition.
	EndedAt *time.Time

	// Error is the detail of the last failure, if any.
	Error *RunError

	// Cursor mirrors the checkpoint cursor after the last commit.
	Cursor string

	// Pages is the number of pages committed by this run.
	Pages int

	// Fetched is the number of records committed by this run.
	Fetched int

	// Inserted counts records new to the store.
	Inserted int

	// Updated counts records that overwrote an existing entry.
	Updated int
}

// Clone returns a deep copy safe to hand to readers.
func (r *SyncRun) Clone() SyncRun {
	c := *r
	if r.EndedAt != nil {
		t := *r.EndedAt
		c.EndedAt = &t
	}
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	return c
}

// Finish moves the run to a terminal state.
func (r *SyncRun) Finish(state RunState, now time.Time, err error) {
	r.State = state
	r.EndedAt = &now
	if err != nil {
		r.Error = &RunError{Kind: KindOf(err), Message: err.Error()}
	}
}

// SyncStatus is the read-only projection served to observers.
type SyncStatus struct {
	RunID     string
	State     RunState
	Mode      RunMode
	Records   int
	Fetched   int
	Pages     int
	Cursor    string
	PageSize  int
	LastError *RunError
	StartedAt time.Time
	EndedAt   *time.Time
}
