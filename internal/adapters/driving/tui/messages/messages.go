// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"time"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

// Tick asks the progress view to poll the status reporter.
type Tick struct {
	At time.Time
}

// StatusPolled carries a status snapshot back to the model.
type StatusPolled struct {
	Status *domain.SyncStatus
	Err    error
}

// StopRequested is sent when the user asks the run to stop.
type StopRequested struct{}

// StopCompleted is sent once the engine has acknowledged the stop.
type StopCompleted struct {
	Err error
}
