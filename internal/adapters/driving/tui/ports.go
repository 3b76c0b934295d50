// Package tui provides the live sync progress view for certsync.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/certsync/internal/core/ports/driving"
)

// Ports aggregates the driving ports the progress view needs.
type Ports struct {
	// Engine receives stop requests.
	Engine driving.SyncEngine

	// Status is polled for progress.
	Status driving.StatusReporter
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(engine driving.SyncEngine, status driving.StatusReporter) *Ports {
	return &Ports{
		Engine: engine,
		Status: status,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Engine == nil {
		return ErrMissingSyncEngine
	}
	if p.Status == nil {
		return ErrMissingStatusReporter
	}
	return nil
}
