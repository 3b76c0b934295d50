package tui

import "errors"

// ErrMissingSyncEngine is returned when the sync engine is not provided.
var ErrMissingSyncEngine = errors.New("tui: sync engine is required")

// ErrMissingStatusReporter is returned when the status reporter is not provided.
var ErrMissingStatusReporter = errors.New("tui: status reporter is required")

// ErrInvalidPorts is returned when the ports aggregate is nil.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
