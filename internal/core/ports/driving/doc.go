// Package driving defines the interfaces the CLI, TUI and HTTP API use to
// drive the application: triggering and cancelling syncs, reading status,
// exporting records and importing inventory mappings.
//
// Implementations live in internal/core/services.
package driving
