// Package services implements the driving ports on top of the driven ports.
//
// SyncEngine owns the run state machine and the page loop. StatusReporter,
// ExportService, MappingService, SettingsService and Scheduler build on it
// and on the record store. Nothing here imports an adapter.
package services
