// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - RecordStore: Records, checkpoint and sync run persistence
//   - PageFetcher: Fetches one page of records from the remote API
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SyncMetrics: Metrics and tracing. Nil means no telemetry.
//   - TokenProvider: Bearer tokens for connectors that authenticate.
//   - SchedulerStore: Only needed when periodic syncs are enabled.
//   - SpreadsheetWriter / SpreadsheetReader: Only needed for export and mapping import.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
