// Package domain defines the core business entities for certsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record: A synced certificate-inventory entity
//   - Checkpoint: The durable resume position of a sync
//   - SyncRun: One sync attempt and its state machine
//   - Page: One batch of records returned by the remote API
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
