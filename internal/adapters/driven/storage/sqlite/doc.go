// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - RecordStore: certificate records, the resume checkpoint and run history
//   - MappingStore: imported inventory mappings
//   - SchedulerStore: scheduled task state and execution history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Applied versions are recorded in schema_migrations.
//
// # Atomicity
//
// CommitPage writes a page of records and the checkpoint that points past it
// in one transaction, so a crash never leaves the checkpoint ahead of the data.
//
// # Data Location
//
// By default, the database is stored at ~/.certsync/data/certsync.db
package sqlite
