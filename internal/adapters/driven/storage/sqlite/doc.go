// Package sqlite provides SQLite-backed implementations of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. A single database holds:
//
//   - ArtifactStore: stage artifacts, one row per document and stage
//   - RunLedger: run history and per-document failures
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.permit-assets/data/pipeline.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. Artifact writes rely on the
// primary key, so two writers of the same key never both succeed.
package sqlite
