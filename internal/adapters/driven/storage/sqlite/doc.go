// Package sqlite provides a SQLite-based implementation of the dataset registry.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database holds:
//
//   - datasets: one row per saved generation run, with the request that produced it
//   - goldens: the run's goldens in output order
//   - warnings: the run's non-fatal unit warnings
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.goldsmith/data/goldsmith.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
