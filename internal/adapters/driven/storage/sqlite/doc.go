// Package sqlite provides a durable driven.ChunkStore on SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Embeddings are stored as little-endian float32 blobs and
// metadata as JSON.
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.assistant/data/chunks.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The database runs in WAL mode,
// so a similarity scan does not block writers.
package sqlite
