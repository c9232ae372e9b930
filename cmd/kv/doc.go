// Package kv is the key-value persistence layer behind tabula.
//
// Every operation touches exactly one key: read, whole-value overwrite, or
// create-once. Values are opaque bytes (JSON documents in practice).
//
// Backends:
//   - MemoryStore: dev/test fallback, process-local.
//   - SQLiteStore: single-file persistence via modernc.org/sqlite.
//   - PostgresStore: shared persistence over a caller-owned pgx pool.
//
// Keys are built only through IdentityKey, ConfigKey and RecordKey so that the
// three namespaces can never collide.
package kv
