// Package store provides SQLite-backed storage for the library data the
// citation engine resolves against.
//
// The store holds:
//   - Library items: CSL-JSON bibliographic records
//   - Citation models: the records citation nodes point at via rid
//   - Citation model items: which library items each citation references
//   - Manuscripts: document-level context (locale, note style)
//
// # Critical Patterns
//
// Canonical records:
//   - data columns hold RFC 8785 canonical JSON (see internal/ir)
//   - library items carry a content hash so unchanged re-imports are no-ops
//
// Deterministic query results:
//   - All list queries order by id COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The editor never queries SQLite directly. Snapshot loads everything into
// a citation.Library whose getters serve as the engine's lookups.
package store
