// Package store provides durable storage for orderable catalog lists and the
// journal of reorder batches applied to them.
//
// Two dialects are supported behind the same API:
//   - SQLite (default): a file path or ":memory:"
//   - PostgreSQL: any postgres:// or postgresql:// URL, via pgx
//
// # Critical Patterns
//
// Deterministic snapshots
//   - Lists are read ORDER BY sort_order ASC NULLS LAST, id ASC
//   - The row id is the tiebreak, so equal or missing keys order stably
//
// Serialized writers
//   - SQLite opens every transaction BEGIN IMMEDIATE (_txlock=immediate)
//   - PostgreSQL locks the parent row and the list rows FOR UPDATE
//
// Logical ordering
//   - The reorder_batches journal is ordered by a per-list seq, never by
//     wall time
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Table and column names in queries come only from catalog.Relation
// descriptors, never from caller input.
package store
