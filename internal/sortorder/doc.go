// Package sortorder implements the relative-to-absolute reorder engine.
//
// The engine converts a batch of relative "move by N positions" operations
// into absolute integer sort keys for one list of rows, and reports the
// minimal set of rows whose key actually changed.
//
// ARCHITECTURE:
//
// Working Order:
// Each call to Reorder builds a working order from the caller's snapshot:
// - Items sorted by (sort key ascending, nulls last, tiebreak ascending)
// - Null keys backfilled with previous+1 (the first item gets 0)
// - An ordered id list (positions) and an id -> key map kept in lockstep
//
// The working order is owned by one call and discarded afterwards.
//
// Move Processing:
// Operations are applied in insertion order. Each move is resolved against
// the list as already modified by earlier moves in the same batch, so a
// batch is NOT a set of independent moves.
//
// PURITY:
//
// The package performs no I/O and never fails. Fetching and locking rows,
// writing the changed keys back, and the surrounding transaction belong to
// the caller (see internal/store and internal/reorder). Two concurrent calls
// against the same list must be serialized by the caller.
package sortorder
