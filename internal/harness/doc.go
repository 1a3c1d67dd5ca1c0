// Package harness runs reorder conformance scenarios.
//
// A scenario seeds one list, applies a sequence of batches through the
// reorder service and checks the outcome of every step and the final stored
// state.
//
// # Scenario Format
//
//	name: move_backward
//	description: "What this scenario validates"
//	kind: attribute_values
//	parent: 1
//	partial: false
//	items:
//	  - id: 1
//	    sort_order: 10
//	  - id: 2            # no sort_order: stored as null
//	steps:
//	  - moves:
//	      - id: 2          # raw pk, encoded as a global ID of the item type
//	        sort_order: -1
//	      - global_id: "garbage"   # passed through verbatim
//	    expect:
//	      order: [2, 1]
//	      changed:
//	        - {id: 2, sort_order: 10}
//	        - {id: 1, sort_order: 11}
//	  - action: compact
//	assertions:
//	  - type: final_order
//	    ids: [2, 1]
//	  - type: final_keys
//	    keys: {1: 11, 2: 10}
//
// # Assertion Types
//
//   - final_order: the stored list, read in snapshot order, has exactly ids
//   - final_keys: listed ids have the given stored keys
//   - changed_ids: exactly these ids have a stored key that differs from the seed
//   - unchanged_ids: listed ids still have their seeded key
//   - journal_length: the list journal has count batches
//
// # Deterministic Testing
//
// Every scenario runs in a fresh in-memory SQLite database with numbered
// batch tokens ("<name>-1", "<name>-2", ...), so outcomes, batch ids and
// golden snapshots are byte-identical across runs.
package harness
