package sortorder

// ID identifies an item within one list.
type ID int64

// Item is one orderable row as fetched by the snapshot provider.
type Item struct {
	// ID is the stable identity of the row within its list.
	ID ID

	// SortKey is the stored sort key. Nil means the row was never ordered.
	SortKey *int64

	// Tiebreak orders rows whose SortKey is nil or equal (usually the row pk).
	Tiebreak int64
}

// Key returns a pointer to v, for building Items in tests and fixtures.
func Key(v int64) *int64 {
	return &v
}

// Move requests that an item be shifted by Displacement list positions.
// Positive values move toward the end of the list, negative toward the start.
// A nil Displacement means +1.
type Move struct {
	ID           ID
	Displacement *int
}

// Displace returns a pointer to d, for building Moves.
func Displace(d int) *int {
	return &d
}

// Resolved returns the effective displacement of the move.
func (m Move) Resolved() int {
	if m.Displacement == nil {
		return 1
	}
	return *m.Displacement
}

// Operations is an insertion-ordered mapping from item ID to displacement.
//
// At most one move exists per ID. Setting an ID again replaces its
// displacement but keeps the position of the first insertion, which is the
// order in which the engine applies the moves.
//
// The zero value is an empty batch ready for use.
type Operations struct {
	ids   []ID
	moves map[ID]*int
}

// NewOperations builds Operations from moves, in order.
func NewOperations(moves ...Move) Operations {
	var ops Operations
	for _, m := range moves {
		ops.Set(m.ID, m.Displacement)
	}
	return ops
}

// Set records the displacement for id.
func (o *Operations) Set(id ID, displacement *int) {
	if o.moves == nil {
		o.moves = make(map[ID]*int)
	}
	if _, exists := o.moves[id]; !exists {
		o.ids = append(o.ids, id)
	}
	o.moves[id] = displacement
}

// Lookup returns the displacement recorded for id.
func (o Operations) Lookup(id ID) (*int, bool) {
	d, ok := o.moves[id]
	return d, ok
}

// Len returns the number of distinct ids in the batch.
func (o Operations) Len() int {
	return len(o.ids)
}

// Moves returns the batch in application order.
func (o Operations) Moves() []Move {
	moves := make([]Move, len(o.ids))
	for i, id := range o.ids {
		moves[i] = Move{ID: id, Displacement: o.moves[id]}
	}
	return moves
}

// Assignment is one (id, new sort key) pair to persist.
type Assignment struct {
	ID      ID    `json:"id"`
	SortKey int64 `json:"sort_order"`
}

// Result is the outcome of one engine invocation.
type Result struct {
	// Order lists every item id in its final positional order.
	Order []ID

	// Keys maps every item id to its final absolute sort key.
	Keys map[ID]int64

	// Changed holds only the items whose final key differs from the key
	// they had before the call (including keys backfilled from null),
	// in final positional order. Empty when nothing needs writing.
	Changed []Assignment
}

// HasChanges reports whether anything must be written back.
func (r Result) HasChanges() bool {
	return len(r.Changed) > 0
}
