package sortorder

import (
	"cmp"
	"math"
	"slices"
)

// Reorder applies ops to items and returns the resulting absolute ordering.
//
// Items are ordered by (SortKey ascending, nulls last, Tiebreak ascending).
// Before any move is applied, keys are made strictly increasing along that
// order: a null key (or a duplicate of the previous key) becomes previous+1,
// and a null key at the head of the list becomes 0. When a key cannot be
// backfilled because the previous key is math.MaxInt64, the whole list is
// renumbered to 0..n-1 instead.
//
// Each move is then applied in insertion order:
//   - ids not present in items are skipped (the row vanished concurrently)
//   - a displacement of 0 is skipped
//   - the target position is clamped into [0, len(items)-1]
//   - moving forward shifts keys in (old, target] down by one,
//     moving backward shifts keys in [target, old) up by one
//   - the moved item takes the key found at the target position
//
// Result.Changed contains exactly the items whose key differs from the
// snapshot passed in. Reorder never fails.
func Reorder(items []Item, ops Operations) Result {
	w := newWorkingOrder(items)
	for _, m := range ops.Moves() {
		w.apply(m)
	}
	return w.result()
}

// workingOrder is the per-call mutable state of the engine.
//
// INVARIANT: keys[order[i]] < keys[order[i+1]] for every i, after
// initialization and after every apply.
type workingOrder struct {
	order    []ID
	keys     map[ID]int64
	original map[ID]*int64
}

func newWorkingOrder(items []Item) *workingOrder {
	sorted := sortedItems(items)

	w := &workingOrder{
		order:    make([]ID, 0, len(sorted)),
		keys:     make(map[ID]int64, len(sorted)),
		original: make(map[ID]*int64, len(sorted)),
	}

	var (
		prev     int64
		overflow bool
	)
	for _, it := range sorted {
		if _, seen := w.keys[it.ID]; seen {
			continue
		}
		key, ok := resolveKey(it.SortKey, prev, len(w.order) == 0)
		if !ok {
			overflow = true
		}
		w.order = append(w.order, it.ID)
		w.keys[it.ID] = key
		w.original[it.ID] = it.SortKey
		prev = key
	}
	if overflow {
		w.renumber()
	}
	return w
}

// resolveKey returns the working key for a stored key given the key
// resolved for the previous item. It reports false when previous+1 would
// overflow.
func resolveKey(stored *int64, prev int64, first bool) (int64, bool) {
	switch {
	case first && stored == nil:
		return 0, true
	case first:
		return *stored, true
	case stored != nil && *stored > prev:
		return *stored, true
	case prev == math.MaxInt64:
		return prev, false
	default:
		return prev + 1, true
	}
}

// renumber assigns keys 0..n-1 in working order.
func (w *workingOrder) renumber() {
	for i, id := range w.order {
		w.keys[id] = int64(i)
	}
}

// sortedItems returns a copy of items in working order.
func sortedItems(items []Item) []Item {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, compareItems)
	return sorted
}

func compareItems(a, b Item) int {
	switch {
	case a.SortKey == nil && b.SortKey != nil:
		return 1
	case a.SortKey != nil && b.SortKey == nil:
		return -1
	case a.SortKey != nil && b.SortKey != nil && *a.SortKey != *b.SortKey:
		return cmp.Compare(*a.SortKey, *b.SortKey)
	}
	return cmp.Compare(a.Tiebreak, b.Tiebreak)
}

// apply processes a single move against the current working order.
func (w *workingOrder) apply(m Move) {
	pos := slices.Index(w.order, m.ID)
	if pos < 0 {
		return
	}
	d := m.Resolved()
	if d == 0 {
		return
	}

	target := clampTarget(pos, d, len(w.order))
	oldKey := w.keys[m.ID]
	newKey := w.keys[w.order[target]]

	if d > 0 {
		w.shift(-1, oldKey+1, newKey)
	} else {
		w.shift(+1, newKey, oldKey-1)
	}
	w.keys[m.ID] = newKey

	w.order = slices.Delete(w.order, pos, pos+1)
	w.order = slices.Insert(w.order, target, m.ID)
}

// clampTarget returns pos+d clamped into [0, n-1] without overflowing.
func clampTarget(pos, d, n int) int {
	last := n - 1
	if d > 0 {
		if d >= last-pos {
			return last
		}
		return pos + d
	}
	if d == minInt || -d >= pos {
		return 0
	}
	return pos + d
}

const minInt = -int(^uint(0)>>1) - 1

// shift adds delta to every key in [start, end]. An empty range is a no-op.
func (w *workingOrder) shift(delta int64, start, end int64) {
	if start > end {
		return
	}
	for id, key := range w.keys {
		if key >= start && key <= end {
			w.keys[id] = key + delta
		}
	}
}

// result diffs the working order against the original snapshot.
func (w *workingOrder) result() Result {
	res := Result{
		Order: slices.Clone(w.order),
		Keys:  make(map[ID]int64, len(w.keys)),
	}
	for _, id := range w.order {
		key := w.keys[id]
		res.Keys[id] = key
		if orig := w.original[id]; orig == nil || *orig != key {
			res.Changed = append(res.Changed, Assignment{ID: id, SortKey: key})
		}
	}
	return res
}
