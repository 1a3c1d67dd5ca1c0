package sortorder

// Compact renumbers items to 0..n-1 in working order.
//
// Relative order is preserved exactly as Reorder would see it (nulls last,
// tiebreak for equal keys). Result.Changed holds only rows whose key moved.
func Compact(items []Item) Result {
	w := newWorkingOrder(items)
	w.renumber()
	return w.result()
}

// Gap is a run of unused sort keys between two neighbouring items.
type Gap struct {
	After  ID    `json:"after"`
	Before ID    `json:"before"`
	Start  int64 `json:"start"`
	End    int64 `json:"end"`
}

// Size returns the number of unused keys in the gap.
func (g Gap) Size() int64 {
	return g.End - g.Start + 1
}

// Stats describes the health of a stored ordering.
type Stats struct {
	Count      int `json:"count"`
	Nulls      int `json:"nulls"`
	Duplicates int `json:"duplicates"`

	// FirstKey is the lowest stored key, nil when every key is null.
	FirstKey *int64 `json:"first_key,omitempty"`

	Gaps []Gap `json:"gaps"`
}

// Normalized reports whether the stored keys are exactly 0..n-1, which is
// when Compact has nothing to write.
func (s Stats) Normalized() bool {
	if s.Count == 0 {
		return true
	}
	return s.Nulls == 0 && s.Duplicates == 0 && len(s.Gaps) == 0 &&
		s.FirstKey != nil && *s.FirstKey == 0
}

// Analyze inspects the stored (not backfilled) keys of items.
func Analyze(items []Item) Stats {
	sorted := sortedItems(items)
	stats := Stats{Count: len(sorted), Gaps: []Gap{}}

	var prev *Item
	for i := range sorted {
		it := &sorted[i]
		if it.SortKey == nil {
			stats.Nulls++
			continue
		}
		if prev == nil {
			first := *it.SortKey
			stats.FirstKey = &first
		} else {
			switch {
			case *it.SortKey == *prev.SortKey:
				stats.Duplicates++
			case *it.SortKey > *prev.SortKey+1:
				stats.Gaps = append(stats.Gaps, Gap{
					After:  prev.ID,
					Before: it.ID,
					Start:  *prev.SortKey + 1,
					End:    *it.SortKey - 1,
				})
			}
		}
		prev = it
	}
	return stats
}
