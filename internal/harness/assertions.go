package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the final list to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Final    []FinalItem // Final list for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFinal list:\n")
	for i, it := range e.Final {
		fmt.Fprintf(&buf, "  [%d] %d = %s\n", i, it.ID, formatKey(it.SortOrder))
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the final state and
// returns one message per failure. seeded is the list as it was before the
// first step; changed_ids and unchanged_ids compare against it.
func EvaluateAssertions(result *Result, seeded []SeedItem, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, seeded, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, seeded []SeedItem, a Assertion) error {
	switch a.Type {
	case AssertFinalOrder:
		return assertFinalOrder(result.Final, a)
	case AssertFinalKeys:
		return assertFinalKeys(result.Final, a)
	case AssertChangedIDs, AssertUnchangedIDs:
		return assertChanged(result.Final, seeded, a)
	case AssertJournalLength:
		if result.JournalLength != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d journaled batches", a.Count),
				Actual:   fmt.Sprintf("%d journaled batches", result.JournalLength),
				Final:    result.Final,
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertFinalOrder checks the stored order of the whole list.
func assertFinalOrder(final []FinalItem, a Assertion) error {
	got := make([]int64, len(final))
	for i, it := range final {
		got[i] = it.ID
	}
	if slices.Equal(got, a.IDs) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("order %v", a.IDs),
		Actual:   fmt.Sprintf("order %v", got),
		Final:    final,
	}
}

// assertFinalKeys checks the stored key of each listed item. Items not
// listed are not checked.
func assertFinalKeys(final []FinalItem, a Assertion) error {
	keys := finalKeys(final)
	ids := make([]int64, 0, len(a.Keys))
	for id := range a.Keys {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		want := a.Keys[id]
		got, ok := keys[id]
		var actual string
		switch {
		case !ok:
			actual = "not in list"
		case got == nil || *got != want:
			actual = formatKey(got)
		default:
			continue
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("item %d key %d", id, want),
			Actual:   fmt.Sprintf("item %d key %s", id, actual),
			Final:    final,
		}
	}
	return nil
}

// assertChanged checks whether each item's stored key differs from its
// seeded key. A backfilled null counts as changed.
func assertChanged(final []FinalItem, seeded []SeedItem, a Assertion) error {
	wantChanged := a.Type == AssertChangedIDs
	keys := finalKeys(final)
	before := make(map[int64]*int64, len(seeded))
	for _, it := range seeded {
		before[it.ID] = it.SortOrder
	}

	for _, id := range a.IDs {
		was, seededOK := before[id]
		now, listed := keys[id]
		if !seededOK || !listed {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("item %d seeded and listed", id),
				Actual:   fmt.Sprintf("seeded=%v listed=%v", seededOK, listed),
				Final:    final,
			}
		}
		if sameKey(was, now) != wantChanged {
			continue
		}
		expected := "changed"
		if !wantChanged {
			expected = "unchanged"
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("item %d key %s", id, expected),
			Actual:   fmt.Sprintf("item %d key %s -> %s", id, formatKey(was), formatKey(now)),
			Final:    final,
		}
	}
	return nil
}

func finalKeys(final []FinalItem) map[int64]*int64 {
	keys := make(map[int64]*int64, len(final))
	for _, it := range final {
		keys[it.ID] = it.SortOrder
	}
	return keys
}

func sameKey(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func formatKey(k *int64) string {
	if k == nil {
		return "null"
	}
	return fmt.Sprint(*k)
}
