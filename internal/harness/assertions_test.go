package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalList() []FinalItem {
	return []FinalItem{
		{ID: 3, SortOrder: key(0)},
		{ID: 1, SortOrder: key(1)},
		{ID: 2},
	}
}

func TestAssertFinalOrder(t *testing.T) {
	assert.NoError(t, assertFinalOrder(finalList(), Assertion{Type: AssertFinalOrder, IDs: []int64{3, 1, 2}}))

	err := assertFinalOrder(finalList(), Assertion{Type: AssertFinalOrder, IDs: []int64{1, 2, 3}})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, AssertFinalOrder, assertErr.Type)
	assert.Equal(t, "order [1 2 3]", assertErr.Expected)
	assert.Equal(t, "order [3 1 2]", assertErr.Actual)
}

func TestAssertFinalOrder_EmptyList(t *testing.T) {
	assert.NoError(t, assertFinalOrder(nil, Assertion{Type: AssertFinalOrder, IDs: []int64{}}))
	assert.NoError(t, assertFinalOrder([]FinalItem{}, Assertion{Type: AssertFinalOrder}))
}

func TestAssertFinalKeys(t *testing.T) {
	tests := []struct {
		name   string
		keys   map[int64]int64
		actual string
	}{
		{name: "match", keys: map[int64]int64{3: 0, 1: 1}},
		{name: "subset", keys: map[int64]int64{1: 1}},
		{name: "wrong key", keys: map[int64]int64{1: 5}, actual: "item 1 key 1"},
		{name: "null key", keys: map[int64]int64{2: 2}, actual: "item 2 key null"},
		{name: "missing item", keys: map[int64]int64{9: 0}, actual: "item 9 key not in list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalKeys(finalList(), Assertion{Type: AssertFinalKeys, Keys: tt.keys})
			if tt.actual == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.actual, err.(*AssertionError).Actual)
		})
	}
}

func TestAssertChanged(t *testing.T) {
	seeded := []SeedItem{
		{ID: 1, SortOrder: key(1)},
		{ID: 2},
		{ID: 3, SortOrder: key(7)},
	}
	final := []FinalItem{
		{ID: 3, SortOrder: key(0)},
		{ID: 1, SortOrder: key(1)},
		{ID: 2, SortOrder: key(2)},
	}

	// 2 was backfilled from null, 3 moved, 1 kept its key
	assert.NoError(t, assertChanged(final, seeded, Assertion{Type: AssertChangedIDs, IDs: []int64{2, 3}}))
	assert.NoError(t, assertChanged(final, seeded, Assertion{Type: AssertUnchangedIDs, IDs: []int64{1}}))

	err := assertChanged(final, seeded, Assertion{Type: AssertChangedIDs, IDs: []int64{1}})
	require.Error(t, err)
	assert.Equal(t, "item 1 key 1 -> 1", err.(*AssertionError).Actual)

	err = assertChanged(final, seeded, Assertion{Type: AssertUnchangedIDs, IDs: []int64{2}})
	require.Error(t, err)
	assert.Equal(t, "item 2 key null -> 2", err.(*AssertionError).Actual)

	err = assertChanged(final, seeded, Assertion{Type: AssertUnchangedIDs, IDs: []int64{8}})
	require.Error(t, err)
	assert.Equal(t, "seeded=false listed=false", err.(*AssertionError).Actual)
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	result := &Result{Final: finalList(), JournalLength: 2}
	errs := EvaluateAssertions(result, nil, []Assertion{
		{Type: AssertFinalOrder, IDs: []int64{3, 1, 2}},
		{Type: AssertJournalLength, Count: 2},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	result := &Result{Final: finalList(), JournalLength: 2}
	errs := EvaluateAssertions(result, nil, []Assertion{
		{Type: AssertFinalOrder, IDs: []int64{3, 1, 2}},
		{Type: AssertJournalLength, Count: 1},
		{Type: "sorted"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertions[1]: Assertion failed: journal_length")
	assert.Contains(t, errs[1], "assertions[2]: unknown assertion type: sorted")
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertFinalOrder,
		Expected: "order [1 2]",
		Actual:   "order [2 1]",
		Final:    []FinalItem{{ID: 2, SortOrder: key(0)}, {ID: 1}},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: final_order")
	assert.Contains(t, msg, "Expected: order [1 2]")
	assert.Contains(t, msg, "Actual: order [2 1]")
	assert.Contains(t, msg, "[0] 2 = 0")
	assert.Contains(t, msg, "[1] 1 = null")
}
