package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reorder/internal/catalog"
	"github.com/roach88/reorder/internal/sortorder"
)

func seed(t *testing.T, s *Store, kind catalog.Kind, parent int64, items ...SeedItem) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.SeedList(context.Background(), kind.Relation(), parent, items)
	})
	require.NoError(t, err)
}

func key(v int64) *int64 { return &v }

func TestLoadList_SnapshotOrder(t *testing.T) {
	for _, kind := range catalog.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			s := createTestStore(t)
			seed(t, s, kind, 1,
				SeedItem{ID: 10, SortOrder: nil},
				SeedItem{ID: 11, SortOrder: key(5)},
				SeedItem{ID: 12, SortOrder: key(2)},
				SeedItem{ID: 13, SortOrder: nil},
				SeedItem{ID: 14, SortOrder: key(5)},
			)

			var items []sortorder.Item
			err := s.WithTx(context.Background(), func(tx *Tx) error {
				var err error
				items, err = tx.LoadList(context.Background(), kind.Relation(), 1)
				return err
			})
			require.NoError(t, err)

			ids := make([]sortorder.ID, len(items))
			for i, it := range items {
				ids[i] = it.ID
			}
			// Keys ascending, nulls last, row id breaks ties.
			assert.Equal(t, []sortorder.ID{12, 11, 14, 10, 13}, ids)
			assert.Nil(t, items[3].SortKey)
			require.NotNil(t, items[0].SortKey)
			assert.Equal(t, int64(2), *items[0].SortKey)
			assert.Less(t, items[1].Tiebreak, items[2].Tiebreak)
		})
	}
}

func TestLoadList_EmptyList(t *testing.T) {
	s := createTestStore(t)
	seed(t, s, catalog.CollectionProducts, 3)

	items, err := s.ListItems(context.Background(), catalog.CollectionProducts.Relation(), 3)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestLoadList_ScopedToParent(t *testing.T) {
	s := createTestStore(t)
	seed(t, s, catalog.AttributeValues, 1, SeedItem{ID: 1, SortOrder: key(0)})
	seed(t, s, catalog.AttributeValues, 2, SeedItem{ID: 2, SortOrder: key(0)})

	items, err := s.ListItems(context.Background(), catalog.AttributeValues.Relation(), 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, sortorder.ID(2), items[0].ID)
}

func TestListItems_MissingParent(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ListItems(context.Background(), catalog.ProductTypeAttributes.Relation(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrListNotFound))
}

func TestParentExists(t *testing.T) {
	s := createTestStore(t)
	seed(t, s, catalog.PageTypeAttributes, 7)
	rel := catalog.PageTypeAttributes.Relation()

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		ok, err := tx.ParentExists(context.Background(), rel, 7)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.ParentExists(context.Background(), rel, 8)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestWriteSortKeys(t *testing.T) {
	s := createTestStore(t)
	rel := catalog.CollectionProducts.Relation()
	seed(t, s, catalog.CollectionProducts, 1,
		SeedItem{ID: 1, SortOrder: key(0)},
		SeedItem{ID: 2, SortOrder: key(1)},
		SeedItem{ID: 3, SortOrder: nil},
	)
	seed(t, s, catalog.CollectionProducts, 2, SeedItem{ID: 1, SortOrder: key(0)})

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.WriteSortKeys(context.Background(), rel, 1, []sortorder.Assignment{
			{ID: 3, SortKey: 0},
			{ID: 1, SortKey: 2},
		})
	})
	require.NoError(t, err)

	items, err := s.ListItems(context.Background(), rel, 1)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, sortorder.ID(3), items[0].ID)
	assert.Equal(t, int64(0), *items[0].SortKey)
	assert.Equal(t, sortorder.ID(2), items[1].ID)
	assert.Equal(t, sortorder.ID(1), items[2].ID)
	assert.Equal(t, int64(2), *items[2].SortKey)

	// The same product in another collection is untouched.
	other, err := s.ListItems(context.Background(), rel, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *other[0].SortKey)
}

func TestWriteSortKeys_Empty(t *testing.T) {
	s := createTestStore(t)

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.WriteSortKeys(context.Background(), catalog.AttributeValues.Relation(), 1, nil)
	})
	assert.NoError(t, err)
}

func TestWriteSortKeys_MissingRow(t *testing.T) {
	s := createTestStore(t)
	seed(t, s, catalog.AttributeValues, 1, SeedItem{ID: 1})

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.WriteSortKeys(context.Background(), catalog.AttributeValues.Relation(), 1,
			[]sortorder.Assignment{{ID: 99, SortKey: 0}})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 rows matched")
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	rel := catalog.AttributeValues.Relation()
	seed(t, s, catalog.AttributeValues, 1, SeedItem{ID: 1, SortOrder: key(0)})

	boom := errors.New("boom")
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		require.NoError(t, tx.WriteSortKeys(context.Background(), rel, 1, []sortorder.Assignment{{ID: 1, SortKey: 9}}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	items, err := s.ListItems(context.Background(), rel, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *items[0].SortKey)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	s := createTestStore(t)
	rel := catalog.AttributeValues.Relation()
	seed(t, s, catalog.AttributeValues, 1, SeedItem{ID: 1, SortOrder: key(0)})

	assert.Panics(t, func() {
		_ = s.WithTx(context.Background(), func(tx *Tx) error {
			_ = tx.WriteSortKeys(context.Background(), rel, 1, []sortorder.Assignment{{ID: 1, SortKey: 9}})
			panic("boom")
		})
	})

	items, err := s.ListItems(context.Background(), rel, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *items[0].SortKey)
}

func TestTx_ActiveOnlyInsideWithTx(t *testing.T) {
	s := createTestStore(t)

	var leaked *Tx
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		assert.True(t, tx.Active())
		leaked = tx
		return nil
	})
	require.NoError(t, err)
	assert.False(t, leaked.Active())

	var nilTx *Tx
	assert.False(t, nilTx.Active())
}

func TestSeedList_DuplicateMember(t *testing.T) {
	s := createTestStore(t)
	seed(t, s, catalog.ProductTypeAttributes, 1, SeedItem{ID: 5})

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.SeedList(context.Background(), catalog.ProductTypeAttributes.Relation(), 1, []SeedItem{{ID: 5}})
	})
	assert.Error(t, err)
}

func TestSeedList_SharedEntities(t *testing.T) {
	s := createTestStore(t)
	// The same attribute may be assigned to many product types.
	seed(t, s, catalog.ProductTypeAttributes, 1, SeedItem{ID: 5})
	seed(t, s, catalog.ProductTypeAttributes, 2, SeedItem{ID: 5})

	items, err := s.ListItems(context.Background(), catalog.ProductTypeAttributes.Relation(), 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, sortorder.ID(5), items[0].ID)
}
