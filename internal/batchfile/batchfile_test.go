package batchfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reorder/internal/catalog"
	"github.com/roach88/reorder/internal/store"
)

func TestLoadBatch(t *testing.T) {
	for _, file := range []string{"batch.yaml", "batch.cue"} {
		t.Run(file, func(t *testing.T) {
			b, err := LoadBatch(filepath.Join("testdata", file))
			require.NoError(t, err)

			assert.Equal(t, "attribute_values", b.Kind)
			assert.Equal(t, "QXR0cmlidXRlOjE=", b.Parent)
			require.Len(t, b.Moves, 2)
			assert.Equal(t, "QXR0cmlidXRlVmFsdWU6Mw==", b.Moves[0].ID)
			require.NotNil(t, b.Moves[0].SortOrder)
			assert.Equal(t, -1, *b.Moves[0].SortOrder)
			assert.Nil(t, b.Moves[1].SortOrder)

			req, err := b.Request()
			require.NoError(t, err)
			assert.Equal(t, catalog.AttributeValues, req.Kind)
			assert.Len(t, req.Moves, 2)
		})
	}
}

func TestLoadBatch_MovesOptional(t *testing.T) {
	b, err := LoadBatch(filepath.Join("testdata", "empty_moves.yaml"))
	require.NoError(t, err)
	assert.NotNil(t, b.Moves)
	assert.Empty(t, b.Moves)
}

func TestLoadBatch_Invalid(t *testing.T) {
	tests := []string{
		"bad_kind.yaml",
		"unknown_field.yaml",
		"bad_move.cue",
		"extra_field.cue",
	}

	for _, file := range tests {
		t.Run(file, func(t *testing.T) {
			_, err := LoadBatch(filepath.Join("testdata", file))
			require.Error(t, err)
			var fe *Error
			assert.True(t, errors.As(err, &fe), "expected *Error, got %T: %v", err, err)
		})
	}
}

func TestLoadBatch_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := LoadBatch(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestLoadBatch_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := LoadBatch(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document")
}

func TestLoadBatch_MissingFile(t *testing.T) {
	_, err := LoadBatch(filepath.Join("testdata", "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadFixture(t *testing.T) {
	for _, file := range []string{"fixture.yaml", "fixture.cue"} {
		t.Run(file, func(t *testing.T) {
			f, err := LoadFixture(filepath.Join("testdata", file))
			require.NoError(t, err)

			assert.Equal(t, "collection_products", f.Kind)
			assert.Equal(t, int64(5), f.Parent)

			items := f.SeedItems()
			require.Len(t, items, 3)
			assert.Equal(t, store.SeedItem{ID: 30, SortOrder: items[0].SortOrder}, items[0])
			require.NotNil(t, items[0].SortOrder)
			assert.Equal(t, int64(0), *items[0].SortOrder)
			assert.Nil(t, items[1].SortOrder)
			assert.Nil(t, items[2].SortOrder)
		})
	}
}

func TestLoadFixture_Invalid(t *testing.T) {
	_, err := LoadFixture(filepath.Join("testdata", "bad_fixture.yaml"))
	assert.Error(t, err)
}

func TestValidate_DetectsDocumentKind(t *testing.T) {
	tests := []struct {
		file string
		kind DocKind
		ok   bool
	}{
		{"batch.yaml", DocBatch, true},
		{"batch.cue", DocBatch, true},
		{"fixture.yaml", DocFixture, true},
		{"fixture.cue", DocFixture, true},
		{"bad_fixture.yaml", DocFixture, false},
		{"bad_kind.yaml", DocBatch, false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			kind, err := Validate(filepath.Join("testdata", tt.file))
			assert.Equal(t, tt.kind, kind)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestError_Format(t *testing.T) {
	assert.Equal(t, "a.cue:3:7: boom", (&Error{File: "a.cue", Line: 3, Column: 7, Message: "boom"}).Error())
	assert.Equal(t, "a.yaml: boom", (&Error{File: "a.yaml", Message: "boom"}).Error())
}
