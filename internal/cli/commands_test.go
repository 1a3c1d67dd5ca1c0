package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reorder/internal/catalog"
	"github.com/roach88/reorder/internal/lock"
)

// testEnv is a temporary database plus the options pointing at it.
type testEnv struct {
	dir  string
	opts *RootOptions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("REORDER_REDIS_URL", "")
	return &testEnv{
		dir:  dir,
		opts: &RootOptions{Format: "text", Database: filepath.Join(dir, "reorder.db")},
	}
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// run executes a standalone command and returns its stdout.
func (e *testEnv) run(t *testing.T, newCmd func(*RootOptions) *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newCmd(e.opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// runJSON executes a command with --format json and decodes the envelope.
func (e *testEnv) runJSON(t *testing.T, newCmd func(*RootOptions) *cobra.Command, args ...string) (map[string]any, error) {
	t.Helper()
	e.opts.Format = "json"
	defer func() { e.opts.Format = "text" }()

	out, err := e.run(t, newCmd, args...)
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

func (e *testEnv) seed(t *testing.T, fixture string) {
	t.Helper()
	path := e.write(t, "fixture.yaml", fixture)
	_, err := e.run(t, NewSeedCommand, path)
	require.NoError(t, err)
}

const valuesFixture = `kind: attribute_values
parent: 7
items:
  - { id: 10, sort_order: 0 }
  - { id: 11, sort_order: 1 }
  - { id: 12, sort_order: 2 }
`

func TestSeedCommand(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "fixture.yaml", valuesFixture)

	out, err := env.run(t, NewSeedCommand, path)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded attribute_values "+catalog.EncodeID("Attribute", 7)+" with 3 item(s)")
}

func TestSeedCommand_InvalidFixture(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "fixture.yaml", "kind: attribute_values\nparent: -1\nitems: []\n")

	out, err := env.run(t, NewSeedCommand, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestMoveCommand(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, valuesFixture)

	out, err := env.run(t, NewMoveCommand, "attribute_values", "7", "12=-2")
	require.NoError(t, err)
	assert.Contains(t, out, "3 key(s) written (batch 1,")
	assert.Contains(t, out, "  12 -> 0\n")
	assert.Contains(t, out, "  10 -> 1\n")
	assert.Contains(t, out, "  11 -> 2\n")
	assert.Contains(t, out, "Order: 12, 10, 11")
}

func TestMoveCommand_JSON(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, valuesFixture)

	resp, err := env.runJSON(t, NewMoveCommand, "attribute_values", catalog.EncodeID("Attribute", 7), "10")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp["status"])

	data := resp["data"].(map[string]any)
	assert.Equal(t, "attribute_values", data["kind"])
	assert.Equal(t, []any{11.0, 10.0, 12.0}, data["order"])
	assert.Equal(t, 1.0, data["seq"])
	assert.Len(t, data["batch_id"], 64)
	assert.Equal(t, []any{
		map[string]any{"id": 11.0, "sort_order": 0.0},
		map[string]any{"id": 10.0, "sort_order": 1.0},
	}, data["changed"])
}

func TestMoveCommand_NoChanges(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, valuesFixture)

	out, err := env.run(t, NewMoveCommand, "attribute_values", "7", "10=0", "12=5")
	require.NoError(t, err)
	assert.Contains(t, out, "no changes")
}

func TestMoveCommand_Rejected(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, valuesFixture)

	out, err := env.run(t, NewMoveCommand, "attribute_values", "7", "10", "99=-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
	assert.Contains(t, out, "moves[1].id: NOT_FOUND")

	// Nothing was written
	show, err := env.run(t, NewShowCommand, "attribute_values", "7")
	require.NoError(t, err)
	assert.Regexp(t, `0\s+10\s+0\n`, show)
}

func TestMoveCommand_Partial(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, valuesFixture)
	env.opts.Partial = true

	out, err := env.run(t, NewMoveCommand, "attribute_values", "7", "99", "12=-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped 1 unresolved move(s)")
	assert.Contains(t, out, "Order: 10, 12, 11")
}

func TestMoveCommand_MissingParent(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, valuesFixture)

	resp, err := env.runJSON(t, NewMoveCommand, "attribute_values", "8", "10")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", resp["status"])

	details := resp["error"].(map[string]any)["details"].([]any)
	require.Len(t, details, 1)
	assert.Equal(t, "parent", details[0].(map[string]any)["field"])
	assert.Equal(t, "NOT_FOUND", details[0].(map[string]any)["code"])
}

func TestMoveCommand_InvalidArgs(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown kind", []string{"menus", "1", "2"}, "invalid list kind"},
		{"bad id", []string{"attribute_values", "1", "abc=1"}, `invalid move "abc=1"`},
		{"bad displacement", []string{"attribute_values", "1", "2=up"}, `invalid move "2=up"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.run(t, NewMoveCommand, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestParseMoves(t *testing.T) {
	moves, err := parseMoves(catalog.CollectionProducts, []string{"5=-2", "6", "7=+3"})
	require.NoError(t, err)
	require.Len(t, moves, 3)

	assert.Equal(t, catalog.EncodeID("Product", 5), moves[0].ID)
	assert.Equal(t, -2, *moves[0].SortOrder)
	assert.Nil(t, moves[1].SortOrder)
	assert.Equal(t, 3, *moves[2].SortOrder)

	_, err = parseMoves(catalog.CollectionProducts, []string{"0"})
	assert.Error(t, err)
}

func TestParentArg(t *testing.T) {
	assert.Equal(t, catalog.EncodeID("Collection", 5), parentArg(catalog.CollectionProducts, "5"))
	assert.Equal(t, "Q29sbGVjdGlvbjo1", parentArg(catalog.CollectionProducts, " Q29sbGVjdGlvbjo1 "))
}

func TestApplyCommand(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, valuesFixture)

	batch := fmt.Sprintf(`kind: attribute_values
parent: %s
moves:
  - id: %s
    sort_order: 1
`, catalog.EncodeID("Attribute", 7), catalog.EncodeID("AttributeValue", 10))
	path := env.write(t, "batch.yaml", batch)

	out, err := env.run(t, NewApplyCommand, path)
	require.NoError(t, err)
	assert.Contains(t, out, "Order: 11, 10, 12")
}

func TestApplyCommand_InvalidFile(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "batch.yaml", "kind: menus\nparent: x\nmoves: []\n")

	out, err := env.run(t, NewApplyCommand, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestShowCommand_JSON(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, `kind: collection_products
parent: 5
items:
  - { id: 101, sort_order: 10 }
  - { id: 102 }
  - { id: 103, sort_order: 3 }
`)

	resp, err := env.runJSON(t, NewShowCommand, "collection_products", "5")
	require.NoError(t, err)

	items := resp["data"].(map[string]any)["items"].([]any)
	require.Len(t, items, 3)
	assert.Equal(t, map[string]any{"position": 0.0, "id": 103.0, "sort_order": 3.0}, items[0])
	assert.Equal(t, map[string]any{"position": 1.0, "id": 101.0, "sort_order": 10.0}, items[1])
	assert.Equal(t, map[string]any{"position": 2.0, "id": 102.0, "sort_order": nil}, items[2])
}

func TestShowCommand_MissingList(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, NewShowCommand, "page_type_attributes", "3")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "parent: NOT_FOUND")
}

func TestInspectAndCompact(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, `kind: product_type_attributes
parent: 2
items:
  - { id: 1, sort_order: 0 }
  - { id: 2, sort_order: 5 }
  - { id: 3, sort_order: 5 }
  - { id: 4 }
`)

	out, err := env.run(t, NewInspectCommand, "product_type_attributes", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "items:      4")
	assert.Contains(t, out, "null keys:  1")
	assert.Contains(t, out, "duplicates: 1")
	assert.Contains(t, out, "1..4 (4 unused) between 1 and 2")
	assert.Contains(t, out, "not normalized")

	out, err = env.run(t, NewCompactCommand, "product_type_attributes", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "3 key(s) written (batch 1,")
	assert.Contains(t, out, "Order: 1, 2, 3, 4")

	resp, err := env.runJSON(t, NewInspectCommand, "product_type_attributes", "2")
	require.NoError(t, err)
	data := resp["data"].(map[string]any)
	assert.Equal(t, true, data["normalized"])
	assert.Equal(t, 4.0, data["count"])

	out, err = env.run(t, NewCompactCommand, "product_type_attributes", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "no changes")
}

func TestHistoryCommand(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, valuesFixture)

	out, err := env.run(t, NewHistoryCommand, "attribute_values", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "no batches")

	_, err = env.run(t, NewMoveCommand, "attribute_values", "7", "12=-2")
	require.NoError(t, err)
	_, err = env.run(t, NewMoveCommand, "attribute_values", "7", "10", "11=-5")
	require.NoError(t, err)

	out, err = env.run(t, NewHistoryCommand, "attribute_values", "7")
	require.NoError(t, err)
	assert.Regexp(t, `#1 [0-9a-f]{12} \S+: 12-2 \(3 written\)`, out)
	assert.Regexp(t, `#2 [0-9a-f]{12} \S+: 10\+1 11-5 \(\d written\)`, out)

	resp, err := env.runJSON(t, NewHistoryCommand, "attribute_values", "7")
	require.NoError(t, err)
	batches := resp["data"].(map[string]any)["batches"].([]any)
	require.Len(t, batches, 2)
	first := batches[0].(map[string]any)
	assert.Equal(t, 1.0, first["seq"])
	assert.Equal(t, []any{map[string]any{"id": 12.0, "displacement": -2.0}}, first["operations"])
}

func TestHistoryCommand_SingleBatch(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, valuesFixture)

	resp, err := env.runJSON(t, NewMoveCommand, "attribute_values", "7", "12=-2")
	require.NoError(t, err)
	batchID := resp["data"].(map[string]any)["batch_id"].(string)
	_, err = env.run(t, NewMoveCommand, "attribute_values", "7", "10")
	require.NoError(t, err)

	out, err := env.run(t, NewHistoryCommand, "attribute_values", "7", "--batch", batchID)
	require.NoError(t, err)
	assert.Regexp(t, `#1 [0-9a-f]{12} \S+: 12-2 \(3 written\)`, out)
	assert.NotContains(t, out, "#2")

	out, err = env.run(t, NewHistoryCommand, "attribute_values", "7", "--batch", "deadbeef")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E007]")
}

func TestMoveCommand_ListLocked(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, valuesFixture)

	mr := miniredis.RunT(t)
	key := lock.Key(catalog.AttributeValues.Relation().LockKey(7))
	require.NoError(t, mr.Set(key, "someone-else"))
	env.opts.RedisURL = "redis://" + mr.Addr()
	env.opts.LockWait = 50 * time.Millisecond

	out, err := env.run(t, NewMoveCommand, "attribute_values", "7", "12=-2")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E006]")

	_, err = env.run(t, NewCompactCommand, "attribute_values", "7")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	mr.Del(key)
	out, err = env.run(t, NewMoveCommand, "attribute_values", "7", "12=-2")
	require.NoError(t, err)
	assert.Contains(t, out, "3 key(s) written")
	assert.False(t, mr.Exists(key), "lock not released")
}
