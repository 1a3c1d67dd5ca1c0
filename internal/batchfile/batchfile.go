// Package batchfile loads reorder batches and list fixtures from YAML or CUE
// files. Every document is validated against an embedded CUE schema before
// it is used.
package batchfile

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/reorder/internal/catalog"
	"github.com/roach88/reorder/internal/reorder"
	"github.com/roach88/reorder/internal/store"
)

//go:embed schema.cue
var schemaCUE string

// DocKind identifies which schema a document satisfies.
type DocKind string

const (
	DocBatch   DocKind = "batch"
	DocFixture DocKind = "fixture"
)

// Batch is a reorder request as written in a file.
type Batch struct {
	Kind   string              `json:"kind" yaml:"kind"`
	Parent string              `json:"parent" yaml:"parent"`
	Moves  []catalog.MoveInput `json:"moves" yaml:"moves"`
}

// Request converts the batch into a service request.
func (b Batch) Request() (reorder.Request, error) {
	kind, err := catalog.ParseKind(b.Kind)
	if err != nil {
		return reorder.Request{}, err
	}
	return reorder.Request{Kind: kind, Parent: b.Parent, Moves: b.Moves}, nil
}

// Fixture is one list to seed, addressed by raw primary keys.
type Fixture struct {
	Kind   string        `json:"kind" yaml:"kind"`
	Parent int64         `json:"parent" yaml:"parent"`
	Items  []FixtureItem `json:"items" yaml:"items"`
}

// FixtureItem is one list member. A missing sort_order seeds a null key.
type FixtureItem struct {
	ID        int64  `json:"id" yaml:"id"`
	SortOrder *int64 `json:"sort_order,omitempty" yaml:"sort_order,omitempty"`
}

// SeedItems converts fixture items for store.Tx.SeedList.
func (f Fixture) SeedItems() []store.SeedItem {
	out := make([]store.SeedItem, len(f.Items))
	for i, it := range f.Items {
		out[i] = store.SeedItem{ID: it.ID, SortOrder: it.SortOrder}
	}
	return out
}

// Error reports an invalid document, with a position when one is known.
type Error struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// LoadBatch reads and validates a batch file.
func LoadBatch(path string) (Batch, error) {
	var b Batch
	if err := load(path, "#Batch", &b); err != nil {
		return Batch{}, err
	}
	return b, nil
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (Fixture, error) {
	var f Fixture
	if err := load(path, "#Fixture", &f); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// Validate checks a file against whichever schema its shape suggests:
// documents with an items field are fixtures, all others batches.
func Validate(path string) (DocKind, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	kind, err := detect(path, data)
	if err != nil {
		return "", err
	}
	switch kind {
	case DocFixture:
		_, err = LoadFixture(path)
	default:
		_, err = LoadBatch(path)
	}
	return kind, err
}

func load(path, def string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	want := schema.LookupPath(cue.ParsePath(def))

	var doc cue.Value
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := decodeYAML(path, data, out); err != nil {
			return err
		}
		normalize(out)
		doc = ctx.Encode(out)
	case ".cue":
		doc = ctx.CompileBytes(data, cue.Filename(path))
	default:
		return &Error{File: path, Message: fmt.Sprintf("unsupported file type %q: want .yaml, .yml or .cue", ext)}
	}
	if err := doc.Err(); err != nil {
		return cueError(path, err)
	}

	v := want.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return cueError(path, err)
	}
	if err := v.Decode(out); err != nil {
		return cueError(path, err)
	}
	normalize(out)
	return nil
}

// decodeYAML decodes a single strict YAML document.
func decodeYAML(path string, data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &Error{File: path, Message: "empty document"}
		}
		return &Error{File: path, Message: err.Error()}
	}
	return nil
}

// normalize replaces nil lists with empty ones so they encode as [].
func normalize(out any) {
	switch v := out.(type) {
	case *Batch:
		if v.Moves == nil {
			v.Moves = []catalog.MoveInput{}
		}
	case *Fixture:
		if v.Items == nil {
			v.Items = []FixtureItem{}
		}
	}
}

func detect(path string, data []byte) (DocKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return "", cueError(path, err)
		}
		if v.LookupPath(cue.ParsePath("items")).Exists() {
			return DocFixture, nil
		}
		return DocBatch, nil
	default:
		var probe map[string]any
		if err := yaml.Unmarshal(data, &probe); err != nil {
			return "", &Error{File: path, Message: err.Error()}
		}
		if _, ok := probe["items"]; ok {
			return DocFixture, nil
		}
		return DocBatch, nil
	}
}

// cueError converts the first CUE error to an Error with position info.
func cueError(path string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{File: path, Message: err.Error()}
	}
	first := errs[0]
	e := &Error{File: path, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 && positions[0].IsValid() {
		if name := positions[0].Filename(); name != "" {
			e.File = name
		}
		e.Line = positions[0].Line()
		e.Column = positions[0].Column()
	}
	return e
}
