package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reorder/internal/catalog"
)

// Scenario defines a conformance scenario for one list.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Kind is the relation kind wire name, e.g. "attribute_values".
	Kind string `yaml:"kind"`

	// Parent is the primary key of the list owner.
	Parent int64 `yaml:"parent"`

	// Partial runs the service in partial success mode.
	Partial bool `yaml:"partial,omitempty"`

	// Items seeds the list, in insertion (row id) order.
	Items []SeedItem `yaml:"items"`

	// Steps run in order against the seeded list.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final stored state.
	Assertions []Assertion `yaml:"assertions"`
}

// SeedItem is one list member created before the first step.
type SeedItem struct {
	ID        int64  `yaml:"id"`
	SortOrder *int64 `yaml:"sort_order,omitempty"`
}

// Step actions.
const (
	ActionReorder = "reorder"
	ActionCompact = "compact"
)

// Step is one service call.
type Step struct {
	// Action is "reorder" (default) or "compact".
	Action string `yaml:"action,omitempty"`

	// ParentID overrides the parent global ID, e.g. to address a missing list.
	ParentID string `yaml:"parent_id,omitempty"`

	Moves []MoveSpec `yaml:"moves,omitempty"`

	// Expect validates the step outcome. Nil skips validation.
	Expect *Expect `yaml:"expect,omitempty"`
}

// MoveSpec is a move addressed by raw pk or by literal global ID.
type MoveSpec struct {
	ID        int64  `yaml:"id,omitempty"`
	GlobalID  string `yaml:"global_id,omitempty"`
	SortOrder *int   `yaml:"sort_order,omitempty"`
}

// Expect lists what a step must produce. Omitted fields are not checked.
type Expect struct {
	// Rejected expects the batch to fail with a BatchError.
	Rejected bool `yaml:"rejected,omitempty"`

	// Order is the expected final order reported by the step.
	Order []int64 `yaml:"order,omitempty"`

	// Changed is the exact expected write set. An explicit empty list
	// expects no writes.
	Changed *[]KeySpec `yaml:"changed,omitempty"`

	// Errors are the expected resolve error codes, in order.
	Errors []string `yaml:"errors,omitempty"`
}

// KeySpec is an (id, sort key) pair.
type KeySpec struct {
	ID        int64 `yaml:"id" json:"id"`
	SortOrder int64 `yaml:"sort_order" json:"sort_order"`
}

// Assertion validates the final stored state.
type Assertion struct {
	// Type is one of final_order, final_keys, changed_ids, unchanged_ids,
	// journal_length.
	Type string `yaml:"type"`

	// IDs is used by final_order, changed_ids and unchanged_ids.
	IDs []int64 `yaml:"ids,omitempty"`

	// Keys is used by final_keys.
	Keys map[int64]int64 `yaml:"keys,omitempty"`

	// Count is used by journal_length.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalOrder    = "final_order"
	AssertFinalKeys     = "final_keys"
	AssertChangedIDs    = "changed_ids"
	AssertUnchangedIDs  = "unchanged_ids"
	AssertJournalLength = "journal_length"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	// Strict fields catch typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", filepath.Base(path), err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := catalog.ParseKind(s.Kind); err != nil {
		return err
	}

	if s.Parent <= 0 {
		return fmt.Errorf("parent must be a positive id")
	}

	seen := make(map[int64]bool, len(s.Items))
	for i, it := range s.Items {
		if it.ID <= 0 {
			return fmt.Errorf("items[%d]: id must be positive", i)
		}
		if seen[it.ID] {
			return fmt.Errorf("items[%d]: duplicate id %d", i, it.ID)
		}
		seen[it.ID] = true
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch step.Action {
		case "", ActionReorder:
		case ActionCompact:
			if len(step.Moves) > 0 {
				return fmt.Errorf("steps[%d]: compact takes no moves", i)
			}
		default:
			return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
		}
		for j, mv := range step.Moves {
			if (mv.ID == 0) == (mv.GlobalID == "") {
				return fmt.Errorf("steps[%d].moves[%d]: exactly one of id and global_id is required", i, j)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalOrder:
	case AssertChangedIDs, AssertUnchangedIDs:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids is required for %s", index, a.Type)
		}
	case AssertFinalKeys:
		if len(a.Keys) == 0 {
			return fmt.Errorf("assertions[%d]: keys is required for final_keys", index)
		}
	case AssertJournalLength:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
