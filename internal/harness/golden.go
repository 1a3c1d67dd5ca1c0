package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/reorder/internal/canonical"
)

// Snapshot captures the observable outcome of a scenario execution.
// It serializes to canonical JSON so golden files are byte-stable.
type Snapshot struct {
	ScenarioName  string
	Steps         []StepResult
	Final         []FinalItem
	JournalLength int
}

// toCanonicalMap converts a Snapshot to the generic shape canonical.Marshal
// accepts. Null sort keys are omitted.
func (s *Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, st := range s.Steps {
		m := map[string]any{"action": st.Action}
		if st.Rejected {
			m["rejected"] = true
		}
		if st.Token != "" {
			m["token"] = st.Token
		}
		if st.BatchID != "" {
			m["batch_id"] = st.BatchID
			m["seq"] = st.Seq
		}
		if !st.Rejected {
			order := make([]any, len(st.Order))
			for j, id := range st.Order {
				order[j] = id
			}
			m["order"] = order

			changed := make([]any, len(st.Changed))
			for j, k := range st.Changed {
				changed[j] = map[string]any{"id": k.ID, "sort_order": k.SortOrder}
			}
			m["changed"] = changed
		}
		if len(st.Errors) > 0 {
			errs := make([]any, len(st.Errors))
			for j, e := range st.Errors {
				errs[j] = map[string]any{"field": e.Field, "code": e.Code}
			}
			m["errors"] = errs
		}
		steps[i] = m
	}

	final := make([]any, len(s.Final))
	for i, it := range s.Final {
		m := map[string]any{"id": it.ID}
		if it.SortOrder != nil {
			m["sort_order"] = *it.SortOrder
		}
		final[i] = m
	}

	return map[string]any{
		"scenario_name":  s.ScenarioName,
		"steps":          steps,
		"final":          final,
		"journal_length": s.JournalLength,
	}
}

// MarshalSnapshot returns the canonical JSON of a result's snapshot.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName:  scenarioName,
		Steps:         result.Steps,
		Final:         result.Final,
		JournalLength: result.JournalLength,
	}
	return canonical.Marshal(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
