package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/reorder/internal/catalog"
	"github.com/roach88/reorder/internal/reorder"
	"github.com/roach88/reorder/internal/sortorder"
	"github.com/roach88/reorder/internal/store"
	"github.com/roach88/reorder/internal/testutil"
)

// Harness executes one scenario against a private store.
type Harness struct {
	store    *store.Store
	svc      *reorder.Service
	rel      catalog.Relation
	parentID string
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Seed the list
// 3. Execute steps with expect validation
// 4. Read the final list and journal
// 5. Evaluate assertions
//
// An error is returned only when the scenario cannot be executed; failed
// expectations are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with service and harness logs sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	kind, err := catalog.ParseKind(scenario.Kind)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("create in-memory store: %w", err)
	}
	defer st.Close()

	rel := kind.Relation()
	h := &Harness{
		store: st,
		svc: reorder.New(st,
			reorder.WithTokenGenerator(testutil.NewTokenSequence(scenario.Name)),
			reorder.WithPartialSuccess(scenario.Partial),
			reorder.WithLogger(logger),
		),
		rel:      rel,
		parentID: catalog.EncodeID(rel.ParentType, scenario.Parent),
		logger:   logger,
	}

	ctx := context.Background()

	seeded := make([]store.SeedItem, len(scenario.Items))
	for i, it := range scenario.Items {
		seeded[i] = store.SeedItem{ID: it.ID, SortOrder: it.SortOrder}
	}
	if err := h.svc.Seed(ctx, kind, scenario.Parent, seeded); err != nil {
		return nil, fmt.Errorf("seed list: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		sr, err := h.executeStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.Steps = append(result.Steps, sr)
		for _, msg := range checkExpect(i, step.Expect, sr) {
			result.AddError(msg)
		}
		h.logger.Debug("scenario step completed", "scenario", scenario.Name, "step", i, "changed", len(sr.Changed))
	}

	items, err := st.ListItems(ctx, rel, scenario.Parent)
	if err != nil {
		return nil, fmt.Errorf("read final list: %w", err)
	}
	for _, it := range items {
		result.Final = append(result.Final, FinalItem{ID: int64(it.ID), SortOrder: it.SortKey})
	}

	journal, err := st.ReadBatches(ctx, kind.String(), scenario.Parent)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	result.JournalLength = len(journal)

	for _, msg := range EvaluateAssertions(result, scenario.Items, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep runs one step. Batch rejections are outcomes, not errors.
func (h *Harness) executeStep(ctx context.Context, step Step) (StepResult, error) {
	parent := h.parentID
	if step.ParentID != "" {
		parent = step.ParentID
	}

	var (
		out reorder.Outcome
		err error
	)
	sr := StepResult{Action: step.Action}
	switch step.Action {
	case ActionCompact:
		out, err = h.svc.Compact(ctx, h.rel.Kind, parent)
	default:
		sr.Action = ActionReorder
		out, err = h.svc.Reorder(ctx, reorder.Request{
			Kind:   h.rel.Kind,
			Parent: parent,
			Moves:  h.moveInputs(step.Moves),
		})
	}

	if be, ok := reorder.AsBatchError(err); ok {
		sr.Rejected = true
		sr.Errors = errorSpecs(be.Errors)
		return sr, nil
	}
	if err != nil {
		return StepResult{}, err
	}

	sr.Token = out.Token
	sr.BatchID = out.BatchID
	sr.Seq = out.Seq
	sr.Order = ids(out.Order)
	sr.Changed = keySpecs(out.Changed)
	sr.Errors = errorSpecs(out.Errors)
	return sr, nil
}

func (h *Harness) moveInputs(moves []MoveSpec) []catalog.MoveInput {
	out := make([]catalog.MoveInput, len(moves))
	for i, mv := range moves {
		id := mv.GlobalID
		if id == "" {
			id = catalog.EncodeID(h.rel.ItemType, mv.ID)
		}
		out[i] = catalog.MoveInput{ID: id, SortOrder: mv.SortOrder}
	}
	return out
}

// checkExpect compares a step outcome with its expect clause.
func checkExpect(index int, want *Expect, got StepResult) []string {
	if want == nil {
		return nil
	}
	var errs []string
	if want.Rejected != got.Rejected {
		errs = append(errs, fmt.Sprintf("steps[%d]: rejected = %v, expected %v", index, got.Rejected, want.Rejected))
	}
	if want.Order != nil && !slices.Equal(want.Order, got.Order) {
		errs = append(errs, fmt.Sprintf("steps[%d]: order = %v, expected %v", index, got.Order, want.Order))
	}
	if want.Changed != nil && !slices.Equal(*want.Changed, got.Changed) {
		errs = append(errs, fmt.Sprintf("steps[%d]: changed = %v, expected %v", index, got.Changed, *want.Changed))
	}
	if want.Errors != nil {
		codes := make([]string, len(got.Errors))
		for i, e := range got.Errors {
			codes[i] = e.Code
		}
		if !slices.Equal(want.Errors, codes) {
			errs = append(errs, fmt.Sprintf("steps[%d]: errors = %v, expected %v", index, codes, want.Errors))
		}
	}
	return errs
}

func ids(order []sortorder.ID) []int64 {
	out := make([]int64, len(order))
	for i, id := range order {
		out[i] = int64(id)
	}
	return out
}

func keySpecs(changed []sortorder.Assignment) []KeySpec {
	out := make([]KeySpec, len(changed))
	for i, a := range changed {
		out[i] = KeySpec{ID: int64(a.ID), SortOrder: a.SortKey}
	}
	return out
}

func errorSpecs(errs []catalog.ResolveError) []ErrorSpec {
	if len(errs) == 0 {
		return nil
	}
	out := make([]ErrorSpec, len(errs))
	for i, e := range errs {
		out[i] = ErrorSpec{Field: e.Field, Code: string(e.Code)}
	}
	return out
}
