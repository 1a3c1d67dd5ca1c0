package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/reorder/internal/catalog"
	"github.com/roach88/reorder/internal/reorder"
	"github.com/roach88/reorder/internal/sortorder"
	"github.com/roach88/reorder/internal/store"
)

// resolveErrors lists the ids of a rejected or partially applied batch.
type resolveErrors []catalog.ResolveError

func (errs resolveErrors) renderText(w io.Writer) {
	for _, e := range errs {
		fmt.Fprintf(w, "  %s: %s %s (%s)\n", e.Field, e.Code, e.Message, e.ID)
	}
}

// outcomeView is the result of apply, move and compact.
type outcomeView struct {
	Kind   string `json:"kind"`
	Parent string `json:"parent"`
	reorder.Outcome
}

func (v outcomeView) renderText(w io.Writer) {
	if len(v.Errors) > 0 {
		fmt.Fprintf(w, "Skipped %d unresolved move(s):\n", len(v.Errors))
		resolveErrors(v.Errors).renderText(w)
	}
	if len(v.Changed) == 0 {
		fmt.Fprintf(w, "%s %s: no changes\n", v.Kind, v.Parent)
		return
	}
	fmt.Fprintf(w, "%s %s: %d key(s) written (batch %d, %s)\n", v.Kind, v.Parent, len(v.Changed), v.Seq, shortID(v.BatchID))
	for _, a := range v.Changed {
		fmt.Fprintf(w, "  %d -> %d\n", a.ID, a.SortKey)
	}
	fmt.Fprintf(w, "Order: %s\n", joinIDs(v.Order))
}

// listView is the result of show.
type listView struct {
	Kind   string     `json:"kind"`
	Parent string     `json:"parent"`
	Items  []itemView `json:"items"`
}

type itemView struct {
	Position int    `json:"position"`
	ID       int64  `json:"id"`
	SortKey  *int64 `json:"sort_order"`
}

func newListView(kind catalog.Kind, parent string, items []sortorder.Item) listView {
	v := listView{Kind: kind.String(), Parent: parent, Items: make([]itemView, len(items))}
	for i, it := range items {
		v.Items[i] = itemView{Position: i, ID: int64(it.ID), SortKey: it.SortKey}
	}
	return v
}

func (v listView) renderText(w io.Writer) {
	if len(v.Items) == 0 {
		fmt.Fprintf(w, "%s %s is empty\n", v.Kind, v.Parent)
		return
	}
	fmt.Fprintf(w, "%s %s (%d items)\n", v.Kind, v.Parent, len(v.Items))
	for _, it := range v.Items {
		fmt.Fprintf(w, "  %3d  %-8d %s\n", it.Position, it.ID, keyString(it.SortKey))
	}
}

// inspectView is the result of inspect.
type inspectView struct {
	Kind       string `json:"kind"`
	Parent     string `json:"parent"`
	Normalized bool   `json:"normalized"`
	sortorder.Stats
}

func (v inspectView) renderText(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", v.Kind, v.Parent)
	fmt.Fprintf(w, "  items:      %d\n", v.Count)
	fmt.Fprintf(w, "  null keys:  %d\n", v.Nulls)
	fmt.Fprintf(w, "  duplicates: %d\n", v.Duplicates)
	if v.FirstKey != nil {
		fmt.Fprintf(w, "  first key:  %d\n", *v.FirstKey)
	}
	fmt.Fprintf(w, "  gaps:       %d\n", len(v.Gaps))
	for _, g := range v.Gaps {
		fmt.Fprintf(w, "    %d..%d (%d unused) between %d and %d\n", g.Start, g.End, g.Size(), g.After, g.Before)
	}
	if v.Normalized {
		fmt.Fprintln(w, "  normalized")
	} else {
		fmt.Fprintln(w, "  not normalized: run compact to renumber")
	}
}

// historyView is the result of history.
type historyView struct {
	Kind    string      `json:"kind"`
	Parent  string      `json:"parent"`
	Batches []batchView `json:"batches"`
}

type batchView struct {
	Seq        int64                  `json:"seq"`
	ID         string                 `json:"id"`
	Token      string                 `json:"token"`
	Operations []moveView             `json:"operations"`
	Changes    []sortorder.Assignment `json:"changes"`
}

type moveView struct {
	ID           int64 `json:"id"`
	Displacement int   `json:"displacement"`
}

func newHistoryView(kind catalog.Kind, parent string, batches []store.Batch) historyView {
	v := historyView{Kind: kind.String(), Parent: parent, Batches: make([]batchView, len(batches))}
	for i, b := range batches {
		moves := b.Operations.Moves()
		ops := make([]moveView, len(moves))
		for j, m := range moves {
			ops[j] = moveView{ID: int64(m.ID), Displacement: m.Resolved()}
		}
		v.Batches[i] = batchView{Seq: b.Seq, ID: b.ID, Token: b.Token, Operations: ops, Changes: b.Changes}
	}
	return v
}

func (v historyView) renderText(w io.Writer) {
	if len(v.Batches) == 0 {
		fmt.Fprintf(w, "%s %s: no batches\n", v.Kind, v.Parent)
		return
	}
	for _, b := range v.Batches {
		ops := make([]string, len(b.Operations))
		for i, op := range b.Operations {
			ops[i] = fmt.Sprintf("%d%+d", op.ID, op.Displacement)
		}
		moves := strings.Join(ops, " ")
		if moves == "" {
			moves = "compact"
		}
		fmt.Fprintf(w, "#%d %s %s: %s (%d written)\n", b.Seq, shortID(b.ID), b.Token, moves, len(b.Changes))
	}
}

func joinIDs(ids []sortorder.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(int64(id))
	}
	return strings.Join(parts, ", ")
}

func keyString(k *int64) string {
	if k == nil {
		return "null"
	}
	return fmt.Sprint(*k)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
