package catalog

import (
	"fmt"

	"github.com/roach88/reorder/internal/sortorder"
)

// MoveInput is one relative move as supplied by a caller.
type MoveInput struct {
	// ID is the global ID of the item to move.
	ID string `json:"id" yaml:"id"`

	// SortOrder is the relative displacement; nil means +1.
	SortOrder *int `json:"sort_order,omitempty" yaml:"sort_order,omitempty"`
}

// ResolveParent decodes the global ID of a list owner.
// Existence of the owner is checked by the store, not here.
func (r Relation) ResolveParent(globalID string) (int64, *ResolveError) {
	return decodeTyped("parent", globalID, r.ParentType)
}

// ParentNotFound builds the error reported when the owner row is missing.
func (r Relation) ParentNotFound(globalID string) *ResolveError {
	return newNotFound("parent", globalID, fmt.Sprintf("a %s", r.ParentType))
}

// Members returns the set of ids present in a snapshot.
func Members(items []sortorder.Item) map[sortorder.ID]struct{} {
	m := make(map[sortorder.ID]struct{}, len(items))
	for _, it := range items {
		m[it.ID] = struct{}{}
	}
	return m
}

// Resolve maps caller moves onto engine operations for one list.
//
// Every move whose id cannot be decoded, has the wrong type, or is not a
// member of the list yields a ResolveError; the remaining moves are still
// returned so a caller may choose partial success. A repeated id replaces
// the earlier displacement but keeps the earlier position.
func (r Relation) Resolve(moves []MoveInput, members map[sortorder.ID]struct{}) (sortorder.Operations, []ResolveError) {
	var (
		ops  sortorder.Operations
		errs []ResolveError
	)
	for i, mv := range moves {
		field := fmt.Sprintf("moves[%d].id", i)
		pk, rerr := decodeTyped(field, mv.ID, r.ItemType)
		if rerr != nil {
			errs = append(errs, *rerr)
			continue
		}
		id := sortorder.ID(pk)
		if _, ok := members[id]; !ok {
			errs = append(errs, *newNotFound(field, mv.ID, fmt.Sprintf("a %s of this %s", r.ItemType, r.ParentType)))
			continue
		}
		ops.Set(id, mv.SortOrder)
	}
	return ops, errs
}
