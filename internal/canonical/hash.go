package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/reorder/internal/sortorder"
)

// DomainBatch prefixes every batch identity. The version suffix allows the
// encoding to change without colliding with journaled ids.
const DomainBatch = "reorder/batch/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// BatchID computes the content-addressed id of one reorder batch.
//
// The id covers the relation kind, the parent, the resolved operations in
// application order and the journal sequence number, so replaying the same
// batch against the same list at the same point in history yields the same id.
func BatchID(kind string, parent int64, ops sortorder.Operations, seq int64) (string, error) {
	obj := map[string]any{
		"kind":       kind,
		"parent":     parent,
		"operations": OperationsValue(ops),
		"seq":        seq,
	}

	data, err := Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}
	return hashWithDomain(DomainBatch, data), nil
}

// OperationsValue converts operations into the canonical value tree. A nil
// displacement is recorded as its resolved value so that "move by default"
// and "move by +1" hash identically.
func OperationsValue(ops sortorder.Operations) []any {
	moves := ops.Moves()
	out := make([]any, 0, len(moves))
	for _, m := range moves {
		out = append(out, map[string]any{
			"id":           int64(m.ID),
			"displacement": m.Resolved(),
		})
	}
	return out
}

// AssignmentsValue converts written keys into the canonical value tree.
func AssignmentsValue(changed []sortorder.Assignment) []any {
	out := make([]any, 0, len(changed))
	for _, a := range changed {
		out = append(out, map[string]any{
			"id":         int64(a.ID),
			"sort_order": a.SortKey,
		})
	}
	return out
}
