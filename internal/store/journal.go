package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/reorder/internal/canonical"
	"github.com/roach88/reorder/internal/sortorder"
)

// ErrBatchNotFound is returned by ReadBatch for an unknown batch id.
var ErrBatchNotFound = errors.New("batch not found")

// Batch is one committed reorder as recorded in the journal.
type Batch struct {
	// ID is the content-addressed identity (see canonical.BatchID).
	ID string
	// Token correlates the batch with the request that produced it.
	Token    string
	Kind     string
	ParentID int64
	// Seq orders batches of one list; it starts at 1.
	Seq        int64
	Operations sortorder.Operations
	Changes    []sortorder.Assignment
}

// NextBatchSeq returns the sequence number the next batch of a list will
// take. Writers are serialized per list, so the value is stable until the
// transaction commits.
func (t *Tx) NextBatchSeq(ctx context.Context, kind string, parentID int64) (int64, error) {
	var seq int64
	err := t.queryRow(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1
		FROM reorder_batches
		WHERE kind = ? AND parent_id = ?
	`, kind, parentID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next batch seq: %w", err)
	}
	return seq, nil
}

// AppendBatch records a batch in the journal. Operations and changes are
// stored as canonical JSON.
func (t *Tx) AppendBatch(ctx context.Context, b Batch) error {
	opsJSON, err := canonical.Marshal(canonical.OperationsValue(b.Operations))
	if err != nil {
		return fmt.Errorf("append batch: %w", err)
	}
	changesJSON, err := canonical.Marshal(canonical.AssignmentsValue(b.Changes))
	if err != nil {
		return fmt.Errorf("append batch: %w", err)
	}

	_, err = t.exec(ctx, `
		INSERT INTO reorder_batches
		(id, token, kind, parent_id, seq, operations, changes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		b.Token,
		b.Kind,
		b.ParentID,
		b.Seq,
		string(opsJSON),
		string(changesJSON),
	)
	if err != nil {
		return fmt.Errorf("append batch: %w", err)
	}
	return nil
}

// ReadBatches returns the journal of one list ordered by seq.
// Returns an empty slice (not nil) if the list has no batches.
func (s *Store) ReadBatches(ctx context.Context, kind string, parentID int64) ([]Batch, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT id, token, kind, parent_id, seq, operations, changes
		FROM reorder_batches
		WHERE kind = ? AND parent_id = ?
		ORDER BY seq ASC, id ASC
	`), kind, parentID)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	batches := []Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

// ReadBatch retrieves a single batch by id.
// Returns ErrBatchNotFound if it does not exist.
func (s *Store) ReadBatch(ctx context.Context, id string) (Batch, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT id, token, kind, parent_id, seq, operations, changes
		FROM reorder_batches
		WHERE id = ?
	`), id)

	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Batch{}, fmt.Errorf("read batch %s: %w", id, ErrBatchNotFound)
	}
	return b, err
}

type scanner interface {
	Scan(dest ...any) error
}

type journalMove struct {
	ID           sortorder.ID `json:"id"`
	Displacement int          `json:"displacement"`
}

func scanBatch(row scanner) (Batch, error) {
	var (
		b                    Batch
		opsJSON, changesJSON string
	)
	if err := row.Scan(&b.ID, &b.Token, &b.Kind, &b.ParentID, &b.Seq, &opsJSON, &changesJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Batch{}, err
		}
		return Batch{}, fmt.Errorf("scan batch: %w", err)
	}

	var moves []journalMove
	if err := json.Unmarshal([]byte(opsJSON), &moves); err != nil {
		return Batch{}, fmt.Errorf("unmarshal operations of batch %s: %w", b.ID, err)
	}
	for _, m := range moves {
		b.Operations.Set(m.ID, sortorder.Displace(m.Displacement))
	}

	b.Changes = []sortorder.Assignment{}
	if err := json.Unmarshal([]byte(changesJSON), &b.Changes); err != nil {
		return Batch{}, fmt.Errorf("unmarshal changes of batch %s: %w", b.ID, err)
	}
	return b, nil
}
