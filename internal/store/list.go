package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/reorder/internal/catalog"
	"github.com/roach88/reorder/internal/sortorder"
)

// ErrListNotFound is returned when the owner of a list does not exist.
var ErrListNotFound = errors.New("list not found")

// SeedItem is one list member to insert.
type SeedItem struct {
	ID        int64
	SortOrder *int64
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ParentExists reports whether the owner of a list exists. On PostgreSQL the
// owner row is locked until the transaction ends, which serializes
// concurrent reorders of the same list even when it is empty.
func (t *Tx) ParentExists(ctx context.Context, rel catalog.Relation, parentID int64) (bool, error) {
	var one int
	err := t.queryRow(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?%s", rel.ParentTable, t.dialect.forUpdate()),
		parentID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s %d: %w", rel.ParentType, parentID, err)
	}
	return true, nil
}

// LoadList reads the full membership of one list in snapshot order and, on
// PostgreSQL, locks its rows for the rest of the transaction.
//
// Returns an empty slice (not nil) for an empty list.
func (t *Tx) LoadList(ctx context.Context, rel catalog.Relation, parentID int64) ([]sortorder.Item, error) {
	return loadList(ctx, txQuerier{t}, rel, parentID, t.dialect.forUpdate())
}

// ListItems reads one list outside of a write transaction.
// Returns ErrListNotFound if the owner does not exist.
func (s *Store) ListItems(ctx context.Context, rel catalog.Relation, parentID int64) ([]sortorder.Item, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", rel.ParentTable)),
		parentID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", rel.ParentType, parentID, ErrListNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("check %s %d: %w", rel.ParentType, parentID, err)
	}
	return loadList(ctx, dbQuerier{s}, rel, parentID, "")
}

type txQuerier struct{ t *Tx }

func (q txQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.t.query(ctx, query, args...)
}

type dbQuerier struct{ s *Store }

func (q dbQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.s.db.QueryContext(ctx, q.s.dialect.rebind(query), args...)
}

func loadList(ctx context.Context, q querier, rel catalog.Relation, parentID int64, suffix string) ([]sortorder.Item, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s, id, %s
		FROM %s
		WHERE %s = ?
		ORDER BY %s ASC NULLS LAST, id ASC%s
	`, rel.ItemColumn, catalog.SortColumn, rel.Table, rel.ParentColumn, catalog.SortColumn, suffix), parentID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", rel.Table, err)
	}
	defer rows.Close()

	items := []sortorder.Item{}
	for rows.Next() {
		var (
			itemID, rowID int64
			key           sql.NullInt64
		)
		if err := rows.Scan(&itemID, &rowID, &key); err != nil {
			return nil, fmt.Errorf("scan %s: %w", rel.Table, err)
		}
		item := sortorder.Item{ID: sortorder.ID(itemID), Tiebreak: rowID}
		if key.Valid {
			item.SortKey = sortorder.Key(key.Int64)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", rel.Table, err)
	}
	return items, nil
}

// WriteSortKeys persists exactly the given (id, key) pairs with one prepared
// statement. Empty input issues no statements.
func (t *Tx) WriteSortKeys(ctx context.Context, rel catalog.Relation, parentID int64, changed []sortorder.Assignment) error {
	if len(changed) == 0 {
		return nil
	}

	stmt, err := t.tx.PrepareContext(ctx, t.dialect.rebind(fmt.Sprintf(
		"UPDATE %s SET %s = ? WHERE %s = ? AND %s = ?",
		rel.Table, catalog.SortColumn, rel.ParentColumn, rel.ItemColumn,
	)))
	if err != nil {
		return fmt.Errorf("prepare sort key update: %w", err)
	}
	defer stmt.Close()

	for _, a := range changed {
		res, err := stmt.ExecContext(ctx, a.SortKey, parentID, int64(a.ID))
		if err != nil {
			return fmt.Errorf("write sort key for %d: %w", a.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("write sort key for %d: rows affected: %w", a.ID, err)
		}
		if n != 1 {
			return fmt.Errorf("write sort key for %d: %d rows matched, expected 1", a.ID, n)
		}
	}
	return nil
}

// SeedList creates the owner of a list (if missing) and appends members in
// the given order. Referenced entities such as products are created as
// needed. Members that already belong to the list are an error.
func (t *Tx) SeedList(ctx context.Context, rel catalog.Relation, parentID int64, items []SeedItem) error {
	if _, err := t.exec(ctx,
		fmt.Sprintf("INSERT INTO %s (id) VALUES (?) ON CONFLICT (id) DO NOTHING", rel.ParentTable),
		parentID,
	); err != nil {
		return fmt.Errorf("seed %s %d: %w", rel.ParentType, parentID, err)
	}

	for _, it := range items {
		if err := t.seedItem(ctx, rel, parentID, it); err != nil {
			return fmt.Errorf("seed %s %d: %w", rel.ItemType, it.ID, err)
		}
	}
	return nil
}

func (t *Tx) seedItem(ctx context.Context, rel catalog.Relation, parentID int64, it SeedItem) error {
	var key any
	if it.SortOrder != nil {
		key = *it.SortOrder
	}

	if rel.ItemTable == "" {
		_, err := t.exec(ctx,
			fmt.Sprintf("INSERT INTO %s (id, %s, %s) VALUES (?, ?, ?)", rel.Table, rel.ParentColumn, catalog.SortColumn),
			it.ID, parentID, key,
		)
		return err
	}

	if _, err := t.exec(ctx,
		fmt.Sprintf("INSERT INTO %s (id) VALUES (?) ON CONFLICT (id) DO NOTHING", rel.ItemTable),
		it.ID,
	); err != nil {
		return err
	}
	_, err := t.exec(ctx,
		fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?)", rel.Table, rel.ParentColumn, rel.ItemColumn, catalog.SortColumn),
		parentID, it.ID, key,
	)
	return err
}
