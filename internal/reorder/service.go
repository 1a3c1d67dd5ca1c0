// Package reorder applies relative reorder batches to stored catalog lists.
//
// A batch runs as: lock the list, open a transaction, verify the owner,
// snapshot the list, resolve caller ids, run the engine, write the changed
// keys, journal the batch, commit. Either every changed key of a batch is
// written or none is.
package reorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/reorder/internal/canonical"
	"github.com/roach88/reorder/internal/catalog"
	"github.com/roach88/reorder/internal/lock"
	"github.com/roach88/reorder/internal/sortorder"
	"github.com/roach88/reorder/internal/store"
)

const (
	// DefaultLockTTL bounds how long a crashed writer can hold a list lock.
	DefaultLockTTL = 30 * time.Second

	// DefaultLockWait bounds how long a batch waits for a held list lock.
	DefaultLockWait = 10 * time.Second
)

// Service runs reorder batches against a store.
//
// Thread-safety: Service is safe for concurrent use. Concurrent batches on
// the same list are serialized by the list lock and the database.
type Service struct {
	store   *store.Store
	locker  lock.Locker
	tokens  TokenGenerator
	logger  *slog.Logger
	partial  bool
	lockTTL  time.Duration
	lockWait time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger. Default discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithLocker sets the cross-process list lock. Default is lock.NopLocker.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithTokenGenerator sets the batch token source. Default is UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(s *Service) {
		s.tokens = g
	}
}

// WithPartialSuccess makes batches apply their resolvable moves and report
// the rest in Outcome.Errors, instead of rejecting the whole batch.
func WithPartialSuccess(partial bool) Option {
	return func(s *Service) {
		s.partial = partial
	}
}

// WithLockTTL sets the list lock expiry. Default is DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.lockTTL = ttl
	}
}

// WithLockWait bounds list lock acquisition. After wait the batch fails with
// lock.ErrLocked. Default is DefaultLockWait.
func WithLockWait(wait time.Duration) Option {
	return func(s *Service) {
		s.lockWait = wait
	}
}

// New creates a Service over st.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		locker:   lock.NopLocker{},
		tokens:   UUIDv7Generator{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		lockTTL:  DefaultLockTTL,
		lockWait: DefaultLockWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request is one reorder batch for one list.
type Request struct {
	Kind catalog.Kind
	// Parent is the global ID of the list owner.
	Parent string
	Moves  []catalog.MoveInput
}

// Outcome describes a committed batch.
type Outcome struct {
	// BatchID is the journal id; empty when nothing changed.
	BatchID string `json:"batch_id,omitempty"`
	Token   string `json:"token"`
	Seq     int64  `json:"seq,omitempty"`

	// Order is the final order of the whole list.
	Order []sortorder.ID `json:"order"`

	// Changed holds exactly the keys that were written.
	Changed []sortorder.Assignment `json:"changed"`

	// Errors lists moves skipped in partial success mode.
	Errors []catalog.ResolveError `json:"errors,omitempty"`
}

// list is one locked, loaded list inside an open transaction.
type list struct {
	rel      catalog.Relation
	parentID int64
	items    []sortorder.Item
}

// withList locks the list named by kind and parent, opens a transaction,
// verifies the owner and loads the snapshot before calling fn.
func (s *Service) withList(ctx context.Context, kind catalog.Kind, parent string, fn func(*store.Tx, list) error) error {
	rel, parentID, err := resolveList(kind, parent)
	if err != nil {
		return err
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	release, err := s.locker.Acquire(lockCtx, rel.LockKey(parentID), s.lockTTL)
	cancel()
	if err != nil {
		return fmt.Errorf("lock %s: %w", rel.LockKey(parentID), err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release list lock", "key", rel.LockKey(parentID), "error", err)
		}
	}()

	return s.store.WithTx(ctx, func(tx *store.Tx) error {
		exists, err := tx.ParentExists(ctx, rel, parentID)
		if err != nil {
			return err
		}
		if !exists {
			return &BatchError{Kind: kind, Parent: parent, Errors: []catalog.ResolveError{*rel.ParentNotFound(parent)}}
		}

		items, err := tx.LoadList(ctx, rel, parentID)
		if err != nil {
			return fmt.Errorf("load %s: %w", rel.Table, err)
		}
		return fn(tx, list{rel: rel, parentID: parentID, items: items})
	})
}

// Reorder applies one batch of relative moves to a list.
//
// Unresolvable ids reject the whole batch with a *BatchError unless the
// service runs in partial success mode. An unknown or missing parent always
// rejects the batch.
func (s *Service) Reorder(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{Token: s.tokens.Generate()}
	log := s.logger.With("token", out.Token, "kind", req.Kind.String(), "parent", req.Parent)
	log.Debug("reorder batch", "moves", len(req.Moves))

	err := s.withList(ctx, req.Kind, req.Parent, func(tx *store.Tx, l list) error {
		ops, errs := l.rel.Resolve(req.Moves, catalog.Members(l.items))
		if len(errs) > 0 {
			if !s.partial {
				return &BatchError{Kind: req.Kind, Parent: req.Parent, Errors: errs}
			}
			out.Errors = errs
			log.Info("skipping unresolved moves", "skipped", len(errs))
		}

		result, err := Apply(ctx, tx, l.rel, l.parentID, l.items, ops)
		if err != nil {
			return err
		}
		out.Order = result.Order
		out.Changed = result.Changed

		if !result.HasChanges() {
			return nil
		}
		return s.journal(ctx, tx, l, ops, result.Changed, &out)
	})
	if err != nil {
		log.Debug("reorder batch rejected", "error", err)
		return Outcome{}, err
	}

	log.Info("reorder batch committed", "changed", len(out.Changed), "batch_id", out.BatchID)
	return out, nil
}

// Apply runs the engine over a loaded snapshot and writes exactly the
// changed keys through tx.
//
// tx must be open. A nil or finished transaction panics: writing sort keys
// outside a transaction could interleave with another writer.
func Apply(ctx context.Context, tx *store.Tx, rel catalog.Relation, parentID int64, items []sortorder.Item, ops sortorder.Operations) (sortorder.Result, error) {
	if !tx.Active() {
		panic("reorder.Apply: called without an open transaction")
	}

	result := sortorder.Reorder(items, ops)
	if err := tx.WriteSortKeys(ctx, rel, parentID, result.Changed); err != nil {
		return sortorder.Result{}, fmt.Errorf("write %s: %w", rel.Table, err)
	}
	return result, nil
}

func (s *Service) journal(ctx context.Context, tx *store.Tx, l list, ops sortorder.Operations, changed []sortorder.Assignment, out *Outcome) error {
	kind := l.rel.Kind.String()
	seq, err := tx.NextBatchSeq(ctx, kind, l.parentID)
	if err != nil {
		return err
	}
	id, err := canonical.BatchID(kind, l.parentID, ops, seq)
	if err != nil {
		return fmt.Errorf("batch id: %w", err)
	}

	err = tx.AppendBatch(ctx, store.Batch{
		ID:         id,
		Token:      out.Token,
		Kind:       kind,
		ParentID:   l.parentID,
		Seq:        seq,
		Operations: ops,
		Changes:    changed,
	})
	if err != nil {
		return err
	}
	out.BatchID = id
	out.Seq = seq
	return nil
}

// Compact renumbers a list to 0..n-1 in its current order, writing only the
// rows whose key changes.
func (s *Service) Compact(ctx context.Context, kind catalog.Kind, parent string) (Outcome, error) {
	out := Outcome{Token: s.tokens.Generate()}

	err := s.withList(ctx, kind, parent, func(tx *store.Tx, l list) error {
		result := sortorder.Compact(l.items)
		if err := tx.WriteSortKeys(ctx, l.rel, l.parentID, result.Changed); err != nil {
			return fmt.Errorf("write %s: %w", l.rel.Table, err)
		}
		out.Order = result.Order
		out.Changed = result.Changed

		if !result.HasChanges() {
			return nil
		}
		return s.journal(ctx, tx, l, sortorder.Operations{}, result.Changed, &out)
	})
	if err != nil {
		return Outcome{}, err
	}

	s.logger.Info("compacted list", "kind", kind.String(), "parent", parent, "changed", len(out.Changed))
	return out, nil
}

// Inspection is a read-only view of a stored list.
type Inspection struct {
	Items []sortorder.Item `json:"-"`
	Stats sortorder.Stats  `json:"stats"`
}

// Inspect reads a list as stored, without backfilling or locking.
func (s *Service) Inspect(ctx context.Context, kind catalog.Kind, parent string) (Inspection, error) {
	rel, parentID, err := resolveList(kind, parent)
	if err != nil {
		return Inspection{}, err
	}
	items, err := s.store.ListItems(ctx, rel, parentID)
	if err != nil {
		return Inspection{}, listError(kind, parent, rel, err)
	}
	return Inspection{Items: items, Stats: sortorder.Analyze(items)}, nil
}

// History returns the journal of a list in commit order.
func (s *Service) History(ctx context.Context, kind catalog.Kind, parent string) ([]store.Batch, error) {
	rel, parentID, err := resolveList(kind, parent)
	if err != nil {
		return nil, err
	}
	batches, err := s.store.ReadBatches(ctx, kind.String(), parentID)
	if err != nil {
		return nil, fmt.Errorf("read %s history: %w", rel.Table, err)
	}
	return batches, nil
}

// Batch returns one journaled batch of a list. A batch recorded for another
// list is reported as store.ErrBatchNotFound.
func (s *Service) Batch(ctx context.Context, kind catalog.Kind, parent, id string) (store.Batch, error) {
	_, parentID, err := resolveList(kind, parent)
	if err != nil {
		return store.Batch{}, err
	}
	b, err := s.store.ReadBatch(ctx, id)
	if err != nil {
		return store.Batch{}, err
	}
	if b.Kind != kind.String() || b.ParentID != parentID {
		return store.Batch{}, fmt.Errorf("read batch %s: %w", id, store.ErrBatchNotFound)
	}
	return b, nil
}

// Seed creates a list owner and appends members, for fixtures.
func (s *Service) Seed(ctx context.Context, kind catalog.Kind, parentID int64, items []store.SeedItem) error {
	if kind == catalog.KindUnknown {
		return fmt.Errorf("seed: unknown list kind")
	}
	rel := kind.Relation()
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.SeedList(ctx, rel, parentID, items)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("seeded list", "kind", kind.String(), "parent", parentID, "items", len(items))
	return nil
}

func resolveList(kind catalog.Kind, parent string) (catalog.Relation, int64, error) {
	if kind == catalog.KindUnknown {
		return catalog.Relation{}, 0, fmt.Errorf("reorder: unknown list kind")
	}
	rel := kind.Relation()
	parentID, rerr := rel.ResolveParent(parent)
	if rerr != nil {
		return catalog.Relation{}, 0, &BatchError{Kind: kind, Parent: parent, Errors: []catalog.ResolveError{*rerr}}
	}
	return rel, parentID, nil
}

func listError(kind catalog.Kind, parent string, rel catalog.Relation, err error) error {
	if errors.Is(err, store.ErrListNotFound) {
		return &BatchError{Kind: kind, Parent: parent, Errors: []catalog.ResolveError{*rel.ParentNotFound(parent)}}
	}
	return err
}
