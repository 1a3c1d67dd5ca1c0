package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reorder/internal/catalog"
	"github.com/roach88/reorder/internal/config"
	"github.com/roach88/reorder/internal/lock"
	"github.com/roach88/reorder/internal/reorder"
	"github.com/roach88/reorder/internal/store"
)

// settings merges the environment configuration with command line overrides.
func (o *RootOptions) settings() config.Config {
	cfg := config.Load()
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.RedisURL != "" {
		cfg.RedisURL = o.RedisURL
	}
	if o.LockWait > 0 {
		cfg.LockWait = o.LockWait
	}
	if o.Partial {
		cfg.PartialSuccess = true
	}
	if o.Verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	return cfg
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// session is an opened store with its service, for one command invocation.
type session struct {
	store  *store.Store
	svc    *reorder.Service
	logger *slog.Logger
	locker *lock.RedisLocker
}

// openSession opens the configured store and, when Redis is configured,
// the list lock. Failures are command errors.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg := opts.settings()
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	logger.Debug("opening database", "dialect", dialectName(cfg.Database))
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	s := &session{store: st, logger: logger}
	svcOpts := []reorder.Option{
		reorder.WithLogger(logger),
		reorder.WithPartialSuccess(cfg.PartialSuccess),
		reorder.WithLockTTL(cfg.LockTTL),
		reorder.WithLockWait(cfg.LockWait),
	}
	if cfg.RedisURL != "" {
		locker, err := lock.NewRedisLocker(cfg.RedisURL)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to connect to redis", err)
		}
		s.locker = locker
		svcOpts = append(svcOpts, reorder.WithLocker(locker))
		logger.Debug("list lock enabled")
	}
	s.svc = reorder.New(st, svcOpts...)
	return s, nil
}

func (s *session) Close() {
	if s.locker != nil {
		if err := s.locker.Close(); err != nil {
			s.logger.Error("error closing redis client", "error", err)
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

func dialectName(dsn string) string {
	if store.IsPostgresDSN(dsn) {
		return store.Postgres.String()
	}
	return store.SQLite.String()
}

// commandContext returns the command context, or a background context when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseKind parses a kind argument into an ExitError on failure.
func parseKind(arg string) (catalog.Kind, error) {
	kind, err := catalog.ParseKind(arg)
	if err != nil {
		return catalog.KindUnknown, WrapExitError(ExitCommandError, "invalid list kind", err)
	}
	return kind, nil
}

// parentArg accepts a list owner as a raw primary key or a global ID.
func parentArg(kind catalog.Kind, arg string) string {
	if pk, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return catalog.EncodeID(kind.Relation().ParentType, pk)
	}
	return strings.TrimSpace(arg)
}

// reportServiceError renders a service failure and maps it to an exit code.
func reportServiceError(f *OutputFormatter, err error) error {
	if be, ok := reorder.AsBatchError(err); ok {
		return f.Fail(ExitFailure, ErrCodeUnresolved, be.Error(), resolveErrors(be.Errors), err)
	}
	if errors.Is(err, store.ErrBatchNotFound) {
		return f.Fail(ExitFailure, ErrCodeNoBatch, err.Error(), nil, err)
	}
	if errors.Is(err, lock.ErrLocked) {
		return f.Fail(ExitCommandError, ErrCodeLocked, "list is locked by another writer", nil, err)
	}
	return f.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("database error: %v", err), nil, err)
}
