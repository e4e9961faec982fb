package runtime

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TechXTT/torq/internal/core"
)

// recoveryTimeout bounds the ROLLBACK issued while cleaning up after a failed
// statement or a Release inside a transaction.
const recoveryTimeout = 5 * time.Second

// Logger receives one record per dispatched statement. *slog.Logger
// satisfies it.
type Logger interface {
	Info(msg string, args ...any)
}

// Options configures a Session.
type Options struct {
	// KeepConnection holds the connection between statements issued outside
	// a transaction until Release. By default it goes back to the pool after
	// every such statement.
	KeepConnection bool
	// CaseConversion maps result columns to camelCase and field names in
	// written data to snake_case.
	CaseConversion bool
	// DryRun records statements without sending them to the database.
	DryRun bool
	// LogQueries emits every statement to Logger.
	LogQueries bool
	// Logger defaults to a text slog handler on stdout.
	Logger Logger
	// Hooks wrap Insert, Update and Delete.
	Hooks Hooks
}

// LogEntry is one dispatched statement.
type LogEntry struct {
	SQL    string
	Params []any
}

// Session runs statements on at most one borrowed connection. It is not safe
// for concurrent use; create one Session per goroutine.
type Session struct {
	id     uuid.UUID
	pool   Pool
	conn   Conn
	inTx   bool
	opts   Options
	logger Logger
	hooks  Hooks
	logs   []LogEntry
}

// NewSession creates a Session drawing connections from pool.
func NewSession(pool Pool, opts ...Options) *Session {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	hooks := o.Hooks
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Session{
		id:     uuid.New(),
		pool:   pool,
		opts:   o,
		logger: logger,
		hooks:  hooks,
	}
}

// ID identifies the session in log records.
func (s *Session) ID() uuid.UUID { return s.id }

// InTransaction reports whether BEGIN has been issued without a matching
// COMMIT or ROLLBACK.
func (s *Session) InTransaction() bool { return s.inTx }

// Options returns the session configuration.
func (s *Session) Options() Options { return s.opts }

// Logs returns a copy of every statement dispatched so far.
func (s *Session) Logs() []LogEntry {
	out := make([]LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

func (s *Session) acquire(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return &core.ExecError{Query: "acquire connection", Err: err}
	}
	s.conn = conn
	return nil
}

// Exec dispatches query with params and returns the resulting rows without
// any case conversion.
func (s *Session) Exec(ctx context.Context, query string, params ...any) ([]core.Row, error) {
	return s.dispatch(ctx, query, params, false)
}

// record appends a statement to the log buffer and, with LogQueries set,
// emits it to the logger.
func (s *Session) record(query string, params []any) LogEntry {
	entry := LogEntry{SQL: strings.Join(strings.Fields(query), " "), Params: params}
	s.logs = append(s.logs, entry)
	if s.opts.LogQueries {
		s.logger.Info("query", "session", s.id.String(), "sql", entry.SQL, "params", entry.Params)
	}
	return entry
}

// dispatch logs and runs one statement. hold keeps the connection after
// success even without KeepConnection.
func (s *Session) dispatch(ctx context.Context, query string, params []any, hold bool) ([]core.Row, error) {
	entry := s.record(query, params)
	if s.opts.DryRun {
		return nil, nil
	}

	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(ctx, entry.SQL, params)
	if err != nil {
		return nil, s.abort(ctx, &core.ExecError{Query: entry.SQL, Err: err})
	}
	if !hold && !s.inTx && !s.opts.KeepConnection {
		if err := s.releaseConn(); err != nil {
			s.warn("release after success", err)
		}
	}
	return rows, nil
}

// abort rolls back an open transaction and releases the connection after a
// failed statement. A failing ROLLBACK is joined to execErr.
func (s *Session) abort(ctx context.Context, execErr error) error {
	var errs []error
	errs = append(errs, execErr)
	if s.inTx {
		if err := s.rollbackHeld(ctx); err != nil {
			s.warn("rollback after failure", err)
			errs = append(errs, err)
		}
	}
	if err := s.releaseConn(); err != nil {
		s.warn("release after failure", err)
	}
	if len(errs) == 1 {
		return execErr
	}
	return errors.Join(errs...)
}

// rollbackHeld ends the open transaction on the held connection. It runs
// even when ctx is already cancelled.
func (s *Session) rollbackHeld(ctx context.Context) error {
	s.inTx = false
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recoveryTimeout)
	defer cancel()
	entry := s.record("ROLLBACK", nil)
	if _, err := s.conn.Query(rctx, entry.SQL, nil); err != nil {
		return &core.RollbackError{Err: err}
	}
	return nil
}

func (s *Session) warn(msg string, err error) {
	if w, ok := s.logger.(interface{ Warn(string, ...any) }); ok {
		w.Warn(msg, "session", s.id.String(), "error", err)
	}
}

// Begin starts a transaction. It is a no-op inside a transaction.
func (s *Session) Begin(ctx context.Context) error {
	if s.inTx {
		return nil
	}
	if _, err := s.dispatch(ctx, "BEGIN", nil, true); err != nil {
		return err
	}
	s.inTx = true
	return nil
}

// Commit ends the current transaction. It is a no-op outside a transaction.
func (s *Session) Commit(ctx context.Context) error {
	return s.finish(ctx, "COMMIT")
}

// Rollback aborts the current transaction. It is a no-op outside a
// transaction.
func (s *Session) Rollback(ctx context.Context) error {
	return s.finish(ctx, "ROLLBACK")
}

func (s *Session) finish(ctx context.Context, stmt string) error {
	if !s.inTx {
		return nil
	}
	s.inTx = false
	_, err := s.dispatch(ctx, stmt, nil, false)
	return err
}

// Transaction runs fn between Begin and Commit, rolling back when fn fails.
func (s *Session) Transaction(ctx context.Context, fn func(*Session) error) error {
	if err := s.Begin(ctx); err != nil {
		return err
	}
	if err := fn(s); err != nil {
		if rerr := s.Rollback(ctx); rerr != nil {
			return errors.Join(err, &core.RollbackError{Err: rerr})
		}
		return err
	}
	return s.Commit(ctx)
}

// Release returns the held connection to the pool. An open transaction is
// rolled back first. Release is idempotent.
func (s *Session) Release() error {
	if s.conn == nil {
		return nil
	}
	var errs []error
	if s.inTx {
		if err := s.rollbackHeld(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.releaseConn(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Session) releaseConn() error {
	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	if err := s.pool.Release(conn); err != nil {
		return &core.ExecError{Query: "release connection", Err: err}
	}
	return nil
}
