package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TechXTT/torq/internal/core"
)

// fakePool hands out a single fakeConn and records every statement.
type fakePool struct {
	acquired   int
	released   int
	conn       *fakeConn
	err        error
	releaseErr error
}

func newFakePool() *fakePool {
	return &fakePool{conn: &fakeConn{fail: map[string]error{}}}
}

func (p *fakePool) Acquire(context.Context) (Conn, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.acquired++
	return p.conn, nil
}

func (p *fakePool) Release(Conn) error {
	p.released++
	return p.releaseErr
}

type fakeConn struct {
	statements []string
	params     [][]any
	rows       []core.Row
	fail       map[string]error
}

func (c *fakeConn) Query(_ context.Context, query string, args []any) ([]core.Row, error) {
	c.statements = append(c.statements, query)
	c.params = append(c.params, args)
	if err, ok := c.fail[query]; ok {
		return nil, err
	}
	return c.rows, nil
}

type recordingLogger struct {
	infos []string
	warns []string
}

func (l *recordingLogger) Info(msg string, args ...any) { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Warn(msg string, args ...any) { l.warns = append(l.warns, msg) }

func TestDispatch_AutoRelease(t *testing.T) {
	pool := newFakePool()
	pool.conn.rows = []core.Row{{"id": int64(1)}}
	s := NewSession(pool)

	rows, err := s.Exec(context.Background(), "SELECT   id\n\tFROM t  WHERE id = $1", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, []string{"SELECT id FROM t WHERE id = $1"}, pool.conn.statements)
	require.Equal(t, 1, pool.acquired)
	require.Equal(t, 1, pool.released)

	require.NoError(t, s.Release())
	require.Equal(t, 1, pool.released)
}

func TestDispatch_KeepConnection(t *testing.T) {
	pool := newFakePool()
	s := NewSession(pool, Options{KeepConnection: true})

	for i := 0; i < 3; i++ {
		_, err := s.Exec(context.Background(), "SELECT 1")
		require.NoError(t, err)
	}
	require.Equal(t, 1, pool.acquired)
	require.Zero(t, pool.released)

	require.NoError(t, s.Release())
	require.NoError(t, s.Release())
	require.Equal(t, 1, pool.released)
}

func TestDispatch_DryRunNeverTouchesPool(t *testing.T) {
	pool := newFakePool()
	logger := &recordingLogger{}
	s := NewSession(pool, Options{DryRun: true, LogQueries: true, Logger: logger})

	_, err := s.Exec(context.Background(), "SELECT *\n  FROM users\n WHERE name = $1", "o'neil")
	require.NoError(t, err)
	require.NoError(t, s.Update(context.Background(), UpdateStmt{Table: "t", Data: core.Row{"a": 1}, WhereByID: 3}))

	require.Zero(t, pool.acquired)
	require.Empty(t, pool.conn.statements)
	require.Equal(t, []LogEntry{
		{SQL: "SELECT * FROM users WHERE name = $1", Params: []any{"o'neil"}},
		{SQL: `UPDATE t SET "a" = '1' WHERE ("id" = $1)`, Params: []any{3}},
	}, s.Logs())
	require.Equal(t, []string{"query", "query"}, logger.infos)
}

func TestDispatch_LoggingDisabled(t *testing.T) {
	logger := &recordingLogger{}
	s := NewSession(newFakePool(), Options{DryRun: true, Logger: logger})
	_, err := s.Exec(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.Empty(t, logger.infos)
	require.Len(t, s.Logs(), 1)
}

func TestTransaction_FailureRollsBackAndReleases(t *testing.T) {
	pool := newFakePool()
	boom := errors.New("duplicate key")
	pool.conn.fail["INSERT INTO t (x) VALUES (1)"] = boom
	s := NewSession(pool)
	ctx := context.Background()

	require.NoError(t, s.Begin(ctx))
	require.True(t, s.InTransaction())
	_, err := s.Exec(ctx, "UPDATE t SET x = 2")
	require.NoError(t, err)
	require.Zero(t, pool.released)

	_, err = s.Exec(ctx, "INSERT INTO t (x) VALUES (1)")
	require.ErrorIs(t, err, boom)
	var execErr *core.ExecError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "INSERT INTO t (x) VALUES (1)", execErr.Query)

	require.False(t, s.InTransaction())
	require.Equal(t, 1, pool.released)
	require.Equal(t, []string{"BEGIN", "UPDATE t SET x = 2", "INSERT INTO t (x) VALUES (1)", "ROLLBACK"}, pool.conn.statements)
}

func TestTransaction_RollbackFailureIsJoined(t *testing.T) {
	pool := newFakePool()
	boom := errors.New("syntax error")
	lost := errors.New("connection reset")
	pool.conn.fail["SELECT broken"] = boom
	pool.conn.fail["ROLLBACK"] = lost
	logger := &recordingLogger{}
	s := NewSession(pool, Options{Logger: logger})
	ctx := context.Background()

	require.NoError(t, s.Begin(ctx))
	_, err := s.Exec(ctx, "SELECT broken")
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, lost)
	var rbErr *core.RollbackError
	require.ErrorAs(t, err, &rbErr)
	require.Equal(t, []string{"rollback after failure"}, logger.warns)
	require.Equal(t, 1, pool.released)
}

func TestTransaction_FailureOutsideTransactionDoesNotRollback(t *testing.T) {
	pool := newFakePool()
	boom := errors.New("boom")
	pool.conn.fail["SELECT 1"] = boom
	s := NewSession(pool, Options{KeepConnection: true})

	_, err := s.Exec(context.Background(), "SELECT 1")
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"SELECT 1"}, pool.conn.statements)
	require.Equal(t, 1, pool.released)
}

func TestTransaction_CommitAndNoOps(t *testing.T) {
	pool := newFakePool()
	s := NewSession(pool)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx))
	require.NoError(t, s.Rollback(ctx))
	require.Empty(t, pool.conn.statements)

	require.NoError(t, s.Begin(ctx))
	require.NoError(t, s.Begin(ctx))
	require.NoError(t, s.Commit(ctx))
	require.False(t, s.InTransaction())
	require.Equal(t, []string{"BEGIN", "COMMIT"}, pool.conn.statements)
	require.Equal(t, 1, pool.acquired)
	require.Equal(t, 1, pool.released)
}

func TestTransaction_Helper(t *testing.T) {
	pool := newFakePool()
	s := NewSession(pool)
	ctx := context.Background()
	failed := errors.New("business rule")

	err := s.Transaction(ctx, func(tx *Session) error {
		_, err := tx.Exec(ctx, "DELETE FROM t")
		require.NoError(t, err)
		return failed
	})
	require.ErrorIs(t, err, failed)
	require.Equal(t, []string{"BEGIN", "DELETE FROM t", "ROLLBACK"}, pool.conn.statements)

	pool.conn.statements = nil
	require.NoError(t, s.Transaction(ctx, func(tx *Session) error { return nil }))
	require.Equal(t, []string{"BEGIN", "COMMIT"}, pool.conn.statements)
}

func TestRelease_RollsBackOpenTransaction(t *testing.T) {
	pool := newFakePool()
	s := NewSession(pool)

	require.NoError(t, s.Begin(context.Background()))
	require.NoError(t, s.Release())
	require.False(t, s.InTransaction())
	require.Equal(t, []string{"BEGIN", "ROLLBACK"}, pool.conn.statements)
	require.Equal(t, 1, pool.released)
}

func TestAcquireFailure(t *testing.T) {
	pool := newFakePool()
	pool.err = errors.New("pool exhausted")
	s := NewSession(pool)

	_, err := s.Exec(context.Background(), "SELECT 1")
	require.ErrorIs(t, err, pool.err)
	require.Len(t, s.Logs(), 1)
}

func TestDispatch_ZeroOptionsRelease(t *testing.T) {
	pool := newFakePool()
	s := NewSession(pool, Options{CaseConversion: true})

	_, err := s.Exec(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.Equal(t, 1, pool.acquired)
	require.Equal(t, 1, pool.released)
}

func TestDispatch_ReleaseFailureKeepsRows(t *testing.T) {
	pool := newFakePool()
	pool.releaseErr = errors.New("bad connection")
	pool.conn.rows = []core.Row{{"id": int64(5)}}
	logger := &recordingLogger{}
	s := NewSession(pool, Options{Logger: logger})

	id, err := s.Insert(context.Background(), InsertStmt{Table: "t", Rows: []core.Row{{"a": 1}}, ReturnID: true})
	require.NoError(t, err)
	require.Equal(t, int64(5), id)
	require.Equal(t, []string{"release after success"}, logger.warns)
	require.NoError(t, s.Release())
}

func TestRollback_RecoveryIsLogged(t *testing.T) {
	pool := newFakePool()
	pool.conn.fail["SELECT broken"] = errors.New("syntax error")
	logger := &recordingLogger{}
	s := NewSession(pool, Options{LogQueries: true, Logger: logger})
	ctx := context.Background()

	require.NoError(t, s.Begin(ctx))
	_, err := s.Exec(ctx, "SELECT broken")
	require.Error(t, err)
	require.NoError(t, s.Begin(ctx))
	require.NoError(t, s.Release())

	require.Equal(t, []LogEntry{
		{SQL: "BEGIN"}, {SQL: "SELECT broken"}, {SQL: "ROLLBACK"},
		{SQL: "BEGIN"}, {SQL: "ROLLBACK"},
	}, s.Logs())
	require.Len(t, logger.infos, len(s.Logs()))
}
