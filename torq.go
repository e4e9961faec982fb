// Package torq builds PostgreSQL statements from predicate groups and runs
// them through sessions that borrow one pooled connection at a time.
//
//	db, err := torq.NewDB("postgres://localhost/app")
//	...
//	users, err := db.Select("users", "id", "firstName").
//		Where(torq.Group{torq.Eq("active", true)}).
//		Limit(10).
//		All(ctx)
package torq

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TechXTT/torq/internal/core"
	"github.com/TechXTT/torq/pkg/config"
	"github.com/TechXTT/torq/pkg/runtime"
)

type (
	Row            = core.Row
	Cond           = core.Cond
	Group          = core.Group
	Raw            = core.Raw
	AtomicExpr     = core.AtomicExpr
	Builder        = core.Builder
	Clause         = core.Clause
	JoinKind       = core.JoinKind
	Direction      = core.Direction
	WhereOptions   = core.WhereOptions
	CompileOptions = core.CompileOptions

	Session     = runtime.Session
	Options     = runtime.Options
	LogEntry    = runtime.LogEntry
	SelectQuery = runtime.SelectQuery
	CountQuery  = runtime.CountQuery
	SumQuery    = runtime.SumQuery
	InsertStmt  = runtime.InsertStmt
	UpdateStmt  = runtime.UpdateStmt
	DeleteStmt  = runtime.DeleteStmt

	ConfigError   = core.ConfigError
	ExecError     = core.ExecError
	RollbackError = core.RollbackError
)

const (
	And = core.And
	Or  = core.Or

	InnerJoin = core.InnerJoin
	LeftJoin  = core.LeftJoin
	RightJoin = core.RightJoin
	OuterJoin = core.OuterJoin

	Asc  = core.Asc
	Desc = core.Desc
)

// Skip drops a condition or row field.
var Skip = core.Skip

// ErrConfiguration matches every *ConfigError.
var ErrConfiguration = core.ErrConfiguration

var (
	Select                = core.Select
	Eq                    = core.Eq
	NotDeleted            = core.NotDeleted
	Compile               = core.Compile
	ParseGroups           = core.ParseGroups
	ToSnake               = core.ToSnake
	ToCamel               = core.ToCamel
	IsUniqueViolation     = runtime.IsUniqueViolation
	IsForeignKeyViolation = runtime.IsForeignKeyViolation
)

// Opt returns *p, or Skip when p is nil.
func Opt[T any](p *T) any { return core.Opt(p) }

// Atomic returns an update value applied relative to the stored column
// value, "+" by default. It requires UpdateStmt.AllowAtomic.
func Atomic[N core.Number](delta N, op ...string) AtomicExpr { return core.Atomic(delta, op...) }

// DB owns a connection pool and hands out sessions over it.
type DB struct {
	Conn *sql.DB
	opts Options
}

// NewDB opens a PostgreSQL pool with lib/pq and checks it with a ping.
func NewDB(dataSourceName string, opts ...Options) (*DB, error) {
	conn, err := runtime.Connect(runtime.DriverPQ, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return OpenDB(conn, opts...), nil
}

// Open connects using a loaded configuration.
func Open(cfg *config.Config) (*DB, error) {
	conn, err := runtime.Open(cfg.Pool())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return OpenDB(conn, cfg.SessionOptions()), nil
}

// OpenDB wraps an existing pool. Sessions use opts, or the zero Options
// when none are given.
func OpenDB(conn *sql.DB, opts ...Options) *DB {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	return &DB{Conn: conn, opts: o}
}

// Session starts a new session. Sessions are not safe for concurrent use;
// create one per goroutine.
func (db *DB) Session() *Session {
	return runtime.NewSession(runtime.NewDBPool(db.Conn), db.opts)
}

// Select starts a statement bound to a fresh session. The session is not
// reachable by the caller, so it always returns its connection after the
// statement runs, whatever KeepConnection says.
func (db *DB) Select(from string, fields ...string) Builder {
	opts := db.opts
	opts.KeepConnection = false
	return core.Select(from, fields...).On(runtime.NewSession(runtime.NewDBPool(db.Conn), opts))
}

// Ping checks the pool.
func (db *DB) Ping(ctx context.Context) error {
	return db.Conn.PingContext(ctx)
}

// Close closes the pool.
func (db *DB) Close() error {
	return db.Conn.Close()
}
