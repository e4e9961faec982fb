package runtime

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TechXTT/torq/internal/core"
	"github.com/TechXTT/torq/pkg/internal/typeconv"
)

// Conn is a borrowed connection able to run one statement at a time.
type Conn interface {
	Query(ctx context.Context, query string, args []any) ([]core.Row, error)
}

// Pool hands out connections. Implementations may block in Acquire until a
// connection is free or their own timeout expires.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Release(Conn) error
}

// DBPool is a Pool backed by database/sql.
type DBPool struct {
	DB *sql.DB
}

// NewDBPool wraps db.
func NewDBPool(db *sql.DB) *DBPool {
	return &DBPool{DB: db}
}

// Acquire reserves a single connection from the pool.
func (p *DBPool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &sqlConn{conn: c}, nil
}

// Release returns c to the pool.
func (p *DBPool) Release(c Conn) error {
	sc, ok := c.(*sqlConn)
	if !ok {
		return fmt.Errorf("release: connection %T does not belong to this pool", c)
	}
	return sc.conn.Close()
}

type sqlConn struct {
	conn *sql.Conn
}

func (c *sqlConn) Query(ctx context.Context, query string, args []any) ([]core.Row, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// scanRows reads every row into a map keyed by column name, decoding values
// by their column type.
func scanRows(rows *sql.Rows) ([]core.Row, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	columns := make([]string, len(types))
	for i, ct := range types {
		columns[i] = ct.Name()
	}
	var out []core.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(core.Row, len(columns))
		for i, col := range columns {
			v, err := typeconv.Decode(types[i].DatabaseTypeName(), values[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
