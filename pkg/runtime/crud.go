package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/TechXTT/torq/internal/core"
)

// SelectQuery is re-exported so callers need not import internal/core.
type SelectQuery = core.SelectQuery

// Select runs q.Query with ordering and paging appended. A trailing ";" is
// removed first.
func (s *Session) Select(ctx context.Context, q SelectQuery) ([]core.Row, error) {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(strings.TrimSpace(q.Query), ";"))
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
		if q.OrderDesc {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}
	rows, err := s.dispatch(ctx, b.String(), q.Params, false)
	if err != nil {
		return nil, err
	}
	if s.opts.CaseConversion {
		return core.MapRows(rows, core.ToCamel), nil
	}
	return rows, nil
}

// GetOne runs q with LIMIT 1 and returns the first row, or nil.
func (s *Session) GetOne(ctx context.Context, q SelectQuery) (core.Row, error) {
	q.Limit = 1
	rows, err := s.Select(ctx, q)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// CountQuery describes an aggregate over Table.
type CountQuery struct {
	Table string
	// Where is raw SQL without the WHERE keyword; placeholders bind Params.
	Where  string
	Params []any
	// PK is the counted column, "id" when empty.
	PK string
}

// Count returns the number of rows matching q.
func (s *Session) Count(ctx context.Context, q CountQuery) (int64, error) {
	pk := q.PK
	if pk == "" {
		pk = "id"
	}
	v, err := s.aggregate(ctx, "COUNT("+pk+") AS count", q.Table, q.Where, q.Params, "count")
	if err != nil {
		return 0, err
	}
	return core.AsInt64(v)
}

// IsEmpty reports whether no rows match q.
func (s *Session) IsEmpty(ctx context.Context, q CountQuery) (bool, error) {
	n, err := s.Count(ctx, q)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// CountByID counts the rows of table whose id equals id.
func (s *Session) CountByID(ctx context.Context, table string, id any) (int64, error) {
	return s.Count(ctx, CountQuery{Table: table, Where: "id = $1", Params: []any{id}})
}

// SumQuery describes a SUM over Field of Table.
type SumQuery struct {
	Table  string
	Field  string
	Where  string
	Params []any
}

// Sum returns the total of q.Field, 0 when no row matches.
func (s *Session) Sum(ctx context.Context, q SumQuery) (float64, error) {
	if q.Field == "" {
		return 0, core.NewConfigError("sum", "field is required")
	}
	v, err := s.aggregate(ctx, "SUM("+q.Field+") AS sum", q.Table, q.Where, q.Params, "sum")
	if err != nil {
		return 0, err
	}
	return core.AsFloat64(v)
}

func (s *Session) aggregate(ctx context.Context, expr, table, where string, params []any, col string) (any, error) {
	if table == "" {
		return nil, core.NewConfigError("aggregate", "table is required")
	}
	query := "SELECT " + expr + " FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	rows, err := s.Select(ctx, SelectQuery{Query: query, Params: params})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0][col], nil
}

// InsertStmt inserts one or more rows into Table.
type InsertStmt struct {
	Table string
	Rows  []core.Row
	// ReturnID appends RETURNING id.
	ReturnID bool
}

// Insert writes the rows of stmt. With ReturnID set and exactly one row
// returned, the generated id is returned; otherwise the result is nil.
func (s *Session) Insert(ctx context.Context, stmt InsertStmt) (any, error) {
	if stmt.Table == "" {
		return nil, core.NewConfigError("insert", "table is required")
	}
	if len(stmt.Rows) == 0 {
		return nil, nil
	}
	if err := s.hooks.BeforeInsert(ctx, &stmt); err != nil {
		return nil, err
	}
	ser := core.SerializeOptions{CaseConversion: s.opts.CaseConversion}
	fields := core.Fields(stmt.Rows)
	if len(fields) == 0 {
		return nil, core.NewConfigError("insert", "no fields to insert into %s", stmt.Table)
	}

	tuples := make([]string, 0, len(stmt.Rows))
	var cols []string
	for _, row := range stmt.Rows {
		assignments, err := ser.Serialize(row, fields)
		if err != nil {
			return nil, err
		}
		values := make([]string, len(assignments))
		if cols == nil {
			cols = make([]string, len(assignments))
			for i, a := range assignments {
				cols[i] = a.Column
			}
		}
		for i, a := range assignments {
			values[i] = a.Value
		}
		tuples = append(tuples, "("+strings.Join(values, ",")+")")
	}

	query := "INSERT INTO " + stmt.Table + " (" + strings.Join(cols, ",") + ") VALUES " + strings.Join(tuples, ", ")
	if stmt.ReturnID {
		query += " RETURNING id"
	}
	rows, err := s.dispatch(ctx, query, nil, false)
	if err != nil {
		return nil, err
	}
	var id any
	if stmt.ReturnID && len(rows) == 1 {
		id = rows[0]["id"]
	}
	if err := s.hooks.AfterInsert(ctx, stmt, id); err != nil {
		return id, err
	}
	return id, nil
}

// UpdateStmt updates Table. Exactly one of Where or WhereByID must be set.
type UpdateStmt struct {
	Table string
	Data  core.Row
	// Where is raw SQL without the WHERE keyword; placeholders bind Params.
	Where string
	// WhereByID matches the id column; its placeholder follows Params.
	WhereByID any
	Params    []any
	// AllowAtomic lets core.AtomicExpr values update relative to the stored
	// value.
	AllowAtomic bool
}

// Update applies stmt.
func (s *Session) Update(ctx context.Context, stmt UpdateStmt) error {
	if _, _, err := whereClause("update", stmt.Where, stmt.WhereByID, stmt.Params); err != nil {
		return err
	}
	if stmt.Table == "" {
		return core.NewConfigError("update", "table is required")
	}
	if err := s.hooks.BeforeUpdate(ctx, &stmt); err != nil {
		return err
	}
	where, params, err := whereClause("update", stmt.Where, stmt.WhereByID, stmt.Params)
	if err != nil {
		return err
	}
	ser := core.SerializeOptions{CaseConversion: s.opts.CaseConversion, AllowAtomic: stmt.AllowAtomic}
	assignments, err := ser.Serialize(stmt.Data, core.Fields([]core.Row{stmt.Data}))
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return core.NewConfigError("update", "no fields to update in %s", stmt.Table)
	}
	set := make([]string, len(assignments))
	for i, a := range assignments {
		set[i] = a.Column + " = " + a.Value
	}
	query := "UPDATE " + stmt.Table + " SET " + strings.Join(set, ", ") + " WHERE " + where
	if _, err := s.dispatch(ctx, query, params, false); err != nil {
		return err
	}
	return s.hooks.AfterUpdate(ctx, stmt)
}

// DeleteStmt deletes from Table. Exactly one of Where or WhereByID must be
// set.
type DeleteStmt struct {
	Table     string
	Where     string
	WhereByID any
	Params    []any
}

// Delete applies stmt.
func (s *Session) Delete(ctx context.Context, stmt DeleteStmt) error {
	if _, _, err := whereClause("delete", stmt.Where, stmt.WhereByID, stmt.Params); err != nil {
		return err
	}
	if stmt.Table == "" {
		return core.NewConfigError("delete", "table is required")
	}
	if err := s.hooks.BeforeDelete(ctx, &stmt); err != nil {
		return err
	}
	where, params, err := whereClause("delete", stmt.Where, stmt.WhereByID, stmt.Params)
	if err != nil {
		return err
	}
	if _, err := s.dispatch(ctx, "DELETE FROM "+stmt.Table+" WHERE "+where, params, false); err != nil {
		return err
	}
	return s.hooks.AfterDelete(ctx, stmt)
}

// whereClause resolves the Where/WhereByID alternative. WhereByID compiles
// to an id equality whose placeholder continues after params.
func whereClause(op, where string, byID any, params []any) (string, []any, error) {
	hasWhere, hasID := where != "", byID != nil
	switch {
	case hasWhere && hasID:
		return "", nil, core.NewConfigError(op, "set either Where or WhereByID, not both")
	case hasWhere:
		return where, params, nil
	case !hasID:
		return "", nil, core.NewConfigError(op, "Where or WhereByID is required")
	}
	c, err := core.Compile([]core.Group{{core.Eq("id", byID)}}, core.CompileOptions{Start: len(params) + 1})
	if err != nil {
		return "", nil, err
	}
	out := make([]any, 0, len(params)+len(c.Params))
	out = append(out, params...)
	return c.SQL, append(out, c.Params...), nil
}
