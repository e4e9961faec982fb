// File: internal/core/builder.go
package core

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// JoinKind is the join keyword rendered before the joined table.
type JoinKind string

const (
	InnerJoin JoinKind = "INNER JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
	RightJoin JoinKind = "RIGHT JOIN"
	OuterJoin JoinKind = "FULL OUTER JOIN"
)

// Direction is an ORDER BY direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// SelectQuery is a SELECT statement handed to a Querier, with optional
// ordering and paging appended by the session.
type SelectQuery struct {
	Query     string
	Params    []any
	Limit     int
	Offset    int
	OrderBy   string
	OrderDesc bool
}

// Querier runs SELECT statements; *runtime.Session implements it.
type Querier interface {
	Select(ctx context.Context, q SelectQuery) ([]Row, error)
}

// WhereOptions tunes Builder.WhereWith.
type WhereOptions struct {
	// InterOp joins groups, "AND" when empty.
	InterOp string
	// Inline renders literals instead of placeholders.
	Inline bool
}

// Builder is an immutable fluent SELECT builder. Every method returns a new
// Builder, so a base query can be shared and refined safely.
type Builder struct {
	fields   string
	sources  []string
	joins    []string
	where    string
	params   []any
	groupBy  string
	orderBy  []string
	limit    int
	offset   int
	distinct bool
	querier  Querier
	err      error
}

// Select starts a query over from (may be empty) selecting fields, or "*"
// when none are given.
func Select(from string, fields ...string) Builder {
	b := Builder{}.Fields(fields...)
	if from != "" {
		b = b.From(from)
	}
	return b
}

func fieldList(fields []string) string {
	if len(fields) == 0 {
		return "*"
	}
	refs := make([]string, len(fields))
	for i, f := range fields {
		refs[i] = FieldRef(f)
	}
	return strings.Join(refs, ", ")
}

func (b Builder) fail(err error) Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Err returns the first error recorded while building.
func (b Builder) Err() error { return b.err }

// Fields replaces the selected columns.
func (b Builder) Fields(fields ...string) Builder {
	b.fields = fieldList(fields)
	return b
}

// From adds a source table; repeated calls produce a comma-joined list.
func (b Builder) From(table string) Builder {
	b.sources = append(slices.Clip(b.sources), table)
	return b
}

// FromAs adds an aliased source table.
func (b Builder) FromAs(table, alias string) Builder {
	return b.From(table + " " + alias)
}

// Join appends a join on table. The predicate is compiled inline, so values
// are rendered as literals; use Raw to compare columns.
func (b Builder) Join(kind JoinKind, table string, on Group) Builder {
	return b.JoinAs(kind, table, "", on)
}

// JoinAs is Join with a table alias.
func (b Builder) JoinAs(kind JoinKind, table, alias string, on Group) Builder {
	c, err := Compile([]Group{on}, CompileOptions{Inline: true})
	if err != nil {
		return b.fail(fmt.Errorf("join %s: %w", table, err))
	}
	if kind == "" {
		kind = InnerJoin
	}
	clause := string(kind) + " " + table
	if alias != "" {
		clause += " " + alias
	}
	if c.SQL != "" {
		clause += " ON " + c.SQL
	}
	b.joins = append(slices.Clip(b.joins), clause)
	return b
}

// Where compiles groups with placeholders and AND between groups.
func (b Builder) Where(groups ...Group) Builder {
	return b.WhereWith(WhereOptions{}, groups...)
}

// WhereWith compiles groups and replaces the current predicate. An empty
// result leaves the current predicate in place.
func (b Builder) WhereWith(opts WhereOptions, groups ...Group) Builder {
	c, err := Compile(groups, CompileOptions{InterOp: opts.InterOp, Inline: opts.Inline})
	if err != nil {
		return b.fail(err)
	}
	if len(c.SQL) < 3 {
		return b
	}
	b.where = c.SQL
	b.params = slices.Clone(c.Params)
	return b
}

// Limit sets LIMIT and, when given, OFFSET.
func (b Builder) Limit(n int, offset ...int) Builder {
	b.limit = n
	if len(offset) > 0 {
		b.offset = offset[0]
	}
	return b
}

// Offset sets OFFSET and, when given, LIMIT.
func (b Builder) Offset(n int, limit ...int) Builder {
	b.offset = n
	if len(limit) > 0 {
		b.limit = limit[0]
	}
	return b
}

// OrderBy appends an ORDER BY term.
func (b Builder) OrderBy(field string, dir Direction) Builder {
	d := Direction(strings.ToUpper(string(dir)))
	if d == "" {
		d = Asc
	}
	if d != Asc && d != Desc {
		return b.fail(NewConfigError("order by", "unsupported direction %q", dir))
	}
	b.orderBy = append(slices.Clip(b.orderBy), FieldRef(field)+" "+string(d))
	return b
}

// GroupBy sets GROUP BY.
func (b Builder) GroupBy(fields ...string) Builder {
	b.groupBy = fieldList(fields)
	if len(fields) == 0 {
		b.groupBy = ""
	}
	return b
}

// Distinct selects distinct rows.
func (b Builder) Distinct() Builder {
	b.distinct = true
	return b
}

// On binds the Querier used by All, One, Value and Count.
func (b Builder) On(q Querier) Builder {
	b.querier = q
	return b
}

// Params returns the parameters bound to the predicate.
func (b Builder) Params() []any { return slices.Clone(b.params) }

// Generate assembles the SQL text and its parameters.
func (b Builder) Generate() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	parts := []string{"SELECT"}
	if b.distinct {
		parts = append(parts, "DISTINCT")
	}
	fields := b.fields
	if fields == "" {
		fields = "*"
	}
	parts = append(parts, fields)
	if len(b.sources) > 0 {
		parts = append(parts, "FROM", strings.Join(b.sources, ", "))
	}
	parts = append(parts, b.joins...)
	if b.where != "" {
		parts = append(parts, "WHERE", b.where)
	}
	if b.groupBy != "" {
		parts = append(parts, "GROUP BY", b.groupBy)
	}
	if len(b.orderBy) > 0 {
		parts = append(parts, "ORDER BY", strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		parts = append(parts, "LIMIT "+strconv.Itoa(b.limit))
	}
	if b.offset > 0 {
		parts = append(parts, "OFFSET "+strconv.Itoa(b.offset))
	}
	return strings.Join(parts, " "), b.Params(), nil
}

// Subquery renders the statement in parentheses, followed by alias if set.
func (b Builder) Subquery(alias string) (string, []any, error) {
	query, params, err := b.Generate()
	if err != nil {
		return "", nil, err
	}
	query = "(" + query + ")"
	if alias != "" {
		query += " " + alias
	}
	return query, params, nil
}

// All executes the statement through the bound Querier.
func (b Builder) All(ctx context.Context) ([]Row, error) {
	if b.querier == nil {
		return nil, NewConfigError("select", "no session bound to the statement")
	}
	query, params, err := b.Generate()
	if err != nil {
		return nil, err
	}
	return b.querier.Select(ctx, SelectQuery{Query: query, Params: params})
}

// One fetches the first row, or nil when there is none.
func (b Builder) One(ctx context.Context) (Row, error) {
	rows, err := b.Limit(1).All(ctx)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Value fetches a single column of the first row, or nil.
func (b Builder) Value(ctx context.Context, field string) (any, error) {
	row, err := b.One(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	return row[field], nil
}

// Count returns COUNT(field) over the statement.
func (b Builder) Count(ctx context.Context, field string) (int64, error) {
	c := b
	c.fields = "COUNT(" + FieldRef(field) + ") total"
	row, err := c.One(ctx)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}
	return AsInt64(row["total"])
}
