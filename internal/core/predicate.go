// File: internal/core/predicate.go
package core

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Logical operators.
const (
	And = "AND"
	Or  = "OR"
)

// Comparison operators understood by the compiler.
const (
	OpEQ    = "="
	OpNEQ   = "<>"
	OpGT    = ">"
	OpLT    = "<"
	OpGTE   = ">="
	OpLTE   = "<="
	OpLike  = "LIKE"
	OpILike = "ILIKE"
)

var comparisonOps = map[string]bool{
	OpEQ: true, OpNEQ: true, "!=": true, OpGT: true, OpLT: true, OpGTE: true, OpLTE: true,
	OpLike: true, OpILike: true, "NOT LIKE": true, "NOT ILIKE": true,
	"IS": true, "IS NOT": true,
}

// Cond is a single field comparison.
type Cond struct {
	Field string
	// Value is compared against Field. Absent drops the condition, nil
	// compiles to IS NULL and slices compile to IN (...).
	Value any
	// Op is the comparison operator, "=" when empty.
	Op string
	// Logic joins this condition to the previous one in its group, "AND"
	// when empty.
	Logic string
	Not   bool
	// OrNull also matches rows where Field IS NULL.
	OrNull bool
	// OrEqual turns ">" and "<" into ">=" and "<=".
	OrEqual bool
}

// Group is one parenthesized set of conditions.
type Group []Cond

// Eq is the bare "field = value" condition.
func Eq(field string, v any) Cond {
	return Cond{Field: field, Value: v}
}

// NotDeleted excludes soft-deleted rows.
func NotDeleted() Group {
	return Group{{Field: "deleted", Value: Raw("TRUE"), Op: "IS", Not: true}}
}

// CompileOptions controls a single compilation.
type CompileOptions struct {
	// InterOp joins groups, "AND" when empty.
	InterOp string
	// Inline renders values as literals instead of placeholders.
	Inline bool
	// NoQuote leaves inline scalars unquoted (column-to-column predicates).
	NoQuote bool
	// Start is the first placeholder index, 1 when zero.
	Start int
}

// Clause is a compiled boolean expression. Params[i] binds to placeholder
// $(Start+i) and Next is the first unused index.
type Clause struct {
	SQL    string
	Params []any
	Next   int
}

// FieldRef renders a field reference. Qualified names, JSON paths, raw
// expressions and "*" are kept verbatim; plain names are converted to
// snake_case and quoted.
func FieldRef(name string) string {
	if name == "*" || strings.ContainsAny(name, " .(") || strings.Contains(name, "->") {
		return name
	}
	return QuoteIdent(ToSnake(name))
}

// Compile turns groups into a boolean expression and its parameters.
func Compile(groups []Group, opts CompileOptions) (Clause, error) {
	interOp, err := logicOp(opts.InterOp)
	if err != nil {
		return Clause{}, err
	}
	c := &compiler{opts: opts, next: opts.Start}
	if c.next <= 0 {
		c.next = 1
	}
	var out strings.Builder
	for _, g := range groups {
		text, err := c.group(g)
		if err != nil {
			return Clause{}, err
		}
		if text == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString(" " + interOp + " ")
		}
		out.WriteString("(" + text + ")")
	}
	return Clause{SQL: out.String(), Params: c.params, Next: c.next}, nil
}

type compiler struct {
	opts   CompileOptions
	next   int
	params []any
}

func (c *compiler) group(g Group) (string, error) {
	var b strings.Builder
	n := 0
	for _, cond := range g {
		if _, absent := cond.Value.(Absent); absent {
			continue
		}
		if cond.Field == "" {
			return "", NewConfigError("where", "condition without a field")
		}
		if n > 0 {
			logic, err := logicOp(cond.Logic)
			if err != nil {
				return "", err
			}
			b.WriteString(" " + logic + " ")
		}
		if cond.Not {
			b.WriteString("NOT ")
		}
		field := FieldRef(cond.Field)
		if cond.OrNull {
			b.WriteString("(")
		}
		b.WriteString(field)
		if err := c.comparison(&b, cond); err != nil {
			return "", err
		}
		if cond.OrNull {
			b.WriteString(" OR " + field + " IS NULL)")
		}
		n++
	}
	return b.String(), nil
}

func (c *compiler) comparison(b *strings.Builder, cond Cond) error {
	switch v := cond.Value.(type) {
	case Raw:
		op, err := comparisonOp(cond)
		if err != nil {
			return err
		}
		b.WriteString(" " + op + " " + string(v))
		return nil
	case AtomicExpr:
		return NewConfigError("where", "atomic expression on %s", cond.Field)
	}
	if isNull(cond.Value) {
		b.WriteString(" IS NULL")
		return nil
	}
	if items, ok := listValues(cond.Value); ok {
		lits := make([]string, 0, len(items))
		for _, item := range items {
			lit, err := Literal(item)
			if err != nil {
				return err
			}
			lits = append(lits, lit)
		}
		if len(lits) == 0 {
			lits = append(lits, "NULL")
		}
		b.WriteString(" IN (" + strings.Join(lits, ", ") + ")")
		return nil
	}
	op, err := comparisonOp(cond)
	if err != nil {
		return err
	}
	like := op == OpLike || op == OpILike || op == "NOT LIKE" || op == "NOT ILIKE"
	b.WriteString(" " + op + " ")
	if c.opts.Inline {
		s, err := c.inline(cond.Value, like)
		if err != nil {
			return err
		}
		b.WriteString(s)
		return nil
	}
	param := cond.Value
	if like {
		text, err := Text(cond.Value)
		if err != nil {
			return err
		}
		param = "%" + text + "%"
	}
	b.WriteString("$" + strconv.Itoa(c.next))
	c.params = append(c.params, param)
	c.next++
	return nil
}

func (c *compiler) inline(v any, like bool) (string, error) {
	if like {
		text, err := Text(v)
		if err != nil {
			return "", err
		}
		return QuoteText("%" + text + "%"), nil
	}
	if c.opts.NoQuote {
		return Text(v)
	}
	return Literal(v)
}

func comparisonOp(cond Cond) (string, error) {
	op := strings.ToUpper(strings.TrimSpace(cond.Op))
	if op == "" {
		op = OpEQ
	}
	if !comparisonOps[op] {
		return "", NewConfigError("where", "unsupported operator %q on %s", cond.Op, cond.Field)
	}
	if cond.OrEqual && (op == OpGT || op == OpLT) {
		op += OpEQ
	}
	return op, nil
}

func logicOp(op string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(op)) {
	case "", And:
		return And, nil
	case Or:
		return Or, nil
	default:
		return "", NewConfigError("where", "unsupported logical operator %q", op)
	}
}

// listValues reports whether v is a list for IN (...). Byte slices (named
// ones included) and types with their own textual form are scalars.
func listValues(v any) ([]any, bool) {
	switch v.(type) {
	case []byte, driver.Valuer, fmt.Stringer:
		return nil, false
	case []any:
		return v.([]any), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
