package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Absent marks a value that was never supplied. Conditions and row fields
// holding it are dropped instead of rendered.
type Absent struct{}

// Skip is the Absent value.
var Skip = Absent{}

// Opt returns *p, or Skip when p is nil.
func Opt[T any](p *T) any {
	if p == nil {
		return Skip
	}
	return *p
}

// Raw is rendered verbatim, never quoted or bound to a placeholder.
type Raw string

// Number is the set of types accepted by Atomic.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// AtomicExpr is an update value computed by the database from the column's
// current value, e.g. "count" + 5.
type AtomicExpr struct {
	Op     string
	Amount string
}

// String returns "<op> <amount>".
func (a AtomicExpr) String() string { return a.Op + " " + a.Amount }

// Atomic builds an AtomicExpr applying delta with op (default "+").
// A negative delta without an explicit operator is kept as a signed literal;
// with an explicit operator it is parenthesized.
func Atomic[N Number](delta N, op ...string) AtomicExpr {
	amount := fmt.Sprint(delta)
	if len(op) == 0 || op[0] == "" {
		return AtomicExpr{Op: "+", Amount: amount}
	}
	if delta < 0 {
		amount = "(" + amount + ")"
	}
	return AtomicExpr{Op: op[0], Amount: amount}
}

var atomicOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}

// QuoteIdent quotes name as a PostgreSQL identifier.
func QuoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

// QuoteText renders s as a single-quoted SQL string literal.
func QuoteText(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// LocalISO formats t in the local timezone without an offset suffix.
func LocalISO(t time.Time) string {
	return t.In(time.Local).Format("2006-01-02T15:04:05.000")
}

// Text returns the unquoted textual form of a non-null scalar value.
// Composite values (maps, slices, structs) are rendered as JSON.
func Text(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case time.Time:
		return LocalISO(t), nil
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil {
			return "", fmt.Errorf("value %T: %w", v, err)
		}
		if dv == nil {
			return "", nil
		}
		return Text(dv)
	case fmt.Stringer:
		return t.String(), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return "", nil
		}
		return Text(rv.Elem().Interface())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes()), nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal %T: %w", v, err)
		}
		return string(b), nil
	case reflect.Map, reflect.Array, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal %T: %w", v, err)
		}
		return string(b), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// isNull reports whether v renders as SQL null.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	if dv, ok := v.(driver.Valuer); ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return true
		}
		inner, err := dv.Value()
		return err == nil && inner == nil
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// Literal renders v as an inline SQL literal: null, a Raw expression, or a
// quoted string with embedded quotes doubled.
func Literal(v any) (string, error) {
	switch t := v.(type) {
	case Raw:
		return string(t), nil
	case AtomicExpr:
		return "", NewConfigError("literal", "atomic expression %q outside an update", t.String())
	case Absent:
		return "", NewConfigError("literal", "absent value cannot be rendered")
	}
	if isNull(v) {
		return "null", nil
	}
	s, err := Text(v)
	if err != nil {
		return "", err
	}
	return QuoteText(s), nil
}

// SerializeOptions controls how row data is written into INSERT and UPDATE
// statements.
type SerializeOptions struct {
	// CaseConversion maps "fieldName" to "field_name"; otherwise field names
	// are only lower-cased.
	CaseConversion bool
	// AllowAtomic lets AtomicExpr values render as "col" <op> <amount>.
	AllowAtomic bool
}

// Column returns the quoted column name for field.
func (o SerializeOptions) Column(field string) string {
	if o.CaseConversion {
		return QuoteIdent(ToSnake(field))
	}
	return QuoteIdent(strings.ToLower(field))
}

// Value renders v for column col (already quoted).
func (o SerializeOptions) Value(col string, v any) (string, error) {
	if a, ok := v.(AtomicExpr); ok {
		if !o.AllowAtomic {
			return "", NewConfigError("serialize", "atomic expression on %s requires AllowAtomic", col)
		}
		if !atomicOps[a.Op] {
			return "", NewConfigError("serialize", "unsupported atomic operator %q", a.Op)
		}
		return col + " " + a.String(), nil
	}
	return Literal(v)
}

// Fields returns the sorted union of keys present in rows, ignoring Absent
// values.
func Fields(rows []Row) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rows {
		for k, v := range r {
			if _, absent := v.(Absent); absent || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Assignment is one serialized column/value pair.
type Assignment struct {
	Column string
	Value  string
}

// Serialize renders row in Fields order. Fields missing from row (or Absent)
// render as null.
func (o SerializeOptions) Serialize(row Row, fields []string) ([]Assignment, error) {
	out := make([]Assignment, 0, len(fields))
	for _, f := range fields {
		col := o.Column(f)
		v, ok := row[f]
		if _, absent := v.(Absent); !ok || absent {
			out = append(out, Assignment{Column: col, Value: "null"})
			continue
		}
		s, err := o.Value(col, v)
		if err != nil {
			return nil, err
		}
		out = append(out, Assignment{Column: col, Value: s})
	}
	return out, nil
}
