package typeconv

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CanonicalType normalizes a driver-reported column type name.
func CanonicalType(typ string) string {
	t := strings.ToUpper(strings.TrimPrefix(typ, "_"))
	switch t {
	case "INT2", "INT4", "INT8", "INTEGER", "SMALLINT", "BIGINT":
		return "INTEGER"
	case "BOOL", "BOOLEAN":
		return "BOOLEAN"
	case "TEXT", "VARCHAR", "BPCHAR", "CHAR", "NAME", "CITEXT":
		return "TEXT"
	case "REAL", "FLOAT4", "FLOAT8", "DOUBLE PRECISION":
		return "REAL"
	case "NUMERIC", "DECIMAL", "MONEY":
		return "NUMERIC"
	case "TIMESTAMP", "TIMESTAMPTZ", "DATE", "TIME", "TIMETZ":
		return "TIMESTAMP"
	case "JSON", "JSONB":
		return "JSON"
	case "BYTEA":
		return "BYTEA"
	case "UUID":
		return "UUID"
	default:
		return t
	}
}

// Decode converts a scanned value for a column of type typ. BYTEA stays
// []byte, JSON is decoded, and other []byte values become strings. Array
// types (prefixed "_") keep their text form.
func Decode(typ string, v any) (any, error) {
	array := strings.HasPrefix(typ, "_")
	kind := CanonicalType(typ)
	switch x := v.(type) {
	case []byte:
		if kind == "BYTEA" && !array {
			return x, nil
		}
		if kind == "JSON" && !array {
			return decodeJSON(typ, x)
		}
		return string(x), nil
	case string:
		if kind == "JSON" && !array {
			return decodeJSON(typ, []byte(x))
		}
	}
	return v, nil
}

func decodeJSON(typ string, raw []byte) (any, error) {
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", strings.ToLower(typ), err)
	}
	return out, nil
}
