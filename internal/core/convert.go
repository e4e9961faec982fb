package core

import (
	"fmt"
	"strconv"
)

// AsInt64 reads an aggregate column. Drivers return counts as int64, but
// text and numeric types arrive as strings or bytes.
func AsInt64(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case []byte:
		return strconv.ParseInt(string(t), 10, 64)
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("torq: cannot read %T as an integer", v)
	}
}

// AsFloat64 is AsInt64 for SUM and other non-integral aggregates.
func AsFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case []byte:
		return strconv.ParseFloat(string(t), 64)
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, fmt.Errorf("torq: cannot read %T as a number", v)
	}
}
