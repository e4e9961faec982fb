// File: internal/core/casing.go
package core

import (
	"strings"
	"unicode"
)

// Row is a single result row keyed by column name.
type Row = map[string]any

// ToSnake converts "wordWord" into "word_word". Only ASCII capitals start
// a new word.
func ToSnake(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for _, r := range name {
		if 'A' <= r && r <= 'Z' {
			b.WriteByte('_')
			b.WriteRune(r + 'a' - 'A')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToCamel converts "word_word" (or "word-word") into "wordWord".
func ToCamel(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	runes := []rune(name)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '_' || r == '-') && i+1 < len(runes) && isASCIILetter(runes[i+1]) {
			b.WriteRune(unicode.ToUpper(runes[i+1]))
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isASCIILetter(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

// MapKeys renames every key of every mapping reachable from v using conv.
// Only rows, slices of rows and []any are descended into; any other value
// (time.Time included) is returned as is.
func MapKeys(v any, conv func(string) string) any {
	switch t := v.(type) {
	case Row:
		return mapRow(t, conv)
	case []Row:
		return MapRows(t, conv)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = MapKeys(item, conv)
		}
		return out
	default:
		return v
	}
}

// MapRows is MapKeys specialised to a result set.
func MapRows(rows []Row, conv func(string) string) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = mapRow(r, conv)
	}
	return out
}

func mapRow(r Row, conv func(string) string) Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[conv(k)] = MapKeys(v, conv)
	}
	return out
}
