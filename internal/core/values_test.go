package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAtomic(t *testing.T) {
	require.Equal(t, AtomicExpr{Op: "+", Amount: "5"}, Atomic(5))
	require.Equal(t, "+ -5", Atomic(-5).String())
	require.Equal(t, "* (-5)", Atomic(-5, "*").String())
	require.Equal(t, "- 2.5", Atomic(2.5, "-").String())
}

func TestSerializeOptions_Atomic(t *testing.T) {
	opts := SerializeOptions{AllowAtomic: true}
	col := opts.Column("count")
	got, err := opts.Value(col, Atomic(5))
	require.NoError(t, err)
	require.Equal(t, `"count" + 5`, got)

	_, err = SerializeOptions{}.Value(col, Atomic(5))
	require.True(t, IsConfigError(err))

	_, err = opts.Value(col, AtomicExpr{Op: "||", Amount: "1"})
	require.True(t, IsConfigError(err))
}

func TestLiteral(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	var nilPtr *int
	n := 4
	at := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.Local)

	cases := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{nilPtr, "null"},
		{&n, "'4'"},
		{"it's", "'it''s'"},
		{1, "'1'"},
		{true, "'true'"},
		{1.5, "'1.5'"},
		{map[string]int{"a": 1}, `'{"a":1}'`},
		{[]string{"x"}, `'["x"]'`},
		{id, "'6ba7b810-9dad-11d1-80b4-00c04fd430c8'"},
		{at, "'2024-01-02T03:04:05.006'"},
		{Raw("DEFAULT"), "DEFAULT"},
	}
	for _, tc := range cases {
		got, err := Literal(tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "%#v", tc.in)
	}

	_, err := Literal(Skip)
	require.True(t, IsConfigError(err))
}

func TestSerializeOptions_Column(t *testing.T) {
	require.Equal(t, `"user_id"`, SerializeOptions{CaseConversion: true}.Column("userId"))
	require.Equal(t, `"userid"`, SerializeOptions{}.Column("userId"))
}

func TestFieldsAndSerialize(t *testing.T) {
	rows := []Row{
		{"b": 1, "a": "x", "skip": Skip},
		{"c": nil, "a": "y"},
	}
	fields := Fields(rows)
	require.Equal(t, []string{"a", "b", "c"}, fields)

	got, err := SerializeOptions{}.Serialize(rows[1], fields)
	require.NoError(t, err)
	require.Equal(t, []Assignment{
		{Column: `"a"`, Value: "'y'"},
		{Column: `"b"`, Value: "null"},
		{Column: `"c"`, Value: "null"},
	}, got)
}

func TestAsInt64(t *testing.T) {
	for _, v := range []any{int64(3), 3, int32(3), float64(3), "3", []byte("3")} {
		n, err := AsInt64(v)
		require.NoError(t, err)
		require.Equal(t, int64(3), n)
	}
	_, err := AsInt64(struct{}{})
	require.Error(t, err)

	f, err := AsFloat64([]byte("2.5"))
	require.NoError(t, err)
	require.Equal(t, 2.5, f)
}
