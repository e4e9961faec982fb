package core

import (
	"encoding/json"
	"regexp"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, opts CompileOptions, groups ...Group) Clause {
	t.Helper()
	c, err := Compile(groups, opts)
	require.NoError(t, err)
	return c
}

func TestCompile_RangeOrEqual(t *testing.T) {
	c := compile(t, CompileOptions{}, Group{{Field: "age", Op: ">", Value: 18, OrEqual: true}})
	require.Equal(t, `("age" >= $1)`, c.SQL)
	require.Equal(t, []any{18}, c.Params)
	require.Equal(t, 2, c.Next)
}

func TestCompile_NullConsumesNoParam(t *testing.T) {
	c := compile(t, CompileOptions{}, Group{Eq("name", nil)})
	require.Equal(t, `("name" IS NULL)`, c.SQL)
	require.Empty(t, c.Params)
	require.Equal(t, 1, c.Next)
}

func TestCompile_GroupsAndLogic(t *testing.T) {
	c := compile(t, CompileOptions{InterOp: "or"},
		Group{
			Eq("firstName", "ann"),
			{Field: "age", Op: "<", Value: 30, Logic: "or"},
		},
		Group{Eq("status", []string{"active", "pending"})},
		Group{Eq("score", 7)},
	)
	require.Equal(t,
		`("first_name" = $1 OR "age" < $2) OR ("status" IN ('active', 'pending')) OR ("score" = $3)`,
		c.SQL,
	)
	if diff := cmp.Diff([]any{"ann", 30, 7}, c.Params); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_AbsentValues(t *testing.T) {
	var missing *string
	c := compile(t, CompileOptions{},
		Group{Eq("a", Skip), Eq("b", Opt(missing))},
		Group{Eq("c", Skip), Eq("d", 1)},
	)
	require.Equal(t, `("d" = $1)`, c.SQL)
	require.Equal(t, []any{1}, c.Params)

	c = compile(t, CompileOptions{}, Group{Eq("a", Skip)})
	require.Empty(t, c.SQL)
	require.Empty(t, c.Params)

	name := "bo"
	c = compile(t, CompileOptions{}, Group{Eq("name", Opt(&name))})
	require.Equal(t, `("name" = $1)`, c.SQL)
	require.Equal(t, []any{"bo"}, c.Params)
}

func TestCompile_StartOffset(t *testing.T) {
	c := compile(t, CompileOptions{Start: 3}, Group{Eq("id", 9), Eq("org", 2)})
	require.Equal(t, `("id" = $3 AND "org" = $4)`, c.SQL)
	require.Equal(t, 5, c.Next)
}

func TestCompile_Like(t *testing.T) {
	c := compile(t, CompileOptions{}, Group{{Field: "name", Op: "ilike", Value: "jo"}})
	require.Equal(t, `("name" ILIKE $1)`, c.SQL)
	require.Equal(t, []any{"%jo%"}, c.Params)
}

func TestCompile_Inline(t *testing.T) {
	c := compile(t, CompileOptions{Inline: true},
		Group{Eq("name", "O'Brien"), {Field: "bio", Op: "LIKE", Value: "x"}, Eq("tags", []int{1, 2})},
	)
	require.Equal(t, `("name" = 'O''Brien' AND "bio" LIKE '%x%' AND "tags" IN ('1', '2'))`, c.SQL)
	require.Empty(t, c.Params)
	require.Equal(t, 1, c.Next)

	c = compile(t, CompileOptions{Inline: true, NoQuote: true}, Group{Eq("a.id", "b.a_id")})
	require.Equal(t, `(a.id = b.a_id)`, c.SQL)
}

func TestCompile_NamedByteSliceIsScalar(t *testing.T) {
	doc := json.RawMessage(`{"a":1}`)
	c := compile(t, CompileOptions{}, Group{Eq("doc", doc)})
	require.Equal(t, `("doc" = $1)`, c.SQL)
	require.Equal(t, []any{doc}, c.Params)

	c = compile(t, CompileOptions{Inline: true}, Group{Eq("doc", doc)})
	require.Equal(t, `("doc" = '{"a":1}')`, c.SQL)
}

func TestCompile_NotAndOrNull(t *testing.T) {
	c := compile(t, CompileOptions{},
		Group{{Field: "deletedAt", Op: ">", Value: 5, Not: true, OrNull: true}},
	)
	require.Equal(t, `(NOT ("deleted_at" > $1 OR "deleted_at" IS NULL))`, c.SQL)
	require.Equal(t, []any{5}, c.Params)
}

func TestCompile_VerbatimFields(t *testing.T) {
	c := compile(t, CompileOptions{},
		Group{Eq("u.id", 1), Eq("data->>'kind'", "x"), Eq("lower(name)", "y")},
	)
	require.Equal(t, `(u.id = $1 AND data->>'kind' = $2 AND lower(name) = $3)`, c.SQL)
}

func TestCompile_RawAndNotDeleted(t *testing.T) {
	c := compile(t, CompileOptions{}, Group{Eq("updatedAt", Raw("now()"))}, NotDeleted())
	require.Equal(t, `("updated_at" = now()) AND (NOT "deleted" IS TRUE)`, c.SQL)
	require.Empty(t, c.Params)
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile([]Group{{{Field: "a", Op: "; DROP", Value: 1}}}, CompileOptions{})
	require.True(t, IsConfigError(err))

	_, err = Compile([]Group{{Eq("a", 1)}}, CompileOptions{InterOp: "XOR"})
	require.True(t, IsConfigError(err))

	_, err = Compile([]Group{{Eq("", 1)}}, CompileOptions{})
	require.True(t, IsConfigError(err))

	_, err = Compile([]Group{{Eq("n", Atomic(1))}}, CompileOptions{})
	require.True(t, IsConfigError(err))
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// TestCompile_PlaceholdersMatchParams checks that $i binds to Params[i-1].
func TestCompile_PlaceholdersMatchParams(t *testing.T) {
	groups := []Group{
		{Eq("a", 1), Eq("b", nil), Eq("c", Skip), {Field: "d", Op: "like", Value: "q"}},
		{Eq("e", []string{"x"}), Eq("f", "six")},
		{},
		{{Field: "g", Op: "<", Value: 7, OrNull: true}},
	}
	c := compile(t, CompileOptions{}, groups...)
	matches := placeholderRe.FindAllStringSubmatch(c.SQL, -1)
	require.Len(t, matches, len(c.Params))
	for i, m := range matches {
		require.Equal(t, strconv.Itoa(i+1), m[1])
	}
	require.Equal(t, []any{1, "%q%", "six", 7}, c.Params)
}
