package sqlgen

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filterspec/internal/filter"
)

// render formats a fragment for golden comparison: SQL on the first line,
// then one "name = value" line per parameter.
func render(f Fragment) []byte {
	var b strings.Builder
	b.WriteString(f.SQL)
	b.WriteString("\n")
	for _, p := range f.Params {
		fmt.Fprintf(&b, "%s = %#v\n", p.Name, p.Value)
	}
	return []byte(b.String())
}

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestCompileGroup_NestedScenario(t *testing.T) {
	outer := filter.Group{
		Groups:      []filter.Group{filter.NewGroup(filter.NewRule("Age", filter.GreaterOrEqual, 18))},
		Conjunction: filter.And,
	}

	frag, err := CompileGroup(outer)
	require.NoError(t, err)

	assert.Equal(t, "([Age] >= @p1)", frag.SQL)
	assert.Equal(t, []filter.Parameter{{Name: "p1", Value: int64(18)}}, frag.Params)
	newGolden(t).Assert(t, "nested_group", render(frag))
}

func TestCompileGroup_InList(t *testing.T) {
	frag, err := CompileGroup(filter.NewGroup(filter.NewRule("Status", filter.In, 1, 2, 3)))
	require.NoError(t, err)

	assert.Equal(t, "([Status] in (@p1,@p2,@p3))", frag.SQL)
	assert.Len(t, frag.Params, 3)
	newGolden(t).Assert(t, "in_list", render(frag))
}

func TestCompileFilter_MixedCondition(t *testing.T) {
	cond := filter.NewCondition(
		filter.NewGroup(
			filter.NewRule("Name", filter.StartsWith, "Al"),
			filter.NewRule("Age", filter.Between, 18, 65).Or(),
		),
		filter.NewGroup(
			filter.NewRule("Manager.Name", filter.IsNull),
			filter.NewRule("Status", filter.NotIn, 4, 5),
		).Or().With(filter.NewGroup(
			filter.NewRule("Email", filter.EndsWith, "@example.com"),
			filter.NewRule("Email", filter.Contains, "%ann").Or(),
		)),
		filter.NewGroup(filter.NewRule("Score", filter.Like, "9_")),
	)

	frag, err := CompileFilter(cond)
	require.NoError(t, err)
	newGolden(t).Assert(t, "mixed_condition", render(frag))
}

func TestCompileGroup_Macros(t *testing.T) {
	macros := Macros{
		"@CurrentUser": Static(int64(42)),
		"@Tenant":      Static("acme"),
	}
	g := filter.NewGroup(
		filter.NewRule("OwnerID", filter.Equal, "@CurrentUser"),
		filter.NewRule("@Tenant", filter.Equal, 7),
	)

	frag, err := CompileGroup(g, WithMacros(macros))
	require.NoError(t, err)

	// Macro values are parameters too, never inlined
	assert.NotContains(t, frag.SQL, "acme")
	assert.NotContains(t, frag.SQL, "@CurrentUser")
	newGolden(t).Assert(t, "macros", render(frag))
}

func TestMacros_LookupFoldsCase(t *testing.T) {
	macros := Macros{"@currentuser": Static(int64(42)), "@Tenant": Static("acme"), "@tenant": Static("other")}

	fn, ok := macros.Lookup("@CurrentUser")
	require.True(t, ok)
	v, err := fn()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	// exact match beats a folded one
	fn, ok = macros.Lookup("@tenant")
	require.True(t, ok)
	v, _ = fn()
	assert.Equal(t, "other", v)

	// of several folded matches the smallest key wins
	fn, ok = macros.Lookup("@TENANT")
	require.True(t, ok)
	v, _ = fn()
	assert.Equal(t, "acme", v)

	_, ok = macros.Lookup("@nobody")
	assert.False(t, ok)
	_, ok = Macros(nil).Lookup("@CurrentUser")
	assert.False(t, ok)
}

func TestCompileGroup_MacroCurrentValue(t *testing.T) {
	current := int64(1)
	macros := Macros{"@me": func() (any, error) { return current, nil }}
	g := filter.NewGroup(filter.NewRule("OwnerID", filter.Equal, "@me"))

	first, err := CompileGroup(g, WithMacros(macros))
	require.NoError(t, err)
	current = 2
	second, err := CompileGroup(g, WithMacros(macros))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Params[0].Value)
	assert.Equal(t, int64(2), second.Params[0].Value)
}

func TestCompileGroup_MacroFailure(t *testing.T) {
	boom := errors.New("no principal")
	macros := Macros{"@me": func() (any, error) { return nil, boom }}
	g := filter.NewGroup(filter.NewRule("OwnerID", filter.Equal, "@me"))

	_, err := CompileGroup(g, WithMacros(macros))
	require.Error(t, err)
	assert.ErrorIs(t, err, filter.ErrMacro)
	assert.ErrorIs(t, err, boom)
}

func TestCompileGroup_UnregisteredTokenIsData(t *testing.T) {
	frag, err := CompileGroup(filter.NewGroup(filter.NewRule("Name", filter.Equal, "@me")))
	require.NoError(t, err)
	assert.Equal(t, "@me", frag.Params[0].Value)
}

func TestCompile_Empty(t *testing.T) {
	frag, err := CompileGroup(filter.Group{})
	require.NoError(t, err)
	assert.Equal(t, AlwaysTrue, frag.SQL)
	assert.Empty(t, frag.Params)

	frag, err = CompileFilter(filter.NewCondition())
	require.NoError(t, err)
	assert.Equal(t, AlwaysTrue, frag.SQL)

	frag, err = CompileGroup(filter.NewGroup(filter.NewRule("Age", filter.Equal, 1)).With(filter.Group{}))
	require.NoError(t, err)
	assert.Equal(t, "([Age] = @p1 AND (1 = 1))", frag.SQL)
}

func TestCompile_Operators(t *testing.T) {
	tests := []struct {
		rule   filter.Rule
		sql    string
		values []any
	}{
		{filter.NewRule("Age", filter.Equal, 1), "([Age] = @p1)", []any{int64(1)}},
		{filter.NewRule("Age", filter.NotEqual, 1), "([Age] <> @p1)", []any{int64(1)}},
		{filter.NewRule("Age", filter.Greater, 1), "([Age] > @p1)", []any{int64(1)}},
		{filter.NewRule("Age", filter.GreaterOrEqual, 1), "([Age] >= @p1)", []any{int64(1)}},
		{filter.NewRule("Age", filter.Less, 1), "([Age] < @p1)", []any{int64(1)}},
		{filter.NewRule("Age", filter.LessOrEqual, 1), "([Age] <= @p1)", []any{int64(1)}},
		{filter.NewRule("Name", filter.Like, "a%"), "([Name] like @p1)", []any{"a%"}},
		{filter.NewRule("Name", filter.Like, "an"), "([Name] like @p1)", []any{"%an%"}},
		{filter.NewRule("Name", filter.StartsWith, "An"), "([Name] like @p1)", []any{"An%"}},
		{filter.NewRule("Name", filter.StartsWith, "An%"), "([Name] like @p1)", []any{"An%"}},
		{filter.NewRule("Name", filter.EndsWith, "na"), "([Name] like @p1)", []any{"%na"}},
		{filter.NewRule("Name", filter.Contains, "nn"), "([Name] like @p1)", []any{"%nn%"}},
		{filter.NewRule("Age", filter.Between, 1, 9), "([Age] between @p1 and @p2)", []any{int64(1), int64(9)}},
		{filter.NewRule("Age", filter.In, 1), "([Age] in (@p1))", []any{int64(1)}},
		{filter.NewRule("Age", filter.NotIn, 1, 2), "([Age] not in (@p1,@p2))", []any{int64(1), int64(2)}},
		{filter.NewRule("Age", filter.IsNull), "([Age] is null)", nil},
		{filter.NewRule("Age", filter.IsNotNull), "([Age] is not null)", nil},
		{filter.NewRule("Age", filter.Operator("Approximately"), 1), "([Age] = @p1)", []any{int64(1)}},
		{filter.NewRule("Age", filter.Contains, 4), "([Age] like @p1)", []any{"%4%"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.rule.Operator)+"/"+tt.sql, func(t *testing.T) {
			frag, err := CompileGroup(filter.NewGroup(tt.rule))
			require.NoError(t, err)
			assert.Equal(t, tt.sql, frag.SQL)

			var got []any
			for _, p := range frag.Params {
				got = append(got, p.Value)
			}
			assert.Equal(t, tt.values, got)
		})
	}
}

func TestCompile_Conjunctions(t *testing.T) {
	g := filter.NewGroup(
		filter.NewRule("A", filter.Equal, 1).Or(), // first rule's conjunction is ignored
		filter.NewRule("B", filter.Equal, 2).Or(),
		filter.NewRule("C", filter.Equal, 3),
	)
	frag, err := CompileGroup(g)
	require.NoError(t, err)
	assert.Equal(t, "([A] = @p1 OR [B] = @p2 AND [C] = @p3)", frag.SQL)
}

func TestCompileFilter_FoldsLeftToRight(t *testing.T) {
	cond := filter.NewCondition(
		filter.NewGroup(filter.NewRule("A", filter.Equal, 1)),
		filter.NewGroup(filter.NewRule("B", filter.Equal, 2)).Or(),
		filter.NewGroup(filter.NewRule("C", filter.Equal, 3)),
	)
	frag, err := CompileFilter(cond)
	require.NoError(t, err)
	assert.Equal(t, "((([A] = @p1) OR ([B] = @p2)) AND ([C] = @p3))", frag.SQL)
}

func TestCompile_BetweenArity(t *testing.T) {
	_, err := CompileGroup(filter.NewGroup(filter.NewRule("Age", filter.Between, 18)))
	require.Error(t, err)
	assert.ErrorIs(t, err, filter.ErrMalformedRule)
	assert.Contains(t, err.Error(), "group.rules[0]")

	nested := filter.NewCondition(filter.Group{}.With(filter.NewGroup(filter.NewRule("Age", filter.Between, 1, 2, 3))))
	_, err = CompileFilter(nested)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "groups[0].groups[0].rules[0]")
}

func TestCompile_NoInlineLiterals(t *testing.T) {
	dangerous := "'; DROP TABLE people; --"
	g := filter.NewGroup(
		filter.NewRule("Name", filter.Equal, dangerous),
		filter.NewRule("Name", filter.In, dangerous, "x"+dangerous),
		filter.NewRule("Name", filter.Contains, dangerous),
	)

	frag, err := CompileGroup(g)
	require.NoError(t, err)
	assert.NotContains(t, frag.SQL, "DROP")
	assert.NotContains(t, frag.SQL, "'")
	assert.Equal(t, dangerous, frag.Params[0].Value)
}

func TestCompile_NumbersFromOneEachCall(t *testing.T) {
	g := filter.NewGroup(filter.NewRule("Age", filter.Between, 1, 2))
	for range 2 {
		frag, err := CompileGroup(g)
		require.NoError(t, err)
		assert.Equal(t, "([Age] between @p1 and @p2)", frag.SQL)
		assert.Equal(t, "p1", frag.Params[0].Name)
	}
}

func TestFragment_NamedArgs(t *testing.T) {
	frag, err := CompileGroup(filter.NewGroup(filter.NewRule("Age", filter.Equal, 3)))
	require.NoError(t, err)
	assert.Equal(t, []any{sql.Named("p1", int64(3))}, frag.NamedArgs())
}

func TestCompile_DoesNotMutateInput(t *testing.T) {
	g := filter.NewGroup(filter.NewRule("Name", filter.StartsWith, "Al")).
		With(filter.NewGroup(filter.NewRule("Age", filter.In, 1, 2)))
	before := fmt.Sprintf("%#v", g)

	_, err := CompileGroup(g)
	require.NoError(t, err)
	assert.Equal(t, before, fmt.Sprintf("%#v", g))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "[Age]", QuoteIdent("Age"))
	assert.Equal(t, "[Manager].[Name]", QuoteIdent("Manager.Name"))
	assert.Equal(t, "[we]]ird]", QuoteIdent("we]ird"))
}

// randomGroup builds a random tree whose literals are all distinct strings.
func randomGroup(r *rand.Rand, depth int, seq *int) filter.Group {
	ops := []filter.Operator{
		filter.Equal, filter.NotEqual, filter.Less, filter.Like, filter.StartsWith,
		filter.Between, filter.In, filter.NotIn, filter.IsNull, filter.Contains,
	}
	fields := []string{"A", "B", "C.D"}

	g := filter.Group{Conjunction: filter.And}
	if r.Intn(2) == 0 {
		g.Conjunction = filter.Or
	}
	for i := r.Intn(4); i > 0; i-- {
		op := ops[r.Intn(len(ops))]
		min, max := op.Arity()
		n := min
		if max < 0 {
			n = min + r.Intn(4)
		}
		vals := make([]any, n)
		for j := range vals {
			*seq++
			vals[j] = fmt.Sprintf("lit-%d'(", *seq)
		}
		rule := filter.NewRule(fields[r.Intn(len(fields))], op, vals...)
		if r.Intn(2) == 0 {
			rule = rule.Or()
		}
		g.Rules = append(g.Rules, rule)
	}
	if depth > 0 {
		for i := r.Intn(3); i > 0; i-- {
			g.Groups = append(g.Groups, randomGroup(r, depth-1, seq))
		}
	}
	return g
}

func TestCompile_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		seq := 0
		cond := filter.NewCondition(randomGroup(r, 3, &seq), randomGroup(r, 2, &seq))

		frag, err := CompileFilter(cond)
		require.NoError(t, err)

		// Parenthesis balance
		depth := 0
		for _, ch := range frag.SQL {
			switch ch {
			case '(':
				depth++
			case ')':
				depth--
			}
			require.GreaterOrEqual(t, depth, 0, frag.SQL)
		}
		assert.Equal(t, 0, depth, frag.SQL)

		// Every literal bound exactly once, names distinct, nothing inlined
		assert.Len(t, frag.Params, seq)
		names := make(map[string]bool, len(frag.Params))
		for _, p := range frag.Params {
			assert.False(t, names[p.Name], "duplicate parameter %s", p.Name)
			names[p.Name] = true
			assert.Contains(t, frag.SQL, p.Placeholder())
		}
		assert.NotContains(t, frag.SQL, "lit-")
	}
}
