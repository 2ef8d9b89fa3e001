package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nerdkernel/internal/bindenv"
	"nerdkernel/internal/budget"
	"nerdkernel/internal/ctxstack"
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/fact"
	"nerdkernel/internal/schema"
	"nerdkernel/internal/term"
)

func exprArg(left schema.Arg, op string, right schema.Arg) schema.Arg {
	return schema.Arg{Kind: schema.ArgExpr, Op: op, Left: &left, Right: &right}
}

func litArg(v any) schema.Arg { return schema.Arg{Kind: schema.ArgLiteral, Literal: v} }

// TestBranchComparisonLanguage exercises every operator of the small
// comparison language, including the unary negation form.
func TestBranchComparisonLanguage(t *testing.T) {
	opts := term.DefaultOptions()
	store := fact.NewMemStore(opts)
	ctx := ctxstack.New(store, opts)
	env := bindenv.New()
	b := budget.New(budget.DefaultLimits(), nil)
	log := execlog.New(execlog.LevelVerbose, nil)

	cases := []struct {
		name string
		expr schema.Arg
		want bool
	}{
		{"eq-true", exprArg(litArg(1.0), "==", litArg(1.0)), true},
		{"eq-false", exprArg(litArg(1.0), "==", litArg(2.0)), false},
		{"ne", exprArg(litArg(1.0), "!=", litArg(2.0)), true},
		{"lt", exprArg(litArg(1.0), "<", litArg(2.0)), true},
		{"lte", exprArg(litArg(2.0), "<=", litArg(2.0)), true},
		{"gt", exprArg(litArg(3.0), ">", litArg(2.0)), true},
		{"gte", exprArg(litArg(2.0), ">=", litArg(2.0)), true},
		{"string-eq", exprArg(litArg("a"), "==", litArg("a")), true},
		{"string-lt", exprArg(litArg("a"), "<", litArg("b")), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := New(&schema.Program{ProgramID: "x", Instructions: []schema.Instruction{{Op: schema.OpReturn}}}, store, ctx, env, b, log, opts)
			v, err := m.resolveArg(c.expr)
			require.NoError(t, err)
			require.Equal(t, c.want, v)
		})
	}
}

func TestUnaryNegation(t *testing.T) {
	opts := term.DefaultOptions()
	store := fact.NewMemStore(opts)
	ctx := ctxstack.New(store, opts)
	env := bindenv.New()
	b := budget.New(budget.DefaultLimits(), nil)
	log := execlog.New(execlog.LevelVerbose, nil)
	m := New(&schema.Program{ProgramID: "x", Instructions: []schema.Instruction{{Op: schema.OpReturn}}}, store, ctx, env, b, log, opts)

	falseArg := litArg(false)
	v, err := m.resolveArg(schema.Arg{Kind: schema.ArgExpr, Op: "!", Left: &falseArg})
	require.NoError(t, err)
	require.Equal(t, true, v)
}

func TestDottedPropertyAccess(t *testing.T) {
	opts := term.DefaultOptions()
	store := fact.NewMemStore(opts)
	ctx := ctxstack.New(store, opts)
	env := bindenv.New()
	env.Bind("items", []any{1, 2, 3})
	b := budget.New(budget.DefaultLimits(), nil)
	log := execlog.New(execlog.LevelVerbose, nil)
	m := New(&schema.Program{ProgramID: "x", Instructions: []schema.Instruction{{Op: schema.OpReturn}}}, store, ctx, env, b, log, opts)

	v, err := m.resolveArg(schema.Arg{Kind: schema.ArgBinding, Name: "items.length"})
	require.NoError(t, err)
	require.Equal(t, int64(3), v)
}

// TestBranchUsesComparisonExpression mirrors a compiled program using the
// comparison language directly in a BRANCH's cond argument.
func TestBranchUsesComparisonExpression(t *testing.T) {
	p := &schema.Program{
		ProgramID: "branch-expr",
		Instructions: []schema.Instruction{
			{Op: schema.OpBranch, Args: map[string]schema.Arg{
				"cond": exprArg(litArg(5.0), ">", litArg(3.0)),
				"then": {Kind: schema.ArgLabel, Name: "yes"},
				"else": {Kind: schema.ArgLabel, Name: "no"},
			}},
			{Op: schema.OpReturn, Label: "no"},
			{Op: schema.OpMakeTerm, Args: map[string]schema.Arg{
				"value": {Kind: schema.ArgLiteral, Literal: stringAtomLiteral("reached")},
			}, Out: "marker", Label: "yes"},
			{Op: schema.OpReturn},
		},
	}
	m := newMachine(t, p, nil, budget.DefaultLimits())
	result, err := m.Run()
	require.NoError(t, err)
	require.Equal(t, term.NewString("reached"), result.Bindings["marker"])
}

// TestFilterMapReduceExpressions exercises FILTER/MAP with item/index
// bindings and REDUCE's fuller reducer set.
func TestFilterMapReduceExpressions(t *testing.T) {
	opts := term.DefaultOptions()
	store := fact.NewMemStore(opts)
	ctx := ctxstack.New(store, opts)
	env := bindenv.New()
	env.Bind("nums", []any{1.0, 2.0, 3.0, 4.0})
	b := budget.New(budget.DefaultLimits(), nil)
	log := execlog.New(execlog.LevelVerbose, nil)
	m := New(&schema.Program{ProgramID: "x", Instructions: []schema.Instruction{{Op: schema.OpReturn}}}, store, ctx, env, b, log, opts)

	// FILTER keeps items greater than 2 via an item-bound expression.
	err := m.opFilter(schema.Instruction{
		Op: schema.OpFilter,
		Args: map[string]schema.Arg{
			"items": {Kind: schema.ArgBinding, Name: "nums"},
			"where": exprArg(schema.Arg{Kind: schema.ArgBinding, Name: "item"}, ">", litArg(2.0)),
		},
		Out: "big",
	})
	require.NoError(t, err)
	big, _ := m.Env.Get("big")
	require.Equal(t, []any{3.0, 4.0}, big)

	// MAP projects each item to its position via an expr reading `index`.
	err = m.opMap(schema.Instruction{
		Op: schema.OpMap,
		Args: map[string]schema.Arg{
			"items": {Kind: schema.ArgBinding, Name: "nums"},
			"expr":  schema.Arg{Kind: schema.ArgBinding, Name: "index"},
		},
		Out: "indices",
	})
	require.NoError(t, err)
	indices, _ := m.Env.Get("indices")
	require.Equal(t, []any{int64(0), int64(1), int64(2), int64(3)}, indices)

	for op, want := range map[string]any{
		"sum": 10.0,
		"min": 1.0,
		"max": 4.0,
	} {
		err = m.opReduce(schema.Instruction{
			Op:   schema.OpReduce,
			Args: map[string]schema.Arg{"items": {Kind: schema.ArgBinding, Name: "nums"}, "op": litArg(op)},
			Out:  "r-" + op,
		})
		require.NoError(t, err)
		v, _ := m.Env.Get("r-" + op)
		require.Equal(t, want, v, op)
	}

	err = m.opReduce(schema.Instruction{
		Op: schema.OpReduce,
		Args: map[string]schema.Arg{
			"items":     {Kind: schema.ArgBinding, Name: "nums"},
			"op":        litArg("sum"),
			"initial":   litArg(100.0),
		},
		Out: "seeded-sum",
	})
	require.NoError(t, err)
	v, _ := m.Env.Get("seeded-sum")
	require.Equal(t, 110.0, v)

	env.Bind("words", []any{"a", "b", "c"})
	err = m.opReduce(schema.Instruction{
		Op: schema.OpReduce,
		Args: map[string]schema.Arg{
			"items":     {Kind: schema.ArgBinding, Name: "words"},
			"op":        litArg("join"),
			"separator": litArg("-"),
		},
		Out: "joined",
	})
	require.NoError(t, err)
	v, _ = m.Env.Get("joined")
	require.Equal(t, "a-b-c", v)
}
