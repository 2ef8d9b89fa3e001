package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nerdkernel/internal/bindenv"
	"nerdkernel/internal/budget"
	"nerdkernel/internal/ctxstack"
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/fact"
	"nerdkernel/internal/reason"
	"nerdkernel/internal/schema"
	"nerdkernel/internal/term"
)

func newMachine(t *testing.T, p *schema.Program, store fact.Store, limits budget.Limits) *Machine {
	t.Helper()
	opts := term.DefaultOptions()
	if store == nil {
		store = fact.NewMemStore(opts)
	}
	ctx := ctxstack.New(store, opts)
	env := bindenv.New()
	b := budget.New(limits, nil)
	log := execlog.New(execlog.LevelVerbose, nil)
	return New(p, store, ctx, env, b, log, opts)
}

func symbolArg(ns, name string) schema.Arg {
	return schema.Arg{Kind: schema.ArgLiteral, Literal: map[string]any{"namespace": ns, "name": name}}
}

func stringAtomLiteral(s string) map[string]any {
	return map[string]any{"atom": "string", "value": s}
}

// TestPredicateCountSchema: QUERY -> COUNT ->
// RETURN against five asserted facts returns claim value 5 with mode
// STRICT and no assumptions.
func TestPredicateCountSchema(t *testing.T) {
	opts := term.DefaultOptions()
	store := fact.NewMemStore(opts)
	for i := 0; i < 5; i++ {
		f, err := fact.New(term.NewSymbolId("test", "person"), map[string]term.Term{
			"name": term.NewString(string(rune('A' + i))),
		}, fact.Assert, nil, nil, opts)
		require.NoError(t, err)
		_, err = store.Assert(f)
		require.NoError(t, err)
	}

	p := &schema.Program{
		ProgramID: "count-people",
		Instructions: []schema.Instruction{
			{Op: schema.OpQuery, Args: map[string]schema.Arg{
				"predicate": symbolArg("test", "person"),
			}, Out: "people"},
			{Op: schema.OpCount, Args: map[string]schema.Arg{
				"items": {Kind: schema.ArgBinding, Name: "people"},
			}, Out: "n"},
			{Op: schema.OpReturn},
		},
	}
	m := newMachine(t, p, store, budget.DefaultLimits())
	result, err := m.Run()
	require.NoError(t, err)
	require.Equal(t, reason.Strict, result.Mode)
	require.Equal(t, int64(5), result.Bindings["n"])
	require.Empty(t, result.Conflicts)
}

// TestContradictionDetection: asserting
// logic:holds("P") and then its DENY-polarity counterpart in the same
// scope and time surfaces a conflict on assert. The executor's own
// result (before the mode adapter runs) reports CONDITIONAL for a
// non-empty conflict list; escalation to INDETERMINATE under strict
// mode is internal/mode's job, covered in its own package tests.
func TestContradictionDetection(t *testing.T) {
	value := map[string]any{"value": stringAtomLiteral("P")}
	p := &schema.Program{
		ProgramID: "contradiction",
		Instructions: []schema.Instruction{
			{Op: schema.OpAssert, Args: map[string]schema.Arg{
				"predicate": symbolArg("logic", "holds"),
				"arguments": {Kind: schema.ArgLiteral, Literal: value},
			}},
			{Op: schema.OpAssert, Args: map[string]schema.Arg{
				"predicate": symbolArg("logic", "holds"),
				"arguments": {Kind: schema.ArgLiteral, Literal: value},
				"polarity":  {Kind: schema.ArgLiteral, Literal: "DENY"},
			}},
			{Op: schema.OpReturn},
		},
	}
	m := newMachine(t, p, nil, budget.DefaultLimits())
	result, err := m.Run()
	require.NoError(t, err)
	require.Equal(t, reason.Conditional, result.Mode)
	require.NotEmpty(t, result.Conflicts)
	require.Equal(t, fact.ConflictDirect, result.Conflicts[0].Type)
}

// TestCallBindsArgumentsAndReturnSurfacesValue: CALL binds its named
// arguments into the callee's scope, and RETURN resolves `value` there
// before popping, writing it to the caller through its output binding.
func TestCallBindsArgumentsAndReturnSurfacesValue(t *testing.T) {
	p := &schema.Program{
		ProgramID: "call-return",
		Instructions: []schema.Instruction{
			{Op: schema.OpCall, Args: map[string]schema.Arg{
				"target": {Kind: schema.ArgLabel, Name: "echo"},
				"n":      {Kind: schema.ArgLiteral, Literal: 21},
			}},
			{Op: schema.OpReturn},
			{Op: schema.OpReturn, Label: "echo", Args: map[string]schema.Arg{
				"value": {Kind: schema.ArgBinding, Name: "n"},
			}, Out: "answer"},
		},
	}
	m := newMachine(t, p, nil, budget.DefaultLimits())
	result, err := m.Run()
	require.NoError(t, err)
	require.Equal(t, reason.Strict, result.Mode)
	require.Equal(t, 21, result.Bindings["answer"])

	// The callee's parameter scope was popped with the frame.
	_, bound := result.Bindings["n"]
	require.False(t, bound)
}

func TestBudgetExhaustionTerminatesLongProgram(t *testing.T) {
	instrs := make([]schema.Instruction, 0, 1001)
	for i := 0; i < 1000; i++ {
		instrs = append(instrs, schema.Instruction{Op: schema.OpQuery, Args: map[string]schema.Arg{
			"predicate": symbolArg("test", "nothing"),
		}})
	}
	instrs = append(instrs, schema.Instruction{Op: schema.OpReturn})
	p := &schema.Program{ProgramID: "exhaust", Instructions: instrs}

	m := newMachine(t, p, nil, budget.Limits{MaxSteps: 100})
	result, err := m.Run()
	require.NoError(t, err)
	require.Equal(t, reason.Indeterminate, result.Mode)
	require.GreaterOrEqual(t, result.BudgetUsed.UsedSteps, 100)
	require.Empty(t, result.Claims)
}
