package mode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nerdkernel/internal/fact"
	"nerdkernel/internal/reason"
)

func TestAdaptStrictWhenNoIssues(t *testing.T) {
	exec := &reason.ExecutionResult{
		Mode:   reason.Strict,
		Claims: []reason.Claim{{ClaimID: "c1"}},
	}
	result := Adapt(exec, nil, DefaultConfig())
	require.Equal(t, reason.Strict, result.Mode)
	require.Len(t, result.Claims, 1)
	require.Equal(t, 1.0, result.Claims[0].Confidence)
	require.Empty(t, result.Assumptions)
}

// TestAdaptStrictNoClaimsWithConflicts exercises the "strict
// no-claims-with-conflicts" property: a non-empty conflict list never
// yields STRICT-with-claims.
func TestAdaptStrictNoClaimsWithConflicts(t *testing.T) {
	exec := &reason.ExecutionResult{
		Mode:   reason.Strict,
		Claims: []reason.Claim{{ClaimID: "c1"}},
		Conflicts: []reason.ConflictReport{
			{ConflictID: "k1", Type: fact.ConflictDirect},
		},
	}
	result := Adapt(exec, nil, DefaultConfig())
	require.NotEqual(t, reason.Strict, result.Mode)
}

func TestAdaptBudgetExhaustionYieldsIndeterminateWithNoClaims(t *testing.T) {
	exec := &reason.ExecutionResult{
		Mode:   reason.Indeterminate,
		Claims: []reason.Claim{{ClaimID: "c1"}},
	}
	cfg := DefaultConfig()
	cfg.StrictMode = true
	result := Adapt(exec, nil, cfg)
	require.Equal(t, reason.Indeterminate, result.Mode)
	require.Empty(t, result.Claims)
}

// TestAdaptConditionalConfidence: one direct
// conflict and one temporal conflict -> confidence 1 - (0.3+0.2) = 0.5.
func TestAdaptConditionalConfidence(t *testing.T) {
	exec := &reason.ExecutionResult{
		Mode:   reason.Strict,
		Claims: []reason.Claim{{ClaimID: "c1"}},
		Conflicts: []reason.ConflictReport{
			{ConflictID: "k1", Type: fact.ConflictDirect},
			{ConflictID: "k2", Type: fact.ConflictTemporal},
		},
	}
	result := Adapt(exec, nil, DefaultConfig())
	require.Equal(t, reason.Conditional, result.Mode)
	require.InDelta(t, 0.5, result.Claims[0].Confidence, 1e-9)
	require.Len(t, result.Assumptions, 2)
}

func TestAdaptEscalatesToIndeterminateBelowMinConfidence(t *testing.T) {
	cfg := DefaultConfig()
	exec := &reason.ExecutionResult{
		Mode: reason.Strict,
		Conflicts: []reason.ConflictReport{
			{Type: fact.ConflictDirect},
			{Type: fact.ConflictDirect},
			{Type: fact.ConflictDirect},
			{Type: fact.ConflictDirect},
		},
	}
	result := Adapt(exec, nil, cfg)
	require.Equal(t, reason.Indeterminate, result.Mode)
}

func TestAdaptStrictModeRefusesPartialResultsOutright(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictMode = true
	exec := &reason.ExecutionResult{
		Mode:   reason.Strict,
		Claims: []reason.Claim{{ClaimID: "c1"}},
		Conflicts: []reason.ConflictReport{
			{Type: fact.ConflictTemporal},
		},
	}
	result := Adapt(exec, nil, cfg)
	require.Equal(t, reason.Indeterminate, result.Mode)
	require.Empty(t, result.Claims)
}

func TestAdaptMergesClosureConflictsAndClaims(t *testing.T) {
	exec := &reason.ExecutionResult{Mode: reason.Strict}
	closureResult := &reason.ClosureResult{
		DerivedClaims: []reason.Claim{{ClaimID: "derived"}},
		BudgetExhausted: true,
	}
	result := Adapt(exec, closureResult, DefaultConfig())
	require.Equal(t, reason.Conditional, result.Mode)
	require.Len(t, result.Claims, 1)
	require.InDelta(t, 0.8, result.Claims[0].Confidence, 1e-9)
}
