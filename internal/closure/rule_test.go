package closure

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nerdkernel/internal/term"
)

func parseTerm(v any) (term.Term, error) {
	s, _ := v.(string)
	return term.NewString(s), nil
}

func TestParseRulesRoundTripsBodyAndHead(t *testing.T) {
	raw := []any{
		map[string]any{
			"ruleId":   "r1",
			"priority": 2.0,
			"cost":     3.0,
			"body": []any{
				map[string]any{
					"predicate": map[string]any{"namespace": "family", "name": "parent"},
					"slots": map[string]any{
						"parent": map[string]any{"var": "X"},
						"child":  map[string]any{"var": "Y"},
					},
				},
			},
			"head": map[string]any{
				"predicate": map[string]any{"namespace": "family", "name": "ancestor"},
				"slots": map[string]any{
					"parent": map[string]any{"var": "X"},
					"child":  map[string]any{"var": "Y"},
				},
				"scope": []any{"root"},
			},
		},
	}

	rules, err := ParseRules(raw, parseTerm)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	r := rules[0]
	require.Equal(t, "r1", r.RuleID)
	require.Equal(t, 2, r.Priority)
	require.Equal(t, 3, r.Cost)
	require.Len(t, r.Body, 1)
	require.Equal(t, "X", r.Body[0].Slots["parent"].VarName)
	require.Equal(t, []string{"root"}, r.Head.ScopeID)
}

func TestParseRulesRejectsNonObjectRule(t *testing.T) {
	_, err := ParseRules([]any{"not-a-rule"}, parseTerm)
	require.Error(t, err)
}

func TestParseRulesConstSlotRoundTrips(t *testing.T) {
	raw := []any{
		map[string]any{
			"ruleId": "r2",
			"body": []any{
				map[string]any{
					"predicate": map[string]any{"namespace": "ns", "name": "p"},
					"slots": map[string]any{
						"x": map[string]any{"const": "fixed"},
					},
				},
			},
			"head": map[string]any{
				"predicate": map[string]any{"namespace": "ns", "name": "q"},
				"slots":     map[string]any{},
			},
		},
	}
	rules, err := ParseRules(raw, parseTerm)
	require.NoError(t, err)
	require.Equal(t, term.NewString("fixed"), rules[0].Body[0].Slots["x"].Const)
}
