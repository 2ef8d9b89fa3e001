package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nerdkernel/internal/fact"
	"nerdkernel/internal/logging"
	"nerdkernel/internal/term"
	"nerdkernel/internal/vm"
	"nerdkernel/internal/vsa"
)

var (
	queryScope     []string
	queryFactsPath string
	queryRankBy    string
)

var queryCmd = &cobra.Command{
	Use:   "query <namespace>.<name>",
	Short: "Seed a fact store from --facts and query a predicate",
	Long: `Loads --facts into an in-memory fact store and prints every fact
matching the given predicate (namespace.name), optionally narrowed by
--scope.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryFactsPath, "facts", "", "YAML file of facts to seed the store with (required)")
	queryCmd.Flags().StringSliceVar(&queryScope, "scope", nil, "restrict results to this scope path")
	queryCmd.Flags().StringVar(&queryRankBy, "rank", "", "re-rank results by hypervector similarity to this string (requires vsa.enabled in config)")
	queryCmd.MarkFlagRequired("facts")
}

func runQuery(cmd *cobra.Command, args []string) error {
	pred, err := parsePredicateArg(args[0])
	if err != nil {
		return err
	}

	opts := cfg.TermOptions()
	store := fact.NewMemStore(opts)
	n, err := seedStore(store, queryFactsPath, opts)
	if err != nil {
		return fmt.Errorf("seed facts: %w", err)
	}
	logger.Info("seeded facts", zap.Int("count", n))

	p := fact.Pattern{Predicate: &pred}
	if len(queryScope) > 0 {
		p.ScopeID = queryScope
	}
	results := store.Query(p)
	logging.Store("query %s.%s matched %d of %d fact(s)", pred.Namespace, pred.Name, len(results), store.Count())

	if len(results) == 0 {
		fmt.Printf("no facts found for %s.%s\n", pred.Namespace, pred.Name)
		return nil
	}

	if queryRankBy != "" {
		return printRanked(pred, results, opts)
	}

	fmt.Printf("facts for %s.%s:\n", pred.Namespace, pred.Name)
	for _, f := range results {
		fmt.Printf("  %s %s\n", f.Polarity, renderArgs(f))
	}
	return nil
}

// printRanked re-orders results by hypervector similarity to
// --rank, purely advisory - it never changes
// which facts matched the predicate query above, only their order.
func printRanked(pred term.SymbolId, results []fact.Instance, opts term.Options) error {
	engine, err := vsa.NewEngine(cfg.VSAEngineConfig())
	if err != nil {
		return fmt.Errorf("build vsa engine: %w", err)
	}
	ranker := vsa.NewRanker(engine, opts, cfg.VSA.SimilarityThreshold)

	ranked, err := ranker.Rank(context.Background(), term.NewString(queryRankBy), results, 0)
	if err != nil {
		return fmt.Errorf("rank results: %w", err)
	}
	logging.VSA("ranked %d of %d candidate(s) above threshold %.3f", len(ranked), len(results), cfg.VSA.SimilarityThreshold)
	if len(ranked) == 0 {
		fmt.Printf("no facts for %s.%s met the similarity threshold\n", pred.Namespace, pred.Name)
		return nil
	}
	fmt.Printf("facts for %s.%s, ranked by similarity to %q:\n", pred.Namespace, pred.Name, queryRankBy)
	for _, r := range ranked {
		fmt.Printf("  [%.3f] %s %s\n", r.Similarity, r.Instance.Polarity, renderArgs(r.Instance))
	}
	return nil
}

func parsePredicateArg(s string) (term.SymbolId, error) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return term.NewSymbolId(s[:i], s[i+1:]), nil
		}
	}
	return term.SymbolId{}, fmt.Errorf("predicate must be namespace.name, got %q", s)
}

func renderArgs(f fact.Instance) string {
	out := "{"
	first := true
	for slot, t := range f.Arguments {
		if !first {
			out += ", "
		}
		first = false
		out += fmt.Sprintf("%s=%v", slot, vm.TermToLiteral(t))
	}
	return out + "}"
}
