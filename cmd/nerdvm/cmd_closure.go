package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nerdkernel/internal/budget"
	"nerdkernel/internal/closure"
	"nerdkernel/internal/fact"
	"nerdkernel/internal/logging"
	"nerdkernel/internal/vm"
)

var (
	closureFactsPath string
	closureRulesPath string
)

var closureCmd = &cobra.Command{
	Use:   "closure",
	Short: "Saturate a seeded fact store against a rule set",
	Long: `Loads --facts and --rules, runs the bounded forward-chaining engine
to a fixpoint (or until the budget exhausts), and prints the derived
claims and any conflicts surfaced along the way.`,
	RunE: runClosure,
}

func init() {
	closureCmd.Flags().StringVar(&closureFactsPath, "facts", "", "YAML file of seed facts (required)")
	closureCmd.Flags().StringVar(&closureRulesPath, "rules", "", "YAML file of rules (required)")
	closureCmd.MarkFlagRequired("facts")
	closureCmd.MarkFlagRequired("rules")
}

func runClosure(cmd *cobra.Command, args []string) error {
	opts := cfg.TermOptions()
	store := fact.NewMemStore(opts)
	n, err := seedStore(store, closureFactsPath, opts)
	if err != nil {
		return fmt.Errorf("seed facts: %w", err)
	}
	logger.Info("seeded facts", zap.Int("count", n))

	rawRules, err := loadRulesFile(closureRulesPath)
	if err != nil {
		return err
	}
	rules, err := closure.ParseRules(rawRules, vm.LiteralToTerm)
	if err != nil {
		return fmt.Errorf("parse rules: %w", err)
	}
	logging.ClosureDebug("running %d rule(s) against %d seed fact(s)", len(rules), n)

	limits := cfg.BudgetLimits()
	if timeout > 0 {
		limits.MaxTimeMs = timeout.Milliseconds()
	}
	b := budget.New(limits, nil)

	result, err := closure.Run(store, rules, b, opts)
	if err != nil {
		return fmt.Errorf("closure failed: %w", err)
	}

	logger.Info("closure complete",
		zap.Int("derived", len(result.DerivedFacts)),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Bool("budgetExhausted", result.BudgetExhausted))
	logging.Closure("fixpoint reached: derived=%d conflicts=%d exhausted=%v", len(result.DerivedFacts), len(result.Conflicts), result.BudgetExhausted)
	if result.BudgetExhausted {
		logging.BudgetWarn("closure stopped on budget exhaustion")
		fmt.Println("budget exhausted before closure reached a fixpoint")
	}
	fmt.Printf("derived %d fact(s):\n", len(result.DerivedFacts))
	for _, f := range result.DerivedFacts {
		fmt.Printf("  %s %s.%s %s\n", f.Polarity, f.Predicate.Namespace, f.Predicate.Name, renderArgs(f))
	}
	if len(result.Conflicts) > 0 {
		fmt.Printf("conflicts (%d):\n", len(result.Conflicts))
		for _, c := range result.Conflicts {
			fmt.Printf("  %s: %s\n", c.ConflictID, c.Type)
		}
	}
	return nil
}
