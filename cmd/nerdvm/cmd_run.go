package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nerdkernel/internal/bindenv"
	"nerdkernel/internal/budget"
	"nerdkernel/internal/ctxstack"
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/fact"
	"nerdkernel/internal/logging"
	"nerdkernel/internal/mode"
	"nerdkernel/internal/schema"
	"nerdkernel/internal/vm"

	"gopkg.in/yaml.v3"
)

var factsPath string

var runCmd = &cobra.Command{
	Use:   "run <program.yaml>",
	Short: "Run a compiled program and print the mode-adapted result",
	Long: `Loads a program in the JSON/YAML exchange format, optionally seeds a fact
store from --facts, executes it under the configured budget, and prints
the final STRICT/CONDITIONAL/INDETERMINATE result object as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runProgram,
}

func init() {
	runCmd.Flags().StringVar(&factsPath, "facts", "", "YAML file of facts to seed the store with before running")
}

func loadProgram(path string) (*schema.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	var p schema.Program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse program: %w", err)
	}
	if err := schema.Validate(&p); err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}
	return &p, nil
}

func runProgram(cmd *cobra.Command, args []string) error {
	program, err := loadProgram(args[0])
	if err != nil {
		return err
	}

	opts := cfg.TermOptions()
	store := fact.NewMemStore(opts)
	if factsPath != "" {
		n, err := seedStore(store, factsPath, opts)
		if err != nil {
			return fmt.Errorf("seed facts: %w", err)
		}
		logger.Info("seeded facts", zap.Int("count", n), zap.String("path", factsPath))
		logging.Store("seeded %d fact(s) from %s", n, factsPath)
	}

	limits := cfg.BudgetLimits()
	if timeout > 0 {
		limits.MaxTimeMs = timeout.Milliseconds()
	}
	b := budget.New(limits, nil)
	log := execlog.New(cfg.TraceLevel(), nil)
	ctx := ctxstack.New(store, opts)
	env := bindenv.New()

	logging.VM("running program %s (%d instructions)", program.ProgramID, len(program.Instructions))
	timer := logging.StartTimer(logging.CategoryVM, "program execution")
	m := vm.New(program, store, ctx, env, b, log, opts)
	execResult, err := m.Run()
	timer.Stop()
	if err != nil {
		return fmt.Errorf("program execution failed: %w", err)
	}
	if len(execResult.Errors) > 0 {
		logging.VMDebug("execution recorded %d handler error(s)", len(execResult.Errors))
	}

	u := execResult.BudgetUsed
	logging.Budget("budget used: steps=%d branches=%d depth=%d elapsedMs=%d", u.UsedSteps, u.UsedBranches, u.UsedDepth, u.ElapsedMs)
	if b.Exhausted() {
		logging.BudgetWarn("budget exhausted during %s", program.ProgramID)
	}

	result := mode.Adapt(execResult, nil, cfg.ModeAdapterConfig())
	logger.Info("run complete", zap.String("mode", string(result.Mode)), zap.Int("claims", len(result.Claims)), zap.Int("conflicts", len(result.Conflicts)))
	logging.Mode("adapted %s: claims=%d conflicts=%d assumptions=%d", result.Mode, len(result.Claims), len(result.Conflicts), len(result.Assumptions))

	return printJSON(result)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
