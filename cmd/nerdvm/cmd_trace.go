package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nerdkernel/internal/bindenv"
	"nerdkernel/internal/budget"
	"nerdkernel/internal/ctxstack"
	"nerdkernel/internal/execlog"
	"nerdkernel/internal/fact"
	"nerdkernel/internal/logging"
	"nerdkernel/internal/vm"
)

var traceFactsPath string

var traceCmd = &cobra.Command{
	Use:   "trace <program.yaml>",
	Short: "Run a program at verbose trace level and print the execution log",
	Long: `The "glass box" command: runs a program exactly like "run", but forces
vm.traceLevel to verbose and prints every recorded execution-log entry
instead of the final result, so you can see why a result came out the
way it did.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	traceCmd.Flags().StringVar(&traceFactsPath, "facts", "", "YAML file of facts to seed the store with before running")
}

func runTrace(cmd *cobra.Command, args []string) error {
	program, err := loadProgram(args[0])
	if err != nil {
		return err
	}

	opts := cfg.TermOptions()
	store := fact.NewMemStore(opts)
	if traceFactsPath != "" {
		n, err := seedStore(store, traceFactsPath, opts)
		if err != nil {
			return fmt.Errorf("seed facts: %w", err)
		}
		logging.StoreDebug("seeded %d fact(s) from %s", n, traceFactsPath)
	}

	limits := cfg.BudgetLimits()
	if timeout > 0 {
		limits.MaxTimeMs = timeout.Milliseconds()
	}
	b := budget.New(limits, nil)
	log := execlog.New(execlog.LevelVerbose, nil)
	ctx := ctxstack.New(store, opts)
	env := bindenv.New()

	m := vm.New(program, store, ctx, env, b, log, opts)
	execResult, err := m.Run()
	if err != nil {
		return fmt.Errorf("program execution failed: %w", err)
	}

	logging.Trace("traced program %s: %d log entries", program.ProgramID, len(log.Entries()))
	for _, e := range log.Entries() {
		fmt.Printf("[%4d] %-16s %v\n", e.ID, e.Type, e.Fields)
	}
	fmt.Printf("\nfinal mode: %s (claims=%d conflicts=%d)\n", execResult.Mode, len(execResult.Claims), len(execResult.Conflicts))
	return nil
}
