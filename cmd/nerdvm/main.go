// Package main implements nerdvm, the CLI front end for the reasoning
// substrate: load a compiled program, run it against a fact store within
// a budget, optionally saturate a rule set via the closure engine, and
// print the mode-adapted result object.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nerdkernel/internal/config"
	"nerdkernel/internal/logging"
)

var (
	verbose    bool
	configPath string
	workspace  string
	timeout    time.Duration

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "nerdvm",
	Short: "nerdvm - budget-bounded symbolic reasoning VM",
	Long: `nerdvm runs compiled reasoning programs against a content-addressed
fact store within a four-dimensional budget, derives consequences via
bounded forward chaining, and reports results as STRICT, CONDITIONAL, or
INDETERMINATE.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = loaded

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := cfg.ConfigureLogging(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
			logging.BootError("file logging init failed: %v", err)
		}
		logging.Boot("nerdvm starting, workspace=%s", ws)
		logging.BootDebug("config loaded from %s", configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".nerdvm.yaml", "path to YAML configuration")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory for file logging (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "wall-clock budget ceiling, overrides config vm.defaultBudget.maxTimeMs")

	rootCmd.AddCommand(runCmd, queryCmd, closureCmd, traceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
