package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kalyank1144/Ordinex-sub008/internal/config"
	"github.com/kalyank1144/Ordinex-sub008/internal/logging"
)

// Shared state initialized by the root PersistentPreRunE and used by
// every subcommand.
var (
	configPath string
	cfg        config.Config
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ordinex",
	Short: "Event-sourced orchestrator for code-editing missions",
	Long: `Ordinex runs code-editing missions: it retrieves context, asks a
model for a patch plan and diffs, gates writes behind approval, runs
the verification commands, and repairs failures within a budget.

Every observable action is an append-only event; the event log is the
source of truth and any run can be reconstructed or resumed from it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./ordinex.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
