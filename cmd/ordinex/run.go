package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kalyank1144/Ordinex-sub008/internal/mission"
	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run <manifest.yaml>",
	Short: "Run a mission from a manifest",
	Long: `Execute the mission described by a YAML manifest.

The mission walks the staged pipeline: retrieve context, propose a
patch plan, propose diffs, apply them behind an approval gate, run the
verification commands, and repair failures within the budget. Ctrl+C
cancels cleanly; a paused or interrupted mission can be continued with
'ordinex resume'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		auto, _ := cmd.Flags().GetBool("auto")
		if auto {
			cfg.Mission.AutoApprove = true
		}

		m, err := mission.LoadManifest(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		mode := types.ModeAssisted
		if cfg.Mission.AutoApprove {
			mode = types.ModeAuto
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s %s\n\n", cyan("Mission:"), m.Title)

		st, err := rt.machine.Run(ctx, m, mode)
		if err != nil {
			logger.Error("mission run failed", zap.Error(err))
			return err
		}

		printOutcome(st)
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("auto", false, "Grant every approval gate without prompting")
	rootCmd.AddCommand(runCmd)
}

// printOutcome summarizes a finished run for the terminal.
func printOutcome(st *types.MissionRunState) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Println()
	switch st.CurrentStage {
	case types.StageMissionCompleted:
		fmt.Printf("%s mission completed\n", green("✓"))
	case types.StageMissionPaused:
		fmt.Printf("%s mission paused: %s\n", yellow("⏸"), st.PauseReason)
		if len(st.PauseOptions) > 0 {
			fmt.Printf("  %s\n", gray(fmt.Sprintf("options: %v (resolve with 'ordinex resume')", st.PauseOptions)))
		}
	case types.StageMissionCancelled:
		fmt.Printf("%s mission cancelled\n", red("✗"))
	}

	if len(st.TouchedFiles) > 0 {
		fmt.Printf("  %s\n", gray(fmt.Sprintf("%d file(s) modified, %d checkpoint(s), repair budget left %d",
			len(st.TouchedFiles), len(st.CheckpointIDs), st.RepairRemaining)))
	}
	fmt.Printf("  %s\n\n", gray("task "+st.TaskID))
}
