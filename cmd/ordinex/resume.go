package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kalyank1144/Ordinex-sub008/internal/events"
	"github.com/kalyank1144/Ordinex-sub008/internal/mission"
	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <manifest.yaml>",
	Short: "Resume a paused or interrupted mission",
	Long: `Reconstruct a mission's state from the event log and continue it.

A mission interrupted mid-flight (crash, Ctrl+C, timeout) always comes
back paused. If the pause left a decision point, the pending question
is presented before execution continues.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, _ := cmd.Flags().GetString("task")

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

		history, taskID, err := taskHistory(rt, taskID)
		if err != nil {
			return err
		}
		st, err := mission.ReconstructRunState(history)
		if err != nil {
			return err
		}
		if st.CurrentStage != types.StageMissionPaused {
			return fmt.Errorf("task %s is %s, not paused", taskID, st.CurrentStage)
		}
		// The reconstructed run continues under the mission identity it
		// started with, not the freshly parsed manifest's.
		m.ID = st.MissionID

		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("\n%s %s\n", yellow("Paused:"), st.PauseReason)

		var res *types.DecisionResolution
		if dp := pendingDecisionPoint(history); dp != nil {
			resolution, err := rt.transport.ResolveDecision(ctx, *dp)
			if err != nil {
				return err
			}
			res = &resolution

			if err := rt.bus.Publish(events.New(st.TaskID, st.Mode, st.CurrentStage, &events.DecisionPointResolvedPayload{
				MissionID:  st.MissionID,
				Resolution: resolution,
			})); err != nil {
				return err
			}

			if opt := optionByID(*dp, resolution.OptionID); opt != nil && opt.Action == types.DecisionAbortStep {
				if err := rt.bus.Publish(events.New(st.TaskID, st.Mode, types.StageMissionCancelled, &events.MissionCancelledPayload{
					MissionID: st.MissionID,
					Reason:    "aborted at decision point",
				})); err != nil {
					return err
				}
				red := color.New(color.FgRed, color.Bold).SprintFunc()
				fmt.Printf("\n%s mission aborted\n\n", red("✗"))
				return nil
			}
		}

		st, err = rt.machine.Resume(ctx, m, st, res)
		if err != nil {
			return err
		}
		printOutcome(st)
		return nil
	},
}

func init() {
	resumeCmd.Flags().StringP("task", "t", "", "Task ID to resume (default: most recent)")
	rootCmd.AddCommand(resumeCmd)
}

// taskHistory loads one task's events, defaulting to the most recently
// started task in the log.
func taskHistory(rt *runtime, taskID string) ([]*events.Event, string, error) {
	if taskID == "" {
		all, err := rt.log.ReadAll()
		if err != nil {
			return nil, "", err
		}
		for i := len(all) - 1; i >= 0; i-- {
			if all[i].Type == events.EventTypeMissionStarted {
				taskID = all[i].TaskID
				break
			}
		}
		if taskID == "" {
			return nil, "", fmt.Errorf("no missions found in event log %s", rt.log.Path())
		}
	}
	history, err := rt.log.EventsByTask(taskID)
	if err != nil {
		return nil, "", err
	}
	if len(history) == 0 {
		return nil, "", fmt.Errorf("no events found for task %s", taskID)
	}
	return history, taskID, nil
}

// pendingDecisionPoint returns the newest decision point that has not
// been resolved yet.
func pendingDecisionPoint(history []*events.Event) *types.DecisionPoint {
	var pending *types.DecisionPoint
	for _, ev := range history {
		switch payload := ev.Payload.(type) {
		case *events.DecisionPointCreatedPayload:
			dp := payload.DecisionPoint
			pending = &dp
		case *events.DecisionPointResolvedPayload:
			if pending != nil && pending.ID == payload.Resolution.DecisionID {
				pending = nil
			}
		}
	}
	return pending
}

func optionByID(dp types.DecisionPoint, id string) *types.DecisionOption {
	for i := range dp.Options {
		if dp.Options[i].ID == id {
			return &dp.Options[i]
		}
	}
	return nil
}
