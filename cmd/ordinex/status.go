package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kalyank1144/Ordinex-sub008/internal/eventlog"
	"github.com/kalyank1144/Ordinex-sub008/internal/events"
	"github.com/kalyank1144/Ordinex-sub008/internal/mission"
	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mission status",
	Long:  `Summarize every mission in the event log with its current stage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := eventlog.Open(cfg.Events.LogPath, logger)
		if err != nil {
			return err
		}
		defer log.Close()

		all, err := log.ReadAll()
		if err != nil {
			return err
		}

		byTask := make(map[string][]*events.Event)
		var order []string
		for _, ev := range all {
			if _, seen := byTask[ev.TaskID]; !seen {
				order = append(order, ev.TaskID)
			}
			byTask[ev.TaskID] = append(byTask[ev.TaskID], ev)
		}
		sort.SliceStable(order, func(i, j int) bool {
			return byTask[order[i]][0].Timestamp.Before(byTask[order[j]][0].Timestamp)
		})

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== Missions ==="))

		if len(order) == 0 {
			fmt.Printf("  %s\n\n", gray("no missions recorded"))
			return nil
		}

		for _, taskID := range order {
			st, err := mission.Reduce(byTask[taskID])
			if err != nil || st == nil {
				fmt.Printf("  %s %s\n", color.RedString("?"), gray(taskID))
				continue
			}
			printMissionLine(taskID, byTask[taskID], st)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printMissionLine(taskID string, history []*events.Event, st *types.MissionRunState) {
	gray := color.New(color.FgHiBlack).SprintFunc()

	var title string
	for _, ev := range history {
		if p, ok := ev.Payload.(*events.MissionStartedPayload); ok {
			title = p.Title
			break
		}
	}

	icon, stageColor := stageBadge(st.CurrentStage)
	fmt.Printf("  %s %-20s %s\n", icon, stageColor(string(st.CurrentStage)), title)
	detail := fmt.Sprintf("task %s, %d event(s), repair budget left %d", taskID, len(history), st.RepairRemaining)
	if st.PauseReason != "" {
		detail += ", paused: " + st.PauseReason
	}
	fmt.Printf("    %s\n", gray(detail))
}

func stageBadge(stage types.Stage) (string, func(a ...interface{}) string) {
	switch stage {
	case types.StageMissionCompleted:
		return "●", color.New(color.FgGreen).SprintFunc()
	case types.StageMissionPaused:
		return "◐", color.New(color.FgYellow).SprintFunc()
	case types.StageMissionCancelled:
		return "○", color.New(color.FgRed).SprintFunc()
	default:
		return "◉", color.New(color.FgCyan).SprintFunc()
	}
}
