package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kalyank1144/Ordinex-sub008/internal/storage/sqlite"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show mission events",
	Long: `Display events from the mission log, oldest first.

Reads the sqlite index derived from the append-only log, so filters
stay fast even on long histories. Use --follow to keep watching for
new events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, _ := cmd.Flags().GetString("task")
		missionID, _ := cmd.Flags().GetString("mission")
		limit, _ := cmd.Flags().GetInt("limit")
		follow, _ := cmd.Flags().GetBool("follow")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		index, err := sqlite.New(ctx, cfg.Events.IndexPath)
		if err != nil {
			return err
		}
		defer index.Close()

		evs, err := index.GetEvents(ctx, sqlite.EventFilter{
			TaskID:    taskID,
			MissionID: missionID,
			Limit:     limit,
		})
		if err != nil {
			return err
		}

		if len(evs) == 0 && !follow {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("\n%s\n\n", gray("no events recorded"))
			return nil
		}
		for _, ev := range evs {
			displayEvent(ev)
		}
		if !follow {
			return nil
		}

		after := time.Now().UTC()
		if len(evs) > 0 {
			after = evs[len(evs)-1].Timestamp
		}
		return followEvents(ctx, index, taskID, missionID, after)
	},
}

func init() {
	eventsCmd.Flags().StringP("task", "t", "", "Filter by task ID")
	eventsCmd.Flags().StringP("mission", "m", "", "Filter by mission ID")
	eventsCmd.Flags().IntP("limit", "n", 0, "Maximum events to show (0 = all)")
	eventsCmd.Flags().BoolP("follow", "f", false, "Keep watching for new events (Ctrl+C to stop)")
	rootCmd.AddCommand(eventsCmd)
}

// followEvents polls the index for events newer than the last one seen.
func followEvents(ctx context.Context, index *sqlite.Store, taskID, missionID string, after time.Time) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		evs, err := index.GetEvents(ctx, sqlite.EventFilter{
			TaskID:    taskID,
			MissionID: missionID,
			AfterTime: after,
		})
		if err != nil {
			return err
		}
		for _, ev := range evs {
			displayEvent(ev)
			after = ev.Timestamp
		}
	}
}
