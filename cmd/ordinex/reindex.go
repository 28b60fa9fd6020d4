package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kalyank1144/Ordinex-sub008/internal/eventlog"
	"github.com/kalyank1144/Ordinex-sub008/internal/storage/sqlite"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the sqlite index from the event log",
	Long: `Drop the derived sqlite index and rebuild it from the append-only
log. The log is the source of truth, so this is always safe; use it
after deleting or corrupting the index file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		log, err := eventlog.Open(cfg.Events.LogPath, logger)
		if err != nil {
			return err
		}
		defer log.Close()

		all, err := log.ReadAll()
		if err != nil {
			return err
		}

		index, err := sqlite.New(ctx, cfg.Events.IndexPath)
		if err != nil {
			return err
		}
		defer index.Close()

		if err := index.Rebuild(ctx, all); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s reindexed %d event(s) into %s\n", green("✓"), len(all), index.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
