package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const sampleManifest = `# Mission manifest. Run with: ordinex run mission.yaml
title: Describe the change you want

scope:
  # Files the mission will likely read and modify.
  likely_files:
    - main.go
  # Paths the mission must never touch, even if the model proposes it.
  out_of_scope:
    - vendor/**
    - .git/**

steps:
  - id: step-1
    description: Describe the first concrete step

verification:
  test_commands:
    - go test ./...
  acceptance_criteria: Describe what done looks like
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the state directory and a sample manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(cfg.Workspace.StateDir, 0o700); err != nil {
			return fmt.Errorf("failed to create state dir: %w", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("%s state directory %s\n", green("✓"), cfg.Workspace.StateDir)

		manifestPath := filepath.Join(cfg.Workspace.Root, "mission.yaml")
		if _, err := os.Stat(manifestPath); err == nil {
			fmt.Printf("%s mission.yaml already exists, leaving it alone\n", gray("-"))
			return nil
		}
		if err := os.WriteFile(manifestPath, []byte(sampleManifest), 0o644); err != nil {
			return fmt.Errorf("failed to write sample manifest: %w", err)
		}
		fmt.Printf("%s sample manifest %s\n", green("✓"), manifestPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
