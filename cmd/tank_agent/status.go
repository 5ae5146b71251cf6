package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfigueroa/tank-compliance/internal/checkpoint"
	"github.com/mfigueroa/tank-compliance/internal/pipeline"
)

var statusCommand = &cobra.Command{
	Use:   "status",
	Short: "Show checkpointed runs and their progress",
	RunE:  statusCmd,
}

var (
	statusRunID     string
	statusOutputDir string
)

func init() {
	statusCommand.Flags().StringVar(&statusRunID, "run-id", "", "Show a single run's full summary")
	statusCommand.Flags().StringVarP(&statusOutputDir, "output-dir", "o", "", "Directory holding the checkpoints (default ./output)")

	rootCmd.AddCommand(statusCommand)
}

func statusCmd(_ *cobra.Command, _ []string) error {
	store, err := checkpoint.NewStore(checkpointDir(statusOutputDir))
	if err != nil {
		return err
	}

	if statusRunID != "" {
		run, err := store.Load(statusRunID)
		if err != nil {
			return err
		}
		fmt.Println(pipeline.BuildSummary(run))
		return nil
	}

	runIDs, err := store.List()
	if err != nil {
		return err
	}
	if len(runIDs) == 0 {
		fmt.Println("No checkpointed runs found.")
		return nil
	}

	fmt.Printf("%-14s %-26s %-10s %6s %8s\n", "RUN", "INPUT", "STATUS", "TANKS", "STEPS")
	for _, runID := range runIDs {
		run, err := store.Load(runID)
		if err != nil {
			fmt.Printf("%-14s (unreadable checkpoint: %v)\n", runID, err)
			continue
		}
		fmt.Printf("%-14s %-26s %-10s %6d %5d/%d\n",
			run.RunID, truncatePath(run.InputPath, 26), run.Status,
			run.TankCount(), len(run.CompletedSteps), len(pipeline.StepNames()))
	}
	return nil
}

func truncatePath(path string, max int) string {
	if len(path) <= max {
		return path
	}
	return "..." + path[len(path)-max+3:]
}
