package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var resumeCommand = &cobra.Command{
	Use:   "resume",
	Short: "Resume a checkpointed run at its first incomplete step",
	Long: `Loads the run's latest checkpoint and continues where it left off. Completed steps are never repeated and tanks that already carry calculator results are never re-queried.

Typical uses: the calculator was unreachable mid-run, or a KMZ run halted so a surveyor could fill in the generated tank template.`,
	RunE: resumePipelineCmd,
}

var (
	resumeRunID      string
	resumeConfigPath string
	resumeOutputDir  string
	resumeAPIKey     string
	resumeVerbose    bool
)

func init() {
	resumeCommand.Flags().StringVar(&resumeRunID, "run-id", "", "Run ID to resume (required)")
	resumeCommand.Flags().StringVar(&resumeConfigPath, "config", "", "Path to config.json file")
	resumeCommand.Flags().StringVarP(&resumeOutputDir, "output-dir", "o", "", "Directory holding the run's checkpoints (default ./output)")
	resumeCommand.Flags().StringVar(&resumeAPIKey, "api-key", "", "Gemini API key (optional, defaults to GEMINI_API_KEY env var)")
	resumeCommand.Flags().BoolVarP(&resumeVerbose, "verbose", "v", false, "Print detailed progress boxes")
	_ = resumeCommand.MarkFlagRequired("run-id")

	rootCmd.AddCommand(resumeCommand)
}

func resumePipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runConfigPath = resumeConfigPath
	runVerbose = resumeVerbose
	cfg, err := mergedConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = resumeOutputDir
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = resumeAPIKey
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = resumeVerbose
	}

	machine, cleanup, err := buildMachine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := machine.Resume(ctx, resumeRunID)
	if run != nil {
		printOutcome(run)
	}
	if err != nil {
		return fmt.Errorf("resume failed: %w", err)
	}
	return nil
}
