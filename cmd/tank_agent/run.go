package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mfigueroa/tank-compliance/internal/config"
	"github.com/mfigueroa/tank-compliance/internal/pipeline"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full compliance pipeline end-to-end",
	Long: `Orchestrates the entire compliance workflow: detect input -> parse archive -> normalize -> validate -> query calculator -> evidence PDF -> merge spreadsheet -> boundary distances -> verdicts -> summary.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath     string
	runInput          string
	runPolygon        string
	runOutputDir      string
	runCalculatorURL  string
	runQueryTimeout   string
	runMaxRetries     int
	runWorkers        int
	runMinTankGallons float64
	runAPIKey         string
	runDatabaseURL    string
	runVerbose        bool
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runInput, "input", "i", "", "Path to tank spreadsheet (.xlsx/.csv) or geographic archive (.kmz/.kml)")
	runCommand.Flags().StringVarP(&runPolygon, "polygon", "p", "", "Path to boundary polygon file, one \"lon,lat\" per line (optional for KMZ inputs)")
	runCommand.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "Directory for artifacts (default ./output)")
	runCommand.Flags().StringVar(&runCalculatorURL, "calculator-url", "", "Override the HUD calculator URL")
	runCommand.Flags().StringVar(&runQueryTimeout, "query-timeout", "", "Per-tank calculator budget, e.g. 45s")
	runCommand.Flags().IntVar(&runMaxRetries, "max-retries", 0, "Extra calculator attempts per tank after the first (default 2)")
	runCommand.Flags().IntVar(&runWorkers, "workers", 0, "Concurrent calculator sessions (default 2)")
	runCommand.Flags().Float64Var(&runMinTankGallons, "min-gallons", 0, "Skip tanks below this volume")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed progress boxes")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API key for ambiguous capacity text (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for artifact persistence
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := mergedConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Input == "" {
		return fmt.Errorf("--input is required (via flag or config)")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	machine, cleanup, err := buildMachine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := machine.Start(ctx, pipeline.RunOptions{
		InputPath:   cfg.Input,
		PolygonPath: cfg.Polygon,
		OutputDir:   cfg.OutputDir,
	})
	if run != nil {
		printOutcome(run)
	}
	return err
}

// mergedConfig layers flag values over the config file over the environment.
func mergedConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if runConfigPath != "" {
		loaded, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
		if runVerbose {
			fmt.Printf("Loaded config from: %s\n", runConfigPath)
		}
	}

	// CLI flags take priority, but only when explicitly set.
	if cmd.Flags().Changed("input") {
		cfg.Input = runInput
	}
	if cmd.Flags().Changed("polygon") {
		cfg.Polygon = runPolygon
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = runOutputDir
	}
	if cmd.Flags().Changed("calculator-url") {
		cfg.CalculatorURL = runCalculatorURL
	}
	if cmd.Flags().Changed("query-timeout") {
		cfg.QueryTimeout = runQueryTimeout
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.MaxRetries = runMaxRetries
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = runWorkers
	}
	if cmd.Flags().Changed("min-gallons") {
		cfg.MinTankGallons = runMinTankGallons
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	cfg = cfg.MergeWithDefaults(config.Config{
		OutputDir:    "output",
		QueryTimeout: "45s",
		RetryBackoff: "5s",
	})

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}
