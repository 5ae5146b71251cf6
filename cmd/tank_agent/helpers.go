package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mfigueroa/tank-compliance/internal/checkpoint"
	"github.com/mfigueroa/tank-compliance/internal/config"
	"github.com/mfigueroa/tank-compliance/internal/db"
	"github.com/mfigueroa/tank-compliance/internal/hudcalc"
	"github.com/mfigueroa/tank-compliance/internal/llm"
	"github.com/mfigueroa/tank-compliance/internal/normalize"
	"github.com/mfigueroa/tank-compliance/internal/observability"
	"github.com/mfigueroa/tank-compliance/internal/pipeline"
	"github.com/mfigueroa/tank-compliance/internal/types"
)

// checkpointDir is where run state lives, relative to the output directory.
func checkpointDir(outputDir string) string {
	if outputDir == "" {
		outputDir = "output"
	}
	return filepath.Join(outputDir, "checkpoints")
}

// buildMachine wires the executor's collaborators from the merged config.
// Optional collaborators degrade gracefully: no API key means no ambiguity
// resolver, an unreachable database means no archive.
func buildMachine(ctx context.Context, cfg config.Config) (*pipeline.Machine, func(), error) {
	cleanup := func() {}

	calcOpts := []hudcalc.Option{hudcalc.WithVerbose(cfg.Verbose)}
	if cfg.CalculatorURL != "" {
		calcOpts = append(calcOpts, hudcalc.WithURL(cfg.CalculatorURL))
	}
	if timeout, err := cfg.ParsedQueryTimeout(); err == nil && timeout > 0 {
		calcOpts = append(calcOpts, hudcalc.WithTimeout(timeout))
	}

	var resolver normalize.AmbiguityResolver
	if cfg.APIKey != "" {
		client, err := llm.NewGeminiClient(ctx, cfg.APIKey, "")
		if err != nil {
			fmt.Printf("Warning: LLM client unavailable: %v\n", err)
			fmt.Printf("Continuing with deterministic parsing only...\n")
		} else {
			resolver = llm.NewCapacityResolver(client)
			old := cleanup
			cleanup = func() { _ = client.Close(); old() }
		}
	}

	var archive pipeline.Archiver
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Printf("Warning: Failed to connect to database: %v\n", err)
			fmt.Printf("Continuing without database persistence...\n")
		} else if err := database.EnsureSchema(ctx); err != nil {
			fmt.Printf("Warning: Failed to prepare archive schema: %v\n", err)
			database.Close()
		} else {
			archive = database
			old := cleanup
			cleanup = func() { database.Close(); old() }
		}
	}

	backoff, _ := cfg.ParsedRetryBackoff()

	executor := &pipeline.Executor{
		Calculator:     hudcalc.NewBrowserClient(calcOpts...),
		Resolver:       resolver,
		Archive:        archive,
		Printer:        observability.NewPrinter(os.Stdout),
		Verbose:        cfg.Verbose,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   backoff,
		Workers:        cfg.Workers,
		MinTankGallons: cfg.MinTankGallons,
		OnProgress:     progressPrinter(),
	}

	store, err := checkpoint.NewStore(checkpointDir(cfg.OutputDir))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return pipeline.NewMachine(executor, store), cleanup, nil
}

// progressPrinter logs step transitions to stdout.
func progressPrinter() types.ProgressCallback {
	return func(event types.ProgressEvent) {
		switch event.Status {
		case "running":
			if event.Message == "" {
				fmt.Printf("[%s] %s...\n", time.Now().Format("15:04:05"), event.Step)
			} else {
				fmt.Printf("[%s] %s: %s\n", time.Now().Format("15:04:05"), event.Step, event.Message)
			}
		case "completed":
			fmt.Printf("[%s] %s done\n", time.Now().Format("15:04:05"), event.Step)
		case "skipped":
			fmt.Printf("[%s] %s skipped (%s)\n", time.Now().Format("15:04:05"), event.Step, event.Message)
		case "failed":
			fmt.Printf("[%s] %s FAILED: %s\n", time.Now().Format("15:04:05"), event.Step, event.Message)
		}
	}
}

func printOutcome(run *types.PipelineRun) {
	fmt.Println()
	fmt.Println(pipeline.BuildSummary(run))
	if run.Status == types.StatusFailed {
		fmt.Printf("Resume this run with: tank_agent resume --run-id %s\n", run.RunID)
	}
}
