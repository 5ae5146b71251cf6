package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mfigueroa/tank-compliance/internal/checkpoint"
	"github.com/mfigueroa/tank-compliance/internal/types"
)

// RunOptions configures one pipeline invocation. Continuing an existing run
// goes through Resume, never through Start.
type RunOptions struct {
	InputPath   string
	PolygonPath string
	OutputDir   string
}

// Machine drives the workflow: it owns checkpointing and the halt/continue
// decisions, while the Executor owns the step semantics.
type Machine struct {
	executor *Executor
	store    *checkpoint.Store
}

// NewMachine builds a machine over an executor and a checkpoint store.
func NewMachine(executor *Executor, store *checkpoint.Store) *Machine {
	return &Machine{executor: executor, store: store}
}

// Start begins a new run and executes it to completion or halt.
func (m *Machine) Start(ctx context.Context, opts RunOptions) (*types.PipelineRun, error) {
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "output"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %s: %w", outputDir, err)
	}

	runID := "run-" + uuid.NewString()[:8]
	run := types.NewRun(runID, opts.InputPath, outputDir)
	run.PolygonPath = opts.PolygonPath

	if m.executor.Archive != nil {
		if err := m.executor.Archive.CreateRun(ctx, run); err != nil && m.executor.Verbose {
			fmt.Printf("Warning: failed to record run in archive: %v\n", err)
		}
	}

	return m.execute(ctx, run)
}

// Resume loads a checkpointed run and continues at the first step that has
// not completed. Tanks that already carry calculator results are never
// re-queried.
func (m *Machine) Resume(ctx context.Context, runID string) (*types.PipelineRun, error) {
	run, err := m.store.Load(runID)
	if err != nil {
		return nil, err
	}
	if run.Status == types.StatusCompleted {
		return run, nil
	}

	// A previous halt is not this attempt's halt.
	run.Status = types.StatusRunning
	run.HaltReason = ""
	run.FinishedAt = time.Time{}

	return m.execute(ctx, run)
}

func (m *Machine) execute(ctx context.Context, run *types.PipelineRun) (*types.PipelineRun, error) {
	halted := false

	for _, step := range m.executor.Steps() {
		if step.Name == StepSummarize {
			// Runs after the halt decision, below.
			continue
		}
		if run.HasCompleted(step.Name) {
			continue
		}

		// Cancellation is honored at step boundaries only; a step in flight
		// finishes or fails on its own context.
		if err := ctx.Err(); err != nil {
			run.Status = types.StatusFailed
			run.HaltReason = "canceled"
			halted = true
			break
		}

		if step.Condition != nil {
			ok, reason := step.Condition(run)
			if !ok {
				run.MarkSkipped(step.Name)
				m.executor.emit(run, step.Name, "skipped", reason)
				if err := m.store.Save(run); err != nil {
					return run, err
				}
				continue
			}
		}

		run.CurrentStep = step.Name
		m.executor.emit(run, step.Name, "running", "")

		result := m.runStep(ctx, step, run)

		for _, w := range result.Warnings {
			run.AddWarning(w)
		}

		if result.Success {
			run.MarkCompleted(step.Name)
			for name, path := range result.Artifacts {
				run.AddArtifact(name, path)
			}
			m.executor.emit(run, step.Name, "completed", "")
		} else {
			run.AddError(result.Err)
			m.executor.emit(run, step.Name, "failed", result.Err)
			if step.Critical {
				run.Status = types.StatusFailed
				run.HaltReason = result.Err
				halted = true
			}
		}

		if err := m.store.Save(run); err != nil {
			return run, fmt.Errorf("failed to checkpoint after %s: %w", step.Name, err)
		}
		if halted {
			break
		}
	}

	if !halted {
		if len(run.Warnings) > 0 || len(run.Errors) > 0 {
			run.Status = types.StatusCompletedWithWarnings
		} else {
			run.Status = types.StatusCompleted
		}
	}
	run.FinishedAt = time.Now()

	// The summary always runs, even for a halted run.
	m.runSummarize(ctx, run)

	if err := m.store.Save(run); err != nil {
		return run, fmt.Errorf("failed to write final checkpoint: %w", err)
	}
	if m.executor.Archive != nil {
		if err := m.executor.Archive.CompleteRun(ctx, run); err != nil && m.executor.Verbose {
			fmt.Printf("Warning: failed to record run completion in archive: %v\n", err)
		}
	}

	if halted {
		return run, fmt.Errorf("run %s halted: %s", run.RunID, run.HaltReason)
	}
	return run, nil
}

// runStep executes one step with panic containment. A panicking step becomes
// a failed step, not a crashed process with a stale checkpoint.
func (m *Machine) runStep(ctx context.Context, step Step, run *types.PipelineRun) (result types.StepResult) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = types.Failed(step.Name, fmt.Sprintf("%s panicked: %v", step.Name, r))
		}
		result.Duration = time.Since(started)
	}()
	return step.Run(ctx, run)
}

func (m *Machine) runSummarize(ctx context.Context, run *types.PipelineRun) {
	if run.HasCompleted(StepSummarize) {
		run.UnmarkCompleted(StepSummarize)
	}
	result := m.runStep(ctx, Step{Name: StepSummarize, Run: m.executor.summarize}, run)
	if result.Success {
		run.MarkCompleted(StepSummarize)
		for name, path := range result.Artifacts {
			run.AddArtifact(name, path)
		}
	} else {
		run.AddWarning(result.Err)
	}
}
