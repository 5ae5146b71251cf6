package types

import (
	"time"
)

// InputType classifies the detected input file format.
type InputType string

const (
	InputKMZ     InputType = "kmz"
	InputExcel   InputType = "excel"
	InputCSV     InputType = "csv"
	InputUnknown InputType = "unknown"
)

// RunStatus describes the terminal (or in-flight) state of a pipeline run.
type RunStatus string

const (
	StatusRunning               RunStatus = "running"
	StatusCompleted             RunStatus = "completed"
	StatusCompletedWithWarnings RunStatus = "completed_with_warnings"
	StatusFailed                RunStatus = "failed"
)

// PipelineRun is the accumulated state of one execution of the workflow for
// one input file. It is checkpointed after every step and is the unit of
// resume: re-invoking with the same RunID loads the latest checkpoint and
// continues at the first step not yet completed.
type PipelineRun struct {
	RunID     string    `json:"run_id"`
	InputPath string    `json:"input_path"`
	InputType InputType `json:"input_type"`
	OutputDir string    `json:"output_dir"`

	// PolygonPath is the boundary polygon file, either supplied by the caller
	// or extracted from a KMZ input. Empty means the distance step is skipped.
	PolygonPath string `json:"polygon_path,omitempty"`

	// Tanks preserves source row order; report rows align to this order.
	Tanks []*Tank `json:"tanks"`

	CurrentStep    string   `json:"current_step"`
	CompletedSteps []string `json:"completed_steps"`
	SkippedSteps   []string `json:"skipped_steps"`

	// Artifacts maps artifact name to file path. Entries are added only after
	// the producing step reports success.
	Artifacts map[string]string `json:"artifacts"`

	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`

	Status     RunStatus `json:"status"`
	HaltReason string    `json:"halt_reason,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// NewRun initializes a run in the running state.
func NewRun(runID, inputPath, outputDir string) *PipelineRun {
	return &PipelineRun{
		RunID:     runID,
		InputPath: inputPath,
		OutputDir: outputDir,
		Artifacts: map[string]string{},
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
}

// HasCompleted reports whether the named step already ran successfully.
func (r *PipelineRun) HasCompleted(step string) bool {
	for _, s := range r.CompletedSteps {
		if s == step {
			return true
		}
	}
	return false
}

// MarkCompleted records a successful step exactly once.
func (r *PipelineRun) MarkCompleted(step string) {
	if !r.HasCompleted(step) {
		r.CompletedSteps = append(r.CompletedSteps, step)
	}
}

// UnmarkCompleted removes a step from the completed set so a resumed run will
// execute it again. Used when a downstream failure invalidates its output.
func (r *PipelineRun) UnmarkCompleted(step string) {
	kept := r.CompletedSteps[:0]
	for _, s := range r.CompletedSteps {
		if s != step {
			kept = append(kept, s)
		}
	}
	r.CompletedSteps = kept
}

// MarkSkipped records a step whose entry condition did not hold.
func (r *PipelineRun) MarkSkipped(step string) {
	for _, s := range r.SkippedSteps {
		if s == step {
			return
		}
	}
	r.SkippedSteps = append(r.SkippedSteps, step)
}

// AddArtifact records a produced artifact path.
func (r *PipelineRun) AddArtifact(name, path string) {
	if r.Artifacts == nil {
		r.Artifacts = map[string]string{}
	}
	r.Artifacts[name] = path
}

// AddWarning appends a human-readable warning.
func (r *PipelineRun) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// AddError appends a human-readable error without halting the run.
func (r *PipelineRun) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// TankCount returns the number of normalized tanks.
func (r *PipelineRun) TankCount() int { return len(r.Tanks) }

// Terminal reports whether the run has reached a final status.
func (r *PipelineRun) Terminal() bool {
	return r.Status != StatusRunning
}
