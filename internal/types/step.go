package types

import "time"

// StepResult is the uniform outcome shape every pipeline step is normalized
// into. Collaborator errors never cross the executor boundary raw; they are
// classified into the Err string here.
type StepResult struct {
	Step      string            `json:"step"`
	Success   bool              `json:"success"`
	Skipped   bool              `json:"skipped,omitempty"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
	Err       string            `json:"error,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// Succeeded builds a successful result.
func Succeeded(step string, artifacts map[string]string) StepResult {
	return StepResult{Step: step, Success: true, Artifacts: artifacts}
}

// Failed builds a failed result with a classified reason.
func Failed(step, reason string) StepResult {
	return StepResult{Step: step, Success: false, Err: reason}
}

// SkippedStep builds a result for a step whose entry condition did not hold.
func SkippedStep(step string) StepResult {
	return StepResult{Step: step, Success: true, Skipped: true}
}

// ProgressEvent is the snapshot streamed to front ends after every step.
type ProgressEvent struct {
	RunID          string   `json:"run_id"`
	Step           string   `json:"step"`
	Status         string   `json:"status"`
	CompletedSteps []string `json:"completed_steps"`
	TankCount      int      `json:"tank_count"`
	Errors         []string `json:"errors,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	Message        string   `json:"message,omitempty"`
}

// ProgressCallback receives progress events; CLI, WebSocket and chat front
// ends all observe run progress through this single channel.
type ProgressCallback func(event ProgressEvent)
