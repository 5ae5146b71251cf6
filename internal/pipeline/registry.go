// Package pipeline orchestrates the tank compliance workflow as a resumable
// state machine: every step checkpoints the run, critical failures halt it,
// and a resumed run continues at the first step not yet completed.
package pipeline

import (
	"context"
	"fmt"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// Step names, in execution order.
const (
	StepDetectInput        = "detect_input"
	StepParseKMZ           = "parse_kmz"
	StepNormalizeRecords   = "normalize_records"
	StepValidateRecords    = "validate_records"
	StepQueryHUD           = "query_hud"
	StepGenerateEvidence   = "generate_evidence"
	StepMergeResults       = "merge_results"
	StepCalculateDistances = "calculate_distances"
	StepEvaluateCompliance = "evaluate_compliance"
	StepSummarize          = "summarize"
)

// Artifact names recorded on the run.
const (
	ArtifactPolygon          = "boundary_polygon"
	ArtifactTankTemplate     = "tank_template"
	ArtifactNormalizedTanks  = "normalized_records"
	ArtifactEvidencePDF      = "evidence_pdf"
	ArtifactComplianceReport = "compliance_report"
	ArtifactRunSummary       = "run_summary"
)

// StepFunc executes one step against the run, mutating it in place and
// returning a uniform result.
type StepFunc func(ctx context.Context, run *types.PipelineRun) types.StepResult

// Step is one entry in the workflow.
type Step struct {
	Name string

	// Critical steps halt the run on failure. Optional steps record a
	// warning and let the run continue.
	Critical bool

	// Condition gates execution. A false condition marks the step skipped,
	// which is not a failure. Nil means the step always runs.
	Condition func(run *types.PipelineRun) (bool, string)

	Run StepFunc
}

// Steps returns the ordered workflow backed by the executor's collaborators.
func (e *Executor) Steps() []Step {
	return []Step{
		{
			Name:     StepDetectInput,
			Critical: true,
			Run:      e.detectInput,
		},
		{
			Name:     StepParseKMZ,
			Critical: true,
			Condition: func(run *types.PipelineRun) (bool, string) {
				if run.InputType != types.InputKMZ {
					return false, "input is not a geographic archive"
				}
				return true, ""
			},
			Run: e.parseKMZ,
		},
		{
			Name:     StepNormalizeRecords,
			Critical: true,
			Run:      e.normalizeRecords,
		},
		{
			Name:     StepValidateRecords,
			Critical: true,
			Run:      e.validateRecords,
		},
		{
			// A calculator outage degrades the run instead of halting it: the
			// merged sheet and indeterminate verdicts still get written, and a
			// resume re-queries once the site recovers.
			Name:     StepQueryHUD,
			Critical: false,
			Run:      e.queryCalculator,
		},
		{
			Name:     StepGenerateEvidence,
			Critical: false,
			Condition: func(run *types.PipelineRun) (bool, string) {
				for _, tank := range run.Tanks {
					if tank.ASD != nil {
						return true, ""
					}
				}
				return false, "no tank has calculator results"
			},
			Run: e.generateEvidence,
		},
		{
			Name:     StepMergeResults,
			Critical: false,
			Run:      e.mergeResults,
		},
		{
			Name:     StepCalculateDistances,
			Critical: false,
			Condition: func(run *types.PipelineRun) (bool, string) {
				if run.PolygonPath == "" {
					return false, "no boundary polygon available"
				}
				return true, ""
			},
			Run: e.calculateDistances,
		},
		{
			Name:     StepEvaluateCompliance,
			Critical: false,
			Run:      e.evaluateCompliance,
		},
		{
			Name:     StepSummarize,
			Critical: false,
			Run:      e.summarize,
		},
	}
}

// StepNames returns the workflow's step names in order.
func StepNames() []string {
	return []string{
		StepDetectInput,
		StepParseKMZ,
		StepNormalizeRecords,
		StepValidateRecords,
		StepQueryHUD,
		StepGenerateEvidence,
		StepMergeResults,
		StepCalculateDistances,
		StepEvaluateCompliance,
		StepSummarize,
	}
}

// classify turns a collaborator error into a step failure message. Raw errors
// never cross the executor boundary.
func classify(step string, err error) types.StepResult {
	return types.Failed(step, fmt.Sprintf("%s failed: %v", step, err))
}
