package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mfigueroa/tank-compliance/internal/compliance"
	"github.com/mfigueroa/tank-compliance/internal/excel"
	"github.com/mfigueroa/tank-compliance/internal/geo"
	"github.com/mfigueroa/tank-compliance/internal/hudcalc"
	"github.com/mfigueroa/tank-compliance/internal/kmz"
	"github.com/mfigueroa/tank-compliance/internal/normalize"
	"github.com/mfigueroa/tank-compliance/internal/observability"
	"github.com/mfigueroa/tank-compliance/internal/report"
	"github.com/mfigueroa/tank-compliance/internal/schemas"
	"github.com/mfigueroa/tank-compliance/internal/types"
)

// Archiver receives run records and artifacts for long-term storage. The
// database implements it; archival failures never fail a run.
type Archiver interface {
	CreateRun(ctx context.Context, run *types.PipelineRun) error
	CompleteRun(ctx context.Context, run *types.PipelineRun) error
	SaveArtifact(ctx context.Context, runID, step, category string, content any) error
	SaveTankResults(ctx context.Context, runID string, tanks []*types.Tank) error
}

// Executor holds the collaborators the steps run against.
type Executor struct {
	Calculator hudcalc.Client
	Resolver   normalize.AmbiguityResolver // optional
	Archive    Archiver                    // optional
	Printer    *observability.Printer      // optional
	OnProgress types.ProgressCallback      // optional

	Verbose bool

	// MaxRetries is the number of extra calculator attempts per tank after
	// the first. Retry applies only to the external calculator; every other
	// step is deterministic and retrying it would repeat the same failure.
	MaxRetries   int
	RetryBackoff time.Duration

	// Workers bounds concurrent calculator sessions. Each session is a
	// headless Chrome instance, so the bound stays small.
	Workers int

	// MinTankGallons skips tanks below a volume floor, for surveys that mix
	// drums and portable containers in with fixed tanks.
	MinTankGallons float64
}

const (
	defaultMaxRetries   = 2
	defaultRetryBackoff = 5 * time.Second
	defaultWorkers      = 2
)

func (e *Executor) retries() int {
	if e.MaxRetries < 0 {
		return 0
	}
	if e.MaxRetries == 0 {
		return defaultMaxRetries
	}
	return e.MaxRetries
}

func (e *Executor) backoff() time.Duration {
	if e.RetryBackoff <= 0 {
		return defaultRetryBackoff
	}
	return e.RetryBackoff
}

func (e *Executor) workers() int {
	if e.Workers <= 0 {
		return defaultWorkers
	}
	return e.Workers
}

func (e *Executor) emit(run *types.PipelineRun, step, status, message string) {
	if e.OnProgress == nil {
		return
	}
	e.OnProgress(types.ProgressEvent{
		RunID:          run.RunID,
		Step:           step,
		Status:         status,
		CompletedSteps: append([]string(nil), run.CompletedSteps...),
		TankCount:      run.TankCount(),
		Errors:         append([]string(nil), run.Errors...),
		Warnings:       append([]string(nil), run.Warnings...),
		Message:        message,
	})
}

// archive saves a step artifact to the database when one is configured.
func (e *Executor) archive(ctx context.Context, run *types.PipelineRun, step, category string, content any) {
	if e.Archive == nil {
		return
	}
	if err := e.Archive.SaveArtifact(ctx, run.RunID, step, category, content); err != nil && e.Verbose {
		fmt.Printf("Warning: failed to archive %s artifact: %v\n", step, err)
	}
}

// detectInput classifies the input file by extension.
func (e *Executor) detectInput(_ context.Context, run *types.PipelineRun) types.StepResult {
	if _, err := os.Stat(run.InputPath); err != nil {
		return types.Failed(StepDetectInput, fmt.Sprintf("input file not readable: %v", err))
	}

	switch strings.ToLower(filepath.Ext(run.InputPath)) {
	case ".kmz", ".kml":
		run.InputType = types.InputKMZ
	case ".xlsx", ".xls":
		run.InputType = types.InputExcel
	case ".csv":
		run.InputType = types.InputCSV
	default:
		run.InputType = types.InputUnknown
		return types.Failed(StepDetectInput,
			fmt.Sprintf("unsupported input %q: expected .xlsx, .csv, .kmz or .kml", filepath.Base(run.InputPath)))
	}
	return types.Succeeded(StepDetectInput, nil)
}

// parseKMZ extracts placemarks and the site boundary from a geographic
// archive, then writes a spreadsheet template for the surveyor to fill in
// capacities and tank details.
func (e *Executor) parseKMZ(ctx context.Context, run *types.PipelineRun) types.StepResult {
	site, err := kmz.Parse(run.InputPath)
	if err != nil {
		return classify(StepParseKMZ, err)
	}

	artifacts := map[string]string{}

	if boundary := site.BoundaryPolygon(); boundary != nil && run.PolygonPath == "" {
		polygonPath := filepath.Join(run.OutputDir, "polygon_"+run.RunID+".txt")
		if err := kmz.WritePolygon(polygonPath, boundary); err != nil {
			return classify(StepParseKMZ, err)
		}
		run.PolygonPath = polygonPath
		artifacts[ArtifactPolygon] = polygonPath
	}

	names := make([]string, 0, len(site.Placemarks))
	coords := make([]*types.Coordinates, 0, len(site.Placemarks))
	for _, pm := range site.Placemarks {
		names = append(names, pm.Name)
		coords = append(coords, pm.Coordinates)
	}
	if len(names) == 0 {
		return types.Failed(StepParseKMZ, "archive contains no placemarks to build a tank template from")
	}

	templatePath := filepath.Join(run.OutputDir, "tank_template_"+run.RunID+".xlsx")
	if err := excel.WriteTemplate(templatePath, names, coords); err != nil {
		return classify(StepParseKMZ, err)
	}
	artifacts[ArtifactTankTemplate] = templatePath

	e.archive(ctx, run, StepParseKMZ, "ingestion", map[string]any{
		"placemarks": len(names),
		"polygon":    run.PolygonPath != "",
	})
	return types.Succeeded(StepParseKMZ, artifacts)
}

// sourceTable returns the spreadsheet the run's tank records come from. For
// geographic archives that is the generated template, which the surveyor may
// have filled in between runs.
func sourceTable(run *types.PipelineRun) (*excel.Table, error) {
	path := run.InputPath
	inputType := run.InputType
	if run.InputType == types.InputKMZ {
		path = run.Artifacts[ArtifactTankTemplate]
		if path == "" {
			return nil, errors.New("tank template has not been generated yet")
		}
		inputType = types.InputExcel
	}
	return excel.ReadTable(path, inputType)
}

// normalizeRecords converts raw rows into canonical tank records. Rows are
// never dropped; uninterpretable rows become unresolved tanks plus warnings.
func (e *Executor) normalizeRecords(ctx context.Context, run *types.PipelineRun) types.StepResult {
	table, err := sourceTable(run)
	if err != nil {
		return classify(StepNormalizeRecords, err)
	}

	result, err := normalize.New(e.Resolver).Normalize(ctx, table.Headers, table.Rows)
	if err != nil {
		return classify(StepNormalizeRecords, err)
	}
	run.Tanks = result.Tanks

	recordsPath := filepath.Join(run.OutputDir, "normalized_records_"+run.RunID+".json")
	data, err := json.MarshalIndent(result.Tanks, "", "  ")
	if err != nil {
		return classify(StepNormalizeRecords, err)
	}
	if err := os.WriteFile(recordsPath, data, 0o644); err != nil {
		return classify(StepNormalizeRecords, err)
	}

	if e.Verbose && e.Printer != nil {
		e.Printer.PrintNormalizedTanks(run.Tanks)
	}
	e.archive(ctx, run, StepNormalizeRecords, "records", result.Tanks)

	res := types.Succeeded(StepNormalizeRecords, map[string]string{ArtifactNormalizedTanks: recordsPath})
	res.Warnings = result.Warnings
	return res
}

// validateRecords checks the normalized records against the record schema and
// verifies at least one tank can be queried.
func (e *Executor) validateRecords(_ context.Context, run *types.PipelineRun) types.StepResult {
	if err := schemas.ValidateTankRecords(run.Tanks); err != nil {
		return classify(StepValidateRecords, err)
	}

	resolved := 0
	for _, tank := range run.Tanks {
		if tank.Resolved() {
			resolved++
		}
	}
	if resolved == 0 {
		// On the archive path the template was just generated and its
		// capacity column is empty. Re-run normalization after the surveyor
		// fills it in.
		if run.InputType == types.InputKMZ {
			run.UnmarkCompleted(StepNormalizeRecords)
			return types.Failed(StepValidateRecords, fmt.Sprintf(
				"no tank has a resolvable volume; fill in the generated template %s and resume the run",
				run.Artifacts[ArtifactTankTemplate]))
		}
		return types.Failed(StepValidateRecords, "no tank has a resolvable volume; nothing to query")
	}

	res := types.Succeeded(StepValidateRecords, nil)
	if unresolved := len(run.Tanks) - resolved; unresolved > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%d of %d tanks have no resolvable volume and will be reported as indeterminate", unresolved, len(run.Tanks)))
	}
	return res
}

// queryCalculator runs the external calculator for every resolvable tank that
// does not already carry results. Per-tank failures are contained: one tank
// failing never aborts the others.
func (e *Executor) queryCalculator(ctx context.Context, run *types.PipelineRun) types.StepResult {
	screenshotDir := filepath.Join(run.OutputDir, "screenshots")

	var mu sync.Mutex
	var warnings []string
	attempted := 0
	newResults := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

	for _, tank := range run.Tanks {
		if !tank.Resolved() {
			continue
		}
		if tank.ASD != nil {
			// Already queried in a previous attempt of this run.
			continue
		}
		if e.MinTankGallons > 0 && *tank.VolumeGallons < e.MinTankGallons {
			mu.Lock()
			warnings = append(warnings, fmt.Sprintf(
				"tank %s: volume %.0f gal below floor %.0f gal; not queried", tank.ID, *tank.VolumeGallons, e.MinTankGallons))
			mu.Unlock()
			continue
		}

		attempted++
		tank := tank
		g.Go(func() error {
			result, err := e.queryWithRetry(gctx, tank, screenshotDir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				tank.QueryError = err.Error()
				warnings = append(warnings, fmt.Sprintf("tank %s: %v", tank.ID, err))
				// Per-tank failures stay per-tank.
				return nil
			}
			tank.ASD = result
			tank.QueryError = ""
			newResults++
			e.emit(run, StepQueryHUD, "running", fmt.Sprintf("tank %s queried", tank.ID))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return classify(StepQueryHUD, err)
	}
	if err := ctx.Err(); err != nil {
		return types.Failed(StepQueryHUD, "canceled before all tanks were queried")
	}

	succeeded := 0
	for _, tank := range run.Tanks {
		if tank.ASD != nil {
			succeeded++
		}
	}
	if succeeded == 0 {
		res := types.Failed(StepQueryHUD, fmt.Sprintf("all %d calculator queries failed", attempted))
		res.Warnings = warnings
		return res
	}

	// Fresh results invalidate anything previously derived from them. On a
	// resumed run this forces the evidence, merge and verdict steps to rerun.
	if newResults > 0 {
		run.UnmarkCompleted(StepGenerateEvidence)
		run.UnmarkCompleted(StepMergeResults)
		run.UnmarkCompleted(StepEvaluateCompliance)
	}

	if e.Verbose && e.Printer != nil {
		e.Printer.PrintCalculatorResults(run.Tanks)
	}
	e.archive(ctx, run, StepQueryHUD, "calculator", run.Tanks)

	res := types.Succeeded(StepQueryHUD, nil)
	res.Warnings = warnings
	return res
}

// queryWithRetry wraps one tank's query with the retry budget. Only the
// calculator gets retries; transient site slowness is its normal failure mode.
func (e *Executor) queryWithRetry(ctx context.Context, tank *types.Tank, screenshotDir string) (*types.ASDResult, error) {
	var lastErr error
	attempts := 1 + e.retries()

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.backoff() * time.Duration(attempt-1)):
			}
		}

		result, err := e.Calculator.Query(ctx, tank, screenshotDir)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Structural mismatches will not heal between attempts.
		var pse *hudcalc.PageStructureError
		if errors.As(err, &pse) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w (after %d attempts)", lastErr, attempts)
}

// generateEvidence assembles the screenshot PDF.
func (e *Executor) generateEvidence(ctx context.Context, run *types.PipelineRun) types.StepResult {
	pdfPath := filepath.Join(run.OutputDir, "evidence_"+run.RunID+".pdf")
	err := report.WriteEvidencePDF(pdfPath, run.Tanks, report.EvidenceOptions{RunID: run.RunID})
	if err != nil {
		return classify(StepGenerateEvidence, err)
	}
	e.archive(ctx, run, StepGenerateEvidence, "evidence", map[string]any{"path": pdfPath})
	return types.Succeeded(StepGenerateEvidence, map[string]string{ArtifactEvidencePDF: pdfPath})
}

// mergeResults writes the merged spreadsheet: the original rows plus the
// calculator result columns. The compliance step rewrites the same file once
// verdicts exist.
func (e *Executor) mergeResults(ctx context.Context, run *types.PipelineRun) types.StepResult {
	table, err := sourceTable(run)
	if err != nil {
		return classify(StepMergeResults, err)
	}

	reportPath := filepath.Join(run.OutputDir, "compliance_report_"+run.RunID+".xlsx")
	if err := excel.WriteComplianceReport(table, run.Tanks, reportPath); err != nil {
		return classify(StepMergeResults, err)
	}
	e.archive(ctx, run, StepMergeResults, "report", map[string]any{"path": reportPath})
	return types.Succeeded(StepMergeResults, map[string]string{ArtifactComplianceReport: reportPath})
}

// calculateDistances computes each tank's distance to the site boundary.
func (e *Executor) calculateDistances(ctx context.Context, run *types.PipelineRun) types.StepResult {
	polygon, err := geo.LoadPolygon(run.PolygonPath)
	if err != nil {
		return classify(StepCalculateDistances, err)
	}

	res := types.Succeeded(StepCalculateDistances, nil)
	for _, tank := range run.Tanks {
		if tank.Coordinates == nil {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("tank %s: no coordinates; distance not calculated", tank.ID))
			continue
		}
		boundary, err := geo.DistanceToBoundary(*tank.Coordinates, polygon)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("tank %s: %v", tank.ID, err))
			continue
		}
		tank.ActualDistanceFeet = types.Float64Ptr(boundary.DistanceFeet)
		tank.InsideBoundary = boundary.Inside
		closest := boundary.ClosestPoint
		tank.ClosestPoint = &closest
	}
	e.archive(ctx, run, StepCalculateDistances, "geometry", run.Tanks)
	return res
}

// evaluateCompliance assigns verdicts and rewrites the merged spreadsheet so
// the final report carries them.
func (e *Executor) evaluateCompliance(ctx context.Context, run *types.PipelineRun) types.StepResult {
	for _, tank := range run.Tanks {
		compliance.Apply(tank)
	}

	artifacts := map[string]string{}
	if reportPath := run.Artifacts[ArtifactComplianceReport]; reportPath != "" {
		table, err := sourceTable(run)
		if err != nil {
			return classify(StepEvaluateCompliance, err)
		}
		if err := excel.WriteComplianceReport(table, run.Tanks, reportPath); err != nil {
			return classify(StepEvaluateCompliance, err)
		}
		artifacts[ArtifactComplianceReport] = reportPath
	}

	if e.Verbose && e.Printer != nil {
		e.Printer.PrintComplianceSummary(run.Tanks)
	}
	if e.Archive != nil {
		if err := e.Archive.SaveTankResults(ctx, run.RunID, run.Tanks); err != nil && e.Verbose {
			fmt.Printf("Warning: failed to archive tank results: %v\n", err)
		}
	}
	return types.Succeeded(StepEvaluateCompliance, artifacts)
}

// summarize writes the run summary artifact. It runs even when the pipeline
// halted earlier, so every run leaves a human-readable account of itself.
func (e *Executor) summarize(ctx context.Context, run *types.PipelineRun) types.StepResult {
	summaryPath := filepath.Join(run.OutputDir, "run_summary_"+run.RunID+".txt")
	text := BuildSummary(run)
	if err := os.WriteFile(summaryPath, []byte(text), 0o644); err != nil {
		return classify(StepSummarize, err)
	}

	if e.Verbose && e.Printer != nil {
		e.Printer.PrintRunSummary(run)
	}
	e.archive(ctx, run, StepSummarize, "summary", map[string]any{"path": summaryPath})
	return types.Succeeded(StepSummarize, map[string]string{ArtifactRunSummary: summaryPath})
}
