package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

func TestPrintNormalizedTanks(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	tanks := []*types.Tank{
		{ID: "tank-001", VolumeGallons: types.Float64Ptr(50000), VolumeSource: types.VolumeProvided},
		{ID: "tank-002", VolumeSource: types.VolumeUnresolved},
	}

	p.PrintNormalizedTanks(tanks)
	output := buf.String()

	assert.Contains(t, output, "NORMALIZED TANK RECORDS")
	assert.Contains(t, output, "2 (1 with resolved volume)")
	assert.Contains(t, output, "tank-001")
	assert.Contains(t, output, "volume unresolved")
}

func TestPrintNormalizedTanks_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintNormalizedTanks(nil)

	assert.Empty(t, buf.String())
}

func TestPrintCalculatorResults(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	tanks := []*types.Tank{
		{
			ID:  "tank-001",
			ASD: &types.ASDResult{ASDPPUFeet: types.Float64Ptr(120)},
		},
		{
			ID:         "tank-002",
			QueryError: "calculator query timed out",
		},
	}

	p.PrintCalculatorResults(tanks)
	output := buf.String()

	assert.Contains(t, output, "CALCULATOR RESULTS")
	assert.Contains(t, output, "Queried: 1   Failed: 1")
	assert.Contains(t, output, "max ASD 120 ft")
	assert.Contains(t, output, "tank-002")
}

func TestPrintComplianceSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	tanks := []*types.Tank{
		{ID: "tank-001", Verdict: types.VerdictCompliant},
		{ID: "tank-002", Verdict: types.VerdictNonCompliant, MarginFeet: types.Float64Ptr(-25)},
		{ID: "tank-003", Verdict: types.VerdictIndeterminate},
	}

	p.PrintComplianceSummary(tanks)
	output := buf.String()

	assert.Contains(t, output, "COMPLIANCE VERDICTS")
	assert.Contains(t, output, "Compliant:      1")
	assert.Contains(t, output, "Non-compliant:  1")
	assert.Contains(t, output, "Indeterminate:  1")
	assert.Contains(t, output, "short by 25 ft")
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	run := types.NewRun("run-001", "tanks.xlsx", "out")
	run.Status = types.StatusCompletedWithWarnings
	run.MarkCompleted("normalize_records")
	run.MarkSkipped("calculate_distances")
	run.AddArtifact("evidence_pdf", "out/evidence.pdf")
	run.AddWarning("row 3: generated tank id")

	p.PrintRunSummary(run)
	output := buf.String()

	assert.Contains(t, output, "RUN SUMMARY")
	assert.Contains(t, output, "run-001")
	assert.Contains(t, output, "completed_with_warnings")
	assert.Contains(t, output, "1 completed, 1 skipped")
	assert.Contains(t, output, "evidence_pdf")
	assert.Contains(t, output, "Warnings: 1")
}

func TestPrintRunSummary_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRunSummary(nil)

	assert.Empty(t, buf.String())
}
