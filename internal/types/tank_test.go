package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestASDResultRequiredFeet(t *testing.T) {
	tests := []struct {
		name     string
		result   *ASDResult
		hasDike  bool
		expected *float64
	}{
		{
			name:     "nil result",
			result:   nil,
			hasDike:  false,
			expected: nil,
		},
		{
			name: "undiked uses people/building values",
			result: &ASDResult{
				ASDPPUFeet: Float64Ptr(120),
				ASDBPUFeet: Float64Ptr(90),
			},
			hasDike:  false,
			expected: Float64Ptr(120),
		},
		{
			name: "diked prefers diked fields",
			result: &ASDResult{
				ASDPPUFeet:  Float64Ptr(200),
				ASDPNPDFeet: Float64Ptr(45),
				ASDBNPDFeet: Float64Ptr(60),
			},
			hasDike:  true,
			expected: Float64Ptr(60),
		},
		{
			name: "diked falls back to max when diked fields absent",
			result: &ASDResult{
				ASDPPUFeet: Float64Ptr(110),
				ASDBPUFeet: Float64Ptr(140),
			},
			hasDike:  true,
			expected: Float64Ptr(140),
		},
		{
			name:     "no values at all",
			result:   &ASDResult{},
			hasDike:  false,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.result.RequiredFeet(tt.hasDike)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}

func TestRunCompletedStepBookkeeping(t *testing.T) {
	run := NewRun("run-1", "tanks.xlsx", "out")

	assert.False(t, run.HasCompleted("normalize_records"))

	run.MarkCompleted("normalize_records")
	run.MarkCompleted("normalize_records")
	assert.Equal(t, []string{"normalize_records"}, run.CompletedSteps)
	assert.True(t, run.HasCompleted("normalize_records"))

	run.MarkCompleted("validate_records")
	run.UnmarkCompleted("normalize_records")
	assert.Equal(t, []string{"validate_records"}, run.CompletedSteps)
}

func TestRunArtifactsAdditive(t *testing.T) {
	run := NewRun("run-2", "tanks.xlsx", "out")
	run.AddArtifact("tank_config", "out/tank_config.json")
	run.AddArtifact("compliance_report", "out/report.xlsx")

	assert.Len(t, run.Artifacts, 2)
	assert.Equal(t, "out/tank_config.json", run.Artifacts["tank_config"])
}

func TestTankResolved(t *testing.T) {
	tank := &Tank{VolumeSource: VolumeUnresolved}
	assert.False(t, tank.Resolved())

	tank.VolumeGallons = Float64Ptr(500)
	tank.VolumeSource = VolumeProvided
	assert.True(t, tank.Resolved())
}
