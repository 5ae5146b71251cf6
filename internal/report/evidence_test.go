package report

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

func writeTestScreenshot(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 80, 40))
	for x := 0; x < 80; x++ {
		for y := 0; y < 40; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 200, B: 255, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func evidenceTank(id string, screenshot string) *types.Tank {
	return &types.Tank{
		ID:            id,
		Name:          "Fuel depot " + id,
		VolumeGallons: types.Float64Ptr(50000),
		VolumeSource:  types.VolumeProvided,
		ASD: &types.ASDResult{
			ASDPPUFeet:     types.Float64Ptr(120),
			ASDBPUFeet:     types.Float64Ptr(95),
			ScreenshotPath: screenshot,
		},
	}
}

func TestWriteEvidencePDF(t *testing.T) {
	dir := t.TempDir()
	shot1 := writeTestScreenshot(t, dir, "tank-001.png")
	shot2 := writeTestScreenshot(t, dir, "tank-002.png")

	failed := &types.Tank{
		ID:         "tank-003",
		QueryError: "calculator query timed out",
	}

	outPath := filepath.Join(dir, "evidence.pdf")
	err := WriteEvidencePDF(outPath, []*types.Tank{
		evidenceTank("tank-001", shot1),
		evidenceTank("tank-002", shot2),
		failed,
	}, EvidenceOptions{RunID: "run-abc"})
	require.NoError(t, err)

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(1000))
}

func TestWriteEvidencePDFNoEvidence(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "evidence.pdf")
	err := WriteEvidencePDF(outPath, []*types.Tank{
		{ID: "tank-001", QueryError: "boom"},
	}, EvidenceOptions{})
	require.Error(t, err)
	assert.NoFileExists(t, outPath)
}

func TestWriteEvidencePDFMissingScreenshot(t *testing.T) {
	tank := evidenceTank("tank-001", filepath.Join(t.TempDir(), "gone.png"))
	outPath := filepath.Join(t.TempDir(), "evidence.pdf")
	err := WriteEvidencePDF(outPath, []*types.Tank{tank}, EvidenceOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "screenshot missing")
}

func TestFormatASDLine(t *testing.T) {
	asd := &types.ASDResult{
		ASDPPUFeet: types.Float64Ptr(120),
		ASDBPUFeet: types.Float64Ptr(95.5),
	}
	assert.Equal(t, "ASDPPU - 120 ft ; ASDBPU - 95.5 ft", formatASDLine(asd))
	assert.Equal(t, "none", formatASDLine(nil))
	assert.Equal(t, "none", formatASDLine(&types.ASDResult{}))
}
