package hudcalc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

func testTank(id string, gallons float64) *types.Tank {
	return &types.Tank{
		ID:            id,
		VolumeGallons: types.Float64Ptr(gallons),
		VolumeSource:  types.VolumeProvided,
	}
}

const resultPage = `<html><body>
<form>
  <input type="checkbox" id="form_chkAboveGround" value="Yes" checked>
  <input name="volume" value="50000">
  <input name="ppuResult" value="120">
  <input name="bpuResult" value="95 ft">
  <input name="pnpdResult" value="">
  <input name="bnpdResult" value="">
</form>
</body></html>`

const dikedResultPage = `<html><body>
<form>
  <input name="ppuResult" value="120">
  <input name="bpuResult" value="95">
  <input name="pnpdResult" value="48">
  <input name="bnpdResult" value="36.5">
</form>
</body></html>`

const legacyNamesPage = `<html><body>
<form>
  <input id="asdppu" value="1,200">
  <input id="asdbpu" value="800">
</form>
</body></html>`

func TestParseResults(t *testing.T) {
	result, err := parseResults(resultPage)
	require.NoError(t, err)

	require.NotNil(t, result.ASDPPUFeet)
	assert.Equal(t, 120.0, *result.ASDPPUFeet)
	require.NotNil(t, result.ASDBPUFeet)
	assert.Equal(t, 95.0, *result.ASDBPUFeet)
	assert.Nil(t, result.ASDPNPDFeet)
	assert.Nil(t, result.ASDBNPDFeet)

	required := result.RequiredFeet(false)
	require.NotNil(t, required)
	assert.Equal(t, 120.0, *required)
}

func TestParseResultsDiked(t *testing.T) {
	result, err := parseResults(dikedResultPage)
	require.NoError(t, err)

	require.NotNil(t, result.ASDPNPDFeet)
	assert.Equal(t, 48.0, *result.ASDPNPDFeet)
	require.NotNil(t, result.ASDBNPDFeet)
	assert.Equal(t, 36.5, *result.ASDBNPDFeet)

	// A diked tank is governed by the diked values, not the larger
	// undiked ones.
	required := result.RequiredFeet(true)
	require.NotNil(t, required)
	assert.Equal(t, 48.0, *required)
}

func TestParseResultsLegacyFieldNames(t *testing.T) {
	result, err := parseResults(legacyNamesPage)
	require.NoError(t, err)

	require.NotNil(t, result.ASDPPUFeet)
	assert.Equal(t, 1200.0, *result.ASDPPUFeet)
	require.NotNil(t, result.ASDBPUFeet)
	assert.Equal(t, 800.0, *result.ASDBPUFeet)
}

func TestParseResultsMissingFields(t *testing.T) {
	var pse *PageStructureError

	_, err := parseResults(`<html><body><p>maintenance page</p></body></html>`)
	require.Error(t, err)
	require.True(t, errors.As(err, &pse))
	assert.Contains(t, pse.Error(), "result fields")
}

func TestParseResultsAllEmptyValues(t *testing.T) {
	page := `<html><body>
		<input name="ppuResult" value="">
		<input name="bpuResult" value="n/a">
	</body></html>`

	var pse *PageStructureError
	_, err := parseResults(page)
	require.Error(t, err)
	assert.True(t, errors.As(err, &pse))
}

func TestParseFeet(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"bare number", "120", 120, true},
		{"decimal", "36.5", 36.5, true},
		{"ft suffix", "95 ft", 95, true},
		{"feet suffix", "95 feet", 95, true},
		{"thousands separator", "1,200", 1200, true},
		{"empty", "", 0, false},
		{"whitespace", "   ", 0, false},
		{"non numeric", "n/a", 0, false},
		{"negative", "-5", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseFeet(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestScreenshotName(t *testing.T) {
	tank := testTank("Depot #3 / North", 50000)
	name := screenshotName(tank)
	assert.Equal(t, "tank-Depot-3---North-50000gal.png", name)
}
