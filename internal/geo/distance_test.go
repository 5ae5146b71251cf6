package geo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// A roughly 1km x 1km square near Cataño, Puerto Rico.
var square = []types.Coordinates{
	{Latitude: 18.4400, Longitude: -66.1500},
	{Latitude: 18.4400, Longitude: -66.1400},
	{Latitude: 18.4490, Longitude: -66.1400},
	{Latitude: 18.4490, Longitude: -66.1500},
}

func TestDistanceToBoundaryOutsidePoint(t *testing.T) {
	// Point due south of the square's southern edge by ~0.001 deg (~111m).
	point := types.Coordinates{Latitude: 18.4390, Longitude: -66.1450}

	res, err := DistanceToBoundary(point, square)
	require.NoError(t, err)

	assert.False(t, res.Inside)
	// 0.001 degrees of latitude is ~364 ft.
	assert.InDelta(t, 364, res.DistanceFeet, 10)
	assert.InDelta(t, 18.4400, res.ClosestPoint.Latitude, 0.0002)
}

func TestDistanceToBoundaryInsidePoint(t *testing.T) {
	point := types.Coordinates{Latitude: 18.4445, Longitude: -66.1450}

	res, err := DistanceToBoundary(point, square)
	require.NoError(t, err)

	assert.True(t, res.Inside)
	assert.Greater(t, res.DistanceFeet, 0.0)
}

func TestDistanceToBoundaryDegeneratePolygon(t *testing.T) {
	_, err := DistanceToBoundary(types.Coordinates{}, square[:2])
	assert.Error(t, err)
}

func TestLoadPolygon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "polygon_site.txt")
	content := "# site boundary\n-66.1500,18.4400\n-66.1400,18.4400\n-66.1400,18.4490\n\n-66.1500,18.4490\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	polygon, err := LoadPolygon(path)
	require.NoError(t, err)
	require.Len(t, polygon, 4)
	assert.InDelta(t, 18.4400, polygon[0].Latitude, 1e-9)
	assert.InDelta(t, -66.1500, polygon[0].Longitude, 1e-9)
}

func TestLoadPolygonErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPolygon(filepath.Join(dir, "nope.txt"))
		assert.Error(t, err)
	})

	t.Run("too few vertices", func(t *testing.T) {
		path := filepath.Join(dir, "short.txt")
		require.NoError(t, os.WriteFile(path, []byte("-66.1,18.4\n-66.2,18.5\n"), 0o644))
		_, err := LoadPolygon(path)
		assert.Error(t, err)
	})

	t.Run("malformed line", func(t *testing.T) {
		path := filepath.Join(dir, "bad.txt")
		require.NoError(t, os.WriteFile(path, []byte("not-a-coordinate\n"), 0o644))
		_, err := LoadPolygon(path)
		assert.Error(t, err)
	})
}
