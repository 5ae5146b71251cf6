package volume

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

func TestResolveProvidedCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity string
		expected float64
	}{
		{"plain gallons", "50000 gal", 50000},
		{"gallons with comma", "50,000 gallons", 50000},
		{"spanish gallons", "2500 galones", 2500},
		{"barrels", "10 bbl", 420},
		{"liters", "1000 L", 264.17},
		{"cubic meters", "2 m3", 528.34},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.capacity, "")
			require.NotNil(t, res.Gallons)
			assert.Equal(t, types.VolumeProvided, res.Source)
			assert.InDelta(t, tt.expected, *res.Gallons, 0.01)
		})
	}
}

func TestResolveFromDimensions(t *testing.T) {
	tests := []struct {
		name         string
		measurements string
		expected     float64
		shape        types.TankShape
	}{
		{
			// pi * 5^2 * 20 * 7.48052
			name:         "two values parse as cylinder diameter x length",
			measurements: "10 ft x 20 ft",
			expected:     math.Pi * 25 * 20 * CubicFeetToGallons,
			shape:        types.ShapeCylinder,
		},
		{
			name:         "three values parse as rectangular",
			measurements: "10ft x 8ft x 8ft",
			expected:     4787.53,
			shape:        types.ShapeRectangular,
		},
		{
			name:         "rectangular in inches",
			measurements: "120 x 96 x 60 in",
			expected:     2992.21,
			shape:        types.ShapeRectangular,
		},
		{
			name:         "rectangular in meters",
			measurements: "4 x 3 x 2 m",
			expected:     6340.13,
			shape:        types.ShapeRectangular,
		},
		{
			name:         "trailing shared unit",
			measurements: "15 x 12 x 10 feet",
			expected:     13464.94,
			shape:        types.ShapeRectangular,
		},
		{
			name:         "labeled cylinder",
			measurements: "diameter 10 ft, height 20 ft",
			expected:     math.Pi * 25 * 20 * CubicFeetToGallons,
			shape:        types.ShapeCylinder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve("", tt.measurements)
			require.NotNil(t, res.Gallons, "expected volume for %q", tt.measurements)
			assert.Equal(t, types.VolumeFromDimensions, res.Source)
			require.NotNil(t, res.Dimensions)
			assert.Equal(t, tt.shape, res.Dimensions.Shape)
			assert.InDelta(t, tt.expected, *res.Gallons, 0.01)
		})
	}
}

func TestResolveBareNumericCapacity(t *testing.T) {
	res := Resolve("5000", "")
	require.NotNil(t, res.Gallons)
	assert.Equal(t, types.VolumeFromCapacityString, res.Source)
	assert.Equal(t, 5000.0, *res.Gallons)
	assert.Contains(t, res.Note, "assumed gallons")
}

func TestResolvePrecedence(t *testing.T) {
	// An explicit capacity unit wins over dimensions.
	res := Resolve("1000 gal", "10 x 8 x 6 ft")
	require.NotNil(t, res.Gallons)
	assert.Equal(t, types.VolumeProvided, res.Source)
	assert.Equal(t, 1000.0, *res.Gallons)

	// Dimensions win over a bare number.
	res = Resolve("", "10 x 8 x 6 ft")
	assert.Equal(t, types.VolumeFromDimensions, res.Source)
}

func TestResolveUnresolved(t *testing.T) {
	tests := []struct {
		name         string
		capacity     string
		measurements string
	}{
		{"empty inputs", "", ""},
		{"text only", "unknown", "ver notas"},
		{"zero capacity", "0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.capacity, tt.measurements)
			assert.Nil(t, res.Gallons)
			assert.Equal(t, types.VolumeUnresolved, res.Source)
		})
	}
}

func TestFromDimensionsRejectsImplausible(t *testing.T) {
	_, err := FromDimensions(&types.Dimensions{
		Shape:  types.ShapeRectangular,
		Length: 5000, Width: 10, Height: 10,
		Unit: "ft",
	})
	assert.Error(t, err)

	_, err = FromDimensions(&types.Dimensions{
		Shape:  types.ShapeRectangular,
		Length: 0.01, Width: 0.01, Height: 0.01,
		Unit: "ft",
	})
	assert.Error(t, err)
}

func TestParseCapacityIgnoresUnitlessText(t *testing.T) {
	_, ok := ParseCapacity("3 large tanks")
	assert.False(t, ok)
}
