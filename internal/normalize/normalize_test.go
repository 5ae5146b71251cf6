package normalize

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

func TestResolveColumn(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
		ok       bool
	}{
		{"exact canonical", "Site Name or Business Name", ColName, true},
		{"case insensitive", "TANK CAPACITY", ColCapacity, true},
		{"punctuation stripped", "Tank_Capacity:", ColCapacity, true},
		{"spanish capacity", "Capacidad", ColCapacity, true},
		{"spanish measurements", "Medidas", ColMeasurements, true},
		{"spanish name", "Nombre del Sitio", ColName, true},
		{"latitude variant", "Latitude (NAD83)", ColLatitude, true},
		{"fuzzy typo", "Tank Capasity", ColCapacity, true},
		{"unrelated header", "Favorite Color", "", false},
		{"empty header", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveColumn(tt.header)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func row(name, capacity, measurements string) map[string]string {
	return map[string]string{
		"Site Name or Business Name": name,
		"Tank Capacity":              capacity,
		"Tank Measurements":          measurements,
	}
}

var testHeaders = []string{"Site Name or Business Name", "Tank Capacity", "Tank Measurements"}

func TestNormalizePreservesRowOrder(t *testing.T) {
	n := New(nil)
	res, err := n.Normalize(context.Background(), testHeaders, []map[string]string{
		row("Gas Station A", "5000 gal", ""),
		row("Bakery B", "", "10 x 8 x 6 ft"),
		row("Clinic C", "1200 gal", ""),
	})
	require.NoError(t, err)
	require.Len(t, res.Tanks, 3)

	assert.Equal(t, "Gas Station A", res.Tanks[0].ID)
	assert.Equal(t, "Bakery B", res.Tanks[1].ID)
	assert.Equal(t, "Clinic C", res.Tanks[2].ID)
}

func TestNormalizeLargestTankSelection(t *testing.T) {
	n := New(nil)
	res, err := n.Normalize(context.Background(), testHeaders, []map[string]string{
		row("Multi Site", "12000gal, 10000gal", ""),
	})
	require.NoError(t, err)
	require.Len(t, res.Tanks, 1)

	tank := res.Tanks[0]
	require.NotNil(t, tank.VolumeGallons)
	// Largest single tank governs; never the 22000 sum.
	assert.Equal(t, 12000.0, *tank.VolumeGallons)
	assert.Equal(t, types.VolumeProvided, tank.VolumeSource)

	foundWarning := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "largest") {
			foundWarning = true
		}
	}
	assert.True(t, foundWarning, "expected a largest-value warning, got %v", res.Warnings)
}

func TestNormalizeThousandsSeparatorNotSplit(t *testing.T) {
	n := New(nil)
	res, err := n.Normalize(context.Background(), testHeaders, []map[string]string{
		row("Big Site", "50,000 gal", ""),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Tanks[0].VolumeGallons)
	assert.Equal(t, 50000.0, *res.Tanks[0].VolumeGallons)
}

func TestNormalizeGeneratedIDAndWarnings(t *testing.T) {
	n := New(nil)
	res, err := n.Normalize(context.Background(), testHeaders, []map[string]string{
		row("", "3000", ""),
	})
	require.NoError(t, err)

	tank := res.Tanks[0]
	assert.Equal(t, "tank-001", tank.ID)
	assert.Equal(t, types.VolumeFromCapacityString, tank.VolumeSource)

	// One warning for the generated id, one for the assumed unit.
	assert.GreaterOrEqual(t, len(res.Warnings), 2)
}

func TestNormalizeUnresolvedIsNotFatal(t *testing.T) {
	n := New(nil)
	res, err := n.Normalize(context.Background(), testHeaders, []map[string]string{
		row("Known", "500 gal", ""),
		row("Mystery", "", ""),
	})
	require.NoError(t, err)
	require.Len(t, res.Tanks, 2)

	assert.True(t, res.Tanks[0].Resolved())
	assert.False(t, res.Tanks[1].Resolved())
	assert.Equal(t, types.VolumeUnresolved, res.Tanks[1].VolumeSource)
}

type stubResolver struct {
	gallons float64
	ok      bool
	calls   int
}

func (s *stubResolver) ResolveCapacity(_ context.Context, _, _ string) (float64, bool, error) {
	s.calls++
	return s.gallons, s.ok, nil
}

func TestNormalizeResolverConsultedOnlyWhenUnresolved(t *testing.T) {
	resolver := &stubResolver{gallons: 750, ok: true}
	n := New(resolver)

	res, err := n.Normalize(context.Background(), testHeaders, []map[string]string{
		row("Clear", "500 gal", ""),
		row("Ambiguous", "dos tanques medianos", ""),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resolver.calls, "resolver must only see unresolved rows")
	require.NotNil(t, res.Tanks[1].VolumeGallons)
	assert.Equal(t, 750.0, *res.Tanks[1].VolumeGallons)
}

func TestNormalizeCoordinatesAndDike(t *testing.T) {
	headers := []string{"Nombre", "Capacidad", "Latitud", "Longitud", "Secondary Containment", "Combustible"}
	n := New(nil)
	res, err := n.Normalize(context.Background(), headers, []map[string]string{
		{
			"Nombre":                "Planta Norte",
			"Capacidad":             "2000 galones",
			"Latitud":               "18.4374",
			"Longitud":              "-66.1403",
			"Secondary Containment": "Si",
			"Combustible":           "Diesel",
		},
	})
	require.NoError(t, err)

	tank := res.Tanks[0]
	require.NotNil(t, tank.Coordinates)
	assert.InDelta(t, 18.4374, tank.Coordinates.Latitude, 1e-9)
	assert.InDelta(t, -66.1403, tank.Coordinates.Longitude, 1e-9)
	assert.True(t, tank.HasDike)
	assert.False(t, tank.Pressurized)
	assert.Equal(t, "diesel", tank.ProductType)
}

func TestNormalizePressurizedProducts(t *testing.T) {
	headers := []string{"Name", "Tank Capacity", "Product Type"}
	n := New(nil)
	res, err := n.Normalize(context.Background(), headers, []map[string]string{
		{"Name": "Propane Depot", "Tank Capacity": "1000 gal", "Product Type": "LPG"},
	})
	require.NoError(t, err)
	assert.True(t, res.Tanks[0].Pressurized)
}

func TestNormalizeEmptyInput(t *testing.T) {
	n := New(nil)
	_, err := n.Normalize(context.Background(), testHeaders, nil)
	assert.Error(t, err)
}
