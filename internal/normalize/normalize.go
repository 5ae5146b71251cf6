package normalize

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mfigueroa/tank-compliance/internal/types"
	"github.com/mfigueroa/tank-compliance/internal/volume"
)

// AmbiguityResolver is consulted only for capacity/measurement strings the
// deterministic parser marks unresolved. The default pipeline runs without
// one; an LLM-backed implementation can be plugged in by the caller.
type AmbiguityResolver interface {
	// ResolveCapacity returns a gallon volume for a raw capacity/measurement
	// pair, or ok=false when the resolver cannot help either.
	ResolveCapacity(ctx context.Context, rawCapacity, rawMeasurements string) (gallons float64, ok bool, err error)
}

// Result is the outcome of normalizing a batch of raw rows.
type Result struct {
	Tanks    []*types.Tank
	Warnings []string
}

// Normalizer converts raw spreadsheet rows into canonical tank records.
type Normalizer struct {
	resolver AmbiguityResolver // optional
}

// New returns a Normalizer. resolver may be nil.
func New(resolver AmbiguityResolver) *Normalizer {
	return &Normalizer{resolver: resolver}
}

// Normalize maps each raw row onto one Tank, preserving row order. Rows are
// never dropped: a row that cannot be fully interpreted produces an
// unresolved tank plus a warning, not an error.
func (n *Normalizer) Normalize(ctx context.Context, headers []string, rows []map[string]string) (*Result, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data rows to normalize")
	}

	columnMap, unmapped := mapHeaders(headers)
	res := &Result{}
	for _, h := range unmapped {
		res.Warnings = append(res.Warnings, fmt.Sprintf("column %q not recognized; values ignored", h))
	}

	for i, row := range rows {
		tank := n.normalizeRow(ctx, i, row, columnMap, res)
		res.Tanks = append(res.Tanks, tank)
	}

	return res, nil
}

// mapHeaders resolves every raw header to a canonical column. When two raw
// headers resolve to the same canonical column the first one wins.
func mapHeaders(headers []string) (map[string]string, []string) {
	columnMap := make(map[string]string, len(headers))
	seen := map[string]bool{}
	var unmapped []string

	for _, h := range headers {
		canonical, ok := ResolveColumn(h)
		if !ok {
			if strings.TrimSpace(h) != "" {
				unmapped = append(unmapped, h)
			}
			continue
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		columnMap[h] = canonical
	}
	return columnMap, unmapped
}

func (n *Normalizer) normalizeRow(ctx context.Context, index int, row map[string]string, columnMap map[string]string, res *Result) *types.Tank {
	canonical := map[string]string{}
	for raw, value := range row {
		if col, ok := columnMap[raw]; ok {
			canonical[col] = strings.TrimSpace(value)
		}
	}

	tank := &types.Tank{
		Name:            canonical[ColName],
		RawCapacity:     canonical[ColCapacity],
		RawMeasurements: canonical[ColMeasurements],
		ProductType:     strings.ToLower(canonical[ColProductType]),
		Notes:           canonical[ColNotes],
	}

	if tank.Name != "" {
		tank.ID = tank.Name
	} else {
		tank.ID = fmt.Sprintf("tank-%03d", index+1)
		res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: no site name; generated id %q", index+1, tank.ID))
	}

	tank.HasDike = parseBool(canonical[ColDike])
	tank.Pressurized = isPressurizedProduct(tank.ProductType)

	if lat, lon, ok := parseCoordinates(canonical[ColLatitude], canonical[ColLongitude]); ok {
		tank.Coordinates = &types.Coordinates{Latitude: lat, Longitude: lon}
	}

	capacity := selectLargestCapacity(tank.RawCapacity, res, index)

	resolution := volume.Resolve(capacity, tank.RawMeasurements)
	if resolution.Source == types.VolumeUnresolved && n.resolver != nil {
		if gallons, ok, err := n.resolver.ResolveCapacity(ctx, tank.RawCapacity, tank.RawMeasurements); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: ambiguity resolver failed: %v", index+1, err))
		} else if ok {
			resolution.Gallons = types.Float64Ptr(gallons)
			resolution.Source = types.VolumeFromCapacityString
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: volume resolved by external resolver", index+1))
		}
	}

	tank.VolumeGallons = resolution.Gallons
	tank.VolumeSource = resolution.Source
	tank.Dimensions = resolution.Dimensions
	if resolution.Note != "" {
		res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: %s", index+1, resolution.Note))
	}
	if resolution.Source == types.VolumeUnresolved {
		res.Warnings = append(res.Warnings, fmt.Sprintf("row %d (%s): volume unresolved; excluded from automatic reporting", index+1, tank.ID))
	}

	return tank
}

var thousandsComma = regexp.MustCompile(`(\d),(\d{3})\b`)

// selectLargestCapacity handles rows listing several tanks at one site
// ("12000gal; 10000gal"). Separation-distance rules apply per tank, so the
// largest single value governs; summing values is explicitly wrong here.
func selectLargestCapacity(raw string, res *Result, index int) string {
	parts := splitCapacityList(raw)
	if len(parts) <= 1 {
		return raw
	}

	best, bestGallons := parts[0], -1.0
	for _, part := range parts {
		gallons, ok := volume.ParseCapacity(part)
		if !ok {
			continue
		}
		if gallons > bestGallons {
			best, bestGallons = part, gallons
		}
	}
	if bestGallons < 0 {
		return raw
	}

	res.Warnings = append(res.Warnings, fmt.Sprintf(
		"row %d: %d capacity values listed; using largest (%s) for separation-distance compliance", index+1, len(parts), strings.TrimSpace(best)))
	return best
}

func splitCapacityList(raw string) []string {
	// Collapse thousands separators first so "50,000 gal" stays one value.
	collapsed := thousandsComma.ReplaceAllString(raw, "$1$2")
	fields := strings.FieldsFunc(collapsed, func(r rune) bool {
		return r == ';' || r == ',' || r == '/'
	})
	var parts []string
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			parts = append(parts, f)
		}
	}
	return parts
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "si", "sí", "1", "diked":
		return true
	}
	return false
}

// isPressurizedProduct flags products the HUD calculator treats as
// pressurized gas.
func isPressurizedProduct(product string) bool {
	p := strings.ToLower(product)
	for _, keyword := range []string{"lpg", "propane", "propano", "butane", "pressurized", "gas licuado"} {
		if strings.Contains(p, keyword) {
			return true
		}
	}
	return false
}

func parseCoordinates(latText, lonText string) (float64, float64, bool) {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(lonText), 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	if lat == 0 && lon == 0 {
		return 0, 0, false
	}
	return lat, lon, true
}
