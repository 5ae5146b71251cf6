// Package volume resolves a tank's authoritative volume in US gallons from
// free-text capacity and measurement fields.
package volume

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// CubicFeetToGallons is the US-gallon content of one cubic foot.
const CubicFeetToGallons = 7.48052

// Dimension sanity bounds, in feet and gallons. Values outside these ranges
// indicate a parse of the wrong field rather than a real tank.
const (
	minDimensionFeet = 0.1
	maxDimensionFeet = 1000
	minVolumeGallons = 0.1
	maxVolumeGallons = 1_000_000
)

// lengthToFeet converts linear units to feet. Includes the Spanish spellings
// seen in field spreadsheets from Puerto Rico sites.
var lengthToFeet = map[string]float64{
	"ft": 1, "feet": 1, "foot": 1, "'": 1, "pies": 1, "pie": 1,
	"in": 1.0 / 12, "inch": 1.0 / 12, "inches": 1.0 / 12, `"`: 1.0 / 12,
	"pulgada": 1.0 / 12, "pulgadas": 1.0 / 12,
	"yd": 3, "yard": 3, "yards": 3, "yarda": 3, "yardas": 3,
	"m": 3.28084, "meter": 3.28084, "meters": 3.28084, "metre": 3.28084, "metro": 3.28084, "metros": 3.28084,
	"cm": 0.0328084, "centimeter": 0.0328084, "centimeters": 0.0328084, "centimetro": 0.0328084, "centimetros": 0.0328084,
	"mm": 0.000328084,
}

// capacityToGallons converts volume units to US gallons.
var capacityToGallons = map[string]float64{
	"gal": 1, "gals": 1, "gallon": 1, "gallons": 1, "galon": 1, "galones": 1,
	"l": 0.264172, "lt": 0.264172, "liter": 0.264172, "liters": 0.264172,
	"litre": 0.264172, "litres": 0.264172, "litro": 0.264172, "litros": 0.264172,
	"bbl": 42, "barrel": 42, "barrels": 42, "barril": 42, "barriles": 42,
	"ft3": CubicFeetToGallons, "cuft": CubicFeetToGallons, "ft^3": CubicFeetToGallons,
	"m3": 264.172, "m^3": 264.172,
}

// Resolution is the outcome of resolving one tank's volume.
type Resolution struct {
	Gallons    *float64
	Source     types.VolumeSource
	Dimensions *types.Dimensions
	// Note carries a human-readable warning when a fallback inference was
	// applied (e.g. a unitless value assumed to be gallons).
	Note string
}

var (
	capacityPattern = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*(gal(?:s|ons?)?|galon(?:es)?|l(?:iters?|itres?|itros?|t)?|bbl|barr(?:els?|il(?:es)?)|ft3|ft\^3|cuft|m3|m\^3)\b`)
	bareNumber      = regexp.MustCompile(`([\d,]+(?:\.\d+)?)`)

	// "10 x 8 x 6 ft" or "10ft x 8ft x 6ft"
	threeDims = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:[a-z'"]*)\s*[x×]\s*(\d+(?:\.\d+)?)\s*(?:[a-z'"]*)\s*[x×]\s*(\d+(?:\.\d+)?)\s*([a-z'"]+)?`)
	// "10 x 20 ft" — interpreted as a cylinder, diameter x length.
	twoDims = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:[a-z'"]*)\s*[x×]\s*(\d+(?:\.\d+)?)\s*([a-z'"]+)?`)
	// "diameter 10 ft height 20 ft" and Spanish equivalents.
	labeledCylinder = regexp.MustCompile(`(?i)(?:diameter|diam|diametro|d)\s*[:=]?\s*(\d+(?:\.\d+)?)\s*([a-z'"]+)?\s*[,;x ]+\s*(?:height|length|altura|alto|largo|h|l)\s*[:=]?\s*(\d+(?:\.\d+)?)\s*([a-z'"]+)?`)
)

// Resolve determines a single authoritative volume for a tank.
//
// Precedence: a capacity with a recognizable unit wins; otherwise parseable
// dimensions; otherwise a bare numeric capacity accepted as gallons; otherwise
// the tank is unresolved, which flags it but is not fatal to the run.
func Resolve(rawCapacity, rawMeasurements string) Resolution {
	if gallons, ok := ParseCapacity(rawCapacity); ok {
		rounded := roundGallons(gallons)
		return Resolution{Gallons: &rounded, Source: types.VolumeProvided}
	}

	if dims, ok := ParseDimensions(rawMeasurements); ok {
		gallons, err := FromDimensions(dims)
		if err == nil {
			rounded := roundGallons(gallons)
			return Resolution{Gallons: &rounded, Source: types.VolumeFromDimensions, Dimensions: dims}
		}
	}

	if gallons, ok := parseBareCapacity(rawCapacity); ok {
		rounded := roundGallons(gallons)
		return Resolution{
			Gallons: &rounded,
			Source:  types.VolumeFromCapacityString,
			Note:    fmt.Sprintf("assumed gallons for unitless value %q", strings.TrimSpace(rawCapacity)),
		}
	}

	return Resolution{Source: types.VolumeUnresolved}
}

// ParseCapacity parses a capacity string carrying an explicit volume unit and
// converts it to US gallons.
func ParseCapacity(s string) (float64, bool) {
	m := capacityPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	factor, ok := capacityToGallons[normalizeUnit(m[2])]
	if !ok {
		return 0, false
	}
	return value * factor, true
}

func parseBareCapacity(s string) (float64, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, false
	}
	m := bareNumber.FindStringSubmatch(trimmed)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// ParseDimensions interprets a measurement string into a shape. Three values
// are a rectangular tank; two values are a cylinder given as diameter x length.
func ParseDimensions(s string) (*types.Dimensions, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, false
	}

	if m := threeDims.FindStringSubmatch(trimmed); m != nil {
		l, _ := strconv.ParseFloat(m[1], 64)
		w, _ := strconv.ParseFloat(m[2], 64)
		h, _ := strconv.ParseFloat(m[3], 64)
		return &types.Dimensions{
			Shape:  types.ShapeRectangular,
			Length: l, Width: w, Height: h,
			Unit: unitOrFeet(m[4], trimmed),
		}, true
	}

	if m := labeledCylinder.FindStringSubmatch(trimmed); m != nil {
		d, _ := strconv.ParseFloat(m[1], 64)
		l, _ := strconv.ParseFloat(m[3], 64)
		unit := m[2]
		if unit == "" {
			unit = m[4]
		}
		return &types.Dimensions{
			Shape:    types.ShapeCylinder,
			Diameter: d, Length: l,
			Unit: unitOrFeet(unit, trimmed),
		}, true
	}

	if m := twoDims.FindStringSubmatch(trimmed); m != nil {
		d, _ := strconv.ParseFloat(m[1], 64)
		l, _ := strconv.ParseFloat(m[2], 64)
		return &types.Dimensions{
			Shape:    types.ShapeCylinder,
			Diameter: d, Length: l,
			Unit: unitOrFeet(m[3], trimmed),
		}, true
	}

	return nil, false
}

// FromDimensions computes the gallon volume for a parsed shape. All linear
// values are converted to feet before the closed-form volume.
func FromDimensions(d *types.Dimensions) (float64, error) {
	factor, ok := lengthToFeet[normalizeUnit(d.Unit)]
	if !ok {
		factor = 1 // unknown unit: treat as feet
	}

	var cubicFeet float64
	switch d.Shape {
	case types.ShapeRectangular:
		l, w, h := d.Length*factor, d.Width*factor, d.Height*factor
		if err := checkDimensions(l, w, h); err != nil {
			return 0, err
		}
		cubicFeet = l * w * h
	case types.ShapeCylinder:
		diameter, length := d.Diameter*factor, d.Length*factor
		if err := checkDimensions(diameter, length); err != nil {
			return 0, err
		}
		radius := diameter / 2
		cubicFeet = math.Pi * radius * radius * length
	case types.ShapeOval:
		l, w, h := d.Length*factor, d.Width*factor, d.Height*factor
		if err := checkDimensions(l, w, h); err != nil {
			return 0, err
		}
		cubicFeet = math.Pi * (l / 2) * (w / 2) * h
	default:
		return 0, fmt.Errorf("unknown tank shape %q", d.Shape)
	}

	gallons := cubicFeet * CubicFeetToGallons
	if gallons < minVolumeGallons || gallons > maxVolumeGallons {
		return 0, fmt.Errorf("computed volume %.2f gallons outside plausible range", gallons)
	}
	return gallons, nil
}

func checkDimensions(values ...float64) error {
	for _, v := range values {
		if v < minDimensionFeet || v > maxDimensionFeet {
			return fmt.Errorf("dimension %.3f ft outside plausible range", v)
		}
	}
	return nil
}

func normalizeUnit(u string) string {
	return strings.TrimSuffix(strings.TrimSpace(strings.ToLower(u)), ".")
}

func unitOrFeet(unit, context string) string {
	u := normalizeUnit(unit)
	if _, ok := lengthToFeet[u]; ok {
		return u
	}
	// A trailing unit may apply to the whole expression ("15 x 12 x 10 feet").
	fields := strings.Fields(strings.ToLower(context))
	if len(fields) > 0 {
		last := normalizeUnit(fields[len(fields)-1])
		if _, ok := lengthToFeet[last]; ok {
			return last
		}
	}
	return "ft"
}

// roundGallons keeps full precision for compliance comparisons while making
// report values stable; display rounding to whole gallons happens at write
// time in the spreadsheet layer.
func roundGallons(v float64) float64 {
	return math.Round(v*100) / 100
}
