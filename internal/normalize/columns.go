// Package normalize maps raw tabular records onto canonical tank records.
package normalize

import (
	"regexp"
	"strings"
)

// Canonical column names, matching the headers the field teams use.
const (
	ColName         = "Site Name or Business Name"
	ColLatitude     = "Latitude (NAD83)"
	ColLongitude    = "Longitude (NAD83)"
	ColCapacity     = "Tank Capacity"
	ColMeasurements = "Tank Measurements"
	ColProductType  = "Product Type"
	ColDike         = "Secondary Containment"
	ColNotes        = "Additional information"
	ColContact      = "Person Contacted"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeHeader lowercases a header and strips everything but letters and
// digits, so "Tank Capacity (gal)" and "tank_capacity" compare equal.
func normalizeHeader(h string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), "")
}

// headerAliases maps normalized header variants (English and Spanish) to
// canonical columns. Exact alias lookup runs before any fuzzy matching.
var headerAliases = map[string]string{
	// Site name
	"sitenameorbusinessname": ColName,
	"sitename":               ColName,
	"businessname":           ColName,
	"name":                   ColName,
	"facilityname":           ColName,
	"site":                   ColName,
	"nombre":                 ColName,
	"nombredelsitio":         ColName,
	"negocio":                ColName,

	// Coordinates
	"latitude":       ColLatitude,
	"lat":            ColLatitude,
	"latitudenad83":  ColLatitude,
	"latitud":        ColLatitude,
	"longitude":      ColLongitude,
	"long":           ColLongitude,
	"lon":            ColLongitude,
	"longitudenad83": ColLongitude,
	"longitud":       ColLongitude,

	// Tank data
	"tankcapacity":       ColCapacity,
	"capacity":           ColCapacity,
	"capacidad":          ColCapacity,
	"capacidaddeltanque": ColCapacity,
	"tankmeasurements":   ColMeasurements,
	"measurements":       ColMeasurements,
	"dimensions":         ColMeasurements,
	"medidas":            ColMeasurements,
	"dimensiones":        ColMeasurements,

	// Product / containment
	"producttype":          ColProductType,
	"product":              ColProductType,
	"fueltype":             ColProductType,
	"tipodeproducto":       ColProductType,
	"combustible":          ColProductType,
	"secondarycontainment": ColDike,
	"containment":          ColDike,
	"dike":                 ColDike,
	"diked":                ColDike,
	"contencionsecundaria": ColDike,
	// "contención secundaria" after accent stripping by normalizeHeader
	"contencinsecundaria": ColDike,

	// Other
	"additionalinformation": ColNotes,
	"notes":                 ColNotes,
	"notas":                 ColNotes,
	"personcontacted":       ColContact,
	"contact":               ColContact,
	"contacto":              ColContact,
}

// maxFuzzyDistance is the edit-distance budget for fuzzy header matching.
// Small on purpose: it absorbs typos, not different words.
const maxFuzzyDistance = 2

// ResolveColumn maps a raw header to its canonical column name. Exact alias
// match takes priority; a bounded edit-distance match over the alias table is
// the fallback. The second return value is false when no mapping was found.
func ResolveColumn(header string) (string, bool) {
	normalized := normalizeHeader(header)
	if normalized == "" {
		return "", false
	}

	if canonical, ok := headerAliases[normalized]; ok {
		return canonical, true
	}

	best, bestDist := "", maxFuzzyDistance+1
	for alias, canonical := range headerAliases {
		// Skip very short aliases; one edit on "lat" is a different word.
		if len(alias) < 5 {
			continue
		}
		if d := editDistance(normalized, alias); d < bestDist {
			best, bestDist = canonical, d
		}
	}
	if bestDist <= maxFuzzyDistance {
		return best, true
	}
	return "", false
}

func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
