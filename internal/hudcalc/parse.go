package hudcalc

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// Result fields as they appear on the calculator page. ppu/bpu are the
// people/building values; pnpd/bnpd the non-pressurized diked variants. The
// page has carried two naming schemes over time, so each field lists both.
var resultFields = map[string][]string{
	"asdppu":  {"ppuResult", "asdppu"},
	"asdbpu":  {"bpuResult", "asdbpu"},
	"asdpnpd": {"pnpdResult", "asdpnpd"},
	"asdbnpd": {"bnpdResult", "asdbnpd"},
}

// parseResults extracts the ASD values from the rendered calculator page.
// At least one populated result field is required; a page with none is a
// structure mismatch, not a zero result.
func parseResults(html string) (*types.ASDResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &PageStructureError{Missing: "parseable html"}
	}

	values := map[string]*float64{}
	found := false
	for key, names := range resultFields {
		for _, name := range names {
			sel := doc.Find(`input[name="` + name + `"], input[id="` + name + `"]`)
			if sel.Length() == 0 {
				continue
			}
			found = true
			if v, ok := parseFeet(sel.First().AttrOr("value", "")); ok {
				values[key] = &v
			}
			break
		}
	}

	if !found {
		return nil, &PageStructureError{Missing: "result fields"}
	}

	result := &types.ASDResult{
		ASDPPUFeet:  values["asdppu"],
		ASDBPUFeet:  values["asdbpu"],
		ASDPNPDFeet: values["asdpnpd"],
		ASDBNPDFeet: values["asdbnpd"],
	}
	if result.RequiredFeet(false) == nil && result.RequiredFeet(true) == nil {
		return nil, &PageStructureError{Missing: "populated result values"}
	}
	return result, nil
}

// parseFeet parses values like "120", "120.5" or "120 ft".
func parseFeet(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSuffix(cleaned, "feet")
	cleaned = strings.TrimSuffix(cleaned, "ft")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
