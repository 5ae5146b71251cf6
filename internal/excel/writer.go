package excel

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mfigueroa/tank-compliance/internal/normalize"
	"github.com/mfigueroa/tank-compliance/internal/types"
)

// Result columns appended to the compliance report. Original source columns
// are preserved in front of these.
const (
	colVolume       = "Volume (gallons)"
	colVolumeSource = "Volume Source"
	colASDPPU       = "ASDPPU (ft)"
	colASDBPU       = "ASDBPU (ft)"
	colASDPNPD      = "ASDPNPD (ft)"
	colASDBNPD      = "ASDBNPD (ft)"
	colASDCombined  = "Acceptable Separation Distance Calculated"
	colMaxASD       = "Maximum Required ASD (ft)"
	colDistance     = "Calculated Distance to Polygon (ft)"
	colClosestLat   = "Closest Point Lat"
	colClosestLon   = "Closest Point Lon"
	colCompliance   = "Compliance"
	colMargin       = "Margin (ft)"
	colNotes        = "Compliance Notes"
)

var resultColumns = []string{
	colVolume, colVolumeSource,
	colASDPPU, colASDBPU, colASDPNPD, colASDBNPD,
	colASDCombined, colMaxASD,
	colDistance, colClosestLat, colClosestLon,
	colCompliance, colMargin, colNotes,
}

// WriteComplianceReport writes the updated spreadsheet: every original column
// and row preserved in order, result columns appended. tanks[i] corresponds
// to table.Rows[i].
func WriteComplianceReport(table *Table, tanks []*types.Tank, outPath string) error {
	if len(tanks) != len(table.Rows) {
		return fmt.Errorf("tank count %d does not match source row count %d", len(tanks), len(table.Rows))
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := append(append([]string{}, table.Headers...), resultColumns...)
	for c, h := range headers {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header %q: %w", h, err)
		}
	}

	for r, row := range table.Rows {
		values := make([]any, 0, len(headers))
		for _, h := range table.Headers {
			values = append(values, row[h])
		}
		values = append(values, tankResultValues(tanks[r])...)

		for c, v := range values {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", r+2, err)
			}
		}
	}

	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("failed to save report %s: %w", outPath, err)
	}
	return nil
}

func tankResultValues(t *types.Tank) []any {
	values := []any{
		optionalWholeGallons(t.VolumeGallons),
		string(t.VolumeSource),
	}

	var ppu, bpu, pnpd, bnpd *float64
	if t.ASD != nil {
		ppu, bpu, pnpd, bnpd = t.ASD.ASDPPUFeet, t.ASD.ASDBPUFeet, t.ASD.ASDPNPDFeet, t.ASD.ASDBNPDFeet
	}
	values = append(values, optionalFloat(ppu), optionalFloat(bpu), optionalFloat(pnpd), optionalFloat(bnpd))
	values = append(values, combinedASD(t.ASD))
	values = append(values, optionalFloat(t.RequiredDistanceFeet()))

	values = append(values, optionalFloat(t.ActualDistanceFeet))
	if t.ClosestPoint != nil {
		values = append(values, t.ClosestPoint.Latitude, t.ClosestPoint.Longitude)
	} else {
		values = append(values, nil, nil)
	}

	verdict := string(t.Verdict)
	if verdict == "" {
		verdict = string(types.VerdictIndeterminate)
	}
	notes := t.Notes
	if t.QueryError != "" {
		if notes != "" {
			notes += "; "
		}
		notes += "no data: " + t.QueryError
	}
	values = append(values, verdict, optionalFloat(t.MarginFeet), notes)
	return values
}

// combinedASD formats the display string the review teams are used to:
// "ASDPPU - 120 ft ; ASDBPU - 95 ft".
func combinedASD(asd *types.ASDResult) any {
	if asd == nil {
		return nil
	}
	var parts []string
	add := func(label string, v *float64) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s - %s ft", label, trimFloat(*v)))
		}
	}
	add("ASDPPU", asd.ASDPPUFeet)
	add("ASDBPU", asd.ASDBPUFeet)
	add("ASDPNPD", asd.ASDPNPDFeet)
	add("ASDBNPD", asd.ASDBNPDFeet)
	if len(parts) == 0 {
		return nil
	}
	return strings.Join(parts, " ; ")
}

func trimFloat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func optionalFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// optionalWholeGallons rounds for display; full precision stays on the Tank.
func optionalWholeGallons(v *float64) any {
	if v == nil {
		return nil
	}
	return math.Round(*v)
}

// WriteTemplate writes the spreadsheet template produced from a KMZ input,
// one row per placemark, with the canonical columns a field team fills in.
func WriteTemplate(outPath string, names []string, coords []*types.Coordinates) error {
	if len(names) != len(coords) {
		return fmt.Errorf("placemark name count %d does not match coordinate count %d", len(names), len(coords))
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{
		normalize.ColName,
		normalize.ColLatitude,
		normalize.ColLongitude,
		normalize.ColCapacity,
		normalize.ColMeasurements,
		normalize.ColProductType,
		normalize.ColDike,
		normalize.ColContact,
		normalize.ColNotes,
	}
	for c, h := range headers {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write template header: %w", err)
		}
	}

	for r, name := range names {
		rowValues := []any{name, nil, nil}
		if coords[r] != nil {
			rowValues[1] = coords[r].Latitude
			rowValues[2] = coords[r].Longitude
		}
		for c, v := range rowValues {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write template row %d: %w", r+2, err)
			}
		}
	}

	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("failed to save template %s: %w", outPath, err)
	}
	return nil
}
