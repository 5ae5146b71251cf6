// Package report assembles the evidentiary PDF that documents every
// calculator query with its captured screenshot.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// EvidenceOptions configures PDF generation.
type EvidenceOptions struct {
	// Title printed on the cover page. Defaults to "ASD Calculation Evidence".
	Title string
	// RunID printed on the cover page for traceability.
	RunID string
	// GeneratedAt stamps the cover page; zero means time.Now().
	GeneratedAt time.Time
}

// WriteEvidencePDF writes one page per successfully queried tank, each
// carrying the tank's inputs, the calculator's outputs and the full-page
// screenshot. Tanks appear in slice order so the PDF matches the report
// spreadsheet row for row. Tanks without a screenshot are listed on the
// cover page as not queried but get no evidence page.
func WriteEvidencePDF(outPath string, tanks []*types.Tank, opts EvidenceOptions) error {
	queried := 0
	for _, tank := range tanks {
		if hasEvidence(tank) {
			queried++
		}
	}
	if queried == 0 {
		return fmt.Errorf("no tank has calculator evidence; refusing to write an empty evidence pdf")
	}

	if opts.Title == "" {
		opts.Title = "ASD Calculation Evidence"
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 10)

	writeCoverPage(pdf, tanks, queried, opts)
	for _, tank := range tanks {
		if !hasEvidence(tank) {
			continue
		}
		if err := writeTankPage(pdf, tank); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir for %s: %w", outPath, err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("failed to write evidence pdf %s: %w", outPath, err)
	}
	return nil
}

func hasEvidence(tank *types.Tank) bool {
	return tank.ASD != nil && tank.ASD.ScreenshotPath != ""
}

func writeCoverPage(pdf *fpdf.Fpdf, tanks []*types.Tank, queried int, opts EvidenceOptions) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, opts.Title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", opts.GeneratedAt.Format("2006-01-02 15:04 MST")), "", 1, "C", false, 0, "")
	if opts.RunID != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Run %s", opts.RunID), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 5, fmt.Sprintf(
		"This document records %d acceptable separation distance calculations "+
			"performed with the HUD ASD calculator out of %d tanks in the source "+
			"data. Each following page shows the inputs submitted for one tank and "+
			"a screenshot of the calculator page with its results.",
		queried, len(tanks)), "", "L", false)
	pdf.Ln(4)

	// Index table: one row per tank, including the ones with no evidence.
	pdf.SetFont("Helvetica", "B", 9)
	widths := []float64{32, 58, 30, 30, 46}
	headers := []string{"Tank", "Name", "Volume (gal)", "Max ASD (ft)", "Status"}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, tank := range tanks {
		status := "queried"
		if !hasEvidence(tank) {
			status = "no result"
			if tank.QueryError != "" {
				status = truncate("failed: "+tank.QueryError, 32)
			} else if !tank.Resolved() {
				status = "volume unresolved"
			}
		}
		cells := []string{
			truncate(tank.ID, 22),
			truncate(tank.Name, 38),
			formatGallons(tank.VolumeGallons),
			formatFeet(tank.RequiredDistanceFeet()),
			status,
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		if pdf.GetY() > 245 {
			pdf.AddPage()
		}
	}
}

func writeTankPage(pdf *fpdf.Fpdf, tank *types.Tank) error {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	title := tank.ID
	if tank.Name != "" && tank.Name != tank.ID {
		title = fmt.Sprintf("%s — %s", tank.ID, tank.Name)
	}
	pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	lines := []string{
		fmt.Sprintf("Volume: %s gallons (%s)", formatGallons(tank.VolumeGallons), tank.VolumeSource),
		fmt.Sprintf("Pressurized: %s    Diked: %s", yesNo(tank.Pressurized), yesNo(tank.HasDike)),
	}
	if tank.ProductType != "" {
		lines = append(lines, "Product: "+tank.ProductType)
	}
	lines = append(lines, "Results: "+formatASDLine(tank.ASD))
	for _, line := range lines {
		pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	path := tank.ASD.ScreenshotPath
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("screenshot missing for tank %s: %w", tank.ID, err)
	}

	// Fit the screenshot to the remaining page area, preserving aspect ratio.
	pageW, pageH := pdf.GetPageSize()
	left, top, right, bottom := pdf.GetMargins()
	_ = top
	availW := pageW - left - right
	availH := pageH - pdf.GetY() - bottom

	info := pdf.RegisterImageOptions(path, fpdf.ImageOptions{ImageType: "PNG"})
	if info == nil {
		return fmt.Errorf("failed to embed screenshot %s", path)
	}
	w, h := info.Extent()
	scale := availW / w
	if h*scale > availH {
		scale = availH / h
	}
	pdf.ImageOptions(path, left, pdf.GetY(), w*scale, h*scale, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	return nil
}

func formatASDLine(asd *types.ASDResult) string {
	if asd == nil {
		return "none"
	}
	parts := []string{}
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
		return "none"
	}
	return strings.Join(parts, " ; ")
}

func formatGallons(v *float64) string {
	if v == nil {
		return "-"
	}
	return trimFloat(*v)
}

func formatFeet(v *float64) string {
	if v == nil {
		return "-"
	}
	return trimFloat(*v)
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
