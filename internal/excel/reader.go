// Package excel reads and writes the tank spreadsheets that flow through the
// pipeline: the raw field sheets, the KMZ-derived template, and the final
// compliance report.
package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// Table is a header row plus data rows keyed by the raw header text. Row
// order matches the source file; the normalizer and every later step rely on
// that order staying stable.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// ReadTable loads tabular tank data from an xlsx or csv file.
func ReadTable(path string, inputType types.InputType) (*Table, error) {
	switch inputType {
	case types.InputExcel:
		return readXLSX(path)
	case types.InputCSV:
		return readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported tabular input type %q", inputType)
	}
}

func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return tableFromRows(rows, path)
}

func readCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv %s: %w", path, err)
	}
	return tableFromRows(records, path)
}

func tableFromRows(rows [][]string, path string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s contains no rows", path)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	table := &Table{Headers: headers}
	for _, raw := range rows[1:] {
		if isBlankRow(raw) {
			continue
		}
		row := map[string]string{}
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(raw) {
				row[header] = strings.TrimSpace(raw[i])
			} else {
				row[header] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%s contains a header row but no data", path)
	}
	return table, nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
