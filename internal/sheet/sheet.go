// Package sheet parses sourcing sheets: CSV exports of candidate buys
// with an ASIN, an acquisition cost, and where the copy was found.
package sheet

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Lead is one candidate buy from a sourcing sheet.
type Lead struct {
	ASIN      string
	Cost      *float64
	Source    string
	Condition string
	Title     string
}

// ParseCSV reads a sourcing sheet. The header row names the columns;
// only ASIN is required. Rows without an ASIN are skipped and duplicate
// ASINs keep the first occurrence.
func ParseCSV(path string) ([]Lead, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "sheet: read csv")
	}
	if len(records) < 2 {
		return nil, eris.New("sheet: csv has no data rows")
	}

	header := records[0]
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := colIdx["asin"]; !ok {
		return nil, eris.New(`sheet: missing required column "asin"`)
	}

	seen := make(map[string]bool)
	var leads []Lead

	for _, row := range records[1:] {
		asin := strings.ToUpper(getCol(row, colIdx, "asin"))
		if asin == "" || seen[asin] {
			continue
		}
		seen[asin] = true

		lead := Lead{
			ASIN:      asin,
			Source:    getCol(row, colIdx, "source"),
			Condition: getCol(row, colIdx, "condition"),
			Title:     getCol(row, colIdx, "title"),
		}

		if raw := getCol(row, colIdx, "cost"); raw != "" {
			cost, err := strconv.ParseFloat(strings.TrimPrefix(raw, "$"), 64)
			if err != nil {
				return nil, eris.Wrapf(err, "sheet: bad cost %q for %s", raw, asin)
			}
			if cost < 0 {
				return nil, eris.Errorf("sheet: negative cost for %s", asin)
			}
			lead.Cost = &cost
		}

		leads = append(leads, lead)
	}

	if len(leads) == 0 {
		return nil, eris.New("sheet: no usable rows")
	}
	return leads, nil
}

func getCol(row []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
