package sink

import (
	"strings"

	"github.com/tealeg/xlsx/v2"

	"github.com/searchwise/termlens/internal/model"
)

const (
	// SettingsSheet holds key/value configuration overrides: key in column
	// A, value in column B.
	SettingsSheet = "Settings"

	// TermsSheet holds the search-term list in column A, one term per row.
	TermsSheet = "Terms"
)

// ReadSettings reads configuration overrides from the Settings sheet. A
// missing sheet is not an error: the file/env configuration stands alone.
func (w *Workbook) ReadSettings() map[string]string {
	settings := make(map[string]string)

	sheet, ok := w.file.Sheet[SettingsSheet]
	if !ok {
		return settings
	}

	for _, row := range sheet.Rows {
		cells := rowToStrings(row)
		if len(cells) < 2 {
			continue
		}
		key := strings.TrimSpace(cells[0])
		if key == "" || strings.EqualFold(key, "key") {
			continue
		}
		settings[strings.ToLower(key)] = strings.TrimSpace(cells[1])
	}

	return settings
}

// ReadTerms reads the ordered term list from the first column of the Terms
// sheet. A header cell and blank rows are skipped; order is preserved. A
// missing sheet yields an empty list, which the driver reports as "No
// search terms found".
func (w *Workbook) ReadTerms() []model.Term {
	sheet, ok := w.file.Sheet[TermsSheet]
	if !ok {
		return nil
	}

	var terms []model.Term
	for i, row := range sheet.Rows {
		cells := rowToStrings(row)
		if len(cells) == 0 {
			continue
		}
		text := strings.TrimSpace(cells[0])
		if text == "" {
			continue
		}
		if i == 0 && isTermsHeader(text) {
			continue
		}
		terms = append(terms, model.Term(text))
	}

	return terms
}

func isTermsHeader(text string) bool {
	switch strings.ToLower(text) {
	case "term", "terms", "search term", "search terms":
		return true
	}
	return false
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
