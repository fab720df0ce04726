package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/searchwise/termlens/internal/config"
	"github.com/searchwise/termlens/internal/sink"
)

// writeTestWorkbook creates a workbook whose Terms sheet holds only the
// header row.
func writeTestWorkbook(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "termlens.xlsx")
	f := xlsx.NewFile()
	terms, err := f.AddSheet(sink.TermsSheet)
	require.NoError(t, err)
	terms.AddRow().AddCell().SetString("Search Term")
	require.NoError(t, f.Save(path))
	return path
}

func lastLogRow(t *testing.T, path string) []string {
	t.Helper()

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	logs, ok := f.Sheet[sink.LogsSheet]
	require.True(t, ok, "a fatal run leaves a Logs record")
	require.GreaterOrEqual(t, len(logs.Rows), 2, "Logs has a header and at least one event")

	row := logs.Rows[len(logs.Rows)-1]
	cells := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		cells[i] = c.String()
	}
	return cells
}

func TestClassify_EmptyTermList(t *testing.T) {
	path := writeTestWorkbook(t)

	classifyWorkbook = ""
	cfg = &config.Config{
		Provider: "openai",
		CostTier: "standard",
		Workbook: path,
		APIKey:   "test-key",
	}

	// An empty term list ends the run before any provider client exists:
	// no completer is built and no API call can happen.
	require.NoError(t, classifyCmd.RunE(classifyCmd, nil))

	row := lastLogRow(t, path)
	require.Len(t, row, 3)
	assert.Equal(t, "ERROR", row[1])
	assert.Equal(t, "No search terms found", row[2])

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	_, ok := f.Sheet[classificationsSheet]
	assert.False(t, ok, "no classification output is written")
	_, ok = f.Sheet[summarySheet]
	assert.False(t, ok, "no summary output is written")
}

func TestClassify_InvalidConfigAbortsWithLogRow(t *testing.T) {
	path := writeTestWorkbook(t)

	classifyWorkbook = ""
	cfg = &config.Config{
		Provider: "openai",
		CostTier: "standard",
		Workbook: path,
		// No API key anywhere.
	}

	err := classifyCmd.RunE(classifyCmd, nil)
	require.Error(t, err)

	var confErr *config.ConfigurationError
	require.ErrorAs(t, err, &confErr)

	row := lastLogRow(t, path)
	assert.Equal(t, "ERROR", row[1])
	assert.Contains(t, row[2], "no API key")
}
