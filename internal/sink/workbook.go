package sink

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// LogsSheet is the tab used for fatal run-level errors. It is append-only;
// per-run result tabs are cleared on every run, Logs never is.
const LogsSheet = "Logs"

var logsHeader = []string{"Timestamp", "Level", "Message"}

// SinkError marks a failure manipulating the workbook. The enclosing write
// is skipped and logged; it never aborts the run by itself.
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink: %s: %v", e.Op, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Workbook is an XLSX-file-backed tabular sink. All writes are in-memory
// until Save.
type Workbook struct {
	path string
	file *xlsx.File
}

// Open loads the workbook at path, creating a new one if the file does not
// exist.
func Open(path string) (*Workbook, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Workbook{path: path, file: xlsx.NewFile()}, nil
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, &SinkError{Op: "open workbook", Err: eris.Wrap(err, path)}
	}
	return &Workbook{path: path, file: f}, nil
}

// Save writes the workbook back to disk.
func (w *Workbook) Save() error {
	if err := w.file.Save(w.path); err != nil {
		return &SinkError{Op: "save workbook", Err: err}
	}
	return nil
}

// EnsureSheet returns the named sheet, creating it if needed. An existing
// sheet has its prior contents cleared: runs overwrite, they never append.
func (w *Workbook) EnsureSheet(name string) (*xlsx.Sheet, error) {
	if sheet, ok := w.file.Sheet[name]; ok {
		sheet.Rows = nil
		sheet.MaxRow = 0
		sheet.MaxCol = 0
		return sheet, nil
	}

	sheet, err := w.file.AddSheet(name)
	if err != nil {
		return nil, &SinkError{Op: "create sheet " + name, Err: err}
	}
	return sheet, nil
}

// WriteHeader writes the fixed column header row.
func (w *Workbook) WriteHeader(sheet *xlsx.Sheet, columns []string) {
	row := sheet.AddRow()
	for _, col := range columns {
		row.AddCell().SetString(col)
	}
}

// WriteRows appends all rows in one pass. Cell types follow the Go value:
// numbers stay numeric in the sheet, everything else is stringified.
func (w *Workbook) WriteRows(sheet *xlsx.Sheet, rows [][]any) {
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			cell := row.AddCell()
			switch val := v.(type) {
			case string:
				cell.SetString(val)
			case float64:
				cell.SetFloat(val)
			case int:
				cell.SetInt(val)
			case int64:
				cell.SetInt64(val)
			default:
				cell.SetValue(val)
			}
		}
	}
}

// AppendLog records a fatal run-level event on the Logs tab, creating the
// tab with its header on first use.
func (w *Workbook) AppendLog(ts time.Time, level, message string) error {
	sheet, ok := w.file.Sheet[LogsSheet]
	if !ok {
		var err error
		sheet, err = w.file.AddSheet(LogsSheet)
		if err != nil {
			return &SinkError{Op: "create logs sheet", Err: err}
		}
		w.WriteHeader(sheet, logsHeader)
	}

	row := sheet.AddRow()
	row.AddCell().SetString(ts.UTC().Format(time.RFC3339))
	row.AddCell().SetString(level)
	row.AddCell().SetString(message)
	return nil
}
