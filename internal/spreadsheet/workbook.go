// Package spreadsheet writes converted rows into .xlsx workbooks.
package spreadsheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the name excelize gives the first sheet of a new file
const DefaultSheet = "Sheet1"

const maxSheetNameLen = 31

// ErrTooManyRows is returned once a sheet reaches the row limit of the format
var ErrTooManyRows = fmt.Errorf("sheet row limit of %d reached", excelize.TotalRows)

// Numbers without leading zeros and short enough to survive a float64
// round trip are stored as numeric cells; everything else stays text.
var numericCell = regexp.MustCompile(`^-?(0|[1-9][0-9]{0,14})(\.[0-9]{1,15})?$`)

// Writer receives rows one at a time. Close keeps what was written and
// Abort discards it.
type Writer interface {
	WriteRow(values []string) error
	Rows() int
	Close() error
	Abort()
}

var _ Writer = (*Workbook)(nil)

// Workbook streams rows into a single sheet of a new .xlsx file
type Workbook struct {
	path   string
	sheet  string
	file   *excelize.File
	stream *excelize.StreamWriter
	rows   int
	closed bool
}

// NewWorkbook prepares a workbook that will be saved to path on Close
func NewWorkbook(path, sheetName string) (*Workbook, error) {
	sheet := SanitizeSheetName(sheetName)
	f := excelize.NewFile()

	if sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open stream writer: %w", err)
	}

	return &Workbook{
		path:   path,
		sheet:  sheet,
		file:   f,
		stream: sw,
	}, nil
}

// Sheet returns the name of the sheet rows are written to
func (w *Workbook) Sheet() string {
	return w.sheet
}

// Rows returns the number of rows written so far
func (w *Workbook) Rows() int {
	return w.rows
}

// WriteRow appends one row
func (w *Workbook) WriteRow(values []string) error {
	if w.closed {
		return errors.New("workbook already closed")
	}
	if w.rows >= excelize.TotalRows {
		return ErrTooManyRows
	}

	cell, err := excelize.CoordinatesToCellName(1, w.rows+1)
	if err != nil {
		return err
	}

	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = CellValue(v)
	}

	if err := w.stream.SetRow(cell, cells); err != nil {
		return fmt.Errorf("write row %d: %w", w.rows+1, err)
	}
	w.rows++
	return nil
}

// Close flushes the rows and saves the file
func (w *Workbook) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	defer w.file.Close()

	if err := w.stream.Flush(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Abort releases resources without saving
func (w *Workbook) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	w.file.Close()
}

// CellValue converts a field to the value stored in the cell
func CellValue(v string) interface{} {
	if numericCell.MatchString(v) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}

// SheetNameFor derives a sheet name from a source file path
func SheetNameFor(path string) string {
	base := filepath.Base(path)
	return SanitizeSheetName(strings.TrimSuffix(base, filepath.Ext(base)))
}

// SanitizeSheetName makes name acceptable as a sheet name, falling back to
// the default sheet name when nothing usable remains.
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")

	if utf8.RuneCountInString(name) > maxSheetNameLen {
		name = string([]rune(name)[:maxSheetNameLen])
	}
	if name == "" {
		return DefaultSheet
	}
	return name
}

// ReadRows returns the contents of the first sheet of the workbook at path
func ReadRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}

// ReadRowsLimit returns at most limit rows of the first sheet of the workbook
// at path, and whether more rows follow. A limit below 1 reads every row.
func ReadRowsLimit(path string, limit int) ([][]string, bool, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.Rows(f.GetSheetName(0))
	if err != nil {
		return nil, false, fmt.Errorf("read rows: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		if limit > 0 && len(out) == limit {
			return out, true, nil
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, false, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		out = append(out, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, false, fmt.Errorf("read rows: %w", err)
	}
	return out, false, nil
}
