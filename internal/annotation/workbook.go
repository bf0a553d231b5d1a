package annotation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Default sheet names written by the preparation tool.
const (
	DefaultPrimarySheet = "Annotation"
	DefaultVocabSheet   = "Validation"
	DefaultVocabColumn  = "Label Options"
)

// Workbook is an in-memory copy of every sheet in an xlsx file. Cell
// formatting is not preserved; values are.
type Workbook struct {
	Path   string
	Sheets []*Table
}

// Sheet returns the named sheet or nil.
func (w *Workbook) Sheet(name string) *Table {
	for _, t := range w.Sheets {
		if t.Sheet == name {
			return t
		}
	}
	return nil
}

// Replace swaps in t for the sheet with the same name, appending it when the
// workbook has no such sheet.
func (w *Workbook) Replace(t *Table) {
	for i, s := range w.Sheets {
		if s.Sheet == t.Sheet {
			w.Sheets[i] = t
			return
		}
	}
	w.Sheets = append(w.Sheets, t)
}

// ReadWorkbook loads every sheet of the file at path.
func ReadWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	wb := &Workbook{Path: path}
	for _, name := range f.GetSheetList() {
		t, err := readSheet(f, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		wb.Sheets = append(wb.Sheets, t)
	}
	return wb, nil
}

// ReadTable loads a single sheet.
func ReadTable(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%s: %w: %q", path, ErrSheetNotFound, sheet)
	}
	t, err := readSheet(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func readSheet(f *excelize.File, name string) (*Table, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	t := &Table{Sheet: name}
	for i, row := range rows {
		if i == 0 {
			t.Header = make([]string, len(row))
			for c, h := range row {
				t.Header[c] = strings.TrimSpace(h)
			}
			continue
		}
		if isBlankRow(row) {
			continue
		}
		if len(row) > len(t.Header) {
			row = row[:len(t.Header)]
		}
		t.Rows = append(t.Rows, row)
	}
	t.pad()
	return t, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteWorkbook saves every sheet of wb to path with a bold header row. The
// first sheet becomes the active one.
func WriteWorkbook(path string, wb *Workbook) error {
	if len(wb.Sheets) == 0 {
		return fmt.Errorf("write %s: workbook has no sheets", path)
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, t := range wb.Sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.Sheet); err != nil {
			return fmt.Errorf("create sheet %q: %w", t.Sheet, err)
		}
		if err := writeSheet(f, t, bold); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, t *Table, headerStyle int) error {
	if len(t.Header) == 0 {
		return nil
	}
	if err := f.SetSheetRow(t.Sheet, "A1", &t.Header); err != nil {
		return fmt.Errorf("write header of %q: %w", t.Sheet, err)
	}
	if err := f.SetRowStyle(t.Sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style header of %q: %w", t.Sheet, err)
	}
	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for c, v := range row {
			values[c] = CellValue(v)
		}
		if err := f.SetSheetRow(t.Sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d of %q: %w", r+2, t.Sheet, err)
		}
	}
	return nil
}

// numericCell matches plain decimals. Values with leading zeros stay text so
// identifiers such as "007" survive a rewrite.
var numericCell = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?$`)

// CellValue converts a stored string to the value written to a cell:
// plain decimals become numbers, everything else stays text.
func CellValue(v string) interface{} {
	if numericCell.MatchString(v) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}
