package prepare

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/annotation.report/internal/annotation"
	"github.com/banshee-data/annotation.report/internal/master"
	"github.com/banshee-data/annotation.report/internal/security"
)

// Names used by the tracking workbooks.
const (
	MasterSheet    = "Annotation Master"
	CaseIndexSheet = "Case Index"
	CasesDirName   = "cases"
	CaseIndexName  = "index.xlsx"

	ColAssignee     = "assignee"
	ColHasCompleted = "has_completed"
	ColNumImages    = "num_images"

	imageLinkText = "View image"
	labelLinkText = "View labels"
	linkColour    = "0000FF"
	maxSheetName  = 31
)

// TrackingSheet is a table written as a single-sheet workbook. Cells of a
// column listed in Links become HYPERLINK formulas whose target is the cell
// value and whose text is the mapped string.
type TrackingSheet struct {
	Table   *annotation.Table
	Links   map[string]string
	Numeric map[string]bool
	Widths  map[string]float64
}

// WriteTrackingFile writes s to w with a bold header and blue underlined
// links. Non-numeric cells are stored as text so ids such as "007" keep
// their leading zeros.
func WriteTrackingFile(w io.Writer, s TrackingSheet) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := s.Table.Sheet
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	link, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: linkColour, Underline: "single"}})
	if err != nil {
		return fmt.Errorf("create link style: %w", err)
	}

	for c, h := range s.Table.Header {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, bold); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
		if width, ok := s.Widths[h]; ok {
			col, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				return err
			}
			if err := f.SetColWidth(sheet, col, col, width); err != nil {
				return fmt.Errorf("set width of %s: %w", h, err)
			}
		}
	}

	for r, row := range s.Table.Rows {
		for c, h := range s.Table.Header {
			v := ""
			if c < len(row) {
				v = row[c]
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if text, ok := s.Links[h]; ok && v != "" {
				if err := f.SetCellFormula(sheet, cell, Hyperlink(v, text)); err != nil {
					return fmt.Errorf("write link %s: %w", cell, err)
				}
				if err := f.SetCellStyle(sheet, cell, cell, link); err != nil {
					return fmt.Errorf("style link %s: %w", cell, err)
				}
				continue
			}
			if s.Numeric[h] {
				err = f.SetCellValue(sheet, cell, annotation.CellValue(v))
			} else {
				err = f.SetCellStr(sheet, cell, v)
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Hyperlink returns the formula body of a spreadsheet link to target.
func Hyperlink(target, text string) string {
	q := func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }
	return "HYPERLINK(" + q(target) + "," + q(text) + ")"
}

// masterPaths returns the CSV master and its hyperlinked workbook. A master
// file named *.xlsx keeps that name for the workbook and the CSV takes the
// .csv extension.
func masterPaths(name string) (csvPath, workbook string) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if strings.EqualFold(ext, ".xlsx") {
		return stem + ".csv", name
	}
	return name, stem + ".xlsx"
}

func trackingWidth(h string) float64 {
	switch h {
	case master.ColImagePath, master.ColLabelPath:
		return 20
	case master.ColNotes:
		return 25
	}
	return 15
}

func widths(header []string) map[string]float64 {
	out := make(map[string]float64, len(header))
	for _, h := range header {
		out[h] = trackingWidth(h)
	}
	return out
}

func pageLinks() map[string]string {
	return map[string]string{master.ColImagePath: imageLinkText, master.ColLabelPath: labelLinkText}
}

// MasterSheetOf lays out every master row with links to the page image and
// label workbook.
func MasterSheetOf(mf *master.File) TrackingSheet {
	t := annotation.NewTable(MasterSheet, master.Header...)
	for _, r := range mf.Rows {
		row := make([]string, len(master.Header))
		for i, h := range master.Header {
			row[i] = r[h]
		}
		t.Rows = append(t.Rows, row)
	}
	return TrackingSheet{Table: t, Links: pageLinks(), Widths: widths(master.Header)}
}

// assignment names the master columns of one assignee slot.
type assignment struct {
	assignee, completed string
}

var assignments = [2]assignment{
	{master.ColAssignee1, master.ColCompleted1},
	{master.ColAssignee2, master.ColCompleted2},
}

// CaseSheet lists the pages of one case as seen by the annotator in the
// given assignment slot (0 or 1).
func CaseSheet(caseID string, rows []master.Row, slot int) TrackingSheet {
	header := []string{master.ColPageID, master.ColImagePath, master.ColLabelPath, ColAssignee, ColHasCompleted, master.ColNotes}
	t := annotation.NewTable(sheetName("Case "+caseID), header...)
	a := assignments[slot]
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r[master.ColPageID], r[master.ColImagePath], r[master.ColLabelPath],
			r[a.assignee], r[a.completed], r[master.ColNotes],
		})
	}
	return TrackingSheet{Table: t, Links: pageLinks(), Widths: widths(header)}
}

// IndexSheet lists every case with its page count and a link per annotator
// to that annotator's case workbook, relative to the cases directory.
func IndexSheet(cases map[string][]master.Row, annotators []string) TrackingSheet {
	header := append([]string{master.ColCaseID, ColNumImages}, annotators...)
	t := annotation.NewTable(CaseIndexSheet, header...)
	links := make(map[string]string, len(annotators))
	w := map[string]float64{master.ColCaseID: 15, ColNumImages: 10}
	for _, a := range annotators {
		links[a] = a + " file"
		w[a] = 15
	}

	for _, id := range sortedCases(cases) {
		row := []string{id, strconv.Itoa(len(cases[id]))}
		for _, a := range annotators {
			row = append(row, path.Join(security.SanitizeFilename(a), caseFileName(id)))
		}
		t.Rows = append(t.Rows, row)
	}
	return TrackingSheet{Table: t, Links: links, Numeric: map[string]bool{ColNumImages: true}, Widths: w}
}

// groupByCase splits master rows by case id, keeping row order.
func groupByCase(mf *master.File) map[string][]master.Row {
	out := map[string][]master.Row{}
	for _, r := range mf.Rows {
		id := r[master.ColCaseID]
		out[id] = append(out[id], r)
	}
	return out
}

func sortedCases(cases map[string][]master.Row) []string {
	ids := make([]string, 0, len(cases))
	for id := range cases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func caseFileName(caseID string) string {
	return security.SanitizeFilename(caseID) + ".xlsx"
}

// sheetName drops the characters Excel rejects in sheet names and caps the
// length.
func sheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, s)
	if r := []rune(s); len(r) > maxSheetName {
		s = string(r[:maxSheetName])
	}
	return s
}
