package prepare

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/annotation.report/internal/annotation"
)

// Fill colours of the prob column rules.
const (
	mediumConfidenceFill = "#FFEB9C"
	highConfidenceFill   = "#C6EFCE"
	headerFill           = "#D7E4BC"
)

var coordColumns = []string{annotation.ColX1, annotation.ColY1, annotation.ColX2, annotation.ColY2}

// FilterColumn returns the column that identifies the page of a prediction
// row: page_id, then image_id, else the first column.
func FilterColumn(header []string) (int, string) {
	for _, name := range []string{annotation.ColPageID, annotation.ColImageID} {
		for i, h := range header {
			if h == name {
				return i, name
			}
		}
	}
	return 0, annotation.ColImageID
}

// SplitBBox returns the four coordinates of a "(x1, y1, x2, y2)" string, or
// four empty strings when it does not parse.
func SplitBBox(s string) [4]string {
	var out [4]string
	bb, err := annotation.ParseBBox(s)
	if err != nil {
		return out
	}
	for i, v := range bb {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

// LabelTable lays out prediction rows for annotation. When a bboxes column
// is present its coordinates are split into x1, y1, x2 and y2 columns right
// after it; both annotator label columns are appended empty.
func LabelTable(header []string, rows [][]string) *annotation.Table {
	bboxIdx := -1
	for i, h := range header {
		if h == annotation.ColBBoxes {
			bboxIdx = i
			break
		}
	}

	out := make([]string, 0, len(header)+6)
	out = append(out, header[:bboxIdx+1]...)
	if bboxIdx >= 0 {
		out = append(out, coordColumns...)
	}
	out = append(out, header[bboxIdx+1:]...)
	out = append(out, annotation.Annotator1.Column(), annotation.Annotator2.Column())

	t := annotation.NewTable(annotation.DefaultPrimarySheet, out...)
	for _, rec := range rows {
		row := make([]string, 0, len(out))
		for i := range header {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			row = append(row, v)
			if i == bboxIdx {
				coords := SplitBBox(v)
				row = append(row, coords[:]...)
			}
		}
		row = append(row, "", "")
		t.Rows = append(t.Rows, row)
	}
	return t
}

func columnWidth(header string) float64 {
	switch header {
	case annotation.ColImageID, annotation.ColPageID,
		annotation.Annotator1.Column(), annotation.Annotator2.Column():
		return 15
	case annotation.ColBBoxes:
		return 18
	case annotation.ColWords:
		return 20
	case annotation.ColX1, annotation.ColY1, annotation.ColX2, annotation.ColY2:
		return 8
	}
	return 10
}

// WriteLabelFile writes t as an annotation workbook to w. The annotation
// sheet gets a styled frozen header with an auto filter, drop-down lists on
// both annotator columns fed from a Validation sheet listing vocab, and
// colour rules on prob (yellow for 0.5-0.8, green above 0.8).
func WriteLabelFile(w io.Writer, t *annotation.Table, vocab []string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Sheet
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	coordStyle, err := f.NewStyle(&excelize.Style{
		NumFmt:    1,
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create coordinate style: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(t.Header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for r, row := range t.Rows {
		values := make([]interface{}, len(row))
		for c, v := range row {
			values[c] = annotation.CellValue(v)
		}
		if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(r+2), &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}
	lastRow := len(t.Rows) + 1

	for i, h := range t.Header {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, columnWidth(h)); err != nil {
			return fmt.Errorf("set width of %s: %w", h, err)
		}
		if isCoord(h) && len(t.Rows) > 0 {
			if err := f.SetCellStyle(sheet, col+"2", col+strconv.Itoa(lastRow), coordStyle); err != nil {
				return fmt.Errorf("style %s: %w", h, err)
			}
		}
	}

	if err := f.AutoFilter(sheet, "A1:"+lastCol+strconv.Itoa(lastRow), nil); err != nil {
		return fmt.Errorf("add auto filter: %w", err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if len(t.Rows) > 0 {
		if err := addLabelValidation(f, t, lastRow, len(vocab)); err != nil {
			return err
		}
		if err := addProbFormatting(f, t, lastRow); err != nil {
			return err
		}
	}

	if err := writeVocabSheet(f, vocab); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func isCoord(h string) bool {
	for _, c := range coordColumns {
		if h == c {
			return true
		}
	}
	return false
}

func addLabelValidation(f *excelize.File, t *annotation.Table, lastRow, vocabLen int) error {
	if vocabLen == 0 {
		return nil
	}
	source := fmt.Sprintf("%s!$A$2:$A$%d", annotation.DefaultVocabSheet, vocabLen+1)
	for _, a := range []annotation.Annotator{annotation.Annotator1, annotation.Annotator2} {
		idx := t.Index(a.Column())
		if idx < 0 {
			continue
		}
		col, err := excelize.ColumnNumberToName(idx + 1)
		if err != nil {
			return err
		}
		dv := excelize.NewDataValidation(true)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", col, col, lastRow)
		dv.SetSqrefDropList(source)
		if err := f.AddDataValidation(t.Sheet, dv); err != nil {
			return fmt.Errorf("add validation to %s: %w", a.Column(), err)
		}
	}
	return nil
}

func addProbFormatting(f *excelize.File, t *annotation.Table, lastRow int) error {
	idx := t.Index(annotation.ColProb)
	if idx < 0 {
		return nil
	}
	col, err := excelize.ColumnNumberToName(idx + 1)
	if err != nil {
		return err
	}
	yellow, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{mediumConfidenceFill}},
	})
	if err != nil {
		return fmt.Errorf("create conditional style: %w", err)
	}
	green, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{highConfidenceFill}},
	})
	if err != nil {
		return fmt.Errorf("create conditional style: %w", err)
	}

	ref := fmt.Sprintf("%s2:%s%d", col, col, lastRow)
	err = f.SetConditionalFormat(t.Sheet, ref, []excelize.ConditionalFormatOptions{
		{Type: "cell", Criteria: "between", MinValue: "0.5", MaxValue: "0.8", Format: yellow},
		{Type: "cell", Criteria: ">", Value: "0.8", Format: green},
	})
	if err != nil {
		return fmt.Errorf("format %s: %w", annotation.ColProb, err)
	}
	return nil
}

func writeVocabSheet(f *excelize.File, vocab []string) error {
	name := annotation.DefaultVocabSheet
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create %s sheet: %w", name, err)
	}
	if err := f.SetCellStr(name, "A1", annotation.DefaultVocabColumn); err != nil {
		return err
	}
	for i, tag := range vocab {
		if err := f.SetCellStr(name, "A"+strconv.Itoa(i+2), tag); err != nil {
			return fmt.Errorf("write label %q: %w", tag, err)
		}
	}
	return f.SetColWidth(name, "A", "A", 20)
}
