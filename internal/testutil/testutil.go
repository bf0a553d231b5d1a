// Package testutil provides shared test helpers and workbook fixtures.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Sheet describes one worksheet of a fixture workbook. Rows hold cell values
// as they should be stored: strings stay text, numbers stay numeric and nil
// leaves the cell empty.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

// AnnotationHeader is the column layout produced by the preparation tool.
var AnnotationHeader = []string{
	"words", "x1", "y1", "x2", "y2", "pred", "prob", "annotator1_label", "annotator2_label",
}

// Token is one row of an annotation fixture.
type Token struct {
	Word       string
	Pred       interface{}
	Prob       float64
	Annotator1 string
	Annotator2 string
}

// AnnotationSheet builds an "Annotation" sheet with AnnotationHeader from
// tokens. Empty annotator labels leave the cell blank.
func AnnotationSheet(tokens ...Token) Sheet {
	s := Sheet{Name: "Annotation", Header: AnnotationHeader}
	for i, tok := range tokens {
		y := float64(10 * i)
		s.Rows = append(s.Rows, []interface{}{
			tok.Word, 10.0, y, 50.0, y + 8,
			tok.Pred, tok.Prob, blankIfEmpty(tok.Annotator1), blankIfEmpty(tok.Annotator2),
		})
	}
	return s
}

// VocabSheet builds a "Validation" sheet whose "Label Options" column lists
// tags in index order.
func VocabSheet(tags ...string) Sheet {
	s := Sheet{Name: "Validation", Header: []string{"Label Options"}}
	for _, tag := range tags {
		s.Rows = append(s.Rows, []interface{}{tag})
	}
	return s
}

func blankIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// WriteWorkbook writes sheets to dir/name and returns the full path. The
// first sheet replaces the default Sheet1.
func WriteWorkbook(t testing.TB, dir, name string, sheets ...Sheet) string {
	t.Helper()
	if len(sheets) == 0 {
		t.Fatal("WriteWorkbook needs at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			AssertNoError(t, f.SetSheetName("Sheet1", s.Name))
		} else {
			_, err := f.NewSheet(s.Name)
			AssertNoError(t, err)
		}
		AssertNoError(t, f.SetSheetRow(s.Name, "A1", &s.Header))
		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			AssertNoError(t, err)
			values := row
			AssertNoError(t, f.SetSheetRow(s.Name, cell, &values))
		}
	}

	path := filepath.Join(dir, name)
	AssertNoError(t, os.MkdirAll(dir, 0755))
	AssertNoError(t, f.SaveAs(path))
	return path
}
