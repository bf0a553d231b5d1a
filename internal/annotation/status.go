package annotation

import (
	"path/filepath"
	"strings"

	"github.com/banshee-data/annotation.report/internal/labels"
)

// Completion counts labelled rows per annotator in one primary sheet.
type Completion struct {
	File       string `json:"file"`
	Rows       int    `json:"rows"`
	Annotator1 int    `json:"annotator1_completed"`
	Annotator2 int    `json:"annotator2_completed"`
}

// CompletionStatus counts non-empty label cells for each annotator. An
// absent column counts as zero.
func CompletionStatus(file string, t *Table) Completion {
	c := Completion{File: file, Rows: t.Len()}
	for r := range t.Rows {
		if filled(t.Cell(r, Annotator1.Column())) {
			c.Annotator1++
		}
		if filled(t.Cell(r, Annotator2.Column())) {
			c.Annotator2++
		}
	}
	return c
}

// Add accumulates o into c. File is left unchanged.
func (c *Completion) Add(o Completion) {
	c.Rows += o.Rows
	c.Annotator1 += o.Annotator1
	c.Annotator2 += o.Annotator2
}

// Percent returns n as a percentage of the row count.
func (c Completion) Percent(n int) float64 {
	if c.Rows == 0 {
		return 0
	}
	return float64(n) / float64(c.Rows) * 100
}

func filled(s string) bool {
	return strings.TrimSpace(s) != "" && !labels.IsMissing(s)
}

// CompletionReport is the completion status of every workbook in a
// directory.
type CompletionReport struct {
	Dir   string       `json:"dir"`
	Files []Completion `json:"files"`
	// Failed maps unreadable files to their error.
	Failed map[string]string `json:"failed,omitempty"`
	Total  Completion        `json:"total"`
}

// DirectoryCompletion reads sheet from every workbook in dir and counts
// labelled rows per annotator.
func DirectoryCompletion(dir, sheet string) (*CompletionReport, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	rep := &CompletionReport{Dir: dir, Total: Completion{File: "total"}}
	for _, path := range files {
		name := filepath.Base(path)
		t, err := ReadTable(path, sheet)
		if err != nil {
			if rep.Failed == nil {
				rep.Failed = make(map[string]string)
			}
			rep.Failed[name] = err.Error()
			continue
		}
		c := CompletionStatus(name, t)
		rep.Files = append(rep.Files, c)
		rep.Total.Add(c)
	}
	return rep, nil
}
