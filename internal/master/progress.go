package master

import (
	"sort"
	"strings"
)

// AnnotatorProgress counts one annotator's assignments.
type AnnotatorProgress struct {
	Name      string `json:"name"`
	Assigned  int    `json:"assigned"`
	Completed int    `json:"completed"`
}

// CaseProgress counts the assignments of one case.
type CaseProgress struct {
	CaseID      string `json:"case_id"`
	Pages       int    `json:"pages"`
	Assignments int    `json:"assignments"`
	Completed   int    `json:"completed"`
}

// Progress summarises a master file.
type Progress struct {
	Pages       int                 `json:"pages"`
	Assignments int                 `json:"assignments"`
	Completed   int                 `json:"completed"`
	Annotators  []AnnotatorProgress `json:"annotators"`
	Cases       []CaseProgress      `json:"cases"`
}

// Percent returns completed as a percentage of total, or 0 when total is 0.
func Percent(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

func done(v string) bool { return strings.EqualFold(strings.TrimSpace(v), StatusYes) }

// ProgressReport counts assignments and completions overall, per annotator
// and per case. Annotators and cases are sorted by name. Empty assignee
// cells are not counted.
func ProgressReport(f *File) Progress {
	var p Progress
	byAnn := make(map[string]*AnnotatorProgress)
	byCase := make(map[string]*CaseProgress)

	for _, row := range f.Rows {
		p.Pages++
		caseID := row[ColCaseID]
		c, ok := byCase[caseID]
		if !ok {
			c = &CaseProgress{CaseID: caseID}
			byCase[caseID] = c
		}
		c.Pages++

		for _, s := range slots {
			name := strings.TrimSpace(row[s.assignee])
			if name == "" {
				continue
			}
			a, ok := byAnn[name]
			if !ok {
				a = &AnnotatorProgress{Name: name}
				byAnn[name] = a
			}
			a.Assigned++
			c.Assignments++
			p.Assignments++
			if done(row[s.completed]) {
				a.Completed++
				c.Completed++
				p.Completed++
			}
		}
	}

	for _, a := range byAnn {
		p.Annotators = append(p.Annotators, *a)
	}
	sort.Slice(p.Annotators, func(i, j int) bool { return p.Annotators[i].Name < p.Annotators[j].Name })
	for _, c := range byCase {
		p.Cases = append(p.Cases, *c)
	}
	sort.Slice(p.Cases, func(i, j int) bool { return p.Cases[i].CaseID < p.Cases[j].CaseID })
	return p
}

// Assignment is one page assigned to an annotator.
type Assignment struct {
	CaseID    string `json:"case_id"`
	PageID    string `json:"page_id"`
	LabelFile string `json:"label_file_path"`
	Completed bool   `json:"completed"`
}

// AnnotatorReport lists the pages assigned to name in file order.
func AnnotatorReport(f *File, name string) []Assignment {
	var out []Assignment
	for _, row := range f.Rows {
		for _, s := range slots {
			if row[s.assignee] != name {
				continue
			}
			out = append(out, Assignment{
				CaseID:    row[ColCaseID],
				PageID:    f.ID(row),
				LabelFile: row[ColLabelPath],
				Completed: done(row[s.completed]),
			})
		}
	}
	return out
}

// Page is a generated annotation page.
type Page struct {
	CaseID string
	PageID string
}

// DefaultAnnotators are assigned when fewer than two names are given.
var DefaultAnnotators = []string{"annotator1", "annotator2"}

// NewRows builds a master file for pages. Each page is assigned to the
// first two annotators and its image and label paths point into share
// using Windows separators, as the files are opened from a mapped drive.
func NewRows(pages []Page, annotators []string, share string) *File {
	if len(annotators) < 2 {
		annotators = DefaultAnnotators
	}
	f := &File{Header: append([]string(nil), Header...), IDColumn: ColPageID}
	for _, p := range pages {
		stem := p.CaseID + "_" + p.PageID
		f.Rows = append(f.Rows, Row{
			ColCaseID:     p.CaseID,
			ColPageID:     p.PageID,
			ColImagePath:  share + `\annotation_images\` + stem + ".jpeg",
			ColLabelPath:  share + `\annotation_labels\` + stem + ".xlsx",
			ColAssignee1:  annotators[0],
			ColCompleted1: StatusNo,
			ColAssignee2:  annotators[1],
			ColCompleted2: StatusNo,
			ColNotes:      "",
		})
	}
	return f
}
