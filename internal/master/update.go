package master

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/banshee-data/annotation.report/internal/fsutil"
)

// Update sets the completion status of one page. An empty Annotator
// updates both assignments.
type Update struct {
	CaseID    string
	PageID    string
	Annotator string
	Status    string
}

// LoadUpdates reads an update CSV with case_id, page_id (or image_id),
// status and an optional annotator column.
func LoadUpdates(fsys fsutil.FileSystem, path string) ([]Update, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("update file not found: %w", err)
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse update file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty update file", ErrMissingColumns)
	}

	idx := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		idx[strings.TrimSpace(h)] = i
	}
	id, ok := idx[ColPageID]
	if !ok {
		id, ok = idx[ColImageID]
	}
	caseCol, hasCase := idx[ColCaseID]
	statusCol, hasStatus := idx["status"]
	if !ok || !hasCase || !hasStatus {
		return nil, fmt.Errorf("%w: update file must contain case_id, page_id and status", ErrMissingColumns)
	}
	annCol, hasAnn := idx["annotator"]

	get := func(rec []string, i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	updates := make([]Update, 0, len(records)-1)
	for _, rec := range records[1:] {
		u := Update{
			CaseID: get(rec, caseCol),
			PageID: get(rec, id),
			Status: get(rec, statusCol),
		}
		if hasAnn {
			u.Annotator = get(rec, annCol)
		}
		updates = append(updates, u)
	}
	return updates, nil
}

// ApplyResult counts what ApplyUpdates changed.
type ApplyResult struct {
	// Applied is the number of assignments whose status was written.
	Applied int
	// Invalid lists updates skipped for a bad status value.
	Invalid []Update
}

// ApplyUpdates writes each update to the matching rows of f. Updates with
// an invalid status are skipped and reported.
func ApplyUpdates(f *File, updates []Update) ApplyResult {
	var res ApplyResult
	for _, u := range updates {
		status, err := ParseStatus(u.Status)
		if err != nil {
			res.Invalid = append(res.Invalid, u)
			continue
		}
		for _, row := range f.Rows {
			if row[ColCaseID] != u.CaseID || f.ID(row) != u.PageID {
				continue
			}
			res.Applied += setStatus(row, status, func(assignee string) bool {
				return u.Annotator == "" || u.Annotator == assignee
			})
		}
	}
	return res
}

// Filter selects rows for UpdateMatching. Empty lists match everything.
type Filter struct {
	CaseIDs    []string
	PageIDs    []string
	Annotators []string
}

func (f Filter) empty() bool {
	return len(f.CaseIDs) == 0 && len(f.PageIDs) == 0 && len(f.Annotators) == 0
}

func set(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// UpdateMatching sets status on every assignment selected by filter and
// returns how many were written.
func UpdateMatching(f *File, filter Filter, status string) (int, error) {
	status, err := ParseStatus(status)
	if err != nil {
		return 0, err
	}
	if filter.empty() {
		return 0, ErrEmptyFilter
	}
	cases, pages, annotators := set(filter.CaseIDs), set(filter.PageIDs), set(filter.Annotators)

	n := 0
	for _, row := range f.Rows {
		if cases != nil && !cases[row[ColCaseID]] {
			continue
		}
		if pages != nil && !pages[f.ID(row)] {
			continue
		}
		n += setStatus(row, status, func(assignee string) bool {
			return annotators == nil || annotators[assignee]
		})
	}
	return n, nil
}
