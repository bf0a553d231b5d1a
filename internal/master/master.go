// Package master maintains the annotation master file: a CSV listing every
// page to annotate, who it is assigned to and whether each assignee has
// finished it.
package master

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/annotation.report/internal/fsutil"
)

var (
	// ErrInvalidStatus is returned for completion values other than yes and no.
	ErrInvalidStatus = errors.New("invalid status, must be 'yes' or 'no'")
	// ErrMissingColumns is returned when a master or update file lacks
	// required columns.
	ErrMissingColumns = errors.New("missing required columns")
	// ErrEmptyFilter is returned by UpdateMatching when no criteria are set.
	ErrEmptyFilter = errors.New("at least one of case ids, page ids or annotators must be specified")
)

// Column names of the master file.
const (
	ColCaseID     = "case_id"
	ColPageID     = "page_id"
	ColImageID    = "image_id"
	ColImagePath  = "image_file_path"
	ColLabelPath  = "label_file_path"
	ColAssignee1  = "assignee1"
	ColCompleted1 = "has_assignee1_completed"
	ColAssignee2  = "assignee2"
	ColCompleted2 = "has_assignee2_completed"
	ColNotes      = "notes"
)

// Header is the column order of a newly created master file.
var Header = []string{
	ColCaseID, ColPageID, ColImagePath, ColLabelPath,
	ColAssignee1, ColCompleted1, ColAssignee2, ColCompleted2, ColNotes,
}

// Completion values.
const (
	StatusYes = "yes"
	StatusNo  = "no"
)

// ParseStatus normalises a completion value.
func ParseStatus(s string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case StatusYes, StatusNo:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Row is one master entry keyed by column name. Columns the tools do not
// know about are carried through unchanged.
type Row map[string]string

// File is a loaded master file.
type File struct {
	Header []string
	Rows   []Row
	// IDColumn is page_id, or image_id for files written by older tools.
	IDColumn string
}

// ID returns the page identifier of r.
func (f *File) ID(r Row) string { return r[f.IDColumn] }

// slot describes one of the two assignments of a row.
type slot struct {
	assignee, completed string
}

var slots = [2]slot{
	{ColAssignee1, ColCompleted1},
	{ColAssignee2, ColCompleted2},
}

// Parse reads a master file from r.
func Parse(r io.Reader) (*File, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse master file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumns)
	}

	f := &File{Header: records[0]}
	has := make(map[string]bool, len(f.Header))
	for _, h := range f.Header {
		has[h] = true
	}
	switch {
	case has[ColPageID]:
		f.IDColumn = ColPageID
	case has[ColImageID]:
		f.IDColumn = ColImageID
	}

	var missing []string
	if f.IDColumn == "" {
		missing = append(missing, ColPageID)
	}
	for _, c := range []string{ColCaseID, ColAssignee1, ColCompleted1, ColAssignee2, ColCompleted2} {
		if !has[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	for _, rec := range records[1:] {
		row := make(Row, len(f.Header))
		for i, h := range f.Header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

// Load reads the master file at path.
func Load(fsys fsutil.FileSystem, path string) (*File, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("master file not found: %w", err)
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Encode writes f as CSV.
func (f *File) Encode(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Header); err != nil {
		return err
	}
	rec := make([]string, len(f.Header))
	for _, row := range f.Rows {
		for i, h := range f.Header {
			rec[i] = row[h]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BackupPath is where Save copies an existing master file.
func BackupPath(path string) string { return path + ".bak" }

// Save writes f to path. An existing file is first copied to
// BackupPath(path); the returned string is that path, or empty when there
// was nothing to back up.
func Save(fsys fsutil.FileSystem, path string, f *File) (string, error) {
	var backup string
	if fsys.Exists(path) {
		backup = BackupPath(path)
		if err := fsutil.CopyFile(fsys, path, backup); err != nil {
			return "", fmt.Errorf("backup master file: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Encode(&buf); err != nil {
		return "", fmt.Errorf("encode master file: %w", err)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write master file: %w", err)
	}
	return backup, nil
}

// setStatus marks every assignment of row whose assignee passes match.
func setStatus(row Row, status string, match func(assignee string) bool) int {
	n := 0
	for _, s := range slots {
		if match(row[s.assignee]) {
			row[s.completed] = status
			n++
		}
	}
	return n
}
