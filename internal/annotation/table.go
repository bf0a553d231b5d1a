// Package annotation reads, validates and rewrites the per-page annotation
// workbooks. A workbook holds a primary sheet with one row per token and an
// optional reference sheet listing the label vocabulary.
package annotation

import "fmt"

// Table is the untyped view of one sheet: a header row followed by string
// rows. Rows are padded to the header width on read.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]string
}

// NewTable returns an empty table with the given header.
func NewTable(sheet string, header ...string) *Table {
	return &Table{Sheet: sheet, Header: append([]string(nil), header...)}
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Cell returns the value at row r, column name. Unknown columns and short
// rows read as "".
func (t *Table) Cell(r int, name string) string {
	c := t.Index(name)
	if c < 0 || r < 0 || r >= len(t.Rows) || c >= len(t.Rows[r]) {
		return ""
	}
	return t.Rows[r][c]
}

// Set writes v into row r, column name.
func (t *Table) Set(r int, name, v string) error {
	c := t.Index(name)
	if c < 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	if r < 0 || r >= len(t.Rows) {
		return fmt.Errorf("row %d out of range [0,%d)", r, len(t.Rows))
	}
	for len(t.Rows[r]) <= c {
		t.Rows[r] = append(t.Rows[r], "")
	}
	t.Rows[r][c] = v
	return nil
}

// AddColumn appends an empty column unless it already exists. It returns
// the column index.
func (t *Table) AddColumn(name string) int {
	if i := t.Index(name); i >= 0 {
		return i
	}
	t.Header = append(t.Header, name)
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], "")
	}
	return len(t.Header) - 1
}

// Column returns a copy of every value in column name.
func (t *Table) Column(name string) []string {
	out := make([]string, len(t.Rows))
	for r := range t.Rows {
		out[r] = t.Cell(r, name)
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{Sheet: t.Sheet, Header: append([]string(nil), t.Header...)}
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

func (t *Table) pad() {
	for r, row := range t.Rows {
		for len(row) < len(t.Header) {
			row = append(row, "")
		}
		t.Rows[r] = row
	}
}
