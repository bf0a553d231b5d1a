package annotation

import (
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/annotation.report/internal/labels"
)

// TopKKeyColumns identify one token when the inference pipeline emits
// several candidate predictions for it.
var TopKKeyColumns = []string{ColImageID, ColBlockIDs, ColWordIDs, ColWords, ColBBoxes}

// DedupeStats describes a DedupeTopK pass.
type DedupeStats struct {
	Keys    []string
	Removed int
	// Skipped is set when the table lacks key or probability columns and
	// was returned unchanged.
	Skipped string
}

// DedupeTopK keeps, for every distinct combination of TopKKeyColumns, the
// row with the highest prob. The first row wins ties and rows whose prob
// does not parse rank lowest. Groups keep the order of their first row.
func DedupeTopK(t *Table) (*Table, DedupeStats) {
	var stats DedupeStats
	for _, col := range TopKKeyColumns {
		if t.Has(col) {
			stats.Keys = append(stats.Keys, col)
		}
	}
	if len(stats.Keys) == 0 {
		stats.Skipped = "no key columns found"
		return t, stats
	}
	if !t.Has(ColProb) {
		stats.Skipped = "no prob column found"
		return t, stats
	}

	type group struct {
		best int
		prob float64
	}
	groups := make(map[string]*group)
	var order []string

	for r := range t.Rows {
		key := rowKey(t, r, stats.Keys)
		p := parseProb(t.Cell(r, ColProb))
		g, ok := groups[key]
		if !ok {
			groups[key] = &group{best: r, prob: p}
			order = append(order, key)
			continue
		}
		if p > g.prob {
			g.best, g.prob = r, p
		}
	}

	out := &Table{Sheet: t.Sheet, Header: append([]string(nil), t.Header...)}
	out.Rows = make([][]string, 0, len(order))
	for _, key := range order {
		out.Rows = append(out.Rows, append([]string(nil), t.Rows[groups[key].best]...))
	}
	stats.Removed = t.Len() - out.Len()
	return out, stats
}

func parseProb(s string) float64 {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(p) {
		return math.Inf(-1)
	}
	return p
}

func rowKey(t *Table, r int, cols []string) string {
	var b strings.Builder
	for i, col := range cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(t.Cell(r, col))
	}
	return b.String()
}

// DefaultDuplicateKeys returns every column that is not a human label column.
func DefaultDuplicateKeys(t *Table) []string {
	var keys []string
	for _, h := range t.Header {
		if !strings.HasSuffix(h, LabelSuffix) {
			keys = append(keys, h)
		}
	}
	return keys
}

// DropDuplicates removes rows that repeat an earlier row on keys, keeping
// the first. A nil keys uses DefaultDuplicateKeys. Keys the table lacks are
// ignored; when none remain the table is returned unchanged.
func DropDuplicates(t *Table, keys []string) (*Table, int) {
	if keys == nil {
		keys = DefaultDuplicateKeys(t)
	}
	var present []string
	for _, k := range keys {
		if t.Has(k) {
			present = append(present, k)
		}
	}
	if len(present) == 0 {
		return t, 0
	}

	seen := make(map[string]bool, t.Len())
	out := &Table{Sheet: t.Sheet, Header: append([]string(nil), t.Header...)}
	for r, row := range t.Rows {
		key := rowKey(t, r, present)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Rows = append(out.Rows, append([]string(nil), row...))
	}
	return out, t.Len() - out.Len()
}

// StandardiseAnnotator makes target's label column complete. When the
// column is absent it is copied from the other annotator; when both exist
// empty target cells are filled from the other annotator. It returns the
// number of cells written.
func StandardiseAnnotator(t *Table, target Annotator) (*Table, int) {
	out := t.Clone()
	targetCol, otherCol := target.Column(), target.Other().Column()

	switch {
	case !out.Has(targetCol) && out.Has(otherCol):
		src := out.Column(otherCol)
		out.AddColumn(targetCol)
		for r, v := range src {
			_ = out.Set(r, targetCol, v)
		}
		return out, out.Len()

	case out.Has(targetCol) && out.Has(otherCol):
		changed := 0
		for r := range out.Rows {
			if !labels.IsMissing(out.Cell(r, targetCol)) {
				continue
			}
			v := out.Cell(r, otherCol)
			if labels.IsMissing(v) {
				continue
			}
			_ = out.Set(r, targetCol, v)
			changed++
		}
		return out, changed
	}

	out.AddColumn(targetCol)
	return out, 0
}

// FillStats describes a FillFromPredictions pass.
type FillStats struct {
	Decoded        int
	Annotator1Fill int
	Annotator2Fill int
	NoPredColumn   bool
}

// FillFromPredictions decodes the pred column with vocab, treating missing
// predictions as O, and copies the result into every empty annotator cell.
// Both annotator columns are created when absent. Without a pred column
// empty cells are filled with O.
func FillFromPredictions(t *Table, vocab *labels.Vocabulary) (*Table, FillStats) {
	out := t.Clone()
	var stats FillStats

	decoded := make([]string, out.Len())
	if out.Has(ColPred) {
		for r := range out.Rows {
			decoded[r] = vocab.DecodeOr(out.Cell(r, ColPred), labels.Outside)
		}
		stats.Decoded = out.Len()
	} else {
		stats.NoPredColumn = true
		for r := range decoded {
			decoded[r] = labels.Outside
		}
	}

	fill := func(a Annotator) int {
		col := a.Column()
		out.AddColumn(col)
		n := 0
		for r := range out.Rows {
			if labels.IsMissing(out.Cell(r, col)) {
				_ = out.Set(r, col, decoded[r])
				n++
			}
		}
		return n
	}
	stats.Annotator1Fill = fill(Annotator1)
	stats.Annotator2Fill = fill(Annotator2)
	return out, stats
}
