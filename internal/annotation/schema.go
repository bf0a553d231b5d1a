package annotation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/annotation.report/internal/labels"
)

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing column")
	// ErrSheetNotFound is returned when a workbook lacks the requested sheet.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrInvalidAnnotator is returned for annotator names other than
	// annotator1 and annotator2.
	ErrInvalidAnnotator = errors.New("invalid annotator")
)

// Column names used by the annotation sheets.
const (
	ColWords    = "words"
	ColPred     = "pred"
	ColProb     = "prob"
	ColX1       = "x1"
	ColY1       = "y1"
	ColX2       = "x2"
	ColY2       = "y2"
	ColBBoxes   = "bboxes"
	ColImageID  = "image_id"
	ColPageID   = "page_id"
	ColBlockIDs = "block_ids"
	ColWordIDs  = "word_ids"

	// LabelSuffix marks human label columns.
	LabelSuffix = "_label"
)

// Annotator names one of the two human label columns.
type Annotator string

const (
	Annotator1 Annotator = "annotator1"
	Annotator2 Annotator = "annotator2"
)

// ParseAnnotator validates an annotator name.
func ParseAnnotator(s string) (Annotator, error) {
	switch a := Annotator(strings.TrimSpace(s)); a {
	case Annotator1, Annotator2:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q (want annotator1 or annotator2)", ErrInvalidAnnotator, s)
}

// Column returns the sheet column holding this annotator's labels.
func (a Annotator) Column() string { return string(a) + LabelSuffix }

// Other returns the other annotator.
func (a Annotator) Other() Annotator {
	if a == Annotator1 {
		return Annotator2
	}
	return Annotator1
}

// Record is one validated token row. Derived label fields are filled by
// Schema.Records.
type Record struct {
	File string
	// Row is the spreadsheet row number; the header is row 1.
	Row  int
	Word string

	BBox    [4]float64
	HasBBox bool

	PredRaw string
	Prob    float64
	HasProb bool

	// Annotator labels after cleaning; "" when the cell is empty.
	Annotator1 string
	Annotator2 string

	// Pred is the decoded prediction, or the cleaned raw value when no
	// vocabulary is available.
	Pred string
	// Truth is the selected annotator's label.
	Truth string

	PredFlat  string
	TruthFlat string // "" when the annotator left the row empty
	PredBIO   string
	TruthBIO  string
}

// FlatValid reports whether the row takes part in flat-label metrics.
func (r Record) FlatValid() bool {
	return r.TruthFlat != "" && r.PredFlat != ""
}

// BIOValid reports whether the row takes part in BIO metrics.
func (r Record) BIOValid() bool {
	return !labels.IsMissing(r.PredBIO) && !labels.IsMissing(r.TruthBIO)
}

// BothAnnotated reports whether both annotators labelled the row.
func (r Record) BothAnnotated() bool {
	return r.Annotator1 != "" && r.Annotator2 != ""
}

// Page is the typed content of one annotation file.
type Page struct {
	File          string
	Records       []Record
	HasAnnotator1 bool
	HasAnnotator2 bool
}

// HasBothAnnotators reports whether both label columns were present.
func (p *Page) HasBothAnnotators() bool { return p.HasAnnotator1 && p.HasAnnotator2 }

// Schema validates a primary sheet and converts it into records. Truth
// selects the ground-truth annotator.
type Schema struct {
	Truth Annotator
}

// Validate checks that the columns needed for evaluation exist.
func (s Schema) Validate(t *Table) error {
	var missing []string
	for _, col := range []string{ColPred, s.Truth.Column()} {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s in sheet %q", ErrMissingColumn, strings.Join(missing, ", "), t.Sheet)
	}
	return nil
}

// Page validates t and returns its typed records. Predictions are decoded
// with vocab when it is non-empty. The whole sheet is one document sequence
// for the purpose of BIO expansion.
func (s Schema) Page(file string, t *Table, vocab *labels.Vocabulary) (*Page, error) {
	if err := s.Validate(t); err != nil {
		return nil, err
	}

	page := &Page{
		File:          file,
		Records:       make([]Record, 0, t.Len()),
		HasAnnotator1: t.Has(Annotator1.Column()),
		HasAnnotator2: t.Has(Annotator2.Column()),
	}
	hasCoords := t.Has(ColX1) && t.Has(ColY1) && t.Has(ColX2) && t.Has(ColY2)
	truthCol := s.Truth.Column()

	flat := make([]string, 0, t.Len())
	for r := 0; r < t.Len(); r++ {
		rec := Record{
			File:       file,
			Row:        r + 2,
			Word:       t.Cell(r, ColWords),
			PredRaw:    t.Cell(r, ColPred),
			Annotator1: cleanLabel(t.Cell(r, Annotator1.Column())),
			Annotator2: cleanLabel(t.Cell(r, Annotator2.Column())),
			Truth:      cleanLabel(t.Cell(r, truthCol)),
		}
		if p, err := strconv.ParseFloat(strings.TrimSpace(t.Cell(r, ColProb)), 64); err == nil {
			rec.Prob, rec.HasProb = p, true
		}
		switch {
		case hasCoords:
			rec.BBox, rec.HasBBox = parseCoords(t, r)
		case t.Has(ColBBoxes):
			if bb, err := ParseBBox(t.Cell(r, ColBBoxes)); err == nil {
				rec.BBox, rec.HasBBox = bb, true
			}
		}

		if vocab.Len() > 0 {
			rec.Pred = vocab.Decode(rec.PredRaw)
		} else {
			rec.Pred = cleanLabel(rec.PredRaw)
		}
		rec.PredFlat = labels.Flatten(rec.Pred)
		rec.PredBIO = rec.Pred
		if rec.Truth != "" {
			rec.TruthFlat = labels.Flatten(rec.Truth)
		}

		flat = append(flat, rec.TruthFlat)
		page.Records = append(page.Records, rec)
	}

	for i, tag := range labels.ExpandBIO(flat) {
		page.Records[i].TruthBIO = tag
	}
	return page, nil
}

func cleanLabel(s string) string {
	s = labels.Clean(s)
	if labels.IsMissing(s) {
		return ""
	}
	return s
}

func parseCoords(t *Table, r int) ([4]float64, bool) {
	var bb [4]float64
	for i, col := range []string{ColX1, ColY1, ColX2, ColY2} {
		v, err := strconv.ParseFloat(strings.TrimSpace(t.Cell(r, col)), 64)
		if err != nil {
			return [4]float64{}, false
		}
		bb[i] = v
	}
	return bb, true
}

// ParseBBox parses the "(x1, y1, x2, y2)" form the inference pipeline writes
// into the bboxes column. Square brackets are accepted too.
func ParseBBox(s string) ([4]float64, error) {
	var bb [4]float64
	trimmed := strings.Trim(strings.TrimSpace(s), "()[]")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 4 {
		return bb, fmt.Errorf("bbox %q: want 4 values, got %d", s, len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return bb, fmt.Errorf("bbox %q: %w", s, err)
		}
		bb[i] = v
	}
	return bb, nil
}
