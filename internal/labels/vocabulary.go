// Package labels owns the tag vocabulary used by the annotation workflow and
// the conversions between numeric model predictions, BIO-prefixed tags and
// flat entity types.
package labels

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// Unknown is returned when a prediction cell is empty.
	Unknown = "UNK"
	// Outside is the non-entity tag.
	Outside = "O"
)

// StandardLabels is the fixed vocabulary the token classifier was trained
// with. Index i is the tag emitted for class i.
var StandardLabels = []string{
	"O", "B-PER", "I-PER", "B-ORG", "I-ORG", "B-LOC", "I-LOC", "B-DATE", "I-DATE",
	"B-MONEY", "I-MONEY", "B-MISC", "I-MISC", "B-ADDRESS", "I-ADDRESS", "B-PHONE", "I-PHONE",
	"B-EMAIL", "I-EMAIL", "B-URL", "I-URL", "B-PRODUCT", "I-PRODUCT", "B-EVENT", "I-EVENT",
	"B-TITLE", "I-TITLE", "B-QUANTITY", "I-QUANTITY", "B-ORDINAL", "I-ORDINAL", "B-CARDINAL", "I-CARDINAL",
	"B-FACILITY", "I-FACILITY", "B-GPE", "I-GPE", "B-LANGUAGE", "I-LANGUAGE", "B-NORP", "I-NORP",
	"B-WORK_OF_ART", "I-WORK_OF_ART", "B-LAW", "I-LAW", "B-TIME", "I-TIME", "B-PERCENT", "I-PERCENT",
	"HEADER", "FOOTER", "TITLE", "SUBTITLE", "PARAGRAPH", "LIST_ITEM", "TABLE_HEADER", "TABLE_CELL",
	"CAPTION", "FOOTNOTE", "PAGE_NUMBER", "SECTION",
}

// Vocabulary maps class indices to tag strings. Indices are positions in
// the ordered tag list and are stable for the lifetime of a run.
type Vocabulary struct {
	tags []string
}

// NewVocabulary builds a vocabulary from an ordered tag list. Missing entries
// are dropped so the list read from a spreadsheet column can be passed as is.
func NewVocabulary(tags []string) *Vocabulary {
	v := &Vocabulary{tags: make([]string, 0, len(tags))}
	for _, t := range tags {
		t = Clean(t)
		if IsMissing(t) {
			continue
		}
		v.tags = append(v.tags, t)
	}
	return v
}

// Standard returns the vocabulary built from StandardLabels.
func Standard() *Vocabulary {
	return NewVocabulary(StandardLabels)
}

// Len reports the number of tags. A nil vocabulary is empty.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.tags)
}

// Tags returns a copy of the ordered tag list.
func (v *Vocabulary) Tags() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.tags))
	copy(out, v.tags)
	return out
}

// Lookup returns the tag at index k.
func (v *Vocabulary) Lookup(k int) (string, bool) {
	if v == nil || k < 0 || k >= len(v.tags) {
		return "", false
	}
	return v.tags[k], true
}

// Decode turns a raw prediction cell into a tag. Missing values decode to
// UNK, integral numbers to the tag at that index or UNK_<n> when out of
// range, and anything else is returned unchanged.
func (v *Vocabulary) Decode(raw string) string {
	return v.DecodeOr(raw, Unknown)
}

// DecodeOr is Decode with a caller-chosen result for missing values.
func (v *Vocabulary) DecodeOr(raw, missing string) string {
	s := Clean(raw)
	if IsMissing(s) {
		return missing
	}
	k, text, ok := parseIndex(s)
	if !ok {
		return s
	}
	if tag, found := v.Lookup(k); found {
		return tag
	}
	return fmt.Sprintf("%s_%s", Unknown, text)
}

// parseIndex accepts "7" and the "7.0" form spreadsheets produce for
// numeric columns that contain blanks. text is the decimal form of the
// index; values beyond the int range keep their text and report k = -1.
func parseIndex(s string) (k int, text string, ok bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, strconv.Itoa(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "", false
	}
	if f != math.Trunc(f) {
		return 0, "", false
	}
	text = strconv.FormatFloat(f, 'f', 0, 64)
	if f < math.MinInt64 || f >= -math.MinInt64 {
		return -1, text, true
	}
	return int(f), strconv.Itoa(int(f)), true
}

// Clean trims whitespace and applies NFC normalisation so visually equal
// labels typed by different annotators compare equal.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return norm.NFC.String(s)
}

// IsMissing reports whether a cell value stands for "no value". Spreadsheet
// round trips through other tools leave "nan" and "None" behind.
func IsMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "nan", "NaN", "NAN", "None", "null":
		return true
	}
	return false
}
