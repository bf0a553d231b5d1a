package metrics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/annotation.report/internal/annotation"
	"github.com/banshee-data/annotation.report/internal/labels"
)

// Scorer names accepted by NewSequenceScorer.
const (
	ScorerSpan  = "span"
	ScorerToken = "token"
)

// FallbackNote is attached to results produced without span matching.
const FallbackNote = "Sequence evaluation unavailable - using token-level accuracy"

// ErrUnknownScorer is returned for scorer names other than span and token.
var ErrUnknownScorer = errors.New("unknown sequence scorer")

// SequenceResult is the document-level NER score. F1 is nil when the scorer
// cannot compute it.
type SequenceResult struct {
	SequenceAccuracy float64                 `json:"sequence_accuracy"`
	SequenceF1       *float64                `json:"sequence_f1"`
	TotalSequences   int                     `json:"total_sequences"`
	DetailedReport   map[string]ClassMetrics `json:"detailed_report"`
	Note             string                  `json:"note,omitempty"`
}

// SequenceScorer scores each page as one tag sequence.
type SequenceScorer interface {
	Name() string
	Score(pages []*annotation.Page) SequenceResult
}

// NewSequenceScorer returns the scorer registered under name. An empty name
// selects span matching.
func NewSequenceScorer(name string) (SequenceScorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ScorerSpan, "seqeval":
		return SpanScorer{}, nil
	case ScorerToken:
		return TokenScorer{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScorer, name)
}

// SpanScorer matches whole entities: a predicted entity counts only when
// its type, start and end all equal a true entity's. Accuracy is exact BIO
// tag agreement over valid tokens and F1 is micro-averaged over entities.
type SpanScorer struct{}

func (SpanScorer) Name() string { return ScorerSpan }

func (SpanScorer) Score(pages []*annotation.Page) SequenceResult {
	res := SequenceResult{DetailedReport: map[string]ClassMetrics{}}

	var tokens, correct int
	trueCount := map[string]int{}
	predCount := map[string]int{}
	hits := map[string]int{}

	for _, p := range pages {
		var truth, pred []string
		for _, r := range p.Records {
			if !r.BIOValid() {
				continue
			}
			truth = append(truth, r.TruthBIO)
			pred = append(pred, r.PredBIO)
		}
		if len(truth) == 0 {
			continue
		}
		res.TotalSequences++

		for i := range truth {
			tokens++
			if truth[i] == pred[i] {
				correct++
			}
		}

		trueSpans := Chunks(truth)
		predSpans := Chunks(pred)
		want := make(map[Chunk]bool, len(trueSpans))
		for _, c := range trueSpans {
			want[c] = true
			trueCount[c.Type]++
		}
		for _, c := range predSpans {
			predCount[c.Type]++
			if want[c] {
				hits[c.Type]++
			}
		}
	}

	if res.TotalSequences == 0 {
		zero := 0.0
		res.SequenceF1 = &zero
		return res
	}
	res.SequenceAccuracy = ratio(correct, tokens)

	var nTrue, nPred, nHit int
	var macro, weighted ClassMetrics
	types := unionKeys(trueCount, predCount)
	for _, typ := range types {
		m := ClassMetrics{
			Precision: ratio(hits[typ], predCount[typ]),
			Recall:    ratio(hits[typ], trueCount[typ]),
			Support:   trueCount[typ],
		}
		m.F1 = f1(m.Precision, m.Recall)
		res.DetailedReport[typ] = m

		nTrue += trueCount[typ]
		nPred += predCount[typ]
		nHit += hits[typ]
		macro.Precision += m.Precision
		macro.Recall += m.Recall
		macro.F1 += m.F1
	}
	for _, typ := range types {
		m := res.DetailedReport[typ]
		w := ratio(m.Support, nTrue)
		weighted.Precision += w * m.Precision
		weighted.Recall += w * m.Recall
		weighted.F1 += w * m.F1
	}

	micro := ClassMetrics{
		Precision: ratio(nHit, nPred),
		Recall:    ratio(nHit, nTrue),
		Support:   nTrue,
	}
	micro.F1 = f1(micro.Precision, micro.Recall)
	if k := float64(len(types)); k > 0 {
		macro.Precision /= k
		macro.Recall /= k
		macro.F1 /= k
	}
	macro.Support, weighted.Support = nTrue, nTrue

	res.DetailedReport["micro avg"] = micro
	res.DetailedReport["macro avg"] = macro
	res.DetailedReport["weighted avg"] = weighted
	f := micro.F1
	res.SequenceF1 = &f
	return res
}

// TokenScorer is the degraded scorer: flat token accuracy across all pages
// with no F1.
type TokenScorer struct{}

func (TokenScorer) Name() string { return ScorerToken }

func (TokenScorer) Score(pages []*annotation.Page) SequenceResult {
	var all []annotation.Record
	for _, p := range pages {
		all = append(all, p.Records...)
	}
	return SequenceResult{
		SequenceAccuracy: TokenLevel(all).TokenAccuracy,
		TotalSequences:   len(pages),
		DetailedReport:   map[string]ClassMetrics{},
		Note:             FallbackNote,
	}
}

// Chunk is one entity span within a sequence; End is inclusive.
type Chunk struct {
	Type  string
	Start int
	End   int
}

// Chunks extracts entity spans from a BIO sequence using the CoNLL rules:
// an I- tag whose type differs from the running entity opens a new one, and
// a tag without a B-/I- prefix behaves like I-.
func Chunks(tags []string) []Chunk {
	var out []Chunk
	prevPrefix, prevType := labels.Outside, ""
	start := -1

	for i := 0; i <= len(tags); i++ {
		prefix, typ := labels.Outside, ""
		if i < len(tags) {
			prefix, typ = labels.SplitTag(tags[i])
			if prefix == "" {
				prefix = "I"
			}
		}

		if start >= 0 && chunkEnds(prevPrefix, prefix, prevType, typ) {
			out = append(out, Chunk{Type: prevType, Start: start, End: i - 1})
			start = -1
		}
		if chunkStarts(prevPrefix, prefix, prevType, typ) {
			start = i
		}
		prevPrefix, prevType = prefix, typ
	}
	return out
}

func chunkEnds(prevPrefix, prefix, prevType, typ string) bool {
	switch {
	case prevPrefix == labels.Outside:
		return false
	case prefix == "B" || prefix == labels.Outside:
		return true
	}
	return prevType != typ
}

func chunkStarts(prevPrefix, prefix, prevType, typ string) bool {
	switch {
	case prefix == labels.Outside:
		return false
	case prefix == "B":
		return true
	case prevPrefix == labels.Outside:
		return true
	}
	return prevType != typ
}
