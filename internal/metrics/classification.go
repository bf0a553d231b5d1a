// Package metrics scores model predictions against human labels. Every
// function here is pure: it takes validated records and returns a value,
// and an empty input yields a zeroed result rather than an error.
package metrics

import (
	"sort"

	"github.com/banshee-data/annotation.report/internal/annotation"
)

// ClassMetrics is the per-label row of a classification report.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// Classification is a multi-class report over one set of label pairs.
type Classification struct {
	Accuracy          float64                 `json:"accuracy"`
	MacroF1           float64                 `json:"macro_f1"`
	WeightedF1        float64                 `json:"weighted_f1"`
	MacroPrecision    float64                 `json:"macro_precision"`
	MacroRecall       float64                 `json:"macro_recall"`
	WeightedPrecision float64                 `json:"weighted_precision"`
	WeightedRecall    float64                 `json:"weighted_recall"`
	TotalSamples      int                     `json:"total_samples"`
	PerClass          map[string]ClassMetrics `json:"per_class_metrics"`
}

// Scheme selects which label pair of a record is compared.
type Scheme int

const (
	// Flat compares entity types with B-/I- prefixes removed.
	Flat Scheme = iota
	// BIO compares position-prefixed tags.
	BIO
)

func (s Scheme) String() string {
	if s == BIO {
		return "bio"
	}
	return "flat"
}

// pairs extracts the valid (truth, pred) pairs for scheme.
func pairs(records []annotation.Record, s Scheme) (truth, pred []string) {
	for _, r := range records {
		switch s {
		case BIO:
			if r.BIOValid() {
				truth = append(truth, r.TruthBIO)
				pred = append(pred, r.PredBIO)
			}
		default:
			if r.FlatValid() {
				truth = append(truth, r.TruthFlat)
				pred = append(pred, r.PredFlat)
			}
		}
	}
	return truth, pred
}

// EntityClassification builds a classification report over the records
// valid for scheme.
func EntityClassification(records []annotation.Record, s Scheme) Classification {
	truth, pred := pairs(records, s)
	return Classify(truth, pred)
}

// Classify computes accuracy and per-label precision, recall and F1 over
// the sorted union of labels in truth and pred. Undefined ratios are 0.
// Macro averages weight every label equally; weighted averages weight by
// support (true count).
func Classify(truth, pred []string) Classification {
	out := Classification{PerClass: map[string]ClassMetrics{}}
	n := len(truth)
	if len(pred) < n {
		n = len(pred)
	}
	if n == 0 {
		return out
	}

	tp := map[string]int{}
	predicted := map[string]int{}
	support := map[string]int{}
	correct := 0
	for i := 0; i < n; i++ {
		support[truth[i]]++
		predicted[pred[i]]++
		if truth[i] == pred[i] {
			tp[truth[i]]++
			correct++
		}
	}

	classes := unionKeys(support, predicted)
	for _, c := range classes {
		m := ClassMetrics{
			Precision: ratio(tp[c], predicted[c]),
			Recall:    ratio(tp[c], support[c]),
			Support:   support[c],
		}
		m.F1 = f1(m.Precision, m.Recall)
		out.PerClass[c] = m

		out.MacroPrecision += m.Precision
		out.MacroRecall += m.Recall
		out.MacroF1 += m.F1
		w := float64(m.Support) / float64(n)
		out.WeightedPrecision += w * m.Precision
		out.WeightedRecall += w * m.Recall
		out.WeightedF1 += w * m.F1
	}
	k := float64(len(classes))
	out.MacroPrecision /= k
	out.MacroRecall /= k
	out.MacroF1 /= k
	out.Accuracy = ratio(correct, n)
	out.TotalSamples = n
	return out
}

// Labels returns the per-class labels in sorted order.
func (c Classification) Labels() []string {
	out := make([]string, 0, len(c.PerClass))
	for l := range c.PerClass {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func unionKeys(a, b map[string]int) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, m := range []map[string]int{a, b} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func f1(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
