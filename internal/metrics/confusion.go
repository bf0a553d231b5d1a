package metrics

import (
	"sort"
	"strconv"

	"github.com/banshee-data/annotation.report/internal/annotation"
)

// ConfusionMatrix counts flat truth labels (rows) against flat predictions
// (columns). Labels is the sorted union of both sides.
type ConfusionMatrix struct {
	Labels []string `json:"labels"`
	Counts [][]int  `json:"counts"`
}

// NewConfusionMatrix builds the flat-label matrix over valid records.
func NewConfusionMatrix(records []annotation.Record) ConfusionMatrix {
	var truth, pred []string
	for _, r := range records {
		if !r.FlatValid() {
			continue
		}
		truth = append(truth, r.TruthFlat)
		pred = append(pred, r.PredFlat)
	}
	return Confusion(truth, pred)
}

// Confusion builds a matrix from parallel label slices.
func Confusion(truth, pred []string) ConfusionMatrix {
	seen := map[string]bool{}
	for _, l := range truth {
		seen[l] = true
	}
	for _, l := range pred {
		seen[l] = true
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range truth {
		counts[index[truth[i]]][index[pred[i]]]++
	}
	return ConfusionMatrix{Labels: labels, Counts: counts}
}

// Count returns how often truth was predicted as pred.
func (m ConfusionMatrix) Count(truth, pred string) int {
	i, j := m.position(truth), m.position(pred)
	if i < 0 || j < 0 {
		return 0
	}
	return m.Counts[i][j]
}

// Total is the number of samples in the matrix.
func (m ConfusionMatrix) Total() int {
	n := 0
	for _, row := range m.Counts {
		for _, c := range row {
			n += c
		}
	}
	return n
}

// Rows renders the matrix as a header plus one row per truth label, the
// layout written to confusion_matrix.csv.
func (m ConfusionMatrix) Rows() [][]string {
	out := make([][]string, 0, len(m.Labels)+1)
	out = append(out, append([]string{"true\\predicted"}, m.Labels...))
	for i, l := range m.Labels {
		row := make([]string, 0, len(m.Labels)+1)
		row = append(row, l)
		for _, c := range m.Counts[i] {
			row = append(row, strconv.Itoa(c))
		}
		out = append(out, row)
	}
	return out
}

func (m ConfusionMatrix) position(label string) int {
	k := sort.SearchStrings(m.Labels, label)
	if k < len(m.Labels) && m.Labels[k] == label {
		return k
	}
	return -1
}
