package metrics

import (
	"fmt"
	"sort"

	"github.com/banshee-data/annotation.report/internal/annotation"
)

// Defaults for AnalyzeErrors.
const (
	DefaultTopConfusions = 20
	DefaultTopConfused   = 10
)

// ConfusionPair counts how often truth was predicted as pred.
type ConfusionPair struct {
	True  string `json:"true_label"`
	Pred  string `json:"predicted_label"`
	Count int    `json:"count"`
}

func (c ConfusionPair) String() string { return fmt.Sprintf("%s → %s", c.True, c.Pred) }

// LabelCount is a label and how many errors it was the truth side of.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ErrorAnalysis summarises flat-label mistakes.
type ErrorAnalysis struct {
	TotalErrors          int             `json:"total_errors"`
	ErrorRate            float64         `json:"error_rate"`
	ConfusionPatterns    []ConfusionPair `json:"confusion_patterns"`
	MostConfusedEntities []LabelCount    `json:"most_confused_entities"`
}

// AnalyzeErrors ranks the (truth, prediction) pairs of mismatched valid
// records by frequency, keeping topPairs, and the truth labels most often
// mispredicted, keeping topLabels. Ties order by label. Non-positive limits
// select the defaults.
func AnalyzeErrors(records []annotation.Record, topPairs, topLabels int) ErrorAnalysis {
	if topPairs <= 0 {
		topPairs = DefaultTopConfusions
	}
	if topLabels <= 0 {
		topLabels = DefaultTopConfused
	}

	out := ErrorAnalysis{
		ConfusionPatterns:    []ConfusionPair{},
		MostConfusedEntities: []LabelCount{},
	}
	type key struct{ t, p string }
	pairCount := map[key]int{}
	labelCount := map[string]int{}
	valid := 0

	for _, r := range records {
		if !r.FlatValid() {
			continue
		}
		valid++
		if r.PredFlat == r.TruthFlat {
			continue
		}
		out.TotalErrors++
		pairCount[key{r.TruthFlat, r.PredFlat}]++
		labelCount[r.TruthFlat]++
	}
	if out.TotalErrors == 0 {
		return out
	}
	out.ErrorRate = ratio(out.TotalErrors, valid)

	for k, n := range pairCount {
		out.ConfusionPatterns = append(out.ConfusionPatterns, ConfusionPair{True: k.t, Pred: k.p, Count: n})
	}
	sort.Slice(out.ConfusionPatterns, func(i, j int) bool {
		a, b := out.ConfusionPatterns[i], out.ConfusionPatterns[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.True != b.True {
			return a.True < b.True
		}
		return a.Pred < b.Pred
	})
	if len(out.ConfusionPatterns) > topPairs {
		out.ConfusionPatterns = out.ConfusionPatterns[:topPairs]
	}

	for l, n := range labelCount {
		out.MostConfusedEntities = append(out.MostConfusedEntities, LabelCount{Label: l, Count: n})
	}
	sort.Slice(out.MostConfusedEntities, func(i, j int) bool {
		a, b := out.MostConfusedEntities[i], out.MostConfusedEntities[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Label < b.Label
	})
	if len(out.MostConfusedEntities) > topLabels {
		out.MostConfusedEntities = out.MostConfusedEntities[:topLabels]
	}
	return out
}
