package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PageScore is the per-file input to SummarizePages.
type PageScore struct {
	File          string
	Tokens        int
	TokenAccuracy float64
	MacroF1       float64
}

// PageStats describes the spread of per-file scores. Means here are
// unweighted across files, unlike the corpus metrics.
type PageStats struct {
	Files             int     `json:"files"`
	MeanTokenAccuracy float64 `json:"mean_token_accuracy"`
	StdTokenAccuracy  float64 `json:"std_token_accuracy"`
	MinTokenAccuracy  float64 `json:"min_token_accuracy"`
	MaxTokenAccuracy  float64 `json:"max_token_accuracy"`
	MeanMacroF1       float64 `json:"mean_macro_f1"`
	StdMacroF1        float64 `json:"std_macro_f1"`
	PerfectPages      int     `json:"perfect_pages"`
	WorstFile         string  `json:"worst_file,omitempty"`
}

// SummarizePages aggregates files that have at least one scored token.
func SummarizePages(scores []PageScore) PageStats {
	var acc, f1s []float64
	var out PageStats
	worst := math.Inf(1)

	for _, s := range scores {
		if s.Tokens == 0 {
			continue
		}
		acc = append(acc, s.TokenAccuracy)
		f1s = append(f1s, s.MacroF1)
		if s.TokenAccuracy == 1 {
			out.PerfectPages++
		}
		if s.TokenAccuracy < worst {
			worst = s.TokenAccuracy
			out.WorstFile = s.File
		}
	}
	out.Files = len(acc)
	if out.Files == 0 {
		return out
	}

	out.MeanTokenAccuracy, out.StdTokenAccuracy = meanStd(acc)
	out.MeanMacroF1, out.StdMacroF1 = meanStd(f1s)
	out.MinTokenAccuracy = floats.Min(acc)
	out.MaxTokenAccuracy = floats.Max(acc)
	return out
}

// meanStd returns the mean and sample standard deviation; a single value
// has zero spread.
func meanStd(x []float64) (float64, float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanStdDev(x, nil)
}
