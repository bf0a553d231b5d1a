package metrics

import "github.com/banshee-data/annotation.report/internal/annotation"

// TokenMetrics is exact-match accuracy over flat labels.
type TokenMetrics struct {
	TokenAccuracy      float64 `json:"token_accuracy"`
	TotalTokens        int     `json:"total_tokens"`
	CorrectPredictions int     `json:"correct_predictions"`
}

// TokenLevel counts flat-label matches over the valid records. Accuracy over
// a concatenation of pages is the corpus-wide ratio, so larger pages weigh
// more than smaller ones.
func TokenLevel(records []annotation.Record) TokenMetrics {
	var m TokenMetrics
	for _, r := range records {
		if !r.FlatValid() {
			continue
		}
		m.TotalTokens++
		if r.PredFlat == r.TruthFlat {
			m.CorrectPredictions++
		}
	}
	m.TokenAccuracy = ratio(m.CorrectPredictions, m.TotalTokens)
	return m
}
