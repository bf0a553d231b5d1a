package evaluation

import (
	"time"

	"github.com/banshee-data/annotation.report/internal/metrics"
)

// Summary describes the inputs of a run.
type Summary struct {
	TotalFiles           int    `json:"total_files"`
	AnnotationDirectory  string `json:"annotation_directory"`
	GroundTruthAnnotator string `json:"ground_truth_annotator"`
	LabelMappingFound    bool   `json:"label_mapping_found"`
	TotalEntityLabels    int    `json:"total_entity_labels"`
	SequenceScorer       string `json:"sequence_scorer"`
}

// Overall holds the corpus-wide metrics.
type Overall struct {
	EntityFlat metrics.Classification  `json:"entity_classification_flat"`
	EntityBIO  metrics.Classification  `json:"entity_classification_bio"`
	Token      metrics.TokenMetrics    `json:"token_level"`
	Sequences  metrics.SequenceResult  `json:"ner_sequences"`
	Confusion  metrics.ConfusionMatrix `json:"confusion_matrix"`
}

// FileResult holds the metrics of one annotation file.
type FileResult struct {
	File       string                 `json:"file"`
	EntityFlat metrics.Classification `json:"entity_metrics_flat"`
	EntityBIO  metrics.Classification `json:"entity_metrics_bio"`
	Token      metrics.TokenMetrics   `json:"token_metrics"`
	Agreement  *metrics.Agreement     `json:"inter_annotator_agreement,omitempty"`
}

// SkippedFile records a file that could not be evaluated.
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Result is the outcome of Evaluator.Run. It is not modified after Run
// returns.
type Result struct {
	Summary       Summary               `json:"evaluation_summary"`
	Overall       Overall               `json:"overall_metrics"`
	PerFile       []FileResult          `json:"per_file_metrics"`
	ErrorAnalysis metrics.ErrorAnalysis `json:"error_analysis"`
	Agreement     *metrics.Agreement    `json:"inter_annotator_agreement"`
	PageStats     metrics.PageStats     `json:"page_statistics"`
	SkippedFiles  []SkippedFile         `json:"skipped_files"`
	StartedAt     time.Time             `json:"started_at"`
	Duration      time.Duration         `json:"-"`
}

// PerFileAccuracy maps each file to its token accuracy.
func (r *Result) PerFileAccuracy() map[string]float64 {
	out := make(map[string]float64, len(r.PerFile))
	for _, f := range r.PerFile {
		out[f.File] = f.Token.TokenAccuracy
	}
	return out
}
