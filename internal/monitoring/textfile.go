package monitoring

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RunSample is the set of values exported after an evaluation run.
type RunSample struct {
	Annotator    string
	Files        int
	SkippedFiles int
	Tokens       int

	TokenAccuracy  float64
	FlatWeightedF1 float64
	BIOWeightedF1  float64
	ErrorRate      float64
	// SequenceF1 and Kappa are omitted when nil.
	SequenceF1 *float64
	Kappa      *float64

	Duration        time.Duration
	PerFileAccuracy map[string]float64
}

// WriteTextfile writes s in the node_exporter textfile collector format.
// Each call uses a fresh registry so repeated runs in one process do not
// collide.
func WriteTextfile(path string, s RunSample) error {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	labels := []string{"annotator"}

	gauge := func(name, help string, v float64) {
		f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ner",
			Name:      name,
			Help:      help,
		}, labels).WithLabelValues(s.Annotator).Set(v)
	}

	gauge("files_evaluated", "Annotation files scored in the last run.", float64(s.Files))
	gauge("files_skipped", "Annotation files that failed to load in the last run.", float64(s.SkippedFiles))
	gauge("tokens_total", "Tokens with a ground-truth label.", float64(s.Tokens))
	gauge("token_accuracy", "Flat-label token accuracy across the corpus.", s.TokenAccuracy)
	gauge("entity_weighted_f1_flat", "Support-weighted F1 over flat labels.", s.FlatWeightedF1)
	gauge("entity_weighted_f1_bio", "Support-weighted F1 over BIO tags.", s.BIOWeightedF1)
	gauge("error_rate", "Share of valid tokens that were mispredicted.", s.ErrorRate)
	gauge("run_duration_seconds", "Wall time of the last run.", s.Duration.Seconds())
	if s.SequenceF1 != nil {
		gauge("sequence_f1", "Entity-span micro F1.", *s.SequenceF1)
	}
	if s.Kappa != nil {
		gauge("annotator_kappa", "Cohen's kappa between the two annotators.", *s.Kappa)
	}

	if len(s.PerFileAccuracy) > 0 {
		perFile := f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ner",
			Name:      "file_token_accuracy",
			Help:      "Flat-label token accuracy per annotation file.",
		}, []string{"annotator", "file"})
		for file, acc := range s.PerFileAccuracy {
			perFile.WithLabelValues(s.Annotator, file).Set(acc)
		}
	}

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
