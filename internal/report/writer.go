package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/banshee-data/annotation.report/internal/evaluation"
	"github.com/banshee-data/annotation.report/internal/fsutil"
	"github.com/banshee-data/annotation.report/internal/security"
)

// Paths lists the files written for one evaluation run. Chart paths are
// empty when charts were not requested or had nothing to plot, and
// ConfusionMatrix is empty when no valid records were scored.
type Paths struct {
	Markdown        string
	JSON            string
	ConfusionMatrix string
	AccuracyChart   string
	ConfusionChart  string
}

// Writer writes report files into Dir.
type Writer struct {
	Logger zerolog.Logger
	FS     fsutil.FileSystem
	Dir    string
}

// NewWriter returns a Writer on the OS filesystem.
func NewWriter(logger zerolog.Logger, dir string) *Writer {
	return &Writer{Logger: logger, FS: fsutil.OSFileSystem{}, Dir: dir}
}

// BaseName is the file stem for a run: <report-name>_<annotator>.
func BaseName(reportName, annotator string) string {
	return security.SanitizeFilename(reportName + "_" + annotator)
}

// Path returns the location of name inside Dir, creating Dir if needed.
func (w *Writer) Path(name string) (string, error) {
	if err := w.FS.MkdirAll(w.Dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	p, err := security.OutputPath(w.Dir, name)
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}
	return p, nil
}

// WriteText writes content to Dir/name and returns the full path.
func (w *Writer) WriteText(name, content string) (string, error) {
	p, err := w.Path(name)
	if err != nil {
		return "", err
	}
	if err := w.FS.WriteFile(p, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	w.Logger.Info().Str("path", p).Msg("report saved")
	return p, nil
}

// WriteJSON writes v indented to Dir/name and returns the full path.
func (w *Writer) WriteJSON(name string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return w.WriteText(name, string(data)+"\n")
}

// WriteCSV writes rows to Dir/name and returns the full path.
func (w *Writer) WriteCSV(name string, rows [][]string) (string, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(rows); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return w.WriteText(name, buf.String())
}

// WriteEvaluation writes the Markdown and JSON reports of r under base, the
// flat confusion matrix as CSV and, when charts is set, the accuracy and
// confusion charts.
func (w *Writer) WriteEvaluation(base string, r *evaluation.Result, charts bool) (Paths, error) {
	var out Paths
	var err error

	if out.Markdown, err = w.WriteText(base+".md", RenderMarkdown(r)); err != nil {
		return out, err
	}
	if out.JSON, err = w.WriteJSON(base+".json", r); err != nil {
		return out, err
	}
	if m := r.Overall.Confusion; len(m.Labels) > 0 {
		if out.ConfusionMatrix, err = w.WriteCSV(base+"_confusion_matrix.csv", m.Rows()); err != nil {
			return out, err
		}
	}
	if !charts {
		return out, nil
	}

	if len(r.PerFile) > 0 {
		p, err := w.Path(base + "_accuracy.png")
		if err != nil {
			return out, err
		}
		if err := WriteAccuracyChart(w.FS, p, r.PerFile); err != nil {
			return out, err
		}
		out.AccuracyChart = p
		w.Logger.Info().Str("path", p).Msg("accuracy chart saved")
	}
	if len(r.ErrorAnalysis.ConfusionPatterns) > 0 {
		p, err := w.Path(base + "_confusions.html")
		if err != nil {
			return out, err
		}
		if err := WriteConfusionChart(w.FS, p, r.ErrorAnalysis.ConfusionPatterns); err != nil {
			return out, err
		}
		out.ConfusionChart = p
		w.Logger.Info().Str("path", p).Msg("confusion chart saved")
	}
	return out, nil
}
