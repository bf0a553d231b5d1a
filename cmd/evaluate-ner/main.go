// Command evaluate-ner scores model predictions in a directory of annotation
// workbooks against human labels and writes Markdown and JSON reports.
package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/banshee-data/annotation.report/internal/annotation"
	"github.com/banshee-data/annotation.report/internal/cli"
	"github.com/banshee-data/annotation.report/internal/config"
	"github.com/banshee-data/annotation.report/internal/db"
	"github.com/banshee-data/annotation.report/internal/evaluation"
	"github.com/banshee-data/annotation.report/internal/labels"
	"github.com/banshee-data/annotation.report/internal/metrics"
	"github.com/banshee-data/annotation.report/internal/monitoring"
	"github.com/banshee-data/annotation.report/internal/report"
)

type options struct {
	annotator   string
	outputDir   string
	reportName  string
	workers     int
	historyDB   string
	metricsFile string
	charts      bool
	profile     string
	scorer      string
}

func main() {
	cli.Main(newRootCmd(&cli.App{}))
}

func newRootCmd(app *cli.App) *cobra.Command {
	var opts options
	cmd := app.NewRoot("evaluate-ner ANNOTATION_DIR", "Evaluate NER predictions against human annotations")
	cmd.Long = `Evaluate model predictions stored in .xlsx annotation files against the
labels of one annotator. Reports are written to the output directory as
<report-name>_<annotator>.md and .json.`
	cmd.Args = cobra.ExactArgs(1)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runEvaluate(cmd, app, opts, args[0])
	}

	f := cmd.Flags()
	f.StringVar(&opts.annotator, "annotator", string(annotation.Annotator1), "Which annotator to use as ground truth (annotator1 or annotator2)")
	f.StringVar(&opts.outputDir, "output-dir", "", "Directory for output reports (default from NER_OUTPUT_DIR, else reports)")
	f.StringVar(&opts.reportName, "report-name", "", "Base name for output files (default from NER_REPORT_NAME, else ner_evaluation_report)")
	f.IntVar(&opts.workers, "workers", 0, "Files evaluated concurrently (default from NER_WORKERS, else 1)")
	f.StringVar(&opts.historyDB, "history-db", "", "SQLite database recording run history")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write run metrics in Prometheus textfile format")
	f.BoolVar(&opts.charts, "charts", false, "Also write accuracy (PNG) and confusion (HTML) charts")
	f.StringVar(&opts.profile, "profile", "", "JSON evaluation profile")
	f.StringVar(&opts.scorer, "sequence-scorer", "", "Sequence scorer: span or token")

	cmd.AddCommand(newHistoryCmd(app))
	return cmd
}

// resolveSettings layers the environment, the profile and explicit flags.
func resolveSettings(cmd *cobra.Command, opts options) (*config.Settings, *config.Profile, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	var profile *config.Profile
	if opts.profile != "" {
		if profile, err = config.LoadProfile(opts.profile); err != nil {
			return nil, nil, err
		}
		profile.Apply(settings)
	}

	f := cmd.Flags()
	if f.Changed("output-dir") {
		settings.OutputDir = opts.outputDir
	}
	if f.Changed("report-name") {
		settings.ReportName = opts.reportName
	}
	if f.Changed("workers") {
		settings.Workers = opts.workers
	}
	if f.Changed("history-db") {
		settings.HistoryDB = opts.historyDB
	}
	if f.Changed("metrics-file") {
		settings.MetricsFile = opts.metricsFile
	}
	if f.Changed("charts") {
		settings.Charts = opts.charts
	}
	if f.Changed("sequence-scorer") {
		settings.SequenceScorer = opts.scorer
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, err
	}
	return settings, profile, nil
}

func runEvaluate(cmd *cobra.Command, app *cli.App, opts options, dir string) error {
	logger := app.Logger()

	annotator, err := annotation.ParseAnnotator(opts.annotator)
	if err != nil {
		return err
	}
	settings, profile, err := resolveSettings(cmd, opts)
	if err != nil {
		return err
	}
	scorer, err := metrics.NewSequenceScorer(settings.SequenceScorer)
	if err != nil {
		return err
	}

	ev := evaluation.New(logger)
	ev.Loader.PrimarySheet = settings.PrimarySheet
	ev.Loader.VocabSheet = settings.VocabSheet
	ev.Loader.VocabColumn = settings.VocabColumn
	ev.Scorer = scorer
	ev.Workers = settings.Workers
	ev.TopConfusions = profile.GetTopConfusions()
	ev.TopConfused = profile.GetTopConfused()
	if profile != nil && len(profile.Labels) > 0 {
		ev.Vocabulary = labels.NewVocabulary(profile.Labels)
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	res, err := ev.Run(ctx, dir, annotator)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	w := report.NewWriter(logger, settings.OutputDir)
	paths, err := w.WriteEvaluation(report.BaseName(settings.ReportName, string(annotator)), res, settings.Charts)
	if err != nil {
		return err
	}

	if settings.HistoryDB != "" {
		if err := recordRun(logger, settings.HistoryDB, res); err != nil {
			return err
		}
	}
	if settings.MetricsFile != "" {
		if err := monitoring.WriteTextfile(settings.MetricsFile, runSample(res)); err != nil {
			return err
		}
		logger.Info().Str("path", settings.MetricsFile).Msg("metrics textfile written")
	}

	printSummary(cmd.OutOrStdout(), res, paths)
	return nil
}

func recordRun(logger zerolog.Logger, path string, res *evaluation.Result) error {
	store, err := db.Open(path, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.InsertRun(res)
	if err != nil {
		return err
	}
	logger.Info().Str("run_id", id).Str("db", path).Msg("run recorded")
	return nil
}

func runSample(res *evaluation.Result) monitoring.RunSample {
	s := monitoring.RunSample{
		Annotator:       res.Summary.GroundTruthAnnotator,
		Files:           res.Summary.TotalFiles,
		SkippedFiles:    len(res.SkippedFiles),
		Tokens:          res.Overall.Token.TotalTokens,
		TokenAccuracy:   res.Overall.Token.TokenAccuracy,
		FlatWeightedF1:  res.Overall.EntityFlat.WeightedF1,
		BIOWeightedF1:   res.Overall.EntityBIO.WeightedF1,
		ErrorRate:       res.ErrorAnalysis.ErrorRate,
		SequenceF1:      res.Overall.Sequences.SequenceF1,
		Duration:        res.Duration,
		PerFileAccuracy: res.PerFileAccuracy(),
	}
	if res.Agreement != nil {
		k := res.Agreement.KappaScore
		s.Kappa = &k
	}
	return s
}

func printSummary(out io.Writer, res *evaluation.Result, paths report.Paths) {
	s := res.Summary
	tok := res.Overall.Token

	fmt.Fprintln(out, "\n=== NER Evaluation Summary ===")
	fmt.Fprintf(out, "Ground truth annotator: %s\n", s.GroundTruthAnnotator)
	fmt.Fprintf(out, "Files evaluated: %d\n", s.TotalFiles)
	if n := len(res.SkippedFiles); n > 0 {
		fmt.Fprintf(out, "Files skipped: %d\n", n)
	}
	fmt.Fprintf(out, "Label mapping: %d invoice/receipt entities\n", s.TotalEntityLabels)
	fmt.Fprintf(out, "Total tokens: %s\n", report.Count(tok.TotalTokens))
	fmt.Fprintf(out, "Token accuracy: %.3f\n", tok.TokenAccuracy)
	fmt.Fprintf(out, "Entity F1 (flat): %.3f\n", res.Overall.EntityFlat.WeightedF1)
	fmt.Fprintf(out, "Entity F1 (BIO): %.3f\n", res.Overall.EntityBIO.WeightedF1)
	fmt.Fprintln(out, "\nReports saved:")
	fmt.Fprintf(out, "  - Markdown: %s\n", paths.Markdown)
	fmt.Fprintf(out, "  - JSON: %s\n", paths.JSON)
	if paths.ConfusionMatrix != "" {
		fmt.Fprintf(out, "  - Confusion matrix: %s\n", paths.ConfusionMatrix)
	}
	if paths.AccuracyChart != "" {
		fmt.Fprintf(out, "  - Accuracy chart: %s\n", paths.AccuracyChart)
	}
	if paths.ConfusionChart != "" {
		fmt.Fprintf(out, "  - Confusion chart: %s\n", paths.ConfusionChart)
	}
}
