// Package evaluation runs the scoring pipeline over a directory of
// annotation workbooks: load and validate each page, score it, then score
// the corpus as a whole.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/annotation.report/internal/annotation"
	"github.com/banshee-data/annotation.report/internal/labels"
	"github.com/banshee-data/annotation.report/internal/metrics"
	"github.com/banshee-data/annotation.report/internal/timeutil"
)

var (
	// ErrInputDirNotFound is returned when the annotation directory is
	// missing or is not a directory.
	ErrInputDirNotFound = errors.New("annotation directory not found")
	// ErrNoFilesLoaded is returned when no workbook could be evaluated.
	ErrNoFilesLoaded = errors.New("no annotation files loaded")
)

// Evaluator scores annotation directories. The zero value is not usable;
// build one with New.
type Evaluator struct {
	Logger zerolog.Logger
	Loader *annotation.Loader
	Scorer metrics.SequenceScorer
	// Workers bounds how many files are loaded and scored at once.
	Workers       int
	TopConfusions int
	TopConfused   int
	// Vocabulary is used when no file carries a reference sheet.
	Vocabulary *labels.Vocabulary
	Clock      timeutil.Clock
}

// New returns an Evaluator with one worker, span scoring and the default
// report limits.
func New(logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		Logger:        logger,
		Loader:        annotation.NewLoader(logger),
		Scorer:        metrics.SpanScorer{},
		Workers:       1,
		TopConfusions: metrics.DefaultTopConfusions,
		TopConfused:   metrics.DefaultTopConfused,
		Clock:         timeutil.RealClock{},
	}
}

type fileOutcome struct {
	page   *annotation.Page
	result FileResult
	err    error
}

// Run evaluates every workbook in dir with annotator as ground truth. Files
// that fail to load are logged and listed in Result.SkippedFiles; the run
// fails only when the directory is missing, when no file loads, or when ctx
// is cancelled.
func (e *Evaluator) Run(ctx context.Context, dir string, annotator annotation.Annotator) (*Result, error) {
	start := e.Clock.Now()
	log := e.Logger.With().Str("annotator", string(annotator)).Logger()

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInputDirNotFound, dir)
	}
	files, err := annotation.ListFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn().Str("dir", dir).Msg("no .xlsx files found")
		return nil, fmt.Errorf("%w: no .xlsx files in %s", ErrNoFilesLoaded, dir)
	}

	vocab := e.Loader.Vocabulary(files)
	if vocab.Len() == 0 && e.Vocabulary.Len() > 0 {
		log.Info().Int("labels", e.Vocabulary.Len()).Msg("using configured label vocabulary")
		vocab = e.Vocabulary
	}
	if vocab.Len() == 0 {
		log.Warn().Msg("no label mapping found - predictions will not be decoded")
	}

	log.Info().Int("files", len(files)).Msg("loading annotation files")
	outcomes, err := e.evaluateFiles(ctx, files, annotator, vocab)
	if err != nil {
		return nil, err
	}

	res := &Result{StartedAt: start}
	var pages []*annotation.Page
	for i, o := range outcomes {
		name := filepath.Base(files[i])
		if o.err != nil {
			log.Warn().Err(o.err).Str("file", name).Msg("skipping file")
			res.SkippedFiles = append(res.SkippedFiles, SkippedFile{File: name, Reason: o.err.Error()})
			continue
		}
		pages = append(pages, o.page)
		res.PerFile = append(res.PerFile, o.result)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %d of %d files failed", ErrNoFilesLoaded, len(res.SkippedFiles), len(files))
	}
	log.Info().Int("loaded", len(pages)).Int("skipped", len(res.SkippedFiles)).Msg("annotation files loaded")

	res.Summary = Summary{
		TotalFiles:           len(pages),
		AnnotationDirectory:  dir,
		GroundTruthAnnotator: string(annotator),
		LabelMappingFound:    vocab.Len() > 0,
		TotalEntityLabels:    vocab.Len(),
		SequenceScorer:       e.Scorer.Name(),
	}

	var all []annotation.Record
	for _, p := range pages {
		all = append(all, p.Records...)
	}
	log.Debug().Int("records", len(all)).Msg("computing overall metrics")
	res.Overall = Overall{
		EntityFlat: metrics.EntityClassification(all, metrics.Flat),
		EntityBIO:  metrics.EntityClassification(all, metrics.BIO),
		Token:      metrics.TokenLevel(all),
		Sequences:  e.Scorer.Score(pages),
		Confusion:  metrics.NewConfusionMatrix(all),
	}
	if res.Overall.Sequences.Note != "" {
		log.Warn().Msg(res.Overall.Sequences.Note)
	}
	res.ErrorAnalysis = metrics.AnalyzeErrors(all, e.TopConfusions, e.TopConfused)
	res.Agreement = metrics.InterAnnotator(all)
	if res.Agreement == nil {
		log.Info().Msg("inter-annotator agreement: no overlapping annotations found")
	}

	scores := make([]metrics.PageScore, len(res.PerFile))
	for i, f := range res.PerFile {
		scores[i] = metrics.PageScore{
			File:          f.File,
			Tokens:        f.Token.TotalTokens,
			TokenAccuracy: f.Token.TokenAccuracy,
			MacroF1:       f.EntityFlat.MacroF1,
		}
	}
	res.PageStats = metrics.SummarizePages(scores)
	res.Duration = e.Clock.Since(start)

	log.Info().Dur("elapsed", res.Duration).Msg("NER evaluation completed")
	return res, nil
}

// evaluateFiles loads and scores files with at most Workers goroutines. The
// returned slice is indexed like files so merge order never depends on
// scheduling.
func (e *Evaluator) evaluateFiles(ctx context.Context, files []string, annotator annotation.Annotator, vocab *labels.Vocabulary) ([]fileOutcome, error) {
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]fileOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = e.evaluateFile(path, annotator, vocab)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluation cancelled: %w", err)
	}
	return outcomes, nil
}

func (e *Evaluator) evaluateFile(path string, annotator annotation.Annotator, vocab *labels.Vocabulary) fileOutcome {
	page, err := e.Loader.LoadPage(path, annotator, vocab)
	if err != nil {
		return fileOutcome{err: err}
	}
	if len(page.Records) == 0 {
		return fileOutcome{err: errors.New("sheet has no rows")}
	}
	e.Logger.Debug().Str("file", page.File).Int("rows", len(page.Records)).Msg("scoring file")

	return fileOutcome{
		page: page,
		result: FileResult{
			File:       page.File,
			EntityFlat: metrics.EntityClassification(page.Records, metrics.Flat),
			EntityBIO:  metrics.EntityClassification(page.Records, metrics.BIO),
			Token:      metrics.TokenLevel(page.Records),
			Agreement:  metrics.InterAnnotator(page.Records),
		},
	}
}
