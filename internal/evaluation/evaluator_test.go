package evaluation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/annotation.report/internal/annotation"
	"github.com/banshee-data/annotation.report/internal/labels"
	"github.com/banshee-data/annotation.report/internal/metrics"
	"github.com/banshee-data/annotation.report/internal/testutil"
	"github.com/banshee-data/annotation.report/internal/timeutil"
)

var vocab = []string{"O", "B-PER", "I-PER", "B-MONEY", "I-MONEY"}

// writeCorpus writes three pages of different sizes plus one broken file.
func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	// 4 tokens, all correct.
	testutil.WriteWorkbook(t, dir, "a_page.xlsx",
		testutil.AnnotationSheet(
			testutil.Token{Word: "John", Pred: 1, Prob: 0.9, Annotator1: "PER", Annotator2: "PER"},
			testutil.Token{Word: "Smith", Pred: 2, Prob: 0.9, Annotator1: "PER", Annotator2: "PER"},
			testutil.Token{Word: "paid", Pred: 0, Prob: 0.9, Annotator1: "O", Annotator2: "O"},
			testutil.Token{Word: "$5", Pred: 3, Prob: 0.9, Annotator1: "MONEY", Annotator2: "MONEY"},
		),
		testutil.VocabSheet(vocab...),
	)
	// 1 token, wrong.
	testutil.WriteWorkbook(t, dir, "b_page.xlsx",
		testutil.AnnotationSheet(
			testutil.Token{Word: "Acme", Pred: 3, Prob: 0.4, Annotator1: "PER"},
		),
		testutil.VocabSheet(vocab...),
	)
	// 2 labelled tokens, one right; one unlabelled row.
	testutil.WriteWorkbook(t, dir, "c_page.xlsx",
		testutil.AnnotationSheet(
			testutil.Token{Word: "Total", Pred: 0, Prob: 0.8, Annotator1: "O", Annotator2: "MONEY"},
			testutil.Token{Word: "$9", Pred: 0, Prob: 0.5, Annotator1: "MONEY"},
			testutil.Token{Word: "x", Pred: 0, Prob: 0.5},
		),
	)
	// Missing the ground-truth column.
	testutil.WriteWorkbook(t, dir, "d_broken.xlsx", testutil.Sheet{
		Name:   "Annotation",
		Header: []string{"words", "pred"},
		Rows:   [][]interface{}{{"a", 0}},
	})
	return dir
}

func TestRun_Corpus(t *testing.T) {
	dir := writeCorpus(t)
	e := New(zerolog.Nop())

	res, err := e.Run(context.Background(), dir, annotation.Annotator1)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Summary.TotalFiles)
	assert.True(t, res.Summary.LabelMappingFound)
	assert.Equal(t, len(vocab), res.Summary.TotalEntityLabels)
	assert.Equal(t, "annotator1", res.Summary.GroundTruthAnnotator)
	assert.Equal(t, metrics.ScorerSpan, res.Summary.SequenceScorer)

	require.Len(t, res.SkippedFiles, 1)
	assert.Equal(t, "d_broken.xlsx", res.SkippedFiles[0].File)

	var names []string
	for _, f := range res.PerFile {
		names = append(names, f.File)
	}
	assert.Equal(t, []string{"a_page.xlsx", "b_page.xlsx", "c_page.xlsx"}, names)

	// 5 of 7 labelled tokens correct across the corpus; the mean of the
	// per-file accuracies would be (1 + 0 + 0.5) / 3.
	tok := res.Overall.Token
	assert.Equal(t, 7, tok.TotalTokens)
	assert.Equal(t, 5, tok.CorrectPredictions)
	assert.InDelta(t, 5.0/7.0, tok.TokenAccuracy, 1e-9)
	assert.InDelta(t, 0.5, res.PageStats.MeanTokenAccuracy, 1e-9)
	assert.Equal(t, 1, res.PageStats.PerfectPages)

	assert.Equal(t, 2, res.ErrorAnalysis.TotalErrors)
	require.NotNil(t, res.Agreement)
	assert.Equal(t, 5, res.Agreement.TotalDualAnnotations)
	assert.Equal(t, 4, res.Agreement.AgreementCount)

	require.NotNil(t, res.PerFile[0].Agreement)
	assert.Equal(t, 1.0, res.PerFile[0].Agreement.KappaScore)
	assert.Nil(t, res.PerFile[1].Agreement)

	require.NotNil(t, res.Overall.Sequences.SequenceF1)
	assert.Empty(t, res.Overall.Sequences.Note)
}

func TestRun_WorkerCountDoesNotChangeResult(t *testing.T) {
	dir := writeCorpus(t)

	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	serial := New(zerolog.Nop())
	serial.Clock = clock
	want, err := serial.Run(context.Background(), dir, annotation.Annotator1)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), want.StartedAt)
	assert.Zero(t, want.Duration)

	parallel := New(zerolog.Nop())
	parallel.Clock = clock
	parallel.Workers = 4
	got, err := parallel.Run(context.Background(), dir, annotation.Annotator1)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parallel result differs (-serial +parallel):\n%s", diff)
	}
}

func TestRun_TokenScorerFallback(t *testing.T) {
	dir := writeCorpus(t)
	e := New(zerolog.Nop())
	e.Scorer = metrics.TokenScorer{}

	res, err := e.Run(context.Background(), dir, annotation.Annotator1)
	require.NoError(t, err)
	assert.Nil(t, res.Overall.Sequences.SequenceF1)
	assert.Equal(t, metrics.FallbackNote, res.Overall.Sequences.Note)
	assert.InDelta(t, res.Overall.Token.TokenAccuracy, res.Overall.Sequences.SequenceAccuracy, 1e-9)
}

func TestRun_SecondAnnotatorAsTruth(t *testing.T) {
	dir := writeCorpus(t)
	e := New(zerolog.Nop())

	res, err := e.Run(context.Background(), dir, annotation.Annotator2)
	require.NoError(t, err)
	// b_page has no annotator2 labels but still loads.
	assert.Len(t, res.SkippedFiles, 1)
	assert.Len(t, res.PerFile, 3)
	assert.Equal(t, 5, res.Overall.Token.TotalTokens)
	assert.Equal(t, 4, res.Overall.Token.CorrectPredictions)
	assert.Equal(t, 0, res.PerFile[1].Token.TotalTokens)
}

func TestRun_VocabularyOverride(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWorkbook(t, dir, "p.xlsx", testutil.AnnotationSheet(
		testutil.Token{Word: "Jane", Pred: 1, Annotator1: "PER"},
	))

	e := New(zerolog.Nop())
	res, err := e.Run(context.Background(), dir, annotation.Annotator1)
	require.NoError(t, err)
	assert.False(t, res.Summary.LabelMappingFound)
	assert.Equal(t, 0.0, res.Overall.Token.TokenAccuracy)

	e.Vocabulary = labels.Standard()
	res, err = e.Run(context.Background(), dir, annotation.Annotator1)
	require.NoError(t, err)
	assert.True(t, res.Summary.LabelMappingFound)
	assert.Equal(t, 1.0, res.Overall.Token.TokenAccuracy)
}

func TestRun_Errors(t *testing.T) {
	e := New(zerolog.Nop())

	_, err := e.Run(context.Background(), filepath.Join(t.TempDir(), "missing"), annotation.Annotator1)
	assert.True(t, errors.Is(err, ErrInputDirNotFound))

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = e.Run(context.Background(), file, annotation.Annotator1)
	assert.True(t, errors.Is(err, ErrInputDirNotFound))

	_, err = e.Run(context.Background(), t.TempDir(), annotation.Annotator1)
	assert.True(t, errors.Is(err, ErrNoFilesLoaded))

	broken := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(broken, "junk.xlsx"), []byte("not a workbook"), 0644))
	_, err = e.Run(context.Background(), broken, annotation.Annotator1)
	assert.True(t, errors.Is(err, ErrNoFilesLoaded))
}

func TestRun_Cancelled(t *testing.T) {
	dir := writeCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(zerolog.Nop()).Run(ctx, dir, annotation.Annotator1)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestResult_PerFileAccuracy(t *testing.T) {
	r := &Result{PerFile: []FileResult{
		{File: "a", Token: metrics.TokenMetrics{TokenAccuracy: 0.5}},
		{File: "b", Token: metrics.TokenMetrics{TokenAccuracy: 1}},
	}}
	assert.Equal(t, map[string]float64{"a": 0.5, "b": 1}, r.PerFileAccuracy())
}
