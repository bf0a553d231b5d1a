package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/annotation.report/internal/evaluation"
	"github.com/banshee-data/annotation.report/internal/metrics"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testResult(started time.Time, acc float64) *evaluation.Result {
	f1 := 0.6
	return &evaluation.Result{
		Summary: evaluation.Summary{
			TotalFiles:           2,
			AnnotationDirectory:  "batch1",
			GroundTruthAnnotator: "annotator1",
			SequenceScorer:       "span",
		},
		Overall: evaluation.Overall{
			Token:      metrics.TokenMetrics{TokenAccuracy: acc, TotalTokens: 10},
			EntityFlat: metrics.Classification{WeightedF1: 0.7},
			EntityBIO:  metrics.Classification{WeightedF1: 0.65},
			Sequences:  metrics.SequenceResult{SequenceF1: &f1},
		},
		PerFile: []evaluation.FileResult{
			{File: "b.xlsx", Token: metrics.TokenMetrics{TokenAccuracy: 0.5, TotalTokens: 4}},
			{File: "a.xlsx", Token: metrics.TokenMetrics{TokenAccuracy: 1, TotalTokens: 6},
				Agreement: &metrics.Agreement{KappaScore: 0.8}},
		},
		ErrorAnalysis: metrics.ErrorAnalysis{ErrorRate: 1 - acc},
		SkippedFiles:  []evaluation.SkippedFile{{File: "c.xlsx", Reason: "missing column"}},
		StartedAt:     started,
		Duration:      1500 * time.Millisecond,
	}
}

func TestOpen_MigratesToLatest(t *testing.T) {
	s := openTestStore(t)

	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, latest, version)

	// Running again is a no-op.
	require.NoError(t, s.MigrateUp())
}

func TestInsertAndListRuns(t *testing.T) {
	s := openTestStore(t)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := s.InsertRun(testResult(t0, 0.7))
	require.NoError(t, err)
	second, err := s.InsertRun(testResult(t0.Add(time.Hour), 0.9))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)

	r := runs[0]
	assert.True(t, t0.Add(time.Hour).Equal(r.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, r.Duration)
	assert.Equal(t, "batch1", r.AnnotationDir)
	assert.Equal(t, 2, r.FilesEvaluated)
	assert.Equal(t, 1, r.FilesSkipped)
	assert.InDelta(t, 0.9, r.TokenAccuracy, 1e-9)
	require.NotNil(t, r.SequenceF1)
	assert.InDelta(t, 0.6, *r.SequenceF1, 1e-9)
	assert.Nil(t, r.Kappa)

	limited, err := s.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	all, err := s.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetRunFiles(t *testing.T) {
	s := openTestStore(t)
	id, err := s.InsertRun(testResult(time.Now(), 0.8))
	require.NoError(t, err)

	files, err := s.GetRunFiles(id)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.xlsx", files[0].File)
	require.NotNil(t, files[0].Kappa)
	assert.InDelta(t, 0.8, *files[0].Kappa, 1e-9)
	assert.Equal(t, "b.xlsx", files[1].File)
	assert.Nil(t, files[1].Kappa)

	skipped, err := s.GetSkippedFiles(id)
	require.NoError(t, err)
	assert.Equal(t, []evaluation.SkippedFile{{File: "c.xlsx", Reason: "missing column"}}, skipped)

	none, err := s.GetRunFiles("no-such-run")
	require.NoError(t, err)
	assert.Empty(t, none)
}
