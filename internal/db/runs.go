package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/annotation.report/internal/evaluation"
)

// Run is one stored evaluation run.
type Run struct {
	ID             string        `json:"run_id"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	AnnotationDir  string        `json:"annotation_dir"`
	Annotator      string        `json:"annotator"`
	SequenceScorer string        `json:"sequence_scorer"`
	FilesEvaluated int           `json:"files_evaluated"`
	FilesSkipped   int           `json:"files_skipped"`
	TotalTokens    int           `json:"total_tokens"`
	TokenAccuracy  float64       `json:"token_accuracy"`
	FlatWeightedF1 float64       `json:"flat_weighted_f1"`
	BIOWeightedF1  float64       `json:"bio_weighted_f1"`
	SequenceF1     *float64      `json:"sequence_f1,omitempty"`
	Kappa          *float64      `json:"kappa,omitempty"`
	ErrorRate      float64       `json:"error_rate"`
}

// RunFile is the stored per-file score of a run.
type RunFile struct {
	File           string   `json:"file"`
	TotalTokens    int      `json:"total_tokens"`
	TokenAccuracy  float64  `json:"token_accuracy"`
	FlatWeightedF1 float64  `json:"flat_weighted_f1"`
	BIOWeightedF1  float64  `json:"bio_weighted_f1"`
	Kappa          *float64 `json:"kappa,omitempty"`
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// InsertRun stores r with its per-file scores and skipped files in one
// transaction and returns the new run id.
func (s *Store) InsertRun(r *evaluation.Result) (string, error) {
	id := uuid.NewString()

	var kappa *float64
	if r.Agreement != nil {
		kappa = &r.Agreement.KappaScore
	}

	tx, err := s.Begin()
	if err != nil {
		return "", fmt.Errorf("begin insert run: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO runs (
			run_id, started_unix_nanos, duration_ms, annotation_dir, annotator, sequence_scorer,
			files_evaluated, files_skipped, total_tokens, token_accuracy,
			flat_weighted_f1, bio_weighted_f1, sequence_f1, kappa, error_rate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.StartedAt.UnixNano(), r.Duration.Milliseconds(),
		r.Summary.AnnotationDirectory, r.Summary.GroundTruthAnnotator, r.Summary.SequenceScorer,
		r.Summary.TotalFiles, len(r.SkippedFiles), r.Overall.Token.TotalTokens, r.Overall.Token.TokenAccuracy,
		r.Overall.EntityFlat.WeightedF1, r.Overall.EntityBIO.WeightedF1,
		nullFloat(r.Overall.Sequences.SequenceF1), nullFloat(kappa), r.ErrorAnalysis.ErrorRate,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, f := range r.PerFile {
		var fk *float64
		if f.Agreement != nil {
			fk = &f.Agreement.KappaScore
		}
		_, err := tx.Exec(`
			INSERT INTO run_files (
				run_id, file, total_tokens, token_accuracy, flat_weighted_f1, bio_weighted_f1, kappa
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, f.File, f.Token.TotalTokens, f.Token.TokenAccuracy,
			f.EntityFlat.WeightedF1, f.EntityBIO.WeightedF1, nullFloat(fk),
		)
		if err != nil {
			return "", fmt.Errorf("insert run file %s: %w", f.File, err)
		}
	}

	for _, f := range r.SkippedFiles {
		if _, err := tx.Exec(`INSERT INTO run_skipped_files (run_id, file, reason) VALUES (?, ?, ?)`,
			id, f.File, f.Reason); err != nil {
			return "", fmt.Errorf("insert skipped file %s: %w", f.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	s.logger.Info().Str("run_id", id).Int("files", len(r.PerFile)).Msg("run recorded")
	return id, nil
}

// ListRuns returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.Query(`
		SELECT run_id, started_unix_nanos, duration_ms, annotation_dir, annotator, sequence_scorer,
			files_evaluated, files_skipped, total_tokens, token_accuracy,
			flat_weighted_f1, bio_weighted_f1, sequence_f1, kappa, error_rate
		FROM runs
		ORDER BY started_unix_nanos DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, durationMs int64
		var seqF1, kappa sql.NullFloat64
		if err := rows.Scan(
			&r.ID, &started, &durationMs, &r.AnnotationDir, &r.Annotator, &r.SequenceScorer,
			&r.FilesEvaluated, &r.FilesSkipped, &r.TotalTokens, &r.TokenAccuracy,
			&r.FlatWeightedF1, &r.BIOWeightedF1, &seqF1, &kappa, &r.ErrorRate,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, started).UTC()
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.SequenceF1 = floatPtr(seqF1)
		r.Kappa = floatPtr(kappa)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunFiles returns the per-file scores of runID ordered by file name.
func (s *Store) GetRunFiles(runID string) ([]RunFile, error) {
	rows, err := s.Query(`
		SELECT file, total_tokens, token_accuracy, flat_weighted_f1, bio_weighted_f1, kappa
		FROM run_files
		WHERE run_id = ?
		ORDER BY file`, runID)
	if err != nil {
		return nil, fmt.Errorf("get run files: %w", err)
	}
	defer rows.Close()

	var files []RunFile
	for rows.Next() {
		var f RunFile
		var kappa sql.NullFloat64
		if err := rows.Scan(&f.File, &f.TotalTokens, &f.TokenAccuracy, &f.FlatWeightedF1, &f.BIOWeightedF1, &kappa); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		f.Kappa = floatPtr(kappa)
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetSkippedFiles returns the files that failed to load in runID.
func (s *Store) GetSkippedFiles(runID string) ([]evaluation.SkippedFile, error) {
	rows, err := s.Query(`SELECT file, reason FROM run_skipped_files WHERE run_id = ? ORDER BY file`, runID)
	if err != nil {
		return nil, fmt.Errorf("get skipped files: %w", err)
	}
	defer rows.Close()

	var out []evaluation.SkippedFile
	for rows.Next() {
		var f evaluation.SkippedFile
		if err := rows.Scan(&f.File, &f.Reason); err != nil {
			return nil, fmt.Errorf("scan skipped file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
