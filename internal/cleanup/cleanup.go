// Package cleanup rewrites annotation workbooks in place: removing duplicate
// rows, standardising the ground-truth annotator column and pre-filling
// annotator columns from decoded model predictions.
package cleanup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/banshee-data/annotation.report/internal/annotation"
	"github.com/banshee-data/annotation.report/internal/fsutil"
	"github.com/banshee-data/annotation.report/internal/labels"
)

// ErrNoFiles is returned when a directory holds no annotation workbooks.
var ErrNoFiles = errors.New("no .xlsx files found")

// FileResult records what a pass did to one workbook.
type FileResult struct {
	File               string `json:"file"`
	Success            bool   `json:"success"`
	OriginalRows       int    `json:"original_rows"`
	FinalRows          int    `json:"final_rows"`
	DuplicatesRemoved  int    `json:"duplicates_removed"`
	LabelsStandardised int    `json:"labels_standardized"`
	PredsDecoded       int    `json:"predictions_decoded"`
	Annotator1Filled   int    `json:"annotator1_filled"`
	Annotator2Filled   int    `json:"annotator2_filled"`
	Error              string `json:"error,omitempty"`
}

// Summary totals the successful files of a pass.
type Summary struct {
	FilesProcessed    int      `json:"files_processed"`
	FilesSuccessful   int      `json:"files_successful"`
	FilesFailed       int      `json:"files_failed"`
	OriginalRows      int      `json:"total_original_rows"`
	FinalRows         int      `json:"total_final_rows"`
	DuplicatesRemoved int      `json:"total_duplicates_removed"`
	PredsDecoded      int      `json:"total_predictions_decoded"`
	Annotator1Filled  int      `json:"total_annotator1_filled"`
	Annotator2Filled  int      `json:"total_annotator2_filled"`
	FailedFiles       []string `json:"failed_files"`
}

// Result is the outcome of a directory pass.
type Result struct {
	Summary Summary      `json:"summary"`
	Files   []FileResult `json:"file_details"`
}

func (r *Result) add(f FileResult) {
	r.Files = append(r.Files, f)
	s := &r.Summary
	s.FilesProcessed++
	if !f.Success {
		s.FilesFailed++
		s.FailedFiles = append(s.FailedFiles, f.File)
		return
	}
	s.FilesSuccessful++
	s.OriginalRows += f.OriginalRows
	s.FinalRows += f.FinalRows
	s.DuplicatesRemoved += f.DuplicatesRemoved
	s.PredsDecoded += f.PredsDecoded
	s.Annotator1Filled += f.Annotator1Filled
	s.Annotator2Filled += f.Annotator2Filled
}

// Options controls a pass. Zero Options deduplicate nothing and take no
// backups; use DefaultOptions.
type Options struct {
	Sheet  string
	Backup bool
	// Dedupe drops rows that repeat every non-label column. Clean only.
	Dedupe bool
	// Target is the annotator column to standardise. Clean only.
	Target annotation.Annotator
}

// DefaultOptions backs up files, deduplicates and standardises annotator1.
func DefaultOptions() Options {
	return Options{
		Sheet:  annotation.DefaultPrimarySheet,
		Backup: true,
		Dedupe: true,
		Target: annotation.Annotator1,
	}
}

// transformFunc rewrites the primary sheet and fills in the counters of res.
type transformFunc func(t *annotation.Table, res *FileResult) *annotation.Table

// Processor applies a transform to every workbook of a directory.
type Processor struct {
	Logger  zerolog.Logger
	FS      fsutil.FileSystem
	Options Options
}

// New returns a Processor on the OS filesystem.
func New(logger zerolog.Logger, opts Options) *Processor {
	if opts.Sheet == "" {
		opts.Sheet = annotation.DefaultPrimarySheet
	}
	return &Processor{Logger: logger, FS: fsutil.OSFileSystem{}, Options: opts}
}

// Clean deduplicates rows (when enabled) and standardises the target
// annotator column of every workbook in dir.
func (p *Processor) Clean(dir string) (*Result, error) {
	if _, err := annotation.ParseAnnotator(string(p.Options.Target)); err != nil {
		return nil, err
	}
	p.Logger.Info().
		Str("target", string(p.Options.Target)).
		Bool("dedupe", p.Options.Dedupe).
		Bool("backup", p.Options.Backup).
		Msg("cleaning annotation files")

	return p.run(dir, func(t *annotation.Table, res *FileResult) *annotation.Table {
		if p.Options.Dedupe {
			keys := annotation.DefaultDuplicateKeys(t)
			if len(keys) == 0 {
				p.Logger.Warn().Str("file", res.File).Msg("no valid key columns found for deduplication")
			} else {
				var n int
				t, n = annotation.DropDuplicates(t, keys)
				res.DuplicatesRemoved = n
				if n > 0 {
					p.Logger.Info().Str("file", res.File).Int("removed", n).Strs("keys", keys).Msg("removed duplicate rows")
				}
			}
		}
		if !t.Has(p.Options.Target.Column()) && !t.Has(p.Options.Target.Other().Column()) {
			p.Logger.Warn().Str("file", res.File).Str("column", p.Options.Target.Column()).Msg("target column not found in data")
		}
		t, res.LabelsStandardised = annotation.StandardiseAnnotator(t, p.Options.Target)
		return t
	})
}

// Update keeps the most probable of each token's top-k predictions, decodes
// pred with vocab and fills empty annotator cells with the decoded tag.
func (p *Processor) Update(dir string, vocab *labels.Vocabulary) (*Result, error) {
	p.Logger.Info().
		Int("labels", vocab.Len()).
		Bool("backup", p.Options.Backup).
		Msg("updating annotation files with predictions")

	return p.run(dir, func(t *annotation.Table, res *FileResult) *annotation.Table {
		t, ds := annotation.DedupeTopK(t)
		if ds.Skipped != "" {
			p.Logger.Warn().Str("file", res.File).Msg(ds.Skipped + ", skipping top-k deduplication")
		}
		res.DuplicatesRemoved = ds.Removed

		t, st := annotation.FillFromPredictions(t, vocab)
		if st.NoPredColumn {
			p.Logger.Warn().Str("file", res.File).Msg("no pred column found")
		}
		res.PredsDecoded = st.Decoded
		res.Annotator1Filled = st.Annotator1Fill
		res.Annotator2Filled = st.Annotator2Fill
		return t
	})
}

func (p *Processor) run(dir string, fn transformFunc) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory not found: %s", dir)
	}
	files, err := annotation.ListFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, dir)
	}
	p.Logger.Info().Int("files", len(files)).Msg("found annotation files to process")

	res := &Result{Summary: Summary{FailedFiles: []string{}}}
	for _, path := range files {
		fr := p.processFile(path, fn)
		if fr.Success {
			p.Logger.Info().Str("file", fr.File).Msg("processed")
		} else {
			p.Logger.Error().Str("file", fr.File).Msg(fr.Error)
		}
		res.add(fr)
	}
	if len(res.Summary.FailedFiles) > 0 {
		p.Logger.Warn().Strs("files", res.Summary.FailedFiles).Msg("some files failed")
	}
	return res, nil
}

func (p *Processor) processFile(path string, fn transformFunc) FileResult {
	res := FileResult{File: filepath.Base(path)}
	fail := func(err error) FileResult {
		return FileResult{File: res.File, Error: fmt.Sprintf("error processing %s: %v", res.File, err)}
	}

	wb, err := annotation.ReadWorkbook(path)
	if err != nil {
		return fail(err)
	}
	t := wb.Sheet(p.Options.Sheet)
	if t == nil {
		return fail(fmt.Errorf("%w: %s", annotation.ErrSheetNotFound, p.Options.Sheet))
	}
	res.OriginalRows = t.Len()

	if p.Options.Backup {
		backup, err := annotation.Backup(p.FS, path)
		if err != nil {
			return fail(err)
		}
		p.Logger.Info().Str("backup", filepath.Base(backup)).Msg("created backup")
	}

	t = fn(t, &res)
	res.FinalRows = t.Len()

	wb.Replace(t)
	if err := annotation.WriteWorkbook(path, wb); err != nil {
		return fail(err)
	}
	res.Success = true
	return res
}
