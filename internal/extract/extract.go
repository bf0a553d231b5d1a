// Package extract copies named columns of workbooks into CSV files.
package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/banshee-data/annotation.report/internal/annotation"
	"github.com/banshee-data/annotation.report/internal/fsutil"
)

// ErrNoColumns is returned when a workbook holds none of the requested
// columns.
var ErrNoColumns = errors.New("no requested columns found")

// Suffix is appended to the output stem unless the original name is kept.
const Suffix = "_extracted"

// Options controls an extraction pass.
type Options struct {
	Columns []string
	// Sheet selects the sheet to read; empty means the first one.
	Sheet            string
	KeepOriginalName bool
	Recursive        bool
}

// ParseColumns splits a comma-separated column list, trimming each name and
// dropping empty ones.
func ParseColumns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// FileResult records the extraction of one workbook.
type FileResult struct {
	File    string   `json:"file"`
	Output  string   `json:"output,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Rows    int      `json:"rows"`
	Error   string   `json:"error,omitempty"`
}

// OK reports whether the file was written.
func (f FileResult) OK() bool { return f.Error == "" }

// Result is the outcome of a directory pass.
type Result struct {
	Files      []FileResult `json:"files"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
}

// Extractor writes CSV extracts through FS.
type Extractor struct {
	Logger  zerolog.Logger
	FS      fsutil.FileSystem
	Options Options
}

// New returns an Extractor on the OS filesystem.
func New(logger zerolog.Logger, opts Options) *Extractor {
	return &Extractor{Logger: logger, FS: fsutil.OSFileSystem{}, Options: opts}
}

// ReadSheet loads sheet from path, or the first sheet when sheet is empty.
func ReadSheet(path, sheet string) (*annotation.Table, error) {
	if sheet != "" {
		return annotation.ReadTable(path, sheet)
	}
	wb, err := annotation.ReadWorkbook(path)
	if err != nil {
		return nil, err
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	return wb.Sheets[0], nil
}

// OutputName is the CSV name written for the workbook at path.
func OutputName(path string, keepOriginal bool) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if keepOriginal {
		return stem + ".csv"
	}
	return stem + Suffix + ".csv"
}

// Select splits the requested columns into those t has and those it lacks,
// both in request order.
func Select(t *annotation.Table, columns []string) (present, missing []string) {
	for _, c := range columns {
		if t.Has(c) {
			present = append(present, c)
		} else {
			missing = append(missing, c)
		}
	}
	return present, missing
}

// File extracts the configured columns of the workbook at path into outDir.
// Missing columns are skipped and listed in the result; a file with none of
// them fails.
func (e *Extractor) File(path, outDir string) FileResult {
	res := FileResult{File: path}
	fail := func(err error) FileResult {
		res.Error = err.Error()
		e.Logger.Debug().Err(err).Str("file", filepath.Base(path)).Msg("extraction failed")
		return res
	}

	t, err := ReadSheet(path, e.Options.Sheet)
	if err != nil {
		return fail(err)
	}
	res.Columns, res.Missing = Select(t, e.Options.Columns)
	if len(res.Missing) > 0 {
		e.Logger.Debug().Str("file", filepath.Base(path)).Strs("missing", res.Missing).Msg("missing columns")
	}
	if len(res.Columns) == 0 {
		res.Columns = nil
		return fail(ErrNoColumns)
	}

	idx := make([]int, len(res.Columns))
	for i, c := range res.Columns {
		idx[i] = t.Index(c)
	}
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, res.Columns)
	for _, row := range t.Rows {
		rec := make([]string, len(idx))
		for i, k := range idx {
			if k < len(row) {
				rec[i] = row[k]
			}
		}
		records = append(records, rec)
	}

	out := filepath.Join(outDir, OutputName(path, e.Options.KeepOriginalName))
	if err := e.writeCSV(out, records); err != nil {
		return fail(err)
	}
	res.Output = out
	res.Rows = len(t.Rows)
	e.Logger.Debug().
		Int("columns", len(res.Columns)).
		Str("from", filepath.Base(path)).
		Str("to", filepath.Base(out)).
		Msg("extracted columns")
	return res
}

func (e *Extractor) writeCSV(path string, records [][]string) error {
	w, err := e.FS.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return w.Close()
}

// Directory extracts every workbook in inDir, and below it when Recursive
// is set, into outDir. Per-file failures are counted, not returned.
func (e *Extractor) Directory(ctx context.Context, inDir, outDir string) (*Result, error) {
	list := annotation.ListFiles
	if e.Options.Recursive {
		list = annotation.ListFilesRecursive
	}
	files, err := list(inDir)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	if len(files) == 0 {
		return res, nil
	}
	if err := e.FS.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	e.Logger.Info().Int("files", len(files)).Str("dir", inDir).Msg("found Excel files")

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fr := e.File(f, outDir)
		if fr.OK() {
			res.Successful++
		} else {
			res.Failed++
		}
		res.Files = append(res.Files, fr)
	}
	return res, nil
}
