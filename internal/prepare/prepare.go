// Package prepare generates the per-page annotation workbooks from model
// predictions and the master file that tracks their assignment.
package prepare

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/banshee-data/annotation.report/internal/fsutil"
	"github.com/banshee-data/annotation.report/internal/labels"
	"github.com/banshee-data/annotation.report/internal/master"
	"github.com/banshee-data/annotation.report/internal/security"
)

// ErrCasesDirNotFound is returned when the cases directory does not exist.
var ErrCasesDirNotFound = errors.New("cases directory not found")

// Options controls a preparation run. Templates may use {case_dir},
// {case_id}, {page_id} and, for images, {image_file}.
type Options struct {
	CasesDir          string
	LabelsDir         string
	ImagesDir         string
	MasterFile        string
	NetworkShare      string
	CSVPathTemplate   string
	ImagePathTemplate string
	CopyImages        bool
	// SplitByCase adds one workbook per case and assigned annotator under
	// <master dir>/cases plus an index linking to them.
	SplitByCase bool
	Annotators  []string
	// Labels fill the Validation sheet and the drop-down lists.
	Labels []string
}

// DefaultOptions mirrors the directory layout the annotation team uses.
func DefaultOptions() Options {
	return Options{
		CasesDir:     "du_cases",
		LabelsDir:    "annotation_labels",
		ImagesDir:    "annotation_images",
		MasterFile:   filepath.Join("data", "master.csv"),
		NetworkShare: "data",
		CopyImages:   true,
		SplitByCase:  true,
		Annotators:   master.DefaultAnnotators,
		Labels:       labels.StandardLabels,
	}
}

// WithOutputDir places relative label and image directories under dir and
// puts the master file, by base name, directly in dir.
func (o Options) WithOutputDir(dir string) Options {
	if dir == "" {
		return o
	}
	if !filepath.IsAbs(o.LabelsDir) {
		o.LabelsDir = filepath.Join(dir, o.LabelsDir)
	}
	if !filepath.IsAbs(o.ImagesDir) {
		o.ImagesDir = filepath.Join(dir, o.ImagesDir)
	}
	if !filepath.IsAbs(o.MasterFile) {
		o.MasterFile = filepath.Join(dir, filepath.Base(o.MasterFile))
	}
	return o
}

// Failure records a page that could not be processed.
type Failure struct {
	CaseID string `json:"case_id"`
	PageID string `json:"page_id"`
	Reason string `json:"reason"`
}

// Result is the outcome of Run.
type Result struct {
	Images       int           `json:"images"`
	Copied       []master.Page `json:"copied"`
	CopyFailures []Failure     `json:"copy_failures"`
	Generated    []master.Page `json:"generated"`
	Failures     []Failure     `json:"failures"`
	MasterFile   string        `json:"master_file"`
	MasterBackup string        `json:"master_backup,omitempty"`
	// MasterWorkbook is the hyperlinked copy of the master file.
	MasterWorkbook string   `json:"master_workbook"`
	CasesDir       string   `json:"cases_dir,omitempty"`
	CaseFiles      []string `json:"case_files,omitempty"`
	CaseIndex      string   `json:"case_index,omitempty"`
}

// Preparer turns a list of pages into annotation workbooks.
type Preparer struct {
	Logger  zerolog.Logger
	FS      fsutil.FileSystem
	Options Options
}

// New returns a Preparer on the OS filesystem.
func New(logger zerolog.Logger, opts Options) *Preparer {
	if len(opts.Labels) == 0 {
		opts.Labels = labels.StandardLabels
	}
	return &Preparer{Logger: logger, FS: fsutil.OSFileSystem{}, Options: opts}
}

// LoadImages reads the case_id and page_id columns of the images list.
func LoadImages(fsys fsutil.FileSystem, path string) ([]master.Page, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("images file not found: %w", err)
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse images file: %w", err)
	}

	caseCol, pageCol := -1, -1
	if len(records) > 0 {
		for i, h := range records[0] {
			switch strings.TrimSpace(h) {
			case master.ColCaseID:
				caseCol = i
			case master.ColPageID:
				pageCol = i
			}
		}
	}
	if caseCol < 0 || pageCol < 0 {
		return nil, fmt.Errorf("%w: images file must contain case_id and page_id", master.ErrMissingColumns)
	}

	pages := make([]master.Page, 0, len(records)-1)
	for _, rec := range records[1:] {
		if caseCol >= len(rec) || pageCol >= len(rec) {
			continue
		}
		pages = append(pages, master.Page{CaseID: rec[caseCol], PageID: rec[pageCol]})
	}
	return pages, nil
}

// expand fills a path template, or joins parts under the case directory
// when the template is empty.
func (p *Preparer) expand(template string, pg master.Page, imageFile string, parts ...string) string {
	caseDir := filepath.Join(p.Options.CasesDir, pg.CaseID)
	if template == "" {
		return filepath.Join(append([]string{caseDir}, parts...)...)
	}
	return strings.NewReplacer(
		"{case_dir}", caseDir,
		"{case_id}", pg.CaseID,
		"{page_id}", pg.PageID,
		"{image_file}", imageFile,
	).Replace(template)
}

func imageFile(pg master.Page) string { return pg.PageID + ".jpeg" }

func (p *Preparer) csvPath(pg master.Page) string {
	return p.expand(p.Options.CSVPathTemplate, pg, imageFile(pg), "processing", "form-recogniser", "df_check.csv")
}

func (p *Preparer) imagePath(pg master.Page) string {
	return p.expand(p.Options.ImagePathTemplate, pg, imageFile(pg), "images", imageFile(pg))
}

func stem(pg master.Page) string { return pg.CaseID + "_" + pg.PageID }

// Run reads imagesFile, copies page images when enabled, writes one label
// workbook per page and saves the master file listing the generated pages,
// both as CSV and as a workbook linking to each image and label file. With
// SplitByCase it also writes the per-case workbooks and their index.
// Pages that cannot be processed are recorded, not fatal.
func (p *Preparer) Run(ctx context.Context, imagesFile string) (*Result, error) {
	if !p.FS.Exists(p.Options.CasesDir) {
		return nil, fmt.Errorf("%w: %s", ErrCasesDirNotFound, p.Options.CasesDir)
	}
	pages, err := LoadImages(p.FS, imagesFile)
	if err != nil {
		return nil, err
	}
	p.Logger.Info().Int("images", len(pages)).Str("file", imagesFile).Msg("loaded images to annotate")
	p.Logger.Info().
		Str("images", p.Options.NetworkShare+`\annotation_images\`).
		Str("labels", p.Options.NetworkShare+`\annotation_labels\`).
		Msg("master file links")

	res := &Result{Images: len(pages)}

	if p.Options.CopyImages {
		if err := p.copyImages(ctx, pages, res); err != nil {
			return nil, err
		}
	}
	if err := p.generate(ctx, pages, res); err != nil {
		return nil, err
	}

	csvPath, workbook := masterPaths(p.Options.MasterFile)
	if dir := filepath.Dir(csvPath); dir != "." {
		if err := p.FS.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create master directory: %w", err)
		}
	}
	mf := master.NewRows(res.Generated, p.Options.Annotators, p.Options.NetworkShare)
	backup, err := master.Save(p.FS, csvPath, mf)
	if err != nil {
		return nil, err
	}
	res.MasterFile = csvPath
	res.MasterBackup = backup
	p.Logger.Info().Str("file", csvPath).Int("pages", len(mf.Rows)).Msg("created master file")

	if err := p.writeSheet(workbook, MasterSheetOf(mf)); err != nil {
		return nil, fmt.Errorf("create master workbook: %w", err)
	}
	res.MasterWorkbook = workbook
	p.Logger.Info().Str("file", workbook).Msg("created master Excel file")

	if p.Options.SplitByCase {
		if err := p.writeCases(ctx, mf, filepath.Join(filepath.Dir(csvPath), CasesDirName), res); err != nil {
			return nil, err
		}
	}

	if missing := len(pages) - len(res.Generated); missing > 0 {
		p.Logger.Warn().Int("missing", missing).Str("file", imagesFile).Msg("not every listed image was prepared")
	}
	return res, nil
}

func (p *Preparer) copyImages(ctx context.Context, pages []master.Page, res *Result) error {
	if err := p.FS.MkdirAll(p.Options.ImagesDir, 0755); err != nil {
		return fmt.Errorf("create images directory: %w", err)
	}
	fail := func(pg master.Page, reason string) {
		res.CopyFailures = append(res.CopyFailures, Failure{CaseID: pg.CaseID, PageID: pg.PageID, Reason: reason})
		p.Logger.Warn().Str("case", pg.CaseID).Str("page", pg.PageID).Msg(reason)
	}

	for _, pg := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !p.FS.Exists(filepath.Join(p.Options.CasesDir, pg.CaseID)) {
			fail(pg, "case directory not found")
			continue
		}
		src := p.imagePath(pg)
		if !p.FS.Exists(src) {
			fail(pg, "image file not found at: "+src)
			continue
		}
		dst := filepath.Join(p.Options.ImagesDir, stem(pg)+".jpeg")
		if err := fsutil.CopyFile(p.FS, src, dst); err != nil {
			fail(pg, "error copying image: "+err.Error())
			continue
		}
		p.Logger.Debug().Str("file", dst).Msg("copied image")
		res.Copied = append(res.Copied, pg)
	}
	p.Logger.Info().Int("copied", len(res.Copied)).Str("dir", p.Options.ImagesDir).Msg("copied image files")
	return nil
}

func (p *Preparer) generate(ctx context.Context, pages []master.Page, res *Result) error {
	if err := p.FS.MkdirAll(p.Options.LabelsDir, 0755); err != nil {
		return fmt.Errorf("create labels directory: %w", err)
	}
	for _, pg := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if reason := p.generatePage(pg); reason != "" {
			res.Failures = append(res.Failures, Failure{CaseID: pg.CaseID, PageID: pg.PageID, Reason: reason})
			p.Logger.Warn().Str("case", pg.CaseID).Str("page", pg.PageID).Msg(reason)
			continue
		}
		res.Generated = append(res.Generated, pg)
	}
	p.Logger.Info().Int("generated", len(res.Generated)).Str("dir", p.Options.LabelsDir).Msg("created annotation files")
	return nil
}

// generatePage writes the label workbook of pg and returns a failure reason,
// or "" on success.
func (p *Preparer) generatePage(pg master.Page) string {
	if !p.FS.Exists(filepath.Join(p.Options.CasesDir, pg.CaseID)) {
		return "case directory not found"
	}
	csvPath := p.csvPath(pg)
	if !p.FS.Exists(csvPath) {
		return "CSV file not found at: " + csvPath
	}
	if img := p.imagePath(pg); !p.FS.Exists(img) {
		return "image file not found at: " + img
	}

	data, err := p.FS.ReadFile(csvPath)
	if err != nil {
		return "error reading CSV: " + err.Error()
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil || len(records) == 0 {
		return fmt.Sprintf("error reading CSV: %v", err)
	}

	header := records[0]
	col, name := FilterColumn(header)
	var rows [][]string
	for _, rec := range records[1:] {
		if col < len(rec) && rec[col] == pg.PageID {
			rows = append(rows, rec)
		}
	}
	p.Logger.Debug().
		Str("csv", csvPath).
		Str("column", name).
		Int("rows", len(records)-1).
		Int("matched", len(rows)).
		Msg("filtered prediction rows")
	if len(rows) == 0 {
		return fmt.Sprintf("no data rows found for '%s' in '%s' column", pg.PageID, name)
	}

	path := filepath.Join(p.Options.LabelsDir, stem(pg)+".xlsx")
	w, err := p.FS.Create(path)
	if err != nil {
		return "error writing annotation file: " + err.Error()
	}
	if err := WriteLabelFile(w, LabelTable(header, rows), p.Options.Labels); err != nil {
		w.Close()
		return "error writing annotation file: " + err.Error()
	}
	if err := w.Close(); err != nil {
		return "error writing annotation file: " + err.Error()
	}
	p.Logger.Info().Str("file", path).Int("rows", len(rows)).Msg("created annotation file")
	return ""
}

// writeCases writes cases/<annotator>/<case>.xlsx for both assigned
// annotators and cases/index.xlsx. A case file that cannot be written is
// logged and skipped.
func (p *Preparer) writeCases(ctx context.Context, mf *master.File, dir string, res *Result) error {
	annotators := p.Options.Annotators
	if len(annotators) < 2 {
		annotators = master.DefaultAnnotators
	}
	annotators = annotators[:2]
	for _, a := range annotators {
		if err := p.FS.MkdirAll(filepath.Join(dir, security.SanitizeFilename(a)), 0755); err != nil {
			return fmt.Errorf("create cases directory: %w", err)
		}
	}

	cases := groupByCase(mf)
	for _, id := range sortedCases(cases) {
		for slot, a := range annotators {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, security.SanitizeFilename(a), caseFileName(id))
			if err := p.writeSheet(path, CaseSheet(id, cases[id], slot)); err != nil {
				p.Logger.Error().Err(err).Str("file", path).Msg("failed to create case file")
				continue
			}
			res.CaseFiles = append(res.CaseFiles, path)
		}
	}
	res.CasesDir = dir
	p.Logger.Info().Int("files", len(res.CaseFiles)).Str("dir", dir).Msg("created annotator-specific case files")

	index := filepath.Join(dir, CaseIndexName)
	if err := p.writeSheet(index, IndexSheet(cases, annotators)); err != nil {
		return fmt.Errorf("create case index file: %w", err)
	}
	res.CaseIndex = index
	p.Logger.Info().Str("file", index).Msg("created case index file")
	return nil
}

func (p *Preparer) writeSheet(path string, s TrackingSheet) error {
	w, err := p.FS.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTrackingFile(w, s); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
