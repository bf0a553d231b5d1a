package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/annotation.report/internal/annotation"
	"github.com/banshee-data/annotation.report/internal/cleanup"
	"github.com/banshee-data/annotation.report/internal/cli"
	"github.com/banshee-data/annotation.report/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&cli.App{LogOutput: io.Discard})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeDuplicates(t *testing.T, dir string) string {
	t.Helper()
	return testutil.WriteWorkbook(t, dir, "page.xlsx",
		testutil.Sheet{
			Name:   "Annotation",
			Header: testutil.AnnotationHeader,
			Rows: [][]interface{}{
				{"John", 10, 0, 50, 8, 1, 0.9, "PER", "PER"},
				{"John", 10, 0, 50, 8, 1, 0.9, nil, "PER"},
				{"paid", 60, 0, 90, 8, 0, 0.8, "o", nil},
			},
		},
		testutil.VocabSheet("O", "B-PER"),
	)
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	path := writeDuplicates(t, dir)
	outDir := t.TempDir()

	out, err := execute(t, dir, "--output-dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Annotation Cleanup Complete ===")
	assert.Contains(t, out, "Target annotator: annotator1")
	assert.Contains(t, out, "Files successful: 1")
	assert.Contains(t, out, "Total duplicates removed: 1")

	report, err := os.ReadFile(filepath.Join(outDir, "cleanup_report_annotator1.md"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "# Annotation Cleanup Report")
	assert.Contains(t, string(report), "| page.xlsx |")

	assert.FileExists(t, annotation.BackupPath(path))
	tbl, err := annotation.ReadTable(path, annotation.DefaultPrimarySheet)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 2)
}

func TestCleanup_FlagsAndCustomReport(t *testing.T) {
	dir := t.TempDir()
	path := writeDuplicates(t, dir)
	outDir := t.TempDir()

	out, err := execute(t, dir,
		"--target-annotator", "annotator2",
		"--no-dedupe", "--no-backup",
		"--output-dir", outDir,
		"--report", "custom.md",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Target annotator: annotator2")
	assert.Contains(t, out, "Total duplicates removed: 0")
	assert.FileExists(t, filepath.Join(outDir, "custom.md"))
	assert.NoFileExists(t, annotation.BackupPath(path))
}

func TestCleanup_Errors(t *testing.T) {
	_, err := execute(t)
	assert.Error(t, err)

	_, err = execute(t, t.TempDir(), "--target-annotator", "annotator3", "--output-dir", t.TempDir())
	assert.ErrorIs(t, err, annotation.ErrInvalidAnnotator)

	_, err = execute(t, t.TempDir(), "--output-dir", t.TempDir())
	assert.ErrorIs(t, err, cleanup.ErrNoFiles)

	_, err = execute(t, filepath.Join(t.TempDir(), "missing"), "--output-dir", t.TempDir())
	assert.ErrorContains(t, err, "directory not found")
}
