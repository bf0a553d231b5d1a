package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/annotation.report/internal/cli"
	"github.com/banshee-data/annotation.report/internal/master"
	"github.com/banshee-data/annotation.report/internal/prepare"
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

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func writeCases(t *testing.T) (casesDir, imagesFile string) {
	t.Helper()
	root := t.TempDir()
	casesDir = filepath.Join(root, "cases")
	caseDir := filepath.Join(casesDir, "c1")
	writeFile(t, filepath.Join(caseDir, "processing", "form-recogniser", "df_check.csv"),
		"page_id,words,bboxes,pred,prob\n"+
			"p1,Invoice,\"[1, 2, 3, 4]\",0,0.9\n"+
			"p1,Acme,\"[5, 6, 7, 8]\",3,0.7\n"+
			"p2,Total,\"[1, 1, 2, 2]\",0,0.95\n")
	writeFile(t, filepath.Join(caseDir, "images", "p1.jpeg"), "jpeg-1")
	writeFile(t, filepath.Join(caseDir, "images", "p2.jpeg"), "jpeg-2")

	imagesFile = filepath.Join(root, "images.csv")
	writeFile(t, imagesFile, "case_id,page_id\nc1,p1\nc1,p2\nc1,p3\nc9,p1\n")
	return casesDir, imagesFile
}

func TestPrepare(t *testing.T) {
	casesDir, imagesFile := writeCases(t)
	outDir := t.TempDir()

	out, err := execute(t,
		"--cases-dir", casesDir,
		"--images-file", imagesFile,
		"--output-dir", outDir,
		"--annotators", "alice,bob",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Annotation preparation complete!")
	assert.Contains(t, out, "- Copied 2 image files")
	assert.Contains(t, out, "- Generated 2 annotation files")
	assert.Contains(t, out, "Warning: 2 images")
	assert.Contains(t, out, "c9/p1: case directory not found")

	assert.FileExists(t, filepath.Join(outDir, "annotation_labels", "c1_p1.xlsx"))
	assert.FileExists(t, filepath.Join(outDir, "annotation_labels", "c1_p2.xlsx"))
	assert.FileExists(t, filepath.Join(outDir, "annotation_images", "c1_p1.jpeg"))

	data, err := os.ReadFile(filepath.Join(outDir, "master.csv"))
	require.NoError(t, err)
	mf, err := master.Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, mf.Rows, 2)
	assert.Equal(t, "alice", mf.Rows[0][master.ColAssignee1])
	assert.Equal(t, "bob", mf.Rows[0][master.ColAssignee2])
	assert.Equal(t, master.StatusNo, mf.Rows[0][master.ColCompleted1])

	casesDir = filepath.Join(outDir, prepare.CasesDirName)
	assert.Contains(t, out, "- Created master Excel file: "+filepath.Join(outDir, "master.xlsx"))
	assert.Contains(t, out, "- Created case-specific files in: "+casesDir+"/")
	assert.Contains(t, out, "- Created case index file: "+filepath.Join(casesDir, prepare.CaseIndexName))
	assert.FileExists(t, filepath.Join(outDir, "master.xlsx"))
	assert.FileExists(t, filepath.Join(casesDir, "alice", "c1.xlsx"))
	assert.FileExists(t, filepath.Join(casesDir, "bob", "c1.xlsx"))

	idx, err := excelize.OpenFile(filepath.Join(casesDir, prepare.CaseIndexName))
	require.NoError(t, err)
	defer idx.Close()
	link, err := idx.GetCellFormula(prepare.CaseIndexSheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, `HYPERLINK("bob/c1.xlsx","bob file")`, link)
}

func TestPrepare_NoSplitByCase(t *testing.T) {
	casesDir, imagesFile := writeCases(t)
	outDir := t.TempDir()

	out, err := execute(t,
		"--cases-dir", casesDir,
		"--images-file", imagesFile,
		"--output-dir", outDir,
		"--split-by-case",
		"--no-split-by-case",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "- Created master Excel file:")
	assert.NotContains(t, out, "case-specific files")
	assert.FileExists(t, filepath.Join(outDir, "master.csv"))
	assert.FileExists(t, filepath.Join(outDir, "master.xlsx"))
	assert.NoDirExists(t, filepath.Join(outDir, prepare.CasesDirName))
}

func TestPrepare_NoCopyImages(t *testing.T) {
	casesDir, imagesFile := writeCases(t)
	outDir := t.TempDir()

	out, err := execute(t,
		"--cases-dir", casesDir,
		"--images-file", imagesFile,
		"--output-dir", outDir,
		"--no-copy-images",
	)
	require.NoError(t, err)
	assert.NotContains(t, out, "Copied")
	assert.NoDirExists(t, filepath.Join(outDir, "annotation_images"))
}

func TestPrepare_Errors(t *testing.T) {
	_, err := execute(t, "--cases-dir", filepath.Join(t.TempDir(), "missing"), "--output-dir", t.TempDir())
	assert.ErrorIs(t, err, prepare.ErrCasesDirNotFound)

	casesDir, _ := writeCases(t)
	_, err = execute(t, "--cases-dir", casesDir, "--images-file", filepath.Join(t.TempDir(), "none.csv"), "--output-dir", t.TempDir())
	assert.ErrorContains(t, err, "images file not found")

	_, err = execute(t, "extra")
	assert.Error(t, err)
}
