package annotation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/annotation.report/internal/fsutil"
	"github.com/banshee-data/annotation.report/internal/labels"
	"github.com/banshee-data/annotation.report/internal/testutil"
)

func TestParseAnnotator(t *testing.T) {
	a, err := ParseAnnotator("annotator2")
	require.NoError(t, err)
	assert.Equal(t, Annotator2, a)
	assert.Equal(t, "annotator2_label", a.Column())
	assert.Equal(t, Annotator1, a.Other())

	_, err = ParseAnnotator("annotator3")
	assert.True(t, errors.Is(err, ErrInvalidAnnotator))
}

func TestTable_SetAndAddColumn(t *testing.T) {
	tbl := NewTable("Annotation", "words", "pred")
	tbl.Rows = [][]string{{"a", "1"}, {"b"}}

	assert.Equal(t, "", tbl.Cell(1, "pred"))
	require.NoError(t, tbl.Set(1, "pred", "2"))
	assert.Equal(t, "2", tbl.Cell(1, "pred"))

	idx := tbl.AddColumn("annotator1_label")
	assert.Equal(t, 2, idx)
	assert.Equal(t, idx, tbl.AddColumn("annotator1_label"))
	assert.Len(t, tbl.Rows[0], 3)

	err := tbl.Set(0, "missing", "x")
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestSchema_ValidateMissingColumns(t *testing.T) {
	tbl := NewTable("Annotation", "words", "annotator2_label")
	err := Schema{Truth: Annotator1}.Validate(tbl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "pred")
	assert.Contains(t, err.Error(), "annotator1_label")
}

func TestSchema_PageDerivesLabels(t *testing.T) {
	tbl := NewTable("Annotation", "words", "pred", "prob", "annotator1_label", "annotator2_label")
	tbl.Rows = [][]string{
		{"12", "3", "0.9", "ADDRESS", "ADDRESS"},
		{"Main", "4", "0.8", "ADDRESS", ""},
		{"St", "4", "bad", "", "ADDRESS"},
		{"$5", "", "0.7", "MONEY", "MONEY"},
	}
	vocab := labels.NewVocabulary([]string{"O", "B-PER", "I-PER", "B-ADDRESS", "I-ADDRESS"})

	page, err := Schema{Truth: Annotator1}.Page("p1.xlsx", tbl, vocab)
	require.NoError(t, err)
	require.Len(t, page.Records, 4)
	assert.True(t, page.HasBothAnnotators())

	r := page.Records
	assert.Equal(t, []string{"B-ADDRESS", "I-ADDRESS", "I-ADDRESS", "UNK"},
		[]string{r[0].Pred, r[1].Pred, r[2].Pred, r[3].Pred})
	assert.Equal(t, "ADDRESS", r[0].PredFlat)
	assert.Equal(t, "UNK", r[3].PredFlat)

	// The third row has no truth label, so it leaves the flat metrics but
	// still breaks the BIO span.
	assert.Equal(t, []string{"ADDRESS", "ADDRESS", "", "MONEY"},
		[]string{r[0].TruthFlat, r[1].TruthFlat, r[2].TruthFlat, r[3].TruthFlat})
	assert.Equal(t, []string{"B-ADDRESS", "I-ADDRESS", "O", "B-MONEY"},
		[]string{r[0].TruthBIO, r[1].TruthBIO, r[2].TruthBIO, r[3].TruthBIO})
	assert.False(t, r[2].FlatValid())
	assert.True(t, r[2].BIOValid())

	assert.True(t, r[0].HasProb)
	assert.False(t, r[2].HasProb)
	assert.True(t, r[0].BothAnnotated())
	assert.False(t, r[1].BothAnnotated())
	assert.Equal(t, 2, r[0].Row)
}

func TestSchema_PageWithoutVocabulary(t *testing.T) {
	tbl := NewTable("Annotation", "pred", "annotator1_label")
	tbl.Rows = [][]string{{"B-PER", "PER"}, {"nan", "O"}}

	page, err := Schema{Truth: Annotator1}.Page("p.xlsx", tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, "B-PER", page.Records[0].Pred)
	assert.Equal(t, "", page.Records[1].Pred)
	assert.Equal(t, "O", page.Records[1].PredFlat)
	assert.False(t, page.Records[1].BIOValid())
	assert.False(t, page.HasBothAnnotators())
}

func TestParseBBox(t *testing.T) {
	bb, err := ParseBBox("(10, 20.5, 30, 40)")
	require.NoError(t, err)
	assert.Equal(t, [4]float64{10, 20.5, 30, 40}, bb)

	_, err = ParseBBox("(1, 2, 3)")
	assert.Error(t, err)
	_, err = ParseBBox("(a, 2, 3, 4)")
	assert.Error(t, err)
}

func TestWorkbookRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.xlsx")

	primary := NewTable(DefaultPrimarySheet, "words", "pred", "prob", "page_id")
	primary.Rows = [][]string{
		{"Total", "9", "0.75", "007"},
		{"", "", "", ""},
		{"42.50", "0", "1", "008"},
	}
	vocab := NewTable(DefaultVocabSheet, DefaultVocabColumn)
	vocab.Rows = [][]string{{"O"}, {"B-MONEY"}}

	require.NoError(t, WriteWorkbook(path, &Workbook{Sheets: []*Table{primary, vocab}}))

	wb, err := ReadWorkbook(path)
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 2)

	got := wb.Sheet(DefaultPrimarySheet)
	require.NotNil(t, got)
	want := [][]string{
		{"Total", "9", "0.75", "007"},
		{"42.5", "0", "1", "008"},
	}
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"O", "B-MONEY"}, wb.Sheet(DefaultVocabSheet).Column(DefaultVocabColumn))
}

func TestReadTable_MissingSheet(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteWorkbook(t, dir, "p.xlsx", testutil.AnnotationSheet(testutil.Token{Word: "a", Pred: 0}))

	_, err := ReadTable(path, "Validation")
	assert.True(t, errors.Is(err, ErrSheetNotFound))
}

func TestListFilesSkipsLockAndBackup(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.xlsx", "a.xlsx", "~$a.xlsx", "a_backup.xlsx", "notes.txt", "C.XLSX"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.xlsx"), 0755))

	files, err := ListFiles(dir)
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{"C.XLSX", "a.xlsx", "b.xlsx"}, names)

	_, err = ListFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestListFilesRecursive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "c1", "deep"), 0755))
	for _, name := range []string{"a.xlsx", "c1/b.xlsx", "c1/deep/c.xlsx", "c1/~$b.xlsx", "c1/b_backup.xlsx", "c1/notes.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	files, err := ListFilesRecursive(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.xlsx"),
		filepath.Join(dir, "c1", "b.xlsx"),
		filepath.Join(dir, "c1", "deep", "c.xlsx"),
	}, files)

	_, err = ListFilesRecursive(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestBackup(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/ann/page_1.xlsx", []byte("xlsx"), 0644))

	dst, err := Backup(mfs, "/ann/page_1.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "/ann/page_1_backup.xlsx", dst)
	assert.True(t, IsBackup(dst))

	data, err := mfs.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", string(data))
}

func TestDedupeTopK(t *testing.T) {
	tbl := NewTable("Annotation", "image_id", "words", "pred", "prob")
	tbl.Rows = [][]string{
		{"p1", "Total", "0", "0.2"},
		{"p1", "Total", "9", "0.7"},
		{"p1", "$5", "10", "0.6"},
		{"p1", "Total", "3", "0.7"},
		{"p1", "$5", "9", "oops"},
	}

	out, stats := DedupeTopK(tbl)
	assert.Equal(t, []string{"image_id", "words"}, stats.Keys)
	assert.Equal(t, 3, stats.Removed)
	assert.Empty(t, stats.Skipped)
	want := [][]string{
		{"p1", "Total", "9", "0.7"},
		{"p1", "$5", "10", "0.6"},
	}
	if diff := cmp.Diff(want, out.Rows); diff != "" {
		t.Errorf("dedupe mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, tbl.Len(), "input must not be modified")
}

func TestDedupeTopK_SkipsWithoutColumns(t *testing.T) {
	noKeys := NewTable("Annotation", "pred", "prob")
	_, stats := DedupeTopK(noKeys)
	assert.Equal(t, "no key columns found", stats.Skipped)

	noProb := NewTable("Annotation", "words", "pred")
	_, stats = DedupeTopK(noProb)
	assert.Equal(t, "no prob column found", stats.Skipped)
}

func TestDropDuplicates_IgnoresLabelColumns(t *testing.T) {
	tbl := NewTable("Annotation", "words", "pred", "annotator1_label")
	tbl.Rows = [][]string{
		{"a", "1", "PER"},
		{"a", "1", "ORG"},
		{"b", "1", ""},
	}
	out, removed := DropDuplicates(tbl, nil)
	assert.Equal(t, 1, removed)
	assert.Equal(t, [][]string{{"a", "1", "PER"}, {"b", "1", ""}}, out.Rows)

	_, removed = DropDuplicates(tbl, []string{"nope"})
	assert.Equal(t, 0, removed)
}

func TestStandardiseAnnotator(t *testing.T) {
	t.Run("fills gaps from other annotator", func(t *testing.T) {
		tbl := NewTable("Annotation", "words", "annotator1_label", "annotator2_label")
		tbl.Rows = [][]string{{"a", "", "PER"}, {"b", "ORG", "LOC"}, {"c", "nan", ""}}

		out, changed := StandardiseAnnotator(tbl, Annotator1)
		assert.Equal(t, 1, changed)
		assert.Equal(t, []string{"PER", "ORG", "nan"}, out.Column("annotator1_label"))
	})

	t.Run("copies missing column", func(t *testing.T) {
		tbl := NewTable("Annotation", "words", "annotator1_label")
		tbl.Rows = [][]string{{"a", "PER"}, {"b", ""}}

		out, changed := StandardiseAnnotator(tbl, Annotator2)
		assert.Equal(t, 2, changed)
		assert.Equal(t, []string{"PER", ""}, out.Column("annotator2_label"))
	})

	t.Run("creates empty column", func(t *testing.T) {
		tbl := NewTable("Annotation", "words")
		tbl.Rows = [][]string{{"a"}}

		out, changed := StandardiseAnnotator(tbl, Annotator1)
		assert.Equal(t, 0, changed)
		assert.True(t, out.Has("annotator1_label"))
	})
}

func TestFillFromPredictions(t *testing.T) {
	tbl := NewTable("Annotation", "words", "pred", "annotator1_label")
	tbl.Rows = [][]string{
		{"John", "1", ""},
		{"Smith", "2", "I-PER"},
		{"x", "", "nan"},
		{"y", "99", ""},
	}

	out, stats := FillFromPredictions(tbl, labels.Standard())
	assert.Equal(t, 4, stats.Decoded)
	assert.Equal(t, 3, stats.Annotator1Fill)
	assert.Equal(t, 4, stats.Annotator2Fill)
	assert.Equal(t, []string{"B-PER", "I-PER", "O", "UNK_99"}, out.Column("annotator1_label"))
	assert.Equal(t, []string{"B-PER", "I-PER", "O", "UNK_99"}, out.Column("annotator2_label"))
}

func TestCompletionStatus(t *testing.T) {
	tbl := NewTable("Annotation", "words", "annotator1_label", "annotator2_label")
	tbl.Rows = [][]string{{"a", "PER", ""}, {"b", "O", "nan"}, {"c", " ", "ORG"}, {"d", "", ""}}

	c := CompletionStatus("p.xlsx", tbl)
	assert.Equal(t, Completion{File: "p.xlsx", Rows: 4, Annotator1: 2, Annotator2: 1}, c)
	assert.InDelta(t, 50.0, c.Percent(c.Annotator1), 1e-9)

	var total Completion
	total.Add(c)
	total.Add(c)
	assert.Equal(t, 8, total.Rows)
	assert.Equal(t, 0.0, Completion{}.Percent(3))
}

func TestDirectoryCompletion(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWorkbook(t, dir, "a.xlsx", testutil.AnnotationSheet(
		testutil.Token{Word: "John", Pred: 1, Annotator1: "PER", Annotator2: "PER"},
		testutil.Token{Word: "went", Pred: 0, Annotator1: "O"},
	))
	testutil.WriteWorkbook(t, dir, "b.xlsx", testutil.VocabSheet("O"))
	testutil.WriteWorkbook(t, dir, "a_backup.xlsx", testutil.AnnotationSheet(testutil.Token{Word: "x"}))

	rep, err := DirectoryCompletion(dir, DefaultPrimarySheet)
	require.NoError(t, err)
	require.Len(t, rep.Files, 1)
	assert.Equal(t, Completion{File: "a.xlsx", Rows: 2, Annotator1: 2, Annotator2: 1}, rep.Files[0])
	assert.Equal(t, 2, rep.Total.Rows)
	assert.Contains(t, rep.Failed, "b.xlsx")

	_, err = DirectoryCompletion(filepath.Join(dir, "missing"), DefaultPrimarySheet)
	assert.Error(t, err)
}

func TestLoader_VocabularyAndPage(t *testing.T) {
	dir := t.TempDir()
	noVocab := testutil.WriteWorkbook(t, dir, "a.xlsx",
		testutil.AnnotationSheet(testutil.Token{Word: "x", Pred: 0, Annotator1: "O"}))
	withVocab := testutil.WriteWorkbook(t, dir, "b.xlsx",
		testutil.AnnotationSheet(
			testutil.Token{Word: "John", Pred: 1, Prob: 0.9, Annotator1: "PER", Annotator2: "PER"},
			testutil.Token{Word: "Smith", Pred: 2, Prob: 0.8, Annotator1: "PER"},
		),
		testutil.VocabSheet("O", "B-PER", "I-PER"),
	)

	l := NewLoader(zerolog.Nop())
	vocab := l.Vocabulary([]string{noVocab, withVocab})
	require.NotNil(t, vocab)
	assert.Equal(t, []string{"O", "B-PER", "I-PER"}, vocab.Tags())

	page, err := l.LoadPage(withVocab, Annotator1, vocab)
	require.NoError(t, err)
	assert.Equal(t, "b.xlsx", page.File)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "B-PER", page.Records[0].Pred)
	assert.Equal(t, "I-PER", page.Records[1].TruthBIO)
	assert.True(t, page.HasBothAnnotators())

	assert.Nil(t, l.Vocabulary([]string{noVocab}))
}

func TestLoader_LoadPageMissingTruthColumn(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteWorkbook(t, dir, "p.xlsx", testutil.Sheet{
		Name:   DefaultPrimarySheet,
		Header: []string{"words", "pred", "annotator2_label"},
		Rows:   [][]interface{}{{"a", 0, "O"}},
	})

	_, err := NewLoader(zerolog.Nop()).LoadPage(path, Annotator1, nil)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}
