package fsutil

import (
	"io"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_RoundTrip(t *testing.T) {
	fsys := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "nested", "out")

	if err := fsys.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path := filepath.Join(dir, "report.md")
	if err := fsys.WriteFile(path, []byte("# report"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if !fsys.Exists(path) {
		t.Fatal("expected written file to exist")
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "# report" {
		t.Errorf("got %q", data)
	}
}

func TestMemoryFileSystem_CreateStoresOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/chart.html")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := io.WriteString(w, "<html>"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := mfs.ReadFile("/out/chart.html")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "<html>" {
		t.Errorf("got %q", data)
	}
}

func TestMemoryFileSystem_ReadMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if _, err := mfs.ReadFile("/missing"); err == nil {
		t.Fatal("expected error reading missing file")
	}
}

func TestMemoryFileSystem_MkdirAllMarksParents(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		if !mfs.Exists(p) {
			t.Errorf("expected %s to exist", p)
		}
	}
}

func TestCopyFile(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.WriteFile("/data/master.csv", []byte("case_id\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFile(mfs, "/data/master.csv", "/data/master.csv.bak"); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	got, _ := mfs.ReadFile("/data/master.csv.bak")
	if string(got) != "case_id\n" {
		t.Errorf("backup content = %q", got)
	}
	if files := mfs.Files("/data"); len(files) != 2 {
		t.Errorf("expected 2 files, got %v", files)
	}
}
