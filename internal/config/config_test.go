package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"NER_OUTPUT_DIR", "NER_WORKERS", "NER_CHARTS", "NER_HISTORY_DB"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.OutputDir != "reports" {
		t.Errorf("OutputDir = %q, want reports", s.OutputDir)
	}
	if s.ReportName != "ner_evaluation_report" {
		t.Errorf("ReportName = %q", s.ReportName)
	}
	if s.Workers != 1 || s.Charts || s.HistoryDB != "" {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if s.PrimarySheet != "Annotation" || s.VocabSheet != "Validation" || s.VocabColumn != "Label Options" {
		t.Errorf("unexpected sheet defaults: %+v", s)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NER_WORKERS", "4")
	t.Setenv("NER_CHARTS", "true")
	t.Setenv("NER_SEQUENCE_SCORER", "token")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Workers != 4 || !s.Charts || s.SequenceScorer != "token" {
		t.Errorf("env not applied: %+v", s)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("NER_REPORT_NAME", "")
	os.Unsetenv("NER_REPORT_NAME")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("NER_REPORT_NAME=weekly\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.ReportName != "weekly" {
		t.Errorf("ReportName = %q, want weekly", s.ReportName)
	}
}

func TestLoad_InvalidWorkers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NER_WORKERS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero workers")
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	data := `{"vocab_sheet": "Labels", "workers": 3, "top_confusions": 5, "labels": ["O", "B-PER"]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if p.GetTopConfusions() != 5 || p.GetTopConfused() != 10 {
		t.Errorf("top-N = %d/%d", p.GetTopConfusions(), p.GetTopConfused())
	}
	if len(p.Labels) != 2 {
		t.Errorf("Labels = %v", p.Labels)
	}

	s := &Settings{PrimarySheet: "Annotation", VocabSheet: "Validation", Workers: 1}
	p.Apply(s)
	if s.VocabSheet != "Labels" || s.Workers != 3 || s.PrimarySheet != "Annotation" {
		t.Errorf("Apply result: %+v", s)
	}

	var nilProfile *Profile
	nilProfile.Apply(s)
	if nilProfile.GetTopConfusions() != 20 {
		t.Error("nil profile should return defaults")
	}
}

func TestLoadProfile_Rejects(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadProfile(filepath.Join(dir, "profile.yaml")); err == nil ||
		!strings.Contains(err.Error(), ".json") {
		t.Errorf("expected extension error, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"workers": 0}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProfile(bad); err == nil {
		t.Error("expected validation error")
	}

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`{`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProfile(broken); err == nil {
		t.Error("expected parse error")
	}

	big := filepath.Join(dir, "big.json")
	if err := os.WriteFile(big, make([]byte, maxProfileSize+1), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProfile(big); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}

	if _, err := LoadProfile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected stat error")
	}
}
