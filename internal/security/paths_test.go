package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	safe := t.TempDir()
	outside := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in dir", filepath.Join(safe, "report.md"), false},
		{"nested new file", filepath.Join(safe, "a", "b", "report.md"), false},
		{"dir itself", safe, false},
		{"parent escape", filepath.Join(safe, "..", "x.md"), true},
		{"other dir", filepath.Join(outside, "x.md"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, safe)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePathWithinDirectory_Symlink(t *testing.T) {
	safe := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(safe, "evil")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(link, "new.md"), safe); err == nil {
		t.Error("expected symlinked parent to be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"ner_evaluation_report": "ner_evaluation_report",
		"../../etc/passwd":      "etc_passwd",
		"weekly report (v2)":    "weekly_report_v2",
		"":                      "unknown",
		"...":                   "unknown",
		"a__b":                  "a__b",
		"rapport-été":           "rapport-_t",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeFilename(string(long)); len(got) != maxFilenameLen {
		t.Errorf("len = %d, want %d", len(got), maxFilenameLen)
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	p, err := OutputPath(dir, "../report.md")
	if err != nil {
		t.Fatalf("OutputPath failed: %v", err)
	}
	if filepath.Dir(p) != dir {
		t.Errorf("path %q escaped %q", p, dir)
	}
}
