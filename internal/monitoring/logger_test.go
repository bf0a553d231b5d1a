package monitoring

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name           string
		verbose, quiet bool
		want           zerolog.Level
	}{
		{"default", false, false, zerolog.InfoLevel},
		{"verbose", true, false, zerolog.DebugLevel},
		{"quiet", false, true, zerolog.WarnLevel},
		{"both", true, true, zerolog.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if got := NewLogger(&buf, tt.verbose, tt.quiet).GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLogger_ConflictWarns(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, true, true)
	if !strings.Contains(buf.String(), "using --verbose") {
		t.Errorf("log %q does not mention --verbose", buf.String())
	}
}

func TestNewLogger_QuietDropsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, false, true)
	logger.Info().Msg("loaded files")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote info: %q", buf.String())
	}

	logger.Warn().Msg("file skipped")
	if !strings.Contains(buf.String(), "file skipped") {
		t.Errorf("warning missing from %q", buf.String())
	}
}
