// Package config loads evaluation settings from the environment, an
// optional .env file and an optional JSON profile.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings holds the environment-level defaults shared by the binaries.
// Command-line flags override these.
type Settings struct {
	OutputDir      string `env:"NER_OUTPUT_DIR" envDefault:"reports"`
	ReportName     string `env:"NER_REPORT_NAME" envDefault:"ner_evaluation_report"`
	Workers        int    `env:"NER_WORKERS" envDefault:"1"`
	PrimarySheet   string `env:"NER_PRIMARY_SHEET" envDefault:"Annotation"`
	VocabSheet     string `env:"NER_VOCAB_SHEET" envDefault:"Validation"`
	VocabColumn    string `env:"NER_VOCAB_COLUMN" envDefault:"Label Options"`
	HistoryDB      string `env:"NER_HISTORY_DB"`
	MetricsFile    string `env:"NER_METRICS_FILE"`
	SequenceScorer string `env:"NER_SEQUENCE_SCORER" envDefault:"span"`
	Charts         bool   `env:"NER_CHARTS" envDefault:"false"`
}

// Load reads a .env file from the working directory if one exists, then
// parses the environment.
func Load() (*Settings, error) {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	s := &Settings{}
	if err := env.Parse(s); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects settings no run could use.
func (s *Settings) Validate() error {
	if s.Workers < 1 {
		return fmt.Errorf("NER_WORKERS must be at least 1, got %d", s.Workers)
	}
	if s.PrimarySheet == "" {
		return fmt.Errorf("NER_PRIMARY_SHEET must not be empty")
	}
	return nil
}
