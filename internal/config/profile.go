package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// maxProfileSize bounds profile files read from disk.
const maxProfileSize = 1 * 1024 * 1024

// Profile is an optional JSON evaluation profile. Nil fields keep the value
// from the environment so partial profiles are safe.
type Profile struct {
	PrimarySheet   *string  `json:"primary_sheet,omitempty"`
	VocabSheet     *string  `json:"vocab_sheet,omitempty"`
	VocabColumn    *string  `json:"vocab_column,omitempty"`
	Workers        *int     `json:"workers,omitempty"`
	SequenceScorer *string  `json:"sequence_scorer,omitempty"`
	TopConfusions  *int     `json:"top_confusions,omitempty"`
	TopConfused    *int     `json:"top_confused,omitempty"`
	Labels         []string `json:"labels,omitempty"`
}

// LoadProfile reads a profile from a .json file of at most 1MB.
func LoadProfile(path string) (*Profile, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("profile must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat profile: %w", err)
	}
	if info.Size() > maxProfileSize {
		return nil, fmt.Errorf("profile too large: %d bytes (max %d)", info.Size(), maxProfileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	p := &Profile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

// Validate checks the values that are set.
func (p *Profile) Validate() error {
	if p.Workers != nil && *p.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *p.Workers)
	}
	if p.TopConfusions != nil && *p.TopConfusions < 1 {
		return fmt.Errorf("top_confusions must be positive, got %d", *p.TopConfusions)
	}
	if p.TopConfused != nil && *p.TopConfused < 1 {
		return fmt.Errorf("top_confused must be positive, got %d", *p.TopConfused)
	}
	if p.PrimarySheet != nil && *p.PrimarySheet == "" {
		return fmt.Errorf("primary_sheet must not be empty")
	}
	return nil
}

// Apply copies the set fields of p over s. A nil profile changes nothing.
func (p *Profile) Apply(s *Settings) {
	if p == nil {
		return
	}
	if p.PrimarySheet != nil {
		s.PrimarySheet = *p.PrimarySheet
	}
	if p.VocabSheet != nil {
		s.VocabSheet = *p.VocabSheet
	}
	if p.VocabColumn != nil {
		s.VocabColumn = *p.VocabColumn
	}
	if p.Workers != nil {
		s.Workers = *p.Workers
	}
	if p.SequenceScorer != nil {
		s.SequenceScorer = *p.SequenceScorer
	}
}

// GetTopConfusions returns top_confusions or 20.
func (p *Profile) GetTopConfusions() int {
	if p == nil || p.TopConfusions == nil {
		return 20
	}
	return *p.TopConfusions
}

// GetTopConfused returns top_confused or 10.
func (p *Profile) GetTopConfused() int {
	if p == nil || p.TopConfused == nil {
		return 10
	}
	return *p.TopConfused
}
