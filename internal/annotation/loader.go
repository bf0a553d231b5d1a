package annotation

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/banshee-data/annotation.report/internal/labels"
)

// Loader reads annotation workbooks using configurable sheet names.
type Loader struct {
	Logger       zerolog.Logger
	PrimarySheet string
	VocabSheet   string
	VocabColumn  string
}

// NewLoader returns a Loader with the default sheet names.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		Logger:       logger,
		PrimarySheet: DefaultPrimarySheet,
		VocabSheet:   DefaultVocabSheet,
		VocabColumn:  DefaultVocabColumn,
	}
}

// Vocabulary returns the label list from the reference sheet of the first
// file that has one. It returns nil when no file carries a vocabulary.
func (l *Loader) Vocabulary(files []string) *labels.Vocabulary {
	for _, path := range files {
		t, err := ReadTable(path, l.VocabSheet)
		if err != nil {
			l.Logger.Debug().Err(err).Str("file", filepath.Base(path)).Msg("no vocabulary sheet")
			continue
		}
		if !t.Has(l.VocabColumn) {
			l.Logger.Debug().Str("file", filepath.Base(path)).Str("column", l.VocabColumn).
				Msg("vocabulary sheet lacks label column")
			continue
		}
		vocab := labels.NewVocabulary(t.Column(l.VocabColumn))
		if vocab.Len() == 0 {
			continue
		}
		l.Logger.Info().Int("labels", vocab.Len()).Str("file", filepath.Base(path)).
			Msg("extracted label vocabulary")
		return vocab
	}
	return nil
}

// LoadPage reads the primary sheet of path and converts it to records with
// truth taken from annotator.
func (l *Loader) LoadPage(path string, annotator Annotator, vocab *labels.Vocabulary) (*Page, error) {
	t, err := ReadTable(path, l.PrimarySheet)
	if err != nil {
		return nil, err
	}
	page, err := Schema{Truth: annotator}.Page(filepath.Base(path), t, vocab)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if !page.HasBothAnnotators() {
		l.Logger.Debug().Str("file", page.File).Msg("single annotator column, agreement unavailable")
	}
	return page, nil
}
