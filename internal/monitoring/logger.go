// Package monitoring builds the process logger and exports run metrics.
package monitoring

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a console logger writing to out. The level is Info by
// default, Debug with verbose and Warn with quiet. When both flags are set
// verbose wins and a warning is logged.
func NewLogger(out io.Writer, verbose, quiet bool) zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case verbose:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.WarnLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	if verbose && quiet {
		logger.Warn().Msg("both --verbose and --quiet specified; using --verbose")
	}
	return logger
}
