// Package cli holds the flag and logger wiring shared by the command-line
// tools.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/banshee-data/annotation.report/internal/monitoring"
	"github.com/banshee-data/annotation.report/internal/version"
)

// App carries the flags every tool accepts.
type App struct {
	Verbose bool
	Quiet   bool
	// LogOutput receives log lines. Nil means stderr.
	LogOutput io.Writer
}

// NewRoot returns a root command with --verbose, --quiet and --version.
func (a *App) NewRoot(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&a.Verbose, "verbose", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&a.Quiet, "quiet", false, "Reduce output to warnings and errors only")
	return cmd
}

// Logger builds the process logger from the parsed flags.
func (a *App) Logger() zerolog.Logger {
	out := a.LogOutput
	if out == nil {
		out = os.Stderr
	}
	return monitoring.NewLogger(out, a.Verbose, a.Quiet)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Main runs cmd and exits with status 1 on error.
func Main(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
