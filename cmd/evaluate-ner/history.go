package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/annotation.report/internal/cli"
	"github.com/banshee-data/annotation.report/internal/config"
	"github.com/banshee-data/annotation.report/internal/db"
)

func newHistoryCmd(app *cli.App) *cobra.Command {
	var (
		path  string
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List evaluation runs recorded in the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("history-db") {
				settings, err := config.Load()
				if err != nil {
					return err
				}
				path = settings.HistoryDB
			}
			if path == "" {
				return errors.New("no history database: set --history-db or NER_HISTORY_DB")
			}

			store, err := db.Open(path, app.Logger())
			if err != nil {
				return err
			}
			defer store.Close()

			if runID != "" {
				return printRunFiles(cmd.OutOrStdout(), store, runID)
			}
			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "history-db", "", "SQLite history database (default from NER_HISTORY_DB)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list, 0 for all")
	cmd.Flags().StringVar(&runID, "run", "", "Show the per-file scores and skipped files of one run")
	return cmd
}

func f1Cell(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", *p)
}

func printRuns(out io.Writer, runs []db.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}
	fmt.Fprintf(out, "%-36s  %-20s  %-10s  %5s  %8s  %7s  %7s  %7s  %s\n",
		"RUN", "STARTED", "ANNOTATOR", "FILES", "TOKENS", "ACC", "SEQ F1", "KAPPA", "DIR")
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s  %-20s  %-10s  %5d  %8d  %7.3f  %7s  %7s  %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Annotator, r.FilesEvaluated,
			r.TotalTokens, r.TokenAccuracy, f1Cell(r.SequenceF1), f1Cell(r.Kappa), r.AnnotationDir)
	}
}

func printRunFiles(out io.Writer, store *db.Store, runID string) error {
	files, err := store.GetRunFiles(runID)
	if err != nil {
		return err
	}
	skipped, err := store.GetSkippedFiles(runID)
	if err != nil {
		return err
	}
	if len(files) == 0 && len(skipped) == 0 {
		return fmt.Errorf("run %s not found", runID)
	}

	fmt.Fprintf(out, "%-40s  %8s  %7s  %7s  %7s  %7s\n", "FILE", "TOKENS", "ACC", "F1 FLAT", "F1 BIO", "KAPPA")
	for _, f := range files {
		fmt.Fprintf(out, "%-40s  %8d  %7.3f  %7.3f  %7.3f  %7s\n",
			f.File, f.TotalTokens, f.TokenAccuracy, f.FlatWeightedF1, f.BIOWeightedF1, f1Cell(f.Kappa))
	}
	if len(skipped) > 0 {
		fmt.Fprintln(out, "\nSkipped files:")
		for _, s := range skipped {
			fmt.Fprintf(out, "  - %s: %s\n", s.File, s.Reason)
		}
	}
	return nil
}
