// Command update-predictions decodes model predictions with the standard
// label vocabulary and pre-fills empty annotator columns.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/annotation.report/internal/cleanup"
	"github.com/banshee-data/annotation.report/internal/cli"
	"github.com/banshee-data/annotation.report/internal/config"
	"github.com/banshee-data/annotation.report/internal/labels"
	"github.com/banshee-data/annotation.report/internal/report"
)

const defaultReportName = "annotation_update_report.md"

func main() {
	cli.Main(newRootCmd(&cli.App{}))
}

func newRootCmd(app *cli.App) *cobra.Command {
	var (
		noBackup   bool
		outputDir  string
		reportName string
	)
	cmd := app.NewRoot("update-predictions ANNOTATION_DIR", "Fill annotator columns from decoded model predictions")
	cmd.Args = cobra.ExactArgs(1)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		logger := app.Logger()

		settings, err := config.Load()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("output-dir") {
			outputDir = settings.OutputDir
		}

		opts := cleanup.DefaultOptions()
		opts.Sheet = settings.PrimarySheet
		opts.Backup = !noBackup
		if noBackup {
			logger.Warn().Msg("backups disabled, files are rewritten without a copy")
		}

		vocab := labels.Standard()
		res, err := cleanup.New(logger, opts).Update(args[0], vocab)
		if err != nil {
			return err
		}
		path, err := report.NewWriter(logger, outputDir).WriteText(reportName, report.RenderUpdate(res, vocab))
		if err != nil {
			return err
		}

		s := res.Summary
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "\n=== Annotation Update Complete ===")
		fmt.Fprintf(out, "Files processed: %d\n", s.FilesProcessed)
		fmt.Fprintf(out, "Files successful: %d\n", s.FilesSuccessful)
		fmt.Fprintf(out, "Predictions decoded: %s\n", report.Count(s.PredsDecoded))
		fmt.Fprintf(out, "Annotator1 labels filled: %s\n", report.Count(s.Annotator1Filled))
		fmt.Fprintf(out, "Annotator2 labels filled: %s\n", report.Count(s.Annotator2Filled))
		fmt.Fprintf(out, "Duplicates removed: %s\n", report.Count(s.DuplicatesRemoved))
		fmt.Fprintf(out, "Update report: %s\n", path)
		return nil
	}

	f := cmd.Flags()
	f.BoolVar(&noBackup, "no-backup", false, "Skip creating backup files (not recommended)")
	f.StringVar(&outputDir, "output-dir", "", "Directory for the update report (default from NER_OUTPUT_DIR, else reports)")
	f.StringVar(&reportName, "report", defaultReportName, "Report file name")
	return cmd
}
