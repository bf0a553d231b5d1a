// Command cleanup-annotations removes duplicate rows and standardises the
// ground-truth annotator column of every workbook in a directory.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/annotation.report/internal/annotation"
	"github.com/banshee-data/annotation.report/internal/cleanup"
	"github.com/banshee-data/annotation.report/internal/cli"
	"github.com/banshee-data/annotation.report/internal/config"
	"github.com/banshee-data/annotation.report/internal/report"
)

func main() {
	cli.Main(newRootCmd(&cli.App{}))
}

func newRootCmd(app *cli.App) *cobra.Command {
	var (
		target     string
		noDedupe   bool
		noBackup   bool
		outputDir  string
		reportName string
	)
	cmd := app.NewRoot("cleanup-annotations ANNOTATION_DIR", "Clean up annotation workbooks in place")
	cmd.Args = cobra.ExactArgs(1)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		logger := app.Logger()

		annotator, err := annotation.ParseAnnotator(target)
		if err != nil {
			return err
		}
		settings, err := config.Load()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("output-dir") {
			outputDir = settings.OutputDir
		}
		if reportName == "" {
			reportName = fmt.Sprintf("cleanup_report_%s.md", annotator)
		}

		opts := cleanup.DefaultOptions()
		opts.Sheet = settings.PrimarySheet
		opts.Target = annotator
		opts.Dedupe = !noDedupe
		opts.Backup = !noBackup
		if noBackup {
			logger.Warn().Msg("backups disabled, files are rewritten without a copy")
		}

		res, err := cleanup.New(logger, opts).Clean(args[0])
		if err != nil {
			return err
		}
		path, err := report.NewWriter(logger, outputDir).WriteText(reportName, report.RenderCleanup(res))
		if err != nil {
			return err
		}

		s := res.Summary
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "\n=== Annotation Cleanup Complete ===")
		fmt.Fprintf(out, "Target annotator: %s\n", annotator)
		fmt.Fprintf(out, "Files processed: %d\n", s.FilesProcessed)
		fmt.Fprintf(out, "Files successful: %d\n", s.FilesSuccessful)
		fmt.Fprintf(out, "Total duplicates removed: %s\n", report.Count(s.DuplicatesRemoved))
		fmt.Fprintf(out, "Cleanup report: %s\n", path)
		return nil
	}

	f := cmd.Flags()
	f.StringVar(&target, "target-annotator", string(annotation.Annotator1), "Annotator column to standardise (annotator1 or annotator2)")
	f.BoolVar(&noDedupe, "no-dedupe", false, "Keep duplicate rows")
	f.BoolVar(&noBackup, "no-backup", false, "Skip creating backup files (not recommended)")
	f.StringVar(&outputDir, "output-dir", "", "Directory for the cleanup report (default from NER_OUTPUT_DIR, else reports)")
	f.StringVar(&reportName, "report", "", "Report file name (default cleanup_report_<annotator>.md)")
	return cmd
}
