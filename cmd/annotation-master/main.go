// Command annotation-master records annotator progress in the master file
// and reports completion per annotator, per case and per workbook.
package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/banshee-data/annotation.report/internal/annotation"
	"github.com/banshee-data/annotation.report/internal/cli"
	"github.com/banshee-data/annotation.report/internal/config"
	"github.com/banshee-data/annotation.report/internal/fsutil"
	"github.com/banshee-data/annotation.report/internal/master"
	"github.com/banshee-data/annotation.report/internal/report"
)

func main() {
	cli.Main(newRootCmd(&cli.App{}))
}

type state struct {
	app        *cli.App
	fs         fsutil.FileSystem
	masterFile string
}

func newRootCmd(app *cli.App) *cobra.Command {
	st := &state{app: app, fs: fsutil.OSFileSystem{}}
	cmd := app.NewRoot("annotation-master", "Update and report on the annotation master file")
	cmd.PersistentFlags().StringVar(&st.masterFile, "master-file", filepath.Join("data", "master.csv"), "Path to the master CSV file")

	cmd.AddCommand(
		newFromFileCmd(st),
		newSpecificCmd(st),
		newReportCmd(st),
		newStatusCmd(st),
	)
	return cmd
}

// save writes f back to the master file and reports the backup copy.
func (st *state) save(out io.Writer, logger zerolog.Logger, f *master.File) error {
	backup, err := master.Save(st.fs, st.masterFile, f)
	if err != nil {
		return err
	}
	if backup != "" {
		fmt.Fprintf(out, "Created backup: %s\n", backup)
		logger.Debug().Str("backup", backup).Msg("master file backed up")
	}
	return nil
}

func newFromFileCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "from-file UPDATE_FILE",
		Short: "Apply status updates listed in a CSV file",
		Long: `Apply status updates from a CSV with case_id, page_id (or image_id) and
status columns. An optional annotator column limits an update to one
assignee; without it both assignments of the page are updated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := st.app.Logger()
			f, err := master.Load(st.fs, st.masterFile)
			if err != nil {
				return err
			}
			updates, err := master.LoadUpdates(st.fs, args[0])
			if err != nil {
				return err
			}

			res := master.ApplyUpdates(f, updates)
			for _, u := range res.Invalid {
				logger.Warn().
					Str("case", u.CaseID).
					Str("page", u.PageID).
					Str("status", u.Status).
					Msg("invalid status, must be 'yes' or 'no'; skipping")
			}

			out := cmd.OutOrStdout()
			if err := st.save(out, logger, f); err != nil {
				return err
			}
			fmt.Fprintf(out, "Applied %d updates to %s\n", res.Applied, st.masterFile)
			return nil
		},
	}
}

func newSpecificCmd(st *state) *cobra.Command {
	var (
		filter master.Filter
		status string
	)
	cmd := &cobra.Command{
		Use:   "specific",
		Short: "Set the status of the entries matching case, page and annotator filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := st.app.Logger()
			f, err := master.Load(st.fs, st.masterFile)
			if err != nil {
				return err
			}
			n, err := master.UpdateMatching(f, filter, status)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := st.save(out, logger, f); err != nil {
				return err
			}
			fmt.Fprintf(out, "Updated %d entries in %s\n", n, st.masterFile)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVar(&filter.CaseIDs, "case-ids", nil, "Case IDs to update")
	fl.StringSliceVar(&filter.PageIDs, "page-ids", nil, "Page IDs to update")
	fl.StringSliceVar(&filter.PageIDs, "image-ids", nil, "Alias for --page-ids")
	fl.StringSliceVar(&filter.Annotators, "annotators", nil, "Annotators to update")
	fl.StringVar(&status, "status", master.StatusYes, "Completion status: yes or no")
	_ = fl.MarkHidden("image-ids")
	return cmd
}

func newReportCmd(st *state) *cobra.Command {
	var annotator string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print completion progress from the master file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := master.Load(st.fs, st.masterFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if annotator != "" {
				fmt.Fprint(out, report.RenderAssignments(annotator, master.AnnotatorReport(f, annotator)))
				return nil
			}
			fmt.Fprint(out, report.RenderProgress(master.ProgressReport(f)))
			return nil
		},
	}
	cmd.Flags().StringVar(&annotator, "annotator", "", "List the assignments of one annotator")
	return cmd
}

func newStatusCmd(st *state) *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "status ANNOTATION_DIR",
		Short: "Count filled annotator labels in every workbook of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("sheet") {
				settings, err := config.Load()
				if err != nil {
					return err
				}
				sheet = settings.PrimarySheet
			}
			rep, err := annotation.DirectoryCompletion(args[0], sheet)
			if err != nil {
				return err
			}
			if len(rep.Failed) > 0 {
				st.app.Logger().Warn().Int("files", len(rep.Failed)).Msg("some workbooks could not be read")
			}
			fmt.Fprint(cmd.OutOrStdout(), report.RenderCompletion(rep))
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", annotation.DefaultPrimarySheet, "Sheet holding the annotation rows (default from NER_PRIMARY_SHEET)")
	return cmd
}
