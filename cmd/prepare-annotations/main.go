// Command prepare-annotations builds per-page label workbooks from model
// predictions, copies the page images alongside and writes the master file
// that assigns each page to the annotators, optionally split into one
// workbook per case and annotator.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/annotation.report/internal/cli"
	"github.com/banshee-data/annotation.report/internal/prepare"
)

func main() {
	cli.Main(newRootCmd(&cli.App{}))
}

func newRootCmd(app *cli.App) *cobra.Command {
	opts := prepare.DefaultOptions()
	var (
		imagesFile string
		outputDir  string
		noCopy     bool
		split      bool
		noSplit    bool
	)
	cmd := app.NewRoot("prepare-annotations", "Prepare annotation files and tracking data")
	cmd.Args = cobra.NoArgs
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		logger := app.Logger()

		o := opts
		o.CopyImages = !noCopy
		o.SplitByCase = split && !noSplit
		o = o.WithOutputDir(outputDir)
		if outputDir != "" {
			logger.Debug().Str("dir", outputDir).Str("labels", o.LabelsDir).Str("master", o.MasterFile).Msg("using output directory")
		}

		ctx, stop := cli.SignalContext(cmd.Context())
		defer stop()

		res, err := prepare.New(logger, o).Run(ctx, imagesFile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "\nAnnotation preparation complete!")
		if o.CopyImages {
			fmt.Fprintf(out, "- Copied %d image files to %s\n", len(res.Copied), o.ImagesDir)
		}
		fmt.Fprintf(out, "- Generated %d annotation files in %s\n", len(res.Generated), o.LabelsDir)
		fmt.Fprintf(out, "- Created master tracking file: %s\n", res.MasterFile)
		fmt.Fprintf(out, "- Created master Excel file: %s\n", res.MasterWorkbook)
		if res.MasterBackup != "" {
			fmt.Fprintf(out, "- Previous master file kept at: %s\n", res.MasterBackup)
		}
		if res.CaseIndex != "" {
			fmt.Fprintf(out, "- Created case-specific files in: %s/\n", res.CasesDir)
			fmt.Fprintf(out, "- Created case index file: %s\n", res.CaseIndex)
		}
		fmt.Fprintf(out, "- Images path in master file: %s\\annotation_images\\\n", o.NetworkShare)
		fmt.Fprintf(out, "- Labels path in master file: %s\\annotation_labels\\\n", o.NetworkShare)
		if len(res.Failures) > 0 {
			fmt.Fprintf(out, "\nWarning: %d images from %s were not prepared:\n", len(res.Failures), imagesFile)
			for _, f := range res.Failures {
				fmt.Fprintf(out, "  - %s/%s: %s\n", f.CaseID, f.PageID, f.Reason)
			}
		}
		return nil
	}

	f := cmd.Flags()
	f.StringVar(&opts.CasesDir, "cases-dir", opts.CasesDir, "Directory containing the case structure")
	f.StringVar(&opts.LabelsDir, "labels-dir", opts.LabelsDir, "Directory for the generated annotation files, relative to --output-dir when set")
	f.StringVar(&opts.ImagesDir, "images-dir", opts.ImagesDir, "Directory for copied images, relative to --output-dir when set")
	f.StringVar(&imagesFile, "images-file", "data/annotation_images.csv", "CSV file listing the case_id and page_id of each image to annotate")
	f.StringVar(&outputDir, "output-dir", "", "Directory for all generated files")
	f.StringVar(&opts.MasterFile, "master-file", opts.MasterFile, "Master tracking CSV, placed in --output-dir by base name when set")
	f.StringVar(&opts.NetworkShare, "network-share", opts.NetworkShare, "Network share prefix for paths in the master file")
	f.StringVar(&opts.CSVPathTemplate, "csv-path-template", "", "Template for prediction CSV paths: {case_dir}, {case_id}, {page_id}")
	f.StringVar(&opts.ImagePathTemplate, "image-path-template", "", "Template for image paths: {case_dir}, {case_id}, {page_id}, {image_file}")
	f.BoolVar(&noCopy, "no-copy-images", false, "Skip copying image files")
	f.BoolVar(&split, "split-by-case", true, "Write per-case workbooks for each annotator and a case index")
	f.BoolVar(&noSplit, "no-split-by-case", false, "Write only the combined master files; overrides --split-by-case")
	f.StringSliceVar(&opts.Annotators, "annotators", opts.Annotators, "Annotator names assigned to every page")
	return cmd
}
