// Command xlsx-to-csv extracts named columns from every workbook in a
// directory into CSV files, or lists the columns of a single workbook.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/annotation.report/internal/cli"
	"github.com/banshee-data/annotation.report/internal/extract"
)

func main() {
	cli.Main(newRootCmd(&cli.App{}))
}

func newRootCmd(app *cli.App) *cobra.Command {
	var (
		columns     string
		inputDir    string
		outputDir   string
		listColumns string
		opts        extract.Options
	)
	cmd := app.NewRoot("xlsx-to-csv", "Extract specified columns from Excel files and save as CSV")
	cmd.Args = cobra.NoArgs
	cmd.Example = `  xlsx-to-csv --columns "words,pred,annotator1_label" --input-dir annotations/
  xlsx-to-csv --columns "ID,Status" --input-dir data/ --output-dir output/
  xlsx-to-csv --columns "A,B,C" --sheet Sheet2 --keep-original-name
  xlsx-to-csv --list-columns file.xlsx
  xlsx-to-csv --columns "Name,Value" --recursive`
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if listColumns != "" {
			return printColumns(out, listColumns, opts.Sheet)
		}

		if columns == "" {
			return errors.New("--columns is required for extraction mode; use --list-columns FILE to see available columns")
		}
		opts.Columns = extract.ParseColumns(columns)
		if len(opts.Columns) == 0 {
			return errors.New("no valid column names provided")
		}
		info, err := os.Stat(inputDir)
		if err != nil {
			return fmt.Errorf("input directory not found: %s", inputDir)
		}
		if !info.IsDir() {
			return fmt.Errorf("input path is not a directory: %s", inputDir)
		}

		fmt.Fprintf(out, "Input directory: %s\n", absolute(inputDir))
		fmt.Fprintf(out, "Output directory: %s\n", absolute(outputDir))
		fmt.Fprintf(out, "Columns to extract: %v\n", opts.Columns)
		if opts.Sheet != "" {
			fmt.Fprintf(out, "Sheet: %s\n", opts.Sheet)
		}
		if opts.Recursive {
			fmt.Fprintln(out, "Recursive search: enabled")
		}

		ctx, stop := cli.SignalContext(cmd.Context())
		defer stop()

		res, err := extract.New(app.Logger(), opts).Directory(ctx, inputDir, outputDir)
		if err != nil {
			return err
		}
		if len(res.Files) == 0 {
			fmt.Fprintf(out, "No Excel files found in %s\n", inputDir)
			return nil
		}
		fmt.Fprintf(out, "Found %d Excel file(s)\n", len(res.Files))
		for _, f := range res.Files {
			name := filepath.Base(f.File)
			if len(f.Missing) > 0 {
				fmt.Fprintf(out, "Warning: %s - Missing columns: %v\n", name, f.Missing)
			}
			if !f.OK() {
				fmt.Fprintf(out, "Error processing %s: %s\n", name, f.Error)
				continue
			}
			fmt.Fprintf(out, "Extracted %d columns from %s -> %s\n", len(f.Columns), name, filepath.Base(f.Output))
		}
		fmt.Fprintln(out, "\nProcessing complete:")
		fmt.Fprintf(out, "  Successful: %d\n", res.Successful)
		fmt.Fprintf(out, "  Failed: %d\n", res.Failed)
		return nil
	}

	f := cmd.Flags()
	f.StringVar(&columns, "columns", "", `Comma-separated list of column names to extract (e.g. "Name,Email,Phone")`)
	f.StringVar(&inputDir, "input-dir", ".", "Directory containing Excel files")
	f.StringVar(&outputDir, "output-dir", ".", "Directory to save CSV files")
	f.StringVar(&opts.Sheet, "sheet", "", "Name of the Excel sheet to read (default: first sheet)")
	f.BoolVar(&opts.KeepOriginalName, "keep-original-name", false, `Keep the original file name for CSV output (default: add "`+extract.Suffix+`" suffix)`)
	f.BoolVar(&opts.Recursive, "recursive", false, "Search for Excel files recursively in subdirectories")
	f.StringVar(&listColumns, "list-columns", "", "List all column names in the specified Excel file and exit")
	return cmd
}

func printColumns(out io.Writer, path, sheet string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	t, err := extract.ReadSheet(path, sheet)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", filepath.Base(path), err)
	}
	fmt.Fprintf(out, "\nColumns in %s:\n", filepath.Base(path))
	for i, c := range t.Header {
		fmt.Fprintf(out, "  %2d. %s\n", i+1, c)
	}
	fmt.Fprintf(out, "\nTotal columns: %d\n", len(t.Header))
	return nil
}

func absolute(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
