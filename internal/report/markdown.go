// Package report renders evaluation and maintenance results as Markdown,
// JSON and charts.
package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/banshee-data/annotation.report/internal/cleanup"
	"github.com/banshee-data/annotation.report/internal/evaluation"
	"github.com/banshee-data/annotation.report/internal/labels"
	"github.com/banshee-data/annotation.report/internal/metrics"
)

// MarkdownConfusionRows is how many confusion pairs the Markdown report lists.
const MarkdownConfusionRows = 10

// printer formats integers with thousands separators.
var printer = message.NewPrinter(language.English)

// Count formats n with thousands separators.
func Count(n int) string { return printer.Sprintf("%d", n) }

func f3(v float64) string { return fmt.Sprintf("%.3f", v) }

// RenderMarkdown formats an evaluation result.
func RenderMarkdown(r *evaluation.Result) string {
	var b strings.Builder
	s := r.Summary
	o := r.Overall

	b.WriteString("# LayoutLM NER Evaluation Report\n\n")
	b.WriteString("## Evaluation Summary\n")
	fmt.Fprintf(&b, "- **Total Files Evaluated**: %d\n", s.TotalFiles)
	fmt.Fprintf(&b, "- **Annotation Directory**: %s\n", s.AnnotationDirectory)
	fmt.Fprintf(&b, "- **Ground Truth Annotator**: %s\n", s.GroundTruthAnnotator)
	fmt.Fprintf(&b, "- **Label Mapping Found**: %t\n", s.LabelMappingFound)
	fmt.Fprintf(&b, "- **Total Entity Labels**: %d\n", s.TotalEntityLabels)
	fmt.Fprintf(&b, "- **Sequence Scorer**: %s\n", s.SequenceScorer)
	if len(r.SkippedFiles) > 0 {
		fmt.Fprintf(&b, "- **Files Skipped**: %d\n", len(r.SkippedFiles))
	}

	b.WriteString("\n## Overall Performance Metrics\n\n")
	b.WriteString("### Token-Level Performance (Flat Label Comparison)\n")
	fmt.Fprintf(&b, "- **Token Accuracy**: %s\n", f3(o.Token.TokenAccuracy))
	fmt.Fprintf(&b, "- **Total Tokens**: %s\n", Count(o.Token.TotalTokens))
	fmt.Fprintf(&b, "- **Correct Predictions**: %s\n", Count(o.Token.CorrectPredictions))

	b.WriteString("\n### Entity Classification (Flat Labels)\n")
	fmt.Fprintf(&b, "- **Accuracy**: %s\n", f3(o.EntityFlat.Accuracy))
	fmt.Fprintf(&b, "- **Macro F1-Score**: %s\n", f3(o.EntityFlat.MacroF1))
	fmt.Fprintf(&b, "- **Weighted F1-Score**: %s\n", f3(o.EntityFlat.WeightedF1))
	fmt.Fprintf(&b, "- **Macro Precision**: %s\n", f3(o.EntityFlat.MacroPrecision))
	fmt.Fprintf(&b, "- **Macro Recall**: %s\n", f3(o.EntityFlat.MacroRecall))

	b.WriteString("\n### Entity Classification (BIO Format)\n")
	fmt.Fprintf(&b, "- **Accuracy**: %s\n", f3(o.EntityBIO.Accuracy))
	fmt.Fprintf(&b, "- **Macro F1-Score**: %s\n", f3(o.EntityBIO.MacroF1))
	fmt.Fprintf(&b, "- **Weighted F1-Score**: %s\n", f3(o.EntityBIO.WeightedF1))

	b.WriteString("\n### Sequence-Level NER Performance\n")
	fmt.Fprintf(&b, "- **Sequence Accuracy**: %s\n", f3(o.Sequences.SequenceAccuracy))
	if o.Sequences.SequenceF1 != nil {
		fmt.Fprintf(&b, "- **Sequence F1-Score**: %s\n", f3(*o.Sequences.SequenceF1))
	} else {
		b.WriteString("- **Sequence F1-Score**: N/A\n")
	}
	fmt.Fprintf(&b, "- **Total Sequences**: %d\n", o.Sequences.TotalSequences)
	if o.Sequences.Note != "" {
		fmt.Fprintf(&b, "- **Note**: %s\n", o.Sequences.Note)
	}

	ea := r.ErrorAnalysis
	b.WriteString("\n## Error Analysis\n")
	fmt.Fprintf(&b, "- **Total Errors**: %s\n", Count(ea.TotalErrors))
	fmt.Fprintf(&b, "- **Error Rate**: %s\n", f3(ea.ErrorRate))
	b.WriteString("\n### Top Confusion Patterns\n")
	if len(ea.ConfusionPatterns) > 0 {
		b.WriteString("\n| True Label → Predicted Label | Count |\n|-------------------------------|-------|\n")
		for i, c := range ea.ConfusionPatterns {
			if i == MarkdownConfusionRows {
				break
			}
			fmt.Fprintf(&b, "| %s | %d |\n", c, c.Count)
		}
	} else {
		b.WriteString("\nNo confusion patterns found.\n")
	}
	confusionMatrix(&b, o.Confusion)

	if a := r.Agreement; a != nil {
		b.WriteString("\n## Inter-Annotator Agreement\n")
		fmt.Fprintf(&b, "- **Cohen's Kappa**: %s\n", f3(a.KappaScore))
		fmt.Fprintf(&b, "- **Agreement Percentage**: %s\n", f3(a.AgreementPercentage))
		fmt.Fprintf(&b, "- **Total Dual Annotations**: %s\n", Count(a.TotalDualAnnotations))
	}

	if ps := r.PageStats; ps.Files > 0 {
		b.WriteString("\n## Page Statistics\n")
		fmt.Fprintf(&b, "- **Pages Scored**: %d\n", ps.Files)
		fmt.Fprintf(&b, "- **Mean Token Accuracy**: %s (std %s)\n", f3(ps.MeanTokenAccuracy), f3(ps.StdTokenAccuracy))
		fmt.Fprintf(&b, "- **Token Accuracy Range**: %s - %s\n", f3(ps.MinTokenAccuracy), f3(ps.MaxTokenAccuracy))
		fmt.Fprintf(&b, "- **Mean Macro F1 (Flat)**: %s (std %s)\n", f3(ps.MeanMacroF1), f3(ps.StdMacroF1))
		fmt.Fprintf(&b, "- **Perfect Pages**: %d\n", ps.PerfectPages)
		if ps.WorstFile != "" {
			fmt.Fprintf(&b, "- **Lowest Accuracy Page**: %s\n", ps.WorstFile)
		}
	}

	if len(r.PerFile) > 0 {
		b.WriteString("\n## Per-File Performance Summary\n\n")
		b.WriteString("| File | Token Accuracy | Entity F1 (Flat) | Entity F1 (BIO) | Total Tokens |\n")
		b.WriteString("|------|----------------|------------------|-----------------|-------------|\n")
		for _, f := range r.PerFile {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				f.File, f3(f.Token.TokenAccuracy), f3(f.EntityFlat.WeightedF1), f3(f.EntityBIO.WeightedF1), Count(f.Token.TotalTokens))
		}
	}

	if len(r.SkippedFiles) > 0 {
		b.WriteString("\n## Skipped Files\n\n")
		for _, f := range r.SkippedFiles {
			fmt.Fprintf(&b, "- %s: %s\n", f.File, f.Reason)
		}
	}
	return b.String()
}

// confusionMatrix writes the flat-label matrix, truth labels down the side.
func confusionMatrix(b *strings.Builder, m metrics.ConfusionMatrix) {
	if len(m.Labels) == 0 {
		return
	}
	b.WriteString("\n### Confusion Matrix (Flat Labels)\n\n")
	b.WriteString("Rows are true labels, columns are predicted labels.\n\n")
	b.WriteString("| True \\ Predicted | " + strings.Join(m.Labels, " | ") + " |\n")
	b.WriteString("|---" + strings.Repeat("|---", len(m.Labels)) + "|\n")
	for i, l := range m.Labels {
		cells := make([]string, len(m.Counts[i]))
		for j, c := range m.Counts[i] {
			cells[j] = Count(c)
		}
		fmt.Fprintf(b, "| %s | %s |\n", l, strings.Join(cells, " | "))
	}
}

func status(ok bool) string {
	if ok {
		return "✓ Success"
	}
	return "✗ Failed"
}

func errorCell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

func failedFiles(b *strings.Builder, files []string) {
	if len(files) == 0 {
		return
	}
	b.WriteString("\n## Failed Files\n")
	for _, f := range files {
		fmt.Fprintf(b, "- %s\n", f)
	}
}

// RenderCleanup formats the result of a cleanup pass.
func RenderCleanup(r *cleanup.Result) string {
	var b strings.Builder
	s := r.Summary

	b.WriteString("# Annotation Cleanup Report\n\n")
	b.WriteString("## Summary Statistics\n")
	fmt.Fprintf(&b, "- **Files Processed**: %d\n", s.FilesProcessed)
	fmt.Fprintf(&b, "- **Files Successful**: %d\n", s.FilesSuccessful)
	fmt.Fprintf(&b, "- **Files Failed**: %d\n", s.FilesFailed)
	fmt.Fprintf(&b, "- **Total Original Rows**: %s\n", Count(s.OriginalRows))
	fmt.Fprintf(&b, "- **Total Final Rows**: %s\n", Count(s.FinalRows))
	fmt.Fprintf(&b, "- **Total Duplicates Removed**: %s\n", Count(s.DuplicatesRemoved))

	b.WriteString("\n## Per-File Details\n\n")
	b.WriteString("| File | Status | Original Rows | Final Rows | Duplicates Removed | Labels Standardised | Error |\n")
	b.WriteString("|------|--------|---------------|------------|-------------------|---------------------|-------|\n")
	for _, f := range r.Files {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			f.File, status(f.Success), Count(f.OriginalRows), Count(f.FinalRows),
			Count(f.DuplicatesRemoved), Count(f.LabelsStandardised), errorCell(f.Error))
	}
	failedFiles(&b, s.FailedFiles)
	return b.String()
}

// RenderUpdate formats the result of a prediction update pass that decoded
// with vocab.
func RenderUpdate(r *cleanup.Result, vocab *labels.Vocabulary) string {
	var b strings.Builder
	s := r.Summary

	b.WriteString("# Annotation Update Report\n\n")
	b.WriteString("## Summary Statistics\n")
	fmt.Fprintf(&b, "- **Files Processed**: %d\n", s.FilesProcessed)
	fmt.Fprintf(&b, "- **Files Successful**: %d\n", s.FilesSuccessful)
	fmt.Fprintf(&b, "- **Files Failed**: %d\n", s.FilesFailed)
	fmt.Fprintf(&b, "- **Total Original Rows**: %s\n", Count(s.OriginalRows))
	fmt.Fprintf(&b, "- **Total Final Rows**: %s\n", Count(s.FinalRows))
	fmt.Fprintf(&b, "- **Total Predictions Decoded**: %s\n", Count(s.PredsDecoded))
	fmt.Fprintf(&b, "- **Total Annotator1 Filled**: %s\n", Count(s.Annotator1Filled))
	fmt.Fprintf(&b, "- **Total Annotator2 Filled**: %s\n", Count(s.Annotator2Filled))
	fmt.Fprintf(&b, "- **Total Duplicates Removed**: %s\n", Count(s.DuplicatesRemoved))

	tags := vocab.Tags()
	b.WriteString("\n## Standard Labels Used\n")
	fmt.Fprintf(&b, "The following %d standard labels were used for prediction decoding:\n\n", len(tags))
	preview := tags
	if len(preview) > 10 {
		preview = preview[:10]
	}
	fmt.Fprintf(&b, "```\n%s...\n```\n", strings.Join(preview, ", "))

	b.WriteString("\n## Per-File Details\n\n")
	b.WriteString("| File | Status | Original Rows | Final Rows | Predictions Decoded | Ann1 Filled | Ann2 Filled | Duplicates Removed | Error |\n")
	b.WriteString("|------|--------|---------------|------------|-------------------|-------------|-------------|-------------------|-------|\n")
	for _, f := range r.Files {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			f.File, status(f.Success), Count(f.OriginalRows), Count(f.FinalRows), Count(f.PredsDecoded),
			Count(f.Annotator1Filled), Count(f.Annotator2Filled), Count(f.DuplicatesRemoved), errorCell(f.Error))
	}
	failedFiles(&b, s.FailedFiles)
	return b.String()
}
