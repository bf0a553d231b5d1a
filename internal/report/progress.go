package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/annotation.report/internal/annotation"
	"github.com/banshee-data/annotation.report/internal/master"
)

func pct(n, total int) string { return fmt.Sprintf("%.1f%%", master.Percent(n, total)) }

// RenderProgress formats the assignment progress of a master file.
func RenderProgress(p master.Progress) string {
	var b strings.Builder

	b.WriteString("# Annotation Progress\n\n")
	fmt.Fprintf(&b, "- **Pages**: %s\n", Count(p.Pages))
	fmt.Fprintf(&b, "- **Assignments**: %s\n", Count(p.Assignments))
	fmt.Fprintf(&b, "- **Completed**: %s (%s)\n", Count(p.Completed), pct(p.Completed, p.Assignments))

	b.WriteString("\n## By Annotator\n\n")
	b.WriteString("| Annotator | Assigned | Completed | Progress |\n")
	b.WriteString("|-----------|----------|-----------|----------|\n")
	for _, a := range p.Annotators {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", a.Name, Count(a.Assigned), Count(a.Completed), pct(a.Completed, a.Assigned))
	}

	b.WriteString("\n## By Case\n\n")
	b.WriteString("| Case | Pages | Assignments | Completed | Progress |\n")
	b.WriteString("|------|-------|-------------|-----------|----------|\n")
	for _, c := range p.Cases {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			c.CaseID, Count(c.Pages), Count(c.Assignments), Count(c.Completed), pct(c.Completed, c.Assignments))
	}
	return b.String()
}

// RenderAssignments lists the pages assigned to one annotator.
func RenderAssignments(name string, items []master.Assignment) string {
	var b strings.Builder
	done := 0
	for _, it := range items {
		if it.Completed {
			done++
		}
	}

	fmt.Fprintf(&b, "# Assignments for %s\n\n", name)
	fmt.Fprintf(&b, "- **Completed**: %d/%d (%s)\n\n", done, len(items), pct(done, len(items)))
	b.WriteString("| Case | Page | Label File | Completed |\n")
	b.WriteString("|------|------|------------|-----------|\n")
	for _, it := range items {
		mark := "no"
		if it.Completed {
			mark = "yes"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", it.CaseID, it.PageID, it.LabelFile, mark)
	}
	return b.String()
}

// RenderCompletion formats the labelled-row counts of a directory of
// annotation workbooks.
func RenderCompletion(rep *annotation.CompletionReport) string {
	var b strings.Builder

	b.WriteString("=== ANNOTATION FILES STATUS ===\n")
	for _, c := range rep.Files {
		fmt.Fprintf(&b, "%s:\n", c.File)
		fmt.Fprintf(&b, "  Total rows: %d\n", c.Rows)
		fmt.Fprintf(&b, "  Annotator1: %d/%d (%.1f%%)\n", c.Annotator1, c.Rows, c.Percent(c.Annotator1))
		fmt.Fprintf(&b, "  Annotator2: %d/%d (%.1f%%)\n\n", c.Annotator2, c.Rows, c.Percent(c.Annotator2))
	}

	failed := make([]string, 0, len(rep.Failed))
	for name := range rep.Failed {
		failed = append(failed, name)
	}
	sort.Strings(failed)
	for _, name := range failed {
		fmt.Fprintf(&b, "%s: Error - %s\n\n", name, rep.Failed[name])
	}

	t := rep.Total
	b.WriteString("=== FINAL SUMMARY ===\n")
	fmt.Fprintf(&b, "Total files: %d\n", len(rep.Files))
	fmt.Fprintf(&b, "Total rows: %d\n", t.Rows)
	fmt.Fprintf(&b, "Annotator1 completed: %d/%d (%.1f%%)\n", t.Annotator1, t.Rows, t.Percent(t.Annotator1))
	fmt.Fprintf(&b, "Annotator2 completed: %d/%d (%.1f%%)\n", t.Annotator2, t.Rows, t.Percent(t.Annotator2))
	return b.String()
}
