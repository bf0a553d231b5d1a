package report

import (
	"strings"
	"testing"

	"github.com/banshee-data/annotation.report/internal/annotation"
	"github.com/banshee-data/annotation.report/internal/master"
)

func containsAll(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderProgress(t *testing.T) {
	out := RenderProgress(master.Progress{
		Pages:       1500,
		Assignments: 3000,
		Completed:   750,
		Annotators:  []master.AnnotatorProgress{{Name: "alice", Assigned: 4, Completed: 1}},
		Cases:       []master.CaseProgress{{CaseID: "c1", Pages: 2, Assignments: 4, Completed: 4}},
	})

	containsAll(t, out,
		"- **Pages**: 1,500",
		"- **Completed**: 750 (25.0%)",
		"| alice | 4 | 1 | 25.0% |",
		"| c1 | 2 | 4 | 4 | 100.0% |",
	)
}

func TestRenderProgress_Empty(t *testing.T) {
	containsAll(t, RenderProgress(master.Progress{}), "- **Completed**: 0 (0.0%)")
}

func TestRenderAssignments(t *testing.T) {
	out := RenderAssignments("bob", []master.Assignment{
		{CaseID: "c1", PageID: "p1", LabelFile: "l1.xlsx", Completed: true},
		{CaseID: "c1", PageID: "p2", LabelFile: "l2.xlsx"},
	})
	containsAll(t, out,
		"# Assignments for bob",
		"- **Completed**: 1/2 (50.0%)",
		"| c1 | p2 | l2.xlsx | no |",
	)
}

func TestRenderCompletion(t *testing.T) {
	rep := &annotation.CompletionReport{
		Files: []annotation.Completion{
			{File: "a.xlsx", Rows: 4, Annotator1: 4, Annotator2: 1},
		},
		Failed: map[string]string{"z.xlsx": "sheet not found", "b.xlsx": "corrupt"},
		Total:  annotation.Completion{Rows: 4, Annotator1: 4, Annotator2: 1},
	}
	out := RenderCompletion(rep)

	containsAll(t, out,
		"a.xlsx:\n  Total rows: 4\n  Annotator1: 4/4 (100.0%)\n  Annotator2: 1/4 (25.0%)\n",
		"Total files: 1\n",
		"Annotator2 completed: 1/4 (25.0%)",
	)
	// Failures are listed in file order.
	if b, z := strings.Index(out, "b.xlsx: Error - corrupt"), strings.Index(out, "z.xlsx: Error"); b < 0 || b > z {
		t.Errorf("b.xlsx failure at %d, z.xlsx at %d; want b first", b, z)
	}
}
