package metrics

import "github.com/banshee-data/annotation.report/internal/annotation"

// Agreement is the inter-annotator agreement over doubly labelled rows.
type Agreement struct {
	KappaScore           float64 `json:"kappa_score"`
	AgreementPercentage  float64 `json:"agreement_percentage"`
	TotalDualAnnotations int     `json:"total_dual_annotations"`
	AgreementCount       int     `json:"agreement_count"`
}

// InterAnnotator compares the two annotator columns on rows where both are
// filled. It returns nil when there are no such rows.
func InterAnnotator(records []annotation.Record) *Agreement {
	var a, b []string
	for _, r := range records {
		if r.BothAnnotated() {
			a = append(a, r.Annotator1)
			b = append(b, r.Annotator2)
		}
	}
	if len(a) == 0 {
		return nil
	}

	agree := 0
	for i := range a {
		if a[i] == b[i] {
			agree++
		}
	}
	return &Agreement{
		KappaScore:           CohenKappa(a, b),
		AgreementPercentage:  ratio(agree, len(a)),
		TotalDualAnnotations: len(a),
		AgreementCount:       agree,
	}
}

// CohenKappa returns (po - pe) / (1 - pe) for two equally long label lists.
// When chance agreement is total (both raters used one identical label) the
// result is 1 for perfect observed agreement and 0 otherwise.
func CohenKappa(a, b []string) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	countA := map[string]int{}
	countB := map[string]int{}
	agree := 0
	for i := 0; i < n; i++ {
		countA[a[i]]++
		countB[b[i]]++
		if a[i] == b[i] {
			agree++
		}
	}

	total := float64(n)
	po := float64(agree) / total
	var pe float64
	for label, ca := range countA {
		pe += float64(ca) / total * float64(countB[label]) / total
	}
	if pe >= 1 {
		if po == 1 {
			return 1
		}
		return 0
	}
	return (po - pe) / (1 - pe)
}
