package reporter

import (
	"fmt"
	"io"
	"strings"
)

// GenerateMarkdown writes the report as GitHub flavored markdown tables
func GenerateMarkdown(report *Report, w io.Writer) error {
	var b strings.Builder

	b.WriteString("# Job Sizing Report\n\n")
	fmt.Fprintf(&b, "- **Source:** %s\n", report.Source)
	fmt.Fprintf(&b, "- **Generated:** %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if report.TotalWasteCost > 0 {
		fmt.Fprintf(&b, "- **Estimated waste cost:** %.4f %s\n", report.TotalWasteCost, report.Currency)
	}
	if report.FailedCount > 0 {
		fmt.Fprintf(&b, "- **Failed allocations:** %d\n", report.FailedCount)
	}

	for _, g := range report.Groups() {
		fmt.Fprintf(&b, "\n## %s: %s\n\n", escapeMarkdown(g.Category), g.Resource)
		b.WriteString("| Mode | Allocation | Throughput | Waste % | Retries | Count |\n")
		b.WriteString("|------|-----------:|-----------:|--------:|--------:|------:|\n")

		for _, res := range g.Results {
			if !res.OK() {
				fmt.Fprintf(&b, "| %s | error: %s | | | | %d |\n", res.Mode, escapeMarkdown(res.Error), res.Count)
				continue
			}
			fmt.Fprintf(&b, "| %s | %g %s | %.2f | %.2f | %d | %d |\n",
				res.Mode, res.Allocation, res.Resource.Unit(), res.RelativeThroughput,
				res.WastePercentage, res.Retries, res.Count)
		}

		if p := g.Profile; p != nil {
			fmt.Fprintf(&b, "\nUsage is **%s** (CV %.2f): average %.1f, P95 %.1f, peak %.1f %s.\n",
				p.Pattern, p.Variation, p.Average, p.P95, p.Peak, g.Resource.Unit())
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
