package reporter

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/opscart/job-sizer/pkg/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// GenerateText writes one table per category and resource with the
// allocation, relative throughput, waste percentage and retries of each mode.
func GenerateText(report *Report, w io.Writer) error {
	for _, g := range report.Groups() {
		title := fmt.Sprintf("%s --- %s", g.Category, g.Resource)
		if _, err := fmt.Fprintf(w, "\n%s\n", titleStyle.Render(title)); err != nil {
			return err
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("mode", "alloc", "throu", "waste", "retry/count").
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return headerStyle
				case col == 0:
					return cellStyle
				default:
					return numberStyle
				}
			})

		for _, res := range g.Results {
			t.Row(textRow(res)...)
		}

		if _, err := fmt.Fprintln(w, t.Render()); err != nil {
			return err
		}

		if g.Profile != nil {
			p := g.Profile
			if _, err := fmt.Fprintf(w, "profile: avg %.1f  p50 %.1f  p95 %.1f  peak %.1f %s  (%s, cv %.2f)\n",
				p.Average, p.P50, p.P95, p.Peak, g.Resource.Unit(), p.Pattern, p.Variation); err != nil {
				return err
			}
		}
	}

	if report.TotalWasteCost > 0 {
		if _, err := fmt.Fprintf(w, "\nEstimated waste cost: %.4f %s\n", report.TotalWasteCost, report.Currency); err != nil {
			return err
		}
	}
	if report.FailedCount > 0 {
		if _, err := fmt.Fprintf(w, "%d allocation(s) could not be computed\n", report.FailedCount); err != nil {
			return err
		}
	}
	return nil
}

func textRow(res *models.AllocationResult) []string {
	if !res.OK() {
		return []string{res.Mode.String(), "-", "-", "-", res.Error}
	}
	return []string{
		res.Mode.String(),
		fmt.Sprintf("%g", res.Allocation),
		fmt.Sprintf("%.2f", res.RelativeThroughput),
		fmt.Sprintf("%.2f", res.WastePercentage),
		fmt.Sprintf("%d/%d", res.Retries, res.Count),
	}
}
