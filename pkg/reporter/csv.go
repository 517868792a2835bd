package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// GenerateCSV creates a CSV report with one row per result
func GenerateCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)

	header := []string{
		"category",
		"resource",
		"mode",
		"allocation",
		"maximum",
		"relative_throughput",
		"waste_percentage",
		"retries",
		"count",
		"waste_cost",
		"error",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, res := range report.Results {
		row := []string{
			res.Category,
			string(res.Resource),
			res.Mode.String(),
			formatFloat(res.Allocation),
			formatFloat(res.Maximum),
			fmt.Sprintf("%.4f", res.RelativeThroughput),
			fmt.Sprintf("%.2f", res.WastePercentage),
			strconv.Itoa(res.Retries),
			strconv.Itoa(res.Count),
			fmt.Sprintf("%.6f", res.WasteCost),
			res.Error,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
