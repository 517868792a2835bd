package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/opscart/job-sizer/pkg/allocation"
	"github.com/opscart/job-sizer/pkg/models"
)

func sampleReport() *Report {
	results := []*models.AllocationResult{
		{Category: models.AllCategory, Resource: models.ResourceMemory, Mode: allocation.ModeThroughput, Allocation: 400, Maximum: 400, Count: 2, RelativeThroughput: 1, WastePercentage: 30.57, WasteCost: 0.5},
		{Category: models.AllCategory, Resource: models.ResourceMemory, Mode: allocation.ModeFixed, Allocation: 400, Maximum: 400, Count: 2, RelativeThroughput: 1, WastePercentage: 30.57, WasteCost: 0.5},
		{Category: "render", Resource: models.ResourceMemory, Mode: allocation.ModeWaste, Allocation: 200, Maximum: 400, Count: 2, Retries: 1, RelativeThroughput: 1.25, WastePercentage: 12.5, WasteCost: 0.25},
		{Category: "render", Resource: models.ResourceCores, Mode: allocation.ModeWaste, Count: 0, Error: "empty dataset"},
	}
	report := New("jobs.csv", results)
	report.GeneratedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	report.Currency = "USD"
	report.AddProfile("render", models.ResourceMemory, &models.UsageProfile{Average: 300, P95: 390, Peak: 400, Pattern: "unknown"})
	return report
}

func TestNewStats(t *testing.T) {
	report := sampleReport()
	assert.Equal(t, 1, report.FailedCount)
	// Only the aggregate category is priced.
	assert.InDelta(t, 1.0, report.TotalWasteCost, 1e-9)

	withoutAll := New("x", []*models.AllocationResult{
		{Category: "a", WasteCost: 0.5},
		{Category: "b", WasteCost: 0.25},
	})
	assert.InDelta(t, 0.75, withoutAll.TotalWasteCost, 1e-9)
}

func TestGroups(t *testing.T) {
	groups := sampleReport().Groups()
	require.Len(t, groups, 3)

	assert.Equal(t, models.AllCategory, groups[0].Category)
	assert.Len(t, groups[0].Results, 2)
	assert.Nil(t, groups[0].Profile)

	assert.Equal(t, "render", groups[1].Category)
	assert.Equal(t, models.ResourceMemory, groups[1].Resource)
	require.NotNil(t, groups[1].Profile)
	assert.Equal(t, 400.0, groups[1].Profile.Peak)

	assert.Equal(t, models.ResourceCores, groups[2].Resource)
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		parsed, err := ParseFormat(strings.ToUpper(string(f)))
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}

	f, err := ParseFormat("md")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatText))
	out := buf.String()

	assert.Contains(t, out, "(all) --- memory")
	assert.Contains(t, out, "render --- cores")
	assert.Contains(t, out, "retry/count")
	assert.Contains(t, out, "throughput")
	assert.Contains(t, out, "1.25")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "empty dataset")
	assert.Contains(t, out, "peak 400.0 MB")
	assert.Contains(t, out, "Estimated waste cost: 1.0000 USD")
	assert.Contains(t, out, "1 allocation(s) could not be computed")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatJSON))

	var decoded struct {
		Source  string `json:"source"`
		Results []struct {
			Category string  `json:"category"`
			Mode     string  `json:"mode"`
			Alloc    float64 `json:"allocation"`
			Error    string  `json:"error"`
		} `json:"results"`
		FailedCount int `json:"failed_count"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "jobs.csv", decoded.Source)
	require.Len(t, decoded.Results, 4)
	assert.Equal(t, "throughput", decoded.Results[0].Mode)
	assert.Equal(t, 200.0, decoded.Results[2].Alloc)
	assert.Equal(t, "empty dataset", decoded.Results[3].Error)
	assert.Equal(t, 1, decoded.FailedCount)
	assert.NotContains(t, buf.String(), `"error": ""`)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatYAML))

	assert.Contains(t, buf.String(), "mode: waste")
	assert.Contains(t, buf.String(), "relative_throughput: 1.25")

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "jobs.csv", decoded["source"])
	assert.Len(t, decoded["results"], 4)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatCSV))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "category", rows[0][0])
	assert.Equal(t, []string{"render", "memory", "waste", "200", "400", "1.2500", "12.50", "1", "2", "0.250000", ""}, rows[3])
	assert.Equal(t, "empty dataset", rows[4][10])
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatMarkdown))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Job Sizing Report"))
	assert.Contains(t, out, "## render: memory")
	assert.Contains(t, out, "| waste | 200 MB | 1.25 | 12.50 | 1 | 2 |")
	assert.Contains(t, out, "error: empty dataset")
	assert.Contains(t, out, "**Failed allocations:** 1")
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatHTML))
	out := buf.String()

	assert.Contains(t, out, "<title>Job Sizing Report - jobs.csv</title>")
	assert.Contains(t, out, "mode-throughput")
	assert.Contains(t, out, "200 MB")
	assert.Contains(t, out, "empty dataset")
	assert.Contains(t, out, "1.0000 USD")
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, sampleReport(), Format("xml")))
}
