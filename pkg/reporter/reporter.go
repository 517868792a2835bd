package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opscart/job-sizer/pkg/models"
)

// Format represents the output format
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatCSV, FormatMarkdown, FormatHTML}
}

func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "md" {
		return FormatMarkdown, nil
	}
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// Report contains all data for generating reports
type Report struct {
	Source      string    `json:"source" yaml:"source"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Currency    string    `json:"currency,omitempty" yaml:"currency,omitempty"`

	Results  []*models.AllocationResult `json:"results" yaml:"results"`
	Profiles []*ProfileEntry            `json:"profiles,omitempty" yaml:"profiles,omitempty"`

	TotalWasteCost float64 `json:"total_waste_cost" yaml:"total_waste_cost"`
	FailedCount    int     `json:"failed_count" yaml:"failed_count"`
}

// ProfileEntry is the usage profile of one category and resource.
type ProfileEntry struct {
	Category string               `json:"category" yaml:"category"`
	Resource models.Resource      `json:"resource" yaml:"resource"`
	Profile  *models.UsageProfile `json:"profile" yaml:"profile"`
}

// Group holds the results of one category and resource, in mode order.
type Group struct {
	Category string
	Resource models.Resource
	Results  []*models.AllocationResult
	Profile  *models.UsageProfile
}

// New creates a report over results. Only results of the models.AllCategory
// category are counted in TotalWasteCost, so that categories are not priced
// twice; without it every result counts.
func New(source string, results []*models.AllocationResult) *Report {
	report := &Report{
		Source:      source,
		GeneratedAt: time.Now(),
		Results:     results,
	}
	report.calculateStats()
	return report
}

func (r *Report) calculateStats() {
	hasAll := false
	for _, res := range r.Results {
		if res.Category == models.AllCategory {
			hasAll = true
			break
		}
	}

	r.TotalWasteCost = 0
	r.FailedCount = 0
	for _, res := range r.Results {
		if !res.OK() {
			r.FailedCount++
			continue
		}
		if !hasAll || res.Category == models.AllCategory {
			r.TotalWasteCost += res.WasteCost
		}
	}
}

// AddProfile attaches the usage profile of a category and resource.
func (r *Report) AddProfile(category string, resource models.Resource, profile *models.UsageProfile) {
	r.Profiles = append(r.Profiles, &ProfileEntry{
		Category: category,
		Resource: resource,
		Profile:  profile,
	})
}

// Groups returns the results grouped by category and resource, in the order
// they first appear.
func (r *Report) Groups() []*Group {
	type key struct {
		category string
		resource models.Resource
	}

	var groups []*Group
	index := make(map[key]*Group)
	for _, res := range r.Results {
		k := key{res.Category, res.Resource}
		g, ok := index[k]
		if !ok {
			g = &Group{Category: res.Category, Resource: res.Resource}
			index[k] = g
			groups = append(groups, g)
		}
		g.Results = append(g.Results, res)
	}

	for _, p := range r.Profiles {
		if g, ok := index[key{p.Category, p.Resource}]; ok {
			g.Profile = p.Profile
		}
	}
	return groups
}

// Write renders report to w in format.
func Write(w io.Writer, report *Report, format Format) error {
	switch format {
	case FormatText:
		return GenerateText(report, w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return GenerateCSV(report, w)
	case FormatMarkdown:
		return GenerateMarkdown(report, w)
	case FormatHTML:
		return GenerateHTML(report, w)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
