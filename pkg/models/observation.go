package models

import "time"

// AllCategory aggregates the observations of every category.
const AllCategory = "(all)"

// Observation is the resource summary of one finished job: its peak usage
// of each resource and how long it ran.
type Observation struct {
	Category  string
	Namespace string
	Job       string

	// WallTime in seconds
	WallTime float64

	// Peak usage per resource
	Usage map[Resource]float64

	FinishedAt time.Time
}

// UsageProfile describes the distribution of peak values of one resource.
type UsageProfile struct {
	Average float64 `json:"average" yaml:"average"`
	P50     float64 `json:"p50" yaml:"p50"`
	P90     float64 `json:"p90" yaml:"p90"`
	P95     float64 `json:"p95" yaml:"p95"`
	P99     float64 `json:"p99" yaml:"p99"`
	Peak    float64 `json:"peak" yaml:"peak"`
	Min     float64 `json:"min" yaml:"min"`

	Pattern   string  `json:"pattern" yaml:"pattern"`     // "steady", "moderate", "spiky", "highly-variable", "unknown"
	Variation float64 `json:"variation" yaml:"variation"` // Coefficient of variation
}
