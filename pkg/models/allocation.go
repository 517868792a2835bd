package models

import (
	"time"

	"github.com/opscart/job-sizer/pkg/allocation"
)

// AllocationResult is the first allocation computed for one category,
// resource and mode, together with the statistics of running the recorded
// jobs under it.
type AllocationResult struct {
	ID       string          `json:"id" yaml:"id"`
	Category string          `json:"category" yaml:"category"`
	Resource Resource        `json:"resource" yaml:"resource"`
	Mode     allocation.Mode `json:"mode" yaml:"mode"`

	Allocation float64 `json:"allocation" yaml:"allocation"`
	Maximum    float64 `json:"maximum" yaml:"maximum"`
	Count      int     `json:"count" yaml:"count"`
	Retries    int     `json:"retries" yaml:"retries"`

	WastePercentage float64 `json:"waste_percentage" yaml:"waste_percentage"`
	Throughput      float64 `json:"throughput" yaml:"throughput"`
	// Throughput relative to allocating the maximum seen
	RelativeThroughput float64 `json:"relative_throughput" yaml:"relative_throughput"`
	WasteCost          float64 `json:"waste_cost" yaml:"waste_cost"`

	// Error is set when this mode could not be computed; the numeric fields
	// are then meaningless.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// OK reports whether the result was computed.
func (r *AllocationResult) OK() bool {
	return r.Error == ""
}
