package datasource

import (
	"context"
	"time"

	"github.com/opscart/job-sizer/pkg/models"
)

// DataSource produces the resource summaries of finished jobs
type DataSource interface {
	Observations(ctx context.Context) ([]models.Observation, error)
	Name() string
}

// PeakSource reports the peak usage of one pod over a window ending at end
type PeakSource interface {
	PeakUsage(ctx context.Context, namespace, pod string, resource models.Resource, end time.Time, window time.Duration) (float64, error)
	IsAvailable(ctx context.Context) bool
	Name() string
}
