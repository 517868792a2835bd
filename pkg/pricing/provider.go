package pricing

import (
	"time"

	"github.com/opscart/job-sizer/pkg/models"
)

// Provider prices one unit of a resource held for one hour.
type Provider interface {
	UnitCost(resource models.Resource) float64
	CostInfo() *models.CostInfo
	Name() string
}

type Config struct {
	Provider  string // "default" or "file"
	PriceFile string
	CacheTTL  time.Duration
	UnitCosts map[models.Resource]float64
	Currency  string
}

// WasteCost converts a waste expressed in unit-seconds into money.
func WasteCost(p Provider, resource models.Resource, waste float64) float64 {
	return waste / 3600 * p.UnitCost(resource)
}
