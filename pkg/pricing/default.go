package pricing

import (
	"time"

	"github.com/opscart/job-sizer/pkg/models"
)

// Conservative on-demand rates per unit-hour.
var defaultUnitCosts = map[models.Resource]float64{
	models.ResourceCores:  0.0316,
	models.ResourceMemory: 0.000004,
	models.ResourceDisk:   0.0000001,
}

// DefaultProvider provides flat pricing for on-prem or unknown clouds
type DefaultProvider struct {
	unitCosts map[models.Resource]float64
	currency  string
}

// NewDefaultProvider uses unitCosts, falling back to the built-in rate for
// any resource missing or priced at zero.
func NewDefaultProvider(unitCosts map[models.Resource]float64, currency string) *DefaultProvider {
	costs := make(map[models.Resource]float64, len(defaultUnitCosts))
	for r, c := range defaultUnitCosts {
		costs[r] = c
	}
	for r, c := range unitCosts {
		if c > 0 {
			costs[r] = c
		}
	}
	if currency == "" {
		currency = "USD"
	}
	return &DefaultProvider{
		unitCosts: costs,
		currency:  currency,
	}
}

func (d *DefaultProvider) Name() string {
	return "default"
}

func (d *DefaultProvider) UnitCost(resource models.Resource) float64 {
	return d.unitCosts[resource]
}

func (d *DefaultProvider) CostInfo() *models.CostInfo {
	costs := make(map[models.Resource]float64, len(d.unitCosts))
	for r, c := range d.unitCosts {
		costs[r] = c
	}
	return &models.CostInfo{
		Provider:    d.Name(),
		UnitCosts:   costs,
		Currency:    d.currency,
		LastUpdated: time.Now(),
	}
}
