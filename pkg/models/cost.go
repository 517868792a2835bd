package models

import "time"

// CostInfo holds the price of one unit of each resource for one hour.
type CostInfo struct {
	Provider    string               `json:"provider"`
	UnitCosts   map[Resource]float64 `json:"unit_costs"`
	Currency    string               `json:"currency"`
	LastUpdated time.Time            `json:"last_updated"`
}
