package recommender

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opscart/job-sizer/pkg/allocation"
	"github.com/opscart/job-sizer/pkg/analyzer"
	"github.com/opscart/job-sizer/pkg/models"
	"github.com/opscart/job-sizer/pkg/pricing"
)

// Recommender turns estimators into allocation results for every mode.
type Recommender struct {
	pricingProvider pricing.Provider
	log             logrus.FieldLogger
	now             func() time.Time
}

// New creates a recommender without pricing; WasteCost stays zero.
func New(log logrus.FieldLogger) *Recommender {
	return &Recommender{
		log: log,
		now: time.Now,
	}
}

// NewWithPricing creates a recommender that prices the waste of every
// allocation with provider.
func NewWithPricing(provider pricing.Provider, log logrus.FieldLogger) *Recommender {
	r := New(log)
	r.pricingProvider = provider
	return r
}

// Analyze computes one result per mode for est. A mode that fails carries
// its error in the result and does not stop the others.
func (r *Recommender) Analyze(est *allocation.Estimator, category string, resource models.Resource, modes []allocation.Mode) []*models.AllocationResult {
	results := make([]*models.AllocationResult, 0, len(modes))
	for _, mode := range modes {
		result, err := r.analyzeMode(est, resource, mode)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"category": category,
				"resource": resource,
				"mode":     mode,
			}).WithError(err).Warn("Allocation could not be computed")
			result.Error = err.Error()
		}
		result.Category = category
		result.Resource = resource
		results = append(results, result)
	}
	return results
}

// AnalyzeCategories runs Analyze for every category and resource, in the
// order reported by categories.
func (r *Recommender) AnalyzeCategories(categories *analyzer.Categories, modes []allocation.Mode) []*models.AllocationResult {
	var results []*models.AllocationResult
	for _, name := range categories.Names() {
		for _, resource := range categories.Resources() {
			est, ok := categories.Get(name, resource)
			if !ok {
				continue
			}
			results = append(results, r.Analyze(est, name, resource, modes)...)
		}
	}
	return results
}

func (r *Recommender) analyzeMode(est *allocation.Estimator, resource models.Resource, mode allocation.Mode) (*models.AllocationResult, error) {
	result := &models.AllocationResult{
		ID:        uuid.New().String(),
		Mode:      mode,
		Count:     est.Count(),
		CreatedAt: r.now(),
	}

	alloc, err := est.FirstAllocation(mode)
	if err != nil {
		return result, err
	}
	result.Allocation = alloc

	maximum, err := est.MaximumSeen()
	if err != nil {
		return result, err
	}
	result.Maximum = maximum
	result.Retries = est.Retries(alloc)

	waste, err := est.Waste(alloc)
	if err != nil {
		return result, fmt.Errorf("waste: %w", err)
	}
	if result.WastePercentage, err = est.WastePercentage(alloc); err != nil {
		return result, fmt.Errorf("waste percentage: %w", err)
	}

	if result.Throughput, err = est.Throughput(alloc); err != nil {
		return result, fmt.Errorf("throughput: %w", err)
	}
	base, err := est.Throughput(maximum)
	if err != nil {
		return result, fmt.Errorf("base throughput: %w", err)
	}
	result.RelativeThroughput = result.Throughput / base

	if r.pricingProvider != nil {
		result.WasteCost = pricing.WasteCost(r.pricingProvider, resource, waste)
	}

	return result, nil
}
