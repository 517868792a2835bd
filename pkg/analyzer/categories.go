package analyzer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/opscart/job-sizer/pkg/allocation"
	"github.com/opscart/job-sizer/pkg/models"
)

// Resolutions configures how each resource and time are discretized.
type Resolutions struct {
	Values map[models.Resource]float64
	Time   float64
}

// Categories holds one estimator per category and resource. Every
// observation also feeds the models.AllCategory estimators.
//
// Categories is safe for concurrent use; the estimators it returns are not,
// and must only be read once ingestion is over.
type Categories struct {
	resources   []models.Resource
	resolutions Resolutions

	mutex      sync.RWMutex
	estimators map[string]map[models.Resource]*allocation.Estimator
}

// NewCategories creates an empty set tracking resources.
func NewCategories(resources []models.Resource, resolutions Resolutions) (*Categories, error) {
	if len(resources) == 0 {
		return nil, fmt.Errorf("no resources to track")
	}
	for _, r := range resources {
		if _, err := allocation.New(string(r), resolutions.Values[r], resolutions.Time); err != nil {
			return nil, fmt.Errorf("resource %s: %w", r, err)
		}
	}

	c := &Categories{
		resources:   append([]models.Resource(nil), resources...),
		resolutions: resolutions,
		estimators:  make(map[string]map[models.Resource]*allocation.Estimator),
	}
	c.category(models.AllCategory)
	return c, nil
}

// category returns the estimators of name, creating them if needed. The
// caller must hold the write lock or be the constructor.
func (c *Categories) category(name string) map[models.Resource]*allocation.Estimator {
	if ests, ok := c.estimators[name]; ok {
		return ests
	}

	ests := make(map[models.Resource]*allocation.Estimator, len(c.resources))
	for _, r := range c.resources {
		// Resolutions were validated in NewCategories.
		est, _ := allocation.New(string(r), c.resolutions.Values[r], c.resolutions.Time)
		ests[r] = est
	}
	c.estimators[name] = ests
	return ests
}

// Add records obs in its category and in models.AllCategory. Every tracked
// resource must be present in obs.Usage; nothing is recorded otherwise.
func (c *Categories) Add(obs models.Observation) error {
	name := obs.Category
	if name == "" {
		name = "default"
	}
	if name == models.AllCategory {
		return fmt.Errorf("category name %q is reserved", name)
	}
	for _, r := range c.resources {
		if _, ok := obs.Usage[r]; !ok {
			return fmt.Errorf("observation for %s has no %s value", name, r)
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Validate against a scratch estimator first so a bad value for one
	// resource does not leave the others half-updated.
	for _, r := range c.resources {
		check, _ := allocation.New(string(r), c.resolutions.Values[r], c.resolutions.Time)
		if _, err := check.AddDataPoint(obs.Usage[r], obs.WallTime); err != nil {
			return fmt.Errorf("observation for %s, %s: %w", name, r, err)
		}
	}

	for _, target := range []string{name, models.AllCategory} {
		ests := c.category(target)
		for _, r := range c.resources {
			if _, err := ests[r].AddDataPoint(obs.Usage[r], obs.WallTime); err != nil {
				return fmt.Errorf("observation for %s, %s: %w", target, r, err)
			}
		}
	}
	return nil
}

// AddAll adds every observation, returning how many were rejected and the
// first error seen.
func (c *Categories) AddAll(observations []models.Observation) (int, error) {
	rejected := 0
	var firstErr error
	for _, obs := range observations {
		if err := c.Add(obs); err != nil {
			rejected++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return rejected, firstErr
}

// Get returns the estimator of a category and resource.
func (c *Categories) Get(category string, resource models.Resource) (*allocation.Estimator, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ests, ok := c.estimators[category]
	if !ok {
		return nil, false
	}
	est, ok := ests[resource]
	return est, ok
}

// Names returns the category names, models.AllCategory first and the rest
// sorted.
func (c *Categories) Names() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.estimators))
	for name := range c.estimators {
		if name != models.AllCategory {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{models.AllCategory}, names...)
}

// Resources returns the tracked resources in report order.
func (c *Categories) Resources() []models.Resource {
	return append([]models.Resource(nil), c.resources...)
}

// Count returns the number of observations recorded.
func (c *Categories) Count() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.estimators[models.AllCategory][c.resources[0]].Count()
}
