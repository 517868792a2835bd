package pricing

import (
	"sync"
	"time"

	"github.com/opscart/job-sizer/pkg/models"
)

// PriceCache holds price sheets until their TTL expires
type PriceCache struct {
	data  map[string]*cacheEntry
	ttl   time.Duration
	now   func() time.Time
	mutex sync.Mutex
}

type cacheEntry struct {
	costInfo  *models.CostInfo
	expiresAt time.Time
}

func NewPriceCache(ttl time.Duration) *PriceCache {
	return &PriceCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get returns the cached entry for key, or nil if absent or expired.
func (c *PriceCache) Get(key string) *models.CostInfo {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.data[key]
	if !exists {
		return nil
	}

	if c.now().After(entry.expiresAt) {
		delete(c.data, key)
		return nil
	}

	return entry.costInfo
}

func (c *PriceCache) Set(key string, costInfo *models.CostInfo) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = &cacheEntry{
		costInfo:  costInfo,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *PriceCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]*cacheEntry)
}

// Len returns the number of entries, expired ones included.
func (c *PriceCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.data)
}
