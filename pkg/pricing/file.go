package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opscart/job-sizer/pkg/models"
)

// FileProvider reads unit costs from a JSON price sheet, re-reading it once
// the cached copy expires. A missing or invalid sheet falls back to the
// default rates.
//
//	{"Provider": "azure-eastus", "Currency": "USD",
//	 "UnitCosts": {"cores": 0.048, "memory": 0.0000065}}
type FileProvider struct {
	path     string
	cache    *PriceCache
	fallback *DefaultProvider
	log      logrus.FieldLogger
}

func NewFileProvider(path string, ttl time.Duration, fallback *DefaultProvider, log logrus.FieldLogger) *FileProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &FileProvider{
		path:     path,
		cache:    NewPriceCache(ttl),
		fallback: fallback,
		log:      log,
	}
}

func (f *FileProvider) Name() string {
	return "file"
}

func (f *FileProvider) UnitCost(resource models.Resource) float64 {
	info := f.CostInfo()
	if c, ok := info.UnitCosts[resource]; ok {
		return c
	}
	return f.fallback.UnitCost(resource)
}

func (f *FileProvider) CostInfo() *models.CostInfo {
	if cached := f.cache.Get(f.path); cached != nil {
		return cached
	}

	info, err := f.read()
	if err != nil {
		f.log.WithError(err).Warnf("Using default pricing, could not read %s", f.path)
		return f.fallback.CostInfo()
	}

	f.cache.Set(f.path, info)
	return info
}

func (f *FileProvider) read() (*models.CostInfo, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	var info models.CostInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse price sheet: %w", err)
	}
	for r, c := range info.UnitCosts {
		if c < 0 {
			return nil, fmt.Errorf("negative unit cost for %s", r)
		}
	}
	if info.Provider == "" {
		info.Provider = f.Name()
	}
	if info.Currency == "" {
		info.Currency = "USD"
	}
	if info.LastUpdated.IsZero() {
		info.LastUpdated = time.Now()
	}
	return &info, nil
}
