package pricing

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// NewProvider creates a pricing provider from config
func NewProvider(config *Config, log logrus.FieldLogger) (Provider, error) {
	fallback := NewDefaultProvider(config.UnitCosts, config.Currency)

	switch config.Provider {
	case "", "default":
		return fallback, nil
	case "file":
		if config.PriceFile == "" {
			return nil, fmt.Errorf("file pricing requires a price file")
		}
		return NewFileProvider(config.PriceFile, config.CacheTTL, fallback, log), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", config.Provider)
	}
}
