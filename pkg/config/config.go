package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/opscart/job-sizer/pkg/allocation"
	"github.com/opscart/job-sizer/pkg/models"
)

// EnvPrefix is prepended to every environment variable, e.g.
// JOB_SIZER_RESOLUTION_MEMORY.
const EnvPrefix = "JOB_SIZER"

// Config holds application configuration
type Config struct {
	// Discretization
	Resolutions    map[models.Resource]float64
	TimeResolution float64 // seconds
	Resources      []models.Resource
	Modes          []allocation.Mode

	// Prometheus / cluster scan
	PrometheusURL       string
	Namespace           string
	MetricsLookbackDays int
	MetricsDuration     time.Duration
	CategoryLabel       string

	// Storage
	StorageEnabled bool
	StorageType    string // postgres, memory
	DatabaseURL    string

	// Simulation
	SimulationSeed     uint64
	SimulationSamples  int
	SimulationMin      float64
	SimulationMax      float64
	SimulationWallTime float64

	// Pricing, per unit-hour
	PricingProvider string // default, file
	PriceFile       string
	PriceCacheTTL   time.Duration
	UnitCosts       map[models.Resource]float64
	Currency        string

	// Output
	OutputFormat string // text, json, yaml, csv, markdown, html
	MetricsFile  string
	Verbose      bool
}

// OutputFormats lists the accepted values of OutputFormat.
var OutputFormats = []string{"text", "json", "yaml", "csv", "markdown", "html"}

var defaults = map[string]interface{}{
	"resolution.cores":  1.0,
	"resolution.memory": 50.0, // group by [50i, 50(i+1)) MB
	"resolution.disk":   50.0,
	"resolution.time":   360.0,
	"resources":         "memory,disk,cores",
	"modes":             "throughput,waste,fixed",

	"prometheus_url":        "http://localhost:9090",
	"namespace":             "default",
	"metrics_lookback_days": 7,
	"category_label":        "job-sizer.io/category",

	"storage_enabled": false,
	"storage.type":    "postgres",
	"database_url":    "host=localhost port=5432 user=jobsizer password=devpassword dbname=jobsizer sslmode=disable",

	"simulation.seed":      42,
	"simulation.samples":   10,
	"simulation.min":       50.0,
	"simulation.max":       10000.0,
	"simulation.wall_time": 1.0,

	"pricing.cores":     0.0316,
	"pricing.memory":    0.000004,
	"pricing.disk":      0.0000001,
	"pricing.currency":  "USD",
	"pricing.provider":  "default",
	"pricing.file":      "",
	"pricing.cache_ttl": "24h",

	"output":       "text",
	"metrics_file": "",
	"verbose":      false,
}

// settings mirrors the keys of defaults for decoding.
type settings struct {
	Resolution struct {
		Cores  float64 `mapstructure:"cores"`
		Memory float64 `mapstructure:"memory"`
		Disk   float64 `mapstructure:"disk"`
		Time   float64 `mapstructure:"time"`
	} `mapstructure:"resolution"`
	Resources []string `mapstructure:"resources"`
	Modes     []string `mapstructure:"modes"`

	PrometheusURL       string `mapstructure:"prometheus_url"`
	Namespace           string `mapstructure:"namespace"`
	MetricsLookbackDays int    `mapstructure:"metrics_lookback_days"`
	CategoryLabel       string `mapstructure:"category_label"`

	StorageEnabled bool `mapstructure:"storage_enabled"`
	Storage        struct {
		Type string `mapstructure:"type"`
	} `mapstructure:"storage"`
	DatabaseURL string `mapstructure:"database_url"`

	Simulation struct {
		Seed     uint64  `mapstructure:"seed"`
		Samples  int     `mapstructure:"samples"`
		Min      float64 `mapstructure:"min"`
		Max      float64 `mapstructure:"max"`
		WallTime float64 `mapstructure:"wall_time"`
	} `mapstructure:"simulation"`

	Pricing struct {
		Cores    float64       `mapstructure:"cores"`
		Memory   float64       `mapstructure:"memory"`
		Disk     float64       `mapstructure:"disk"`
		Currency string        `mapstructure:"currency"`
		Provider string        `mapstructure:"provider"`
		File     string        `mapstructure:"file"`
		CacheTTL time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"pricing"`

	Output      string `mapstructure:"output"`
	MetricsFile string `mapstructure:"metrics_file"`
	Verbose     bool   `mapstructure:"verbose"`
}

// NewConfig creates a new configuration from defaults and environment
// variables.
func NewConfig() (*Config, error) {
	return load(newViper())
}

// Load reads a config file (YAML, JSON or TOML) on top of the defaults.
// Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return load(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Unprefixed names shared with the cost-scan tooling.
	_ = v.BindEnv("prometheus_url", EnvPrefix+"_PROMETHEUS_URL", "PROMETHEUS_URL")
	_ = v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("storage_enabled", EnvPrefix+"_STORAGE_ENABLED", "STORAGE_ENABLED")
	_ = v.BindEnv("metrics_lookback_days", EnvPrefix+"_METRICS_LOOKBACK_DAYS", "METRICS_LOOKBACK_DAYS")

	return v
}

func load(v *viper.Viper) (*Config, error) {
	var s settings
	err := v.Unmarshal(&s, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration value: %w", err)
	}

	cfg := &Config{
		Resolutions: map[models.Resource]float64{
			models.ResourceCores:  s.Resolution.Cores,
			models.ResourceMemory: s.Resolution.Memory,
			models.ResourceDisk:   s.Resolution.Disk,
		},
		TimeResolution: s.Resolution.Time,

		PrometheusURL:       s.PrometheusURL,
		Namespace:           s.Namespace,
		MetricsLookbackDays: s.MetricsLookbackDays,
		MetricsDuration:     time.Duration(s.MetricsLookbackDays) * 24 * time.Hour,
		CategoryLabel:       s.CategoryLabel,

		StorageEnabled: s.StorageEnabled,
		StorageType:    s.Storage.Type,
		DatabaseURL:    s.DatabaseURL,

		SimulationSeed:     s.Simulation.Seed,
		SimulationSamples:  s.Simulation.Samples,
		SimulationMin:      s.Simulation.Min,
		SimulationMax:      s.Simulation.Max,
		SimulationWallTime: s.Simulation.WallTime,

		UnitCosts: map[models.Resource]float64{
			models.ResourceCores:  s.Pricing.Cores,
			models.ResourceMemory: s.Pricing.Memory,
			models.ResourceDisk:   s.Pricing.Disk,
		},
		Currency:        s.Pricing.Currency,
		PricingProvider: s.Pricing.Provider,
		PriceFile:       s.Pricing.File,
		PriceCacheTTL:   s.Pricing.CacheTTL,

		OutputFormat: s.Output,
		MetricsFile:  s.MetricsFile,
		Verbose:      s.Verbose,
	}

	if cfg.Resources, err = ParseResources(s.Resources); err != nil {
		return nil, err
	}
	if cfg.Modes, err = ParseModes(s.Modes); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseModes parses optimization mode names. Blank names are skipped and
// an empty list selects every mode.
func ParseModes(names []string) ([]allocation.Mode, error) {
	var modes []allocation.Mode
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		m, err := allocation.ParseMode(name)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	if len(modes) == 0 {
		return allocation.Modes(), nil
	}
	return modes, nil
}

// ParseResources parses resource names. Blank names are skipped and an
// empty list selects the default resources.
func ParseResources(names []string) ([]models.Resource, error) {
	var resources []models.Resource
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		r, err := models.ParseResource(name)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	if len(resources) == 0 {
		return models.DefaultResources(), nil
	}
	return resources, nil
}

// Presets lists the names accepted by ApplyPreset.
var Presets = []string{"dev", "production"}

// ApplyPreset applies a named preset on top of the loaded values.
func (c *Config) ApplyPreset(name string) error {
	switch name {
	case "":
	case "dev":
		c.UseDevPreset()
	case "production":
		c.UseProductionPreset()
	default:
		return fmt.Errorf("unknown preset %q (expected one of %s)", name, strings.Join(Presets, ", "))
	}
	return nil
}

// UseDevPreset configures a short lookback for quick iteration.
func (c *Config) UseDevPreset() {
	c.MetricsLookbackDays = 3
	c.MetricsDuration = 3 * 24 * time.Hour
}

// UseProductionPreset configures a two-week lookback and finer time buckets.
func (c *Config) UseProductionPreset() {
	c.MetricsLookbackDays = 14
	c.MetricsDuration = 14 * 24 * time.Hour
	c.TimeResolution = 60
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.StorageType != "postgres" && c.StorageType != "memory" {
		return fmt.Errorf("storage type must be postgres or memory, got %q", c.StorageType)
	}
	if c.StorageEnabled && c.StorageType == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is enabled")
	}
	if c.MetricsLookbackDays < 1 {
		return fmt.Errorf("metrics lookback must be at least 1 day")
	}
	if c.MetricsLookbackDays > 90 {
		return fmt.Errorf("metrics lookback cannot exceed 90 days")
	}
	for _, r := range c.Resources {
		if c.Resolutions[r] <= 0 {
			return fmt.Errorf("resolution for %s must be > 0, got %g", r, c.Resolutions[r])
		}
	}
	if c.TimeResolution <= 0 {
		return fmt.Errorf("time resolution must be > 0, got %g", c.TimeResolution)
	}
	if c.SimulationSamples < 1 {
		return fmt.Errorf("simulation samples must be >= 1")
	}
	if c.SimulationMax <= c.SimulationMin {
		return fmt.Errorf("simulation max (%g) must be greater than min (%g)", c.SimulationMax, c.SimulationMin)
	}
	if c.SimulationWallTime <= 0 {
		return fmt.Errorf("simulation wall time must be > 0")
	}
	for r, cost := range c.UnitCosts {
		if cost < 0 {
			return fmt.Errorf("unit cost for %s must be >= 0", r)
		}
	}
	if c.PricingProvider == "file" && c.PriceFile == "" {
		return fmt.Errorf("pricing.file must be set for file pricing")
	}
	if !validOutputFormat(c.OutputFormat) {
		return fmt.Errorf("output must be one of %s", strings.Join(OutputFormats, ", "))
	}
	return nil
}

func validOutputFormat(format string) bool {
	for _, f := range OutputFormats {
		if f == format {
			return true
		}
	}
	return false
}
