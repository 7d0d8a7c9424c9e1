package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReportingConfig holds the reporting knobs that can change without a restart.
type ReportingConfig struct {
	BulkConcurrency  int           `mapstructure:"bulkConcurrency"`
	DefaultPageSize  int           `mapstructure:"defaultPageSize"`
	CacheTTL         time.Duration `mapstructure:"cacheTTL"`
	BulkLockTTL      time.Duration `mapstructure:"bulkLockTTL"`
	DefaultTimeField string        `mapstructure:"defaultTimeField"`
}

func DefaultReportingConfig() ReportingConfig {
	return ReportingConfig{
		BulkConcurrency:  4,
		DefaultPageSize:  20,
		CacheTTL:         30 * time.Second,
		BulkLockTTL:      10 * time.Minute,
		DefaultTimeField: "created_at",
	}
}

type ReportingConfigHolder struct {
	current atomic.Value // holds ReportingConfig
}

// NewStaticReportingConfigHolder returns a holder that never reloads.
func NewStaticReportingConfigHolder(cfg ReportingConfig) *ReportingConfigHolder {
	holder := &ReportingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewReportingConfigHolder() (*ReportingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("reporting")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/loobook/config")
	v.AddConfigPath("/etc/loobook")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LOOBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReportingConfig()
	v.SetDefault("reporting.bulkConcurrency", defaults.BulkConcurrency)
	v.SetDefault("reporting.defaultPageSize", defaults.DefaultPageSize)
	v.SetDefault("reporting.cacheTTL", defaults.CacheTTL)
	v.SetDefault("reporting.bulkLockTTL", defaults.BulkLockTTL)
	v.SetDefault("reporting.defaultTimeField", defaults.DefaultTimeField)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg ReportingConfig
	if err := v.UnmarshalKey("reporting", &cfg); err != nil {
		return nil, err
	}
	if err := validateReportingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticReportingConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReportingConfig
		if err := v.UnmarshalKey("reporting", &updated); err != nil {
			log.Printf("[reporting-config] reload failed: %v", err)
			return
		}
		if err := validateReportingConfig(updated); err != nil {
			log.Printf("[reporting-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[reporting-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Get returns the current settings. A nil holder yields the defaults.
func (h *ReportingConfigHolder) Get() ReportingConfig {
	if h == nil {
		return DefaultReportingConfig()
	}
	return h.current.Load().(ReportingConfig)
}

func validateReportingConfig(cfg ReportingConfig) error {
	if cfg.BulkConcurrency < 1 || cfg.BulkConcurrency > 64 {
		return errors.New("reporting.bulkConcurrency must be between 1 and 64")
	}
	if cfg.DefaultPageSize < 1 || cfg.DefaultPageSize > 250 {
		return errors.New("reporting.defaultPageSize must be between 1 and 250")
	}
	if cfg.CacheTTL < 0 {
		return errors.New("reporting.cacheTTL cannot be negative")
	}
	if cfg.BulkLockTTL <= 0 {
		return errors.New("reporting.bulkLockTTL must be positive")
	}
	switch cfg.DefaultTimeField {
	case "created_at", "booking_start":
	default:
		return errors.New("reporting.defaultTimeField must be created_at or booking_start")
	}
	return nil
}
