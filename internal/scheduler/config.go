package scheduler

import (
	"time"

	"github.com/smallbiznis/loobook/internal/config"
)

// Config controls scheduler intervals and the monthly close.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	CloseDay    int
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		CloseDay:    1,
		JobTimeout:  30 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.Scheduler.Enabled,
		RunInterval: cfg.Scheduler.Interval,
		CloseDay:    cfg.Scheduler.CloseDay,
		JobTimeout:  cfg.Scheduler.JobTimeout,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	// Every month has a day 28.
	if c.CloseDay < 1 || c.CloseDay > 28 {
		c.CloseDay = defaults.CloseDay
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
