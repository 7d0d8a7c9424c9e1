package observability

import (
	"strings"

	"github.com/smallbiznis/loobook/internal/config"
	"github.com/smallbiznis/loobook/internal/observability/logger"
	"github.com/smallbiznis/loobook/internal/observability/metrics"
	"github.com/smallbiznis/loobook/internal/observability/tracing"
)

const defaultServiceName = "loobook-reporting"

// Config is the observability view of the service configuration, shared by
// the logger, tracer and meter providers.
type Config struct {
	config.ObservabilityConfig

	ServiceName  string
	Environment  string
	Version      string
	OTLPEndpoint string
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = defaultServiceName
	}
	return Config{
		ObservabilityConfig: cfg.Observability,
		ServiceName:         name,
		Environment:         strings.TrimSpace(cfg.Environment),
		Version:             strings.TrimSpace(cfg.AppVersion),
		OTLPEndpoint:        strings.TrimSpace(cfg.OTLPEndpoint),
	}
}

// Debug reports whether verbose request logging and stack traces are on.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OTLPEndpoint,
		ExporterProtocol: c.OtelProtocol,
		SamplingRatio:    c.OtelSamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.OtelEnabled,
		ExporterEndpoint: c.OTLPEndpoint,
		ExporterProtocol: c.OtelProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
