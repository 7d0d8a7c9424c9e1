// Package observability wires logging, tracing and metrics for the reporting
// service.
package observability

import (
	"github.com/smallbiznis/loobook/internal/observability/logger"
	"github.com/smallbiznis/loobook/internal/observability/metrics"
	"github.com/smallbiznis/loobook/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.ReportsWithConfig,
	),
	// The tracer provider registers itself globally and has no consumers.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
