package metrics

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OTLP instruments of live report computations. A nil
// *Metrics records nothing.
type Metrics struct {
	reportRequests  metric.Int64Counter
	reportDuration  metric.Float64Histogram
	cacheLookups    metric.Int64Counter
	recordsPerRun   metric.Int64Histogram
	recordsImported metric.Int64Counter
}

// New creates the report instruments on a meter named after the service.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "loobook-reporting"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.reportRequests, err = meter.Int64Counter("loobook_report_requests_total",
		metric.WithDescription("Report computations by operation and outcome.")); err != nil {
		return nil, err
	}
	if m.reportDuration, err = meter.Float64Histogram("loobook_report_duration_seconds",
		metric.WithDescription("Report computation latency."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.cacheLookups, err = meter.Int64Counter("loobook_report_cache_lookups_total",
		metric.WithDescription("Trend and ranking cache lookups by result.")); err != nil {
		return nil, err
	}
	if m.recordsPerRun, err = meter.Int64Histogram("loobook_report_records_scanned",
		metric.WithDescription("Transaction records loaded per report computation."),
		metric.WithExplicitBucketBoundaries(10, 100, 1_000, 10_000, 100_000)); err != nil {
		return nil, err
	}
	if m.recordsImported, err = meter.Int64Counter("loobook_records_imported_total",
		metric.WithDescription("Transaction records accepted by imports.")); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordReport counts one report computation and its latency.
func (m *Metrics) RecordReport(ctx context.Context, operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = ClassifyReportError(err)
	}
	opts := metric.WithAttributes(FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", result),
	)...)
	m.reportRequests.Add(ctx, 1, opts)
	m.reportDuration.Record(ctx, duration.Seconds(), opts)
}

func (m *Metrics) RecordCacheLookup(ctx context.Context, operation string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("result", result),
	)...))
}

// RecordRecordsFetched observes how many records one computation scanned.
// Empty windows are recorded too.
func (m *Metrics) RecordRecordsFetched(ctx context.Context, operation string, count int) {
	if m == nil || count < 0 {
		return
	}
	m.recordsPerRun.Record(ctx, int64(count), metric.WithAttributes(FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
	)...))
}

func (m *Metrics) RecordImport(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.recordsImported.Add(ctx, int64(count))
}

// Business and admin ids never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation":   {},
	"outcome":     {},
	"result":      {},
	"reason":      {},
	"route":       {},
	"method":      {},
	"status_code": {},
}

// FilterAttributes drops labels outside the allowed set.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
