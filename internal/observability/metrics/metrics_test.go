package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsIdentifiers(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("operation", "trend"),
		attribute.String("business_id", "456"),
		attribute.String("outcome", "ok"),
	)

	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("operation"), attrs[0].Key)
	assert.Equal(t, attribute.Key("outcome"), attrs[1].Key)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetricsRecordReportInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := New(Config{}, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordReport(ctx, "aggregate", nil, 20*time.Millisecond)
	m.RecordReport(ctx, "aggregate", errors.New("boom"), time.Millisecond)
	m.RecordCacheLookup(ctx, "trend", true)
	m.RecordRecordsFetched(ctx, "aggregate", 0)
	m.RecordImport(ctx, 4)

	data := collect(t, reader)

	requests, ok := data["loobook_report_requests_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, requests.DataPoints, 2)

	scanned, ok := data["loobook_report_records_scanned"].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, scanned.DataPoints, 1)
	assert.Equal(t, uint64(1), scanned.DataPoints[0].Count)

	imported, ok := data["loobook_records_imported_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(4), imported.DataPoints[0].Value)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordReport(context.Background(), "trend", nil, time.Second)
	m.RecordCacheLookup(context.Background(), "trend", false)
	m.RecordRecordsFetched(context.Background(), "trend", 3)
	m.RecordImport(context.Background(), 3)
}
