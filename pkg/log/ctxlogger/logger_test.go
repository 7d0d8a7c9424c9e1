package ctxlogger

import (
	"context"
	"testing"

	"github.com/smallbiznis/loobook/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsRunFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetServiceName("reportctl")

	ctx := correlation.WithRun(context.Background(), correlation.Run{ID: "run-42", Job: "reportctl.bulk"})
	ctx = correlation.WithPeriod(ctx, 2026, 3)
	ctx = ContextWithBusiness(ctx, "17")
	WithContext(ctx, zap.New(core)).Info("started")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "run-42", fields["correlation_id"])
		assert.Equal(t, "reportctl.bulk", fields["job"])
		assert.Equal(t, "2026-03", fields["period"])
		assert.Equal(t, "17", fields["business_id"])
		assert.Equal(t, "reportctl", fields["service"])
		assert.NotContains(t, fields, "trace_id")
	}
}

func TestWithContextOutsideRun(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetServiceName("")

	WithContext(context.Background(), zap.New(core)).Info("idle")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Empty(t, entries[0].ContextMap())
	}
}

func TestTraceFields(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	fields := TraceFields(ctx)
	if assert.Len(t, fields, 2) {
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields[0].String)
		assert.Equal(t, "00f067aa0ba902b7", fields[1].String)
	}
}
