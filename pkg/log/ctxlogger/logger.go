// Package ctxlogger decorates zap loggers with the batch run and trace
// identifiers found on a context.
package ctxlogger

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/smallbiznis/loobook/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type businessKey struct{}

var serviceName atomic.Pointer[string]

// SetServiceName configures the service name added to every log entry.
func SetServiceName(name string) {
	name = strings.TrimSpace(name)
	serviceName.Store(&name)
}

// ContextWithBusiness marks the business a batch step is working on.
func ContextWithBusiness(ctx context.Context, businessID string) context.Context {
	if businessID == "" {
		return ctx
	}
	return context.WithValue(ctx, businessKey{}, businessID)
}

func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext adds service, run, business and trace fields to base. Fields
// absent from ctx are left out.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.L()
	}
	if ctx == nil {
		return base
	}

	fields := make([]zap.Field, 0, 7)
	if name := serviceName.Load(); name != nil && *name != "" {
		fields = append(fields, zap.String("service", *name))
	}
	fields = append(fields, RunFields(ctx)...)
	if business, ok := ctx.Value(businessKey{}).(string); ok {
		fields = append(fields, zap.String("business_id", business))
	}
	fields = append(fields, TraceFields(ctx)...)
	return base.With(fields...)
}

// RunFields returns the correlation id, job and period of the current run.
func RunFields(ctx context.Context) []zap.Field {
	run, ok := correlation.FromContext(ctx)
	if !ok {
		return nil
	}
	fields := []zap.Field{zap.String("correlation_id", run.ID)}
	if run.Job != "" {
		fields = append(fields, zap.String("job", run.Job))
	}
	if run.Period != "" {
		fields = append(fields, zap.String("period", run.Period))
	}
	return fields
}

func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
