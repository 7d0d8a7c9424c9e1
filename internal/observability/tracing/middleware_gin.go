package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/loobook/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "loobook/reporting/http"

// GinMiddleware opens a server span per request, named after the report it
// serves. Probe routes are not traced.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		route := DescribeRoute(c.FullPath())
		if route.Probe() {
			c.Next()
			return
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, spanName(c.Request.Method, route), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route.Pattern),
			attribute.Int("http.status_code", c.Writer.Status()),
		}
		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			attrs = append(attrs, attribute.String("request_id", requestID))
		}
		if route.Report != "" {
			attrs = append(attrs, attribute.String("report.kind", route.Report))
		}
		if route.Format != "" {
			attrs = append(attrs, attribute.String("report.export_format", route.Format))
		}
		if business := strings.TrimSpace(c.Query("business_id")); business != "" {
			attrs = append(attrs, attribute.String("report.business_id", business))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if c.Writer.Status() >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, http.StatusText(c.Writer.Status()))
		}
	}
}

func spanName(method string, route Route) string {
	method = strings.ToUpper(method)
	if route.Report == "" {
		return "HTTP " + method + " " + route.Pattern
	}
	if route.Format != "" {
		return "report." + route.Report + ".export." + route.Format
	}
	return "report." + route.Report + " " + method
}
