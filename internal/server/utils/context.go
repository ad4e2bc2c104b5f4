package utils

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	SpanContextKey = "span_context"
	RequestIDKey   = "request_id"
)

// GetContextFromGinContext returns the span-carrying context stored by the tracing
// middleware, or the request context when tracing did not run.
func GetContextFromGinContext(c *gin.Context) context.Context {
	if spanCtx, exists := c.Get(SpanContextKey); exists {
		if ctx, ok := spanCtx.(context.Context); ok {
			return ctx
		}
	}
	return c.Request.Context()
}

func GetRequestIDFromGinContext(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// RequestLogger scopes base to the current request: request_id always, trace_id
// and span_id when a sampled span is active.
func RequestLogger(c *gin.Context, base *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 3)
	if id := GetRequestIDFromGinContext(c); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	sc := trace.SpanContextFromContext(GetContextFromGinContext(c))
	if sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()))
	}

	return base.With(fields...)
}
