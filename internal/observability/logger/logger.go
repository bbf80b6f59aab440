// Package logger provides request-scoped zap loggers that carry trace and
// request identifiers, plus masking helpers for log payloads.
package logger

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/pointagehq/pointage/internal/observability/context"
	"github.com/pointagehq/pointage/internal/observability/tracing"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// FromContext returns the global logger enriched with trace_id, span_id,
// request_id and org_id when present on the context.
func FromContext(ctx context.Context) *zap.Logger {
	log := zap.L()
	if ctx == nil {
		return log
	}

	fields := make([]zap.Field, 0, 4)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if orgID := obscontext.OrgIDFromContext(ctx); orgID != "" {
		fields = append(fields, zap.String("org_id", orgID))
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}

// MiddlewareConfig tunes the gin access-log middleware.
type MiddlewareConfig struct {
	// SkipPaths are matched against the raw request path; health probes and
	// metrics scrapes go here.
	SkipPaths []string
}

// GinMiddleware assigns a request id, propagates it on the context and the
// X-Request-Id response header, and emits one access-log line per request.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-Id", requestID)

		// Resume any inbound trace before tagging the request context, so
		// trace_id on the access log matches the caller's.
		ctx := tracing.ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx = obscontext.WithRequestID(ctx, requestID)
		c.Request = c.Request.WithContext(ctx)

		if _, skipped := skip[c.Request.URL.Path]; skipped {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		log := FromContext(c.Request.Context())
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
		}
		if actorType, actorID := obscontext.ActorFromGin(c); actorType != "" {
			fields = append(fields, zap.String("actor", actorType+":"+actorID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
			log.Warn("http request", fields...)
			return
		}
		log.Info("http request", fields...)
	}
}
