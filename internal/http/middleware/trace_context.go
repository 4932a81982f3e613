package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext stamps every request with a trace id and a request id,
// echoes both as response headers and stores them for loggers and outbound calls.
// It must run after otelgin so an active span's trace id wins.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		td := &ctxutil.TraceData{
			TraceID:   traceIDFor(c),
			RequestID: firstNonEmpty(c.GetHeader(headerRequestID), uuid.NewString()),
		}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Header(headerTraceID, td.TraceID)
		c.Header(headerRequestID, td.RequestID)
		c.Next()
	}
}

func traceIDFor(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return firstNonEmpty(c.GetHeader(headerTraceID), uuid.NewString())
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
