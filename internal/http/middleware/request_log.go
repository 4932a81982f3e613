package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

// RequestLogger writes one line per request once the handler chain is done,
// so it sees the caller identity set by the auth middleware.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
			fields = append(fields, "user_uuid", rd.UserID.String(), "role", rd.Role)
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, "error", errs.String())
		}

		reqLog := log.WithContext(c.Request.Context())
		logAt(reqLog, status)("http request", fields...)
	}
}

func logAt(l *logger.Logger, status int) func(string, ...interface{}) {
	switch {
	case status >= 500:
		return l.Error
	case status >= 400:
		return l.Warn
	default:
		return l.Info
	}
}
