package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/ctxutil"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

// RequestLogger logs one line per request. 4xx logs at Warn, 5xx at Error.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := ctxutil.LogFields(c.Request.Context(),
			"method", c.Request.Method,
			"route", routeOf(c),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if err := c.Errors.Last(); err != nil {
			fields = append(fields, "error", err.Error())
		}
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Debug("HTTP request", fields...)
		}
	}
}

// routeOf prefers the matched route template so ids stay out of log and
// metric labels.
func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}
