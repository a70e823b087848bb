package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext puts correlation ids on the request context and echoes
// them back. The trace id prefers the caller's header, then the active otel
// span, then a fresh uuid.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := ctxutil.RequestMeta{
			RequestID: headerOr(c, headerRequestID, ""),
			TraceID:   headerOr(c, headerTraceID, spanTraceID(c)),
		}
		if meta.RequestID == "" {
			meta.RequestID = uuid.NewString()
		}
		if meta.TraceID == "" {
			meta.TraceID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestMeta(c.Request.Context(), meta))
		c.Writer.Header().Set(headerTraceID, meta.TraceID)
		c.Writer.Header().Set(headerRequestID, meta.RequestID)
		c.Next()
	}
}

func headerOr(c *gin.Context, name, def string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
		return v
	}
	return def
}

func spanTraceID(c *gin.Context) string {
	sc := trace.SpanContextFromContext(c.Request.Context())
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
