// Package ctxutil carries request correlation ids from the HTTP edge down
// to service and engine logs.
package ctxutil

import "context"

type requestMetaKey struct{}

type RequestMeta struct {
	TraceID   string
	RequestID string
}

func WithRequestMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, m)
}

func RequestMetaFrom(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	m, ok := ctx.Value(requestMetaKey{}).(RequestMeta)
	return m, ok
}

// LogFields returns trace_id and request_id as logger key/value pairs,
// skipping empty ids. Extra pairs are appended after them.
func LogFields(ctx context.Context, extra ...any) []any {
	m, _ := RequestMetaFrom(ctx)
	out := make([]any, 0, 4+len(extra))
	if m.TraceID != "" {
		out = append(out, "trace_id", m.TraceID)
	}
	if m.RequestID != "" {
		out = append(out, "request_id", m.RequestID)
	}
	return append(out, extra...)
}
