// Package trace carries the request correlation ID used on outbound API calls.
//
// The ID travels in the context so the same value is sent on every attempt of a
// logical request, including retries and the resend after a token refresh.
package trace

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	traceIDKey contextKey = "trace_id"

	// HeaderXRequestID is the header the backend reads the correlation ID from.
	HeaderXRequestID = "X-Request-ID"
)

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// IDFromContext returns the trace ID stored in ctx, if any.
func IDFromContext(ctx context.Context) (string, bool) {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		return traceID, true
	}
	return "", false
}

// EnsureTraceID returns an existing trace ID from context or generates a new one
func EnsureTraceID(ctx context.Context) string {
	if traceID, ok := IDFromContext(ctx); ok {
		return traceID
	}
	return NewID()
}

// EnsureContext returns ctx carrying a trace ID together with that ID.
func EnsureContext(ctx context.Context) (context.Context, string) {
	if traceID, ok := IDFromContext(ctx); ok {
		return ctx, traceID
	}
	traceID := NewID()
	return WithTraceID(ctx, traceID), traceID
}

// NewID generates a random v4 UUID.
func NewID() string {
	return uuid.New().String()
}
