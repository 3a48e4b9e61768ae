package util

import (
	"context"
	"time"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	clientAddrKey
	startTimeKey
)

// ContextWithRequestID returns a context carrying the request ID.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithClientAddr returns a context carrying the client address.
func ContextWithClientAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientAddrKey, addr)
}

// ClientAddrFromContext returns the client address, or "".
func ClientAddrFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(clientAddrKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithStartTime returns a context carrying the time the request
// started being handled.
func ContextWithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey, t)
}

// StartTimeFromContext returns the start time, or the zero time.
func StartTimeFromContext(ctx context.Context) time.Time {
	if v, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// ElapsedTime returns the time since the start time stored in ctx, or
// zero if none is stored.
func ElapsedTime(ctx context.Context) time.Duration {
	start := StartTimeFromContext(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}
