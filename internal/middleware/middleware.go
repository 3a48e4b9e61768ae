package middleware

import (
	"github.com/vyrodovalexey/miniexpress/internal/http1"
)

// Header names used by the middleware.
const (
	HeaderContentType   = "Content-Type"
	HeaderRetryAfter    = "Retry-After"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXForwardedFor = "X-Forwarded-For"
)

// Middleware wraps a handler.
type Middleware func(next http1.Handler) http1.Handler

// Chain wraps h with mws. mws[0] is the outermost layer, so it sees the
// request first and the response last.
func Chain(h http1.Handler, mws ...Middleware) http1.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		h = mws[i](h)
	}
	return h
}

// statusOf returns the status a response will be written with.
func statusOf(resp *http1.Response) int {
	if resp == nil || resp.StatusCode == 0 {
		return 200
	}
	return resp.StatusCode
}

func bodySize(resp *http1.Response) int {
	if resp == nil {
		return 0
	}
	return len(resp.Body)
}
