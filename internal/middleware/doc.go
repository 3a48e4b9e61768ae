// Package middleware provides request middleware for the MiniExpress
// server.
//
// A Middleware wraps an http1.Handler. Chain composes them so the first
// argument is outermost:
//
//	handler := middleware.Chain(dispatcher,
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	    middleware.Recovery(logger),
//	    middleware.Metrics(metrics),
//	)
//
// Components:
//
//   - RequestID: request identifier from X-Request-ID or a new UUID
//   - Logging: "request received" and "request completed" log lines
//   - Recovery: panic recovery for middleware below it
//   - Metrics: Prometheus request series labelled by matched route
//   - Tracing: OpenTelemetry server spans with traceparent extraction
//   - RateLimit: token bucket limiting, global or per client
//   - Preflight: CORS preflight answers for OPTIONS requests
package middleware
