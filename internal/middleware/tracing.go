package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
)

// Tracing returns a middleware that starts a server span per request.
// An incoming traceparent header makes the span a child of the caller's.
func Tracing(tracer *observability.Tracer) Middleware {
	return func(next http1.Handler) http1.Handler {
		if tracer == nil {
			return next
		}
		return http1.HandlerFunc(func(ctx context.Context, req *http1.Request) (*http1.Response, error) {
			ctx = tracer.Propagator().Extract(ctx, req.Header)

			ctx, span := tracer.StartSpan(ctx, req.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("url.path", req.Path),
					attribute.String("url.query", req.RawQuery),
					attribute.String("client.address", req.RemoteAddr),
					attribute.String("user_agent.original", req.Header.Get("User-Agent")),
				),
			)
			defer span.End()

			resp, err := next.Handle(ctx, req)

			if route := req.Route(); route != "" {
				span.SetName(req.Method + " " + route)
				span.SetAttributes(attribute.String("http.route", route))
			}
			status := statusOf(resp)
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case status >= 500:
				span.SetStatus(codes.Error, http1.StatusText(status))
			}

			return resp, err
		})
	}
}
