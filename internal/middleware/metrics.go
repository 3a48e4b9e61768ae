package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
)

// middlewareMetrics contains package-level counters for middleware decisions.
type middlewareMetrics struct {
	panicsRecovered    prometheus.Counter
	rateLimitRejected  prometheus.Counter
	preflightsAnswered prometheus.Counter
}

var (
	middlewareMetricsInstance *middlewareMetrics
	middlewareMetricsOnce     sync.Once
)

// getMiddlewareMetrics returns the singleton middleware metrics instance.
func getMiddlewareMetrics() *middlewareMetrics {
	middlewareMetricsOnce.Do(func() {
		middlewareMetricsInstance = &middlewareMetrics{
			panicsRecovered: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "miniexpress",
				Subsystem: "middleware",
				Name:      "panics_recovered_total",
				Help:      "Total number of panics recovered by the recovery middleware",
			}),
			rateLimitRejected: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "miniexpress",
				Subsystem: "middleware",
				Name:      "rate_limit_rejected_total",
				Help:      "Total number of requests rejected by the rate limiter",
			}),
			preflightsAnswered: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "miniexpress",
				Subsystem: "middleware",
				Name:      "preflights_answered_total",
				Help:      "Total number of CORS preflight requests answered",
			}),
		}
	})
	return middlewareMetricsInstance
}

// Metrics returns a middleware that records request metrics. The route
// label is the matched pattern read after the inner handler returns, so
// raw paths never become label values.
func Metrics(metrics *observability.Metrics) Middleware {
	return func(next http1.Handler) http1.Handler {
		if metrics == nil {
			return next
		}
		return http1.HandlerFunc(func(ctx context.Context, req *http1.Request) (*http1.Response, error) {
			start := time.Now()

			resp, err := next.Handle(ctx, req)

			status := statusOf(resp)
			if err != nil {
				status = 500
			}
			metrics.RecordRequest(
				req.Method, req.Route(), status,
				time.Since(start),
				int64(len(req.Body)), int64(bodySize(resp)),
			)
			return resp, err
		})
	}
}
