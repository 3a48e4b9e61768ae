package router

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// dispatchMetrics contains Prometheus metrics for route dispatch.
type dispatchMetrics struct {
	matched         prometheus.Counter
	notFound        prometheus.Counter
	handlerFailures prometheus.Counter
	panicsRecovered prometheus.Counter
}

var (
	dispatchMetricsInstance *dispatchMetrics
	dispatchMetricsOnce     sync.Once
)

// getDispatchMetrics returns the singleton dispatch metrics instance.
func getDispatchMetrics() *dispatchMetrics {
	dispatchMetricsOnce.Do(func() {
		dispatchMetricsInstance = &dispatchMetrics{
			matched: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "miniexpress",
					Subsystem: "router",
					Name:      "matched_total",
					Help:      "Total number of requests that matched a route",
				},
			),
			notFound: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "miniexpress",
					Subsystem: "router",
					Name:      "not_found_total",
					Help:      "Total number of requests that matched no route",
				},
			),
			handlerFailures: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "miniexpress",
					Subsystem: "router",
					Name:      "handler_failures_total",
					Help:      "Total number of handler errors and panics answered with 500",
				},
			),
			panicsRecovered: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "miniexpress",
					Subsystem: "router",
					Name:      "panics_recovered_total",
					Help:      "Total number of handler panics recovered",
				},
			),
		}
	})
	return dispatchMetricsInstance
}
