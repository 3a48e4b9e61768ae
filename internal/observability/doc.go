// Package observability provides logging, metrics, and tracing for the
// MiniExpress server.
//
// # Logging
//
// The Logger interface wraps zap. Levels can be changed at runtime:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("request received",
//	    observability.String("method", "GET"),
//	    observability.Int("status_code", 200),
//	)
//	_ = logger.SetLevel("debug")
//
// # Metrics
//
// Metrics owns a private Prometheus registry for request, connection, and
// parse error series. MetricsServer exposes it over a separate listener:
//
//	metrics := observability.NewMetrics("miniexpress")
//	srv := observability.NewMetricsServer(cfg, metrics, logger)
//
// # Tracing
//
// Tracer wraps an OpenTelemetry provider with an optional OTLP gRPC
// exporter. W3C trace context and baggage propagation are installed
// when tracing is enabled.
package observability
