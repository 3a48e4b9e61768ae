// Package health provides liveness and readiness probes for MiniExpress.
//
// The probes are plain net/http handlers mounted on the metrics
// listener, so they stay reachable when the application port is
// saturated:
//
//	checker := health.NewChecker(version)
//	checker.RegisterCheck("server", func() health.Check { ... })
//	mux.Handle("/health", checker.HealthHandler())
//	mux.Handle("/ready", checker.ReadinessHandler())
//	mux.Handle("/live", checker.LivenessHandler())
//
// SetDraining marks the process as shutting down; readiness then
// reports unhealthy regardless of the registered checks.
package health
