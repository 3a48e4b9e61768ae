package main

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/miniexpress/internal/app"
	"github.com/vyrodovalexey/miniexpress/internal/config"
	"github.com/vyrodovalexey/miniexpress/internal/health"
	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/middleware"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
	"github.com/vyrodovalexey/miniexpress/internal/router"
	"github.com/vyrodovalexey/miniexpress/internal/server"
	"github.com/vyrodovalexey/miniexpress/internal/static"
	"github.com/vyrodovalexey/miniexpress/internal/store"
)

// application holds all application components.
type application struct {
	config        *config.Config
	logger        observability.Logger
	server        *server.Server
	table         *router.Table
	records       *store.Store
	metrics       *observability.Metrics
	metricsServer *observability.MetricsServer
	tracer        *observability.Tracer
	rateLimiter   *middleware.RateLimiter
	health        *health.Checker

	done chan error
}

// newApplication builds every component from cfg. Nothing is bound
// until start.
func newApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (*application, error) {
	a := &application{
		config:  cfg,
		logger:  logger,
		table:   router.NewTable(),
		records: store.New(),
		metrics: observability.NewMetrics(""),
		health:  health.NewChecker(version),
		done:    make(chan error, 1),
	}
	a.metrics.SetBuildInfo(version, gitCommit, buildTime)

	tracer, err := observability.NewTracer(ctx, observability.TracerConfig{
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Enabled:      cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	a.tracer = tracer

	if err := app.New(a.records, logger).Register(a.table); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	if cfg.RateLimit.Enabled {
		a.rateLimiter = middleware.NewRateLimiter(
			cfg.RateLimit.RequestsPerSecond,
			cfg.RateLimit.Burst,
			cfg.RateLimit.PerClient,
			middleware.WithRateLimiterLogger(logger),
			middleware.WithRateLimiterMetrics(a.metrics),
		)
	}

	if cfg.Metrics.Enabled {
		msCfg := observability.DefaultMetricsServerConfig()
		msCfg.Address = cfg.Metrics.Address
		msCfg.Path = cfg.Metrics.Path
		a.metricsServer = observability.NewMetricsServer(msCfg, a.metrics, logger)
		a.metricsServer.Handle("/health", a.health.HealthHandler())
		a.metricsServer.Handle("/ready", a.health.ReadinessHandler())
		a.metricsServer.Handle("/live", a.health.LivenessHandler())
	}

	a.server = server.New(serverConfig(cfg.Server), a.buildHandler(),
		server.WithLogger(logger),
		server.WithMetrics(a.metrics),
		server.WithRouteTable(a.table),
	)
	a.health.RegisterCheck("server", a.serverCheck)

	for _, r := range a.table.Routes() {
		fields := []observability.Field{
			observability.String("method", r.Method),
			observability.String("pattern", r.Pattern),
		}
		if tmpl, ok := r.Matcher.(*router.Template); ok {
			fields = append(fields, observability.Strings("params", tmpl.ParamNames()))
		}
		logger.Debug("route registered", fields...)
	}

	logger.Info("application initialized",
		observability.Int("routes", a.table.Len()),
		observability.Int("static_mounts", len(cfg.Static)),
		observability.Bool("preflight", cfg.CORS.Preflight),
		observability.Bool("rate_limit", cfg.RateLimit.Enabled),
		observability.Bool("metrics", cfg.Metrics.Enabled),
		observability.Bool("tracing", cfg.Tracing.Enabled),
	)
	return a, nil
}

// buildHandler assembles the request pipeline. The first middleware is
// the outermost.
func (a *application) buildHandler() http1.Handler {
	mws := []middleware.Middleware{
		middleware.RequestID(),
		middleware.Logging(a.logger),
		middleware.Recovery(a.logger),
		middleware.Metrics(a.metrics),
		middleware.Tracing(a.tracer),
	}
	if a.rateLimiter != nil {
		mws = append(mws, middleware.RateLimit(a.rateLimiter))
	}
	if a.config.CORS.Preflight {
		mws = append(mws, middleware.Preflight(middleware.PreflightConfig{
			AllowMethods: a.config.CORS.AllowMethods,
			AllowHeaders: a.config.CORS.AllowHeaders,
		}))
	}
	files := static.New(staticMounts(a.config.Static), a.logger)
	for _, m := range files.Mounts() {
		a.logger.Debug("static mount",
			observability.String("prefix", m.Prefix),
			observability.String("directory", m.Directory),
		)
	}
	mws = append(mws, files.Middleware())

	return middleware.Chain(router.NewDispatcher(a.table, a.logger), mws...)
}

// start binds the listeners and serves in the background. Serve's
// result is delivered on a.done.
func (a *application) start(ctx context.Context) error {
	if err := a.server.Listen(ctx); err != nil {
		return err
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Start(); err != nil {
			return err
		}
	}
	if a.rateLimiter != nil {
		a.rateLimiter.StartAutoCleanup()
	}

	go func() {
		a.done <- a.server.Serve(ctx)
	}()
	return nil
}

func (a *application) serverCheck() health.Check {
	if !a.server.IsRunning() {
		return health.Check{Status: health.StatusUnhealthy, Message: "listener not bound"}
	}
	return health.Check{Status: health.StatusHealthy}
}

// shutdown stops every component. Errors are logged.
func (a *application) shutdown(ctx context.Context) {
	a.health.SetDraining(true)

	if err := a.server.Stop(ctx); err != nil {
		a.logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Stop(ctx); err != nil {
			a.logger.Error("failed to stop metrics server", observability.Error(err))
		}
	}

	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}

	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Error("failed to shutdown tracer", observability.Error(err))
	}
}

func serverConfig(c config.ServerConfig) *server.Config {
	return &server.Config{
		Address:         c.Address,
		Port:            c.Port,
		ReadTimeout:     c.ReadTimeout.Duration(),
		WriteTimeout:    c.WriteTimeout.Duration(),
		ShutdownTimeout: c.ShutdownTimeout.Duration(),
		AcceptDeadline:  c.AcceptDeadline.Duration(),
		MaxConnections:  c.MaxConnections,
		MaxHeaderBytes:  c.MaxHeaderBytes,
		MaxBodyBytes:    c.MaxBodyBytes,
	}
}

func staticMounts(mounts []config.StaticMount) []static.Mount {
	out := make([]static.Mount, 0, len(mounts))
	for _, m := range mounts {
		out = append(out, static.Mount{Prefix: m.Prefix, Directory: m.Directory})
	}
	return out
}
