package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

// MetricsServerConfig holds configuration for the metrics endpoint.
type MetricsServerConfig struct {
	Address      string
	Path         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultMetricsServerConfig returns a MetricsServerConfig with default values.
func DefaultMetricsServerConfig() MetricsServerConfig {
	return MetricsServerConfig{
		Address:      ":9091",
		Path:         "/metrics",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// MetricsServer serves Prometheus metrics on a listener separate from
// the application port.
type MetricsServer struct {
	config   MetricsServerConfig
	metrics  *Metrics
	logger   Logger
	server   *http.Server
	listener net.Listener
	extra    map[string]http.Handler
	mu       sync.Mutex
	stopOnce sync.Once
}

// NewMetricsServer creates a new metrics server.
func NewMetricsServer(cfg MetricsServerConfig, metrics *Metrics, logger Logger) *MetricsServer {
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &MetricsServer{
		config:  cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Handle mounts an additional handler, such as a readiness probe, on
// the metrics listener. It must be called before Start. A handler for
// "/health" replaces the built-in one.
func (s *MetricsServer) Handle(pattern string, handler http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extra == nil {
		s.extra = make(map[string]http.Handler)
	}
	s.extra[pattern] = handler
}

// Start binds the listener and serves in the background. Bind errors
// are returned synchronously.
func (s *MetricsServer) Start() error {
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, s.metrics.Handler())

	s.mu.Lock()
	for pattern, h := range s.extra {
		mux.Handle(pattern, h)
	}
	_, hasHealth := s.extra["/health"]
	s.mu.Unlock()

	if !hasHealth {
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("OK")); err != nil {
				s.logger.Debug("failed to write health response", Error(err))
			}
		})
	}

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.server = &http.Server{
		Handler:           mux,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("starting metrics server",
		String("address", ln.Addr().String()),
		String("path", s.config.Path),
	)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *MetricsServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the metrics server down.
func (s *MetricsServer) Stop(ctx context.Context) error {
	var stopErr error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		srv := s.server
		s.mu.Unlock()
		if srv == nil {
			return
		}
		s.logger.Info("stopping metrics server")
		stopErr = srv.Shutdown(ctx)
	})
	return stopErr
}
