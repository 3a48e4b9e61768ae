package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
	"github.com/vyrodovalexey/miniexpress/internal/router"
	"github.com/vyrodovalexey/miniexpress/internal/util"
)

// ErrNotListening is returned by Serve when Listen has not succeeded.
var ErrNotListening = errors.New("server is not listening")

// ErrAlreadyRunning is returned when Listen or Serve is called twice.
var ErrAlreadyRunning = errors.New("server already running")

// Server accepts connections and serves one request on each.
type Server struct {
	config      *Config
	handler     http1.Handler
	table       *router.Table
	logger      observability.Logger
	metrics     *observability.Metrics
	connections *ConnectionTracker
	sem         *semaphore.Weighted

	listener   net.Listener
	wg         sync.WaitGroup
	mu         sync.RWMutex
	running    bool
	serving    bool
	stopCh     chan struct{}
	cancelFunc context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records connection and parse error metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithRouteTable makes Serve freeze table before the first connection
// is accepted.
func WithRouteTable(table *router.Table) Option {
	return func(s *Server) {
		s.table = table
	}
}

// New creates a server that passes every parsed request to handler.
func New(config *Config, handler http1.Handler, opts ...Option) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		config:  config,
		handler: handler,
		logger:  observability.NopLogger(),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.connections = NewConnectionTracker(s.logger)
	if config.MaxConnections > 0 {
		s.sem = semaphore.NewWeighted(int64(config.MaxConnections))
	}

	return s
}

// Connections returns the connection tracker.
func (s *Server) Connections() *ConnectionTracker {
	return s.connections
}

// Listen binds the configured address. A bind failure is returned as a
// util.ListenerError.
func (s *Server) Listen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	addr := s.config.ListenAddress()
	lc := &net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return util.NewListenerError(addr, err)
	}

	s.listener = listener
	s.running = true
	s.stopCh = make(chan struct{})

	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning reports whether the server holds a bound listener.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ListenAndServe binds and serves until ctx is cancelled or Stop is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the accept loop on the listener bound by Listen. It
// returns nil after Stop and ctx.Err() after cancellation.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotListening
	}
	if s.serving {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	serverCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	s.serving = true
	s.mu.Unlock()
	defer cancel()

	if s.table != nil {
		s.table.Freeze()
	}

	s.logger.Info("server listening",
		observability.String("address", s.listener.Addr().String()),
		observability.Duration("read_timeout", s.config.ReadTimeout),
		observability.Duration("write_timeout", s.config.WriteTimeout),
		observability.Int("max_connections", s.config.MaxConnections),
		observability.Int("max_header_bytes", s.config.MaxHeaderBytes),
		observability.Int64("max_body_bytes", s.config.MaxBodyBytes),
	)

	// Stop cancels serverCtx; handlers keep ctx values but finish their
	// request under the shutdown timeout instead.
	connCtx := context.WithoutCancel(ctx)

	return s.acceptLoop(serverCtx, connCtx, s.config.acceptDeadline())
}

// acceptLoop runs the main connection accept loop.
func (s *Server) acceptLoop(serverCtx, connCtx context.Context, acceptDeadline time.Duration) error {
	for {
		if err := s.checkShutdown(serverCtx); err != nil {
			return err
		}
		if s.isStopping() {
			return nil
		}

		if s.sem != nil {
			if err := s.sem.Acquire(serverCtx, 1); err != nil {
				return s.handleAcceptShutdown(serverCtx)
			}
		}

		if err := s.setAcceptDeadline(acceptDeadline); err != nil {
			s.logger.Warn("failed to set accept deadline", observability.Error(err))
		}

		conn, err := s.listener.Accept()
		if err != nil {
			s.release()
			if s.shouldContinueOnError(serverCtx, err) {
				continue
			}
			return s.handleAcceptShutdown(serverCtx)
		}

		s.spawnConnectionHandler(connCtx, conn)
	}
}

// checkShutdown returns ctx.Err() once the server context is done.
func (s *Server) checkShutdown(serverCtx context.Context) error {
	select {
	case <-serverCtx.Done():
		if s.isStopping() {
			return nil
		}
		return serverCtx.Err()
	default:
		return nil
	}
}

func (s *Server) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// shouldContinueOnError reports whether the accept loop survives err.
func (s *Server) shouldContinueOnError(serverCtx context.Context, err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	select {
	case <-serverCtx.Done():
		return false
	case <-s.stopCh:
		return false
	default:
	}

	if errors.Is(err, net.ErrClosed) {
		return false
	}
	s.logger.Error("accept error", observability.Error(err))
	return true
}

// handleAcceptShutdown picks the return value once the loop must exit.
func (s *Server) handleAcceptShutdown(serverCtx context.Context) error {
	if s.isStopping() {
		return nil
	}
	return serverCtx.Err()
}

func (s *Server) release() {
	if s.sem != nil {
		s.sem.Release(1)
	}
}

// setAcceptDeadline sets the accept deadline on the listener when supported.
func (s *Server) setAcceptDeadline(deadline time.Duration) error {
	if l, ok := s.listener.(interface{ SetDeadline(time.Time) error }); ok {
		return l.SetDeadline(time.Now().Add(deadline))
	}
	return nil
}

// spawnConnectionHandler serves conn on its own goroutine. A conn
// accepted after Stop began is closed unserved; the check and wg.Add
// share the lock Stop takes before it waits on wg.
func (s *Server) spawnConnectionHandler(ctx context.Context, conn net.Conn) bool {
	s.mu.RLock()
	if s.isStopping() {
		s.mu.RUnlock()
		_ = conn.Close()
		s.release()
		return false
	}
	s.wg.Add(1)
	s.mu.RUnlock()

	go func() {
		defer s.wg.Done()
		defer s.release()
		s.handleConnection(ctx, conn)
	}()
	return true
}

// handleConnection reads one request from conn, runs the handler, writes
// the response, and closes conn. Nothing that goes wrong here reaches
// the accept loop.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	tracked := s.connections.Add(conn)
	if s.metrics != nil {
		s.metrics.ConnectionOpened()
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("connection handler panic",
				observability.String("conn_id", tracked.ID),
				observability.Any("error", rec),
				observability.String("stack", string(debug.Stack())),
			)
		}
		_ = conn.Close()
		s.connections.Remove(tracked.ID)
		if s.metrics != nil {
			s.metrics.ConnectionClosed()
		}

		bytesIn, bytesOut, duration := tracked.Stats()
		s.logger.Debug("connection closed",
			observability.String("conn_id", tracked.ID),
			observability.Int64("bytes_in", bytesIn),
			observability.Int64("bytes_out", bytesOut),
			observability.Duration("duration", duration),
		)
	}()

	cc := &countingConn{Conn: conn, tracked: tracked}

	if s.config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	reader := &http1.Reader{
		BR:             bufio.NewReader(cc),
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		MaxBodyBytes:   s.config.MaxBodyBytes,
	}
	req, err := reader.ReadRequest()
	if err != nil {
		s.handleParseError(cc, tracked, err)
		return
	}
	req.RemoteAddr = tracked.RemoteAddr
	req.ID = tracked.ID

	ctx = util.ContextWithRequestID(ctx, req.ID)
	resp, err := s.handler.Handle(ctx, req)
	if err != nil {
		s.logger.Error("handler chain failed",
			observability.String("conn_id", tracked.ID),
			observability.String("method", req.Method),
			observability.String("path", req.Path),
			observability.Error(err),
		)
		resp = http1.Text(500, router.InternalErrorBody)
	}

	s.writeResponse(cc, tracked, resp, req.Method == http1.MethodHead)
}

// handleParseError answers a request that failed to parse, or closes
// silently when no answer is owed.
func (s *Server) handleParseError(conn net.Conn, tracked *TrackedConnection, err error) {
	kind := http1.ErrorKind(err)
	if kind == "eof" {
		s.logger.Debug("connection closed before request",
			observability.String("conn_id", tracked.ID),
		)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordParseError(kind)
	}

	status, respond := http1.StatusForError(err)
	s.logger.Warn("failed to parse request",
		observability.String("conn_id", tracked.ID),
		observability.String("remote_addr", tracked.RemoteAddr),
		observability.String("kind", kind),
		observability.Bool("responded", respond),
		observability.Error(err),
	)
	if !respond {
		return
	}

	s.writeResponse(conn, tracked, http1.Text(status, http1.StatusText(status)), false)
}

func (s *Server) writeResponse(conn net.Conn, tracked *TrackedConnection, resp *http1.Response, omitBody bool) {
	if s.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	if err := http1.WriteResponse(bufio.NewWriter(conn), resp, omitBody); err != nil {
		s.logger.Debug("failed to write response",
			observability.String("conn_id", tracked.ID),
			observability.Error(err),
		)
	}
}

// Stop stops accepting, waits for in-flight connections up to the
// shutdown timeout, then force closes whatever remains.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	shutdownTimeout := s.config.shutdownTimeout()
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	listener := s.listener
	s.mu.Unlock()

	s.logger.Info("stopping server",
		observability.Duration("shutdown_timeout", shutdownTimeout),
		observability.Int("active_connections", s.connections.Count()),
	)

	var closeErr error
	if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		closeErr = fmt.Errorf("failed to close listener: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.waitForConnectionsOrTimeout(shutdownCtx)

	s.mu.Lock()
	s.running = false
	s.serving = false
	s.cancelFunc = nil
	s.mu.Unlock()

	s.logger.Info("server stopped")
	return closeErr
}

// waitForConnectionsOrTimeout waits for handlers to finish, force
// closing their connections if the deadline passes first.
func (s *Server) waitForConnectionsOrTimeout(shutdownCtx context.Context) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("all connections closed gracefully")
	case <-shutdownCtx.Done():
		s.logger.Warn("graceful shutdown timed out, force closing remaining connections",
			observability.Int("remaining_connections", s.connections.Count()),
		)
		s.connections.CloseAll()

		select {
		case <-done:
		case <-time.After(time.Second):
			s.logger.Warn("some connection handlers may still be running")
		}
	}
}
