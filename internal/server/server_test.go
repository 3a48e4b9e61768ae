package server

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
	"github.com/vyrodovalexey/miniexpress/internal/router"
	"github.com/vyrodovalexey/miniexpress/internal/util"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = 0
	cfg.AcceptDeadline = 50 * time.Millisecond
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

// startServer binds an ephemeral port, serves in the background, and
// stops the server when the test ends.
func startServer(t *testing.T, cfg *Config, handler http1.Handler, opts ...Option) *Server {
	t.Helper()

	srv := New(cfg, handler, opts...)
	require.NoError(t, srv.Listen(context.Background()))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	t.Cleanup(func() {
		require.NoError(t, srv.Stop(context.Background()))
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after Stop")
		}
	})
	return srv
}

// roundTrip writes raw to the server and reads until the server closes.
func roundTrip(t *testing.T, srv *Server, raw string) string {
	t.Helper()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	_, err = io.WriteString(conn, raw)
	require.NoError(t, err)

	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(data)
}

func newDispatcher(t *testing.T, register func(*router.Table)) (*router.Table, http1.Handler) {
	t.Helper()
	table := router.NewTable()
	register(table)
	return table, router.NewDispatcher(table, observability.NopLogger())
}

func TestServer_ServesRoutes(t *testing.T) {
	t.Parallel()

	table, dispatcher := newDispatcher(t, func(table *router.Table) {
		require.NoError(t, table.Get("/", http1.HandlerFunc(func(context.Context, *http1.Request) (*http1.Response, error) {
			return http1.Text(200, "Welcome"), nil
		})))
		require.NoError(t, table.Get("/user/:id", http1.HandlerFunc(func(_ context.Context, req *http1.Request) (*http1.Response, error) {
			return http1.JSON(200, map[string]string{"user_id": req.Param("id")})
		})))
	})
	srv := startServer(t, testConfig(), dispatcher, WithRouteTable(table))

	tests := []struct {
		name       string
		raw        string
		wantStatus string
		wantBody   string
	}{
		{
			name:       "root",
			raw:        "GET / HTTP/1.1\r\nHost: x\r\n\r\n",
			wantStatus: "HTTP/1.1 200 OK\r\n",
			wantBody:   "Welcome",
		},
		{
			name:       "path param",
			raw:        "GET /user/10 HTTP/1.1\r\n\r\n",
			wantStatus: "HTTP/1.1 200 OK\r\n",
			wantBody:   `{"user_id":"10"}`,
		},
		{
			name:       "not found",
			raw:        "GET /missing HTTP/1.1\r\n\r\n",
			wantStatus: "HTTP/1.1 404 Not Found\r\n",
			wantBody:   "Not Found",
		},
		{
			name:       "method mismatch",
			raw:        "POST /user/10 HTTP/1.1\r\nContent-Length: 0\r\n\r\n",
			wantStatus: "HTTP/1.1 404 Not Found\r\n",
			wantBody:   "Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := roundTrip(t, srv, tt.raw)
			assert.True(t, strings.HasPrefix(out, tt.wantStatus), out)
			assert.Contains(t, out, "Connection: close\r\n")
			assert.Contains(t, out, "Access-Control-Allow-Origin: *\r\n")
			assert.True(t, strings.HasSuffix(out, "\r\n\r\n"+tt.wantBody), out)
		})
	}

	assert.True(t, table.Frozen())
}

func TestServer_ParseErrors(t *testing.T) {
	t.Parallel()

	m := observability.NewMetrics("server_parse_errors")
	cfg := testConfig()
	cfg.MaxBodyBytes = 8
	_, dispatcher := newDispatcher(t, func(table *router.Table) {
		require.NoError(t, table.Post("/data", http1.HandlerFunc(func(context.Context, *http1.Request) (*http1.Response, error) {
			return http1.Text(201, "ok"), nil
		})))
	})
	srv := startServer(t, cfg, dispatcher, WithMetrics(m))

	tests := []struct {
		name       string
		raw        string
		wantStatus string
	}{
		{name: "malformed request line closes silently", raw: "GARBAGE\r\n\r\n", wantStatus: ""},
		{name: "two token request line", raw: "GET /\r\n\r\n", wantStatus: ""},
		{name: "malformed header", raw: "GET / HTTP/1.1\r\nNoColonHere\r\n\r\n", wantStatus: "HTTP/1.1 400 Bad Request\r\n"},
		{name: "unsupported method", raw: "BREW /pot HTTP/1.1\r\n\r\n", wantStatus: "HTTP/1.1 501 Not Implemented\r\n"},
		{name: "body too large", raw: "POST /data HTTP/1.1\r\nContent-Length: 100\r\n\r\n", wantStatus: "HTTP/1.1 413 Request Entity Too Large\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := roundTrip(t, srv, tt.raw)
			if tt.wantStatus == "" {
				assert.Empty(t, out)
				return
			}
			assert.True(t, strings.HasPrefix(out, tt.wantStatus), out)
		})
	}
}

func TestServer_IncompleteBodyClosesWithoutResponse(t *testing.T) {
	t.Parallel()

	_, dispatcher := newDispatcher(t, func(table *router.Table) {
		require.NoError(t, table.Post("/data", http1.HandlerFunc(func(context.Context, *http1.Request) (*http1.Response, error) {
			t.Error("handler must not run for an incomplete body")
			return nil, nil
		})))
	})
	srv := startServer(t, testConfig(), dispatcher)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	_, err = io.WriteString(conn, "POST /data HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc")
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestServer_ListenerSurvivesBadClients(t *testing.T) {
	t.Parallel()

	_, dispatcher := newDispatcher(t, func(table *router.Table) {
		require.NoError(t, table.Get("/", http1.HandlerFunc(func(context.Context, *http1.Request) (*http1.Response, error) {
			return http1.Text(200, "still here"), nil
		})))
	})
	srv := startServer(t, testConfig(), dispatcher)

	assert.Empty(t, roundTrip(t, srv, "nonsense\r\n\r\n"))

	// client that connects and leaves without sending anything
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	out := roundTrip(t, srv, "GET / HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasSuffix(out, "still here"), out)
}

func TestServer_HeadOmitsBody(t *testing.T) {
	t.Parallel()

	_, dispatcher := newDispatcher(t, func(table *router.Table) {
		require.NoError(t, table.Handle("HEAD", "/", http1.HandlerFunc(func(context.Context, *http1.Request) (*http1.Response, error) {
			return http1.Text(200, "hello"), nil
		})))
	})
	srv := startServer(t, testConfig(), dispatcher)

	out := roundTrip(t, srv, "HEAD / HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"), out)
	assert.Contains(t, out, "Content-Length: 5\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\n"), out)
}

func TestServer_HandlerChainErrorIs500(t *testing.T) {
	t.Parallel()

	handler := http1.HandlerFunc(func(context.Context, *http1.Request) (*http1.Response, error) {
		return nil, errors.New("middleware failed")
	})
	srv := startServer(t, testConfig(), handler)

	out := roundTrip(t, srv, "GET / HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 500 Internal Server Error\r\n"), out)
	assert.True(t, strings.HasSuffix(out, router.InternalErrorBody), out)
}

func TestServer_HandlerChainPanicClosesConnection(t *testing.T) {
	t.Parallel()

	var calls sync.WaitGroup
	calls.Add(1)
	handler := http1.HandlerFunc(func(_ context.Context, req *http1.Request) (*http1.Response, error) {
		if req.Path == "/panic" {
			calls.Done()
			panic("outside dispatcher")
		}
		return http1.Text(200, "ok"), nil
	})
	srv := startServer(t, testConfig(), handler)

	assert.Empty(t, roundTrip(t, srv, "GET /panic HTTP/1.1\r\n\r\n"))
	calls.Wait()

	out := roundTrip(t, srv, "GET / HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasSuffix(out, "ok"), out)
}

func TestServer_AttachesRequestMetadata(t *testing.T) {
	t.Parallel()

	seen := make(chan *http1.Request, 1)
	var ctxID string
	handler := http1.HandlerFunc(func(ctx context.Context, req *http1.Request) (*http1.Response, error) {
		ctxID = util.RequestIDFromContext(ctx)
		seen <- req
		return nil, nil
	})
	srv := startServer(t, testConfig(), handler)

	out := roundTrip(t, srv, "GET /echo?message=hi HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"), out)

	req := <-seen
	assert.True(t, strings.HasPrefix(req.RemoteAddr, "127.0.0.1:"))
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, req.ID, ctxID)
	assert.Equal(t, "/echo?message=hi", req.Target)
}

func TestServer_ConcurrentClients(t *testing.T) {
	t.Parallel()

	m := observability.NewMetrics("server_concurrent")
	release := make(chan struct{})
	var inFlight sync.WaitGroup
	const clients = 20
	inFlight.Add(clients)

	handler := http1.HandlerFunc(func(_ context.Context, req *http1.Request) (*http1.Response, error) {
		inFlight.Done()
		<-release
		return http1.Text(200, req.Path), nil
	})
	srv := startServer(t, testConfig(), handler, WithMetrics(m))

	results := make(chan string, clients)
	for i := 0; i < clients; i++ {
		go func() {
			results <- roundTrip(t, srv, "GET /c HTTP/1.1\r\n\r\n")
		}()
	}

	// every handler is running at once before any is allowed to finish
	inFlight.Wait()
	assert.Equal(t, clients, srv.Connections().Count())
	close(release)

	for i := 0; i < clients; i++ {
		out := <-results
		assert.True(t, strings.HasSuffix(out, "/c"), out)
	}
}

func TestServer_MaxConnectionsBlocksAccept(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MaxConnections = 1

	first := make(chan struct{})
	release := make(chan struct{})
	handler := http1.HandlerFunc(func(_ context.Context, req *http1.Request) (*http1.Response, error) {
		if req.Path == "/slow" {
			close(first)
			<-release
		}
		return http1.Text(200, req.Path), nil
	})
	srv := startServer(t, cfg, handler)

	slow := make(chan string, 1)
	go func() { slow <- roundTrip(t, srv, "GET /slow HTTP/1.1\r\n\r\n") }()
	<-first

	fast := make(chan string, 1)
	go func() { fast <- roundTrip(t, srv, "GET /fast HTTP/1.1\r\n\r\n") }()

	select {
	case out := <-fast:
		t.Fatalf("second connection served while the first held the only slot: %q", out)
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	assert.True(t, strings.HasSuffix(<-slow, "/slow"))
	assert.True(t, strings.HasSuffix(<-fast, "/fast"))
}

func TestServer_ReadTimeoutClosesIdleClient(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ReadTimeout = 100 * time.Millisecond
	srv := startServer(t, cfg, http1.HandlerFunc(func(context.Context, *http1.Request) (*http1.Response, error) {
		return nil, nil
	}))

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	_, err = io.WriteString(conn, "GET / HTTP/1.1\r\n")
	require.NoError(t, err)

	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestServer_StopWaitsForInFlight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	handler := http1.HandlerFunc(func(ctx context.Context, _ *http1.Request) (*http1.Response, error) {
		close(started)
		time.Sleep(150 * time.Millisecond)
		assert.NoError(t, ctx.Err())
		return http1.Text(200, "finished"), nil
	})

	srv := New(testConfig(), handler)
	require.NoError(t, srv.Listen(context.Background()))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	result := make(chan string, 1)
	go func() { result <- roundTrip(t, srv, "GET / HTTP/1.1\r\n\r\n") }()
	<-started

	require.NoError(t, srv.Stop(context.Background()))
	assert.True(t, strings.HasSuffix(<-result, "finished"))
	assert.NoError(t, <-done)
	assert.False(t, srv.IsRunning())
}

func TestServer_ConnAcceptedDuringStopIsNotServed(t *testing.T) {
	t.Parallel()

	var calls int
	var mu sync.Mutex
	handler := http1.HandlerFunc(func(context.Context, *http1.Request) (*http1.Response, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return http1.Text(200, "late"), nil
	})

	srv := New(testConfig(), handler)
	require.NoError(t, srv.Listen(context.Background()))
	require.NoError(t, srv.Stop(context.Background()))

	client, conn := net.Pipe()
	defer client.Close()

	assert.False(t, srv.spawnConnectionHandler(context.Background(), conn))

	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	_, err := client.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, srv.Connections().Count())

	mu.Lock()
	assert.Zero(t, calls)
	mu.Unlock()
}

func TestServer_StopForceClosesAfterTimeout(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ShutdownTimeout = 50 * time.Millisecond

	started := make(chan struct{})
	block := make(chan struct{})
	defer close(block)
	handler := http1.HandlerFunc(func(context.Context, *http1.Request) (*http1.Response, error) {
		close(started)
		<-block
		return http1.Text(200, "late"), nil
	})

	srv := New(cfg, handler)
	require.NoError(t, srv.Listen(context.Background()))
	go func() { _ = srv.Serve(context.Background()) }()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	_, err = io.WriteString(conn, "GET / HTTP/1.1\r\n\r\n")
	require.NoError(t, err)
	<-started

	require.NoError(t, srv.Stop(context.Background()))

	data, _ := io.ReadAll(conn)
	assert.Empty(t, data)
}

func TestServer_ServeReturnsContextError(t *testing.T) {
	t.Parallel()

	srv := New(testConfig(), http1.HandlerFunc(func(context.Context, *http1.Request) (*http1.Response, error) {
		return nil, nil
	}))
	require.NoError(t, srv.Listen(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not observe cancellation")
	}
	require.NoError(t, srv.Stop(context.Background()))
}

func TestServer_ListenErrors(t *testing.T) {
	t.Parallel()

	first := New(testConfig(), nil)
	require.NoError(t, first.Listen(context.Background()))
	defer func() { _ = first.Stop(context.Background()) }()

	assert.ErrorIs(t, first.Listen(context.Background()), ErrAlreadyRunning)

	port := first.Addr().(*net.TCPAddr).Port
	cfg := testConfig()
	cfg.Port = port
	second := New(cfg, nil)

	err := second.Listen(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrListenerBind)
	var listenerErr *util.ListenerError
	require.ErrorAs(t, err, &listenerErr)
	assert.Contains(t, listenerErr.Address, "127.0.0.1:")
	assert.Nil(t, second.Addr())
}

func TestServer_ServeWithoutListen(t *testing.T) {
	t.Parallel()

	srv := New(nil, nil)
	assert.ErrorIs(t, srv.Serve(context.Background()), ErrNotListening)
	assert.NoError(t, srv.Stop(context.Background()))
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.ListenAddress())
	assert.Zero(t, cfg.ReadTimeout)
	assert.Zero(t, cfg.MaxConnections)
	assert.Zero(t, cfg.MaxBodyBytes)

	empty := &Config{}
	assert.Equal(t, DefaultAcceptDeadline, empty.acceptDeadline())
	assert.Equal(t, DefaultShutdownTimeout, empty.shutdownTimeout())
}
