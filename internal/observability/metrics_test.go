package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_DefaultNamespace(t *testing.T) {
	t.Parallel()

	m := NewMetrics("")
	require.NotNil(t, m.Registry())

	m.ConnectionOpened()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "miniexpress_connections_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test_record")

	m.RecordRequest("GET", "/user/:id", 200, 5*time.Millisecond, 0, 16)
	m.RecordRequest("GET", "/user/:id", 200, 7*time.Millisecond, 0, 16)
	m.RecordRequest("GET", "", 404, time.Millisecond, 0, 9)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/user/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", UnmatchedRoute, "404")))
}

func TestMetrics_Connections(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test_conns")

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeConnections))
}

func TestMetrics_ParseErrorsAndRateLimit(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test_errors")

	m.RecordParseError("malformed_headers")
	m.RecordParseError("malformed_headers")
	m.RecordRateLimitHit("GET")
	m.SetBuildInfo("1.0.0", "abc", "now")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.parseErrors.WithLabelValues("malformed_headers")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimitHits.WithLabelValues("GET")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.buildInfo.WithLabelValues("1.0.0", "abc", "now")))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test_handler")
	m.RecordRequest("POST", "/data", 201, time.Millisecond, 12, 8)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body),
		`test_handler_requests_total{method="POST",route="/data",status="201"} 1`))
}

func TestMetricsServer_StartStop(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test_server")
	m.ConnectionOpened()

	srv := NewMetricsServer(MetricsServerConfig{Address: "127.0.0.1:0"}, m, NopLogger())
	assert.Nil(t, srv.Addr())
	require.NoError(t, srv.Start())
	defer func() { _ = srv.Stop(t.Context()) }()

	addr := srv.Addr()
	require.NotNil(t, addr)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_server_connections_total 1")

	resp, err = http.Get("http://" + addr.String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsServer_ExtraHandlers(t *testing.T) {
	t.Parallel()

	srv := NewMetricsServer(MetricsServerConfig{Address: "127.0.0.1:0"}, NewMetrics("test_extra"), nil)
	srv.Handle("/ready", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	srv.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	require.NoError(t, srv.Start())
	defer func() { _ = srv.Stop(t.Context()) }()

	base := "http://" + srv.Addr().String()

	resp, err := http.Get(base + "/ready")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(base + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestMetricsServer_BindError(t *testing.T) {
	t.Parallel()

	srv := NewMetricsServer(MetricsServerConfig{Address: "256.0.0.1:bad"}, NewMetrics("test_bind"), nil)
	assert.Error(t, srv.Start())
	assert.NoError(t, srv.Stop(t.Context()))
}

func TestDefaultMetricsServerConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultMetricsServerConfig()
	assert.Equal(t, ":9091", cfg.Address)
	assert.Equal(t, "/metrics", cfg.Path)
}
