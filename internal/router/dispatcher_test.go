package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
)

func newRequest(method, path string) *http1.Request {
	return &http1.Request{
		Method: method,
		Target: path,
		Path:   path,
		Proto:  "HTTP/1.1",
		Query:  map[string]string{},
		Header: http1.Header{},
		Body:   []byte{},
		ID:     "test-request",
	}
}

func newTestDispatcher(t *testing.T, register func(*Table)) *Dispatcher {
	t.Helper()
	table := NewTable()
	register(table)
	table.Freeze()
	return NewDispatcher(table, observability.NopLogger())
}

func TestDispatcher_NotFound(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, func(table *Table) {
		require.NoError(t, table.Get("/user/:id", textHandler("user")))
	})

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "unknown path", method: "GET", path: "/missing"},
		{name: "method mismatch", method: "POST", path: "/user/1"},
		{name: "head does not fall back to get", method: "HEAD", path: "/user/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, err := d.Handle(context.Background(), newRequest(tt.method, tt.path))
			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, 404, resp.StatusCode)
			assert.Equal(t, NotFoundBody, string(resp.Body))
		})
	}
}

func TestDispatcher_AttachesParams(t *testing.T) {
	t.Parallel()

	var seen *http1.Request
	d := newTestDispatcher(t, func(table *Table) {
		require.NoError(t, table.HandleFunc("GET", "/users/:uid/posts/:pid",
			func(_ context.Context, req *http1.Request) (*http1.Response, error) {
				seen = req
				return http1.Text(200, req.Param("uid")+"/"+req.Param("pid")), nil
			}))
	})

	req := newRequest("GET", "/users/7/posts/99")
	resp, err := d.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "7/99", string(resp.Body))

	require.NotNil(t, seen)
	assert.Equal(t, map[string]string{"uid": "7", "pid": "99"}, seen.PathParams)
	assert.Equal(t, "/users/:uid/posts/:pid", req.Route())
}

func TestDispatcher_LiteralRouteGetsEmptyParams(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, func(table *Table) {
		require.NoError(t, table.Get("/echo", textHandler("echo")))
	})

	req := newRequest("GET", "/echo")
	_, err := d.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.NotNil(t, req.PathParams)
	assert.Empty(t, req.PathParams)
	assert.Equal(t, "/echo", req.Route())
}

func TestDispatcher_NilResponseIsOK(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, func(table *Table) {
		require.NoError(t, table.HandleFunc("GET", "/quiet",
			func(context.Context, *http1.Request) (*http1.Response, error) {
				return nil, nil
			}))
	})

	resp, err := d.Handle(context.Background(), newRequest("GET", "/quiet"))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, resp.Body)
}

func TestDispatcher_HandlerFailures(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, func(table *Table) {
		require.NoError(t, table.HandleFunc("GET", "/error",
			func(context.Context, *http1.Request) (*http1.Response, error) {
				return http1.Text(200, "ignored"), errors.New("boom")
			}))
		require.NoError(t, table.HandleFunc("GET", "/panic",
			func(context.Context, *http1.Request) (*http1.Response, error) {
				panic("kaboom")
			}))
		require.NoError(t, table.HandleFunc("GET", "/nil-deref",
			func(context.Context, *http1.Request) (*http1.Response, error) {
				var m map[string]int
				m["x"] = 1
				return nil, nil
			}))
	})

	for _, path := range []string{"/error", "/panic", "/nil-deref"} {
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			resp, err := d.Handle(context.Background(), newRequest("GET", path))
			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, 500, resp.StatusCode)
			assert.Equal(t, InternalErrorBody, string(resp.Body))
		})
	}
}

func TestDispatcher_ReusableAfterPanic(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, func(table *Table) {
		require.NoError(t, table.HandleFunc("GET", "/panic",
			func(context.Context, *http1.Request) (*http1.Response, error) {
				panic("kaboom")
			}))
		require.NoError(t, table.Get("/", textHandler("home")))
	})

	resp, err := d.Handle(context.Background(), newRequest("GET", "/panic"))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)

	resp, err = d.Handle(context.Background(), newRequest("GET", "/"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "home", string(resp.Body))
}

func TestNewDispatcher_NilLogger(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(NewTable(), nil)
	require.NotNil(t, d)

	resp, err := d.Handle(context.Background(), newRequest("GET", "/"))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
