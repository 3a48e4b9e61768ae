package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/router"
	"github.com/vyrodovalexey/miniexpress/internal/store"
)

func newDispatcher(t *testing.T) (*router.Dispatcher, *store.Store) {
	t.Helper()
	records := store.New()
	table := router.NewTable()
	require.NoError(t, New(records, nil).Register(table))
	table.Freeze()
	return router.NewDispatcher(table, nil), records
}

func request(method, target string, body string, contentType string) *http1.Request {
	path, rawQuery := target, ""
	for i := 0; i < len(target); i++ {
		if target[i] == '?' {
			path, rawQuery = target[:i], target[i+1:]
			break
		}
	}
	req := &http1.Request{
		Method:   method,
		Target:   target,
		Path:     path,
		RawQuery: rawQuery,
		Query:    http1.ParseQuery(rawQuery),
		Header:   http1.Header{},
		Body:     []byte(body),
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func do(t *testing.T, d *router.Dispatcher, req *http1.Request) *http1.Response {
	t.Helper()
	resp, err := d.Handle(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func TestApp_BasicRoutes(t *testing.T) {
	t.Parallel()

	d, _ := newDispatcher(t)

	tests := []struct {
		name        string
		target      string
		status      int
		body        string
		contentType string
	}{
		{name: "welcome", target: "/", status: 200, body: "Welcome to MiniExpress!", contentType: http1.ContentTypeText},
		{name: "echo", target: "/echo?message=hello", status: 200, body: "Echo: hello"},
		{name: "echo decoded", target: "/echo?message=hello%20world", status: 200, body: "Echo: hello world"},
		{name: "echo default", target: "/echo", status: 200, body: "Echo: No message provided"},
		{name: "echo empty value", target: "/echo?message=", status: 200, body: "Echo: "},
		{name: "user", target: "/user/10", status: 200, body: `{"user_id":"10"}`, contentType: http1.ContentTypeJSON},
		{name: "user trailing slash", target: "/user/10/", status: 200, body: `{"user_id":"10"}`},
		{name: "unknown", target: "/nope", status: 404, body: "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := do(t, d, request("GET", tt.target, "", ""))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.body, string(resp.Body))
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, resp.Header.Get("Content-Type"))
			}
		})
	}
}

func TestApp_DataLifecycle(t *testing.T) {
	t.Parallel()

	d, records := newDispatcher(t)

	resp := do(t, d, request("GET", "/data", "", ""))
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "[]", string(resp.Body))

	resp = do(t, d, request("POST", "/data", `{"name":"Soham","value":123}`, "application/json"))
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, `{"id":1}`, string(resp.Body))

	resp = do(t, d, request("POST", "/data", `{"name":"Second"}`, "application/json; charset=utf-8"))
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, `{"id":2}`, string(resp.Body))
	assert.Equal(t, 2, records.Len())

	resp = do(t, d, request("GET", "/data/1", "", ""))
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"id":1,"data":{"name":"Soham","value":123}}`, string(resp.Body))

	resp = do(t, d, request("GET", "/data", "", ""))
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1,"data":{"name":"Soham","value":123}},{"id":2,"data":{"name":"Second"}}]`, string(resp.Body))
}

func TestApp_DataErrors(t *testing.T) {
	t.Parallel()

	d, records := newDispatcher(t)

	tests := []struct {
		name   string
		req    *http1.Request
		status int
		body   string
	}{
		{name: "missing record", req: request("GET", "/data/999", "", ""), status: 404, body: "Not Found"},
		{name: "zero id", req: request("GET", "/data/0", "", ""), status: 404, body: "Not Found"},
		{name: "non numeric id", req: request("GET", "/data/abc", "", ""), status: 400, body: "Invalid ID!"},
		{name: "invalid json", req: request("POST", "/data", `{"name":`, "application/json"), status: 400, body: "Invalid JSON!"},
		{name: "json array", req: request("POST", "/data", `[1,2]`, "application/json"), status: 400, body: "Invalid JSON!"},
		{name: "empty body", req: request("POST", "/data", ``, "application/json"), status: 400, body: "Invalid JSON!"},
		{name: "not json content type", req: request("POST", "/data", `{"a":1}`, "text/plain"), status: 400, body: "Invalid JSON!"},
		{name: "no content type", req: request("POST", "/data", `{"a":1}`, ""), status: 400, body: "Invalid JSON!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := do(t, d, tt.req)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.body, string(resp.Body))
		})
	}

	assert.Equal(t, 0, records.Len())
}

func TestApp_RegisterOnFrozenTable(t *testing.T) {
	t.Parallel()

	table := router.NewTable()
	table.Freeze()
	err := New(nil, nil).Register(table)
	assert.ErrorIs(t, err, router.ErrTableFrozen)
}
