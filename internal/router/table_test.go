package router

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/util"
)

func textHandler(body string) http1.Handler {
	return http1.HandlerFunc(func(_ context.Context, _ *http1.Request) (*http1.Response, error) {
		return http1.Text(200, body), nil
	})
}

func TestTable_RegisterHelpers(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.Get("/g", textHandler("g")))
	require.NoError(t, table.Post("/p", textHandler("p")))
	require.NoError(t, table.Put("/u", textHandler("u")))
	require.NoError(t, table.Patch("/pa", textHandler("pa")))
	require.NoError(t, table.Delete("/d", textHandler("d")))
	require.NoError(t, table.Handle(http1.MethodOptions, "/o", textHandler("o")))
	require.NoError(t, table.HandleFunc(http1.MethodHead, "/h", func(context.Context, *http1.Request) (*http1.Response, error) {
		return nil, nil
	}))

	routes := table.Routes()
	require.Len(t, routes, 7)
	assert.Equal(t, 7, table.Len())

	methods := make([]string, 0, len(routes))
	for _, r := range routes {
		methods = append(methods, r.Method)
	}
	assert.Equal(t, []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"}, methods)
}

func TestTable_RegisterErrors(t *testing.T) {
	t.Parallel()

	table := NewTable()

	err := table.Handle("FETCH", "/x", textHandler("x"))
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	err = table.Get("/x", nil)
	assert.Error(t, err)

	err = table.Get("no-slash", textHandler("x"))
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	assert.Equal(t, 0, table.Len())
}

func TestTable_Freeze(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.Get("/", textHandler("home")))
	assert.False(t, table.Frozen())

	table.Freeze()
	table.Freeze()
	assert.True(t, table.Frozen())

	err := table.Get("/late", textHandler("late"))
	assert.ErrorIs(t, err, ErrTableFrozen)
	assert.Equal(t, 1, table.Len())
}

func TestTable_Match(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.Get("/data", textHandler("list")))
	require.NoError(t, table.Get("/data/:id", textHandler("one")))
	require.NoError(t, table.Post("/data", textHandler("create")))

	tests := []struct {
		name    string
		method  string
		path    string
		pattern string
		params  map[string]string
		found   bool
	}{
		{name: "list", method: "GET", path: "/data", pattern: "/data", found: true},
		{name: "one", method: "GET", path: "/data/3", pattern: "/data/:id", params: map[string]string{"id": "3"}, found: true},
		{name: "create", method: "POST", path: "/data", pattern: "/data", found: true},
		{name: "method mismatch is not found", method: "DELETE", path: "/data/3", found: false},
		{name: "unknown path", method: "GET", path: "/nope", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result, err := table.Match(tt.method, tt.path)
			if !tt.found {
				require.Error(t, err)
				assert.ErrorIs(t, err, util.ErrNotFound)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pattern, result.Route.Pattern)
			assert.Equal(t, tt.method, result.Route.Method)
			assert.Equal(t, tt.params, result.PathParams)
		})
	}
}

func TestTable_FirstRegisteredWins(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.Get("/user/:id", textHandler("param")))
	require.NoError(t, table.Get("/user/me", textHandler("literal")))

	result, err := table.Match("GET", "/user/me")
	require.NoError(t, err)
	assert.Equal(t, "/user/:id", result.Route.Pattern)
	assert.Equal(t, map[string]string{"id": "me"}, result.PathParams)
}

func TestTable_ConcurrentMatchAfterFreeze(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.Get("/user/:id", textHandler("user")))
	table.Freeze()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := table.Match("GET", "/user/42")
			assert.NoError(t, err)
			if result != nil {
				assert.Equal(t, "42", result.PathParams["id"])
			}
		}()
	}
	wg.Wait()
}

func TestTable_RoutesReturnsCopy(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.Get("/a", textHandler("a")))

	routes := table.Routes()
	routes[0] = nil
	assert.NotNil(t, table.Routes()[0])
}
