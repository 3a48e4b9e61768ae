package router

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/util"
)

// ErrTableFrozen is returned when a route is registered after serving began.
var ErrTableFrozen = errors.New("route table is frozen")

// Route binds a method and a compiled path template to a handler.
type Route struct {
	Method  string
	Pattern string
	Matcher PathMatcher
	Handler http1.Handler
}

// MatchResult contains the result of a route match.
type MatchResult struct {
	Route      *Route
	PathParams map[string]string
}

// Table is an ordered, write-once sequence of routes. Registration is
// serialized; lookups read an immutable snapshot and take no lock.
type Table struct {
	mu     sync.Mutex
	routes atomic.Pointer[[]*Route]
	frozen atomic.Bool
}

// NewTable creates an empty route table.
func NewTable() *Table {
	t := &Table{}
	empty := make([]*Route, 0)
	t.routes.Store(&empty)
	return t
}

// Handle registers handler for method and pattern.
func (t *Table) Handle(method, pattern string, handler http1.Handler) error {
	if err := util.ValidateHTTPMethod(method); err != nil {
		return fmt.Errorf("failed to register %s %s: %w", method, pattern, err)
	}
	if handler == nil {
		return fmt.Errorf("failed to register %s %s: nil handler", method, pattern)
	}

	tmpl, err := Compile(pattern)
	if err != nil {
		return fmt.Errorf("failed to register %s %s: %w", method, pattern, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen.Load() {
		return fmt.Errorf("failed to register %s %s: %w", method, pattern, ErrTableFrozen)
	}

	current := *t.routes.Load()
	next := make([]*Route, len(current), len(current)+1)
	copy(next, current)
	next = append(next, &Route{
		Method:  method,
		Pattern: pattern,
		Matcher: tmpl,
		Handler: handler,
	})
	t.routes.Store(&next)

	return nil
}

// HandleFunc registers a handler function.
func (t *Table) HandleFunc(method, pattern string, fn http1.HandlerFunc) error {
	return t.Handle(method, pattern, fn)
}

// Get registers a GET route.
func (t *Table) Get(pattern string, handler http1.Handler) error {
	return t.Handle(http1.MethodGet, pattern, handler)
}

// Post registers a POST route.
func (t *Table) Post(pattern string, handler http1.Handler) error {
	return t.Handle(http1.MethodPost, pattern, handler)
}

// Put registers a PUT route.
func (t *Table) Put(pattern string, handler http1.Handler) error {
	return t.Handle(http1.MethodPut, pattern, handler)
}

// Patch registers a PATCH route.
func (t *Table) Patch(pattern string, handler http1.Handler) error {
	return t.Handle(http1.MethodPatch, pattern, handler)
}

// Delete registers a DELETE route.
func (t *Table) Delete(pattern string, handler http1.Handler) error {
	return t.Handle(http1.MethodDelete, pattern, handler)
}

// Freeze forbids further registration. It is idempotent.
func (t *Table) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (t *Table) Frozen() bool {
	return t.frozen.Load()
}

// Routes returns the registered routes in registration order.
func (t *Table) Routes() []*Route {
	current := *t.routes.Load()
	routes := make([]*Route, len(current))
	copy(routes, current)
	return routes
}

// Len returns the number of registered routes.
func (t *Table) Len() int {
	return len(*t.routes.Load())
}

// Match returns the first route whose method equals method and whose
// template matches path.
func (t *Table) Match(method, path string) (*MatchResult, error) {
	for _, route := range *t.routes.Load() {
		if route.Method != method {
			continue
		}
		if matched, params := route.Matcher.Match(path); matched {
			return &MatchResult{Route: route, PathParams: params}, nil
		}
	}
	return nil, util.NewRouteNotFoundError(method, path)
}
