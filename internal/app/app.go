// Package app registers the demo MiniExpress application routes.
package app

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
	"github.com/vyrodovalexey/miniexpress/internal/router"
	"github.com/vyrodovalexey/miniexpress/internal/store"
)

// Response bodies used by the demo routes.
const (
	WelcomeBody        = "Welcome to MiniExpress!"
	NoMessageBody      = "No message provided"
	InvalidJSONBody    = "Invalid JSON!"
	InvalidIDBody      = "Invalid ID!"
	RecordNotFoundBody = "Not Found"
)

// App holds the state shared by the demo handlers.
type App struct {
	records *store.Store
	logger  observability.Logger
}

// New creates the demo application over records.
func New(records *store.Store, logger observability.Logger) *App {
	if records == nil {
		records = store.New()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &App{records: records, logger: logger}
}

// Register adds the demo routes to table.
func (a *App) Register(table *router.Table) error {
	routes := []struct {
		method  string
		pattern string
		handler http1.HandlerFunc
	}{
		{http1.MethodGet, "/", a.home},
		{http1.MethodGet, "/echo", a.echo},
		{http1.MethodGet, "/user/:id", a.user},
		{http1.MethodPost, "/data", a.createData},
		{http1.MethodGet, "/data", a.listData},
		{http1.MethodGet, "/data/:id", a.getData},
	}

	for _, r := range routes {
		if err := table.HandleFunc(r.method, r.pattern, r.handler); err != nil {
			return err
		}
	}
	a.logger.Debug("demo routes registered", observability.Int("routes", len(routes)))
	return nil
}

func (a *App) home(context.Context, *http1.Request) (*http1.Response, error) {
	return http1.Text(200, WelcomeBody), nil
}

func (a *App) echo(_ context.Context, req *http1.Request) (*http1.Response, error) {
	message, ok := req.QueryParam("message")
	if !ok {
		message = NoMessageBody
	}
	return http1.Text(200, "Echo: "+message), nil
}

func (a *App) user(_ context.Context, req *http1.Request) (*http1.Response, error) {
	return http1.JSON(200, map[string]string{"user_id": req.Param("id")})
}

func (a *App) createData(ctx context.Context, req *http1.Request) (*http1.Response, error) {
	if !strings.Contains(req.ContentType(), "application/json") {
		return http1.Text(400, InvalidJSONBody), nil
	}
	obj, err := store.DecodeObject(req.Body)
	if err != nil {
		a.logger.Debug("rejected record body",
			observability.String("request_id", req.ID),
			observability.Error(err),
		)
		return http1.Text(400, InvalidJSONBody), nil
	}

	rec := a.records.Create(ctx, obj)
	return http1.JSON(201, map[string]int{"id": rec.ID})
}

func (a *App) listData(ctx context.Context, _ *http1.Request) (*http1.Response, error) {
	return http1.JSON(200, a.records.List(ctx))
}

func (a *App) getData(ctx context.Context, req *http1.Request) (*http1.Response, error) {
	id, err := strconv.Atoi(strings.TrimSpace(req.Param("id")))
	if err != nil {
		return http1.Text(400, InvalidIDBody), nil
	}

	rec, err := a.records.Get(ctx, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return http1.Text(404, RecordNotFoundBody), nil
	}
	if err != nil {
		return nil, err
	}
	return http1.JSON(200, rec)
}
