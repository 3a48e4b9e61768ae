package router

import (
	"context"
	"runtime/debug"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
	"github.com/vyrodovalexey/miniexpress/internal/util"
)

// Fixed bodies for responses produced by the dispatcher itself.
const (
	NotFoundBody      = "Not Found"
	InternalErrorBody = "Internal Server Error"
)

// Dispatcher selects a route for each request and invokes its handler.
// It implements http1.Handler and never returns an error: misses become
// 404 and handler failures become 500.
type Dispatcher struct {
	table  *Table
	logger observability.Logger
}

// NewDispatcher creates a dispatcher over table.
func NewDispatcher(table *Table, logger observability.Logger) *Dispatcher {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Dispatcher{table: table, logger: logger}
}

// Handle implements http1.Handler.
func (d *Dispatcher) Handle(ctx context.Context, req *http1.Request) (*http1.Response, error) {
	metrics := getDispatchMetrics()

	result, err := d.table.Match(req.Method, req.Path)
	if err != nil {
		metrics.notFound.Inc()
		d.logger.Debug("no matching route",
			observability.String("request_id", req.ID),
			observability.Error(err),
		)
		return http1.Text(404, NotFoundBody), nil
	}

	params := result.PathParams
	if params == nil {
		params = map[string]string{}
	}
	req.AttachRoute(result.Route.Pattern, params)
	metrics.matched.Inc()

	resp, err := d.invoke(ctx, result.Route, req)
	if err != nil {
		metrics.handlerFailures.Inc()
		d.logger.Error("handler failed",
			observability.String("request_id", req.ID),
			observability.String("method", req.Method),
			observability.String("route", result.Route.Pattern),
			observability.Error(err),
		)
		return http1.Text(500, InternalErrorBody), nil
	}
	if resp == nil {
		resp = http1.NewResponse(200)
	}
	return resp, nil
}

// invoke calls the route handler, converting a panic into a HandlerError.
func (d *Dispatcher) invoke(ctx context.Context, route *Route, req *http1.Request) (resp *http1.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			getDispatchMetrics().panicsRecovered.Inc()
			d.logger.Error("panic recovered",
				observability.String("route", route.Pattern),
				observability.Any("error", rec),
				observability.String("stack", string(debug.Stack())),
			)
			resp = nil
			err = util.NewHandlerPanicError(route.Pattern, rec)
		}
	}()

	resp, err = route.Handler.Handle(ctx, req)
	if err != nil {
		return nil, util.NewHandlerError(route.Pattern, err)
	}
	return resp, nil
}
