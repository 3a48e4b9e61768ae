package middleware

import (
	"context"
	"runtime/debug"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
	"github.com/vyrodovalexey/miniexpress/internal/util"
)

// Recovery returns a middleware that turns a panic in any layer below it
// into a 500 response. Route handler panics are already recovered by the
// dispatcher; this guards the middleware between.
func Recovery(logger observability.Logger) Middleware {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return func(next http1.Handler) http1.Handler {
		return http1.HandlerFunc(func(ctx context.Context, req *http1.Request) (resp *http1.Response, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						observability.String("request_id", req.ID),
						observability.String("client_addr", util.ClientAddrFromContext(ctx)),
						observability.String("path", req.Path),
						observability.String("method", req.Method),
						observability.Duration("elapsed", util.ElapsedTime(ctx)),
						observability.Any("error", rec),
						observability.String("stack", string(debug.Stack())),
					)
					getMiddlewareMetrics().panicsRecovered.Inc()
					resp = http1.Text(500, "Internal Server Error")
					err = nil
				}
			}()

			return next.Handle(ctx, req)
		})
	}
}
