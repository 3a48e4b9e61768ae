package middleware

import (
	"context"
	"time"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
	"github.com/vyrodovalexey/miniexpress/internal/util"
)

// Logging returns a middleware that logs every request before it is
// dispatched and again once the response is known.
func Logging(logger observability.Logger) Middleware {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return func(next http1.Handler) http1.Handler {
		return http1.HandlerFunc(func(ctx context.Context, req *http1.Request) (*http1.Response, error) {
			ctx = util.ContextWithStartTime(ctx, time.Now())
			ctx = util.ContextWithClientAddr(ctx, req.RemoteAddr)

			logger.Info("request received",
				observability.String("request_id", req.ID),
				observability.String("client_addr", req.RemoteAddr),
				observability.String("method", req.Method),
				observability.String("path", req.Target),
			)

			resp, err := next.Handle(ctx, req)

			fields := []observability.Field{
				observability.String("request_id", req.ID),
				observability.String("method", req.Method),
				observability.String("path", req.Target),
				observability.String("route", req.Route()),
				observability.Int("status_code", statusOf(resp)),
				observability.Int("size", bodySize(resp)),
				observability.Duration("latency", util.ElapsedTime(ctx)),
			}
			if err != nil {
				logger.Error("request failed", append(fields, observability.Error(err))...)
				return resp, err
			}
			logger.Info("request completed", fields...)
			return resp, nil
		})
	}
}
