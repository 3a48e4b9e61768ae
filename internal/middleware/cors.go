package middleware

import (
	"context"
	"strings"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
)

// PreflightConfig contains the values returned to CORS preflight requests.
type PreflightConfig struct {
	AllowMethods []string
	AllowHeaders []string
}

// DefaultPreflightConfig returns the default preflight answer.
func DefaultPreflightConfig() PreflightConfig {
	return PreflightConfig{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}
}

// Preflight returns a middleware that answers every OPTIONS request with
// 200 and the configured Access-Control-Allow-* headers, before static
// mounts and routes are consulted. Access-Control-Allow-Origin is added
// by the response writer.
func Preflight(cfg PreflightConfig) Middleware {
	allowMethods := strings.Join(cfg.AllowMethods, ",")
	allowHeaders := strings.Join(cfg.AllowHeaders, ",")

	return func(next http1.Handler) http1.Handler {
		return http1.HandlerFunc(func(ctx context.Context, req *http1.Request) (*http1.Response, error) {
			if req.Method != http1.MethodOptions {
				return next.Handle(ctx, req)
			}

			getMiddlewareMetrics().preflightsAnswered.Inc()
			resp := http1.NewResponse(200)
			if allowMethods != "" {
				resp.SetHeader("Access-Control-Allow-Methods", allowMethods)
			}
			if allowHeaders != "" {
				resp.SetHeader("Access-Control-Allow-Headers", allowHeaders)
			}
			return resp, nil
		})
	}
}
