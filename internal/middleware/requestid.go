package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/util"
)

// maxRequestIDLength bounds client supplied request IDs.
const maxRequestIDLength = 128

// RequestID returns a middleware that assigns a request ID. A client
// supplied X-Request-ID is reused when it is short and printable; then
// an ID already set by the server is kept; otherwise a new UUID is
// generated. The ID is echoed in the response.
func RequestID() Middleware {
	return RequestIDWithGenerator(uuid.NewString)
}

// RequestIDWithGenerator returns a middleware that uses a custom ID generator.
func RequestIDWithGenerator(generator func() string) Middleware {
	return func(next http1.Handler) http1.Handler {
		return http1.HandlerFunc(func(ctx context.Context, req *http1.Request) (*http1.Response, error) {
			requestID := req.Header.Get(HeaderXRequestID)
			switch {
			case validRequestID(requestID):
			case req.ID != "":
				requestID = req.ID
			default:
				requestID = generator()
			}
			req.ID = requestID
			ctx = util.ContextWithRequestID(ctx, requestID)

			resp, err := next.Handle(ctx, req)
			if err != nil {
				return resp, err
			}
			if resp == nil {
				resp = http1.NewResponse(200)
			}
			resp.SetHeader(HeaderXRequestID, requestID)
			return resp, nil
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
