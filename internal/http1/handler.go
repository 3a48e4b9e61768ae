package http1

import "context"

// Handler serves one parsed request. Implementations are called from
// arbitrary concurrent goroutines and must synchronize any shared state
// they own. A non-nil error, or a panic, is turned into a 500 response
// by the dispatcher.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Handle calls f(ctx, req).
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
