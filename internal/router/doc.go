// Package router provides route registration and dispatch for
// MiniExpress.
//
// Routes bind a request method and a path template to an
// http1.Handler. Templates are '/'-separated sequences of literal
// segments and ":name" parameter segments; they are compiled once at
// registration into a segment matcher, so no pattern work happens per
// request.
//
// # Usage
//
//	t := router.NewTable()
//	_ = t.Get("/user/:id", http1.HandlerFunc(getUser))
//	_ = t.Post("/data", http1.HandlerFunc(createData))
//	t.Freeze()
//
//	d := router.NewDispatcher(t, logger)
//	resp, _ := d.Handle(ctx, req)
//
// Routes are tried in registration order and the first one whose
// method and template both match wins. A path that only matches under
// a different method is answered with 404, like any other miss.
//
// The table is write-once: Freeze is called by the server before it
// accepts connections, after which registration fails with
// ErrTableFrozen and lookups take no lock.
package router
