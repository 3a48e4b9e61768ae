package http1

import "strings"

// Supported request methods.
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodOptions = "OPTIONS"
)

var methods = map[string]bool{
	MethodGet:     true,
	MethodHead:    true,
	MethodPost:    true,
	MethodPut:     true,
	MethodPatch:   true,
	MethodDelete:  true,
	MethodOptions: true,
}

// IsMethod reports whether m is one of the supported request methods.
func IsMethod(m string) bool {
	return methods[m]
}

// Request is a parsed HTTP request. It is created by the parser, is
// never modified after parsing except for PathParams (attached by the
// dispatcher on a route match), and lives for one connection.
type Request struct {
	// Method is the request method, one of the Method* constants.
	Method string

	// Target is the raw request target, path plus optional query.
	Target string

	// Path is the target without the query string.
	Path string

	// RawQuery is the text after '?', without the '?'.
	RawQuery string

	// Proto is the protocol version from the request line.
	Proto string

	// Query maps query parameter names to values. Duplicate keys keep
	// the last value.
	Query map[string]string

	// Header holds the request headers keyed by lower-cased name.
	Header Header

	// Body is the raw request body, empty when no Content-Length was sent.
	Body []byte

	// PathParams holds the values extracted by the matched route template.
	PathParams map[string]string

	// RemoteAddr is the client address of the connection.
	RemoteAddr string

	// ID identifies the request in logs. The server sets it to the
	// connection ID; request ID middleware may replace it.
	ID string

	route string
}

// Param returns the named path parameter, or "" if absent.
func (r *Request) Param(name string) string {
	return r.PathParams[name]
}

// QueryParam returns the named query parameter and whether it was sent.
func (r *Request) QueryParam(name string) (string, bool) {
	v, ok := r.Query[name]
	return v, ok
}

// ContentType returns the media type of the body without parameters.
func (r *Request) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// Route returns the template of the route that served the request, or ""
// when no route matched.
func (r *Request) Route() string {
	return r.route
}

// AttachRoute records the matched template and its extracted
// parameters. It is the only mutation a request sees after parsing.
func (r *Request) AttachRoute(pattern string, params map[string]string) {
	r.route = pattern
	r.PathParams = params
}
