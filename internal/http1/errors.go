package http1

import (
	"errors"
	"io"
	"net"
	"net/http"
)

// Parse errors returned by Reader.ReadRequest.
var (
	ErrMalformedRequestLine = errors.New("http1: malformed request line")
	ErrMalformedHeaders     = errors.New("http1: malformed headers")
	ErrUnsupportedMethod    = errors.New("http1: unsupported method")
	ErrHeaderTooLarge       = errors.New("http1: header too large")
	ErrBodyTooLarge         = errors.New("http1: body too large")
	ErrIncompleteBody       = errors.New("http1: incomplete body")
)

// StatusForError maps a ReadRequest error to the status the server
// answers with. respond is false when the connection should simply be
// closed: the client went away, timed out, or sent something that is
// not recognisably HTTP.
func StatusForError(err error) (status int, respond bool) {
	var netErr net.Error
	switch {
	case err == nil:
		return 0, false
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return 0, false
	case errors.As(err, &netErr) && netErr.Timeout():
		return 0, false
	case errors.Is(err, ErrMalformedRequestLine), errors.Is(err, ErrIncompleteBody):
		return 0, false
	case errors.Is(err, ErrMalformedHeaders):
		return http.StatusBadRequest, true
	case errors.Is(err, ErrHeaderTooLarge):
		return http.StatusRequestHeaderFieldsTooLarge, true
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, true
	case errors.Is(err, ErrUnsupportedMethod):
		return http.StatusNotImplemented, true
	default:
		return 0, false
	}
}

// ErrorKind returns a short label for a parse error, for logs and metrics.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedRequestLine):
		return "malformed_request_line"
	case errors.Is(err, ErrMalformedHeaders):
		return "malformed_headers"
	case errors.Is(err, ErrUnsupportedMethod):
		return "unsupported_method"
	case errors.Is(err, ErrHeaderTooLarge):
		return "header_too_large"
	case errors.Is(err, ErrBodyTooLarge):
		return "body_too_large"
	case errors.Is(err, ErrIncompleteBody):
		return "incomplete_body"
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return "eof"
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "timeout"
		}
		return "io"
	}
}
