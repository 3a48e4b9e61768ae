package http1

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// Content types used by the response helpers.
const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeJSON = "application/json; charset=utf-8"
)

// Response is the value a handler returns. The writer consumes it once.
type Response struct {
	StatusCode int
	Header     Header
	Body       []byte
}

// NewResponse returns an empty response with the given status.
func NewResponse(status int) *Response {
	return &Response{StatusCode: status, Header: Header{}}
}

// Text returns a plain-text response.
func Text(status int, body string) *Response {
	resp := NewResponse(status)
	resp.Header.Set("Content-Type", ContentTypeText)
	resp.Body = []byte(body)
	return resp
}

// JSON returns a response whose body is v encoded as JSON.
func JSON(status int, v interface{}) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	resp := NewResponse(status)
	resp.Header.Set("Content-Type", ContentTypeJSON)
	resp.Body = body
	return resp, nil
}

// SetHeader sets a header and returns resp for chaining.
func (resp *Response) SetHeader(key, value string) *Response {
	if resp.Header == nil {
		resp.Header = Header{}
	}
	resp.Header.Set(key, value)
	return resp
}

// StatusText returns the reason phrase for code, or "" if unknown.
func StatusText(code int) string {
	return http.StatusText(code)
}
