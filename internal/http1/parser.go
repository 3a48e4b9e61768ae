package http1

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// DefaultMaxHeaderBytes bounds the request line plus header block when
// Reader.MaxHeaderBytes is zero.
const DefaultMaxHeaderBytes = 1 << 20

// initialBodyBuffer caps the up-front allocation for a request body.
const initialBodyBuffer = 64 << 10

// maxLeadingBlankLines is how many empty lines may precede the request line.
const maxLeadingBlankLines = 4

// Reader parses a single request from a buffered connection.
type Reader struct {
	BR *bufio.Reader

	// MaxHeaderBytes limits the request line plus headers. Zero means
	// DefaultMaxHeaderBytes; negative disables the limit.
	MaxHeaderBytes int

	// MaxBodyBytes limits Content-Length. Zero or negative disables the limit.
	MaxBodyBytes int64

	headerBytes int
}

// ReadRequest reads the request line, the header block and the body.
// It returns io.EOF if the peer closed the connection before sending
// anything.
func (r *Reader) ReadRequest() (*Request, error) {
	r.headerBytes = 0

	line, err := r.readRequestLine()
	if err != nil {
		return nil, err
	}

	req, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	req.Header, err = r.readHeaders()
	if err != nil {
		return nil, err
	}

	req.Body, err = r.readBody(req.Header)
	if err != nil {
		return nil, err
	}

	return req, nil
}

func (r *Reader) readRequestLine() (string, error) {
	for i := 0; ; i++ {
		line, err := r.readLine()
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) && i == 0 && r.headerBytes == 0 {
				return "", io.EOF
			}
			return "", err
		}
		if line != "" {
			return line, nil
		}
		if i >= maxLeadingBlankLines {
			return "", fmt.Errorf("%w: empty request line", ErrMalformedRequestLine)
		}
	}
}

func parseRequestLine(line string) (*Request, error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}
	method, target, proto := parts[0], parts[1], parts[2]

	if !strings.HasPrefix(proto, "HTTP/") {
		return nil, fmt.Errorf("%w: bad protocol %q", ErrMalformedRequestLine, proto)
	}
	if !strings.HasPrefix(target, "/") && target != "*" {
		return nil, fmt.Errorf("%w: bad target %q", ErrMalformedRequestLine, target)
	}
	if !IsMethod(method) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	path, rawQuery := splitTarget(target)

	return &Request{
		Method:   method,
		Target:   target,
		Path:     path,
		RawQuery: rawQuery,
		Proto:    proto,
		Query:    ParseQuery(rawQuery),
	}, nil
}

// splitTarget separates path and query and drops any fragment.
func splitTarget(target string) (path, rawQuery string) {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// ParseQuery splits raw on '&' and each segment on its first '='.
// A segment without '=' yields an empty value; the last duplicate key
// wins. Keys and values are percent-decoded when the escape is valid
// and kept verbatim otherwise.
func ParseQuery(raw string) map[string]string {
	query := make(map[string]string)
	if raw == "" {
		return query
	}
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			continue
		}
		key, value, _ := strings.Cut(seg, "=")
		query[unescape(key)] = unescape(value)
	}
	return query
}

func unescape(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

func (r *Reader) readHeaders() (Header, error) {
	h := Header{}
	for {
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			return h, nil
		}
		if line[0] == ' ' || line[0] == '\t' {
			return nil, fmt.Errorf("%w: folded header line", ErrMalformedHeaders)
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: missing colon in %q", ErrMalformedHeaders, line)
		}
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("%w: invalid header name %q", ErrMalformedHeaders, name)
		}
		h.Set(name, strings.TrimSpace(value))
	}
}

func (r *Reader) readBody(h Header) ([]byte, error) {
	v, ok := h.Lookup("Content-Length")
	if !ok {
		return []byte{}, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return []byte{}, nil
	}
	if r.MaxBodyBytes > 0 && n > r.MaxBodyBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, n, r.MaxBodyBytes)
	}
	if n == 0 {
		return []byte{}, nil
	}
	// grow with the bytes that actually arrive, not the declared length
	var buf bytes.Buffer
	buf.Grow(int(min(n, initialBodyBuffer)))
	read, err := io.Copy(&buf, io.LimitReader(r.BR, n))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompleteBody, err)
	}
	if read < n {
		return nil, fmt.Errorf("%w: got %d of %d bytes: %w", ErrIncompleteBody, read, n, io.ErrUnexpectedEOF)
	}
	return buf.Bytes(), nil
}

// readLine reads up to '\n', stripping '\r'. EOF in the middle of a line
// or before any line is reported as io.ErrUnexpectedEOF.
func (r *Reader) readLine() (string, error) {
	limit := r.MaxHeaderBytes
	if limit == 0 {
		limit = DefaultMaxHeaderBytes
	}
	var sb strings.Builder
	for {
		b, err := r.BR.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		r.headerBytes++
		if limit > 0 && r.headerBytes > limit {
			return "", ErrHeaderTooLarge
		}
		if b == '\n' {
			return sb.String(), nil
		}
		if b != '\r' {
			sb.WriteByte(b)
		}
	}
}
