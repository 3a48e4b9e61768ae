package http1

import (
	"bufio"
	"strconv"
	"strings"
)

// Headers the writer always controls.
var managedHeaders = map[string]bool{
	"content-length":              true,
	"access-control-allow-origin": true,
	"connection":                  true,
	"transfer-encoding":           true,
}

// WriteResponse serializes resp onto bw and flushes it. Handler headers
// are written in sorted order, followed by the computed Content-Length,
// "Access-Control-Allow-Origin: *" and "Connection: close". When
// omitBody is set (HEAD requests) the body bytes are not written but
// Content-Length still reflects them.
func WriteResponse(bw *bufio.Writer, resp *Response, omitBody bool) error {
	if resp == nil {
		resp = NewResponse(200)
	}
	status := resp.StatusCode
	if status == 0 {
		status = 200
	}

	bw.WriteString("HTTP/1.1 ")
	bw.WriteString(strconv.Itoa(status))
	bw.WriteByte(' ')
	bw.WriteString(StatusText(status))
	bw.WriteString("\r\n")

	hdr := resp.Header.normalized()
	if _, ok := hdr["content-type"]; !ok {
		writeHeaderLine(bw, "Content-Type", ContentTypeText)
	}
	for _, key := range hdr.Keys() {
		if managedHeaders[key] {
			continue
		}
		writeHeaderLine(bw, canonicalName(key), hdr[key])
	}
	writeHeaderLine(bw, "Content-Length", strconv.Itoa(len(resp.Body)))
	writeHeaderLine(bw, "Access-Control-Allow-Origin", "*")
	writeHeaderLine(bw, "Connection", "close")
	bw.WriteString("\r\n")

	if !omitBody && len(resp.Body) > 0 {
		bw.Write(resp.Body)
	}
	return bw.Flush()
}

func writeHeaderLine(bw *bufio.Writer, name, value string) {
	bw.WriteString(sanitize(name))
	bw.WriteString(": ")
	bw.WriteString(sanitize(value))
	bw.WriteString("\r\n")
}

// sanitize drops CR, LF and other control characters except HTAB so a
// handler cannot inject header lines.
func sanitize(v string) string {
	clean := true
	for i := 0; i < len(v); i++ {
		if c := v[i]; (c < 0x20 && c != '\t') || c == 0x7f {
			clean = false
			break
		}
	}
	if clean {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if (c < 0x20 && c != '\t') || c == 0x7f {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
