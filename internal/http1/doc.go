// Package http1 implements the HTTP/1.1 wire layer of MiniExpress.
//
// It owns the message model shared by every other package (Request,
// Response, Header), the Handler contract applications implement, the
// request parser that reads one request off a connection, and the
// response writer that frames one response back onto it.
//
// # Parsing
//
// A Reader consumes the request line, the header block and, when a
// numeric Content-Length is present, exactly that many body bytes:
//
//	r := &http1.Reader{BR: bufio.NewReader(conn)}
//	req, err := r.ReadRequest()
//	if err != nil {
//	    status, respond := http1.StatusForError(err)
//	    ...
//	}
//
// Chunked transfer-encoding and keep-alive are not supported: one
// connection carries exactly one request and one response.
//
// # Writing
//
// WriteResponse always recomputes Content-Length from the body, always
// emits "Access-Control-Allow-Origin: *" and "Connection: close", and
// ignores any handler-supplied values for those three headers.
package http1
