// Package static serves files from directories mounted under URL
// prefixes, ahead of the route table.
package static

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/vyrodovalexey/miniexpress/internal/http1"
	"github.com/vyrodovalexey/miniexpress/internal/middleware"
	"github.com/vyrodovalexey/miniexpress/internal/observability"
)

// Fixed values used by the static handler.
const (
	IndexFile          = "index.html"
	ReadErrorBody      = "Error reading static file"
	DefaultContentType = "application/octet-stream"
)

// Mount maps a URL prefix to a directory.
type Mount struct {
	Prefix    string
	Directory string
}

// Server serves files for a list of mounts. The first mount whose
// prefix matches the request path decides the outcome; a missing file
// falls through to the next handler.
type Server struct {
	mounts []Mount
	logger observability.Logger
}

// New creates a static file server. Prefixes are normalized to start
// with '/' and to carry no trailing '/'.
func New(mounts []Mount, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NopLogger()
	}
	normalized := make([]Mount, 0, len(mounts))
	for _, m := range mounts {
		prefix := "/" + strings.Trim(m.Prefix, "/")
		normalized = append(normalized, Mount{Prefix: prefix, Directory: m.Directory})
	}
	return &Server{mounts: normalized, logger: logger}
}

// Mounts returns the normalized mounts.
func (s *Server) Mounts() []Mount {
	out := make([]Mount, len(s.mounts))
	copy(out, s.mounts)
	return out
}

// Middleware returns s as a middleware.
func (s *Server) Middleware() middleware.Middleware {
	return func(next http1.Handler) http1.Handler {
		return http1.HandlerFunc(func(ctx context.Context, req *http1.Request) (*http1.Response, error) {
			if resp, ok := s.Serve(req); ok {
				return resp, nil
			}
			return next.Handle(ctx, req)
		})
	}
}

// Serve returns the response for req and true when a mount served it.
// Only GET and HEAD are served.
func (s *Server) Serve(req *http1.Request) (*http1.Response, bool) {
	if req.Method != http1.MethodGet && req.Method != http1.MethodHead {
		return nil, false
	}

	for _, m := range s.mounts {
		rel, ok := matchPrefix(m.Prefix, req.Path)
		if !ok {
			continue
		}
		return s.serveFile(m, rel, req)
	}
	return nil, false
}

// matchPrefix reports whether urlPath is prefix itself or lies below it,
// and returns the remainder without a leading '/'.
func matchPrefix(prefix, urlPath string) (string, bool) {
	if prefix == "/" {
		return strings.TrimPrefix(urlPath, "/"), true
	}
	if urlPath == prefix {
		return "", true
	}
	if strings.HasPrefix(urlPath, prefix+"/") {
		return urlPath[len(prefix)+1:], true
	}
	return "", false
}

func (s *Server) serveFile(m Mount, rel string, req *http1.Request) (*http1.Response, bool) {
	name := strings.TrimSuffix(rel, "/")
	if name == "" {
		name = "."
	}
	// paths that would leave the directory are never served
	if name != "." && !filepath.IsLocal(filepath.FromSlash(name)) {
		return nil, false
	}

	root, err := os.OpenRoot(m.Directory)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false
		}
		return s.readError(m, name, err), true
	}
	defer root.Close()

	info, err := root.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false
		}
		return s.readError(m, name, err), true
	}
	if info.IsDir() {
		name = path.Join(name, IndexFile)
	}

	f, err := root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false
		}
		return s.readError(m, name, err), true
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return s.readError(m, name, err), true
	}

	req.AttachRoute(m.Prefix+"/*", map[string]string{"file": name})

	resp := http1.NewResponse(200)
	resp.Header.Set("Content-Type", contentType(name, content))
	resp.Body = content
	return resp, true
}

func (s *Server) readError(m Mount, name string, err error) *http1.Response {
	s.logger.Error("failed to read static file",
		observability.String("prefix", m.Prefix),
		observability.String("directory", m.Directory),
		observability.String("file", name),
		observability.Error(err),
	)
	return http1.Text(500, ReadErrorBody)
}

// contentType picks the media type from the file extension, falling
// back to sniffing the content.
func contentType(name string, content []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	if len(content) == 0 {
		return DefaultContentType
	}
	return mimetype.Detect(content).String()
}
