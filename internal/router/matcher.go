package router

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/miniexpress/internal/util"
)

// PathMatcher is the interface for path matching.
type PathMatcher interface {
	Match(path string) (bool, map[string]string)
	Type() string
	Pattern() string
}

// Template errors.
var (
	ErrInvalidTemplate = errors.New("invalid path template")
	ErrDuplicateParam  = errors.New("duplicate path parameter")
)

// TemplateError describes why a path template failed to compile.
type TemplateError struct {
	Template string
	Reason   string
	Cause    error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("invalid path template %q: %s", e.Template, e.Reason)
}

// Unwrap returns the underlying error.
func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *TemplateError) Is(target error) bool {
	if target == ErrInvalidTemplate {
		return true
	}
	_, ok := target.(*TemplateError)
	return ok || errors.Is(e.Cause, target)
}

type segmentKind uint8

const (
	literalSegment segmentKind = iota
	paramSegment
)

// segment is one compiled element of a template: either a literal that
// must equal the request segment, or a named parameter that captures it.
type segment struct {
	kind  segmentKind
	value string // literal text, or parameter name
}

// Template is a compiled path template such as "/data/:id".
type Template struct {
	pattern  string
	segments []segment
	params   []string
}

// Compile parses pattern into a Template. The pattern must start with
// '/', must not contain empty segments, and parameter names must be
// identifiers that appear at most once.
func Compile(pattern string) (*Template, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, &TemplateError{Template: pattern, Reason: "must start with '/'"}
	}

	parts := splitPath(pattern)
	t := &Template{
		pattern:  pattern,
		segments: make([]segment, 0, len(parts)),
	}
	seen := make(map[string]bool)

	for _, part := range parts {
		if part == "" {
			return nil, &TemplateError{Template: pattern, Reason: "empty segment"}
		}
		if !strings.HasPrefix(part, ":") {
			t.segments = append(t.segments, segment{kind: literalSegment, value: part})
			continue
		}

		name := part[1:]
		if err := util.ValidateIdentifier(name); err != nil {
			return nil, &TemplateError{Template: pattern, Reason: "bad parameter name " + strconv.Quote(name), Cause: err}
		}
		if seen[name] {
			return nil, &TemplateError{Template: pattern, Reason: "parameter " + strconv.Quote(name) + " repeated", Cause: ErrDuplicateParam}
		}
		seen[name] = true
		t.segments = append(t.segments, segment{kind: paramSegment, value: name})
		t.params = append(t.params, name)
	}

	return t, nil
}

// Match reports whether path matches the template and, if so, returns
// the extracted parameters. Segment counts must be equal, literals must
// match exactly (case-sensitive) and parameters never match an empty
// segment. The returned map is nil for templates without parameters.
func (t *Template) Match(path string) (matched bool, params map[string]string) {
	parts := splitPath(path)
	if len(parts) != len(t.segments) {
		return false, nil
	}

	for i, seg := range t.segments {
		switch seg.kind {
		case literalSegment:
			if parts[i] != seg.value {
				return false, nil
			}
		case paramSegment:
			if parts[i] == "" {
				return false, nil
			}
		}
	}

	if len(t.params) == 0 {
		return true, nil
	}

	params = make(map[string]string, len(t.params))
	for i, seg := range t.segments {
		if seg.kind == paramSegment {
			params[seg.value] = parts[i]
		}
	}
	return true, params
}

// Type returns the matcher type.
func (t *Template) Type() string {
	return "template"
}

// Pattern returns the original template string.
func (t *Template) Pattern() string {
	return t.pattern
}

// ParamNames returns the parameter names in template order.
func (t *Template) ParamNames() []string {
	names := make([]string, len(t.params))
	copy(names, t.params)
	return names
}

// splitPath splits a path into segments, ignoring the leading '/' and a
// single trailing '/'. Only the root path has no segments; "//" yields
// one empty segment.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	path = strings.TrimSuffix(path, "/")
	return strings.Split(path, "/")
}
