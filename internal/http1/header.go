package http1

import (
	"net/textproto"
	"sort"
	"strings"
)

// Header is a case-insensitive string map. Keys are stored lower-cased;
// the writer restores the canonical form on the wire.
type Header map[string]string

// Get returns the value for key, or "" if absent.
func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	return h[strings.ToLower(key)]
}

// Lookup returns the value for key and whether it was present.
func (h Header) Lookup(key string) (string, bool) {
	if h == nil {
		return "", false
	}
	v, ok := h[strings.ToLower(key)]
	return v, ok
}

// Set replaces any existing value for key.
func (h Header) Set(key, value string) {
	if h == nil {
		return
	}
	h[strings.ToLower(key)] = value
}

// Del removes key.
func (h Header) Del(key string) {
	if h == nil {
		return
	}
	delete(h, strings.ToLower(key))
}

// Has reports whether key is present.
func (h Header) Has(key string) bool {
	_, ok := h.Lookup(key)
	return ok
}

// Keys returns the stored keys in sorted order.
// Together with Get and Set this satisfies the OpenTelemetry
// propagation.TextMapCarrier interface.
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalized returns a copy of h with every key lower-cased. Entries
// written to the map directly may use any case; when two keys fold to
// the same name the one sorting last wins.
func (h Header) normalized() Header {
	c := make(Header, len(h))
	for _, k := range h.Keys() {
		c[strings.ToLower(k)] = h[k]
	}
	return c
}

// canonicalName returns the wire form of a stored header key.
func canonicalName(key string) string {
	return textproto.CanonicalMIMEHeaderKey(key)
}
