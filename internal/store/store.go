// Package store provides the in-memory record store used by the demo
// application routes.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/miniexpress/internal/util"
)

const tracerName = "miniexpress/store"

// Store errors.
var (
	// ErrRecordNotFound is returned by Get for an unknown id. It also
	// matches util.ErrNotFound.
	ErrRecordNotFound = fmt.Errorf("record %w", util.ErrNotFound)

	// ErrNotObject is returned by DecodeObject when the body is not a
	// JSON object.
	ErrNotObject = errors.New("body is not a JSON object")
)

// Record is one stored object with its assigned id.
type Record struct {
	ID   int                    `json:"id"`
	Data map[string]interface{} `json:"data"`
}

// Store is a concurrency-safe, append-only list of records with
// sequential ids starting at 1.
type Store struct {
	mu      sync.RWMutex
	records []Record
}

// New creates an empty store.
func New() *Store {
	return &Store{records: make([]Record, 0)}
}

// DecodeObject parses body as a JSON object.
func DecodeObject(body []byte) (map[string]interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotObject, err)
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// Create stores data and returns the new record.
func (s *Store) Create(ctx context.Context, data map[string]interface{}) Record {
	_, span := otel.Tracer(tracerName).Start(ctx, "store.Create",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{ID: len(s.records) + 1, Data: data}
	s.records = append(s.records, rec)

	span.SetAttributes(attribute.Int("store.record_id", rec.ID))
	return rec
}

// List returns every record in creation order.
func (s *Store) List(ctx context.Context) []Record {
	_, span := otel.Tracer(tracerName).Start(ctx, "store.List",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)

	span.SetAttributes(attribute.Int("store.records", len(out)))
	return out
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id int) (Record, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "store.Get",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("store.record_id", id)))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	// ids are positions + 1 since records are never removed
	if id < 1 || id > len(s.records) {
		span.SetAttributes(attribute.Bool("store.hit", false))
		return Record{}, ErrRecordNotFound
	}
	span.SetAttributes(attribute.Bool("store.hit", true))
	return s.records[id-1], nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
