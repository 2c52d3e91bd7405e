// Package tracing provides a lightweight span-based tracing system that
// propagates trace context through Go contexts. Spans form parent–child trees
// and are logged as structured records via slog.
//
// A nil *Span is valid and does nothing, so callers never check whether
// tracing is on.
package tracing

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
)

type contextKey string

const spanKey contextKey = "trace_span"

// Span represents a timed operation within a trace.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any
	mu        sync.Mutex
}

// Tracer decides which requests get a root span.
type Tracer struct {
	enabled    bool
	sampleRate float64
}

func New(cfg config.TracingConfig) *Tracer {
	return &Tracer{enabled: cfg.Enabled, sampleRate: cfg.SampleRate}
}

// Start opens a root span when tracing is enabled and the request is
// sampled. Otherwise it returns ctx unchanged and a nil span.
func (t *Tracer) Start(ctx context.Context, name, traceID string) (context.Context, *Span) {
	if t == nil || !t.enabled {
		return ctx, nil
	}
	if t.sampleRate < 1 && rand.Float64() >= t.sampleRate {
		return ctx, nil
	}
	return StartSpan(ctx, name, traceID)
}

// StartSpan creates a new root span and stores it in the returned context.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	span := &Span{
		Name:      name,
		TraceID:   traceID,
		StartTime: time.Now(),
		Children:  make([]*Span, 0),
		Attrs:     make(map[string]any),
	}
	return context.WithValue(ctx, spanKey, span), span
}

// StartChildSpan creates a child span linked to the parent in ctx. Without
// a parent it returns a nil span.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	if parent == nil {
		return ctx, nil
	}
	child := &Span{
		Name:      name,
		TraceID:   parent.TraceID,
		StartTime: time.Now(),
		Children:  make([]*Span, 0),
		Attrs:     make(map[string]any),
	}
	parent.mu.Lock()
	parent.Children = append(parent.Children, child)
	parent.mu.Unlock()

	return context.WithValue(ctx, spanKey, child), child
}

// End records the span's end time and duration.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// SetAttr attaches a key-value attribute to the span.
func (s *Span) SetAttr(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// SpanFromContext extracts the current Span from ctx, or nil if none.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanKey).(*Span); ok {
		return span
	}
	return nil
}

// Log writes the span tree to slog.
func (s *Span) Log() {
	if s == nil {
		return
	}
	s.logRecursive(0)
}

func (s *Span) logRecursive(depth int) {
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_us", s.Duration.Microseconds(),
		"depth", depth,
	}
	s.mu.Lock()
	for k, v := range s.Attrs {
		attrs = append(attrs, k, v)
	}
	children := s.Children
	s.mu.Unlock()
	slog.Info("span", attrs...)

	for _, child := range children {
		child.logRecursive(depth + 1)
	}
}
