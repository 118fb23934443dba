package domain

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// Span is one node of an explicit span tree.
// The current span travels in a context.Context; StartSpan opens a child of it
// and End closes it. Children may be added concurrently.
type Span struct {
	name  string
	start time.Time

	mu       sync.Mutex
	end      time.Time
	err      error
	attrs    map[string]string
	children []*Span
}

type spanKey struct{}

// NewSpan creates a root span that starts now.
func NewSpan(name string) *Span {
	return &Span{name: name, start: time.Now(), attrs: map[string]string{}}
}

// ContextWithSpan returns a context whose current span is s.
func ContextWithSpan(ctx context.Context, s *Span) context.Context {
	return context.WithValue(ctx, spanKey{}, s)
}

// SpanFromContext returns the current span, or nil.
func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

// StartSpan opens a child of the current span and makes it current in the returned context.
// Without a current span the new span is a detached root.
// Attributes are given as alternating key, value pairs.
func StartSpan(ctx context.Context, name string, attrs ...string) (context.Context, *Span) {
	child := NewSpan(name)
	for i := 0; i+1 < len(attrs); i += 2 {
		child.attrs[attrs[i]] = attrs[i+1]
	}
	if parent := SpanFromContext(ctx); parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return ContextWithSpan(ctx, child), child
}

// SetAttr records a key/value attribute on the span.
func (s *Span) SetAttr(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[key] = value
}

// End closes the span, recording err when non-nil. Later calls are ignored.
func (s *Span) End(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.end.IsZero() {
		return
	}
	s.end = time.Now()
	s.err = err
}

// Name returns the span name.
func (s *Span) Name() string { return s.name }

// Start returns when the span was opened.
func (s *Span) Start() time.Time { return s.start }

// EndTime returns when the span was closed, zero while open.
func (s *Span) EndTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.end
}

// Err returns the error recorded at End.
func (s *Span) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Duration returns the span's duration, or the time elapsed so far while open.
func (s *Span) Duration() time.Duration {
	end := s.EndTime()
	if end.IsZero() {
		return time.Since(s.start)
	}
	return end.Sub(s.start)
}

// Attributes returns a copy of the span attributes.
func (s *Span) Attributes() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.attrs)
}

// Children returns a snapshot of the child spans in the order they were opened.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.children)
}

// Walk visits s and its descendants depth-first.
func (s *Span) Walk(fn func(span *Span, depth int)) {
	s.walk(fn, 0)
}

func (s *Span) walk(fn func(*Span, int), depth int) {
	fn(s, depth)
	for _, c := range s.Children() {
		c.walk(fn, depth+1)
	}
}
