// Package tracing exports finished span trees through OpenTelemetry.
package tracing

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

// Ensure Exporter implements the interface.
var _ driven.SpanExporter = (*Exporter)(nil)

const instrumentationName = "github.com/custodia-labs/goldsmith"

// Exporter replays domain span trees as OpenTelemetry spans.
type Exporter struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New creates an exporter that sends spans to the given OpenTelemetry exporter.
// Spans are exported synchronously so a short-lived command loses none.
func New(exporter sdktrace.SpanExporter, version string) *Exporter {
	res := resource.NewSchemaless(
		attribute.String("service.name", "goldsmith"),
		attribute.String("service.version", version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return &Exporter{provider: tp, tracer: tp.Tracer(instrumentationName)}
}

// NewStdout creates an exporter that pretty-prints spans as JSON to w.
func NewStdout(w io.Writer, version string) (*Exporter, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}
	return New(exp, version), nil
}

// Export replays root and its descendants with their recorded timestamps.
// Spans still open are ended at the time of export.
func (e *Exporter) Export(ctx context.Context, root *domain.Span) error {
	if root == nil {
		return nil
	}
	e.replay(ctx, root, time.Now())
	return nil
}

func (e *Exporter) replay(ctx context.Context, s *domain.Span, now time.Time) {
	attrs := s.Attributes()
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		kvs = append(kvs, attribute.String(k, attrs[k]))
	}

	ctx, span := e.tracer.Start(ctx, s.Name(),
		trace.WithTimestamp(s.Start()),
		trace.WithAttributes(kvs...),
	)

	for _, child := range s.Children() {
		e.replay(ctx, child, now)
	}

	if err := s.Err(); err != nil {
		span.RecordError(err, trace.WithTimestamp(s.EndTime()))
		span.SetStatus(codes.Error, err.Error())
	}

	end := s.EndTime()
	if end.IsZero() {
		end = now
	}
	span.End(trace.WithTimestamp(end))
}

// Shutdown flushes and stops the exporter.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
