package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// SpanExporter ships a finished span tree to an observability backend.
type SpanExporter interface {
	// Export receives the root of a finished tree.
	Export(ctx context.Context, root *domain.Span) error

	// Shutdown flushes buffered spans.
	Shutdown(ctx context.Context) error
}

// MetricsRecorder counts generation activity.
// A nil MetricsRecorder is valid wherever one is accepted.
type MetricsRecorder interface {
	// GoldenEmitted counts a golden by origin.
	GoldenEmitted(origin domain.SeedOrigin)

	// EvolutionApplied counts one evolution round by kind (skipped included).
	EvolutionApplied(kind domain.EvolutionKind)

	// WarningRecorded counts a warning by stage.
	WarningRecorded(stage domain.WarningStage)

	// LLMCall observes a model call's latency and outcome.
	LLMCall(model string, d time.Duration, err error)
}
