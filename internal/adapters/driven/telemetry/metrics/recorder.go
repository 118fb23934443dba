// Package metrics records generation activity as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

const namespace = "goldsmith"

// Recorder is a MetricsRecorder backed by a private Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	goldens    *prometheus.CounterVec
	evolutions *prometheus.CounterVec
	warnings   *prometheus.CounterVec
	llmCalls   *prometheus.CounterVec
	llmLatency *prometheus.HistogramVec
}

// NewRecorder creates a recorder with its own registry. Go runtime and
// process collectors are registered alongside the generation metrics.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		goldens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "goldens_emitted_total",
			Help:      "Goldens emitted by seed origin",
		}, []string{"origin"}),
		evolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evolutions_total",
			Help:      "Evolution rounds applied by kind, skipped rounds included",
		}, []string{"kind"}),
		warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Degraded units by pipeline stage",
		}, []string{"stage"}),
		llmCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Model calls by model and outcome",
		}, []string{"model", "status"}),
		llmLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Model call latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"model"}),
	}
}

// GoldenEmitted counts a golden by origin.
func (r *Recorder) GoldenEmitted(origin domain.SeedOrigin) {
	r.goldens.WithLabelValues(string(origin)).Inc()
}

// EvolutionApplied counts one evolution round.
func (r *Recorder) EvolutionApplied(kind domain.EvolutionKind) {
	r.evolutions.WithLabelValues(string(kind)).Inc()
}

// WarningRecorded counts a warning by stage.
func (r *Recorder) WarningRecorded(stage domain.WarningStage) {
	r.warnings.WithLabelValues(string(stage)).Inc()
}

// LLMCall observes a model call.
func (r *Recorder) LLMCall(model string, d time.Duration, err error) {
	r.llmCalls.WithLabelValues(model, callStatus(err)).Inc()
	r.llmLatency.WithLabelValues(model).Observe(d.Seconds())
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsTransient(err):
		return "transient"
	case errors.Is(err, domain.ErrGenerationFailure):
		return "failed"
	default:
		return "error"
	}
}
