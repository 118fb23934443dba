// Command goldsmith generates synthetic evaluation datasets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/custodia-labs/goldsmith/internal/adapters/driven/ai"
	"github.com/custodia-labs/goldsmith/internal/adapters/driven/config/file"
	sinkfile "github.com/custodia-labs/goldsmith/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/goldsmith/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/goldsmith/internal/adapters/driven/telemetry/metrics"
	"github.com/custodia-labs/goldsmith/internal/adapters/driven/telemetry/tracing"
	"github.com/custodia-labs/goldsmith/internal/adapters/driving/cli"
	"github.com/custodia-labs/goldsmith/internal/contexts/document"
	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driving"
	"github.com/custodia-labs/goldsmith/internal/core/services"
	"github.com/custodia-labs/goldsmith/internal/logger"
	"github.com/custodia-labs/goldsmith/internal/normalisers"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

// run wires the services and executes the CLI. Command errors are reported
// by cobra; only wiring failures are printed here.
func run(ctx context.Context) int {
	cleanup, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	defer cleanup()

	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

// setup injects the services the commands use. The returned cleanup closes
// the dataset store.
func setup() (func(), error) {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsSvc := services.NewSettingsService(configStore, ai.NewConfigValidator())

	prompts, err := file.NewPromptStore("", services.DefaultPrompts())
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return nil, fmt.Errorf("open dataset store: %w", err)
	}

	recorder := metrics.NewRecorder()
	w := &wiring{prompts: prompts, metrics: recorder, registry: normalisers.NewDefaultRegistry()}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Generation: w.generation,
		Datasets:   services.NewDatasetService(store.DatasetStore(), sinkfile.NewSink(), sinkfile.NewSink()),
		Settings:   settingsSvc,
		Prompts:    prompts,
		Metrics:    recorder.Handler(),
	})

	return func() {
		if err := store.Close(); err != nil {
			logger.Warn("close dataset store", "error", err)
		}
	}, nil
}

// wiring holds the long-lived dependencies shared by every generation run.
type wiring struct {
	prompts  driven.PromptStore
	metrics  driven.MetricsRecorder
	registry driven.NormaliserRegistry
}

// generation connects to the configured providers and assembles a generation
// service. The cleanup closes provider clients and flushes pending spans.
func (w *wiring) generation(ctx context.Context, settings *domain.AppSettings) (driving.GenerationService, func(), error) {
	result, err := ai.Init(settings)
	if err != nil {
		return nil, nil, err
	}
	for _, warning := range result.Warnings {
		logger.Warn("embedding provider unavailable", "reason", warning)
	}
	if result.FellBack {
		logger.Debug("document grouping uses keyword similarity")
	}

	orch := services.NewOrchestrator(result.LLMService, w.prompts, w.metrics, services.OrchestratorConfig{
		Concurrent:          settings.Execution.Concurrent,
		MaxWorkers:          settings.Execution.MaxWorkers,
		Seed:                settings.Execution.Seed,
		MaxPassagesPerGroup: settings.Generation.MaxPassagesPerGroup,
	})

	builder := document.NewBuilder(
		document.WithNormalisers(w.registry),
		document.WithEmbedding(result.EmbeddingService),
	)

	var exporter driven.SpanExporter
	var tracer *tracing.Exporter
	if settings.Telemetry.TraceStdout {
		tracer, err = tracing.NewStdout(os.Stderr, version)
		if err != nil {
			result.Close()
			return nil, nil, err
		}
		exporter = tracer
	}

	cleanup := func() {
		if tracer != nil {
			if err := tracer.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("flush traces", "error", err)
			}
		}
		result.Close()
	}
	return services.NewGenerationService(orch, builder, exporter), cleanup, nil
}
