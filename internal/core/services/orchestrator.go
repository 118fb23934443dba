package services

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
	"github.com/custodia-labs/goldsmith/internal/logger"
)

// OrchestratorConfig is the explicit execution configuration of an Orchestrator.
// Zero values fall back to domain.DefaultExecutionSettings.
type OrchestratorConfig struct {
	// Concurrent processes units in parallel.
	Concurrent bool

	// MaxWorkers bounds the number of units in flight in concurrent mode.
	MaxWorkers int

	// Seed fixes strategy selection. Zero seeds from the clock.
	Seed uint64

	// MaxPassagesPerGroup rejects context groups with more passages. Zero disables the check.
	MaxPassagesPerGroup int

	// GenerateOptions are passed to every model call.
	GenerateOptions driven.GenerateOptions
}

// Ensure Orchestrator accepts custom prompt templates.
var _ driven.PromptStoreAware = (*Orchestrator)(nil)

// Orchestrator fans generation units out and aggregates their goldens.
type Orchestrator struct {
	cfg       OrchestratorConfig
	seeds     *SeedGenerator
	evolver   *Evolver
	assembler *GoldenAssembler
	metrics   driven.MetricsRecorder
}

// NewOrchestrator creates an orchestrator. prompts and metrics may be nil.
func NewOrchestrator(
	llm driven.LLMService, prompts driven.PromptStore, metrics driven.MetricsRecorder, cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = domain.DefaultExecutionSettings().MaxWorkers
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.GOMAXPROCS(0)
	}

	c := completer{llm: llm, metrics: metrics, opts: cfg.GenerateOptions}
	book := promptBook{store: prompts}
	return &Orchestrator{
		cfg:       cfg,
		seeds:     &SeedGenerator{completer: c, prompts: book},
		evolver:   &Evolver{completer: c, prompts: book, metrics: metrics},
		assembler: &GoldenAssembler{completer: c, prompts: book},
		metrics:   metrics,
	}
}

// SetPromptStore replaces the template source of every stage.
// It must be called before the first Run.
func (o *Orchestrator) SetPromptStore(store driven.PromptStore) {
	book := promptBook{store: store}
	o.seeds.prompts = book
	o.evolver.prompts = book
	o.assembler.prompts = book
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() OrchestratorConfig {
	return o.cfg
}

// Run processes every unit and returns all goldens that could be produced.
// Only an invalid request fails the call; unit failures become warnings.
// Goldens are ordered by unit index and seed position in both execution modes.
func (o *Orchestrator) Run(ctx context.Context, units []domain.Unit, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	ctx, root := domain.StartSpan(ctx, "generate", "units", strconv.Itoa(len(units)))
	acc := newAccumulator(o.metrics)
	o.execute(ctx, units, req, acc)
	root.End(nil)

	return acc.result(root), nil
}

// RunScratch generates seeds from spec with a single model call, then evolves
// every seed as its own unit.
func (o *Orchestrator) RunScratch(ctx context.Context, spec domain.ScratchSpec, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ValidateScratch(spec); err != nil {
		return nil, err
	}

	ctx, root := domain.StartSpan(ctx, "generate", "origin", string(domain.OriginScratch))
	acc := newAccumulator(o.metrics)

	if req.MaxGoldensPerUnit > 0 {
		seeds, err := o.seeds.FromScratch(ctx, spec)
		if err != nil {
			acc.warn(-1, domain.StageSeed, err.Error())
		}
		units := make([]domain.Unit, len(seeds))
		for i, s := range seeds {
			units[i] = domain.Unit{Index: i, Kind: domain.UnitScratch, Prompt: s.Text}
		}
		root.SetAttr("units", strconv.Itoa(len(units)))
		o.execute(ctx, units, req, acc)
	}
	root.End(nil)

	return acc.result(root), nil
}

func (o *Orchestrator) execute(ctx context.Context, units []domain.Unit, req domain.GenerationRequest, acc *accumulator) {
	seed := o.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	logger.Section("Generation")
	logger.Info("starting generation", "units", len(units), "concurrent", o.cfg.Concurrent,
		"evolutions", req.NumEvolutions, "max_per_unit", req.MaxGoldensPerUnit)

	if !o.cfg.Concurrent {
		for _, u := range units {
			if err := ctx.Err(); err != nil {
				acc.warn(u.Index, domain.StageSeed, fmt.Sprintf("unit not started: %v", err))
				continue
			}
			o.runUnit(ctx, u, req, seed, acc)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxWorkers)
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			acc.warn(u.Index, domain.StageSeed, fmt.Sprintf("unit not started: %v", err))
			continue
		}
		g.Go(func() error {
			o.runUnit(ctx, u, req, seed, acc)
			// Unit failures are recorded as warnings, never returned.
			return nil
		})
	}
	_ = g.Wait()
}

// runUnit runs seeds, evolution and assembly for one unit.
func (o *Orchestrator) runUnit(ctx context.Context, u domain.Unit, req domain.GenerationRequest, seed uint64, acc *accumulator) {
	ctx, span := domain.StartSpan(ctx, "unit", "index", strconv.Itoa(u.Index), "kind", string(u.Kind))
	defer span.End(nil)

	sel := NewStrategySelector(seed, uint64(u.Index))

	seeds, stage, err := o.seedsFor(ctx, u, req)
	if err != nil {
		span.SetAttr("error", err.Error())
		acc.warn(u.Index, stage, err.Error())
		return
	}
	if len(seeds) > req.MaxGoldensPerUnit {
		seeds = seeds[:req.MaxGoldensPerUnit]
	}
	logger.Debug("unit seeded", "unit", u.Index, "seeds", len(seeds))

	evolved := make([]evolvedSeed, 0, len(seeds))
	for i, s := range seeds {
		if err := ctx.Err(); err != nil {
			acc.warn(u.Index, domain.StageEvolve, fmt.Sprintf("%d seeds not evolved: %v", len(seeds)-i, err))
			break
		}

		text, trace, err := o.evolver.Evolve(ctx, s, req, sel)
		if err != nil {
			acc.warn(u.Index, domain.StageEvolve, fmt.Sprintf("seed %d: evolution truncated after %d of %d rounds: %v",
				i, trace.Len(), req.NumEvolutions, err))
		}
		evolved = append(evolved, evolvedSeed{text: text, seed: s, trace: trace})
	}

	goldens, errs := o.assembler.AssembleAll(ctx, evolved, req)
	for i, golden := range goldens {
		if errs[i] != nil {
			acc.warn(u.Index, domain.StageAssemble, fmt.Sprintf("seed %d: expected output omitted: %v", i, errs[i]))
		}
		golden.SourceFile = u.SourceFile
		acc.add(u.Index, i, golden)
	}
}

func (o *Orchestrator) seedsFor(ctx context.Context, u domain.Unit, req domain.GenerationRequest) ([]domain.SeedInput, domain.WarningStage, error) {
	switch u.Kind {
	case domain.UnitContext:
		if err := ValidateContextGroup(u.Index, u.Context, o.cfg.MaxPassagesPerGroup); err != nil {
			return nil, domain.StageContext, err
		}
		seeds, err := o.seeds.FromContext(ctx, u.Context, req.MaxGoldensPerUnit)
		return seeds, domain.StageSeed, err
	case domain.UnitPrompt:
		return []domain.SeedInput{o.seeds.FromPrompt(u.Prompt)}, domain.StageSeed, nil
	case domain.UnitScratch:
		if u.Scratch != nil {
			seeds, err := o.seeds.FromScratch(ctx, *u.Scratch)
			return seeds, domain.StageSeed, err
		}
		return []domain.SeedInput{{Text: u.Prompt, Origin: domain.OriginScratch}}, domain.StageSeed, nil
	default:
		return nil, domain.StageSeed, domain.NewInvalidConfigError("unit", fmt.Sprintf("unknown unit kind %q", u.Kind))
	}
}

// accumulator collects goldens and warnings from concurrently running units.
type accumulator struct {
	mu       sync.Mutex
	slots    []slot
	warnings []domain.Warning
	metrics  driven.MetricsRecorder
}

type slot struct {
	unit, seed int
	golden     domain.Golden
}

func newAccumulator(metrics driven.MetricsRecorder) *accumulator {
	return &accumulator{metrics: metrics}
}

func (a *accumulator) add(unit, seed int, g domain.Golden) {
	a.mu.Lock()
	a.slots = append(a.slots, slot{unit: unit, seed: seed, golden: g})
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.GoldenEmitted(g.Origin)
	}
}

func (a *accumulator) warn(unit int, stage domain.WarningStage, msg string) {
	a.mu.Lock()
	a.warnings = append(a.warnings, domain.Warning{Unit: unit, Stage: stage, Message: msg})
	a.mu.Unlock()

	logger.Warn("unit degraded", "unit", unit, "stage", stage, "reason", msg)
	if a.metrics != nil {
		a.metrics.WarningRecorded(stage)
	}
}

// result orders goldens by (unit, seed) and warnings by unit, independent of arrival order.
func (a *accumulator) result(root *domain.Span) *domain.GenerationResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	slots := slices.Clone(a.slots)
	slices.SortFunc(slots, func(x, y slot) int {
		return cmp.Or(cmp.Compare(x.unit, y.unit), cmp.Compare(x.seed, y.seed))
	})
	goldens := make([]domain.Golden, len(slots))
	for i, s := range slots {
		goldens[i] = s.golden
	}

	warnings := slices.Clone(a.warnings)
	slices.SortStableFunc(warnings, func(x, y domain.Warning) int {
		return cmp.Compare(x.Unit, y.Unit)
	})

	return &domain.GenerationResult{Goldens: goldens, Warnings: warnings, Span: root}
}
