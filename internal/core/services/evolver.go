package services

import (
	"context"
	"strconv"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
	"github.com/custodia-labs/goldsmith/internal/logger"
)

// Evolver applies sequential evolution rounds to a seed.
// Each round rewrites the output of the previous one.
type Evolver struct {
	completer completer
	prompts   promptBook
	metrics   driven.MetricsRecorder
}

// Evolve runs req.NumEvolutions rounds over seed and returns the final text and trace.
//
// A round with an empty strategy pool is recorded as skipped. When a model call
// fails, evolution stops: the last successful text is returned together with a
// truncated trace and the failure.
func (e *Evolver) Evolve(
	ctx context.Context, seed domain.SeedInput, req domain.GenerationRequest, sel *StrategySelector,
) (string, domain.EvolutionTrace, error) {
	ctx, span := domain.StartSpan(ctx, "evolve", "rounds", strconv.Itoa(req.NumEvolutions))

	pool := EligibleKinds(req, len(seed.Context) > 0)
	current := seed.Text
	trace := domain.EvolutionTrace{Steps: make([]domain.EvolutionKind, 0, req.NumEvolutions)}

	for round := 0; round < req.NumEvolutions; round++ {
		kind := sel.Pick(pool)
		if kind == domain.EvolutionSkipped {
			trace.Steps = append(trace.Steps, kind)
			e.count(kind)
			continue
		}

		roundCtx, roundSpan := domain.StartSpan(ctx, "round",
			"index", strconv.Itoa(round), "kind", kind.String())
		prompt := e.prompts.render(driven.EvolutionPromptName(kind), evolveVars(current, seed.Context))
		next, err := e.completer.complete(roundCtx, domain.StageEvolve, prompt)
		roundSpan.End(err)
		if err != nil {
			trace.Truncated = true
			span.SetAttr("truncated", "true")
			span.End(err)
			logger.Debug("evolution truncated", "round", round, "kind", kind, "error", err)
			return current, trace, err
		}

		current = next
		trace.Steps = append(trace.Steps, kind)
		e.count(kind)
	}

	span.End(nil)
	return current, trace, nil
}

func (e *Evolver) count(kind domain.EvolutionKind) {
	if e.metrics != nil {
		e.metrics.EvolutionApplied(kind)
	}
}
