package services

import (
	"math/rand/v2"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// StrategySelector draws evolution kinds from a seedable source.
// It is not safe for concurrent use; the orchestrator gives every unit its own.
type StrategySelector struct {
	rng *rand.Rand
}

// NewStrategySelector creates a selector for one stream of a seed.
// The same (seed, stream) pair always yields the same sequence of picks.
func NewStrategySelector(seed, stream uint64) *StrategySelector {
	return &StrategySelector{rng: rand.New(rand.NewPCG(seed, stream))}
}

// Pick selects one kind uniformly from pool, or EvolutionSkipped when pool is empty.
func (s *StrategySelector) Pick(pool []domain.EvolutionKind) domain.EvolutionKind {
	if len(pool) == 0 {
		return domain.EvolutionSkipped
	}
	return pool[s.rng.IntN(len(pool))]
}

// EligibleKinds returns the strategy pool for a unit, in catalogue order.
// The pool is the request's allowed kinds restricted to depth kinds (plus breadth
// kinds when breadth is enabled) and to text-scope kinds for units without context.
func EligibleKinds(req domain.GenerationRequest, hasContext bool) []domain.EvolutionKind {
	allowed := req.Allowed()
	var pool []domain.EvolutionKind
	for _, k := range domain.AllEvolutionKinds() {
		if !allowed[k] {
			continue
		}
		if k.Category() == domain.CategoryBreadth && !req.BreadthEnabled {
			continue
		}
		if k.RequiresContext() && !hasContext {
			continue
		}
		pool = append(pool, k)
	}
	return pool
}
