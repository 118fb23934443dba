package services

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

// GoldenAssembler packages evolved inputs into Goldens.
type GoldenAssembler struct {
	completer completer
	prompts   promptBook
}

// evolvedSeed is a seed after evolution, ready for assembly.
type evolvedSeed struct {
	text  string
	seed  domain.SeedInput
	trace domain.EvolutionTrace
}

// AssembleAll builds the goldens for one unit's evolved inputs, in order.
// Expected outputs, when requested, are generated together so a batching
// model service can answer them concurrently. A golden whose expected output
// cannot be generated is still returned, without it, and its failure is
// reported at the same index.
func (a *GoldenAssembler) AssembleAll(
	ctx context.Context, items []evolvedSeed, req domain.GenerationRequest,
) ([]domain.Golden, []error) {
	goldens := make([]domain.Golden, len(items))
	for i, it := range items {
		goldens[i] = domain.Golden{
			ID:      uuid.NewString(),
			Input:   it.text,
			Context: it.seed.Context.Clone(),
			Trace:   it.trace.Clone(),
			Origin:  it.seed.Origin,
		}
	}
	errs := make([]error, len(items))
	if !req.IncludeExpectedOutput || len(items) == 0 {
		return goldens, errs
	}

	ctx, span := domain.StartSpan(ctx, "assemble", "goldens", strconv.Itoa(len(items)))
	prompts := make([]string, len(items))
	for i, it := range items {
		prompts[i] = a.prompts.render(driven.PromptExpectedOutput, map[string]string{
			"input":   it.text,
			"context": formatContext(it.seed.Context),
		})
	}

	outs, callErrs := a.completer.completeAll(ctx, domain.StageAssemble, prompts)
	var failed error
	for i := range goldens {
		if callErrs[i] != nil {
			errs[i] = callErrs[i]
			failed = callErrs[i]
			continue
		}
		out := outs[i]
		goldens[i].ExpectedOutput = &out
	}
	span.End(failed)
	return goldens, errs
}
