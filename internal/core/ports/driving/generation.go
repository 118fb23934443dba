package driving

import (
	"context"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// GenerationService produces goldens from the supported input kinds.
// Every call returns whatever goldens could be produced plus warnings for
// degraded units; only an invalid request is a call-level error.
type GenerationService interface {
	// FromContexts generates goldens from caller-supplied context groups.
	FromContexts(ctx context.Context, contexts [][]string, req domain.GenerationRequest) (*domain.GenerationResult, error)

	// FromDocuments chunks and groups documents, then generates goldens from the groups.
	FromDocuments(
		ctx context.Context, paths []string, req domain.GenerationRequest, opts domain.ContextOptions,
	) (*domain.GenerationResult, error)

	// FromPrompts evolves each prompt into a golden without context.
	FromPrompts(ctx context.Context, prompts []string, req domain.GenerationRequest) (*domain.GenerationResult, error)

	// FromScratch generates seed inputs from a subject and task, then evolves them.
	FromScratch(ctx context.Context, spec domain.ScratchSpec, req domain.GenerationRequest) (*domain.GenerationResult, error)
}
