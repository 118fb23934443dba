package driven

import (
	"context"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// DocumentContextBuilder turns documents into context groups.
// It chunks, embeds and groups semantically close chunks around random anchors.
type DocumentContextBuilder interface {
	// Build returns at most opts.MaxGroups groups, each with up to opts.GroupSize passages.
	Build(ctx context.Context, paths []string, opts domain.ContextOptions) ([]DocumentContext, error)
}

// DocumentContext is a context group together with the file it came from.
type DocumentContext struct {
	Group      domain.ContextGroup
	SourceFile string
}
