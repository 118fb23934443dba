// Package dedupe drops chunks whose text repeats an earlier chunk.
//
// Repeated boilerplate (headers, footers, disclaimers) would otherwise form
// context groups of identical passages.
package dedupe

import (
	"context"
	"strings"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// Processor removes duplicate chunks, keeping the first occurrence.
type Processor struct {
	caseSensitive bool
}

// Option configures the processor.
type Option func(*Processor)

// WithCaseSensitive compares chunk text exactly instead of case-folded.
func WithCaseSensitive(v bool) Option {
	return func(p *Processor) { p.caseSensitive = v }
}

// New creates a dedupe processor.
func New(opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "dedupe"
}

// Process filters chunks and renumbers positions so they stay contiguous.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	seen := make(map[string]bool, len(chunks))
	out := make([]domain.Chunk, 0, len(chunks))

	for _, c := range chunks {
		key := strings.Join(strings.Fields(c.Content), " ")
		if !p.caseSensitive {
			key = strings.ToLower(key)
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		c.Position = len(out)
		out = append(out, c)
	}

	return out, nil
}
