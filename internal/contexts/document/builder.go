package document

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/custodia-labs/goldsmith/internal/adapters/driven/index/keyword"
	"github.com/custodia-labs/goldsmith/internal/adapters/driven/index/vector"
	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
	"github.com/custodia-labs/goldsmith/internal/logger"
	"github.com/custodia-labs/goldsmith/internal/normalisers"
)

// Ensure Builder implements the interface.
var _ driven.DocumentContextBuilder = (*Builder)(nil)

// anchorStream separates the anchor RNG from other consumers of the same seed.
const anchorStream = 0x616e63686f72

// Builder turns document files into context groups.
type Builder struct {
	normalisers driven.NormaliserRegistry
	embedder    driven.EmbeddingService
	newVectors  func() driven.VectorIndex
	newKeywords func() (driven.SearchEngine, error)
	readFile    func(string) ([]byte, error)
}

// Option configures a Builder.
type Option func(*Builder)

// WithEmbedding ranks neighbours by embedding similarity. A nil service keeps
// keyword ranking.
func WithEmbedding(svc driven.EmbeddingService) Option {
	return func(b *Builder) { b.embedder = svc }
}

// WithNormalisers replaces the default normaliser registry.
func WithNormalisers(reg driven.NormaliserRegistry) Option {
	return func(b *Builder) { b.normalisers = reg }
}

// WithVectorIndexFactory replaces the in-memory vector index.
func WithVectorIndexFactory(fn func() driven.VectorIndex) Option {
	return func(b *Builder) { b.newVectors = fn }
}

// WithSearchEngineFactory replaces the in-memory keyword engine.
func WithSearchEngineFactory(fn func() (driven.SearchEngine, error)) Option {
	return func(b *Builder) { b.newKeywords = fn }
}

// NewBuilder creates a document context builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		normalisers: normalisers.NewDefaultRegistry(),
		newVectors:  func() driven.VectorIndex { return vector.New(0) },
		newKeywords: func() (driven.SearchEngine, error) { return keyword.New() },
		readFile:    os.ReadFile,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build loads the files at paths and returns context groups drawn from them.
// Directories are searched recursively for supported files. Each group holds
// an anchor chunk followed by its most similar chunks from the same document.
func (b *Builder) Build(ctx context.Context, paths []string, opts domain.ContextOptions) (_ []driven.DocumentContext, err error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &domain.InvalidContextError{Group: -1, Reason: "no document paths given"}
	}

	ctx, span := domain.StartSpan(ctx, "contexts", "paths", strconv.Itoa(len(paths)))
	defer func() { span.End(err) }()

	files, err := b.expandPaths(paths)
	if err != nil {
		return nil, err
	}

	sources, err := b.load(ctx, files, opts)
	if err != nil {
		return nil, err
	}

	var docs []source
	for _, s := range sources {
		if len(s.chunks) == 0 {
			logger.Warn("document has no text, skipping", "file", s.path)
			continue
		}
		docs = append(docs, s)
	}
	if len(docs) == 0 {
		return nil, &domain.InvalidContextError{Group: -1, Reason: "documents contain no text"}
	}
	span.SetAttr("documents", strconv.Itoa(len(docs)))

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, anchorStream))

	anchors := make([][]int, len(docs))
	rankers := make([]ranker, len(docs))
	defer func() {
		for _, r := range rankers {
			if r != nil {
				_ = r.Close()
			}
		}
	}()
	for i, d := range docs {
		anchors[i] = rng.Perm(len(d.chunks))
		if opts.GroupSize > 1 {
			r, err := b.rankerFor(ctx, d)
			if err != nil {
				return nil, err
			}
			rankers[i] = r
		}
	}

	var out []driven.DocumentContext
	for round := 0; ; round++ {
		progressed := false
		for i, d := range docs {
			if opts.MaxGroups > 0 && len(out) >= opts.MaxGroups {
				break
			}
			if round >= len(anchors[i]) || (opts.MaxGroups == 0 && round > 0) {
				continue
			}
			progressed = true

			group, err := b.group(ctx, d, anchors[i][round], rankers[i], opts)
			if err != nil {
				return nil, err
			}
			out = append(out, driven.DocumentContext{Group: group, SourceFile: d.path})
		}
		if !progressed || (opts.MaxGroups > 0 && len(out) >= opts.MaxGroups) {
			break
		}
	}

	span.SetAttr("groups", strconv.Itoa(len(out)))
	logger.Debug("context groups built", "documents", len(docs), "groups", len(out))
	return out, nil
}

// group collects the anchor and up to GroupSize-1 neighbours at or above the
// similarity threshold, most similar first.
func (b *Builder) group(ctx context.Context, d source, anchor int, r ranker, opts domain.ContextOptions) (domain.ContextGroup, error) {
	group := domain.ContextGroup{d.chunks[anchor].Content}
	if r == nil {
		return group, nil
	}

	neighbours, err := r.Rank(ctx, anchor)
	if err != nil {
		return nil, fmt.Errorf("rank neighbours in %s: %w", d.path, err)
	}
	for _, n := range neighbours {
		if len(group) >= opts.GroupSize {
			break
		}
		if n.index == anchor || n.similarity < opts.SimilarityThreshold {
			continue
		}
		group = append(group, d.chunks[n.index].Content)
	}
	return group, nil
}

// rankerFor indexes one document. Embedding failures fall back to keywords.
func (b *Builder) rankerFor(ctx context.Context, d source) (ranker, error) {
	if b.embedder != nil {
		r, err := newEmbeddingRanker(ctx, b.embedder, b.newVectors(), d.chunks)
		if err == nil {
			return r, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("embedding failed, using keyword similarity", "file", d.path, "error", err)
	}

	engine, err := b.newKeywords()
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	r, err := newKeywordRanker(ctx, engine, d.chunks)
	if err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("index %s: %w", d.path, err)
	}
	return r, nil
}
