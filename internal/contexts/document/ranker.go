package document

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

// neighbour is a chunk position with its similarity to an anchor.
type neighbour struct {
	index      int
	similarity float64
}

// ranker orders the chunks of one document by similarity to an anchor chunk.
type ranker interface {
	Rank(ctx context.Context, anchor int) ([]neighbour, error)
	Close() error
}

// batchIndexer is implemented by search engines that accept bulk inserts.
type batchIndexer interface {
	IndexBatch(ctx context.Context, chunks []domain.Chunk) error
}

type embeddingRanker struct {
	index   driven.VectorIndex
	vectors [][]float32
	pos     map[string]int
	ids     []string
}

func newEmbeddingRanker(ctx context.Context, svc driven.EmbeddingService, index driven.VectorIndex, chunks []domain.Chunk) (*embeddingRanker, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := svc.EmbedBatch(ctx, texts)
	if err != nil {
		_ = index.Close()
		return nil, err
	}
	if len(vectors) != len(chunks) {
		_ = index.Close()
		return nil, fmt.Errorf("embedding service returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	r := &embeddingRanker{index: index, vectors: vectors, pos: make(map[string]int, len(chunks)), ids: make([]string, len(chunks))}
	for i, c := range chunks {
		if err := index.Add(ctx, c.ID, vectors[i]); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("add chunk %d: %w", i, err)
		}
		r.pos[c.ID] = i
		r.ids[i] = c.ID
	}
	return r, nil
}

func (r *embeddingRanker) Rank(ctx context.Context, anchor int) ([]neighbour, error) {
	hits, err := r.index.Search(ctx, r.vectors[anchor], len(r.ids))
	if err != nil {
		return nil, err
	}
	out := make([]neighbour, 0, len(hits))
	for _, h := range hits {
		if i, ok := r.pos[h.ChunkID]; ok {
			out = append(out, neighbour{index: i, similarity: h.Similarity})
		}
	}
	return out, nil
}

func (r *embeddingRanker) Close() error { return r.index.Close() }

// keywordRanker scores neighbours by BM25 against the anchor text. Scores are
// scaled by the anchor's own score so they fall within [0, 1].
type keywordRanker struct {
	engine driven.SearchEngine
	chunks []domain.Chunk
	pos    map[string]int
}

func newKeywordRanker(ctx context.Context, engine driven.SearchEngine, chunks []domain.Chunk) (*keywordRanker, error) {
	if bi, ok := engine.(batchIndexer); ok {
		if err := bi.IndexBatch(ctx, chunks); err != nil {
			return nil, err
		}
	} else {
		for _, c := range chunks {
			if err := engine.Index(ctx, c); err != nil {
				return nil, err
			}
		}
	}

	pos := make(map[string]int, len(chunks))
	for i, c := range chunks {
		pos[c.ID] = i
	}
	return &keywordRanker{engine: engine, chunks: chunks, pos: pos}, nil
}

func (r *keywordRanker) Rank(ctx context.Context, anchor int) ([]neighbour, error) {
	hits, err := r.engine.Search(ctx, r.chunks[anchor].Content, len(r.chunks))
	if err != nil {
		return nil, err
	}

	var top float64
	for _, h := range hits {
		if h.ChunkID == r.chunks[anchor].ID {
			top = h.Score
			break
		}
		top = max(top, h.Score)
	}
	if top <= 0 {
		return nil, nil
	}

	out := make([]neighbour, 0, len(hits))
	for _, h := range hits {
		i, ok := r.pos[h.ChunkID]
		if !ok {
			continue
		}
		out = append(out, neighbour{index: i, similarity: min(h.Score/top, 1)})
	}
	slices.SortStableFunc(out, func(a, b neighbour) int {
		return cmp.Or(cmp.Compare(b.similarity, a.similarity), cmp.Compare(a.index, b.index))
	})
	return out, nil
}

func (r *keywordRanker) Close() error { return r.engine.Close() }
