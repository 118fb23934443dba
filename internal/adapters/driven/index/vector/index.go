// Package vector provides an in-memory cosine similarity index.
//
// Context building works on a few thousand chunks per call, so an exact
// scan over normalised vectors is used instead of an approximate graph.
package vector

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index stores unit-length vectors keyed by chunk ID.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   map[string][]float32
}

// New creates an empty index. A dimension of zero is fixed by the first Add.
func New(dimension int) *Index {
	return &Index{
		dimension: dimension,
		vectors:   make(map[string][]float32),
	}
}

// Add inserts or replaces the vector for chunkID.
func (idx *Index) Add(_ context.Context, chunkID string, embedding []float32) error {
	if chunkID == "" {
		return fmt.Errorf("%w: empty chunk id", domain.ErrInvalidInput)
	}
	unit, ok := normalise(embedding)
	if !ok {
		return fmt.Errorf("%w: zero or empty vector for chunk %s", domain.ErrInvalidInput, chunkID)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension == 0 {
		idx.dimension = len(unit)
	}
	if len(unit) != idx.dimension {
		return fmt.Errorf("%w: vector has %d dimensions, index has %d", domain.ErrInvalidInput, len(unit), idx.dimension)
	}
	idx.vectors[chunkID] = unit
	return nil
}

// Delete removes a vector. Deleting an unknown ID is not an error.
func (idx *Index) Delete(_ context.Context, chunkID string) error {
	idx.mu.Lock()
	delete(idx.vectors, chunkID)
	idx.mu.Unlock()
	return nil
}

// Search returns the k most similar vectors, best first.
// Ties are broken by chunk ID so results are reproducible.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	q, ok := normalise(query)
	if !ok {
		return nil, fmt.Errorf("%w: zero or empty query vector", domain.ErrInvalidInput)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dimension != 0 && len(q) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrInvalidInput, len(q), idx.dimension)
	}

	hits := make([]driven.VectorHit, 0, len(idx.vectors))
	for id, v := range idx.vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits = append(hits, driven.VectorHit{ChunkID: id, Similarity: dot(q, v)})
	}
	slices.SortFunc(hits, func(a, b driven.VectorHit) int {
		return cmp.Or(cmp.Compare(b.Similarity, a.Similarity), cmp.Compare(a.ChunkID, b.ChunkID))
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Dimension returns the vector size, zero until known.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Close drops all vectors.
func (idx *Index) Close() error {
	idx.mu.Lock()
	idx.vectors = make(map[string][]float32)
	idx.mu.Unlock()
	return nil
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero
// or their lengths differ.
func Cosine(a, b []float32) float64 {
	ua, ok := normalise(a)
	if !ok {
		return 0
	}
	ub, ok := normalise(b)
	if !ok || len(ua) != len(ub) {
		return 0
	}
	return dot(ua, ub)
}

func normalise(v []float32) ([]float32, bool) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil, false
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, true
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	// Rounding can push identical vectors just past 1
	return min(max(sum, -1), 1)
}
