// Package keyword provides BM25 keyword search over chunks, backed by an
// in-memory bleve index.
package keyword

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.SearchEngine = (*Engine)(nil)

const contentField = "content"

// chunkDoc is the indexed shape of a chunk.
type chunkDoc struct {
	Content    string `json:"content"`
	DocumentID string `json:"document_id"`
}

// Engine indexes chunk text for keyword similarity.
type Engine struct {
	index bleve.Index
}

// New creates an empty in-memory engine.
func New() (*Engine, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &Engine{index: index}, nil
}

func newMapping() mapping.IndexMapping {
	content := bleve.NewTextFieldMapping()
	content.Store = false

	docID := bleve.NewKeywordFieldMapping()
	docID.Store = false

	chunk := bleve.NewDocumentStaticMapping()
	chunk.AddFieldMappingsAt(contentField, content)
	chunk.AddFieldMappingsAt("document_id", docID)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = chunk
	return m
}

// Index adds or replaces a chunk.
func (e *Engine) Index(_ context.Context, chunk domain.Chunk) error {
	if chunk.ID == "" {
		return fmt.Errorf("%w: empty chunk id", domain.ErrInvalidInput)
	}
	return e.index.Index(chunk.ID, chunkDoc{Content: chunk.Content, DocumentID: chunk.DocumentID})
}

// IndexBatch adds many chunks in a single batch.
func (e *Engine) IndexBatch(_ context.Context, chunks []domain.Chunk) error {
	batch := e.index.NewBatch()
	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("%w: empty chunk id", domain.ErrInvalidInput)
		}
		if err := batch.Index(c.ID, chunkDoc{Content: c.Content, DocumentID: c.DocumentID}); err != nil {
			return fmt.Errorf("batch chunk %s: %w", c.ID, err)
		}
	}
	if batch.Size() == 0 {
		return nil
	}
	return e.index.Batch(batch)
}

// Delete removes a chunk.
func (e *Engine) Delete(_ context.Context, chunkID string) error {
	return e.index.Delete(chunkID)
}

// Search matches query terms against chunk content (any term may match)
// and returns hits ordered by BM25 score.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]driven.SearchHit, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}

	q := bleve.NewMatchQuery(query)
	q.SetField(contentField)

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	hits := make([]driven.SearchHit, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = driven.SearchHit{ChunkID: h.ID, Score: h.Score}
	}
	return hits, nil
}

// Count returns the number of indexed chunks.
func (e *Engine) Count() (uint64, error) {
	return e.index.DocCount()
}

// Close releases the index.
func (e *Engine) Close() error {
	return e.index.Close()
}
