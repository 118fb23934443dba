// Package chunker provides a sliding-window token chunking processor.
//
// Tokens are whitespace-separated words. Consecutive windows share
// overlap tokens, and the last window always ends at the final token.
package chunker

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// DefaultChunkSize is the default number of tokens per chunk.
const DefaultChunkSize = 256

// DefaultChunkOverlap is the default number of tokens shared by consecutive chunks.
const DefaultChunkOverlap = 32

// Metadata keys set on every chunk.
const (
	MetaStartToken = "start_token"
	MetaEndToken   = "end_token"
)

// chunkNamespace scopes the name-based chunk IDs.
var chunkNamespace = uuid.MustParse("6f1e3c9a-4d2b-5a7e-9c81-2b5d7e0f4a13")

// Processor splits document content into overlapping token windows.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in tokens.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in tokens.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the window size in tokens.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the number of shared tokens.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Chunk IDs are derived from the document ID and position, so re-chunking the
// same document yields the same IDs.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	tokens := strings.Fields(doc.Content)
	if len(tokens) == 0 {
		return nil, nil
	}

	step := p.chunkSize - p.overlap
	chunks := make([]domain.Chunk, 0, len(tokens)/step+1)

	for start := 0; ; start += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+p.chunkSize, len(tokens))
		position := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewSHA1(chunkNamespace, []byte(doc.ID+"#"+strconv.Itoa(position))).String(),
			DocumentID: doc.ID,
			Content:    strings.Join(tokens[start:end], " "),
			Position:   position,
			Metadata: map[string]any{
				MetaStartToken: start,
				MetaEndToken:   end,
			},
		})

		if end == len(tokens) {
			break
		}
	}

	return chunks, nil
}
