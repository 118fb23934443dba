package document

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

var fruitWords = []string{"apple", "fruit", "orchard", "tree", "pear"}
var spaceWords = []string{"rocket", "launch", "orbit", "space", "booster"}

// topicEmbedder maps text to a two-dimensional vector of fruit and space word counts.
type topicEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

var _ driven.EmbeddingService = (*topicEmbedder)(nil)

func (e *topicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return topicVector(text), nil
}

func (e *topicEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = topicVector(t)
	}
	return out, nil
}

func (e *topicEmbedder) Dimensions() int            { return 2 }
func (e *topicEmbedder) ModelName() string          { return "topic" }
func (e *topicEmbedder) Ping(context.Context) error { return nil }
func (e *topicEmbedder) Close() error               { return nil }

func topicVector(text string) []float32 {
	var v [2]float32
	for _, w := range strings.Fields(strings.ToLower(text)) {
		switch {
		case contains(fruitWords, w):
			v[0]++
		case contains(spaceWords, w):
			v[1]++
		}
	}
	return v[:]
}

func topicOf(passage string) string {
	v := topicVector(passage)
	if v[0] >= v[1] {
		return "fruit"
	}
	return "space"
}

func contains(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

var errEmbed = errors.New("embedding backend down")
