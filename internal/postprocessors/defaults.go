package postprocessors

import (
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
	"github.com/custodia-labs/goldsmith/internal/postprocessors/chunker"
	"github.com/custodia-labs/goldsmith/internal/postprocessors/dedupe"
)

// Names of the built-in processors.
const (
	Chunker = "chunker"
	Dedupe  = "dedupe"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register(Chunker, buildChunker)
	r.Register(Dedupe, buildDedupe)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Tokens per chunk (default: 256)
//   - chunk_overlap (int): Tokens shared by consecutive chunks (default: 32)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "chunk_overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...), nil
}

// buildDedupe creates a dedupe processor from generic config.
// Supported config keys:
//   - case_sensitive (bool): Compare exact text (default: false)
func buildDedupe(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []dedupe.Option
	if v, ok := cfg["case_sensitive"].(bool); ok {
		opts = append(opts, dedupe.WithCaseSensitive(v))
	}
	return dedupe.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
