// Package cache provides a persistent embedding cache backed by BadgerDB.
//
// Cached vectors are keyed by model name and a SHA-256 of the text, so
// switching models never returns stale vectors. Repeated document-mode runs
// over the same corpus embed each chunk once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
	"github.com/custodia-labs/goldsmith/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Config holds cache configuration.
type Config struct {
	// Dir is the BadgerDB directory. Required unless InMemory is set.
	Dir string

	// InMemory keeps the cache in memory only. Useful for testing.
	InMemory bool
}

// EmbeddingService serves embeddings from the cache and delegates misses.
type EmbeddingService struct {
	next   driven.EmbeddingService
	db     *badger.DB
	hits   atomic.Int64
	misses atomic.Int64
}

// New opens the cache and wraps next.
func New(next driven.EmbeddingService, cfg Config) (*EmbeddingService, error) {
	if next == nil {
		return nil, errors.New("embedding cache: nil embedding service")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, errors.New("embedding cache: directory is required")
		}
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}

	return &EmbeddingService{next: next, db: db}, nil
}

// Embed returns the cached vector for text, embedding it on a miss.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch serves hits from the cache and embeds all misses in one delegated batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([][]byte, len(texts))
	for i, text := range texts {
		keys[i] = s.key(text)
	}

	var missIdx []int
	err := s.db.View(func(txn *badger.Txn) error {
		for i, key := range keys {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				missIdx = append(missIdx, i)
				continue
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				out[i] = decode(val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read embedding cache: %w", err)
	}

	s.hits.Add(int64(len(texts) - len(missIdx)))
	s.misses.Add(int64(len(missIdx)))
	if len(missIdx) == 0 {
		return out, nil
	}

	missing := make([]string, len(missIdx))
	for j, i := range missIdx {
		missing[j] = texts[i]
	}
	vecs, err := s.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedding cache: got %d vectors for %d texts", len(vecs), len(missing))
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for j, i := range missIdx {
		out[i] = vecs[j]
		if err := wb.Set(keys[i], encode(vecs[j])); err != nil {
			return nil, fmt.Errorf("write embedding cache: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		// A cache write failure does not invalidate the vectors.
		logger.Warn("embedding cache write failed", "error", err)
	}

	return out, nil
}

// Stats returns the number of cache hits and misses since open.
func (s *EmbeddingService) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

// Dimensions returns the wrapped model's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the wrapped model name.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping checks the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the cache and the wrapped service.
func (s *EmbeddingService) Close() error {
	return errors.Join(s.db.Close(), s.next.Close())
}

func (s *EmbeddingService) key(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return []byte("emb:" + s.next.ModelName() + ":" + hex.EncodeToString(sum[:]))
}

func encode(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decode(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}

// badgerLogger routes BadgerDB's internal logging through the application logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logger.Error(fmt.Sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...any) {
	logger.Warn(fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...any) {
	logger.Debug(fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...any) {
	logger.Debug(fmt.Sprintf(format, args...))
}
