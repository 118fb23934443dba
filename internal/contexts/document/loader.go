package document

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/normalisers"
	"github.com/custodia-labs/goldsmith/internal/postprocessors"
)

// loadParallelism bounds concurrent file reads.
const loadParallelism = 4

// source is one chunked document.
type source struct {
	path   string
	chunks []domain.Chunk
}

// expandPaths resolves directories to the supported files beneath them, in
// lexical order. Explicitly named files are kept even when unsupported so
// that loading reports them.
func (b *Builder) expandPaths(paths []string) ([]string, error) {
	supported := make(map[string]bool)
	for _, t := range b.normalisers.SupportedMIMETypes() {
		supported[t] = true
	}

	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &domain.InvalidContextError{Group: -1, Reason: fmt.Sprintf("%s: %v", p, err)}
		}
		if !info.IsDir() {
			add(filepath.Clean(p))
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && len(d.Name()) > 1 && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if supported[normalisers.MIMETypeForPath(path)] {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, &domain.InvalidContextError{Group: -1, Reason: fmt.Sprintf("walk %s: %v", p, err)}
		}
		slices.Sort(found)
		for _, f := range found {
			add(f)
		}
	}

	if len(out) == 0 {
		return nil, &domain.InvalidContextError{Group: -1, Reason: "no supported documents found"}
	}
	return out, nil
}

// load reads, normalises and chunks every file. Results keep input order.
func (b *Builder) load(ctx context.Context, paths []string, opts domain.ContextOptions) ([]source, error) {
	pipeline, err := postprocessors.DocumentPipeline(opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("build chunk pipeline: %w", err)
	}

	sources := make([]source, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadParallelism)

	for i, path := range paths {
		g.Go(func() error {
			data, err := b.readFile(path)
			if err != nil {
				return &domain.InvalidContextError{Group: -1, Reason: fmt.Sprintf("read %s: %v", path, err)}
			}

			result, err := b.normalisers.Normalise(gctx, &domain.RawDocument{
				URI:      path,
				MIMEType: normalisers.MIMETypeForPath(path),
				Content:  data,
			})
			if err != nil {
				return &domain.InvalidContextError{Group: -1, Reason: fmt.Sprintf("normalise %s: %v", path, err)}
			}

			chunks, err := pipeline.Process(gctx, &result.Document)
			if err != nil {
				return fmt.Errorf("chunk %s: %w", path, err)
			}
			sources[i] = source{path: path, chunks: chunks}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}
