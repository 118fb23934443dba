package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driving"
)

// Ensure DatasetService implements the interface.
var _ driving.DatasetService = (*DatasetService)(nil)

// DatasetService stores generation runs and moves them in and out of dataset files.
type DatasetService struct {
	store  driven.DatasetStore
	writer driven.DatasetWriter
	reader driven.DatasetReader
	now    func() time.Time
}

// NewDatasetService creates a dataset service.
func NewDatasetService(store driven.DatasetStore, writer driven.DatasetWriter, reader driven.DatasetReader) *DatasetService {
	return &DatasetService{
		store:  store,
		writer: writer,
		reader: reader,
		now:    time.Now,
	}
}

// Save stores a generation result under a name.
func (s *DatasetService) Save(
	ctx context.Context, name string, kind domain.UnitKind, req domain.GenerationRequest, result *domain.GenerationResult,
) (*domain.Dataset, error) {
	if result == nil {
		return nil, fmt.Errorf("save dataset: %w", domain.ErrInvalidInput)
	}
	ds := &domain.Dataset{
		ID:         uuid.NewString(),
		Name:       s.nameOrDefault(name),
		SourceKind: kind,
		Request:    req,
		Goldens:    result.Goldens,
		Warnings:   result.Warnings,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.Save(ctx, ds); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	return ds, nil
}

// Get retrieves a dataset by ID.
func (s *DatasetService) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	return s.store.Get(ctx, id)
}

// List returns summaries of all datasets, newest first.
func (s *DatasetService) List(ctx context.Context) ([]domain.DatasetSummary, error) {
	return s.store.List(ctx)
}

// Delete removes a dataset.
func (s *DatasetService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Export writes a dataset's goldens to path. An empty kind is inferred from
// the path extension, falling back to JSON for directories.
func (s *DatasetService) Export(ctx context.Context, id string, kind domain.DatasetKind, path string) (string, error) {
	if s.writer == nil {
		return "", fmt.Errorf("export: %w", domain.ErrUnsupportedType)
	}
	ds, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if kind == "" {
		inferred, ok := domain.DatasetKindFromPath(path)
		if !ok {
			inferred = domain.DatasetJSON
		}
		kind = inferred
	}
	return s.writer.Write(ctx, ds.Goldens, kind, path)
}

// Import reads a dataset file and stores it as a new dataset.
func (s *DatasetService) Import(ctx context.Context, name, path string) (*domain.Dataset, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("import: %w", domain.ErrUnsupportedType)
	}
	goldens, err := s.reader.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s.Save(ctx, name, inferKind(goldens), domain.GenerationRequest{}, &domain.GenerationResult{Goldens: goldens})
}

// Open resolves ref as a stored dataset ID first and falls back to reading it
// as a dataset file. A file-backed dataset has no ID and is not stored.
func (s *DatasetService) Open(ctx context.Context, ref string) (*domain.Dataset, error) {
	ds, err := s.store.Get(ctx, ref)
	if err == nil {
		return ds, nil
	}
	if !errors.Is(err, domain.ErrNotFound) || s.reader == nil {
		return nil, err
	}

	goldens, readErr := s.reader.Read(ctx, ref)
	if readErr != nil {
		if errors.Is(readErr, domain.ErrNotFound) {
			return nil, fmt.Errorf("%q is neither a dataset ID nor a dataset file: %w", ref, domain.ErrNotFound)
		}
		return nil, readErr
	}
	return &domain.Dataset{
		Name:       strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref)),
		SourceKind: inferKind(goldens),
		Goldens:    goldens,
	}, nil
}

func (s *DatasetService) nameOrDefault(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "goldens-" + s.now().UTC().Format("20060102-150405")
}

// inferKind guesses the source kind of imported goldens from their origin.
func inferKind(goldens []domain.Golden) domain.UnitKind {
	for _, g := range goldens {
		switch g.Origin {
		case domain.OriginContext:
			return domain.UnitContext
		case domain.OriginPrompt:
			return domain.UnitPrompt
		case domain.OriginScratch:
			return domain.UnitScratch
		}
	}
	return domain.UnitContext
}
