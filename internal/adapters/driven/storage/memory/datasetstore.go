package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

// Ensure DatasetStore implements the interface.
var _ driven.DatasetStore = (*DatasetStore)(nil)

// DatasetStore is an in-memory implementation of driven.DatasetStore.
type DatasetStore struct {
	mu       sync.RWMutex
	datasets map[string]domain.Dataset
}

// NewDatasetStore creates a new in-memory dataset store.
func NewDatasetStore() *DatasetStore {
	return &DatasetStore{
		datasets: make(map[string]domain.Dataset),
	}
}

// Save stores or replaces a dataset.
func (s *DatasetStore) Save(_ context.Context, dataset *domain.Dataset) error {
	if dataset == nil || dataset.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[dataset.ID] = copyDataset(*dataset)
	return nil
}

// Get retrieves a dataset by ID.
func (s *DatasetStore) Get(_ context.Context, id string) (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyDataset(ds)
	return &out, nil
}

// List returns dataset summaries, newest first.
func (s *DatasetStore) List(_ context.Context) ([]domain.DatasetSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.DatasetSummary, 0, len(s.datasets))
	for id := range s.datasets {
		ds := s.datasets[id]
		result = append(result, ds.Summary())
	}
	slices.SortFunc(result, func(a, b domain.DatasetSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

// Delete removes a dataset.
func (s *DatasetStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.datasets, id)
	return nil
}

func copyDataset(ds domain.Dataset) domain.Dataset {
	ds.Goldens = slices.Clone(ds.Goldens)
	for i := range ds.Goldens {
		g := &ds.Goldens[i]
		g.Context = g.Context.Clone()
		g.Trace = g.Trace.Clone()
	}
	ds.Warnings = slices.Clone(ds.Warnings)
	ds.Request.AllowedEvolutions = slices.Clone(ds.Request.AllowedEvolutions)
	return ds
}
