package tui

import (
	"context"
	"sync"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// MockDatasetService implements driving.DatasetService for testing.
type MockDatasetService struct {
	mu sync.Mutex

	ListFunc   func(ctx context.Context) ([]domain.DatasetSummary, error)
	GetFunc    func(ctx context.Context, id string) (*domain.Dataset, error)
	DeleteFunc func(ctx context.Context, id string) error

	deleted []string
}

func (m *MockDatasetService) Save(_ context.Context, name string, kind domain.UnitKind, req domain.GenerationRequest,
	result *domain.GenerationResult) (*domain.Dataset, error) {
	return &domain.Dataset{ID: "saved", Name: name, SourceKind: kind, Request: req, Goldens: result.Goldens}, nil
}

func (m *MockDatasetService) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockDatasetService) List(ctx context.Context) ([]domain.DatasetSummary, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockDatasetService) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, id)
	m.mu.Unlock()
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockDatasetService) Export(_ context.Context, _ string, _ domain.DatasetKind, path string) (string, error) {
	return path, nil
}

func (m *MockDatasetService) Import(_ context.Context, name, _ string) (*domain.Dataset, error) {
	return &domain.Dataset{ID: "imported", Name: name}, nil
}

func (m *MockDatasetService) Open(ctx context.Context, ref string) (*domain.Dataset, error) {
	return m.Get(ctx, ref)
}

func (m *MockDatasetService) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func strPtr(s string) *string { return &s }

func testDataset() *domain.Dataset {
	return &domain.Dataset{
		ID:         "ds-1",
		Name:       "handbook",
		SourceKind: domain.UnitContext,
		Goldens: []domain.Golden{
			{
				ID:             "g-1",
				Input:          "How long is parental leave?",
				ExpectedOutput: strPtr("Sixteen weeks."),
				Context:        domain.ContextGroup{"Parental leave is sixteen weeks."},
				Trace:          domain.EvolutionTrace{Steps: []domain.EvolutionKind{domain.EvolutionReasoning}},
				Origin:         domain.OriginContext,
			},
			{
				ID:     "g-2",
				Input:  "Who approves remote work?",
				Origin: domain.OriginContext,
			},
		},
		Warnings: []domain.Warning{{Unit: 1, Stage: domain.StageSeed, Message: "model timed out"}},
	}
}
