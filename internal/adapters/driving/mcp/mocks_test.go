package mcp

import (
	"context"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// mockGenerationService is a mock implementation of driving.GenerationService.
type mockGenerationService struct {
	result  *domain.GenerationResult
	err     error
	lastReq domain.GenerationRequest
	lastCtx [][]string
	prompts []string
	scratch domain.ScratchSpec
}

func (m *mockGenerationService) FromContexts(
	_ context.Context, contexts [][]string, req domain.GenerationRequest,
) (*domain.GenerationResult, error) {
	m.lastCtx = contexts
	m.lastReq = req
	return m.result, m.err
}

func (m *mockGenerationService) FromDocuments(
	_ context.Context, _ []string, req domain.GenerationRequest, _ domain.ContextOptions,
) (*domain.GenerationResult, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *mockGenerationService) FromPrompts(
	_ context.Context, prompts []string, req domain.GenerationRequest,
) (*domain.GenerationResult, error) {
	m.prompts = prompts
	m.lastReq = req
	return m.result, m.err
}

func (m *mockGenerationService) FromScratch(
	_ context.Context, spec domain.ScratchSpec, req domain.GenerationRequest,
) (*domain.GenerationResult, error) {
	m.scratch = spec
	m.lastReq = req
	return m.result, m.err
}

// mockDatasetService is a mock implementation of driving.DatasetService.
type mockDatasetService struct {
	datasets  []domain.DatasetSummary
	dataset   *domain.Dataset
	err       error
	savedName string
	savedKind domain.UnitKind
}

func (m *mockDatasetService) Save(
	_ context.Context, name string, kind domain.UnitKind, req domain.GenerationRequest, result *domain.GenerationResult,
) (*domain.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.savedName = name
	m.savedKind = kind
	return &domain.Dataset{ID: "ds-1", Name: name, SourceKind: kind, Request: req, Goldens: result.Goldens}, nil
}

func (m *mockDatasetService) Get(_ context.Context, _ string) (*domain.Dataset, error) {
	return m.dataset, m.err
}

func (m *mockDatasetService) List(_ context.Context) ([]domain.DatasetSummary, error) {
	return m.datasets, m.err
}

func (m *mockDatasetService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDatasetService) Export(_ context.Context, _ string, _ domain.DatasetKind, path string) (string, error) {
	return path, m.err
}

func (m *mockDatasetService) Import(_ context.Context, name, _ string) (*domain.Dataset, error) {
	return &domain.Dataset{ID: "ds-imported", Name: name}, m.err
}

func (m *mockDatasetService) Open(ctx context.Context, ref string) (*domain.Dataset, error) {
	return m.Get(ctx, ref)
}

func testResult() *domain.GenerationResult {
	return &domain.GenerationResult{
		Goldens: []domain.Golden{
			{ID: "g-1", Input: "Why is the sky blue?", Origin: domain.OriginContext},
			{ID: "g-2", Input: "Compare dawn and dusk skies.", Origin: domain.OriginContext},
		},
		Warnings: []domain.Warning{{Unit: 1, Stage: domain.StageSeed, Message: "model unavailable"}},
	}
}
