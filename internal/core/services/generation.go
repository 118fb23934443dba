package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driving"
	"github.com/custodia-labs/goldsmith/internal/logger"
)

// Ensure GenerationService implements the interface.
var _ driving.GenerationService = (*GenerationService)(nil)

// GenerationService turns the supported inputs into units and runs them through the orchestrator.
type GenerationService struct {
	orchestrator *Orchestrator
	documents    driven.DocumentContextBuilder
	exporter     driven.SpanExporter
}

// NewGenerationService creates a generation service.
// documents and exporter are optional: without a builder, document mode is unavailable.
func NewGenerationService(
	orchestrator *Orchestrator, documents driven.DocumentContextBuilder, exporter driven.SpanExporter,
) *GenerationService {
	return &GenerationService{
		orchestrator: orchestrator,
		documents:    documents,
		exporter:     exporter,
	}
}

// FromContexts generates goldens from caller-supplied context groups.
// Malformed groups fail only their own unit.
func (s *GenerationService) FromContexts(
	ctx context.Context, contexts [][]string, req domain.GenerationRequest,
) (*domain.GenerationResult, error) {
	if len(contexts) == 0 {
		return nil, domain.NewInvalidConfigError("contexts", "at least one context group is required")
	}

	groups, err := DirectContexts(contexts, s.orchestrator.Config().MaxPassagesPerGroup)
	if err != nil {
		logger.Debug("some context groups are malformed", "error", err)
	}
	units := make([]domain.Unit, len(groups))
	for i, g := range groups {
		units[i] = domain.Unit{Index: i, Kind: domain.UnitContext, Context: g}
	}
	return s.run(ctx, units, req)
}

// FromDocuments builds context groups from documents and generates goldens from them.
func (s *GenerationService) FromDocuments(
	ctx context.Context, paths []string, req domain.GenerationRequest, opts domain.ContextOptions,
) (*domain.GenerationResult, error) {
	if s.documents == nil {
		return nil, fmt.Errorf("document mode: %w", domain.ErrUnsupportedType)
	}
	if len(paths) == 0 {
		return nil, domain.NewInvalidConfigError("paths", "at least one document is required")
	}
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	docs, err := s.documents.Build(ctx, paths, opts)
	if err != nil {
		return nil, fmt.Errorf("build contexts: %w", err)
	}
	units := make([]domain.Unit, len(docs))
	for i, d := range docs {
		units[i] = domain.Unit{Index: i, Kind: domain.UnitContext, Context: d.Group, SourceFile: d.SourceFile}
	}
	return s.run(ctx, units, req)
}

// FromPrompts evolves each prompt into a golden without context.
func (s *GenerationService) FromPrompts(
	ctx context.Context, prompts []string, req domain.GenerationRequest,
) (*domain.GenerationResult, error) {
	if len(prompts) == 0 {
		return nil, domain.NewInvalidConfigError("prompts", "at least one prompt is required")
	}
	units := make([]domain.Unit, len(prompts))
	for i, p := range prompts {
		if strings.TrimSpace(p) == "" {
			return nil, domain.NewInvalidConfigError("prompts", fmt.Sprintf("prompt %d is blank", i))
		}
		units[i] = domain.Unit{Index: i, Kind: domain.UnitPrompt, Prompt: p}
	}
	return s.run(ctx, units, req)
}

// FromScratch generates seed inputs from a subject and task, then evolves them.
func (s *GenerationService) FromScratch(
	ctx context.Context, spec domain.ScratchSpec, req domain.GenerationRequest,
) (*domain.GenerationResult, error) {
	result, err := s.orchestrator.RunScratch(ctx, spec, req)
	if err != nil {
		return nil, err
	}
	s.export(ctx, result)
	return result, nil
}

func (s *GenerationService) run(ctx context.Context, units []domain.Unit, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	result, err := s.orchestrator.Run(ctx, units, req)
	if err != nil {
		return nil, err
	}
	s.export(ctx, result)
	return result, nil
}

func (s *GenerationService) export(ctx context.Context, result *domain.GenerationResult) {
	if s.exporter == nil || result.Span == nil {
		return
	}
	if err := s.exporter.Export(context.WithoutCancel(ctx), result.Span); err != nil {
		logger.Warn("span export failed", "error", err)
	}
}
