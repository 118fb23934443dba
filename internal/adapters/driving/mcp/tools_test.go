package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

func ptr[T any](v T) *T { return &v }

func testDefaults() domain.GenerationSettings {
	return domain.GenerationSettings{
		MaxGoldensPerContext: 2,
		NumEvolutions:        1,
		AllowedEvolutionTypes: []domain.EvolutionKind{
			domain.EvolutionReasoning,
		},
	}
}

func TestRequestInput_Request(t *testing.T) {
	t.Run("defaults apply when unset", func(t *testing.T) {
		req, err := RequestInput{}.request(testDefaults(), domain.UnitContext)
		require.NoError(t, err)
		assert.Equal(t, 2, req.MaxGoldensPerUnit)
		assert.Equal(t, 1, req.NumEvolutions)
		assert.False(t, req.BreadthEnabled)
		assert.Equal(t, []domain.EvolutionKind{domain.EvolutionReasoning}, req.AllowedEvolutions)
	})

	t.Run("prompt and scratch units default to one golden", func(t *testing.T) {
		req, err := RequestInput{}.request(testDefaults(), domain.UnitPrompt)
		require.NoError(t, err)
		assert.Equal(t, 1, req.MaxGoldensPerUnit)
	})

	t.Run("explicit values override including zero", func(t *testing.T) {
		in := RequestInput{
			MaxGoldens:            ptr(4),
			NumEvolutions:         ptr(0),
			EnableBreadthEvolve:   ptr(true),
			IncludeExpectedOutput: ptr(true),
			EvolutionTypes:        []string{"rephrase", "comparative"},
		}
		req, err := in.request(testDefaults(), domain.UnitContext)
		require.NoError(t, err)
		assert.Equal(t, 4, req.MaxGoldensPerUnit)
		assert.Equal(t, 0, req.NumEvolutions)
		assert.True(t, req.BreadthEnabled)
		assert.True(t, req.IncludeExpectedOutput)
		assert.Equal(t, []domain.EvolutionKind{domain.EvolutionRephrase, domain.EvolutionComparative}, req.AllowedEvolutions)
	})

	t.Run("unknown evolution kind is invalid config", func(t *testing.T) {
		_, err := RequestInput{EvolutionTypes: []string{"telepathy"}}.request(testDefaults(), domain.UnitContext)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		assert.Contains(t, err.Error(), "telepathy")
	})
}

func TestServer_handleFromContexts(t *testing.T) {
	ctx := context.Background()

	t.Run("returns goldens and warnings", func(t *testing.T) {
		gen := &mockGenerationService{result: testResult()}
		server, err := NewServer(&Ports{Generation: gen, Defaults: testDefaults()})
		require.NoError(t, err)

		input := ContextsInput{Contexts: [][]string{{"The sky scatters blue light."}}}
		_, out, err := server.handleFromContexts(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 2, out.Count)
		assert.Len(t, out.Warnings, 1)
		assert.Empty(t, out.DatasetID)
		assert.Equal(t, input.Contexts, gen.lastCtx)
		assert.Equal(t, 2, gen.lastReq.MaxGoldensPerUnit)
	})

	t.Run("saves when asked", func(t *testing.T) {
		gen := &mockGenerationService{result: testResult()}
		datasets := &mockDatasetService{}
		server, err := NewServer(&Ports{Generation: gen, Datasets: datasets, Defaults: testDefaults()})
		require.NoError(t, err)

		input := ContextsInput{
			Contexts:     [][]string{{"passage"}},
			RequestInput: RequestInput{Save: true, Name: "sky"},
		}
		_, out, err := server.handleFromContexts(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "ds-1", out.DatasetID)
		assert.Equal(t, "sky", datasets.savedName)
		assert.Equal(t, domain.UnitContext, datasets.savedKind)
	})

	t.Run("save without dataset store fails", func(t *testing.T) {
		gen := &mockGenerationService{result: testResult()}
		server, err := NewServer(&Ports{Generation: gen})
		require.NoError(t, err)

		input := ContextsInput{Contexts: [][]string{{"passage"}}, RequestInput: RequestInput{Save: true}}
		_, _, err = server.handleFromContexts(ctx, nil, input)

		assert.ErrorContains(t, err, "no dataset store")
	})

	t.Run("generation error is returned", func(t *testing.T) {
		gen := &mockGenerationService{err: &domain.InvalidContextError{Group: 0, Reason: "empty group"}}
		server, err := NewServer(&Ports{Generation: gen})
		require.NoError(t, err)

		_, _, err = server.handleFromContexts(ctx, nil, ContextsInput{Contexts: [][]string{{}}})

		assert.ErrorIs(t, err, domain.ErrInvalidContext)
	})

	t.Run("empty result has empty goldens", func(t *testing.T) {
		gen := &mockGenerationService{result: &domain.GenerationResult{}}
		server, err := NewServer(&Ports{Generation: gen})
		require.NoError(t, err)

		_, out, err := server.handleFromContexts(ctx, nil, ContextsInput{})

		require.NoError(t, err)
		assert.NotNil(t, out.Goldens)
		assert.Zero(t, out.Count)
	})
}

func TestServer_handleFromPrompts(t *testing.T) {
	gen := &mockGenerationService{result: testResult()}
	datasets := &mockDatasetService{}
	server, err := NewServer(&Ports{Generation: gen, Datasets: datasets, Defaults: testDefaults()})
	require.NoError(t, err)

	input := PromptsInput{
		Prompts:      []string{"Explain rainbows"},
		RequestInput: RequestInput{NumEvolutions: ptr(3), Save: true},
	}
	_, out, err := server.handleFromPrompts(context.Background(), nil, input)

	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, []string{"Explain rainbows"}, gen.prompts)
	assert.Equal(t, 3, gen.lastReq.NumEvolutions)
	assert.Equal(t, 1, gen.lastReq.MaxGoldensPerUnit)
	assert.Equal(t, domain.UnitPrompt, datasets.savedKind)
}

func TestServer_handleFromScratch(t *testing.T) {
	ctx := context.Background()

	t.Run("passes spec with default count", func(t *testing.T) {
		gen := &mockGenerationService{result: testResult()}
		server, err := NewServer(&Ports{Generation: gen})
		require.NoError(t, err)

		input := ScratchInput{Subject: "tax law", Task: "answer questions", OutputFormat: "question"}
		_, _, err = server.handleFromScratch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, domain.ScratchSpec{
			Subject:           "tax law",
			Task:              "answer questions",
			OutputFormat:      "question",
			NumInitialGoldens: defaultScratchGoldens,
		}, gen.scratch)
	})

	t.Run("explicit count is kept", func(t *testing.T) {
		gen := &mockGenerationService{result: testResult()}
		server, err := NewServer(&Ports{Generation: gen})
		require.NoError(t, err)

		_, _, err = server.handleFromScratch(ctx, nil, ScratchInput{Subject: "s", Task: "t", NumGoldens: 2})

		require.NoError(t, err)
		assert.Equal(t, 2, gen.scratch.NumInitialGoldens)
	})

	t.Run("invalid evolution type fails before generating", func(t *testing.T) {
		gen := &mockGenerationService{result: testResult()}
		server, err := NewServer(&Ports{Generation: gen})
		require.NoError(t, err)

		input := ScratchInput{Subject: "s", Task: "t", RequestInput: RequestInput{EvolutionTypes: []string{"bogus"}}}
		_, _, err = server.handleFromScratch(ctx, nil, input)

		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		assert.Empty(t, gen.scratch.Subject)
	})
}

func TestServer_handleListDatasets(t *testing.T) {
	ctx := context.Background()

	t.Run("lists summaries", func(t *testing.T) {
		datasets := &mockDatasetService{datasets: []domain.DatasetSummary{
			{ID: "ds-1", Name: "sky", SourceKind: domain.UnitContext, GoldenCount: 4, WarningCount: 1},
		}}
		server, err := NewServer(&Ports{Generation: &mockGenerationService{}, Datasets: datasets})
		require.NoError(t, err)

		_, out, err := server.handleListDatasets(ctx, nil, ListDatasetsInput{})

		require.NoError(t, err)
		require.Equal(t, 1, out.Count)
		assert.Equal(t, "sky", out.Datasets[0].Name)
		assert.Equal(t, "context", out.Datasets[0].SourceKind)
		assert.Equal(t, 4, out.Datasets[0].GoldenCount)
		assert.Equal(t, 1, out.Datasets[0].Warnings)
	})

	t.Run("no dataset store lists nothing", func(t *testing.T) {
		server, err := NewServer(&Ports{Generation: &mockGenerationService{}})
		require.NoError(t, err)

		_, out, err := server.handleListDatasets(ctx, nil, ListDatasetsInput{})

		require.NoError(t, err)
		assert.Zero(t, out.Count)
	})

	t.Run("store error is wrapped", func(t *testing.T) {
		datasets := &mockDatasetService{err: errors.New("database locked")}
		server, err := NewServer(&Ports{Generation: &mockGenerationService{}, Datasets: datasets})
		require.NoError(t, err)

		_, _, err = server.handleListDatasets(ctx, nil, ListDatasetsInput{})

		assert.ErrorContains(t, err, "listing datasets")
	})
}
