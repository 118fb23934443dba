package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

func contextUnits(groups ...domain.ContextGroup) []domain.Unit {
	units := make([]domain.Unit, len(groups))
	for i, g := range groups {
		units[i] = domain.Unit{Index: i, Kind: domain.UnitContext, Context: g}
	}
	return units
}

func promptUnits(prompts ...string) []domain.Unit {
	units := make([]domain.Unit, len(prompts))
	for i, p := range prompts {
		units[i] = domain.Unit{Index: i, Kind: domain.UnitPrompt, Prompt: p}
	}
	return units
}

// stripIDs blanks golden IDs so runs can be compared.
func stripIDs(goldens []domain.Golden) []domain.Golden {
	out := make([]domain.Golden, len(goldens))
	for i, g := range goldens {
		g.ID = ""
		out[i] = g
	}
	return out
}

var (
	parisGroup  = domain.ContextGroup{"Paris is the capital of France.", "The Seine flows through Paris."}
	berlinGroup = domain.ContextGroup{"Berlin is the capital of Germany."}
)

func TestOrchestrator_WorkedExample_TwoGroups(t *testing.T) {
	llm := &mockLLMService{}
	orch := newTestOrchestrator(llm, OrchestratorConfig{Concurrent: true, MaxWorkers: 2})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 2, NumEvolutions: 1, IncludeExpectedOutput: true}
	result, err := orch.Run(context.Background(), contextUnits(parisGroup, berlinGroup), req)

	require.NoError(t, err)
	require.Len(t, result.Goldens, 4)
	assert.Empty(t, result.Warnings)

	for i, g := range result.Goldens {
		want := parisGroup
		if i >= 2 {
			want = berlinGroup
		}
		assert.Equal(t, want, g.Context, "golden %d context", i)
		assert.Equal(t, 1, g.Trace.Len())
		assert.False(t, g.Trace.Truncated)
		assert.Equal(t, domain.CategoryDepth, g.Trace.Steps[0].Category())
		require.NotNil(t, g.ExpectedOutput)
		assert.Equal(t, "A: "+g.Input, *g.ExpectedOutput)
		assert.Equal(t, domain.OriginContext, g.Origin)
		assert.NotEmpty(t, g.ID)
	}
	assert.Contains(t, result.Goldens[0].Input, "q1 about Paris is the capital of France.")
	assert.Contains(t, result.Goldens[1].Input, "q2 about Paris")
	assert.Contains(t, result.Goldens[2].Input, "q1 about Berlin")

	// 2 seed calls, 4 evolution calls, 4 expected output calls.
	assert.Len(t, llm.Calls(), 10)
}

func TestOrchestrator_ZeroEvolutions_IsIdentity(t *testing.T) {
	llm := &mockLLMService{}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 1, NumEvolutions: 0}
	result, err := orch.Run(context.Background(), promptUnits("  What is Go?  ", "Explain channels."), req)

	require.NoError(t, err)
	require.Len(t, result.Goldens, 2)
	assert.Equal(t, "What is Go?", result.Goldens[0].Input)
	assert.Equal(t, "Explain channels.", result.Goldens[1].Input)
	for _, g := range result.Goldens {
		assert.Zero(t, g.Trace.Len())
		assert.Nil(t, g.Context)
		assert.Nil(t, g.ExpectedOutput)
		assert.Equal(t, domain.OriginPrompt, g.Origin)
	}
	assert.Empty(t, llm.Calls())
}

func TestOrchestrator_QuotaRespected(t *testing.T) {
	llm := &mockLLMService{reply: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "seed|") {
			return `["a", "b", "c", "d", "e"]`, nil
		}
		return defaultReply(prompt)
	}}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	for _, quota := range []int{0, 1, 3} {
		req := domain.GenerationRequest{MaxGoldensPerUnit: quota, NumEvolutions: 1}
		result, err := orch.Run(context.Background(), contextUnits(parisGroup, berlinGroup), req)
		require.NoError(t, err)
		assert.Len(t, result.Goldens, 2*quota, "quota %d", quota)
	}
}

func TestOrchestrator_TraceLengthMatchesRounds(t *testing.T) {
	llm := &mockLLMService{}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	for _, rounds := range []int{1, 2, 5} {
		req := domain.GenerationRequest{MaxGoldensPerUnit: 2, NumEvolutions: rounds, BreadthEnabled: true}
		result, err := orch.Run(context.Background(), contextUnits(parisGroup), req)
		require.NoError(t, err)
		for _, g := range result.Goldens {
			assert.Equal(t, rounds, g.Trace.Len())
			assert.Equal(t, rounds, strings.Count(g.Input, "("))
		}
	}
}

func TestOrchestrator_BreadthGating(t *testing.T) {
	llm := &mockLLMService{}
	orch := newTestOrchestrator(llm, OrchestratorConfig{Concurrent: true})

	groups := make([]domain.ContextGroup, 10)
	for i := range groups {
		groups[i] = parisGroup
	}
	req := domain.GenerationRequest{MaxGoldensPerUnit: 2, NumEvolutions: 4}
	result, err := orch.Run(context.Background(), contextUnits(groups...), req)

	require.NoError(t, err)
	require.Len(t, result.Goldens, 20)
	for _, g := range result.Goldens {
		for _, k := range g.Trace.Steps {
			assert.Equal(t, domain.CategoryDepth, k.Category(), "breadth kind %s used while disabled", k)
		}
	}
}

func TestOrchestrator_TextOnlyKindsWithoutContext(t *testing.T) {
	llm := &mockLLMService{}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 1, NumEvolutions: 6, BreadthEnabled: true}
	result, err := orch.Run(context.Background(), promptUnits("a", "b", "c"), req)

	require.NoError(t, err)
	for _, g := range result.Goldens {
		for _, k := range g.Trace.Steps {
			assert.False(t, k.RequiresContext(), "context kind %s used without context", k)
		}
	}
}

func TestOrchestrator_EmptyPool_RecordsSkipped(t *testing.T) {
	llm := &mockLLMService{}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	req := domain.GenerationRequest{
		MaxGoldensPerUnit: 1,
		NumEvolutions:     2,
		AllowedEvolutions: []domain.EvolutionKind{domain.EvolutionMultiContext},
	}
	result, err := orch.Run(context.Background(), promptUnits("What is Go?"), req)

	require.NoError(t, err)
	require.Len(t, result.Goldens, 1)
	g := result.Goldens[0]
	assert.Equal(t, "What is Go?", g.Input)
	assert.Equal(t, []domain.EvolutionKind{domain.EvolutionSkipped, domain.EvolutionSkipped}, g.Trace.Steps)
	assert.Empty(t, llm.Calls())
}

func TestOrchestrator_SequentialAndConcurrentAgree(t *testing.T) {
	groups := []domain.ContextGroup{parisGroup, berlinGroup, {"Rome is the capital of Italy."}, {"Madrid is in Spain."}}
	req := domain.GenerationRequest{MaxGoldensPerUnit: 3, NumEvolutions: 3, BreadthEnabled: true, IncludeExpectedOutput: true}

	seq, err := newTestOrchestrator(&mockLLMService{}, OrchestratorConfig{Seed: 7}).
		Run(context.Background(), contextUnits(groups...), req)
	require.NoError(t, err)

	conc, err := newTestOrchestrator(&mockLLMService{}, OrchestratorConfig{Seed: 7, Concurrent: true, MaxWorkers: 3}).
		Run(context.Background(), contextUnits(groups...), req)
	require.NoError(t, err)

	assert.Equal(t, stripIDs(seq.Goldens), stripIDs(conc.Goldens))
	assert.Equal(t, seq.Warnings, conc.Warnings)
}

func TestOrchestrator_SameSeedIsReproducible(t *testing.T) {
	req := domain.GenerationRequest{MaxGoldensPerUnit: 2, NumEvolutions: 4, BreadthEnabled: true}

	first, err := newTestOrchestrator(&mockLLMService{}, OrchestratorConfig{Seed: 99}).
		Run(context.Background(), contextUnits(parisGroup, berlinGroup), req)
	require.NoError(t, err)
	second, err := newTestOrchestrator(&mockLLMService{}, OrchestratorConfig{Seed: 99}).
		Run(context.Background(), contextUnits(parisGroup, berlinGroup), req)
	require.NoError(t, err)

	assert.Equal(t, stripIDs(first.Goldens), stripIDs(second.Goldens))
}

func TestOrchestrator_ContextIsDefensiveCopy(t *testing.T) {
	group := domain.ContextGroup{"Paris is the capital of France."}
	orch := newTestOrchestrator(&mockLLMService{}, OrchestratorConfig{})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 2, NumEvolutions: 1}
	result, err := orch.Run(context.Background(), contextUnits(group), req)
	require.NoError(t, err)
	require.Len(t, result.Goldens, 2)

	result.Goldens[0].Context[0] = "mutated"
	assert.Equal(t, "Paris is the capital of France.", group[0])
	assert.Equal(t, "Paris is the capital of France.", result.Goldens[1].Context[0])
}

func TestOrchestrator_EvolutionFailure_TruncatesTrace(t *testing.T) {
	var evolveCalls int
	llm := &mockLLMService{fail: func(prompt string) error {
		if strings.HasPrefix(prompt, "evolve|") {
			evolveCalls++
			if evolveCalls == 2 {
				return errors.New("model overloaded")
			}
		}
		return nil
	}}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 1, NumEvolutions: 3}
	result, err := orch.Run(context.Background(), promptUnits("What is Go?"), req)

	require.NoError(t, err)
	require.Len(t, result.Goldens, 1)
	g := result.Goldens[0]
	assert.True(t, g.Trace.Truncated)
	assert.Equal(t, 1, g.Trace.Len())
	assert.Equal(t, g.Trace.Steps[0].String()+"(What is Go?)", g.Input)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, domain.StageEvolve, result.Warnings[0].Stage)
	assert.Equal(t, 0, result.Warnings[0].Unit)
	assert.Contains(t, result.Warnings[0].Message, "model overloaded")
}

func TestOrchestrator_ExpectedOutputFailure_EmitsGoldenWithoutOutput(t *testing.T) {
	llm := &mockLLMService{reply: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "answer|") {
			return "   ", nil
		}
		return defaultReply(prompt)
	}}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 1, NumEvolutions: 1, IncludeExpectedOutput: true}
	result, err := orch.Run(context.Background(), promptUnits("What is Go?"), req)

	require.NoError(t, err)
	require.Len(t, result.Goldens, 1)
	assert.Nil(t, result.Goldens[0].ExpectedOutput)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, domain.StageAssemble, result.Warnings[0].Stage)
}

func TestOrchestrator_ExpectedOutputs_BatchedPerUnit(t *testing.T) {
	llm := &mockBatchLLMService{mockLLMService: &mockLLMService{fail: func(prompt string) error {
		if prompt == "answer|q2 about Paris is the capital of France." {
			return errors.New("model overloaded")
		}
		return nil
	}}}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 3, NumEvolutions: 0, IncludeExpectedOutput: true}
	result, err := orch.Run(context.Background(), contextUnits(parisGroup), req)

	require.NoError(t, err)
	assert.Equal(t, []int{3}, llm.Batches())
	require.Len(t, result.Goldens, 3)

	require.NotNil(t, result.Goldens[0].ExpectedOutput)
	assert.Equal(t, "A: q1 about Paris is the capital of France.", *result.Goldens[0].ExpectedOutput)
	assert.Nil(t, result.Goldens[1].ExpectedOutput)
	assert.Equal(t, "q2 about Paris is the capital of France.", result.Goldens[1].Input)
	require.NotNil(t, result.Goldens[2].ExpectedOutput)
	assert.Equal(t, "A: q3 about Paris is the capital of France.", *result.Goldens[2].ExpectedOutput)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, domain.StageAssemble, result.Warnings[0].Stage)
	assert.Contains(t, result.Warnings[0].Message, "seed 1")
	assert.Contains(t, result.Warnings[0].Message, "model overloaded")
}

func TestOrchestrator_ExpectedOutputs_NoBatchWithoutRequest(t *testing.T) {
	llm := &mockBatchLLMService{mockLLMService: &mockLLMService{}}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 2, NumEvolutions: 1}
	result, err := orch.Run(context.Background(), contextUnits(parisGroup), req)

	require.NoError(t, err)
	require.Len(t, result.Goldens, 2)
	assert.Empty(t, llm.Batches())
	assert.Zero(t, llm.CallsWithPrefix("answer|"))
}

func TestOrchestrator_PartialSeedBatchAccepted(t *testing.T) {
	llm := &mockLLMService{reply: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "seed|") {
			return `{"data": [{"input": "only one"}]}`, nil
		}
		return defaultReply(prompt)
	}}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 3, NumEvolutions: 0}
	result, err := orch.Run(context.Background(), contextUnits(parisGroup), req)

	require.NoError(t, err)
	require.Len(t, result.Goldens, 1)
	assert.Equal(t, "only one", result.Goldens[0].Input)
	assert.Empty(t, result.Warnings)
}

func TestOrchestrator_SeedParseFailure_IsUnitWarning(t *testing.T) {
	llm := &mockLLMService{reply: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "seed|2|[1] Berlin") {
			return "{}", nil
		}
		return defaultReply(prompt)
	}}
	orch := newTestOrchestrator(llm, OrchestratorConfig{Concurrent: true})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 2, NumEvolutions: 1}
	result, err := orch.Run(context.Background(), contextUnits(parisGroup, berlinGroup), req)

	require.NoError(t, err)
	assert.Len(t, result.Goldens, 2)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, 1, result.Warnings[0].Unit)
	assert.Equal(t, domain.StageSeed, result.Warnings[0].Stage)
}

func TestOrchestrator_MalformedContextGroup_IsUnitWarning(t *testing.T) {
	orch := newTestOrchestrator(&mockLLMService{}, OrchestratorConfig{MaxPassagesPerGroup: 2})

	units := contextUnits(parisGroup, domain.ContextGroup{}, domain.ContextGroup{"a", "b", "c"}, domain.ContextGroup{" "})
	req := domain.GenerationRequest{MaxGoldensPerUnit: 1, NumEvolutions: 1}
	result, err := orch.Run(context.Background(), units, req)

	require.NoError(t, err)
	assert.Len(t, result.Goldens, 1)
	require.Len(t, result.Warnings, 3)
	for i, w := range result.Warnings {
		assert.Equal(t, i+1, w.Unit)
		assert.Equal(t, domain.StageContext, w.Stage)
	}
}

func TestOrchestrator_InvalidRequest_NoModelCalls(t *testing.T) {
	llm := &mockLLMService{}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	tests := []struct {
		name  string
		req   domain.GenerationRequest
		field string
	}{
		{"negative quota", domain.GenerationRequest{MaxGoldensPerUnit: -1}, "max_goldens_per_unit"},
		{"negative rounds", domain.GenerationRequest{NumEvolutions: -2}, "num_evolutions"},
		{"unknown kind", domain.GenerationRequest{AllowedEvolutions: []domain.EvolutionKind{"telepathy"}}, "allowed_evolution_types"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := orch.Run(context.Background(), contextUnits(parisGroup), tt.req)

			require.ErrorIs(t, err, domain.ErrInvalidConfig)
			var cfgErr *domain.InvalidConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
	assert.Empty(t, llm.Calls())
}

func TestOrchestrator_CancelledContext_ReportsUnstartedUnits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, concurrent := range []bool{false, true} {
		llm := &mockLLMService{}
		orch := newTestOrchestrator(llm, OrchestratorConfig{Concurrent: concurrent})

		req := domain.GenerationRequest{MaxGoldensPerUnit: 1, NumEvolutions: 1}
		result, err := orch.Run(ctx, contextUnits(parisGroup, berlinGroup), req)

		require.NoError(t, err)
		assert.Empty(t, result.Goldens)
		require.Len(t, result.Warnings, 2)
		assert.Contains(t, result.Warnings[0].Message, "not started")
		assert.Empty(t, llm.Calls())
	}
}

func TestOrchestrator_SpanTree(t *testing.T) {
	orch := newTestOrchestrator(&mockLLMService{}, OrchestratorConfig{})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 1, NumEvolutions: 2, IncludeExpectedOutput: true}
	result, err := orch.Run(context.Background(), contextUnits(parisGroup, berlinGroup), req)
	require.NoError(t, err)

	root := result.Span
	require.NotNil(t, root)
	assert.Equal(t, "generate", root.Name())
	assert.False(t, root.EndTime().IsZero())
	require.Len(t, root.Children(), 2)

	names := map[string]int{}
	root.Walk(func(s *domain.Span, _ int) {
		names[s.Name()]++
	})
	assert.Equal(t, 2, names["unit"])
	assert.Equal(t, 2, names["seeds"])
	assert.Equal(t, 2, names["evolve"])
	assert.Equal(t, 4, names["round"])
	assert.Equal(t, 2, names["assemble"])
}

func TestOrchestrator_Metrics(t *testing.T) {
	metrics := newMockMetrics()
	orch := NewOrchestrator(&mockLLMService{}, newMockPromptStore(), metrics, OrchestratorConfig{Seed: 1})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 2, NumEvolutions: 1}
	_, err := orch.Run(context.Background(), contextUnits(parisGroup), req)
	require.NoError(t, err)

	assert.Equal(t, 2, metrics.goldens[domain.OriginContext])
	total := 0
	for _, n := range metrics.evolutions {
		total += n
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, 3, metrics.llmCalls)
	assert.Zero(t, metrics.llmErrors)
}

func TestOrchestrator_NilLLM_WarnsPerUnit(t *testing.T) {
	orch := NewOrchestrator(nil, nil, nil, OrchestratorConfig{Seed: 1})

	req := domain.GenerationRequest{MaxGoldensPerUnit: 1, NumEvolutions: 1}
	result, err := orch.Run(context.Background(), contextUnits(parisGroup), req)

	require.NoError(t, err)
	assert.Empty(t, result.Goldens)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, domain.ErrLLMUnavailable.Error())
}

func TestOrchestrator_DefaultsApplied(t *testing.T) {
	orch := NewOrchestrator(&mockLLMService{}, nil, nil, OrchestratorConfig{})

	assert.Positive(t, orch.Config().MaxWorkers)
}

func TestOrchestrator_RunScratch(t *testing.T) {
	llm := &mockLLMService{}
	orch := newTestOrchestrator(llm, OrchestratorConfig{Concurrent: true})

	spec := domain.ScratchSpec{Subject: "tax law", Task: "answer questions", NumInitialGoldens: 3}
	req := domain.GenerationRequest{MaxGoldensPerUnit: 1, NumEvolutions: 1}
	result, err := orch.RunScratch(context.Background(), spec, req)

	require.NoError(t, err)
	require.Len(t, result.Goldens, 3)
	for i, g := range result.Goldens {
		assert.Equal(t, domain.OriginScratch, g.Origin)
		assert.Nil(t, g.Context)
		assert.Contains(t, g.Input, "scratch question "+string(rune('1'+i)))
	}
	assert.Equal(t, 1, llm.CallsWithPrefix("scratch|3|tax law|answer questions|free text"))
}

func TestOrchestrator_RunScratch_InvalidSpec(t *testing.T) {
	llm := &mockLLMService{}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	tests := []struct {
		name string
		spec domain.ScratchSpec
	}{
		{"zero goldens", domain.ScratchSpec{Subject: "s", Task: "t", NumInitialGoldens: 0}},
		{"blank subject", domain.ScratchSpec{Subject: "  ", Task: "t", NumInitialGoldens: 1}},
		{"missing task", domain.ScratchSpec{Subject: "s", NumInitialGoldens: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := orch.RunScratch(context.Background(), tt.spec, domain.GenerationRequest{MaxGoldensPerUnit: 1})
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
	assert.Empty(t, llm.Calls())
}

func TestOrchestrator_RunScratch_SeedFailure(t *testing.T) {
	llm := &mockLLMService{fail: func(string) error { return errors.New("boom") }}
	orch := newTestOrchestrator(llm, OrchestratorConfig{})

	spec := domain.ScratchSpec{Subject: "s", Task: "t", NumInitialGoldens: 2}
	result, err := orch.RunScratch(context.Background(), spec, domain.GenerationRequest{MaxGoldensPerUnit: 1})

	require.NoError(t, err)
	assert.Empty(t, result.Goldens)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, -1, result.Warnings[0].Unit)
	assert.Equal(t, domain.StageSeed, result.Warnings[0].Stage)
}
