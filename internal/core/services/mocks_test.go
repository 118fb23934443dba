package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

// testPrompts are compact templates that make every model call easy to recognise.
var testPrompts = func() map[string]string {
	m := map[string]string{
		driven.PromptSeedFromContext: "seed|{{count}}|{{context}}",
		driven.PromptSeedFromScratch: "scratch|{{count}}|{{subject}}|{{task}}|{{output_format}}",
		driven.PromptExpectedOutput:  "answer|{{input}}",
	}
	for _, k := range domain.AllEvolutionKinds() {
		m[driven.EvolutionPromptName(k)] = "evolve|" + k.String() + "|{{input}}"
	}
	return m
}()

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts  map[string]string
	reloaded int
}

func newMockPromptStore() *mockPromptStore {
	return &mockPromptStore{prompts: testPrompts}
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {
	m.reloaded++
}

// mockLLMService implements driven.LLMService for testing.
// By default it answers the test templates deterministically:
//   - seed prompts return {"data":[...]} with count inputs derived from the context
//   - scratch prompts return a numbered list
//   - evolve prompts wrap the input as kind(input)
//   - answer prompts return "A: input"
//
// fail, when set, is consulted before every call.
type mockLLMService struct {
	mu    sync.Mutex
	calls []string
	fail  func(prompt string) error
	reply func(prompt string) (string, error)
	delay time.Duration
}

func (m *mockLLMService) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.fail != nil {
		if err := m.fail(prompt); err != nil {
			return "", err
		}
	}
	if m.reply != nil {
		return m.reply(prompt)
	}
	return defaultReply(prompt)
}

func (m *mockLLMService) Chat(_ context.Context, _ []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockLLMService) ModelName() string {
	return "mock-model"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

func (m *mockLLMService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallsWithPrefix counts calls whose prompt starts with prefix.
func (m *mockLLMService) CallsWithPrefix(prefix string) int {
	n := 0
	for _, c := range m.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func defaultReply(prompt string) (string, error) {
	parts := strings.SplitN(prompt, "|", 3)
	switch parts[0] {
	case "seed":
		count, _ := strconv.Atoi(parts[1])
		topic := firstPassage(parts[2])
		items := make([]map[string]string, count)
		for i := range items {
			items[i] = map[string]string{"input": fmt.Sprintf("q%d about %s", i+1, topic)}
		}
		data, _ := json.Marshal(map[string]any{"data": items})
		return string(data), nil
	case "scratch":
		count, _ := strconv.Atoi(parts[1])
		var b strings.Builder
		for i := 1; i <= count; i++ {
			fmt.Fprintf(&b, "%d. scratch question %d\n", i, i)
		}
		return b.String(), nil
	case "evolve":
		return fmt.Sprintf("%s(%s)", parts[1], parts[2]), nil
	case "answer":
		return "A: " + parts[1], nil
	}
	return "", fmt.Errorf("unexpected prompt %q", prompt)
}

// firstPassage extracts the first passage text from a formatted context block.
func firstPassage(block string) string {
	line, _, _ := strings.Cut(block, "\n")
	if _, rest, ok := strings.Cut(line, "] "); ok {
		return rest
	}
	return line
}

// mockMetrics implements driven.MetricsRecorder for testing.
type mockMetrics struct {
	mu         sync.Mutex
	goldens    map[domain.SeedOrigin]int
	evolutions map[domain.EvolutionKind]int
	warnings   map[domain.WarningStage]int
	llmCalls   int
	llmErrors  int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		goldens:    map[domain.SeedOrigin]int{},
		evolutions: map[domain.EvolutionKind]int{},
		warnings:   map[domain.WarningStage]int{},
	}
}

func (m *mockMetrics) GoldenEmitted(origin domain.SeedOrigin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goldens[origin]++
}

func (m *mockMetrics) EvolutionApplied(kind domain.EvolutionKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evolutions[kind]++
}

func (m *mockMetrics) WarningRecorded(stage domain.WarningStage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings[stage]++
}

func (m *mockMetrics) LLMCall(_ string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.llmCalls++
	if err != nil {
		m.llmErrors++
	}
}

// mockContextBuilder implements driven.DocumentContextBuilder for testing.
type mockContextBuilder struct {
	contexts []driven.DocumentContext
	err      error
	gotPaths []string
	gotOpts  domain.ContextOptions
}

func (m *mockContextBuilder) Build(_ context.Context, paths []string, opts domain.ContextOptions) ([]driven.DocumentContext, error) {
	m.gotPaths = paths
	m.gotOpts = opts
	return m.contexts, m.err
}

// mockSpanExporter implements driven.SpanExporter for testing.
type mockSpanExporter struct {
	roots []*domain.Span
	err   error
}

func (m *mockSpanExporter) Export(_ context.Context, root *domain.Span) error {
	m.roots = append(m.roots, root)
	return m.err
}

func (m *mockSpanExporter) Shutdown(_ context.Context) error {
	return nil
}

// mockDatasetFile implements driven.DatasetWriter and driven.DatasetReader for testing.
type mockDatasetFile struct {
	written  []domain.Golden
	kind     domain.DatasetKind
	path     string
	read     []domain.Golden
	writeErr error
	readErr  error
}

func (m *mockDatasetFile) Write(_ context.Context, goldens []domain.Golden, kind domain.DatasetKind, path string) (string, error) {
	if m.writeErr != nil {
		return "", m.writeErr
	}
	m.written = goldens
	m.kind = kind
	m.path = path
	return path, nil
}

func (m *mockDatasetFile) Read(_ context.Context, _ string) ([]domain.Golden, error) {
	return m.read, m.readErr
}

// newTestOrchestrator builds an orchestrator over the mock LLM with the test templates.
func newTestOrchestrator(llm driven.LLMService, cfg OrchestratorConfig) *Orchestrator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	return NewOrchestrator(llm, newMockPromptStore(), nil, cfg)
}

// mockBatchLLMService implements driven.BatchLLMService over mockLLMService,
// recording the size of every batch.
type mockBatchLLMService struct {
	*mockLLMService
	batches []int
}

func (m *mockBatchLLMService) GenerateBatch(ctx context.Context, prompts []string, opts driven.GenerateOptions) ([]string, []error) {
	m.mu.Lock()
	m.batches = append(m.batches, len(prompts))
	m.mu.Unlock()

	outs := make([]string, len(prompts))
	errs := make([]error, len(prompts))
	for i, p := range prompts {
		outs[i], errs[i] = m.Generate(ctx, p, opts)
	}
	return outs, errs
}

func (m *mockBatchLLMService) Batches() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batches...)
}
