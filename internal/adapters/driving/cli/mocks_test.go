package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driving"
)

// mockGenerationService records the last call of each kind.
type mockGenerationService struct {
	result *domain.GenerationResult
	err    error

	lastReq  domain.GenerationRequest
	contexts [][]string
	paths    []string
	opts     domain.ContextOptions
	prompts  []string
	scratch  domain.ScratchSpec
}

func (m *mockGenerationService) respond(req domain.GenerationRequest) (*domain.GenerationResult, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.GenerationResult{}, nil
	}
	return m.result, nil
}

func (m *mockGenerationService) FromContexts(_ context.Context, contexts [][]string, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	m.contexts = contexts
	return m.respond(req)
}

func (m *mockGenerationService) FromDocuments(
	_ context.Context, paths []string, req domain.GenerationRequest, opts domain.ContextOptions,
) (*domain.GenerationResult, error) {
	m.paths = paths
	m.opts = opts
	return m.respond(req)
}

func (m *mockGenerationService) FromPrompts(_ context.Context, prompts []string, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	m.prompts = prompts
	return m.respond(req)
}

func (m *mockGenerationService) FromScratch(_ context.Context, spec domain.ScratchSpec, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	m.scratch = spec
	return m.respond(req)
}

// mockDatasetService keeps datasets in memory.
type mockDatasetService struct {
	datasets map[string]*domain.Dataset
	err      error

	savedName    string
	savedKind    domain.UnitKind
	exportedID   string
	exportedKind domain.DatasetKind
	exportedPath string
	importedName string
	deleted      []string
}

func newMockDatasetService(datasets ...*domain.Dataset) *mockDatasetService {
	m := &mockDatasetService{datasets: map[string]*domain.Dataset{}}
	for _, ds := range datasets {
		m.datasets[ds.ID] = ds
	}
	return m
}

func (m *mockDatasetService) Save(_ context.Context, name string, kind domain.UnitKind, req domain.GenerationRequest,
	result *domain.GenerationResult) (*domain.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.savedName, m.savedKind = name, kind
	ds := &domain.Dataset{ID: "ds-new", Name: name, SourceKind: kind, Request: req,
		Goldens: result.Goldens, Warnings: result.Warnings}
	m.datasets[ds.ID] = ds
	return ds, nil
}

func (m *mockDatasetService) Get(_ context.Context, id string) (*domain.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	ds, ok := m.datasets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ds, nil
}

func (m *mockDatasetService) List(context.Context) ([]domain.DatasetSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	summaries := []domain.DatasetSummary{}
	for _, ds := range m.datasets {
		summaries = append(summaries, ds.Summary())
	}
	return summaries, nil
}

func (m *mockDatasetService) Delete(_ context.Context, id string) error {
	if _, ok := m.datasets[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.datasets, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDatasetService) Export(_ context.Context, id string, kind domain.DatasetKind, path string) (string, error) {
	if _, ok := m.datasets[id]; !ok {
		return "", domain.ErrNotFound
	}
	m.exportedID, m.exportedKind, m.exportedPath = id, kind, path
	return path, nil
}

func (m *mockDatasetService) Import(_ context.Context, name, path string) (*domain.Dataset, error) {
	m.importedName = name
	ds := &domain.Dataset{ID: "ds-imported", Name: name, Goldens: []domain.Golden{{Input: path}}}
	m.datasets[ds.ID] = ds
	return ds, nil
}

func (m *mockDatasetService) Open(ctx context.Context, ref string) (*domain.Dataset, error) {
	return m.Get(ctx, ref)
}

// mockSettingsService serves a fixed settings value.
type mockSettingsService struct {
	settings   domain.AppSettings
	generation *domain.GenerationSettings
}

func newMockSettingsService() *mockSettingsService {
	s := domain.DefaultAppSettings()
	s.Output.Dir = ""
	return &mockSettingsService{settings: s}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(domain.AIProvider, string, string) error { return nil }
func (m *mockSettingsService) SetLLMProvider(domain.AIProvider, string, string) error { return nil }

func (m *mockSettingsService) SetGeneration(gen domain.GenerationSettings) error {
	m.generation = &gen
	m.settings.Generation = gen
	return nil
}

func (m *mockSettingsService) Validate() error { return nil }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error { return nil }
func (m *mockSettingsService) ValidateLLMConfig() error { return nil }

// testEnv wires mocks into the package services for one test.
type testEnv struct {
	gen      *mockGenerationService
	datasets *mockDatasetService
	settings *mockSettingsService

	// appliedSettings is what the generation factory received.
	appliedSettings *domain.AppSettings
	cleanedUp       bool
}

func setupTestServices(t *testing.T, datasets ...*domain.Dataset) *testEnv {
	t.Helper()
	env := &testEnv{
		gen:      &mockGenerationService{},
		datasets: newMockDatasetService(datasets...),
		settings: newMockSettingsService(),
	}

	previous := services
	SetServices(Services{
		Generation: func(_ context.Context, s *domain.AppSettings) (driving.GenerationService, func(), error) {
			env.appliedSettings = s
			return env.gen, func() { env.cleanedUp = true }, nil
		},
		Datasets: env.datasets,
		Settings: env.settings,
	})
	t.Cleanup(func() { services = previous })
	return env
}

// executeCommand runs the root command with fresh flag state.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag in the tree to its default, since the
// command tree is shared between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func strPtr(s string) *string { return &s }

func testDataset() *domain.Dataset {
	return &domain.Dataset{
		ID:         "ds-1",
		Name:       "handbook",
		SourceKind: domain.UnitContext,
		Goldens: []domain.Golden{
			{
				Input:          "How long is parental leave?",
				ExpectedOutput: strPtr("Sixteen weeks."),
				Context:        domain.ContextGroup{"Parental leave is sixteen weeks."},
				Trace:          domain.EvolutionTrace{Steps: []domain.EvolutionKind{domain.EvolutionReasoning}},
				Origin:         domain.OriginContext,
			},
			{Input: "Who approves remote work?", Origin: domain.OriginContext},
		},
		Warnings: []domain.Warning{{Unit: 1, Stage: domain.StageSeed, Message: "model timed out"}},
	}
}
