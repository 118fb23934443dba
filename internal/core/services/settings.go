package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"

	keyGenMaxPerUnit     = "generation.max_goldens_per_unit"
	keyGenMaxPerDocument = "generation.max_goldens_per_document"
	keyGenEvolutions     = "generation.num_evolutions"
	keyGenBreadth        = "generation.enable_breadth_evolve"
	keyGenAllowed        = "generation.allowed_evolution_types"
	keyGenExpected       = "generation.include_expected_output"
	keyGenMaxPassages    = "generation.max_passages_per_group"

	keyChunkSize      = "chunking.chunk_size"
	keyChunkOverlap   = "chunking.chunk_overlap"
	keyChunkGroupSize = "chunking.context_group_size"
	keyChunkThreshold = "chunking.similarity_threshold"
	keyChunkMaxGroups = "chunking.max_groups"

	keyExecConcurrent = "execution.concurrent"
	keyExecWorkers    = "execution.max_workers"
	keyExecSeed       = "execution.seed"
	keyExecTimeout    = "execution.call_timeout"
	keyExecRetries    = "execution.max_retries"
	keyExecRPS        = "execution.requests_per_second"

	keyOutputDir    = "output.dir"
	keyOutputFormat = "output.format"

	keyCacheEmbeddings = "cache.embeddings_dir"

	keyTraceStdout = "telemetry.trace_stdout"
	keyMetricsAddr = "telemetry.metrics_addr"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Generation: domain.GenerationSettings{
			MaxGoldensPerContext:  s.getInt(keyGenMaxPerUnit, defaults.Generation.MaxGoldensPerContext),
			MaxGoldensPerDocument: s.getInt(keyGenMaxPerDocument, defaults.Generation.MaxGoldensPerDocument),
			NumEvolutions:         s.getInt(keyGenEvolutions, defaults.Generation.NumEvolutions),
			EnableBreadthEvolve:   s.getBool(keyGenBreadth, defaults.Generation.EnableBreadthEvolve),
			AllowedEvolutionTypes: s.getEvolutionKinds(),
			IncludeExpectedOutput: s.getBool(keyGenExpected, defaults.Generation.IncludeExpectedOutput),
			MaxPassagesPerGroup:   s.getInt(keyGenMaxPassages, defaults.Generation.MaxPassagesPerGroup),
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize:           s.getInt(keyChunkSize, defaults.Chunking.ChunkSize),
			ChunkOverlap:        s.getInt(keyChunkOverlap, defaults.Chunking.ChunkOverlap),
			GroupSize:           s.getInt(keyChunkGroupSize, defaults.Chunking.GroupSize),
			MaxGroups:           s.getInt(keyChunkMaxGroups, defaults.Chunking.MaxGroups),
			SimilarityThreshold: s.getFloat(keyChunkThreshold, defaults.Chunking.SimilarityThreshold),
		},
		Execution: domain.ExecutionSettings{
			Concurrent:        s.getBool(keyExecConcurrent, defaults.Execution.Concurrent),
			MaxWorkers:        s.getInt(keyExecWorkers, defaults.Execution.MaxWorkers),
			Seed:              uint64(max(s.configStore.GetInt(keyExecSeed), 0)),
			CallTimeout:       s.getDuration(keyExecTimeout, defaults.Execution.CallTimeout),
			MaxAttempts:       s.getInt(keyExecRetries, defaults.Execution.MaxAttempts),
			RequestsPerSecond: s.getFloat(keyExecRPS, defaults.Execution.RequestsPerSecond),
		},
		Output: domain.OutputSettings{
			Dir:    s.getString(keyOutputDir, defaults.Output.Dir),
			Format: s.getDatasetKind(defaults.Output.Format),
		},
		Cache: domain.CacheSettings{
			EmbeddingsDir: s.configStore.GetString(keyCacheEmbeddings),
		},
		Telemetry: domain.TelemetrySettings{
			TraceStdout: s.getBool(keyTraceStdout, defaults.Telemetry.TraceStdout),
			MetricsAddr: s.configStore.GetString(keyMetricsAddr),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	// Save embedding settings
	if err := s.configStore.Set(keyEmbedProvider, settings.Embedding.Provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, settings.Embedding.Model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if err := s.configStore.Set(keyEmbedBaseURL, settings.Embedding.BaseURL); err != nil {
		return fmt.Errorf("save embedding base_url: %w", err)
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	// Save LLM settings
	if err := s.configStore.Set(keyLLMProvider, settings.LLM.Provider.String()); err != nil {
		return fmt.Errorf("save llm provider: %w", err)
	}
	if err := s.configStore.Set(keyLLMModel, settings.LLM.Model); err != nil {
		return fmt.Errorf("save llm model: %w", err)
	}
	if err := s.configStore.Set(keyLLMBaseURL, settings.LLM.BaseURL); err != nil {
		return fmt.Errorf("save llm base_url: %w", err)
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	if err := s.saveGeneration(settings.Generation); err != nil {
		return err
	}

	c := settings.Chunking
	e := settings.Execution
	values := []struct {
		key   string
		value any
	}{
		{keyChunkSize, c.ChunkSize},
		{keyChunkOverlap, c.ChunkOverlap},
		{keyChunkGroupSize, c.GroupSize},
		{keyChunkMaxGroups, c.MaxGroups},
		{keyChunkThreshold, c.SimilarityThreshold},
		{keyExecConcurrent, e.Concurrent},
		{keyExecWorkers, e.MaxWorkers},
		{keyExecSeed, int64(e.Seed)}, //nolint:gosec // seeds above MaxInt64 are not expected in config files
		{keyExecTimeout, e.CallTimeout.String()},
		{keyExecRetries, e.MaxAttempts},
		{keyExecRPS, e.RequestsPerSecond},
		{keyOutputDir, settings.Output.Dir},
		{keyOutputFormat, settings.Output.Format.String()},
		{keyCacheEmbeddings, settings.Cache.EmbeddingsDir},
		{keyTraceStdout, settings.Telemetry.TraceStdout},
		{keyMetricsAddr, settings.Telemetry.MetricsAddr},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

func (s *SettingsService) saveGeneration(g domain.GenerationSettings) error {
	allowed := make([]string, len(g.AllowedEvolutionTypes))
	for i, k := range g.AllowedEvolutionTypes {
		allowed[i] = k.String()
	}
	values := []struct {
		key   string
		value any
	}{
		{keyGenMaxPerUnit, g.MaxGoldensPerContext},
		{keyGenMaxPerDocument, g.MaxGoldensPerDocument},
		{keyGenEvolutions, g.NumEvolutions},
		{keyGenBreadth, g.EnableBreadthEvolve},
		{keyGenAllowed, allowed},
		{keyGenExpected, g.IncludeExpectedOutput},
		{keyGenMaxPassages, g.MaxPassagesPerGroup},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate provider supports embeddings
	validProviders := domain.AllEmbeddingProviders()
	valid := false
	for _, p := range validProviders {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		defaults := domain.DefaultEmbeddingModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.Embedding.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else {
		defaults := domain.DefaultLLMModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.LLM.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetGeneration validates and stores the generation defaults.
func (s *SettingsService) SetGeneration(gen domain.GenerationSettings) error {
	if err := ValidateRequest(gen.Request(gen.MaxGoldensPerContext)); err != nil {
		return err
	}
	if gen.MaxGoldensPerDocument < 0 {
		return domain.NewInvalidConfigError("max_goldens_per_document", "must be >= 0")
	}
	if gen.MaxPassagesPerGroup < 0 {
		return domain.NewInvalidConfigError("max_passages_per_group", "must be >= 0")
	}
	return s.saveGeneration(gen)
}

// Validate checks that current settings can drive a generation run.
// All problems are reported together.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("llm provider is not configured: %w", domain.ErrLLMUnavailable))
	}
	gen := settings.Generation
	if err := ValidateRequest(gen.Request(gen.MaxGoldensPerContext)); err != nil {
		errs = append(errs, err)
	}
	if err := settings.Chunking.ContextOptions(0).Validate(); err != nil {
		errs = append(errs, err)
	}
	if settings.Execution.MaxWorkers < 0 {
		errs = append(errs, domain.NewInvalidConfigError("max_workers", "must be >= 0"))
	}
	if settings.Execution.MaxAttempts < 1 {
		errs = append(errs, domain.NewInvalidConfigError("max_retries", "must be >= 1"))
	}
	if !settings.Output.Format.IsValid() {
		errs = append(errs, domain.NewInvalidConfigError("format", fmt.Sprintf("unknown dataset format %q", settings.Output.Format)))
	}

	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getDatasetKind(defaultVal domain.DatasetKind) domain.DatasetKind {
	val := s.configStore.GetString(keyOutputFormat)
	if val == "" {
		return defaultVal
	}
	return domain.DatasetKind(val)
}

// getEvolutionKinds ignores unknown kind names.
func (s *SettingsService) getEvolutionKinds() []domain.EvolutionKind {
	var kinds []domain.EvolutionKind
	for _, name := range s.configStore.GetStringSlice(keyGenAllowed) {
		if k := domain.EvolutionKind(name); k.IsValid() {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
