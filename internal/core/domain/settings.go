package domain

import (
	"runtime"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// GenerationSettings holds default request values for generation calls.
type GenerationSettings struct {
	// MaxGoldensPerContext is the per-unit cap for raw context input.
	MaxGoldensPerContext int

	// MaxGoldensPerDocument is the per-unit cap for document-derived context.
	MaxGoldensPerDocument int

	// NumEvolutions is the number of evolution rounds per seed.
	NumEvolutions int

	// EnableBreadthEvolve makes breadth kinds eligible.
	EnableBreadthEvolve bool

	// AllowedEvolutionTypes restricts the strategy pool. Empty means all.
	AllowedEvolutionTypes []EvolutionKind

	// IncludeExpectedOutput requests expected outputs.
	IncludeExpectedOutput bool

	// MaxPassagesPerGroup is the passage ceiling for directly supplied context groups.
	MaxPassagesPerGroup int
}

// Request builds a generation request using the given per-unit cap.
func (g GenerationSettings) Request(maxPerUnit int) GenerationRequest {
	return GenerationRequest{
		MaxGoldensPerUnit:     maxPerUnit,
		NumEvolutions:         g.NumEvolutions,
		BreadthEnabled:        g.EnableBreadthEvolve,
		AllowedEvolutions:     append([]EvolutionKind(nil), g.AllowedEvolutionTypes...),
		IncludeExpectedOutput: g.IncludeExpectedOutput,
	}
}

// ChunkingSettings holds document-mode context building configuration.
type ChunkingSettings struct {
	ChunkSize           int
	ChunkOverlap        int
	GroupSize           int
	MaxGroups           int
	SimilarityThreshold float64
}

// ContextOptions converts the settings into builder options.
func (c ChunkingSettings) ContextOptions(seed uint64) ContextOptions {
	return ContextOptions{
		MaxGroups:           c.MaxGroups,
		GroupSize:           c.GroupSize,
		ChunkSize:           c.ChunkSize,
		ChunkOverlap:        c.ChunkOverlap,
		SimilarityThreshold: c.SimilarityThreshold,
		Seed:                seed,
	}
}

// ExecutionSettings holds orchestration and model-call policy.
type ExecutionSettings struct {
	// Concurrent processes units in parallel when true.
	Concurrent bool

	// MaxWorkers bounds parallel units. Zero means GOMAXPROCS.
	MaxWorkers int

	// Seed fixes strategy selection. Zero seeds from the clock.
	Seed uint64

	// CallTimeout bounds each model call attempt.
	CallTimeout time.Duration

	// MaxAttempts is the number of attempts per model call, first try included.
	MaxAttempts int

	// RequestsPerSecond paces model calls. Zero disables pacing.
	RequestsPerSecond float64
}

// OutputSettings holds dataset export defaults.
type OutputSettings struct {
	Dir    string
	Format DatasetKind
}

// CacheSettings holds local cache locations.
type CacheSettings struct {
	// EmbeddingsDir enables the on-disk embedding cache when set.
	EmbeddingsDir string
}

// TelemetrySettings holds observability toggles.
type TelemetrySettings struct {
	// TraceStdout prints finished span trees through the OpenTelemetry stdout exporter.
	TraceStdout bool

	// MetricsAddr serves Prometheus metrics when set (e.g. ":9464").
	MetricsAddr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	Generation GenerationSettings
	Chunking   ChunkingSettings
	Execution  ExecutionSettings
	Output     OutputSettings
	Cache      CacheSettings
	Telemetry  TelemetrySettings
}

// DefaultGenerationSettings returns the generation defaults.
func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		MaxGoldensPerContext:  2,
		MaxGoldensPerDocument: 5,
		NumEvolutions:         1,
		EnableBreadthEvolve:   false,
		IncludeExpectedOutput: false,
		MaxPassagesPerGroup:   10,
	}
}

// DefaultChunkingSettings returns the document-mode defaults.
func DefaultChunkingSettings() ChunkingSettings {
	return ChunkingSettings{
		ChunkSize:           256,
		ChunkOverlap:        32,
		GroupSize:           3,
		MaxGroups:           0,
		SimilarityThreshold: 0.5,
	}
}

// DefaultExecutionSettings returns the orchestration defaults.
func DefaultExecutionSettings() ExecutionSettings {
	return ExecutionSettings{
		Concurrent:  true,
		MaxWorkers:  runtime.GOMAXPROCS(0),
		CallTimeout: 60 * time.Second,
		MaxAttempts: 3,
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured by default.
// Users must explicitly configure them via the settings wizard.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding:  EmbeddingSettings{},
		LLM:        LLMSettings{},
		Generation: DefaultGenerationSettings(),
		Chunking:   DefaultChunkingSettings(),
		Execution:  DefaultExecutionSettings(),
		Output: OutputSettings{
			Dir:    ".",
			Format: DatasetJSON,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// ChunkingPipelineConfig returns a pipeline that chunks into token windows
// and then drops duplicate chunks.
func ChunkingPipelineConfig(chunkSize, overlap int) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "dedupe"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size":    chunkSize,
				"chunk_overlap": overlap,
			},
		},
	}
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	d := DefaultChunkingSettings()
	return ChunkingPipelineConfig(d.ChunkSize, d.ChunkOverlap)
}
