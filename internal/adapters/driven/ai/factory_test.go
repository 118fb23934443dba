package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/goldsmith/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/goldsmith/internal/adapters/driven/llm/resilient"
	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// newOllamaServer answers the Ollama ping endpoint with status.
func newOllamaServer(t *testing.T, status int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestInitResult_Close_NilServices(t *testing.T) {
	result := &InitResult{}
	assert.NotPanics(t, result.Close)
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		errContains string
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "unconfigured", settings: &domain.EmbeddingSettings{}, wantNil: true},
		{
			name:     "ollama",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
		},
		{
			name:     "openai",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "text-embedding-3-small"},
		},
		{
			name:        "anthropic has no embeddings",
			settings:    &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantNil:     true,
			errContains: "anthropic does not support embeddings",
		},
		{name: "unknown provider", settings: &domain.EmbeddingSettings{Provider: "unknown", APIKey: "k"}, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)

			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
			_ = svc.Close()
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantNil   bool
		wantModel string
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "unconfigured", settings: &domain.LLMSettings{}, wantNil: true},
		{name: "openai without key", settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI}, wantNil: true},
		{
			name:      "ollama",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
			wantModel: "llama3.2",
		},
		{
			name:      "openai",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o"},
			wantModel: "gpt-4o",
		},
		{
			name:      "anthropic default model",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantModel: "claude-3-5-sonnet-latest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)

			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestCreateOllamaEmbedding_Dimensions(t *testing.T) {
	known := createOllamaEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "mxbai-embed-large"})
	assert.Equal(t, 1024, known.Dimensions())

	unknown := createOllamaEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "custom"})
	assert.Equal(t, 768, unknown.Dimensions())
}

func TestCreateAndValidateLLMService(t *testing.T) {
	ok := &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: newOllamaServer(t, http.StatusOK)}
	svc, err := CreateAndValidateLLMService(ok)
	require.NoError(t, err)
	require.NotNil(t, svc)

	down := &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: newOllamaServer(t, http.StatusBadGateway)}
	svc, err = CreateAndValidateLLMService(down)
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "goldsmith settings wizard")

	svc, err = CreateAndValidateLLMService(&domain.LLMSettings{})
	assert.NoError(t, err)
	assert.Nil(t, svc)
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	ok := &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: newOllamaServer(t, http.StatusOK)}
	svc, err := CreateAndValidateEmbeddingService(ok)
	require.NoError(t, err)
	require.NotNil(t, svc)

	down := &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: newOllamaServer(t, http.StatusInternalServerError)}
	svc, err = CreateAndValidateEmbeddingService(down)
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateLLMConfig(nil))
	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{}))

	url := newOllamaServer(t, http.StatusOK)
	assert.NoError(t, ValidateLLMConfig(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: url}))
	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: url}))

	bad := newOllamaServer(t, http.StatusUnauthorized)
	assert.Error(t, ValidateLLMConfig(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: bad}))
}

func TestInit_RequiresLLM(t *testing.T) {
	settings := domain.DefaultAppSettings()

	_, err := Init(&settings)

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestInit_WrapsLLMWithPolicy(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: newOllamaServer(t, http.StatusOK), Model: "llama3.2"}
	settings.Execution.MaxAttempts = 5
	settings.Execution.CallTimeout = 7 * time.Second

	result, err := Init(&settings)
	require.NoError(t, err)
	defer result.Close()

	wrapped, ok := result.LLMService.(*resilient.LLMService)
	require.True(t, ok)
	assert.Equal(t, 5, wrapped.Config().MaxAttempts)
	assert.Equal(t, 7*time.Second, wrapped.Config().CallTimeout)
	assert.Equal(t, "llama3.2", wrapped.ModelName())
	assert.Nil(t, result.EmbeddingService)
	assert.True(t, result.FellBack)
	assert.Empty(t, result.Warnings)
}

func TestInit_EmbeddingUnreachableFallsBack(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: newOllamaServer(t, http.StatusOK)}
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: newOllamaServer(t, http.StatusServiceUnavailable)}

	result, err := Init(&settings)
	require.NoError(t, err)
	defer result.Close()

	assert.Nil(t, result.EmbeddingService)
	assert.True(t, result.FellBack)
	require.Len(t, result.Warnings, 1)
}

func TestInit_CachedEmbeddings(t *testing.T) {
	url := newOllamaServer(t, http.StatusOK)
	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: url}
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: url}
	settings.Cache.EmbeddingsDir = t.TempDir()

	result, err := Init(&settings)
	require.NoError(t, err)
	defer result.Close()

	_, ok := result.EmbeddingService.(*cache.EmbeddingService)
	assert.True(t, ok)
	assert.False(t, result.FellBack)
}
