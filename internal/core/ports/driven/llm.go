package driven

import "context"

// LLMService is the text generation port: ask a language model to complete a prompt.
// Every generation flow depends on it; the engine never sees a concrete provider.
//
// Implementations may include:
//   - OpenAI (GPT-4o and compatible servers)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat conducts a multi-turn conversation.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// This is used at startup to verify connectivity before a generation run.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// BatchLLMService is the concurrent variant of the text generation port.
// Results are returned by index; a failed prompt leaves an empty string and a non-nil error.
type BatchLLMService interface {
	LLMService

	// GenerateBatch completes every prompt, possibly in parallel.
	GenerateBatch(ctx context.Context, prompts []string, opts GenerateOptions) ([]string, []error)
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
