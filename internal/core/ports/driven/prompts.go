package driven

import "github.com/custodia-labs/goldsmith/internal/core/domain"

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns the prompt content and any error encountered.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// Templates use {{name}} placeholders; unknown placeholders are left untouched.
const (
	// PromptSeedFromContext asks for candidate inputs grounded in a context group.
	// Placeholders: {{context}}, {{count}}.
	PromptSeedFromContext = "seed_from_context"

	// PromptSeedFromScratch asks for candidate inputs from a subject and task.
	// Placeholders: {{subject}}, {{task}}, {{output_format}}, {{count}}.
	PromptSeedFromScratch = "seed_from_scratch"

	// PromptExpectedOutput asks for the ideal answer to an evolved input.
	// Placeholders: {{input}}, {{context}}.
	PromptExpectedOutput = "expected_output"

	// promptEvolvePrefix prefixes the per-kind evolution templates.
	// Placeholders: {{input}}, {{context}}.
	promptEvolvePrefix = "evolve_"
)

// EvolutionPromptName returns the template name for an evolution kind.
func EvolutionPromptName(kind domain.EvolutionKind) string {
	return promptEvolvePrefix + kind.String()
}

// PromptStoreAware is an optional interface for services that can use custom prompts.
// Services implementing this interface can have their prompt templates customised
// by injecting a PromptStore after construction.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
