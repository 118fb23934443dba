// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - LLMService: The text generation port every generation flow uses
//   - PromptStore: Seed, evolution and expected-output templates
//   - ConfigStore: Application configuration
//   - DatasetWriter / DatasetReader: File export and import of goldens
//   - DatasetStore: Persistence of named generation runs
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - BatchLLMService: Concurrent completion of expected outputs. Callers fall back to LLMService.
//   - EmbeddingService: Vector embeddings for document grouping. Without it, keyword similarity is used.
//   - VectorIndex / SearchEngine: Neighbour lookup for document grouping.
//   - DocumentContextBuilder: Only needed for document mode.
//   - SpanExporter / MetricsRecorder: Observability.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, normaliser or postprocessor package
package driven
