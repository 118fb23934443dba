package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown normaliser, dataset kind or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Every generation flow needs it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Document grouping falls back to keyword similarity without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSearchUnavailable indicates the keyword index is not configured.
	ErrSearchUnavailable = errors.New("search engine unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Generation Errors.

	// ErrInvalidConfig indicates a malformed generation request.
	// It is the only call-level fatal error of a generation run.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidContext indicates a malformed or empty context group.
	ErrInvalidContext = errors.New("invalid context")

	// ErrGenerationTransient indicates a model call failed for a retryable reason.
	ErrGenerationTransient = errors.New("transient generation error")

	// ErrGenerationFailure indicates a model call failed after retries were exhausted.
	ErrGenerationFailure = errors.New("generation failure")

	// ErrParse indicates a model response could not be parsed into the expected structure.
	ErrParse = errors.New("parse error")
)

// InvalidConfigError describes which request field is malformed.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid config: %s", e.Reason)
	}
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidConfig.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// NewInvalidConfigError creates an InvalidConfigError.
func NewInvalidConfigError(field, reason string) error {
	return &InvalidConfigError{Field: field, Reason: reason}
}

// InvalidContextError describes a rejected context group.
type InvalidContextError struct {
	// Group is the index of the offending group, or -1 when not applicable.
	Group  int
	Reason string
}

func (e *InvalidContextError) Error() string {
	if e.Group < 0 {
		return fmt.Sprintf("invalid context: %s", e.Reason)
	}
	return fmt.Sprintf("invalid context: group %d: %s", e.Group, e.Reason)
}

// Unwrap returns ErrInvalidContext.
func (e *InvalidContextError) Unwrap() error { return ErrInvalidContext }

// TransientError wraps a model call failure that is worth retrying.
type TransientError struct {
	// Op names the failing operation (e.g. "openai generate").
	Op  string
	Err error

	// RetryAfter is the server-suggested wait, zero when unknown.
	RetryAfter time.Duration
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient: %v", e.Op, e.Err)
}

// Unwrap exposes both the transient sentinel and the cause.
func (e *TransientError) Unwrap() []error {
	return []error{ErrGenerationTransient, e.Err}
}

// NewTransientError wraps err as a TransientError.
func NewTransientError(op string, err error, retryAfter time.Duration) error {
	return &TransientError{Op: op, Err: err, RetryAfter: retryAfter}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrGenerationTransient)
}

// RetryAfter returns the server-suggested wait carried by err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var te *TransientError
	if errors.As(err, &te) && te.RetryAfter > 0 {
		return te.RetryAfter, true
	}
	return 0, false
}

// GenerationFailure is returned once a model call gave up.
type GenerationFailure struct {
	// Stage is the pipeline stage that failed.
	Stage    WarningStage
	Attempts int
	Err      error
}

func (e *GenerationFailure) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("generation failure (%s, %d attempts): %v", e.Stage, e.Attempts, e.Err)
	}
	return fmt.Sprintf("generation failure (%s): %v", e.Stage, e.Err)
}

// Unwrap exposes both the failure sentinel and the cause.
func (e *GenerationFailure) Unwrap() []error {
	return []error{ErrGenerationFailure, e.Err}
}

// NewGenerationFailure wraps err as a GenerationFailure for the given stage.
func NewGenerationFailure(stage WarningStage, attempts int, err error) error {
	return &GenerationFailure{Stage: stage, Attempts: attempts, Err: err}
}

// ParseError carries the raw response that could not be parsed.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %v", e.Err)
}

// Unwrap exposes both the parse sentinel and the cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}
