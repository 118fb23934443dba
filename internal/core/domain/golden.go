package domain

import "slices"

// ContextGroup is an ordered sequence of passages sharing a theme.
// Groups are treated as immutable: use Clone before handing one to code that may modify it.
type ContextGroup []string

// Clone returns a copy that shares no memory with g. A nil group stays nil.
func (g ContextGroup) Clone() ContextGroup {
	if g == nil {
		return nil
	}
	return slices.Clone(g)
}

// Equal reports whether both groups hold the same passages in the same order.
func (g ContextGroup) Equal(other ContextGroup) bool {
	if (g == nil) != (other == nil) {
		return false
	}
	return slices.Equal(g, other)
}

// SeedOrigin tags how a seed input was produced.
type SeedOrigin string

// Seed origins.
const (
	OriginContext SeedOrigin = "from_context"
	OriginPrompt  SeedOrigin = "from_prompt"
	OriginScratch SeedOrigin = "from_scratch"
)

// IsValid returns true if the origin is recognised.
func (o SeedOrigin) IsValid() bool {
	switch o {
	case OriginContext, OriginPrompt, OriginScratch:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (o SeedOrigin) String() string {
	return string(o)
}

// SeedInput is a candidate input before evolution.
type SeedInput struct {
	Text string

	// Context is the originating group, nil for prompt and scratch seeds.
	Context ContextGroup

	Origin SeedOrigin
}

// Golden is a finished evaluation record.
type Golden struct {
	// ID is the unique identifier for the golden.
	ID string `json:"id" yaml:"id"`

	// Input is the evolved input text.
	Input string `json:"input" yaml:"input"`

	// ExpectedOutput is set only when requested and generated successfully.
	// It is never the empty string.
	ExpectedOutput *string `json:"expected_output" yaml:"expected_output"`

	// Context is the group the seed was derived from, nil for prompt and scratch origins.
	Context ContextGroup `json:"context" yaml:"context"`

	// Trace records the evolution rounds applied to the seed.
	Trace EvolutionTrace `json:"trace" yaml:"trace"`

	// Origin records how the seed was produced.
	Origin SeedOrigin `json:"origin,omitempty" yaml:"origin,omitempty"`

	// SourceFile is the document the context came from, document mode only.
	SourceFile string `json:"source_file,omitempty" yaml:"source_file,omitempty"`
}

// HasExpectedOutput returns true if an expected output is attached.
func (g Golden) HasExpectedOutput() bool {
	return g.ExpectedOutput != nil
}

// UnitKind identifies what a generation unit wraps.
type UnitKind string

// Unit kinds.
const (
	UnitContext UnitKind = "context"
	UnitPrompt  UnitKind = "prompt"
	UnitScratch UnitKind = "scratch"
)

// Origin returns the seed origin produced by units of this kind.
func (k UnitKind) Origin() SeedOrigin {
	switch k {
	case UnitContext:
		return OriginContext
	case UnitPrompt:
		return OriginPrompt
	default:
		return OriginScratch
	}
}

// Unit is one independent piece of orchestrated work.
type Unit struct {
	// Index is the unit's position in the request. Results are aggregated by it.
	Index int

	Kind UnitKind

	// Context is set for context units.
	Context ContextGroup

	// SourceFile is the originating document for document-mode context units.
	SourceFile string

	// Prompt is set for prompt units, and for scratch units once their seed is known.
	Prompt string

	// Scratch is set for scratch units whose seeds still need generating.
	Scratch *ScratchSpec
}

// WarningStage names the pipeline stage a warning came from.
type WarningStage string

// Warning stages.
const (
	StageContext  WarningStage = "context"
	StageSeed     WarningStage = "seed"
	StageEvolve   WarningStage = "evolve"
	StageAssemble WarningStage = "assemble"
)

// Warning is a non-fatal problem reported alongside generated goldens.
type Warning struct {
	// Unit is the index of the affected unit, -1 for call-level warnings.
	Unit    int          `json:"unit" yaml:"unit"`
	Stage   WarningStage `json:"stage" yaml:"stage"`
	Message string       `json:"message" yaml:"message"`
}

// GenerationResult is what a generation call returns.
type GenerationResult struct {
	Goldens  []Golden
	Warnings []Warning

	// Span is the finished root of the call's span tree.
	Span *Span
}
