package domain

import "slices"

// EvolutionCategory groups evolution kinds by intent.
type EvolutionCategory string

// Evolution categories.
const (
	// CategoryDepth kinds increase complexity: reasoning steps, constraints, multi-hop requirements.
	CategoryDepth EvolutionCategory = "depth"

	// CategoryBreadth kinds diversify framing: style, scenario, adjacent concepts.
	CategoryBreadth EvolutionCategory = "breadth"
)

// EvolutionScope says which units a kind may be applied to.
type EvolutionScope string

// Evolution scopes.
const (
	// ScopeText kinds only need the current text and apply to every unit.
	ScopeText EvolutionScope = "text"

	// ScopeContext kinds rewrite against the context and need a context-grounded unit.
	ScopeContext EvolutionScope = "context"
)

// EvolutionKind names a single rewrite strategy applied during one evolution round.
type EvolutionKind string

// Known evolution kinds.
const (
	EvolutionReasoning    EvolutionKind = "reasoning"
	EvolutionConstrained  EvolutionKind = "constrained"
	EvolutionConcretizing EvolutionKind = "concretizing"
	EvolutionComparative  EvolutionKind = "comparative"
	EvolutionHypothetical EvolutionKind = "hypothetical"
	EvolutionToolUse      EvolutionKind = "tool_use"
	EvolutionMultiContext EvolutionKind = "multi_context"
	EvolutionInBreadth    EvolutionKind = "in_breadth"
	EvolutionRephrase     EvolutionKind = "rephrase"
	EvolutionScenario     EvolutionKind = "scenario"
	EvolutionContextShift EvolutionKind = "context_shift"

	// EvolutionSkipped records a round whose strategy pool was empty.
	EvolutionSkipped EvolutionKind = "skipped"
)

type evolutionInfo struct {
	category    EvolutionCategory
	scope       EvolutionScope
	description string
}

var evolutionCatalogue = map[EvolutionKind]evolutionInfo{
	EvolutionReasoning:    {CategoryDepth, ScopeText, "Require multi-step reasoning to answer"},
	EvolutionConstrained:  {CategoryDepth, ScopeText, "Add a constraint or requirement"},
	EvolutionConcretizing: {CategoryDepth, ScopeText, "Replace general concepts with specific ones"},
	EvolutionComparative:  {CategoryDepth, ScopeText, "Reframe as a comparison"},
	EvolutionHypothetical: {CategoryDepth, ScopeText, "Introduce a hypothetical scenario"},
	EvolutionToolUse:      {CategoryDepth, ScopeText, "Frame as a task needing tools or external actions"},
	EvolutionMultiContext: {CategoryDepth, ScopeContext, "Require combining several context passages"},
	EvolutionInBreadth:    {CategoryBreadth, ScopeText, "Move to an adjacent concept in the same domain"},
	EvolutionRephrase:     {CategoryBreadth, ScopeText, "Alter phrasing style and register"},
	EvolutionScenario:     {CategoryBreadth, ScopeText, "Alter the scenario framing"},
	EvolutionContextShift: {CategoryBreadth, ScopeContext, "Refocus on a different context passage"},
}

// IsValid returns true if the kind is a known, selectable strategy.
// EvolutionSkipped is a trace marker and is not valid for selection.
func (k EvolutionKind) IsValid() bool {
	_, ok := evolutionCatalogue[k]
	return ok
}

// Category returns the kind's category, empty for unknown kinds.
func (k EvolutionKind) Category() EvolutionCategory {
	return evolutionCatalogue[k].category
}

// Scope returns the kind's scope, empty for unknown kinds.
func (k EvolutionKind) Scope() EvolutionScope {
	return evolutionCatalogue[k].scope
}

// RequiresContext returns true if the kind can only rewrite context-grounded inputs.
func (k EvolutionKind) RequiresContext() bool {
	return k.Scope() == ScopeContext
}

// String returns the string representation.
func (k EvolutionKind) String() string {
	return string(k)
}

// Description returns a human-readable description of the kind.
func (k EvolutionKind) Description() string {
	if info, ok := evolutionCatalogue[k]; ok {
		return info.description
	}
	if k == EvolutionSkipped {
		return "Round skipped (no eligible strategy)"
	}
	return unknownDescription
}

// AllEvolutionKinds returns every selectable kind in a stable order.
func AllEvolutionKinds() []EvolutionKind {
	return []EvolutionKind{
		EvolutionReasoning,
		EvolutionConstrained,
		EvolutionConcretizing,
		EvolutionComparative,
		EvolutionHypothetical,
		EvolutionToolUse,
		EvolutionMultiContext,
		EvolutionInBreadth,
		EvolutionRephrase,
		EvolutionScenario,
		EvolutionContextShift,
	}
}

// EvolutionTrace is the ordered record of strategies applied to one seed.
// Steps are appended during evolution and never changed afterwards.
type EvolutionTrace struct {
	Steps []EvolutionKind `json:"steps" yaml:"steps"`

	// Truncated is set when evolution stopped early on a generation failure.
	Truncated bool `json:"truncated" yaml:"truncated"`
}

// Len returns the number of recorded rounds, skipped rounds included.
func (t EvolutionTrace) Len() int {
	return len(t.Steps)
}

// Clone returns a copy that shares no memory with t.
func (t EvolutionTrace) Clone() EvolutionTrace {
	return EvolutionTrace{Steps: slices.Clone(t.Steps), Truncated: t.Truncated}
}

// Equal reports whether both traces record the same rounds.
func (t EvolutionTrace) Equal(other EvolutionTrace) bool {
	return t.Truncated == other.Truncated && slices.Equal(t.Steps, other.Steps)
}
