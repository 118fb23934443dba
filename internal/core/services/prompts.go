package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

const evolveRules = `Rules:
- Return ONLY the rewritten input, with no preamble, labels or explanation.
- The rewritten input must remain answerable{{grounding}}.
- Keep it to a similar length, adding at most 15 to 20 words.
- Do not use phrases like "given the context" or "based on the passage".`

var defaultPrompts = map[string]string{
	driven.PromptSeedFromContext: `You are building an evaluation dataset for an LLM application.

Context:
{{context}}

Write up to {{count}} distinct inputs (questions or instructions) a user might send that can be answered
using ONLY the context above. Each input must be self-contained and must not mention "the context".

Respond with JSON only, in this exact shape:
{"data": [{"input": "..."}, {"input": "..."}]}`,

	driven.PromptSeedFromScratch: `You are building an evaluation dataset for an LLM application.

Subject: {{subject}}
Task the application performs: {{task}}
Expected output format: {{output_format}}

Write {{count}} distinct, realistic inputs a user might send to this application.

Respond with JSON only, in this exact shape:
{"data": [{"input": "..."}, {"input": "..."}]}`,

	driven.PromptExpectedOutput: `Answer the input below as an expert would. Be accurate and complete but concise.
If context is provided, rely only on it; say so when the context is insufficient.

Context:
{{context}}

Input:
{{input}}

Answer:`,

	driven.EvolutionPromptName(domain.EvolutionReasoning): `Rewrite the input so that answering it requires multiple explicit reasoning steps
(for example, deriving an intermediate fact before reaching the answer).

Context:
{{context}}

Input:
{{input}}

` + evolveRules,

	driven.EvolutionPromptName(domain.EvolutionConstrained): `Rewrite the input by adding one concrete constraint or requirement
(a limit, condition, format or audience) that the answer must satisfy.

Context:
{{context}}

Input:
{{input}}

` + evolveRules,

	driven.EvolutionPromptName(domain.EvolutionConcretizing): `Rewrite the input by replacing general concepts with more specific, concrete ones.

Context:
{{context}}

Input:
{{input}}

` + evolveRules,

	driven.EvolutionPromptName(domain.EvolutionComparative): `Rewrite the input so that it asks for a comparison between two or more things,
aspects or situations.

Context:
{{context}}

Input:
{{input}}

` + evolveRules,

	driven.EvolutionPromptName(domain.EvolutionHypothetical): `Rewrite the input as a hypothetical or counterfactual scenario
("what would happen if ...") that still tests the same knowledge.

Context:
{{context}}

Input:
{{input}}

` + evolveRules,

	driven.EvolutionPromptName(domain.EvolutionToolUse): `Rewrite the input as a task whose answer would require using a tool or taking an external action
(looking something up, calculating, running a command) before responding.

Context:
{{context}}

Input:
{{input}}

` + evolveRules,

	driven.EvolutionPromptName(domain.EvolutionMultiContext): `Rewrite the input so that answering it requires combining information from
at least two different passages of the context.

Context:
{{context}}

Input:
{{input}}

` + evolveRules,

	driven.EvolutionPromptName(domain.EvolutionInBreadth): `Write a brand new input in the same domain as the one below, about a different but related concept.
It should be as realistic and about as complex as the original.

Context:
{{context}}

Input:
{{input}}

` + evolveRules,

	driven.EvolutionPromptName(domain.EvolutionRephrase): `Rewrite the input in a noticeably different phrasing style or register
(for example casual, formal, terse or verbose) without changing what it asks.

Context:
{{context}}

Input:
{{input}}

` + evolveRules,

	driven.EvolutionPromptName(domain.EvolutionScenario): `Rewrite the input by placing it in a concrete scenario
(a persona, a workplace, a situation) without changing what it asks.

Context:
{{context}}

Input:
{{input}}

` + evolveRules,

	driven.EvolutionPromptName(domain.EvolutionContextShift): `Rewrite the input so that it focuses on a different passage of the context than the one it
currently relies on, keeping a similar style and difficulty.

Context:
{{context}}

Input:
{{input}}

` + evolveRules,
}

// DefaultPrompts returns a copy of the built-in prompt templates keyed by prompt name.
func DefaultPrompts() map[string]string {
	out := make(map[string]string, len(defaultPrompts))
	for name, tmpl := range defaultPrompts {
		out[name] = tmpl
	}
	return out
}

// promptBook renders templates from a PromptStore, falling back to the built-in defaults.
type promptBook struct {
	store driven.PromptStore
}

func (p promptBook) render(name string, vars map[string]string) string {
	tmpl := ""
	if p.store != nil {
		if t, err := p.store.Load(name); err == nil && strings.TrimSpace(t) != "" {
			tmpl = t
		}
	}
	if tmpl == "" {
		tmpl = defaultPrompts[name]
	}
	return fill(tmpl, vars)
}

// fill replaces {{key}} placeholders. Unknown placeholders are left untouched.
func fill(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// formatContext renders passages as a numbered list, or a marker when there is none.
func formatContext(group domain.ContextGroup) string {
	if len(group) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, p := range group {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, strings.TrimSpace(p))
	}
	return b.String()
}

func evolveVars(text string, group domain.ContextGroup) map[string]string {
	grounding := ""
	if len(group) > 0 {
		grounding = " from the context"
	}
	return map[string]string{
		"input":     text,
		"context":   formatContext(group),
		"grounding": grounding,
	}
}
