package file

import (
	"slices"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// record is the serialised form of a golden. Context is a pointer so a
// missing group (null) stays distinct from an empty one ([]).
type record struct {
	ID             string                `json:"id" yaml:"id"`
	Input          string                `json:"input" yaml:"input"`
	ExpectedOutput *string               `json:"expected_output" yaml:"expected_output"`
	Context        *[]string             `json:"context" yaml:"context"`
	Trace          domain.EvolutionTrace `json:"trace" yaml:"trace"`
	Origin         domain.SeedOrigin     `json:"origin,omitempty" yaml:"origin,omitempty"`
	SourceFile     string                `json:"source_file,omitempty" yaml:"source_file,omitempty"`
}

func toRecord(g domain.Golden) record {
	r := record{
		ID:             g.ID,
		Input:          g.Input,
		ExpectedOutput: g.ExpectedOutput,
		Trace:          g.Trace.Clone(),
		Origin:         g.Origin,
		SourceFile:     g.SourceFile,
	}
	if g.Context != nil {
		c := slices.Clone([]string(g.Context))
		r.Context = &c
	}
	return r
}

func (r record) golden() domain.Golden {
	g := domain.Golden{
		ID:             r.ID,
		Input:          r.Input,
		ExpectedOutput: r.ExpectedOutput,
		Trace:          r.Trace,
		Origin:         r.Origin,
		SourceFile:     r.SourceFile,
	}
	if r.Context != nil {
		g.Context = domain.ContextGroup(*r.Context)
		if g.Context == nil {
			g.Context = domain.ContextGroup{}
		}
	}
	// Decoders disagree on null and [] for steps; zero rounds is always nil.
	if len(g.Trace.Steps) == 0 {
		g.Trace.Steps = nil
	}
	if g.ExpectedOutput != nil && *g.ExpectedOutput == "" {
		g.ExpectedOutput = nil
	}
	return g
}

func toRecords(goldens []domain.Golden) []record {
	out := make([]record, len(goldens))
	for i, g := range goldens {
		out[i] = toRecord(g)
	}
	return out
}

func fromRecords(records []record) []domain.Golden {
	out := make([]domain.Golden, len(records))
	for i, r := range records {
		out[i] = r.golden()
	}
	return out
}
