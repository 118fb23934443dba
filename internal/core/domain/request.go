package domain

// GenerationRequest configures one generation call. It is not modified during the call.
type GenerationRequest struct {
	// MaxGoldensPerUnit caps the goldens derived from a single unit.
	MaxGoldensPerUnit int `json:"max_goldens_per_unit" validate:"gte=0"`

	// NumEvolutions is the number of sequential evolution rounds per seed.
	NumEvolutions int `json:"num_evolutions" validate:"gte=0"`

	// BreadthEnabled makes breadth kinds eligible alongside depth kinds.
	BreadthEnabled bool `json:"enable_breadth_evolve"`

	// AllowedEvolutions restricts the strategy pool. Empty means all known kinds.
	AllowedEvolutions []EvolutionKind `json:"allowed_evolution_types,omitempty" validate:"dive,required"`

	// IncludeExpectedOutput requests an expected output for every golden.
	IncludeExpectedOutput bool `json:"include_expected_output"`
}

// Allowed returns the effective allowed set.
func (r GenerationRequest) Allowed() map[EvolutionKind]bool {
	kinds := r.AllowedEvolutions
	if len(kinds) == 0 {
		kinds = AllEvolutionKinds()
	}
	allowed := make(map[EvolutionKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	return allowed
}

// ScratchSpec describes inputs to generate without any context.
type ScratchSpec struct {
	Subject           string `json:"subject" validate:"required"`
	Task              string `json:"task" validate:"required"`
	OutputFormat      string `json:"output_format"`
	NumInitialGoldens int    `json:"num_initial_goldens" validate:"gte=1"`
}

// ContextOptions configures how context groups are built from documents.
type ContextOptions struct {
	// MaxGroups caps the number of groups. Zero means one group per document.
	MaxGroups int

	// GroupSize is the number of passages per group.
	GroupSize int

	// ChunkSize is the window size in tokens.
	ChunkSize int

	// ChunkOverlap is the number of tokens shared by consecutive windows.
	ChunkOverlap int

	// SimilarityThreshold is the minimum similarity for a neighbour to join a group.
	SimilarityThreshold float64

	// Seed drives anchor selection. Zero seeds from the clock.
	Seed uint64
}

// Validate checks chunking and grouping bounds.
func (o ContextOptions) Validate() error {
	switch {
	case o.ChunkSize <= 0:
		return NewInvalidConfigError("chunk_size", "must be > 0")
	case o.ChunkOverlap < 0:
		return NewInvalidConfigError("chunk_overlap", "must be >= 0")
	case o.ChunkOverlap >= o.ChunkSize:
		return NewInvalidConfigError("chunk_overlap", "must be smaller than chunk_size")
	case o.GroupSize <= 0:
		return NewInvalidConfigError("context_group_size", "must be > 0")
	case o.MaxGroups < 0:
		return NewInvalidConfigError("max_groups", "must be >= 0")
	case o.SimilarityThreshold < 0 || o.SimilarityThreshold > 1:
		return NewInvalidConfigError("similarity_threshold", "must be within [0, 1]")
	}
	return nil
}
