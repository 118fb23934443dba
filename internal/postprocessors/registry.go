package postprocessors

import (
	"fmt"
	"maps"
	"slices"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

// BuilderFunc creates a PostProcessor from generic config.
// Config is a map of processor-specific settings parsed from user config.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps processor names to their builders.
// It allows dynamic construction of processors from configuration.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a new processor registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a processor builder to the registry.
// Name should be unique and match the processor's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a processor by name with the given config.
// Returns error if the processor name is not registered.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor: %s", name)
	}
	return builder(cfg)
}

// Has returns true if a processor with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered processor names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}

// Stage names a processor and the config it is built with.
type Stage struct {
	Name   string
	Config map[string]any
}

// BuildPipeline builds every stage in order and chains them.
func (r *Registry) BuildPipeline(stages ...Stage) (*Pipeline, error) {
	p := NewPipeline()
	for _, s := range stages {
		proc, err := r.Build(s.Name, s.Config)
		if err != nil {
			return nil, err
		}
		p.Add(proc)
	}
	return p, nil
}

// FromConfig builds the pipeline described by cfg.
func (r *Registry) FromConfig(cfg domain.PipelineConfig) (*Pipeline, error) {
	stages := make([]Stage, len(cfg.Processors))
	for i, name := range cfg.Processors {
		stages[i] = Stage{Name: name, Config: cfg.GetProcessorConfig(name)}
	}
	return r.BuildPipeline(stages...)
}

// DocumentPipeline returns the chunk-then-dedupe pipeline used for context building.
func DocumentPipeline(chunkSize, chunkOverlap int) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.FromConfig(domain.ChunkingPipelineConfig(chunkSize, chunkOverlap))
}
