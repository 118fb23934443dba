package mcp

import (
	"net/http"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Generation runs the generation pipeline.
	Generation driving.GenerationService

	// Datasets stores generation runs. Optional: without it results are not saved
	// and the dataset resources are empty.
	Datasets driving.DatasetService

	// Defaults fill request fields a tool call leaves unset.
	Defaults domain.GenerationSettings

	// Metrics is served at /metrics in HTTP mode when set.
	Metrics http.Handler
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Generation == nil {
		return ErrMissingGenerationService
	}
	return nil
}
