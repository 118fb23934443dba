// Package tui provides an interactive terminal browser for goldsmith datasets.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/goldsmith/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Datasets lists, loads and deletes saved datasets.
	Datasets driving.DatasetService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(datasets driving.DatasetService) *Ports {
	return &Ports{Datasets: datasets}
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p.Datasets == nil {
		return ErrMissingDatasetService
	}
	return nil
}
