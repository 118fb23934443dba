package driven

import (
	"context"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// DatasetWriter serialises finished goldens to a file.
type DatasetWriter interface {
	// Write stores goldens in the given kind at path and returns the location written.
	// When path is an existing directory a timestamped file name is chosen.
	Write(ctx context.Context, goldens []domain.Golden, kind domain.DatasetKind, path string) (string, error)
}

// DatasetReader loads goldens previously written by a DatasetWriter.
type DatasetReader interface {
	// Read parses the file at path. The kind is inferred from the extension.
	Read(ctx context.Context, path string) ([]domain.Golden, error)
}

// DatasetStore persists named generation runs.
type DatasetStore interface {
	// Save creates or replaces a dataset.
	Save(ctx context.Context, dataset *domain.Dataset) error

	// Get retrieves a dataset by ID, including goldens and warnings.
	Get(ctx context.Context, id string) (*domain.Dataset, error)

	// List returns summaries of all datasets, newest first.
	List(ctx context.Context) ([]domain.DatasetSummary, error)

	// Delete removes a dataset by ID.
	Delete(ctx context.Context, id string) error
}
