package driving

import (
	"context"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// DatasetService manages persisted generation runs.
type DatasetService interface {
	// Save stores a generation result under a name and returns the new dataset.
	Save(ctx context.Context, name string, kind domain.UnitKind, req domain.GenerationRequest,
		result *domain.GenerationResult) (*domain.Dataset, error)

	// Get retrieves a dataset by ID.
	Get(ctx context.Context, id string) (*domain.Dataset, error)

	// List returns summaries of all datasets, newest first.
	List(ctx context.Context) ([]domain.DatasetSummary, error)

	// Delete removes a dataset.
	Delete(ctx context.Context, id string) error

	// Export writes a dataset's goldens to path and returns the location written.
	Export(ctx context.Context, id string, kind domain.DatasetKind, path string) (string, error)

	// Import reads goldens from a file and stores them as a new dataset.
	Import(ctx context.Context, name, path string) (*domain.Dataset, error)

	// Open resolves ref as a dataset ID, or failing that reads it as a dataset
	// file without storing it.
	Open(ctx context.Context, ref string) (*domain.Dataset, error)
}
