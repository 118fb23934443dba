package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	return store
}

func testDataset(id string, created time.Time) *domain.Dataset {
	answer := "Water boils at 100 degrees Celsius at sea level."
	return &domain.Dataset{
		ID:         id,
		Name:       "physics",
		SourceKind: domain.UnitContext,
		Request: domain.GenerationRequest{
			MaxGoldensPerUnit:     2,
			NumEvolutions:         2,
			BreadthEnabled:        true,
			AllowedEvolutions:     []domain.EvolutionKind{domain.EvolutionReasoning, domain.EvolutionRephrase},
			IncludeExpectedOutput: true,
		},
		Goldens: []domain.Golden{
			{
				ID:             id + "-g1",
				Input:          "At what temperature does water boil at sea level, and why does altitude matter?",
				ExpectedOutput: &answer,
				Context:        domain.ContextGroup{"Water boils at 100 °C at sea level.", "Pressure drops with altitude."},
				Trace: domain.EvolutionTrace{
					Steps: []domain.EvolutionKind{domain.EvolutionReasoning, domain.EvolutionRephrase},
				},
				Origin:     domain.OriginContext,
				SourceFile: "physics.md",
			},
			{
				ID:      id + "-g2",
				Input:   "Explain boiling.",
				Context: domain.ContextGroup{"Water boils at 100 °C at sea level."},
				Trace: domain.EvolutionTrace{
					Steps:     []domain.EvolutionKind{domain.EvolutionReasoning},
					Truncated: true,
				},
				Origin: domain.OriginContext,
			},
		},
		Warnings: []domain.Warning{
			{Unit: 1, Stage: domain.StageEvolve, Message: "seed 0: evolution truncated"},
			{Unit: 1, Stage: domain.StageAssemble, Message: "seed 0: expected output omitted"},
		},
		CreatedAt: created,
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "goldsmith.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.DatasetStore().Save(context.Background(), testDataset("ds-1", time.Now())))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	list, err := second.DatasetStore().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDatasetStore_SaveAndGet_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	want := testDataset("ds-1", created)
	require.NoError(t, store.DatasetStore().Save(ctx, want))

	got, err := store.DatasetStore().Get(ctx, "ds-1")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.SourceKind, got.SourceKind)
	assert.Equal(t, want.Request, got.Request)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.Goldens, got.Goldens)
	assert.Equal(t, want.Warnings, got.Warnings)
}

func TestDatasetStore_NilContextAndExpectedOutput(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ds := &domain.Dataset{
		ID:         "ds-prompts",
		Name:       "prompts",
		SourceKind: domain.UnitPrompt,
		Goldens: []domain.Golden{{
			ID:     "g1",
			Input:  "Summarise the release notes.",
			Trace:  domain.EvolutionTrace{Steps: []domain.EvolutionKind{domain.EvolutionConstrained}},
			Origin: domain.OriginPrompt,
		}},
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.DatasetStore().Save(ctx, ds))

	got, err := store.DatasetStore().Get(ctx, "ds-prompts")
	require.NoError(t, err)
	require.Len(t, got.Goldens, 1)
	assert.Nil(t, got.Goldens[0].Context)
	assert.Nil(t, got.Goldens[0].ExpectedOutput)
	assert.Empty(t, got.Warnings)
}

func TestDatasetStore_Save_Replaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ds := testDataset("ds-1", time.Now())
	require.NoError(t, store.DatasetStore().Save(ctx, ds))

	ds.Name = "renamed"
	ds.Goldens = ds.Goldens[:1]
	ds.Warnings = nil
	require.NoError(t, store.DatasetStore().Save(ctx, ds))

	got, err := store.DatasetStore().Get(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Len(t, got.Goldens, 1)
	assert.Empty(t, got.Warnings)
}

func TestDatasetStore_Save_Invalid(t *testing.T) {
	store := setupTestStore(t)

	err := store.DatasetStore().Save(context.Background(), &domain.Dataset{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDatasetStore_Get_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.DatasetStore().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDatasetStore_List(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	list, err := store.DatasetStore().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, store.DatasetStore().Save(ctx, testDataset("older", base)))
	require.NoError(t, store.DatasetStore().Save(ctx, testDataset("newer", base.Add(time.Hour))))

	list, err = store.DatasetStore().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].ID)
	assert.Equal(t, "older", list[1].ID)
	assert.Equal(t, 2, list[0].GoldenCount)
	assert.Equal(t, 2, list[0].WarningCount)
	assert.Equal(t, domain.UnitContext, list[0].SourceKind)
}

func TestDatasetStore_Delete_Cascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.DatasetStore().Save(ctx, testDataset("ds-1", time.Now())))
	require.NoError(t, store.DatasetStore().Delete(ctx, "ds-1"))

	var goldens int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM goldens").Scan(&goldens))
	assert.Zero(t, goldens)

	assert.ErrorIs(t, store.DatasetStore().Delete(ctx, "ds-1"), domain.ErrNotFound)
}
