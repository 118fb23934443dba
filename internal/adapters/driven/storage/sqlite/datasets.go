package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
	"github.com/custodia-labs/goldsmith/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// datasetStore implements driven.DatasetStore.
type datasetStore struct {
	store *Store
}

var _ driven.DatasetStore = (*datasetStore)(nil)

// Save creates or replaces a dataset together with its goldens and warnings.
func (s *datasetStore) Save(ctx context.Context, ds *domain.Dataset) error {
	if ds == nil || ds.ID == "" {
		return domain.ErrInvalidInput
	}
	requestJSON, err := json.Marshal(ds.Request)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Replacing a dataset cascades to its goldens and warnings.
	if _, err := tx.ExecContext(ctx, "DELETE FROM datasets WHERE id = ?", ds.ID); err != nil {
		return fmt.Errorf("replacing dataset: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO datasets (id, name, source_kind, request, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, ds.ID, ds.Name, string(ds.SourceKind), string(requestJSON), ds.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("saving dataset: %w", err)
	}

	if err := insertGoldens(ctx, tx, ds.ID, ds.Goldens); err != nil {
		return err
	}
	if err := insertWarnings(ctx, tx, ds.ID, ds.Warnings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertGoldens(ctx context.Context, tx *sql.Tx, datasetID string, goldens []domain.Golden) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO goldens (id, dataset_id, position, input, expected_output, context, trace, origin, source_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, g := range goldens {
		var expected sql.NullString
		if g.ExpectedOutput != nil {
			expected = sql.NullString{String: *g.ExpectedOutput, Valid: true}
		}
		var contextJSON sql.NullString
		if g.Context != nil {
			data, err := json.Marshal(g.Context)
			if err != nil {
				return fmt.Errorf("marshalling context: %w", err)
			}
			contextJSON = sql.NullString{String: string(data), Valid: true}
		}
		traceJSON, err := json.Marshal(g.Trace)
		if err != nil {
			return fmt.Errorf("marshalling trace: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, g.ID, datasetID, i, g.Input, expected, contextJSON,
			string(traceJSON), string(g.Origin), g.SourceFile); err != nil {
			return fmt.Errorf("saving golden: %w", err)
		}
	}
	return nil
}

func insertWarnings(ctx context.Context, tx *sql.Tx, datasetID string, warnings []domain.Warning) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO warnings (dataset_id, position, unit, stage, message)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, w := range warnings {
		if _, err := stmt.ExecContext(ctx, datasetID, i, w.Unit, string(w.Stage), w.Message); err != nil {
			return fmt.Errorf("saving warning: %w", err)
		}
	}
	return nil
}

// Get retrieves a dataset by ID, including goldens and warnings.
func (s *datasetStore) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, source_kind, request, created_at
		FROM datasets WHERE id = ?
	`, id)

	ds, err := scanDataset(row)
	if err != nil {
		return nil, err
	}
	if ds.Goldens, err = s.goldens(ctx, id); err != nil {
		return nil, err
	}
	if ds.Warnings, err = s.warnings(ctx, id); err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *datasetStore) goldens(ctx context.Context, datasetID string) ([]domain.Golden, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, input, expected_output, context, trace, origin, source_file
		FROM goldens WHERE dataset_id = ?
		ORDER BY position
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("querying goldens: %w", err)
	}
	defer rows.Close()

	var goldens []domain.Golden //nolint:prealloc // size unknown from query
	for rows.Next() {
		g, err := scanGolden(rows)
		if err != nil {
			return nil, err
		}
		goldens = append(goldens, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating goldens: %w", err)
	}
	return goldens, nil
}

func (s *datasetStore) warnings(ctx context.Context, datasetID string) ([]domain.Warning, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT unit, stage, message
		FROM warnings WHERE dataset_id = ?
		ORDER BY position
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("querying warnings: %w", err)
	}
	defer rows.Close()

	var warnings []domain.Warning //nolint:prealloc // size unknown from query
	for rows.Next() {
		var w domain.Warning
		var stage string
		if err := rows.Scan(&w.Unit, &stage, &w.Message); err != nil {
			return nil, fmt.Errorf("scanning warning: %w", err)
		}
		w.Stage = domain.WarningStage(stage)
		warnings = append(warnings, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating warnings: %w", err)
	}
	return warnings, nil
}

// List returns summaries of all datasets, newest first.
func (s *datasetStore) List(ctx context.Context) ([]domain.DatasetSummary, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.source_kind, d.created_at,
			(SELECT COUNT(*) FROM goldens g WHERE g.dataset_id = d.id),
			(SELECT COUNT(*) FROM warnings w WHERE w.dataset_id = d.id)
		FROM datasets d
		ORDER BY d.created_at DESC, d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying datasets: %w", err)
	}
	defer rows.Close()

	summaries := []domain.DatasetSummary{}
	for rows.Next() {
		var sum domain.DatasetSummary
		var kind string
		if err := rows.Scan(&sum.ID, &sum.Name, &kind, &sum.CreatedAt, &sum.GoldenCount, &sum.WarningCount); err != nil {
			return nil, fmt.Errorf("scanning dataset summary: %w", err)
		}
		sum.SourceKind = domain.UnitKind(kind)
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating datasets: %w", err)
	}
	return summaries, nil
}

// Delete removes a dataset and everything it owns.
func (s *datasetStore) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM datasets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting dataset: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanDataset(row *sql.Row) (*domain.Dataset, error) {
	var ds domain.Dataset
	var kind, requestJSON string

	if err := row.Scan(&ds.ID, &ds.Name, &kind, &requestJSON, &ds.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning dataset: %w", err)
	}
	ds.SourceKind = domain.UnitKind(kind)

	if requestJSON != "" && requestJSON != jsonNull {
		if err := json.Unmarshal([]byte(requestJSON), &ds.Request); err != nil {
			return nil, fmt.Errorf("unmarshaling request: %w", err)
		}
	}
	return &ds, nil
}

func scanGolden(rows *sql.Rows) (*domain.Golden, error) {
	var g domain.Golden
	var expected, contextJSON sql.NullString
	var traceJSON, origin string

	if err := rows.Scan(&g.ID, &g.Input, &expected, &contextJSON, &traceJSON, &origin, &g.SourceFile); err != nil {
		return nil, fmt.Errorf("scanning golden: %w", err)
	}
	g.Origin = domain.SeedOrigin(origin)

	if expected.Valid {
		g.ExpectedOutput = &expected.String
	}
	if contextJSON.Valid && contextJSON.String != jsonNull {
		if err := json.Unmarshal([]byte(contextJSON.String), &g.Context); err != nil {
			return nil, fmt.Errorf("unmarshaling context: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(traceJSON), &g.Trace); err != nil {
		return nil, fmt.Errorf("unmarshaling trace: %w", err)
	}
	return &g, nil
}
