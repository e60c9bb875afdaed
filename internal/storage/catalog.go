package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// IsExerciseEnabled checks if an exercise type is in the catalog and enabled.
func (db *DB) IsExerciseEnabled(ctx context.Context, exerciseType string) (bool, error) {
	var enabled bool
	err := db.Pool.QueryRow(ctx,
		`SELECT enabled FROM exercise_catalog WHERE exercise_type = $1`,
		exerciseType).Scan(&enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking exercise catalog: %w", err)
	}
	return enabled, nil
}

// CatalogExercise represents an entry in the exercise catalog.
type CatalogExercise struct {
	ExerciseType string `json:"exercise_type"`
	DisplayName  string `json:"display_name"`
	Category     string `json:"category"`
	Enabled      bool   `json:"enabled"`
}

// GetExerciseCatalog returns all exercises in the catalog.
func (db *DB) GetExerciseCatalog(ctx context.Context) ([]CatalogExercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_type, display_name, category, enabled FROM exercise_catalog ORDER BY category, exercise_type`)
	if err != nil {
		return nil, fmt.Errorf("querying exercise catalog: %w", err)
	}
	defer rows.Close()

	var result []CatalogExercise
	for rows.Next() {
		var e CatalogExercise
		if err := rows.Scan(&e.ExerciseType, &e.DisplayName, &e.Category, &e.Enabled); err != nil {
			return nil, fmt.Errorf("scanning catalog entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
