package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meltforce/liftcoach/internal/apperr"
	"github.com/meltforce/liftcoach/internal/models"
)

const exerciseColumns = `id, name, instructions, exercise_type, movement_pattern, muscle_group`

// ListExercises returns the catalog entries matching the filter, ordered by name.
func (db *DB) ListExercises(ctx context.Context, f models.ExerciseFilter) ([]models.ExerciseDescriptor, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+exerciseColumns+`
		 FROM exercises
		 WHERE ($1 = '' OR exercise_type = $1)
		   AND ($2 = '' OR movement_pattern = $2)
		   AND ($3 = '' OR muscle_group = $3)
		 ORDER BY name`,
		string(f.Type), string(f.Pattern), string(f.MuscleGroup))
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []models.ExerciseDescriptor
	for rows.Next() {
		d, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// GetExercise returns one catalog entry, or apperr.ErrNotFound.
func (db *DB) GetExercise(ctx context.Context, id string) (*models.ExerciseDescriptor, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = $1`, id)
	d, err := scanExercise(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("exercise %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetExercises returns the entries for ids in the given order. Any unknown
// id fails the whole call with apperr.ErrNotFound.
func (db *DB) GetExercises(ctx context.Context, ids []string) ([]models.ExerciseDescriptor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.Pool.Query(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]models.ExerciseDescriptor, len(ids))
	for rows.Next() {
		d, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		byID[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]models.ExerciseDescriptor, 0, len(ids))
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("exercise %s: %w", id, apperr.ErrNotFound)
		}
		result = append(result, d)
	}
	return result, nil
}

func scanExercise(row pgx.Row) (models.ExerciseDescriptor, error) {
	var d models.ExerciseDescriptor
	var typ, pattern, group string
	if err := row.Scan(&d.ID, &d.Name, &d.Instructions, &typ, &pattern, &group); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("scanning exercise: %w", err)
	}
	d.Type = models.ExerciseType(typ)
	d.Pattern = models.MovementPattern(pattern)
	d.MuscleGroup = models.MuscleGroup(group)
	return d, nil
}
