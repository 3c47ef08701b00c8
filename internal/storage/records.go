package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meltforce/liftcoach/internal/models"
)

// GetRecord returns the user's personal record for an exercise, or nil if
// the user has none.
func (db *DB) GetRecord(ctx context.Context, userID int, exerciseID string) (*models.PersonalRecord, error) {
	return getRecord(ctx, db.Pool, userID, exerciseID, false)
}

// ListRecords returns all personal records of a user.
func (db *DB) ListRecords(ctx context.Context, userID int) ([]models.PersonalRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_id, max_weight, max_reps, max_duration, last_updated
		 FROM personal_records
		 WHERE user_id = $1
		 ORDER BY exercise_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying personal records: %w", err)
	}
	defer rows.Close()

	var result []models.PersonalRecord
	for rows.Next() {
		var r models.PersonalRecord
		if err := rows.Scan(&r.ExerciseID, &r.MaxWeight, &r.MaxReps, &r.MaxDuration, &r.LastUpdated); err != nil {
			return nil, fmt.Errorf("scanning personal record: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Reconcile folds a finished session's sets into the user's personal records
// and reports which metrics were broken. The rows are locked for the
// duration so the merge reads what it overwrites; all updates commit together.
func (db *DB) Reconcile(ctx context.Context, userID int, sessionID uuid.UUID, sets map[string][]models.CompletedSet) ([]models.NewRecord, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning record reconciliation: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(sets))
	for id := range sets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var broken []models.NewRecord
	for _, id := range ids {
		b := bestOf(sets[id])
		prev, err := getRecord(ctx, tx, userID, id, true)
		if err != nil {
			return nil, err
		}
		next, nr := mergeRecord(id, prev, b)
		if len(nr) == 0 {
			continue
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO personal_records (user_id, exercise_id, max_weight, max_reps, max_duration, last_updated)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 ON CONFLICT (user_id, exercise_id) DO UPDATE SET
				max_weight   = EXCLUDED.max_weight,
				max_reps     = EXCLUDED.max_reps,
				max_duration = EXCLUDED.max_duration,
				last_updated = NOW()`,
			userID, id, next.weight, next.reps, next.duration)
		if err != nil {
			return nil, fmt.Errorf("updating personal record %s: %w", id, err)
		}
		broken = append(broken, nr...)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing records for session %s: %w", sessionID, err)
	}
	return broken, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getRecord(ctx context.Context, q querier, userID int, exerciseID string, lock bool) (*models.PersonalRecord, error) {
	query := `SELECT exercise_id, max_weight, max_reps, max_duration, last_updated
		 FROM personal_records
		 WHERE user_id = $1 AND exercise_id = $2`
	if lock {
		query += ` FOR UPDATE`
	}
	var r models.PersonalRecord
	err := q.QueryRow(ctx, query, userID, exerciseID).
		Scan(&r.ExerciseID, &r.MaxWeight, &r.MaxReps, &r.MaxDuration, &r.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying personal record %s: %w", exerciseID, err)
	}
	return &r, nil
}

// best holds the top value of each metric over a set list; nil when no set
// carried the metric. When any set has a weight, reps are the most done at
// that top weight, so warm-up and ramp-up sets never set the rep target.
type best struct {
	weight   *float64
	reps     *int
	duration *int
}

func bestOf(sets []models.CompletedSet) best {
	var b best
	for _, s := range sets {
		if s.Weight != nil && *s.Weight > 0 && (b.weight == nil || *s.Weight > *b.weight) {
			b.weight = s.Weight
		}
		if s.Duration != nil && *s.Duration > 0 && (b.duration == nil || *s.Duration > *b.duration) {
			b.duration = s.Duration
		}
	}
	for _, s := range sets {
		if s.Reps == nil || *s.Reps <= 0 {
			continue
		}
		if b.weight != nil && (s.Weight == nil || *s.Weight != *b.weight) {
			continue
		}
		if b.reps == nil || *s.Reps > *b.reps {
			b.reps = s.Reps
		}
	}
	return b
}

// mergeRecord folds a session's bests into the previous record and returns
// the values to store with the metrics that were broken. Weight and duration
// only grow. For weighted exercises max_reps belongs to max_weight: a heavier
// weight replaces it, a matched weight may raise it and lighter sessions
// leave it alone. Without any weight max_reps only grows.
func mergeRecord(exerciseID string, prev *models.PersonalRecord, b best) (best, []models.NewRecord) {
	var out []models.NewRecord
	add := func(metric models.RecordMetric, value float64, previous *float64) {
		out = append(out, models.NewRecord{ExerciseID: exerciseID, Metric: metric, Value: value, Previous: previous})
	}
	if prev == nil {
		prev = &models.PersonalRecord{}
	}
	next := best{weight: prev.MaxWeight, reps: prev.MaxReps, duration: prev.MaxDuration}

	raiseReps := func() {
		if b.reps == nil || (prev.MaxReps != nil && *b.reps <= *prev.MaxReps) {
			return
		}
		var previous *float64
		if prev.MaxReps != nil {
			previous = models.Float(float64(*prev.MaxReps))
		}
		add(models.MetricReps, float64(*b.reps), previous)
		next.reps = b.reps
	}

	switch {
	case b.weight != nil && prev.MaxWeight == nil:
		add(models.MetricWeight, *b.weight, nil)
		next.weight = b.weight
		if b.reps != nil && prev.MaxReps == nil {
			add(models.MetricReps, float64(*b.reps), nil)
		}
		next.reps = b.reps
	case b.weight != nil && *b.weight > *prev.MaxWeight:
		add(models.MetricWeight, *b.weight, models.Float(*prev.MaxWeight))
		next.weight = b.weight
		next.reps = b.reps
	case b.weight != nil && *b.weight == *prev.MaxWeight:
		raiseReps()
	case b.weight == nil && prev.MaxWeight == nil:
		raiseReps()
	}

	if b.duration != nil {
		if prev.MaxDuration == nil {
			add(models.MetricDuration, float64(*b.duration), nil)
			next.duration = b.duration
		} else if *b.duration > *prev.MaxDuration {
			add(models.MetricDuration, float64(*b.duration), models.Float(float64(*prev.MaxDuration)))
			next.duration = b.duration
		}
	}
	return next, out
}
