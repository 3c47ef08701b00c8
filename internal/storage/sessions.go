package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meltforce/liftcoach/internal/models"
)

// CreateSession inserts the row of a finished session.
func (db *DB) CreateSession(ctx context.Context, rec models.SessionRecord) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO training_sessions (id, user_id, started_at, finished_at, duration_sec,
		 exercise_count, set_count, total_volume)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.UserID, rec.StartedAt, rec.FinishedAt, rec.DurationSec,
		rec.ExerciseCount, rec.SetCount, rec.TotalVolume)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// CreateSessionExercise inserts one exercise slot and returns its row id.
func (db *DB) CreateSessionExercise(ctx context.Context, sessionID uuid.UUID, ex models.SessionExercise) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO session_exercises (session_id, exercise_id, source_entry_id, position)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		sessionID, ex.ExerciseID, ex.SourceEntryID, ex.Order).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting session exercise: %w", err)
	}
	return id, nil
}

// CreateSet inserts one completed set.
func (db *DB) CreateSet(ctx context.Context, sessionExerciseID int64, set models.CompletedSet) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO session_sets (session_exercise_id, set_number, weight, reps, duration)
		 VALUES ($1, $2, $3, $4, $5)`,
		sessionExerciseID, set.SetNumber, set.Weight, set.Reps, set.Duration)
	if err != nil {
		return fmt.Errorf("inserting set: %w", err)
	}
	return nil
}

// SessionExists reports whether a finished session with id is stored.
func (db *DB) SessionExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM training_sessions WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking session: %w", err)
	}
	return exists, nil
}

// ListSessions returns the user's newest finished sessions.
func (db *DB) ListSessions(ctx context.Context, userID, limit int) ([]models.SessionRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, started_at, finished_at, duration_sec, exercise_count, set_count, total_volume
		 FROM training_sessions
		 WHERE user_id = $1
		 ORDER BY finished_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionRecord
	for rows.Next() {
		var r models.SessionRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.StartedAt, &r.FinishedAt, &r.DurationSec,
			&r.ExerciseCount, &r.SetCount, &r.TotalVolume); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// RecentSessions returns the user's newest sessions with the exercises
// performed in each, newest first, as the recommender consumes them.
func (db *DB) RecentSessions(ctx context.Context, userID, limit int) ([]models.HistorySession, error) {
	records, err := db.ListSessions(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(records))
	index := make(map[uuid.UUID]int, len(records))
	history := make([]models.HistorySession, len(records))
	for i, r := range records {
		ids[i] = r.ID
		index[r.ID] = i
		history[i] = models.HistorySession{ID: r.ID.String(), Date: r.FinishedAt}
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT se.session_id, se.exercise_id, e.name, e.muscle_group
		 FROM session_exercises se
		 JOIN exercises e ON e.id = se.exercise_id
		 WHERE se.session_id = ANY($1)
		 ORDER BY se.session_id, se.position`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying session exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sid uuid.UUID
		var ex models.HistoryExercise
		var group string
		if err := rows.Scan(&sid, &ex.ExerciseID, &ex.Name, &group); err != nil {
			return nil, fmt.Errorf("scanning session exercise: %w", err)
		}
		ex.MuscleGroup = models.MuscleGroup(group)
		if i, ok := index[sid]; ok {
			history[i].Exercises = append(history[i].Exercises, ex)
		}
	}
	return history, rows.Err()
}
