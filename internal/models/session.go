package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionExercise is one slot in a running session's exercise list.
type SessionExercise struct {
	ExerciseID    string `json:"exercise_id"`
	SourceEntryID string `json:"source_entry_id,omitempty"`
	Order         int    `json:"order"`
}

// SetValues holds the weight/reps/duration a user entered (or was suggested) for a set.
// Nil means absent.
type SetValues struct {
	Weight   *float64 `json:"weight,omitempty"`
	Reps     *int     `json:"reps,omitempty"`
	Duration *int     `json:"duration,omitempty"`
}

// ForType keeps only the fields relevant to an exercise type:
// weight+reps for weight, duration for duration, reps for everything else.
func (v SetValues) ForType(t ExerciseType) SetValues {
	switch t {
	case ExerciseWeight:
		return SetValues{Weight: v.Weight, Reps: v.Reps}
	case ExerciseDuration:
		return SetValues{Duration: v.Duration}
	default:
		return SetValues{Reps: v.Reps}
	}
}

// Recordable reports whether the values are worth storing as a completed set.
// Duration exercises need a positive duration; all others need positive reps or weight.
func (v SetValues) Recordable(t ExerciseType) bool {
	v = v.ForType(t)
	if t == ExerciseDuration {
		return v.Duration != nil && *v.Duration > 0
	}
	return (v.Reps != nil && *v.Reps > 0) || (v.Weight != nil && *v.Weight > 0)
}

// CompletedSet is a recorded set. Only the fields relevant to the exercise type are set.
type CompletedSet struct {
	SetNumber int      `json:"set_number"`
	Weight    *float64 `json:"weight,omitempty"`
	Reps      *int     `json:"reps,omitempty"`
	Duration  *int     `json:"duration,omitempty"`
}

// Volume returns weight × reps, or 0 when either is absent.
func (s CompletedSet) Volume() float64 {
	if s.Weight == nil || s.Reps == nil {
		return 0
	}
	return *s.Weight * float64(*s.Reps)
}

// HistoryExercise is one exercise performed in a past session.
type HistoryExercise struct {
	ExerciseID  string      `json:"exercise_id"`
	Name        string      `json:"name"`
	MuscleGroup MuscleGroup `json:"muscle_group"`
}

// HistorySession is a finished session as seen by the recommender.
type HistorySession struct {
	ID        string            `json:"id"`
	Date      time.Time         `json:"date"`
	Exercises []HistoryExercise `json:"exercises"`
}

// SessionRecord is the row written for a finished session.
type SessionRecord struct {
	ID            uuid.UUID `json:"id"`
	UserID        int       `json:"user_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	DurationSec   int       `json:"duration_sec"`
	ExerciseCount int       `json:"exercise_count"`
	SetCount      int       `json:"set_count"`
	TotalVolume   float64   `json:"total_volume"`
}

// StatsDelta is what one finished session adds to a user's aggregate stats.
type StatsDelta struct {
	Sessions   int
	Sets       int
	Volume     float64
	Seconds    int
	FinishedAt time.Time
}

// UserStats holds a user's lifetime training aggregates.
type UserStats struct {
	UserID        int        `json:"user_id"`
	TotalSessions int        `json:"total_sessions"`
	TotalSets     int        `json:"total_sets"`
	TotalVolume   float64    `json:"total_volume"`
	TotalSeconds  int        `json:"total_seconds"`
	LastSessionAt *time.Time `json:"last_session_at,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
