package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/liftcoach/internal/models"
)

// State is the persisted progress of one session.
type State struct {
	SessionID       uuid.UUID                        `json:"session_id"`
	Stage           Stage                            `json:"stage"`
	ExerciseIndex   int                              `json:"current_exercise_index"`
	SetNumber       int                              `json:"current_set_number"`
	ElapsedSeconds  int                              `json:"elapsed_total_seconds"`
	WarmupRemaining int                              `json:"warmup_remaining_seconds"`
	RestRemaining   int                              `json:"rest_remaining_seconds"`
	Active          bool                             `json:"active"`
	CompletedSets   map[string][]models.CompletedSet `json:"completed_sets_by_exercise"`
	StartedAt       time.Time                        `json:"started_at"`
}

// Tuple is the part of State a resumed session must reproduce exactly.
type Tuple struct {
	Stage           Stage
	ExerciseIndex   int
	SetNumber       int
	WarmupRemaining int
	RestRemaining   int
	ElapsedSeconds  int
}

func (s State) Tuple() Tuple {
	return Tuple{
		Stage:           s.Stage,
		ExerciseIndex:   s.ExerciseIndex,
		SetNumber:       s.SetNumber,
		WarmupRemaining: s.WarmupRemaining,
		RestRemaining:   s.RestRemaining,
		ElapsedSeconds:  s.ElapsedSeconds,
	}
}

func (s State) clone() State {
	c := s
	c.CompletedSets = make(map[string][]models.CompletedSet, len(s.CompletedSets))
	for k, sets := range s.CompletedSets {
		c.CompletedSets[k] = append([]models.CompletedSet(nil), sets...)
	}
	return c
}

// View is a read-only copy of a session for display.
type View struct {
	State
	UserID     int                        `json:"user_id"`
	WarmupPick string                     `json:"warmup_pick,omitempty"`
	Exercises  []models.SessionExercise   `json:"exercises"`
	Current    *models.ExerciseDescriptor `json:"current_exercise,omitempty"`
	Inputs     models.SetValues           `json:"inputs"`
	Suggestion *models.Suggestion         `json:"suggestion,omitempty"`
	Summary    *Summary                   `json:"summary,omitempty"`
}

// Summary is shown when a session finishes.
type Summary struct {
	SessionID       uuid.UUID          `json:"session_id"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at"`
	ElapsedSeconds  int                `json:"elapsed_total_seconds"`
	SetsPerExercise map[string]int     `json:"sets_per_exercise"`
	TotalSets       int                `json:"total_sets"`
	TotalVolume     float64            `json:"total_volume"`
	NewRecords      []models.NewRecord `json:"new_records"`
	FinalizeErrors  []string           `json:"finalize_errors,omitempty"`
}

// Entry is an exercise to start a session with.
type Entry struct {
	Exercise      models.ExerciseDescriptor
	SourceEntryID string
}

// Entries wraps descriptors that have no template slot.
func Entries(descs ...models.ExerciseDescriptor) []Entry {
	out := make([]Entry, len(descs))
	for i, d := range descs {
		out[i] = Entry{Exercise: d}
	}
	return out
}

// ExerciseKey identifies a slot's completed sets. The order is part of the
// key so the same exercise added twice keeps separate sets.
func ExerciseKey(ex models.SessionExercise) string {
	return fmt.Sprintf("%d:%s", ex.Order, ex.ExerciseID)
}
