package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// PersonalRecord is a user's best weight/reps/duration for one exercise.
type PersonalRecord struct {
	ExerciseID  string    `json:"exercise_id"`
	MaxWeight   *float64  `json:"max_weight,omitempty"`
	MaxReps     *int      `json:"max_reps,omitempty"`
	MaxDuration *int      `json:"max_duration,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// RecordMetric names the metric a new personal record broke.
type RecordMetric string

const (
	MetricWeight   RecordMetric = "weight"
	MetricReps     RecordMetric = "reps"
	MetricDuration RecordMetric = "duration"
)

// NewRecord is a personal record set during a session.
type NewRecord struct {
	ExerciseID string       `json:"exercise_id"`
	Metric     RecordMetric `json:"metric"`
	Value      float64      `json:"value"`
	Previous   *float64     `json:"previous,omitempty"`
}

// RecoveryStatus describes how rested a muscle group is.
type RecoveryStatus struct {
	MuscleGroup           MuscleGroup `json:"muscle_group"`
	DaysSinceLastTrained  int         `json:"days_since_last_trained"`
	RecoveryThresholdDays int         `json:"recovery_threshold_days"`
	IsRecovered           bool        `json:"is_recovered"`
}

// NeverTrained is the DaysSinceLastTrained sentinel for a group with no history.
const NeverTrained = int(^uint(0) >> 1)

// Never reports whether the group has never been trained.
func (r RecoveryStatus) Never() bool { return r.DaysSinceLastTrained == NeverTrained }

// Role is the slot a recommended exercise fills in a workout.
type Role string

const (
	RoleMain      Role = "main"
	RoleSecondary Role = "secondary"
	RoleAccessory Role = "accessory"
)

// RecommendedExercise is one exercise of a recommended workout.
type RecommendedExercise struct {
	ExerciseID  string `json:"exercise_id"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	Sets        int    `json:"sets"`
	Reps        string `json:"reps"`
	RestSeconds int    `json:"rest_seconds"`
}

// RateLimitStatus is the outcome of a rate limiter check.
type RateLimitStatus struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"`
}

// NoteKind tags the rationale behind a suggestion.
type NoteKind string

const (
	NoteWarmup      NoteKind = "warm_up"
	NoteWorkingSet  NoteKind = "working_set"
	NoteProgression NoteKind = "progression"
	NoteMaxEffort   NoteKind = "max_effort"
	NoteNoRecord    NoteKind = "no_record"
)

// Note is a suggestion's rationale: a kind plus, for percentage-based sets,
// the percentage and the metric it applies to ("reps" or "duration").
type Note struct {
	Kind    NoteKind `json:"kind"`
	Percent int      `json:"percent,omitempty"`
	Metric  string   `json:"metric,omitempty"`
}

// Label renders the note for display.
func (n Note) Label() string {
	switch n.Kind {
	case NoteWarmup:
		if n.Percent > 0 {
			return fmt.Sprintf("warm-up (%d%% of max %s)", n.Percent, n.Metric)
		}
		return "warm-up"
	case NoteWorkingSet:
		if n.Percent > 0 {
			return fmt.Sprintf("working set (%d%% of max %s)", n.Percent, n.Metric)
		}
		return "working set"
	case NoteProgression:
		return "progression"
	case NoteMaxEffort:
		return "max effort"
	case NoteNoRecord:
		return "no record – conservative " + n.Metric
	}
	return string(n.Kind)
}

// MarshalJSON adds the rendered label next to the tag fields.
func (n Note) MarshalJSON() ([]byte, error) {
	type plain Note
	return json.Marshal(struct {
		plain
		Label string `json:"label"`
	}{plain(n), n.Label()})
}

// Suggestion is the target the engine proposes for a set.
type Suggestion struct {
	Weight   *float64 `json:"weight,omitempty"`
	Reps     *int     `json:"reps,omitempty"`
	Duration *int     `json:"duration,omitempty"`
	Note     Note     `json:"note"`
}

// Values converts the suggestion into pre-filled set inputs.
func (s Suggestion) Values() SetValues {
	return SetValues{Weight: s.Weight, Reps: s.Reps, Duration: s.Duration}
}
