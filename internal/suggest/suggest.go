// Package suggest computes per-set weight/reps/duration targets from a lifter's
// personal record. Every function here is pure and never fails: missing data
// degrades to the documented fallback tables.
package suggest

import (
	"math"

	"github.com/meltforce/liftcoach/internal/models"
)

// Params tunes the three progressions. Use DefaultParams and override fields.
type Params struct {
	EmptyBarWeight       float64   `json:"empty_bar_weight"`
	WarmupReps           int       `json:"warmup_reps"`
	DefaultTargetReps    int       `json:"default_target_reps"`
	ProgressionIncrement float64   `json:"progression_increment"`
	FallbackWeights      []float64 `json:"fallback_weights"`
	RepPercentages       []int     `json:"rep_percentages"`
	FallbackReps         []int     `json:"fallback_reps"`
	DurationPercentages  []int     `json:"duration_percentages"`
	FallbackDurations    []int     `json:"fallback_durations"`
}

// DefaultParams returns the stock progression parameters.
func DefaultParams() Params {
	return Params{
		EmptyBarWeight:       20,
		WarmupReps:           10,
		DefaultTargetReps:    5,
		ProgressionIncrement: 2.5,
		FallbackWeights:      []float64{20, 30, 40, 50, 55},
		RepPercentages:       []int{30, 60, 100},
		FallbackReps:         []int{5, 10, 15},
		DurationPercentages:  []int{50, 75, 100},
		FallbackDurations:    []int{15, 30, 45},
	}
}

// WithEmptyBar returns p with a different bar weight. The first fallback
// rung always tracks the bar.
func (p Params) WithEmptyBar(w float64) Params {
	p.EmptyBarWeight = w
	weights := make([]float64, len(p.FallbackWeights))
	copy(weights, p.FallbackWeights)
	if len(weights) > 0 {
		weights[0] = w
	}
	p.FallbackWeights = weights
	return p
}

// Engine dispatches to the progression matching an exercise type.
type Engine struct {
	p Params
}

// New creates an Engine. Empty tables in p are filled from DefaultParams.
func New(p Params) Engine {
	d := DefaultParams()
	if p.EmptyBarWeight <= 0 {
		p.EmptyBarWeight = d.EmptyBarWeight
	}
	if p.WarmupReps <= 0 {
		p.WarmupReps = d.WarmupReps
	}
	if p.DefaultTargetReps <= 0 {
		p.DefaultTargetReps = d.DefaultTargetReps
	}
	if p.ProgressionIncrement <= 0 {
		p.ProgressionIncrement = d.ProgressionIncrement
	}
	if len(p.FallbackWeights) == 0 {
		p.FallbackWeights = d.WithEmptyBar(p.EmptyBarWeight).FallbackWeights
	}
	if len(p.RepPercentages) == 0 {
		p.RepPercentages = d.RepPercentages
	}
	if len(p.FallbackReps) == 0 {
		p.FallbackReps = d.FallbackReps
	}
	if len(p.DurationPercentages) == 0 {
		p.DurationPercentages = d.DurationPercentages
	}
	if len(p.FallbackDurations) == 0 {
		p.FallbackDurations = d.FallbackDurations
	}
	return Engine{p: p}
}

// Params returns the engine's effective parameters.
func (e Engine) Params() Params { return e.p }

// Calculate returns the suggestion for a 1-based set number. A nil record
// selects the no-record fallback.
func (e Engine) Calculate(t models.ExerciseType, setNumber int, rec *models.PersonalRecord) models.Suggestion {
	if setNumber < 1 {
		setNumber = 1
	}
	switch t {
	case models.ExerciseDuration:
		return e.duration(setNumber, rec)
	case models.ExerciseWeight:
		return e.linear(setNumber, rec)
	default:
		return e.percentage(setNumber, rec)
	}
}

// Calculate uses the default parameters.
func Calculate(t models.ExerciseType, setNumber int, rec *models.PersonalRecord) models.Suggestion {
	return New(DefaultParams()).Calculate(t, setNumber, rec)
}

// at returns xs[i], clamped to the last entry.
func at[T any](xs []T, i int) T {
	if i >= len(xs) {
		i = len(xs) - 1
	}
	if i < 0 {
		i = 0
	}
	return xs[i]
}

func percentOf(max, pct int) int {
	return int(math.Round(float64(max) * float64(pct) / 100))
}

func percentNote(pct int, metric string) models.Note {
	switch {
	case pct < 50:
		return models.Note{Kind: models.NoteWarmup, Percent: pct, Metric: metric}
	case pct == 100:
		return models.Note{Kind: models.NoteMaxEffort}
	default:
		return models.Note{Kind: models.NoteWorkingSet, Percent: pct, Metric: metric}
	}
}
