package models

import "strings"

// ExerciseType decides which set fields are tracked and which progression applies.
type ExerciseType string

const (
	ExerciseWeight     ExerciseType = "weight"
	ExerciseDuration   ExerciseType = "duration"
	ExerciseBodyweight ExerciseType = "bodyweight"
	ExerciseWarmup     ExerciseType = "warmup"
)

// Valid reports whether t is one of the known exercise types.
func (t ExerciseType) Valid() bool {
	switch t {
	case ExerciseWeight, ExerciseDuration, ExerciseBodyweight, ExerciseWarmup:
		return true
	}
	return false
}

// MovementPattern distinguishes multi-joint (complex) from isolation movements.
type MovementPattern string

const (
	PatternComplex MovementPattern = "complex"
	PatternIso     MovementPattern = "iso"
)

// MuscleGroup is the primary group an exercise trains.
type MuscleGroup string

const (
	MuscleLegs      MuscleGroup = "legs"
	MuscleCore      MuscleGroup = "core"
	MuscleChest     MuscleGroup = "chest"
	MuscleBack      MuscleGroup = "back"
	MuscleShoulders MuscleGroup = "shoulders"
	MuscleArms      MuscleGroup = "arms"
	MuscleCardio    MuscleGroup = "cardio"
	MuscleFullBody  MuscleGroup = "full_body"
)

// KnownMuscleGroups lists the groups the catalog ships with, in display order.
var KnownMuscleGroups = []MuscleGroup{
	MuscleLegs, MuscleCore, MuscleChest, MuscleBack, MuscleShoulders, MuscleArms, MuscleCardio, MuscleFullBody,
}

// ExerciseDescriptor is immutable catalog reference data.
type ExerciseDescriptor struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Instructions string          `json:"instructions,omitempty"`
	Type         ExerciseType    `json:"exercise_type"`
	Pattern      MovementPattern `json:"movement_pattern"`
	MuscleGroup  MuscleGroup     `json:"muscle_group"`
}

// NameContains reports whether the lower-cased name contains any of the keywords.
func (d ExerciseDescriptor) NameContains(keywords ...string) bool {
	name := strings.ToLower(d.Name)
	for _, k := range keywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// ExerciseFilter narrows a catalog listing. Empty fields match everything.
type ExerciseFilter struct {
	Type        ExerciseType
	Pattern     MovementPattern
	MuscleGroup MuscleGroup
}

// Match reports whether d passes the filter.
func (f ExerciseFilter) Match(d ExerciseDescriptor) bool {
	if f.Type != "" && d.Type != f.Type {
		return false
	}
	if f.Pattern != "" && d.Pattern != f.Pattern {
		return false
	}
	if f.MuscleGroup != "" && d.MuscleGroup != f.MuscleGroup {
		return false
	}
	return true
}
