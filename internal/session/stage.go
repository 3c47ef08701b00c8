package session

import "fmt"

// Stage is the phase a session is in. The zero value is invalid so an
// uninitialized State never passes for a warm-up.
type Stage int

const (
	stageInvalid Stage = iota
	StageWarmup
	StageExercise
	StageRest
	StageAddExercise
	StageFinished
	StageDiscarded
)

var stageNames = map[Stage]string{
	StageWarmup:      "warmup_timer",
	StageExercise:    "exercise",
	StageRest:        "rest",
	StageAddExercise: "add_exercise_prompt",
	StageFinished:    "finished",
	StageDiscarded:   "discarded",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Valid reports whether s is one of the defined stages.
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

// Terminal reports whether no further transitions are possible.
func (s Stage) Terminal() bool {
	switch s {
	case StageFinished, StageDiscarded:
		return true
	case stageInvalid, StageWarmup, StageExercise, StageRest, StageAddExercise:
		return false
	}
	return false
}

func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshaling %s", s)
	}
	return []byte(stageNames[s]), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	for stage, name := range stageNames {
		if name == string(b) {
			*s = stage
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", b)
}
