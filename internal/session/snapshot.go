package session

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/liftcoach/internal/apperr"
	"github.com/meltforce/liftcoach/internal/models"
)

const snapshotVersion = 1

// SnapshotKey is the store key of a session snapshot.
func SnapshotKey(id uuid.UUID) string { return "session:" + id.String() }

// CurrentKey is the store key of a user's current-session pointer.
func CurrentKey(userID int) string { return "current:" + strconv.Itoa(userID) }

// Snapshot is everything needed to resume a session in a new process.
type Snapshot struct {
	Version     int                                  `json:"version"`
	UserID      int                                  `json:"user_id"`
	State       State                                `json:"state"`
	Exercises   []models.SessionExercise             `json:"exercises"`
	Descriptors map[string]models.ExerciseDescriptor `json:"descriptors"`
	Inputs      models.SetValues                     `json:"inputs"`
	Suggestion  *models.Suggestion                   `json:"suggestion,omitempty"`
	WarmupPick  string                               `json:"warmup_pick,omitempty"`
	Timers      Timers                               `json:"timers"`
	SavedAt     time.Time                            `json:"saved_at"`
}

// Timers checkpoints the counters in milliseconds, with the countdown
// lengths in force when the session was saved.
type Timers struct {
	WarmupMillis  int64 `json:"warmup_ms"`
	RestMillis    int64 `json:"rest_ms"`
	ElapsedMillis int64 `json:"elapsed_ms"`
	WarmupSeconds int   `json:"warmup_seconds"`
	RestSeconds   int   `json:"rest_seconds"`
}

func encodeSnapshot(s Snapshot) ([]byte, error) {
	s.Version = snapshotVersion
	return json.Marshal(s)
}

// decodeSnapshot parses and validates a stored snapshot. Any failure is a
// ValidationError and the caller treats the snapshot as absent.
func decodeSnapshot(payload []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return Snapshot{}, apperr.Invalid("session snapshot", "%v", err)
	}
	if err := s.validate(); err != nil {
		return Snapshot{}, err
	}
	if s.State.CompletedSets == nil {
		s.State.CompletedSets = make(map[string][]models.CompletedSet)
	}
	return s, nil
}

func (s Snapshot) validate() error {
	st := s.State
	switch {
	case s.Version != snapshotVersion:
		return apperr.Invalid("session snapshot", "unsupported version %d", s.Version)
	case st.SessionID == uuid.Nil:
		return apperr.Invalid("session snapshot", "missing session id")
	case !st.Stage.Valid():
		return apperr.Invalid("session snapshot", "missing stage")
	case st.Stage.Terminal():
		return apperr.Invalid("session snapshot", "session already %s", st.Stage)
	case st.SetNumber < 1:
		return apperr.Invalid("session snapshot", "set number %d", st.SetNumber)
	case st.ExerciseIndex < 0:
		return apperr.Invalid("session snapshot", "exercise index %d", st.ExerciseIndex)
	case s.Timers.WarmupMillis < 0 || s.Timers.RestMillis < 0 || s.Timers.ElapsedMillis < 0:
		return apperr.Invalid("session snapshot", "negative timer")
	}

	switch st.Stage {
	case StageExercise, StageRest:
		if st.ExerciseIndex >= len(s.Exercises) {
			return apperr.Invalid("session snapshot", "exercise index %d out of %d", st.ExerciseIndex, len(s.Exercises))
		}
	case StageAddExercise:
		if len(s.Exercises) > 0 && st.ExerciseIndex >= len(s.Exercises) {
			return apperr.Invalid("session snapshot", "exercise index %d out of %d", st.ExerciseIndex, len(s.Exercises))
		}
	case StageWarmup:
	case stageInvalid, StageFinished, StageDiscarded:
		// rejected above
	}

	for i, ex := range s.Exercises {
		if ex.Order != i {
			return apperr.Invalid("session snapshot", "exercise %d has order %d", i, ex.Order)
		}
		if _, ok := s.Descriptors[ex.ExerciseID]; !ok {
			return apperr.Invalid("session snapshot", "no descriptor for exercise %s", ex.ExerciseID)
		}
	}
	return nil
}
