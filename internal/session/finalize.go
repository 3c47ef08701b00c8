package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/liftcoach/internal/models"
)

// ExerciseResult is one slot of a finished session with its recorded sets.
type ExerciseResult struct {
	Exercise   models.SessionExercise
	Descriptor models.ExerciseDescriptor
	Sets       []models.CompletedSet
}

// Result is what a finished session hands to its Finalizer.
type Result struct {
	UserID         int
	SessionID      uuid.UUID
	StartedAt      time.Time
	FinishedAt     time.Time
	ElapsedSeconds int
	Exercises      []ExerciseResult
}

// SetCount returns the number of recorded sets.
func (r Result) SetCount() int {
	n := 0
	for _, ex := range r.Exercises {
		n += len(ex.Sets)
	}
	return n
}

// Volume returns the summed weight × reps over all sets.
func (r Result) Volume() float64 {
	var v float64
	for _, ex := range r.Exercises {
		for _, s := range ex.Sets {
			v += s.Volume()
		}
	}
	return v
}

// SetsByExercise groups the sets by exercise id, merging slots that share one.
func (r Result) SetsByExercise() map[string][]models.CompletedSet {
	out := make(map[string][]models.CompletedSet)
	for _, ex := range r.Exercises {
		if len(ex.Sets) == 0 {
			continue
		}
		out[ex.Exercise.ExerciseID] = append(out[ex.Exercise.ExerciseID], ex.Sets...)
	}
	return out
}

func (r Result) summary() Summary {
	s := Summary{
		SessionID:       r.SessionID,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		ElapsedSeconds:  r.ElapsedSeconds,
		SetsPerExercise: make(map[string]int, len(r.Exercises)),
		TotalSets:       r.SetCount(),
		TotalVolume:     r.Volume(),
		NewRecords:      []models.NewRecord{},
	}
	for _, ex := range r.Exercises {
		s.SetsPerExercise[ExerciseKey(ex.Exercise)] = len(ex.Sets)
	}
	return s
}

// Finalizer writes a finished session to the record stores and returns the
// personal records it broke.
type Finalizer interface {
	Finalize(ctx context.Context, r Result) ([]models.NewRecord, error)
}

// SessionWriter creates the history rows of a finished session.
type SessionWriter interface {
	CreateSession(ctx context.Context, rec models.SessionRecord) error
	CreateSessionExercise(ctx context.Context, sessionID uuid.UUID, ex models.SessionExercise) (int64, error)
	CreateSet(ctx context.Context, sessionExerciseID int64, set models.CompletedSet) error
}

// RecordReconciler updates personal records from a session's sets.
type RecordReconciler interface {
	Reconcile(ctx context.Context, userID int, sessionID uuid.UUID, sets map[string][]models.CompletedSet) ([]models.NewRecord, error)
}

// StatsUpdater adds a session to a user's aggregate stats.
type StatsUpdater interface {
	UpdateStats(ctx context.Context, userID int, d models.StatsDelta) error
}

// WriteSequence is the default Finalizer. It runs its writes in order and
// stops at the first failure; writes already made stay in place.
type WriteSequence struct {
	Sessions SessionWriter
	Records  RecordReconciler
	Stats    StatsUpdater
	Log      *slog.Logger
}

var _ Finalizer = WriteSequence{}

func (w WriteSequence) Finalize(ctx context.Context, r Result) ([]models.NewRecord, error) {
	log := w.Log
	if log == nil {
		log = slog.Default()
	}

	err := w.Sessions.CreateSession(ctx, models.SessionRecord{
		ID:            r.SessionID,
		UserID:        r.UserID,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		DurationSec:   r.ElapsedSeconds,
		ExerciseCount: len(r.Exercises),
		SetCount:      r.SetCount(),
		TotalVolume:   r.Volume(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating session record: %w", err)
	}

	rowIDs := make([]int64, len(r.Exercises))
	for i, ex := range r.Exercises {
		id, err := w.Sessions.CreateSessionExercise(ctx, r.SessionID, ex.Exercise)
		if err != nil {
			return nil, fmt.Errorf("creating session exercise %s: %w", ExerciseKey(ex.Exercise), err)
		}
		rowIDs[i] = id
	}

	for i, ex := range r.Exercises {
		for _, set := range ex.Sets {
			if err := w.Sessions.CreateSet(ctx, rowIDs[i], set); err != nil {
				return nil, fmt.Errorf("creating set %d of %s: %w", set.SetNumber, ExerciseKey(ex.Exercise), err)
			}
		}
	}

	records, err := w.Records.Reconcile(ctx, r.UserID, r.SessionID, r.SetsByExercise())
	if err != nil {
		return nil, fmt.Errorf("reconciling personal records: %w", err)
	}

	err = w.Stats.UpdateStats(ctx, r.UserID, models.StatsDelta{
		Sessions:   1,
		Sets:       r.SetCount(),
		Volume:     r.Volume(),
		Seconds:    r.ElapsedSeconds,
		FinishedAt: r.FinishedAt,
	})
	if err != nil {
		return records, fmt.Errorf("updating stats: %w", err)
	}

	log.Info("session written", "session_id", r.SessionID, "exercises", len(r.Exercises),
		"sets", r.SetCount(), "new_records", len(records))
	return records, nil
}
