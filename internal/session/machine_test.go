package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltforce/liftcoach/internal/models"
	"github.com/meltforce/liftcoach/internal/snapshot"
)

var (
	bench = models.ExerciseDescriptor{ID: "bench", Name: "Bench Press", Type: models.ExerciseWeight, Pattern: models.PatternComplex, MuscleGroup: models.MuscleChest}
	plank = models.ExerciseDescriptor{ID: "plank", Name: "Plank", Type: models.ExerciseDuration, Pattern: models.PatternIso, MuscleGroup: models.MuscleCore}
	dips  = models.ExerciseDescriptor{ID: "dip", Name: "Dip", Type: models.ExerciseBodyweight, Pattern: models.PatternComplex, MuscleGroup: models.MuscleArms}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRecords struct {
	mu    sync.Mutex
	recs  map[string]*models.PersonalRecord
	err   error
	calls int
}

func (f *fakeRecords) GetRecord(_ context.Context, _ int, exerciseID string) (*models.PersonalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.recs[exerciseID], nil
}

// recordingWriter implements every finalize collaborator and logs each call.
type recordingWriter struct {
	mu       sync.Mutex
	calls    []string
	failAt   string
	names    map[int64]string
	nextID   int64
	received map[string][]models.CompletedSet
	delta    models.StatsDelta
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{names: make(map[int64]string)}
}

func (w *recordingWriter) log(call string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
	if w.failAt != "" && w.failAt == call {
		return errors.New("boom")
	}
	return nil
}

func (w *recordingWriter) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *recordingWriter) CreateSession(_ context.Context, _ models.SessionRecord) error {
	return w.log("session")
}

func (w *recordingWriter) CreateSessionExercise(_ context.Context, _ uuid.UUID, ex models.SessionExercise) (int64, error) {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.names[id] = ex.ExerciseID
	w.mu.Unlock()
	return id, w.log("exercise:" + ex.ExerciseID)
}

func (w *recordingWriter) CreateSet(_ context.Context, id int64, set models.CompletedSet) error {
	w.mu.Lock()
	name := w.names[id]
	w.mu.Unlock()
	return w.log(fmt.Sprintf("set:%s:%d", name, set.SetNumber))
}

func (w *recordingWriter) Reconcile(_ context.Context, _ int, _ uuid.UUID, sets map[string][]models.CompletedSet) ([]models.NewRecord, error) {
	w.mu.Lock()
	w.received = sets
	w.mu.Unlock()
	if err := w.log("reconcile"); err != nil {
		return nil, err
	}
	return []models.NewRecord{{ExerciseID: "bench", Metric: models.MetricWeight, Value: 100}}, nil
}

func (w *recordingWriter) UpdateStats(_ context.Context, _ int, d models.StatsDelta) error {
	w.mu.Lock()
	w.delta = d
	w.mu.Unlock()
	return w.log("stats")
}

// flakyStore fails writes while fail is set.
type flakyStore struct {
	*snapshot.Memory
	mu   sync.Mutex
	fail bool
}

func (s *flakyStore) setFail(v bool) {
	s.mu.Lock()
	s.fail = v
	s.mu.Unlock()
}

func (s *flakyStore) Set(ctx context.Context, key string, payload []byte) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.Memory.Set(ctx, key, payload)
}

type harness struct {
	clock   *fakeClock
	store   *snapshot.Memory
	records *fakeRecords
	writer  *recordingWriter
	cfg     Config
	deps    Deps
}

func newHarness() *harness {
	h := &harness{
		clock: newFakeClock(),
		store: snapshot.NewMemory(),
		records: &fakeRecords{recs: map[string]*models.PersonalRecord{
			"bench": {ExerciseID: "bench", MaxWeight: models.Float(100), MaxReps: models.Int(8)},
		}},
		writer: newRecordingWriter(),
		cfg:    DefaultConfig(),
	}
	h.deps = Deps{
		Store:     h.store,
		Records:   h.records,
		Finalizer: WriteSequence{Sessions: h.writer, Records: h.writer, Stats: h.writer, Log: discardLogger()},
		Clock:     h.clock,
		Rand:      rand.New(rand.NewPCG(1, 2)),
		Log:       discardLogger(),
	}
	return h
}

func (h *harness) start(t *testing.T, descs ...models.ExerciseDescriptor) *Machine {
	t.Helper()
	m, err := Start(context.Background(), 1, Entries(descs...), false, h.cfg, h.deps)
	require.NoError(t, err)
	return m
}

func TestFullSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	m := h.start(t, bench, plank)

	v := m.State()
	assert.Equal(t, StageWarmup, v.Stage)
	assert.Equal(t, 599, v.WarmupRemaining)
	assert.Equal(t, 119, v.RestRemaining)
	assert.True(t, v.Active)
	assert.NotEmpty(t, v.WarmupPick)
	assert.Len(t, h.store.Keys(), 2, "snapshot and current pointer")

	h.clock.Advance(30 * time.Second)
	v = m.State()
	assert.Equal(t, 569, v.WarmupRemaining)
	assert.Equal(t, 30, v.ElapsedSeconds)

	v, err := m.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageExercise, v.Stage)
	assert.Equal(t, 0, v.ExerciseIndex)
	assert.Equal(t, 1, v.SetNumber)
	require.NotNil(t, v.Current)
	assert.Equal(t, "bench", v.Current.ID)
	require.NotNil(t, v.Suggestion)
	assert.Equal(t, 20.0, *v.Suggestion.Weight)
	assert.Equal(t, 10, *v.Suggestion.Reps)
	assert.Equal(t, 20.0, *v.Inputs.Weight, "inputs are pre-filled")

	v, err = m.Repeat(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageRest, v.Stage)
	assert.Equal(t, 2, v.SetNumber)
	assert.Len(t, v.CompletedSets["0:bench"], 1)
	assert.Equal(t, 30.0, *v.Suggestion.Weight, "next set is suggested during rest")

	h.clock.Advance(50 * time.Second)
	v = m.State()
	assert.Equal(t, 69, v.RestRemaining)
	assert.Equal(t, 569, v.WarmupRemaining, "warm-up countdown stopped with its stage")
	assert.Equal(t, 80, v.ElapsedSeconds)

	v, err = m.Skip(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageExercise, v.Stage)
	assert.Equal(t, 2, v.SetNumber)

	_, err = m.SetInputs(ctx, models.SetValues{Weight: models.Float(100), Reps: models.Int(8), Duration: models.Int(5)})
	require.NoError(t, err)
	v, err = m.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageExercise, v.Stage)
	assert.Equal(t, 1, v.ExerciseIndex)
	assert.Equal(t, 1, v.SetNumber)
	assert.Equal(t, 15, *v.Suggestion.Duration, "plank has no record")
	assert.Nil(t, v.Inputs.Weight)

	sets := v.CompletedSets["0:bench"]
	require.Len(t, sets, 2)
	assert.Equal(t, 2, sets[1].SetNumber)
	assert.Nil(t, sets[1].Duration, "duration does not apply to weight exercises")

	v, err = m.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageAddExercise, v.Stage)

	summary, err := m.Finish(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalSets)
	assert.Equal(t, 1000.0, summary.TotalVolume)
	assert.Equal(t, 80, summary.ElapsedSeconds)
	assert.Equal(t, map[string]int{"0:bench": 2, "1:plank": 1}, summary.SetsPerExercise)
	assert.Len(t, summary.NewRecords, 1)
	assert.Empty(t, summary.FinalizeErrors)

	assert.Equal(t, []string{
		"session",
		"exercise:bench", "exercise:plank",
		"set:bench:1", "set:bench:2", "set:plank:1",
		"reconcile", "stats",
	}, h.writer.Calls())
	assert.Len(t, h.writer.received["bench"], 2)
	assert.Equal(t, 3, h.writer.delta.Sets)
	assert.Empty(t, h.store.Keys(), "snapshot removed after finish")

	v = m.State()
	assert.Equal(t, StageFinished, v.Stage)
	require.NotNil(t, v.Summary)
	assert.False(t, v.Active)
}

func TestCancelFromRestWritesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	m := h.start(t, bench)

	_, err := m.Next(ctx)
	require.NoError(t, err)
	v, err := m.Repeat(ctx)
	require.NoError(t, err)
	require.Equal(t, StageRest, v.Stage)

	v, err = m.Cancel(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageDiscarded, v.Stage)
	assert.Empty(t, h.store.Keys())
	assert.Empty(t, h.writer.Calls(), "no session, record or stats writes")

	_, err = m.Next(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = m.Cancel(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvanceOnLastExerciseAlwaysPrompts(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	m := h.start(t, dips)

	_, err := m.Next(ctx)
	require.NoError(t, err)
	_, err = m.SetInputs(ctx, models.SetValues{})
	require.NoError(t, err)
	v, err := m.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageAddExercise, v.Stage)
	assert.Empty(t, v.CompletedSets)
	assert.Nil(t, v.Suggestion)
}

func TestEmptySessionGoesStraightToPrompt(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	m := h.start(t)

	v, err := m.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageAddExercise, v.Stage)

	v, err = m.AddExercise(ctx, dips, "")
	require.NoError(t, err)
	assert.Equal(t, StageExercise, v.Stage)
	assert.Equal(t, 0, v.ExerciseIndex)
	assert.Equal(t, []models.SessionExercise{{ExerciseID: "dip", Order: 0}}, v.Exercises)
	assert.Equal(t, 5, *v.Suggestion.Reps)

	_, err = m.Repeat(ctx)
	require.NoError(t, err)
	_, err = m.Skip(ctx)
	require.NoError(t, err)
	v, err = m.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, StageAddExercise, v.Stage)

	v, err = m.AddExercise(ctx, dips, "slot-7")
	require.NoError(t, err)
	assert.Equal(t, 1, v.ExerciseIndex)
	assert.Equal(t, "slot-7", v.Exercises[1].SourceEntryID)
	assert.Len(t, v.CompletedSets["0:dip"], 2)
	assert.Empty(t, v.CompletedSets["1:dip"], "a repeated exercise keeps its own sets")
}

func TestEmptyInputsAreNotRecorded(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	m := h.start(t, bench, plank)

	_, err := m.Next(ctx)
	require.NoError(t, err)
	_, err = m.SetInputs(ctx, models.SetValues{Weight: models.Float(0), Reps: models.Int(0)})
	require.NoError(t, err)
	v, err := m.Repeat(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageRest, v.Stage, "transition still happens")
	assert.Equal(t, 2, v.SetNumber)
	assert.Empty(t, v.CompletedSets["0:bench"])

	_, err = m.Skip(ctx)
	require.NoError(t, err)
	_, err = m.SetInputs(ctx, models.SetValues{})
	require.NoError(t, err)
	v, err = m.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, "plank", v.Current.ID)

	// reps do not count for a duration exercise
	_, err = m.SetInputs(ctx, models.SetValues{Reps: models.Int(12)})
	require.NoError(t, err)
	v, err = m.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageAddExercise, v.Stage)
	assert.Empty(t, v.CompletedSets)
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	m := h.start(t, bench)

	for name, op := range map[string]func() error{
		"repeat": func() error { _, err := m.Repeat(ctx); return err },
		"advance": func() error { _, err := m.Advance(ctx); return err },
		"skip":    func() error { _, err := m.Skip(ctx); return err },
		"inputs":  func() error { _, err := m.SetInputs(ctx, models.SetValues{}); return err },
		"add":     func() error { _, err := m.AddExercise(ctx, dips, ""); return err },
		"finish":  func() error { _, err := m.Finish(ctx); return err },
	} {
		assert.ErrorIs(t, op(), ErrInvalidTransition, name)
	}
	assert.Equal(t, StageWarmup, m.State().Stage)

	_, err := m.Next(ctx)
	require.NoError(t, err)
	_, err = m.Shuffle(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = m.Next(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestShuffleExcludesCurrentPick(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.cfg.WarmupPool = []string{"a", "b", "c"}
	m := h.start(t)

	prev := m.State().WarmupPick
	for i := 0; i < 20; i++ {
		v, err := m.Shuffle(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, prev, v.WarmupPick)
		assert.Contains(t, h.cfg.WarmupPool, v.WarmupPick)
		prev = v.WarmupPick
	}
}

func TestShuffleIsDeterministicForASeed(t *testing.T) {
	ctx := context.Background()
	picks := func() []string {
		h := newHarness()
		h.cfg.WarmupPool = []string{"a", "b", "c", "d"}
		m := h.start(t)
		out := []string{m.State().WarmupPick}
		for i := 0; i < 5; i++ {
			v, err := m.Shuffle(ctx)
			require.NoError(t, err)
			out = append(out, v.WarmupPick)
		}
		return out
	}
	assert.Equal(t, picks(), picks())
}

func TestShuffleSingleEntryPoolKeepsPick(t *testing.T) {
	h := newHarness()
	h.cfg.WarmupPool = []string{"only"}
	m := h.start(t)
	v, err := m.Shuffle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "only", v.WarmupPick)
}

func TestRestEndsOnTick(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	m := h.start(t, bench)
	_, err := m.Next(ctx)
	require.NoError(t, err)
	_, err = m.Repeat(ctx)
	require.NoError(t, err)

	h.clock.Advance(118 * time.Second)
	assert.Equal(t, StageRest, m.Tick(ctx).Stage)

	h.clock.Advance(time.Second)
	v := m.Tick(ctx)
	assert.Equal(t, StageExercise, v.Stage)
	assert.Equal(t, 2, v.SetNumber)
	assert.Equal(t, 119, v.RestRemaining)
}

func TestExpiredRestAllowsNextExerciseAction(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	m := h.start(t, bench)
	_, err := m.Next(ctx)
	require.NoError(t, err)
	_, err = m.Repeat(ctx)
	require.NoError(t, err)

	// no tick ran, but the countdown is over
	h.clock.Advance(5 * time.Minute)
	v, err := m.Repeat(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageRest, v.Stage)
	assert.Equal(t, 3, v.SetNumber)
}

func TestWarmupCountdownStopsAtZero(t *testing.T) {
	h := newHarness()
	m := h.start(t, bench)
	h.clock.Advance(20 * time.Minute)
	v := m.Tick(context.Background())
	assert.Equal(t, StageWarmup, v.Stage)
	assert.Equal(t, 0, v.WarmupRemaining)
	assert.Equal(t, 1200, v.ElapsedSeconds)
}

func TestElapsedNeverDecreasesAndPausesWhenInactive(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	m := h.start(t, bench)

	last := 0
	step := func(d time.Duration) int {
		h.clock.Advance(d)
		e := m.Tick(ctx).ElapsedSeconds
		assert.GreaterOrEqual(t, e, last)
		last = e
		return e
	}

	step(10 * time.Second)
	_, err := m.Next(ctx)
	require.NoError(t, err)
	step(5 * time.Second)

	_, err = m.SetActive(ctx, false)
	require.NoError(t, err)
	paused := last
	assert.Equal(t, paused, step(time.Hour), "no ticking while inactive")

	_, err = m.SetActive(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, paused+3, step(3*time.Second))
	assert.Equal(t, 18, last)
}

func TestResumeReproducesTuple(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	m := h.start(t, bench, plank)

	h.clock.Advance(12*time.Second + 700*time.Millisecond)
	_, err := m.Next(ctx)
	require.NoError(t, err)
	_, err = m.SetInputs(ctx, models.SetValues{Weight: models.Float(20), Reps: models.Int(10)})
	require.NoError(t, err)
	_, err = m.Repeat(ctx)
	require.NoError(t, err)
	h.clock.Advance(42*time.Second + 300*time.Millisecond)
	before := m.Tick(ctx)
	require.Equal(t, StageRest, before.Stage)

	// a new process only has the store
	resumed, err := Resume(ctx, 1, h.cfg, h.deps)
	require.NoError(t, err)
	after := resumed.State()

	assert.Equal(t, before.Tuple(), after.Tuple())
	assert.Equal(t, before.SessionID, after.SessionID)
	assert.Equal(t, before.CompletedSets, after.CompletedSets)
	assert.Equal(t, before.WarmupPick, after.WarmupPick)
	assert.Equal(t, before.Inputs, after.Inputs)
	require.NotNil(t, after.Suggestion)
	assert.Equal(t, *before.Suggestion.Weight, *after.Suggestion.Weight)
	assert.Equal(t, before.Suggestion.Note, after.Suggestion.Note)

	// the resumed rest keeps counting down from where it was
	h.clock.Advance(10 * time.Second)
	assert.Equal(t, before.RestRemaining-10, resumed.State().RestRemaining)
}

func TestResumeWithoutSession(t *testing.T) {
	h := newHarness()
	_, err := Resume(context.Background(), 1, h.cfg, h.deps)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCorruptSnapshotIsTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	payloads := map[string]string{
		"not json":      "{not json",
		"wrong version": `{"version":99}`,
		"missing stage": fmt.Sprintf(`{"version":1,"user_id":1,"state":{"session_id":%q,"current_set_number":1}}`, id),
		"unknown stage": fmt.Sprintf(`{"version":1,"user_id":1,"state":{"session_id":%q,"stage":"stretching","current_set_number":1}}`, id),
		"bad index":     fmt.Sprintf(`{"version":1,"user_id":1,"state":{"session_id":%q,"stage":"exercise","current_set_number":1,"current_exercise_index":3}}`, id),
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			require.NoError(t, h.store.Set(ctx, CurrentKey(1), []byte(id.String())))
			require.NoError(t, h.store.Set(ctx, SnapshotKey(id), []byte(payload)))

			_, err := Resume(ctx, 1, h.cfg, h.deps)
			assert.ErrorIs(t, err, ErrNoSession)
			assert.Empty(t, h.store.Keys(), "corrupt snapshot and pointer removed")

			// a fresh session starts without confirmation
			_, err = Start(ctx, 1, nil, false, h.cfg, h.deps)
			assert.NoError(t, err)
		})
	}
}

func TestStartWithExistingSessionNeedsConfirm(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	first := h.start(t, bench)

	_, err := Start(ctx, 1, Entries(plank), false, h.cfg, h.deps)
	assert.ErrorIs(t, err, ErrSessionExists)

	second, err := Start(ctx, 1, Entries(plank), true, h.cfg, h.deps)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())

	_, ok, err := h.store.Get(ctx, SnapshotKey(first.ID()))
	require.NoError(t, err)
	assert.False(t, ok, "old snapshot discarded")
	ptr, ok, err := h.store.Get(ctx, CurrentKey(1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID().String(), string(ptr))
	assert.Empty(t, h.writer.Calls(), "discarded session is not written anywhere")

	// another user is unaffected
	_, err = Start(ctx, 2, nil, false, h.cfg, h.deps)
	assert.NoError(t, err)
}

func TestStartRejectsUnknownExerciseType(t *testing.T) {
	h := newHarness()
	_, err := Start(context.Background(), 1, Entries(models.ExerciseDescriptor{ID: "x", Type: "yoga"}), false, h.cfg, h.deps)
	assert.Error(t, err)
	assert.Empty(t, h.store.Keys())
}

func TestFinalizeFailureStillFinishes(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.writer.failAt = "reconcile"
	m := h.start(t, bench)

	_, err := m.Next(ctx)
	require.NoError(t, err)
	_, err = m.Advance(ctx)
	require.NoError(t, err)
	summary, err := m.Finish(ctx)
	require.NoError(t, err)

	require.Len(t, summary.FinalizeErrors, 1)
	assert.Contains(t, summary.FinalizeErrors[0], "reconciling personal records")
	assert.Equal(t, 1, summary.TotalSets)
	assert.Empty(t, summary.NewRecords)
	assert.NotContains(t, h.writer.Calls(), "stats", "no retry or later steps")
	assert.Empty(t, h.store.Keys())
	assert.Equal(t, StageFinished, m.State().Stage)
}

func TestRecordLookupFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.records.err = errors.New("record store down")
	m := h.start(t, bench)

	_, err := m.Next(ctx)
	require.NoError(t, err)
	v, err := m.Repeat(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30.0, *v.Suggestion.Weight, "no-record fallback ladder")
	assert.Equal(t, 2, h.records.calls, "errors are not cached")
}

func TestRecordLookupIsCachedPerExercise(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	m := h.start(t, bench)
	_, err := m.Next(ctx)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = m.Repeat(ctx)
		require.NoError(t, err)
		_, err = m.Skip(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, h.records.calls)
}

func TestFailedWriteIsRetried(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	store := &flakyStore{Memory: h.store}
	h.deps.Store = store
	m := h.start(t, bench)

	store.setFail(true)
	v, err := m.Next(ctx)
	require.NoError(t, err, "persistence failure does not block the transition")
	assert.Equal(t, StageExercise, v.Stage)

	store.setFail(false)
	m.Tick(ctx)

	resumed, err := Resume(ctx, 1, h.cfg, h.deps)
	require.NoError(t, err)
	assert.Equal(t, StageExercise, resumed.State().Stage)
}

func TestSubscribersSeeTransitions(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	m := h.start(t, bench)

	var mu sync.Mutex
	var stages []Stage
	m.Subscribe(func(v View) {
		mu.Lock()
		stages = append(stages, v.Stage)
		mu.Unlock()
	})

	_, err := m.Next(ctx)
	require.NoError(t, err)
	_, err = m.Repeat(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Stage{StageWarmup, StageExercise, StageRest}, stages, "latest view replayed on subscribe")
}

func TestWriteSequenceStopsAtFirstFailure(t *testing.T) {
	w := newRecordingWriter()
	w.failAt = "exercise:plank"
	seq := WriteSequence{Sessions: w, Records: w, Stats: w, Log: discardLogger()}

	r := Result{
		UserID:    1,
		SessionID: uuid.New(),
		Exercises: []ExerciseResult{
			{Exercise: models.SessionExercise{ExerciseID: "bench", Order: 0}, Sets: []models.CompletedSet{{SetNumber: 1, Weight: models.Float(50), Reps: models.Int(5)}}},
			{Exercise: models.SessionExercise{ExerciseID: "plank", Order: 1}},
		},
	}
	recs, err := seq.Finalize(context.Background(), r)
	require.Error(t, err)
	assert.Nil(t, recs)
	assert.Equal(t, []string{"session", "exercise:bench", "exercise:plank"}, w.Calls())
}

func TestResultAggregates(t *testing.T) {
	r := Result{Exercises: []ExerciseResult{
		{Exercise: models.SessionExercise{ExerciseID: "bench", Order: 0}, Sets: []models.CompletedSet{
			{SetNumber: 1, Weight: models.Float(50), Reps: models.Int(5)},
			{SetNumber: 2, Weight: models.Float(60), Reps: models.Int(5)},
		}},
		{Exercise: models.SessionExercise{ExerciseID: "plank", Order: 1}, Sets: []models.CompletedSet{{SetNumber: 1, Duration: models.Int(60)}}},
		{Exercise: models.SessionExercise{ExerciseID: "bench", Order: 2}, Sets: []models.CompletedSet{
			{SetNumber: 1, Weight: models.Float(40), Reps: models.Int(10)},
		}},
	}}
	assert.Equal(t, 4, r.SetCount())
	assert.Equal(t, 950.0, r.Volume())
	by := r.SetsByExercise()
	assert.Len(t, by["bench"], 3)
	assert.Len(t, by["plank"], 1)
}

func TestStartReplacesUnreadableSnapshot(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	tests := []struct {
		name     string
		pointer  string
		snapshot string
	}{
		{"corrupt payload", id.String(), "{not json"},
		{"dangling pointer", id.String(), ""},
		{"garbage pointer", "nope", ""},
		{"other user's snapshot", id.String(), fmt.Sprintf(`{"version":1,"user_id":2,"state":{"session_id":%q,"stage":"warmup","current_set_number":1}}`, id)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			require.NoError(t, h.store.Set(ctx, CurrentKey(1), []byte(tt.pointer)))
			if tt.snapshot != "" {
				require.NoError(t, h.store.Set(ctx, SnapshotKey(id), []byte(tt.snapshot)))
			}

			m, err := Start(ctx, 1, Entries(plank), false, h.cfg, h.deps)
			require.NoError(t, err, "an unreadable snapshot does not block a new session")

			ptr, ok, err := h.store.Get(ctx, CurrentKey(1))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, m.ID().String(), string(ptr))
			assert.ElementsMatch(t, []string{CurrentKey(1), SnapshotKey(m.ID())}, h.store.Keys())
		})
	}
}

// ctxFinalizer records the state of the context it was handed.
type ctxFinalizer struct {
	err         error
	hasDeadline bool
}

func (f *ctxFinalizer) Finalize(ctx context.Context, _ Result) ([]models.NewRecord, error) {
	f.err = ctx.Err()
	_, f.hasDeadline = ctx.Deadline()
	return nil, ctx.Err()
}

func TestFinishSurvivesCancelledRequest(t *testing.T) {
	h := newHarness()
	fin := &ctxFinalizer{}
	h.deps.Finalizer = fin
	m := h.start(t, bench)

	_, err := m.Next(context.Background())
	require.NoError(t, err)
	_, err = m.Advance(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := m.Finish(ctx)
	require.NoError(t, err)

	assert.NoError(t, fin.err, "finalizer must not see the caller's cancellation")
	assert.True(t, fin.hasDeadline, "finalize is still bounded")
	assert.Empty(t, summary.FinalizeErrors)
	assert.Empty(t, h.store.Keys())
}

func TestStaleViewIsNotDelivered(t *testing.T) {
	h := newHarness()
	m := h.start(t, bench)

	var got []int
	m.Subscribe(func(v View) { got = append(got, v.SetNumber) })
	got = nil

	m.mu.Lock()
	m.state.SetNumber = 2
	older, olderSeq := m.stamp()
	m.state.SetNumber = 3
	newer, newerSeq := m.stamp()
	m.mu.Unlock()

	m.publish(newerSeq, newer)
	m.publish(olderSeq, older)
	assert.Equal(t, []int{3}, got)

	var replayed View
	m.Subscribe(func(v View) { replayed = v })
	assert.Equal(t, 3, replayed.SetNumber, "replay holds the newest view")
}
