// Package session runs one interactive training session: warm-up countdown,
// sets and rests per exercise, mid-session additions and the finishing
// write-out. A Machine persists itself after every mutation so a restarted
// process can resume it exactly.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/liftcoach/internal/apperr"
	"github.com/meltforce/liftcoach/internal/events"
	"github.com/meltforce/liftcoach/internal/models"
	"github.com/meltforce/liftcoach/internal/snapshot"
	"github.com/meltforce/liftcoach/internal/suggest"
)

var (
	ErrSessionExists     = errors.New("a session is already in progress")
	ErrNoSession         = errors.New("no session in progress")
	ErrInvalidTransition = errors.New("invalid transition")
)

// DefaultWarmupPool is offered when no pool is configured.
var DefaultWarmupPool = []string{
	"Jumping jacks",
	"Rowing machine",
	"Jump rope",
	"Stationary bike",
	"Arm circles and leg swings",
}

// RecordLookup fetches a personal record. A nil record means none exists.
type RecordLookup interface {
	GetRecord(ctx context.Context, userID int, exerciseID string) (*models.PersonalRecord, error)
}

// Config holds the tunables of a session.
type Config struct {
	WarmupSeconds int
	RestSeconds   int
	WarmupPool    []string
	Suggest       suggest.Params
	TickInterval  time.Duration
}

// DefaultConfig returns a 599s warm-up, 119s rests and default suggestions.
func DefaultConfig() Config {
	return Config{
		WarmupSeconds: 599,
		RestSeconds:   119,
		WarmupPool:    DefaultWarmupPool,
		Suggest:       suggest.DefaultParams(),
		TickInterval:  time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WarmupSeconds <= 0 {
		c.WarmupSeconds = d.WarmupSeconds
	}
	if c.RestSeconds <= 0 {
		c.RestSeconds = d.RestSeconds
	}
	if len(c.WarmupPool) == 0 {
		c.WarmupPool = d.WarmupPool
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	return c
}

// Deps are the collaborators of a Machine. Store is required; the rest
// fall back to no records, no finalizer, the wall clock, a random seed and
// the default logger.
type Deps struct {
	Store     snapshot.Store
	Records   RecordLookup
	Finalizer Finalizer
	Clock     Clock
	Rand      *rand.Rand
	Log       *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = wallClock{}
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return d
}

// Machine is one user's session. All methods are safe for concurrent use;
// they are serialized by an internal mutex.
type Machine struct {
	mu     sync.Mutex
	cfg    Config
	deps   Deps
	log    *slog.Logger
	engine suggest.Engine

	userID      int
	state       State
	exercises   []models.SessionExercise
	descriptors map[string]models.ExerciseDescriptor
	warmupPick  string
	inputs      models.SetValues
	suggestion  *models.Suggestion
	summary     *Summary
	records     map[string]*models.PersonalRecord

	warmup, rest, elapsed counter

	dirty     bool
	lastTuple Tuple
	changes   *events.Feed[View]

	// seq stamps views under mu; pubMu orders their delivery.
	seq       uint64
	pubMu     sync.Mutex
	published uint64
}

func newMachine(userID int, cfg Config, deps Deps) *Machine {
	return &Machine{
		cfg:         cfg,
		deps:        deps,
		log:         deps.Log.With("user_id", userID),
		engine:      suggest.New(cfg.Suggest),
		userID:      userID,
		descriptors: make(map[string]models.ExerciseDescriptor),
		records:     make(map[string]*models.PersonalRecord),
		changes:     events.NewFeed[View](true),
	}
}

// Start begins a new session for userID. If the user already has a current
// session, Start fails with ErrSessionExists unless confirm is set, in which
// case the old snapshot is discarded without being written anywhere.
func Start(ctx context.Context, userID int, entries []Entry, confirm bool, cfg Config, deps Deps) (*Machine, error) {
	if deps.Store == nil {
		return nil, errors.New("session: no snapshot store")
	}
	cfg = cfg.withDefaults()
	deps = deps.withDefaults()

	for _, e := range entries {
		if err := validateDescriptor(e.Exercise); err != nil {
			return nil, err
		}
	}

	ptr, ok, err := deps.Store.Get(ctx, CurrentKey(userID))
	if err != nil {
		return nil, fmt.Errorf("checking current session: %w", err)
	}
	if ok && !confirm {
		// an unreadable snapshot is removed and does not block a new session
		_, _, err := loadCurrent(ctx, userID, deps)
		switch {
		case err == nil:
			return nil, ErrSessionExists
		case errors.Is(err, ErrNoSession):
			ok = false
		default:
			return nil, err
		}
	}
	if ok {
		if old, err := uuid.ParseBytes(ptr); err == nil {
			if err := deps.Store.Remove(ctx, SnapshotKey(old)); err != nil {
				return nil, fmt.Errorf("discarding previous session: %w", err)
			}
			deps.Log.Info("discarded previous session", "user_id", userID, "session_id", old)
		}
	}

	m := newMachine(userID, cfg, deps)
	now := deps.Clock.Now()
	m.state = State{
		SessionID:     uuid.New(),
		Stage:         StageWarmup,
		SetNumber:     1,
		Active:        true,
		CompletedSets: make(map[string][]models.CompletedSet),
		StartedAt:     now,
	}
	for i, e := range entries {
		m.exercises = append(m.exercises, models.SessionExercise{
			ExerciseID:    e.Exercise.ID,
			SourceEntryID: e.SourceEntryID,
			Order:         i,
		})
		m.descriptors[e.Exercise.ID] = e.Exercise
	}
	if len(cfg.WarmupPool) > 0 {
		m.warmupPick = cfg.WarmupPool[deps.Rand.IntN(len(cfg.WarmupPool))]
	}

	m.mu.Lock()
	m.schedule(now)
	m.persist(ctx, now)
	v, seq := m.stamp()
	m.mu.Unlock()
	m.publish(seq, v)

	m.log.Info("session started", "session_id", m.state.SessionID, "exercises", len(m.exercises))
	return m, nil
}

// Resume loads the user's current session. A missing or unreadable snapshot
// yields ErrNoSession; unreadable ones are logged and removed.
func Resume(ctx context.Context, userID int, cfg Config, deps Deps) (*Machine, error) {
	if deps.Store == nil {
		return nil, errors.New("session: no snapshot store")
	}
	cfg = cfg.withDefaults()
	deps = deps.withDefaults()
	snap, id, err := loadCurrent(ctx, userID, deps)
	if err != nil {
		return nil, err
	}

	if snap.Timers.WarmupSeconds > 0 {
		cfg.WarmupSeconds = snap.Timers.WarmupSeconds
	}
	if snap.Timers.RestSeconds > 0 {
		cfg.RestSeconds = snap.Timers.RestSeconds
	}

	m := newMachine(userID, cfg, deps)
	m.state = snap.State
	m.exercises = snap.Exercises
	for k, d := range snap.Descriptors {
		m.descriptors[k] = d
	}
	m.inputs = snap.Inputs
	m.suggestion = snap.Suggestion
	m.warmupPick = snap.WarmupPick
	m.warmup.restore(time.Duration(snap.Timers.WarmupMillis) * time.Millisecond)
	m.rest.restore(time.Duration(snap.Timers.RestMillis) * time.Millisecond)
	m.elapsed.restore(time.Duration(snap.Timers.ElapsedMillis) * time.Millisecond)

	now := deps.Clock.Now()
	m.mu.Lock()
	m.schedule(now)
	m.fillTimers(now)
	m.lastTuple = m.state.Tuple()
	v, seq := m.stamp()
	m.mu.Unlock()
	m.publish(seq, v)

	m.log.Info("session resumed", "session_id", id, "stage", m.state.Stage)
	return m, nil
}

// loadCurrent reads and checks the snapshot the user's current pointer names.
// A dangling pointer or an unreadable snapshot is logged, removed and reported
// as ErrNoSession.
func loadCurrent(ctx context.Context, userID int, deps Deps) (Snapshot, uuid.UUID, error) {
	store := deps.Store
	ptr, ok, err := store.Get(ctx, CurrentKey(userID))
	if err != nil {
		return Snapshot{}, uuid.Nil, fmt.Errorf("reading current session: %w", err)
	}
	if !ok {
		return Snapshot{}, uuid.Nil, ErrNoSession
	}

	discard := func(reason error, keys ...string) (Snapshot, uuid.UUID, error) {
		deps.Log.Warn("discarding session snapshot", "user_id", userID, "error", reason)
		for _, k := range keys {
			if err := store.Remove(ctx, k); err != nil {
				deps.Log.Error("removing session snapshot", "key", k, "error", err)
			}
		}
		return Snapshot{}, uuid.Nil, ErrNoSession
	}

	id, err := uuid.ParseBytes(ptr)
	if err != nil {
		return discard(apperr.Invalid("current session pointer", "%v", err), CurrentKey(userID))
	}
	payload, ok, err := store.Get(ctx, SnapshotKey(id))
	if err != nil {
		return Snapshot{}, uuid.Nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	if !ok {
		return discard(apperr.Invalid("current session pointer", "session %s has no snapshot", id), CurrentKey(userID))
	}
	snap, err := decodeSnapshot(payload)
	if err == nil && (snap.UserID != userID || snap.State.SessionID != id) {
		err = apperr.Invalid("session snapshot", "belongs to user %d session %s", snap.UserID, snap.State.SessionID)
	}
	if err != nil {
		return discard(err, SnapshotKey(id), CurrentKey(userID))
	}
	return snap, id, nil
}

func validateDescriptor(d models.ExerciseDescriptor) error {
	if d.ID == "" {
		return apperr.Invalid("exercise", "missing id")
	}
	if !d.Type.Valid() {
		return apperr.Invalid("exercise", "%s has unknown type %q", d.ID, d.Type)
	}
	return nil
}

// Subscribe registers fn for every state change. The latest view is
// replayed to new subscribers. Views arrive in the order they were taken;
// fn must not drive a transition on the same machine.
func (m *Machine) Subscribe(fn func(View)) func() {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	return m.changes.Subscribe(fn)
}

// stamp takes the current view and numbers it. Callers hold mu.
func (m *Machine) stamp() (View, uint64) {
	m.seq++
	return m.view(), m.seq
}

// publish delivers v unless a later view was already delivered.
func (m *Machine) publish(seq uint64, v View) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	if seq <= m.published {
		return
	}
	m.published = seq
	m.changes.Publish(v)
}

// ID returns the session id.
func (m *Machine) ID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SessionID
}

// Shuffle swaps the warm-up exercise for a different one from the pool.
func (m *Machine) Shuffle(ctx context.Context) (View, error) {
	return m.apply(ctx, "shuffle", []Stage{StageWarmup}, func(time.Time) error {
		var others []string
		for _, name := range m.cfg.WarmupPool {
			if name != m.warmupPick {
				others = append(others, name)
			}
		}
		if len(others) > 0 {
			m.warmupPick = others[m.deps.Rand.IntN(len(others))]
		}
		return nil
	})
}

// Next ends the warm-up and starts the first exercise.
func (m *Machine) Next(ctx context.Context) (View, error) {
	return m.apply(ctx, "next", []Stage{StageWarmup}, func(time.Time) error {
		if len(m.exercises) == 0 {
			m.state.Stage = StageAddExercise
			return nil
		}
		m.enterExercise(ctx, 0)
		return nil
	})
}

// SetInputs stores what the user entered for the current set. Fields that
// do not apply to the exercise type are dropped.
func (m *Machine) SetInputs(ctx context.Context, v models.SetValues) (View, error) {
	return m.apply(ctx, "set_inputs", []Stage{StageExercise}, func(time.Time) error {
		m.inputs = v.ForType(m.current().Type)
		return nil
	})
}

// Repeat records the current set and rests before the next one.
func (m *Machine) Repeat(ctx context.Context) (View, error) {
	return m.apply(ctx, "repeat", []Stage{StageExercise}, func(time.Time) error {
		m.recordSet()
		m.state.SetNumber++
		m.refreshSuggestion(ctx)
		m.rest.reset()
		m.state.Stage = StageRest
		return nil
	})
}

// Advance records the current set and moves to the next exercise, or to
// the add-exercise prompt after the last one.
func (m *Machine) Advance(ctx context.Context) (View, error) {
	return m.apply(ctx, "advance", []Stage{StageExercise}, func(time.Time) error {
		m.recordSet()
		next := m.state.ExerciseIndex + 1
		if next < len(m.exercises) {
			m.enterExercise(ctx, next)
			return nil
		}
		m.state.Stage = StageAddExercise
		m.inputs = models.SetValues{}
		m.suggestion = nil
		return nil
	})
}

// Skip ends the rest early.
func (m *Machine) Skip(ctx context.Context) (View, error) {
	return m.apply(ctx, "skip", []Stage{StageRest}, func(time.Time) error {
		m.endRest()
		return nil
	})
}

// AddExercise appends an exercise and starts it at set 1.
func (m *Machine) AddExercise(ctx context.Context, d models.ExerciseDescriptor, sourceEntryID string) (View, error) {
	if err := validateDescriptor(d); err != nil {
		return m.State(), err
	}
	return m.apply(ctx, "add_exercise", []Stage{StageAddExercise}, func(time.Time) error {
		m.exercises = append(m.exercises, models.SessionExercise{
			ExerciseID:    d.ID,
			SourceEntryID: sourceEntryID,
			Order:         len(m.exercises),
		})
		m.descriptors[d.ID] = d
		m.enterExercise(ctx, len(m.exercises)-1)
		return nil
	})
}

// SetActive pauses or resumes every counter of the session.
func (m *Machine) SetActive(ctx context.Context, active bool) (View, error) {
	return m.apply(ctx, "set_active", []Stage{StageWarmup, StageExercise, StageRest, StageAddExercise}, func(time.Time) error {
		m.state.Active = active
		return nil
	})
}

// finalizeTimeout bounds the finalize write sequence and the snapshot removal after it.
const finalizeTimeout = 30 * time.Second

// Finish ends the session, hands the results to the finalizer and removes
// the snapshot. Finalize failures are logged and reported in the summary;
// they never fail the call.
func (m *Machine) Finish(ctx context.Context) (Summary, error) {
	// the write sequence outlives a caller that hangs up mid-request
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	var summary Summary
	_, err := m.apply(ctx, "finish", []Stage{StageAddExercise}, func(now time.Time) error {
		m.state.Stage = StageFinished
		m.state.Active = false
		m.schedule(now)
		m.fillTimers(now)

		result := m.result(now)
		summary = result.summary()
		if m.deps.Finalizer != nil {
			recs, err := m.deps.Finalizer.Finalize(ctx, result)
			if err != nil {
				m.log.Error("finalizing session", "session_id", result.SessionID, "error", err)
				summary.FinalizeErrors = append(summary.FinalizeErrors, err.Error())
			}
			summary.NewRecords = append(summary.NewRecords, recs...)
		}
		m.summary = &summary
		m.log.Info("session finished", "session_id", result.SessionID,
			"sets", summary.TotalSets, "volume", summary.TotalVolume, "new_records", len(summary.NewRecords))
		return nil
	})
	return summary, err
}

// Cancel discards the session. Nothing is written anywhere but the
// snapshot store, where the snapshot is removed.
func (m *Machine) Cancel(ctx context.Context) (View, error) {
	return m.apply(ctx, "cancel", []Stage{StageWarmup, StageExercise, StageRest, StageAddExercise}, func(time.Time) error {
		m.state.Stage = StageDiscarded
		m.state.Active = false
		m.log.Info("session cancelled", "session_id", m.state.SessionID)
		return nil
	})
}

// Tick recomputes the timers, ends an expired rest and persists when the
// visible timer values changed or an earlier write failed.
func (m *Machine) Tick(ctx context.Context) View {
	m.mu.Lock()
	now := m.deps.Clock.Now()
	changed := m.expireRest(now)
	m.schedule(now)
	m.fillTimers(now)
	moved := m.state.Tuple() != m.lastTuple
	if !m.state.Stage.Terminal() && (changed || moved || m.dirty) {
		m.persist(ctx, now)
	}
	v, seq := m.stamp()
	m.mu.Unlock()

	if changed || moved {
		m.publish(seq, v)
	}
	return v
}

// State returns the current view without changing anything. An expired
// rest still shows as rest until the next Tick.
func (m *Machine) State() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.deps.Clock.Now()
	m.fillTimers(now)
	return m.view()
}

// abandon makes the machine terminal without touching the store. Used when
// a confirmed Start replaces it.
func (m *Machine) abandon() {
	m.mu.Lock()
	now := m.deps.Clock.Now()
	if !m.state.Stage.Terminal() {
		m.state.Stage = StageDiscarded
		m.state.Active = false
		m.schedule(now)
	}
	v, seq := m.stamp()
	m.mu.Unlock()
	m.publish(seq, v)
}

// apply runs one transition under the lock, persists, and notifies
// subscribers after the lock is released. A view overtaken by a later one
// is not delivered.
func (m *Machine) apply(ctx context.Context, op string, allowed []Stage, fn func(now time.Time) error) (View, error) {
	m.mu.Lock()
	now := m.deps.Clock.Now()
	expired := m.expireRest(now)

	if !slices.Contains(allowed, m.state.Stage) {
		stage := m.state.Stage
		if expired {
			m.schedule(now)
			m.persist(ctx, now)
		}
		m.fillTimers(now)
		v, seq := m.stamp()
		m.mu.Unlock()
		if expired {
			m.publish(seq, v)
		}
		return v, fmt.Errorf("%w: %s during %s", ErrInvalidTransition, op, stage)
	}

	err := fn(now)
	m.schedule(now)
	m.persist(ctx, now)
	v, seq := m.stamp()
	m.mu.Unlock()

	m.publish(seq, v)
	return v, err
}

// schedule runs exactly the counters the current stage owns.
func (m *Machine) schedule(now time.Time) {
	live := m.state.Active && !m.state.Stage.Terminal()
	m.warmup.set(live && m.state.Stage == StageWarmup, now)
	m.rest.set(live && m.state.Stage == StageRest, now)
	m.elapsed.set(live, now)
}

func (m *Machine) fillTimers(now time.Time) {
	m.state.ElapsedSeconds = m.elapsed.seconds(now)
	m.state.WarmupRemaining = m.warmup.remaining(m.cfg.WarmupSeconds, now)
	m.state.RestRemaining = m.rest.remaining(m.cfg.RestSeconds, now)
}

// expireRest ends a rest whose countdown reached zero.
func (m *Machine) expireRest(now time.Time) bool {
	if m.state.Stage != StageRest || m.rest.remaining(m.cfg.RestSeconds, now) > 0 {
		return false
	}
	m.endRest()
	return true
}

func (m *Machine) endRest() {
	m.rest.reset()
	m.state.Stage = StageExercise
}

func (m *Machine) current() models.ExerciseDescriptor {
	if m.state.ExerciseIndex >= len(m.exercises) {
		return models.ExerciseDescriptor{}
	}
	return m.descriptors[m.exercises[m.state.ExerciseIndex].ExerciseID]
}

func (m *Machine) enterExercise(ctx context.Context, idx int) {
	m.state.ExerciseIndex = idx
	m.state.SetNumber = 1
	m.state.Stage = StageExercise
	m.refreshSuggestion(ctx)
}

// refreshSuggestion computes the target for the current set and pre-fills
// the inputs with it.
func (m *Machine) refreshSuggestion(ctx context.Context) {
	d := m.current()
	s := m.engine.Calculate(d.Type, m.state.SetNumber, m.record(ctx, d.ID))
	m.suggestion = &s
	m.inputs = s.Values().ForType(d.Type)
}

// record returns the cached personal record for an exercise. Lookup errors
// are logged and mean no record; they are not cached.
func (m *Machine) record(ctx context.Context, exerciseID string) *models.PersonalRecord {
	if rec, ok := m.records[exerciseID]; ok {
		return rec
	}
	if m.deps.Records == nil {
		return nil
	}
	rec, err := m.deps.Records.GetRecord(ctx, m.userID, exerciseID)
	if err != nil {
		m.log.Warn("looking up personal record", "exercise_id", exerciseID, "error", err)
		return nil
	}
	m.records[exerciseID] = rec
	return rec
}

// recordSet appends the current inputs as a completed set, unless they
// hold nothing worth recording for the exercise type.
func (m *Machine) recordSet() {
	d := m.current()
	v := m.inputs.ForType(d.Type)
	if !v.Recordable(d.Type) {
		m.log.Debug("skipping empty set", "exercise_id", d.ID, "set", m.state.SetNumber)
		return
	}
	key := ExerciseKey(m.exercises[m.state.ExerciseIndex])
	m.state.CompletedSets[key] = append(m.state.CompletedSets[key], models.CompletedSet{
		SetNumber: m.state.SetNumber,
		Weight:    v.Weight,
		Reps:      v.Reps,
		Duration:  v.Duration,
	})
}

// persist writes the snapshot, or removes it once the session is terminal.
// A failed write is logged and retried on the next mutation or tick.
func (m *Machine) persist(ctx context.Context, now time.Time) {
	m.fillTimers(now)
	m.lastTuple = m.state.Tuple()
	store := m.deps.Store

	if m.state.Stage.Terminal() {
		for _, key := range []string{SnapshotKey(m.state.SessionID), CurrentKey(m.userID)} {
			if err := store.Remove(ctx, key); err != nil {
				m.log.Error("removing session snapshot", "key", key, "error", err)
			}
		}
		m.dirty = false
		return
	}

	payload, err := encodeSnapshot(m.snapshot(now))
	if err == nil {
		err = store.Set(ctx, SnapshotKey(m.state.SessionID), payload)
	}
	if err == nil {
		err = store.Set(ctx, CurrentKey(m.userID), []byte(m.state.SessionID.String()))
	}
	if err != nil {
		m.log.Error("persisting session", "session_id", m.state.SessionID, "error", err)
		m.dirty = true
		return
	}
	m.dirty = false
}

func (m *Machine) snapshot(now time.Time) Snapshot {
	descs := make(map[string]models.ExerciseDescriptor, len(m.descriptors))
	for k, d := range m.descriptors {
		descs[k] = d
	}
	return Snapshot{
		UserID:      m.userID,
		State:       m.state.clone(),
		Exercises:   slices.Clone(m.exercises),
		Descriptors: descs,
		Inputs:      m.inputs,
		Suggestion:  m.suggestion,
		WarmupPick:  m.warmupPick,
		Timers: Timers{
			WarmupMillis:  m.warmup.elapsed(now).Milliseconds(),
			RestMillis:    m.rest.elapsed(now).Milliseconds(),
			ElapsedMillis: m.elapsed.elapsed(now).Milliseconds(),
			WarmupSeconds: m.cfg.WarmupSeconds,
			RestSeconds:   m.cfg.RestSeconds,
		},
		SavedAt: now,
	}
}

func (m *Machine) view() View {
	v := View{
		State:      m.state.clone(),
		UserID:     m.userID,
		WarmupPick: m.warmupPick,
		Exercises:  slices.Clone(m.exercises),
		Inputs:     m.inputs,
		Summary:    m.summary,
	}
	if m.suggestion != nil {
		s := *m.suggestion
		v.Suggestion = &s
	}
	switch m.state.Stage {
	case StageExercise, StageRest:
		d := m.current()
		v.Current = &d
	case stageInvalid, StageWarmup, StageAddExercise, StageFinished, StageDiscarded:
	}
	return v
}

func (m *Machine) result(now time.Time) Result {
	r := Result{
		UserID:         m.userID,
		SessionID:      m.state.SessionID,
		StartedAt:      m.state.StartedAt,
		FinishedAt:     now,
		ElapsedSeconds: m.state.ElapsedSeconds,
	}
	for _, ex := range m.exercises {
		r.Exercises = append(r.Exercises, ExerciseResult{
			Exercise:   ex,
			Descriptor: m.descriptors[ex.ExerciseID],
			Sets:       slices.Clone(m.state.CompletedSets[ExerciseKey(ex)]),
		})
	}
	return r
}
