package session

import (
	"context"
	"sync"

	"github.com/meltforce/liftcoach/internal/events"
)

// Change is a state change of one user's session.
type Change struct {
	UserID int
	View   View
}

type liveSession struct {
	m           *Machine
	runner      *Runner
	unsubscribe func()
}

// Manager keeps at most one live Machine per user, resuming from the
// snapshot store on first access, and ticks each one with a Runner.
type Manager struct {
	cfg  Config
	deps Deps

	mu      sync.Mutex
	live    map[int]*liveSession
	changes *events.Feed[Change]
}

// NewManager creates a Manager. deps.Store must be set.
func NewManager(cfg Config, deps Deps) *Manager {
	return &Manager{
		cfg:     cfg.withDefaults(),
		deps:    deps.withDefaults(),
		live:    make(map[int]*liveSession),
		changes: events.NewFeed[Change](false),
	}
}

// Subscribe registers fn for state changes of every managed session.
func (mg *Manager) Subscribe(fn func(Change)) func() {
	return mg.changes.Subscribe(fn)
}

// Start begins a session for userID; see Start for the confirm semantics.
func (mg *Manager) Start(ctx context.Context, userID int, entries []Entry, confirm bool) (*Machine, error) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	if ls, ok := mg.live[userID]; ok && !ls.m.State().Stage.Terminal() && !confirm {
		return nil, ErrSessionExists
	}

	// stop the old machine first so its ticker cannot rewrite the pointer
	if ls, ok := mg.live[userID]; ok {
		mg.drop(userID, ls)
		ls.m.abandon()
	}
	m, err := Start(ctx, userID, entries, confirm, mg.cfg, mg.deps)
	if err != nil {
		return nil, err
	}
	mg.track(userID, m)
	return m, nil
}

// Current returns the user's session, resuming it from the store if no
// machine is live. It returns ErrNoSession when there is none.
func (mg *Manager) Current(ctx context.Context, userID int) (*Machine, error) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	if ls, ok := mg.live[userID]; ok {
		if !ls.m.State().Stage.Terminal() {
			return ls.m, nil
		}
		mg.drop(userID, ls)
	}

	m, err := Resume(ctx, userID, mg.cfg, mg.deps)
	if err != nil {
		return nil, err
	}
	mg.track(userID, m)
	return m, nil
}

// Forget stops ticking the user's machine and releases it. The snapshot
// stays in the store.
func (mg *Manager) Forget(userID int) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	if ls, ok := mg.live[userID]; ok {
		mg.drop(userID, ls)
	}
}

// Close stops every runner.
func (mg *Manager) Close() {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	for id, ls := range mg.live {
		mg.drop(id, ls)
	}
}

// Live returns the number of machines in memory.
func (mg *Manager) Live() int {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	return len(mg.live)
}

func (mg *Manager) track(userID int, m *Machine) {
	ls := &liveSession{m: m, runner: NewRunner(m, mg.cfg.TickInterval, mg.deps.Log)}
	ls.unsubscribe = m.Subscribe(func(v View) {
		mg.changes.Publish(Change{UserID: userID, View: v})
	})
	ls.runner.Start()
	mg.live[userID] = ls
}

func (mg *Manager) drop(userID int, ls *liveSession) {
	ls.runner.Stop()
	ls.unsubscribe()
	delete(mg.live, userID)
}
