package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/meltforce/liftcoach/internal/safego"
)

// Runner ticks a Machine on a fixed interval so rests end on time and
// subscribers see the timers move. Stopping it never changes counter values.
type Runner struct {
	m        *Machine
	interval time.Duration
	log      *slog.Logger

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRunner creates a stopped Runner. An interval of zero means one second.
func NewRunner(m *Machine, interval time.Duration, log *slog.Logger) *Runner {
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{m: m, interval: interval, log: log, done: make(chan struct{})}
}

// Start launches the tick loop. It exits on Stop or when the session ends.
func (r *Runner) Start() {
	r.wg.Add(1)
	safego.Go(r.log, "session-ticker", func() {
		defer r.wg.Done()
		r.loop()
	})
}

func (r *Runner) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			if v := r.m.Tick(context.Background()); v.Stage.Terminal() {
				return
			}
		}
	}
}

// Stop halts the loop and waits for it to exit. Safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
	r.wg.Wait()
}
