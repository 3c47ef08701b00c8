package session

import "time"

// Clock supplies the current time. The wall clock's readings carry Go's
// monotonic component, so differences between them ignore wall-clock jumps.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// counter accumulates time across running segments. Its value is always
// recomputed from the segment start, never from tick callbacks, so missed or
// late ticks cannot drift it.
type counter struct {
	base    time.Duration
	started time.Time
	running bool
}

func (c *counter) start(now time.Time) {
	if c.running {
		return
	}
	c.started = now
	c.running = true
}

func (c *counter) stop(now time.Time) {
	if !c.running {
		return
	}
	c.base += nonNegative(now.Sub(c.started))
	c.running = false
}

// set turns the counter on or off.
func (c *counter) set(on bool, now time.Time) {
	if on {
		c.start(now)
	} else {
		c.stop(now)
	}
}

// reset zeroes the counter and leaves it stopped.
func (c *counter) reset() {
	*c = counter{}
}

func (c *counter) elapsed(now time.Time) time.Duration {
	if !c.running {
		return c.base
	}
	return c.base + nonNegative(now.Sub(c.started))
}

func (c *counter) seconds(now time.Time) int {
	return int(c.elapsed(now) / time.Second)
}

// restore sets the accumulated value and leaves the counter stopped.
func (c *counter) restore(d time.Duration) {
	*c = counter{base: nonNegative(d)}
}

// remaining is a countdown of total seconds over the counter.
func (c *counter) remaining(total int, now time.Time) int {
	left := total - c.seconds(now)
	if left < 0 {
		return 0
	}
	return left
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
