// Package events provides a typed in-process fan-out used to push session
// state changes to live subscribers.
package events

import "sync"

// Feed delivers every published value to all current subscribers. When
// replay is enabled a new subscriber immediately receives the last value.
type Feed[T any] struct {
	mu     sync.RWMutex
	subs   map[uint64]func(T)
	nextID uint64
	replay bool
	last   *T
}

// NewFeed creates a Feed. With replay set, Subscribe sends the most recent
// published value to the new subscriber.
func NewFeed[T any](replay bool) *Feed[T] {
	return &Feed[T]{subs: make(map[uint64]func(T)), replay: replay}
}

// Subscribe registers fn and returns a function that removes it.
func (f *Feed[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		panic("events: nil subscriber")
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	var last T
	send := f.replay && f.last != nil
	if send {
		last = *f.last
	}
	f.mu.Unlock()

	// outside the lock so fn may call back into the feed
	if send {
		fn(last)
	}

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Publish calls every subscriber with v. Subscribers run on the caller's
// goroutine, after the feed lock is released.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	if f.replay {
		f.last = &v
	}
	subs := make([]func(T), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Len returns the number of subscribers.
func (f *Feed[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
