// Package safego starts goroutines that log a panic with its stack before
// re-panicking, so background crashes show up in the structured log.
package safego

import (
	"log/slog"
	"runtime/debug"
)

// Go runs fn in a new goroutine.
func Go(log *slog.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("goroutine panic", "goroutine", name, "panic", r, "stack", string(debug.Stack()))
				panic(r)
			}
		}()
		fn()
	}()
}
