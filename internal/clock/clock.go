// Package clock abstracts time so deferred commands and status polling can be
// driven deterministically in tests.
package clock

import "time"

// Clock is the subset of the time package used by the coordinator.
//
// Production code uses Real(); tests use NewFake() and advance time by hand.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f in its own goroutine (real) or synchronously during
	// Advance (fake) once d has elapsed. If d <= 0 the real clock fires
	// immediately and the fake clock calls f before returning.
	AfterFunc(d time.Duration, f func()) Timer

	// NewTicker delivers ticks on the returned Ticker's C every d.
	// Panics if d <= 0, like time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from firing. Returns false if it already fired
	// or was already stopped.
	Stop() bool
}

// Ticker delivers periodic ticks. C has capacity 1; ticks are dropped when
// the reader falls behind.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns off the ticker. C is not closed.
func (t *Ticker) Stop() { t.stop() }

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stop: t.Stop}
}
