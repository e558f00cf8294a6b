package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a deterministic Clock. Time moves only when Advance is called.
//
// AfterFunc callbacks run synchronously inside Advance in deadline order,
// so a test that advances past a deadline observes the callback's effects
// as soon as Advance returns. Do not call Advance from inside a callback.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
	changed *sync.Cond
}

type waiter struct {
	deadline time.Time
	callback func()
	ticks    chan time.Time
	interval time.Duration
	stopped  bool
	fired    bool
}

// NewFake returns a fake clock set to start.
func NewFake(start time.Time) *Fake {
	f := &Fake{now: start}
	f.changed = sync.NewCond(&f.mu)

	return f
}

// Now returns the fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

// AfterFunc registers f to run when the clock passes now+d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	if d <= 0 {
		f.mu.Unlock()
		fn()

		return &fakeTimer{clock: f, w: &waiter{fired: true}}
	}

	w := &waiter{deadline: f.now.Add(d), callback: fn}
	f.waiters = append(f.waiters, w)
	f.changed.Broadcast()
	f.mu.Unlock()

	return &fakeTimer{clock: f, w: w}
}

// NewTicker returns a ticker that fires on every interval crossed by Advance.
func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	w := &waiter{deadline: f.now.Add(d), ticks: ch, interval: d}
	f.waiters = append(f.waiters, w)
	f.changed.Broadcast()

	return &Ticker{C: ch, stop: func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.stopped = true
	}}
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline falls within the new time.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	target := f.now
	f.mu.Unlock()

	for {
		due := f.collect(target)
		if len(due) == 0 {
			return
		}

		for _, w := range due {
			if w.callback != nil {
				w.callback()
				continue
			}
			select {
			case w.ticks <- target:
			default:
			}
		}
	}
}

// collect removes expired waiters, reschedules tickers, and returns the
// waiters to fire in deadline order.
func (f *Fake) collect(target time.Time) []*waiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due, remaining []*waiter
	for _, w := range f.waiters {
		if w.stopped {
			continue
		}
		if w.deadline.After(target) {
			remaining = append(remaining, w)
			continue
		}
		due = append(due, w)
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})

	for _, w := range due {
		if w.interval > 0 {
			w.deadline = w.deadline.Add(w.interval)
			remaining = append(remaining, w)
		} else {
			w.fired = true
		}
	}
	f.waiters = remaining

	return due
}

// Pending returns the number of registered timers and tickers that have not
// fired or been stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pendingLocked()
}

// WaitForTimers blocks until at least n timers or tickers are pending. It
// closes the race between a goroutine registering a ticker and the test
// advancing the clock.
func (f *Fake) WaitForTimers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for f.pendingLocked() < n {
		f.changed.Wait()
	}
}

func (f *Fake) pendingLocked() int {
	n := 0
	for _, w := range f.waiters {
		if !w.stopped && !w.fired {
			n++
		}
	}

	return n
}

type fakeTimer struct {
	clock *Fake
	w     *waiter
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.w.stopped || t.w.fired {
		return false
	}
	t.w.stopped = true

	return true
}
