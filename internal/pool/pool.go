// Package pool tracks the fixed roster of speaker bots and which channel each
// one currently represents.
package pool

import (
	"fmt"
	"time"

	"github.com/itaame/MCC-COMMS/internal/clock"
	"github.com/itaame/MCC-COMMS/types"
)

// Worker is a snapshot of one bot's bookkeeping.
type Worker struct {
	ID           string
	Endpoint     string
	Assignment   string // channel name, "" when idle
	LastReleased time.Time
}

// Idle reports whether the worker has no assignment.
func (w Worker) Idle() bool {
	return w.Assignment == ""
}

// Pool holds the bot roster in configuration order.
//
// Pool is not safe for concurrent use. The assignment engine owns it and
// calls every method under its own lock.
type Pool struct {
	workers []*Worker
	index   map[string]int
	clock   clock.Clock
}

// New builds a pool from the configured roster.
//
// The roster is fixed for the lifetime of the process. A malformed roster is
// the one startup error the coordinator treats as fatal.
//
// Parameters:
//   - roster: Bots in configuration order (order breaks LRU ties)
//   - clk: Clock used to stamp releases
//
// Returns:
//   - *Pool: Pool with every bot idle
//   - error: ErrEmptyRoster, ErrInvalidBot or ErrDuplicateBot
func New(roster []types.Bot, clk clock.Clock) (*Pool, error) {
	if len(roster) == 0 {
		return nil, types.ErrEmptyRoster
	}

	p := &Pool{
		workers: make([]*Worker, 0, len(roster)),
		index:   make(map[string]int, len(roster)),
		clock:   clk,
	}
	for i, b := range roster {
		if b.Name == "" || b.Endpoint == "" {
			return nil, fmt.Errorf("%w: entry %d (name=%q endpoint=%q)", types.ErrInvalidBot, i, b.Name, b.Endpoint)
		}
		if _, dup := p.index[b.Name]; dup {
			return nil, fmt.Errorf("%w: %s", types.ErrDuplicateBot, b.Name)
		}
		p.index[b.Name] = len(p.workers)
		p.workers = append(p.workers, &Worker{ID: b.Name, Endpoint: b.Endpoint})
	}

	return p, nil
}

// AcquireIdle picks the idle worker released longest ago.
//
// Ties (including workers never released) go to the earliest roster entry.
// The worker is not marked busy; call Assign to bind it.
//
// Returns:
//   - string: Worker ID
//   - bool: false if every worker is assigned. Callers drop the request;
//     there is no queueing and no retry.
func (p *Pool) AcquireIdle() (string, bool) {
	var best *Worker
	for _, w := range p.workers {
		if !w.Idle() {
			continue
		}
		if best == nil || w.LastReleased.Before(best.LastReleased) {
			best = w
		}
	}
	if best == nil {
		return "", false
	}

	return best.ID, true
}

// Assign marks a worker as serving channel. No capability checks are done.
func (p *Pool) Assign(id, channel string) {
	if w := p.lookup(id); w != nil {
		w.Assignment = channel
	}
}

// Release clears a worker's assignment and stamps its release time.
func (p *Pool) Release(id string) {
	if w := p.lookup(id); w != nil {
		w.Assignment = ""
		w.LastReleased = p.clock.Now()
	}
}

// Get returns a copy of one worker's bookkeeping.
func (p *Pool) Get(id string) (Worker, bool) {
	w := p.lookup(id)
	if w == nil {
		return Worker{}, false
	}

	return *w, true
}

// Endpoint returns a worker's control API base URL, or "" if unknown.
func (p *Pool) Endpoint(id string) string {
	if w := p.lookup(id); w != nil {
		return w.Endpoint
	}

	return ""
}

// Snapshot returns copies of every worker in roster order.
func (p *Pool) Snapshot() []Worker {
	out := make([]Worker, len(p.workers))
	for i, w := range p.workers {
		out[i] = *w
	}

	return out
}

// IdleCount returns the number of unassigned workers.
func (p *Pool) IdleCount() int {
	n := 0
	for _, w := range p.workers {
		if w.Idle() {
			n++
		}
	}

	return n
}

// Len returns the roster size.
func (p *Pool) Len() int {
	return len(p.workers)
}

func (p *Pool) lookup(id string) *Worker {
	i, ok := p.index[id]
	if !ok {
		return nil
	}

	return p.workers[i]
}
