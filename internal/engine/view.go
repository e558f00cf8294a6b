package engine

import (
	"github.com/itaame/MCC-COMMS/internal/pool"
	"github.com/itaame/MCC-COMMS/types"
)

// MergeCounts overwrites cached occupancy for the channels in counts.
//
// Names outside the catalog are ignored. Channels absent from counts keep
// their previous value.
//
// Returns:
//   - int: Number of catalog channels updated
func (e *Engine) MergeCounts(counts map[string]int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for name, c := range counts {
		if _, ok := e.catalog[name]; !ok {
			continue
		}
		e.counts[name] = c
		n++
	}

	return n
}

// View returns a consistent snapshot of every channel and the delay policy.
func (e *Engine) View() types.View {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := types.View{
		Order:    make([]string, len(e.order)),
		Channels: make(map[string]types.ChannelView, len(e.order)),
		Delay:    e.delay,
	}
	copy(v.Order, e.order)
	for _, name := range e.order {
		v.Channels[name] = types.ChannelView{State: e.states[name].State, Count: e.counts[name]}
	}

	return v
}

// States returns every channel's state including its worker.
func (e *Engine) States() map[string]types.ChannelState {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]types.ChannelState, len(e.states))
	for k, v := range e.states {
		out[k] = v
	}

	return out
}

// Workers returns the pool bookkeeping in roster order.
func (e *Engine) Workers() []pool.Worker {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pool.Snapshot()
}

// Channels returns the catalog in display order.
func (e *Engine) Channels() []types.Channel {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]types.Channel, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.catalog[name])
	}

	return out
}

// Channel returns one catalog entry.
func (e *Engine) Channel(name string) (types.Channel, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, ok := e.catalog[name]

	return ch, ok
}
