package comms

import "sync"

// eventBuffer is the per-subscriber queue depth. A subscriber that falls
// further behind misses events; it can resync from View.
const eventBuffer = 64

type eventSubscriber struct {
	ch     chan ChannelEvent
	mu     sync.Mutex
	closed bool
}

// trySend queues ev without blocking. It reports false when the buffer is full.
func (s *eventSubscriber) trySend(ev ChannelEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}

	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *eventSubscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Subscribe returns a channel of loop transitions and a function that
// cancels the subscription.
//
// Events arrive in the order the engine produced them. Delivery never
// blocks the coordinator: a subscriber whose buffer is full misses events.
// The channel is closed by the cancel function or by Stop.
//
// Returns:
//   - <-chan ChannelEvent: Event stream
//   - func(): Unsubscribe; safe to call more than once
//
// Example:
//
//	events, cancel := coord.Subscribe()
//	defer cancel()
//	for ev := range events {
//	    log.Printf("%s %s -> %s", ev.Channel, ev.From.State, ev.To.State)
//	}
func (c *Coordinator) Subscribe() (<-chan ChannelEvent, func()) {
	id := c.nextSubID.Add(1)
	sub := &eventSubscriber{ch: make(chan ChannelEvent, eventBuffer)}

	// Stop flips the state under c.mu, so a subscriber stored here is
	// always seen by closeSubscribers.
	c.mu.Lock()
	if c.state.Load() == stateStopped {
		c.mu.Unlock()
		sub.close()

		return sub.ch, func() {}
	}
	c.subscribers.Store(id, sub)
	c.mu.Unlock()

	unsubscribe := func() {
		if s, ok := c.subscribers.LoadAndDelete(id); ok {
			s.close()
		}
	}

	return sub.ch, unsubscribe
}

func (c *Coordinator) closeSubscribers() {
	c.subscribers.Range(func(id uint64, sub *eventSubscriber) bool {
		c.subscribers.Delete(id)
		sub.close()

		return true
	})
}
