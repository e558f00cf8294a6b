package types

import "context"

// Hooks defines callbacks for coordinator events.
//
// All hooks are optional and called asynchronously in background goroutines
// so they never run under the engine lock or delay a request. Hooks receive
// the coordinator's lifecycle context which is cancelled during shutdown.
//
// IMPORTANT: Hook execution behavior:
//   - Hooks run concurrently and may not complete before Stop() returns
//   - Hook errors are logged but never change coordinator state
//
// Example:
//
//	hooks := &comms.Hooks{
//	    OnStateChanged: func(ctx context.Context, ev comms.ChannelEvent) error {
//	        log.Printf("%s: %s -> %s", ev.Channel, ev.From.State, ev.To.State)
//	        return nil
//	    },
//	}
type Hooks struct {
	// OnStateChanged is called for every channel transition, including
	// demotions caused by another channel starting to talk.
	OnStateChanged func(ctx context.Context, ev ChannelEvent) error

	// OnRequestDropped is called when a request finds no idle bot.
	OnRequestDropped func(ctx context.Context, channel string, desired State) error

	// OnDelayChanged is called after the delay policy is toggled.
	OnDelayChanged func(ctx context.Context, policy DelayPolicy) error
}
