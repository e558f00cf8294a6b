package types

import "time"

// ChannelView is the read-side view of one channel.
type ChannelView struct {
	State State `json:"state"`
	Count int   `json:"count"`
}

// View is a consistent snapshot of every channel plus the delay policy.
//
// Order lists channel names in catalog order; Channels is keyed by name.
type View struct {
	Order    []string               `json:"-"`
	Channels map[string]ChannelView `json:"loops"`
	Delay    DelayPolicy            `json:"-"`
}

// ChannelEvent describes a completed channel transition.
//
// Events are emitted after the engine lock is released, in the order the
// engine produced them within one request.
type ChannelEvent struct {
	Channel string       `json:"channel"`
	From    ChannelState `json:"from"`
	To      ChannelState `json:"to"`
	At      time.Time    `json:"at"`
}

// RequestOutcome classifies the effect of one engine request.
type RequestOutcome int

const (
	// OutcomeApplied means the channel changed state.
	OutcomeApplied RequestOutcome = iota

	// OutcomeUnchanged means the channel already was in the requested state
	// (e.g., Off on an Off channel). Listening and Talking requests still
	// re-send their commands to the bot.
	OutcomeUnchanged

	// OutcomeDropped means no idle bot was available. Nothing changed.
	OutcomeDropped

	// OutcomeRejected means the channel cannot reach the requested state
	// (listening disabled). Nothing changed.
	OutcomeRejected
)

// String returns the outcome name used in logs and metric labels.
func (o RequestOutcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeDropped:
		return "dropped"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result is returned by every coordinator request operation.
type Result struct {
	Channel string
	Outcome RequestOutcome

	// State is the channel state after the request.
	State ChannelState
}
