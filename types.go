package comms

import "github.com/itaame/MCC-COMMS/types"

// Re-export types from the types subpackage.
//
// Internal packages depend on `types` rather than on the root package, which
// keeps the import graph acyclic while still letting callers write
// comms.State, comms.Logger and so on.
type (
	State        = types.State
	Channel      = types.Channel
	Bot          = types.Bot
	ChannelState = types.ChannelState
	ChannelView  = types.ChannelView
	View         = types.View
	DelayPolicy  = types.DelayPolicy
	DelayMode    = types.DelayMode
	Result       = types.Result
	ChannelEvent = types.ChannelEvent

	RequestOutcome = types.RequestOutcome
)

// Re-export interfaces from the types subpackage.
type (
	ChannelSource    = types.ChannelSource
	BotClient        = types.BotClient
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
	Hooks            = types.Hooks
)

// Re-export channel state constants.
const (
	StateOff       = types.StateOff
	StateListening = types.StateListening
	StateTalking   = types.StateTalking
)

// Re-export request outcomes.
const (
	OutcomeApplied   = types.OutcomeApplied
	OutcomeUnchanged = types.OutcomeUnchanged
	OutcomeDropped   = types.OutcomeDropped
	OutcomeRejected  = types.OutcomeRejected
)

// Re-export delay modes.
const (
	DelayModeLocal  = types.DelayModeLocal
	DelayModeWorker = types.DelayModeWorker
)
