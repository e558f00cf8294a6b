package types

import (
	"net/http"
	"time"
)

// CommandKind identifies a remote bot operation.
//
// Each kind maps to one endpoint on the bot control API.
type CommandKind int

const (
	// CmdJoin joins the bot to a loop. Carries the loop name.
	CmdJoin CommandKind = iota + 1

	// CmdTalk unmutes the bot's microphone.
	CmdTalk

	// CmdMute mutes the bot's microphone.
	CmdMute

	// CmdMuteAfterDelay mutes once the bot's own delay elapses.
	CmdMuteAfterDelay

	// CmdLeave disconnects the bot from its loop.
	CmdLeave

	// CmdLeaveAfterDelay leaves once the bot's own delay elapses.
	CmdLeaveAfterDelay

	// CmdDelayOn enables the bot-side delay. Carries the delay in seconds.
	CmdDelayOn

	// CmdDelayOff disables the bot-side delay.
	CmdDelayOff
)

// String returns the command name as used in logs and metric labels.
func (k CommandKind) String() string {
	switch k {
	case CmdJoin:
		return "join"
	case CmdTalk:
		return "talk"
	case CmdMute:
		return "mute"
	case CmdMuteAfterDelay:
		return "mute_after_delay"
	case CmdLeave:
		return "leave"
	case CmdLeaveAfterDelay:
		return "leave_after_delay"
	case CmdDelayOn:
		return "delay_on"
	case CmdDelayOff:
		return "delay_off"
	default:
		return "unknown"
	}
}

// Path returns the bot API path for the command.
func (k CommandKind) Path() string {
	return "/" + k.String()
}

// Method returns the HTTP method used for the command.
func (k CommandKind) Method() string {
	return http.MethodPost
}

// Base returns the immediate counterpart of a bot-delayed command.
//
// Returns:
//   - CommandKind: CmdMute for CmdMuteAfterDelay, CmdLeave for CmdLeaveAfterDelay, k otherwise
//   - bool: true if k is a bot-delayed command
func (k CommandKind) Base() (CommandKind, bool) {
	switch k {
	case CmdMuteAfterDelay:
		return CmdMute, true
	case CmdLeaveAfterDelay:
		return CmdLeave, true
	default:
		return k, false
	}
}

// Command is one remote call with its payload captured at plan time.
type Command struct {
	Kind CommandKind

	// Loop is the channel name for CmdJoin.
	Loop string

	// Seconds is the delay for CmdDelayOn.
	Seconds float64
}

// Body returns the JSON request body for the command, or nil if it has none.
func (c Command) Body() map[string]any {
	switch c.Kind {
	case CmdJoin:
		return map[string]any{"loop": c.Loop}
	case CmdDelayOn:
		return map[string]any{"seconds": c.Seconds}
	default:
		return nil
	}
}

// Action is a command addressed to one bot, optionally deferred.
//
// Actions are produced by the assignment engine while it holds its lock and
// executed by the dispatcher after the lock is released. Everything needed
// to deliver the command is captured here; a deferred action never reads
// engine state again when it fires.
type Action struct {
	// WorkerID is the bot name.
	WorkerID string

	// Endpoint is the bot control API base URL.
	Endpoint string

	// Command is the remote operation and payload.
	Command Command

	// Delay defers delivery when greater than zero.
	Delay time.Duration
}

// Deferred reports whether the action must wait before delivery.
func (a Action) Deferred() bool {
	return a.Delay > 0
}

// Outcome is the result of delivering one action.
//
// Remote failures never change engine state. Callers record an Outcome for
// logging and metrics and then drop it; there is no retry and no rollback.
type Outcome struct {
	Action     Action
	StatusCode int
	Latency    time.Duration
	Err        error
}

// OK reports whether the bot accepted the command with a 2xx status.
func (o Outcome) OK() bool {
	return o.Err == nil && o.StatusCode >= 200 && o.StatusCode < 300
}
