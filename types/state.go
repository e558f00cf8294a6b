package types

import "fmt"

// State is the tri-state mode of a channel.
//
// The numeric values are part of the dashboard contract and are encoded
// as plain integers in JSON:
//
//	StateOff (0) → StateListening (1) → StateTalking (2)
type State int

const (
	// StateOff means no bot represents the channel.
	StateOff State = iota

	// StateListening means a bot has joined the channel muted.
	StateListening

	// StateTalking means a bot is transmitting on the channel.
	// At most one channel is in this state at any time.
	StateTalking
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateOff:
		return "Off"
	case StateListening:
		return "Listening"
	case StateTalking:
		return "Talking"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is one of the three known states.
func (s State) Valid() bool {
	return s >= StateOff && s <= StateTalking
}

// ParseState converts a state name or its numeric form into a State.
//
// Parameters:
//   - v: "off", "listening", "talking" (case-sensitive lower case) or "0", "1", "2"
//
// Returns:
//   - State: Parsed state
//   - error: ErrInvalidState if v is not recognized
func ParseState(v string) (State, error) {
	switch v {
	case "off", "0":
		return StateOff, nil
	case "listening", "1":
		return StateListening, nil
	case "talking", "2":
		return StateTalking, nil
	default:
		return StateOff, fmt.Errorf("%w: %q", ErrInvalidState, v)
	}
}

// ChannelState is the current state of one channel plus the bot serving it.
//
// Worker is empty if and only if State is StateOff.
type ChannelState struct {
	State  State  `json:"state"`
	Worker string `json:"worker,omitempty"`
}

// IsOff reports whether the channel is off.
func (cs ChannelState) IsOff() bool {
	return cs.State == StateOff
}
