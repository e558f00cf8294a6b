package engine

import "github.com/itaame/MCC-COMMS/types"

// NextState returns the toggle successor of current for ch.
//
// The cycle is Off → Listening → Talking → Listening. Channels that cannot
// talk stay on Listening. Capability to listen is checked by the caller.
func NextState(ch types.Channel, current types.State) types.State {
	switch current {
	case types.StateOff:
		return types.StateListening
	case types.StateListening:
		if ch.CanTalk {
			return types.StateTalking
		}

		return types.StateListening
	default:
		return types.StateListening
	}
}
