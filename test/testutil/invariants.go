package testutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/itaame/MCC-COMMS/internal/pool"
	"github.com/itaame/MCC-COMMS/types"
)

// CheckInvariants verifies the coordination invariants over one consistent
// snapshot of channel states and pool bookkeeping:
//
//   - every bot serves at most one channel, and its assignment agrees with the channel state
//   - at most one channel is Talking
//   - a channel that cannot talk is never Talking
//   - a channel that cannot listen is always Off
//   - a channel has a bot if and only if it is not Off
//
// Parameters:
//   - channels: Catalog entries
//   - states: Channel name -> state
//   - workers: Pool snapshot
//
// Returns:
//   - error: Joined description of every violation, nil if none
func CheckInvariants(channels []types.Channel, states map[string]types.ChannelState, workers []pool.Worker) error {
	var errs []error

	byName := make(map[string]types.Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name] = ch
	}
	assignment := make(map[string]string, len(workers))
	for _, w := range workers {
		assignment[w.ID] = w.Assignment
	}

	talking := 0
	servedBy := make(map[string]string)
	for name, st := range states {
		ch := byName[name]

		if st.State == types.StateTalking {
			talking++
			if !ch.CanTalk {
				errs = append(errs, fmt.Errorf("channel %s is Talking but cannot talk", name))
			}
		}
		if !ch.CanListen && !st.IsOff() {
			errs = append(errs, fmt.Errorf("channel %s is %s but cannot listen", name, st.State))
		}
		if st.IsOff() != (st.Worker == "") {
			errs = append(errs, fmt.Errorf("channel %s is %s with worker %q", name, st.State, st.Worker))
		}
		if st.Worker == "" {
			continue
		}
		if other, dup := servedBy[st.Worker]; dup {
			errs = append(errs, fmt.Errorf("worker %s serves both %s and %s", st.Worker, other, name))
		}
		servedBy[st.Worker] = name
		if got, ok := assignment[st.Worker]; !ok || got != name {
			errs = append(errs, fmt.Errorf("channel %s names worker %s whose assignment is %q", name, st.Worker, got))
		}
	}
	if talking > 1 {
		errs = append(errs, fmt.Errorf("%d channels are Talking", talking))
	}

	for _, w := range workers {
		if w.Assignment == "" {
			continue
		}
		if servedBy[w.ID] != w.Assignment {
			errs = append(errs, fmt.Errorf("worker %s is assigned to %s but that channel does not name it", w.ID, w.Assignment))
		}
	}

	return errors.Join(errs...)
}

// AssertInvariants fails the test if CheckInvariants reports a violation.
func AssertInvariants(t *testing.T, channels []types.Channel, states map[string]types.ChannelState, workers []pool.Worker) {
	t.Helper()

	if err := CheckInvariants(channels, states, workers); err != nil {
		t.Fatalf("invariant violation:\n%v", err)
	}
}
