package engine

import (
	"time"

	"github.com/itaame/MCC-COMMS/types"
)

// SetDelay enables or disables the release delay.
//
// Every bot is told about the change (delay_on with the delay in seconds, or
// delay_off) so bot-side *_after_delay commands agree with the coordinator.
// Deferred actions already scheduled are not affected.
//
// Parameters:
//   - enabled: New policy state
//
// Returns:
//   - types.DelayPolicy: Policy after the change
//   - []types.Action: Broadcast to every bot in roster order
func (e *Engine) SetDelay(enabled bool) (types.DelayPolicy, []types.Action) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.setDelayLocked(enabled)
}

// ToggleDelay flips the release delay. See SetDelay.
func (e *Engine) ToggleDelay() (types.DelayPolicy, []types.Action) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.setDelayLocked(!e.delay.Enabled)
}

// SetDelayDuration changes the configured delay without touching Enabled.
// Negative values are treated as zero.
func (e *Engine) SetDelayDuration(d time.Duration) types.DelayPolicy {
	if d < 0 {
		d = 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.delay.Delay = d

	return e.delay
}

// Delay returns the current delay policy.
func (e *Engine) Delay() types.DelayPolicy {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.delay
}

func (e *Engine) setDelayLocked(enabled bool) (types.DelayPolicy, []types.Action) {
	e.delay.Enabled = enabled

	cmd := types.Command{Kind: types.CmdDelayOff}
	if enabled {
		cmd = types.Command{Kind: types.CmdDelayOn, Seconds: e.delay.Seconds()}
	}

	workers := e.pool.Snapshot()
	actions := make([]types.Action, 0, len(workers))
	for _, w := range workers {
		actions = append(actions, types.Action{WorkerID: w.ID, Endpoint: w.Endpoint, Command: cmd})
	}

	e.metrics.RecordDelayEnabled(enabled)
	e.logger.Info("release delay changed", "enabled", enabled, "seconds", e.delay.Seconds())

	return e.delay, actions
}
