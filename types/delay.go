package types

import "time"

// DelayMode selects who waits out the release delay for mute and leave.
type DelayMode string

const (
	// DelayModeLocal schedules the plain mute/leave command on the coordinator.
	DelayModeLocal DelayMode = "local"

	// DelayModeWorker sends mute_after_delay/leave_after_delay right away and
	// lets the bot wait. Talk is always delayed locally.
	DelayModeWorker DelayMode = "worker"
)

// Valid reports whether m is a known mode.
func (m DelayMode) Valid() bool {
	return m == DelayModeLocal || m == DelayModeWorker
}

// DelayPolicy is the process-wide release delay setting.
//
// When enabled, demotions from Talking mute late and talk starts late, so
// speech already in flight is not cut off.
type DelayPolicy struct {
	Enabled bool          `json:"enabled"`
	Delay   time.Duration `json:"-"`
}

// Seconds returns the delay as fractional seconds (never negative).
func (p DelayPolicy) Seconds() float64 {
	if p.Delay < 0 {
		return 0
	}

	return p.Delay.Seconds()
}

// Effective returns the delay to apply to a deferred command: the configured
// delay when enabled, zero otherwise.
func (p DelayPolicy) Effective() time.Duration {
	if !p.Enabled || p.Delay < 0 {
		return 0
	}

	return p.Delay
}
