package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/itaame/MCC-COMMS/types"
)

// gathered returns the value of the series name{labels...}, or -1 if absent.
func gathered(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			got := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue series
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	return -1
}

func TestNewPrometheus_Defaults(t *testing.T) {
	p := NewPrometheus(nil, "")

	require.Equal(t, prometheus.DefaultRegisterer, p.reg)
	require.Equal(t, "mcc_comms", p.namespace)
}

func TestPrometheusCollector_Engine(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordRequest("Talking", "applied")
	p.RecordRequest("Talking", "applied")
	p.RecordRequest("Listening", "dropped")
	p.RecordTransition(types.StateListening, types.StateTalking)
	p.RecordPreemption()
	p.RecordIdleWorkers(2)
	p.RecordDelayEnabled(true)

	require.InDelta(t, 2, gathered(t, reg, "test_engine_requests_total", map[string]string{"desired": "Talking", "outcome": "applied"}), 0)
	require.InDelta(t, 1, gathered(t, reg, "test_engine_requests_total", map[string]string{"desired": "Listening", "outcome": "dropped"}), 0)
	require.InDelta(t, 1, gathered(t, reg, "test_engine_transitions_total", map[string]string{"from": "Listening", "to": "Talking"}), 0)
	require.InDelta(t, 1, gathered(t, reg, "test_engine_preemptions_total", nil), 0)
	require.InDelta(t, 2, gathered(t, reg, "test_engine_idle_workers", nil), 0)
	require.InDelta(t, 1, gathered(t, reg, "test_engine_delay_enabled", nil), 0)

	p.RecordDelayEnabled(false)
	require.InDelta(t, 0, gathered(t, reg, "test_engine_delay_enabled", nil), 0)
}

func TestPrometheusCollector_CommandsAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordCommand("join", true, 0.01)
	p.RecordCommand("join", false, 0.5)
	p.RecordDeferred("mute")
	p.RecordPendingDeferred(3)
	p.RecordStatusPoll("BOT1", true)
	p.RecordOccupancy("FD", 7)
	p.RecordViewPublished(false)

	require.InDelta(t, 1, gathered(t, reg, "test_bot_commands_total", map[string]string{"command": "join", "result": "success"}), 0)
	require.InDelta(t, 1, gathered(t, reg, "test_bot_commands_total", map[string]string{"command": "join", "result": "failure"}), 0)
	require.InDelta(t, 2, gathered(t, reg, "test_bot_command_latency_seconds", map[string]string{"command": "join"}), 0)
	require.InDelta(t, 1, gathered(t, reg, "test_scheduler_deferred_total", map[string]string{"command": "mute"}), 0)
	require.InDelta(t, 3, gathered(t, reg, "test_scheduler_pending", nil), 0)
	require.InDelta(t, 1, gathered(t, reg, "test_status_polls_total", map[string]string{"worker": "BOT1", "result": "success"}), 0)
	require.InDelta(t, 7, gathered(t, reg, "test_status_channel_users", map[string]string{"channel": "FD"}), 0)
	require.InDelta(t, 1, gathered(t, reg, "test_publisher_writes_total", map[string]string{"result": "failure"}), 0)
}
