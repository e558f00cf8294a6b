package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itaame/MCC-COMMS/types"
)

func TestNewNop(t *testing.T) {
	metrics := NewNop()

	require.NotNil(t, metrics)
	require.IsType(t, &NopMetrics{}, metrics)
}

func TestNopMetrics_EngineMetrics(t *testing.T) {
	metrics := NewNop()

	require.NotPanics(t, func() {
		metrics.RecordRequest("Talking", "applied")
		metrics.RecordRequest("", "")
		metrics.RecordTransition(types.StateOff, types.StateTalking)
		metrics.RecordTransition(types.State(999), types.State(-1))
		metrics.RecordPreemption()
		metrics.RecordIdleWorkers(3)
		metrics.RecordIdleWorkers(-1)
		metrics.RecordDelayEnabled(true)
	})
}

func TestNopMetrics_CommandMetrics(t *testing.T) {
	metrics := NewNop()

	require.NotPanics(t, func() {
		metrics.RecordCommand("join", true, 0.01)
		metrics.RecordCommand("talk", false, -1)
		metrics.RecordDeferred("mute")
		metrics.RecordPendingDeferred(0)
	})
}

func TestNopMetrics_StatusAndPublisherMetrics(t *testing.T) {
	metrics := NewNop()

	require.NotPanics(t, func() {
		metrics.RecordStatusPoll("BOT1", true)
		metrics.RecordStatusPoll("", false)
		metrics.RecordOccupancy("FD", 4)
		metrics.RecordViewPublished(true)
		metrics.RecordViewPublished(false)
	})
}

func TestNopMetrics_ImplementsInterface(t *testing.T) {
	var _ types.MetricsCollector = NewNop()
}
