// Package metrics provides MetricsCollector implementations.
package metrics

import "github.com/itaame/MCC-COMMS/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A new no-op metrics collector instance
//
// Example:
//
//	metrics := metrics.NewNop()
//	coord, err := comms.New(&cfg, src, comms.WithMetrics(metrics))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// EngineMetrics implementation

// RecordRequest discards the request metric.
func (n *NopMetrics) RecordRequest(_ /* desired */, _ /* outcome */ string) {}

// RecordTransition discards the transition metric.
func (n *NopMetrics) RecordTransition(_ /* from */, _ /* to */ types.State) {}

// RecordPreemption discards the preemption metric.
func (n *NopMetrics) RecordPreemption() {}

// RecordIdleWorkers discards the idle worker gauge.
func (n *NopMetrics) RecordIdleWorkers(_ /* count */ int) {}

// RecordDelayEnabled discards the delay policy gauge.
func (n *NopMetrics) RecordDelayEnabled(_ /* enabled */ bool) {}

// CommandMetrics implementation

// RecordCommand discards the command metric.
func (n *NopMetrics) RecordCommand(_ /* command */ string, _ /* success */ bool, _ /* latency */ float64) {
}

// RecordDeferred discards the deferred command metric.
func (n *NopMetrics) RecordDeferred(_ /* command */ string) {}

// RecordPendingDeferred discards the pending task gauge.
func (n *NopMetrics) RecordPendingDeferred(_ /* count */ int) {}

// StatusMetrics implementation

// RecordStatusPoll discards the status poll metric.
func (n *NopMetrics) RecordStatusPoll(_ /* workerID */ string, _ /* success */ bool) {}

// RecordOccupancy discards the occupancy gauge.
func (n *NopMetrics) RecordOccupancy(_ /* channel */ string, _ /* count */ int) {}

// PublisherMetrics implementation

// RecordViewPublished discards the publish metric.
func (n *NopMetrics) RecordViewPublished(_ /* success */ bool) {}
