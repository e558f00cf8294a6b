package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/itaame/MCC-COMMS/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use. The embedded
// NopMetrics keeps the type a complete MetricsCollector if the interface
// grows before the collector does.
type PrometheusCollector struct {
	*NopMetrics

	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Engine metrics
	requests     *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	preemptions  prometheus.Counter
	idleWorkers  prometheus.Gauge
	delayEnabled prometheus.Gauge

	// Command metrics
	commands        *prometheus.CounterVec
	commandLatency  *prometheus.HistogramVec
	deferred        *prometheus.CounterVec
	pendingDeferred prometheus.Gauge

	// Status metrics
	statusPolls *prometheus.CounterVec
	occupancy   *prometheus.GaugeVec

	// Publisher metrics
	published *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "mcc_comms" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "mcc_comms"
	}

	return &PrometheusCollector{NopMetrics: NewNop(), reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "requests_total",
			Help:      "Total channel requests by desired state and outcome.",
		}, []string{"desired", "outcome"})
		p.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "transitions_total",
			Help:      "Total channel state transitions.",
		}, []string{"from", "to"})
		p.preemptions = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "preemptions_total",
			Help:      "Talking channels demoted to listening by another escalation.",
		})
		p.idleWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "idle_workers",
			Help:      "Bots with no channel assignment.",
		})
		p.delayEnabled = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "delay_enabled",
			Help:      "1 if the release delay is enabled.",
		})

		p.commands = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "bot",
			Name:      "commands_total",
			Help:      "Total bot commands by command and result (success,failure).",
		}, []string{"command", "result"})
		p.commandLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "bot",
			Name:      "command_latency_seconds",
			Help:      "Round-trip latency of bot commands in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~2.5s
		}, []string{"command"})
		p.deferred = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "deferred_total",
			Help:      "Total commands handed to the deferred scheduler.",
		}, []string{"command"})
		p.pendingDeferred = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "scheduler",
			Name:      "pending",
			Help:      "Deferred commands waiting to fire.",
		})

		p.statusPolls = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "status",
			Name:      "polls_total",
			Help:      "Total bot status fetches by bot and result.",
		}, []string{"worker", "result"})
		p.occupancy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "status",
			Name:      "channel_users",
			Help:      "Users reported on each channel by the last successful poll.",
		}, []string{"channel"})

		p.published = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "publisher",
			Name:      "writes_total",
			Help:      "Total KV writes of the channel view by result.",
		}, []string{"result"})

		p.reg.MustRegister(
			p.requests, p.transitions, p.preemptions, p.idleWorkers, p.delayEnabled,
			p.commands, p.commandLatency, p.deferred, p.pendingDeferred,
			p.statusPolls, p.occupancy,
			p.published,
		)
	})
}

func result(success bool) string {
	if success {
		return "success"
	}

	return "failure"
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}

	return 0
}

// EngineMetrics implementation

// RecordRequest increments the request counter.
func (p *PrometheusCollector) RecordRequest(desired string, outcome string) {
	p.ensureRegistered()
	p.requests.WithLabelValues(desired, outcome).Inc()
}

// RecordTransition increments the transition counter.
func (p *PrometheusCollector) RecordTransition(from, to types.State) {
	p.ensureRegistered()
	p.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordPreemption increments the preemption counter.
func (p *PrometheusCollector) RecordPreemption() {
	p.ensureRegistered()
	p.preemptions.Inc()
}

// RecordIdleWorkers sets the idle worker gauge.
func (p *PrometheusCollector) RecordIdleWorkers(count int) {
	p.ensureRegistered()
	p.idleWorkers.Set(float64(count))
}

// RecordDelayEnabled sets the delay gauge to 1 or 0.
func (p *PrometheusCollector) RecordDelayEnabled(enabled bool) {
	p.ensureRegistered()
	p.delayEnabled.Set(boolGauge(enabled))
}

// CommandMetrics implementation

// RecordCommand counts a bot command and observes its latency.
func (p *PrometheusCollector) RecordCommand(command string, success bool, latency float64) {
	p.ensureRegistered()
	p.commands.WithLabelValues(command, result(success)).Inc()
	if latency >= 0 {
		p.commandLatency.WithLabelValues(command).Observe(latency)
	}
}

// RecordDeferred counts a scheduled command.
func (p *PrometheusCollector) RecordDeferred(command string) {
	p.ensureRegistered()
	p.deferred.WithLabelValues(command).Inc()
}

// RecordPendingDeferred sets the pending task gauge.
func (p *PrometheusCollector) RecordPendingDeferred(count int) {
	p.ensureRegistered()
	p.pendingDeferred.Set(float64(count))
}

// StatusMetrics implementation

// RecordStatusPoll counts a status fetch.
func (p *PrometheusCollector) RecordStatusPoll(workerID string, success bool) {
	p.ensureRegistered()
	p.statusPolls.WithLabelValues(workerID, result(success)).Inc()
}

// RecordOccupancy sets the per-channel user gauge.
func (p *PrometheusCollector) RecordOccupancy(channel string, count int) {
	p.ensureRegistered()
	p.occupancy.WithLabelValues(channel).Set(float64(count))
}

// PublisherMetrics implementation

// RecordViewPublished counts a KV write.
func (p *PrometheusCollector) RecordViewPublished(success bool) {
	p.ensureRegistered()
	p.published.WithLabelValues(result(success)).Inc()
}
