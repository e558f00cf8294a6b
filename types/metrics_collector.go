package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// Methods are called from request goroutines, scheduler timers and the
// status loop, so they must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	EngineMetrics
	CommandMetrics
	StatusMetrics
	PublisherMetrics
}

// EngineMetrics defines metrics for assignment engine decisions.
type EngineMetrics interface {
	// RecordRequest records one engine request by requested state and outcome.
	//
	// Parameters:
	//   - desired: Requested state ("Off", "Listening", "Talking")
	//   - outcome: Request outcome ("applied", "unchanged", "dropped", "rejected")
	RecordRequest(desired string, outcome string)

	// RecordTransition records a channel state change.
	RecordTransition(from, to State)

	// RecordPreemption records a talking channel demoted by another escalation.
	RecordPreemption()

	// RecordIdleWorkers sets the number of unassigned bots (gauge metric).
	RecordIdleWorkers(count int)

	// RecordDelayEnabled sets the delay policy state (gauge metric).
	RecordDelayEnabled(enabled bool)
}

// CommandMetrics defines metrics for remote bot commands.
type CommandMetrics interface {
	// RecordCommand records a delivered (or failed) bot command.
	//
	// Parameters:
	//   - command: Command name (e.g., "join", "mute_after_delay")
	//   - success: true if the bot answered 2xx
	//   - latency: Round-trip time in seconds
	RecordCommand(command string, success bool, latency float64)

	// RecordDeferred records a command handed to the scheduler.
	RecordDeferred(command string)

	// RecordPendingDeferred sets the number of scheduled tasks not yet fired (gauge metric).
	RecordPendingDeferred(count int)
}

// StatusMetrics defines metrics for the status aggregator.
type StatusMetrics interface {
	// RecordStatusPoll records one bot status fetch.
	RecordStatusPoll(workerID string, success bool)

	// RecordOccupancy sets the reported user count of a channel (gauge metric).
	RecordOccupancy(channel string, count int)
}

// PublisherMetrics defines metrics for the NATS view publisher.
type PublisherMetrics interface {
	// RecordViewPublished records one KV write.
	RecordViewPublished(success bool)
}
