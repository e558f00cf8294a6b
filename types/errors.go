package types

import "errors"

// Sentinel errors for the comms coordinator.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// All components should use these sentinel errors for known error conditions
// and wrap external errors with context using fmt.Errorf("%s: %w", msg, err).
//
// Error Naming Convention:
//   - Use descriptive names with Err prefix
//   - Group by component (Coordinator, Engine, Pool, Aggregator, etc.)
//   - Use consistent messages across similar error types

// Coordinator errors - Public API errors returned by the Coordinator.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrChannelSourceRequired is returned when the channel source is nil.
	ErrChannelSourceRequired = errors.New("channel source is required")

	// ErrAlreadyStarted is returned when Start is called on an already running coordinator.
	ErrAlreadyStarted = errors.New("coordinator already started")

	// ErrNotStarted is returned when operations require a started coordinator.
	ErrNotStarted = errors.New("coordinator not started")
)

// Engine errors - Assignment engine errors surfaced to callers.
var (
	// ErrUnknownChannel is returned when a request names a channel missing from the catalog.
	// It is the only request failure visible to clients; capacity exhaustion is not an error.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrInvalidState is returned when a requested state is not Off, Listening or Talking.
	ErrInvalidState = errors.New("invalid channel state")
)

// Pool errors - Bot roster construction errors. These are fatal at startup.
var (
	// ErrEmptyRoster is returned when no bots are configured.
	ErrEmptyRoster = errors.New("bot roster is empty")

	// ErrInvalidBot is returned when a roster entry has no name or no endpoint.
	ErrInvalidBot = errors.New("invalid bot roster entry")

	// ErrDuplicateBot is returned when two roster entries share a name.
	ErrDuplicateBot = errors.New("duplicate bot name")
)

// Bot client errors - Remote command delivery and status polling.
var (
	// ErrBotStatus is returned when a bot answers with a non-2xx HTTP status.
	ErrBotStatus = errors.New("bot returned error status")

	// ErrMalformedStatus is returned when a bot's status reply cannot be decoded.
	ErrMalformedStatus = errors.New("malformed bot status reply")
)

// Background component errors - Aggregator loop and scheduler lifecycle.
var (
	// ErrAggregatorAlreadyStarted is returned when Start is called on a running aggregator loop.
	ErrAggregatorAlreadyStarted = errors.New("status aggregator already started")

	// ErrAggregatorNotStarted is returned when Stop is called before Start.
	ErrAggregatorNotStarted = errors.New("status aggregator not started")

	// ErrSchedulerClosed is returned when a task is scheduled after the scheduler was closed.
	ErrSchedulerClosed = errors.New("scheduler closed")
)

// Publisher errors - View mirroring to NATS KV.
var (
	// ErrConnectivity indicates a NATS/KV connectivity issue.
	// Used to log transient broker outages at a lower level than real failures.
	ErrConnectivity = errors.New("connectivity issue")

	// ErrPublishFailed is returned when writing a channel view to NATS KV fails.
	ErrPublishFailed = errors.New("failed to publish channel view")
)
