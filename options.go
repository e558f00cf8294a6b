package comms

import (
	"github.com/itaame/MCC-COMMS/internal/clock"
	"github.com/nats-io/nats.go"
)

// Option configures a Coordinator.
type Option func(*coordinatorOptions)

type coordinatorOptions struct {
	hooks   *Hooks
	metrics MetricsCollector
	logger  Logger
	clock   clock.Clock
	client  BotClient
	conn    *nats.Conn
}

// WithHooks sets lifecycle hooks for channel events.
//
// Parameters:
//   - hooks: Hook callbacks; nil fields are ignored
//
// Returns:
//   - Option: Functional option for New
//
// Example:
//
//	hooks := &comms.Hooks{
//	    OnStateChanged: func(ctx context.Context, ev comms.ChannelEvent) error {
//	        log.Printf("%s: %s -> %s", ev.Channel, ev.From.State, ev.To.State)
//	        return nil
//	    },
//	}
//	coord, err := comms.New(&cfg, src, comms.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *coordinatorOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for New
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *coordinatorOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation
//
// Returns:
//   - Option: Functional option for New
//
// Example:
//
//	coord, err := comms.New(&cfg, src, comms.WithLogger(logging.NewSlog(slog.Default())))
func WithLogger(logger Logger) Option {
	return func(o *coordinatorOptions) {
		o.logger = logger
	}
}

// WithClock replaces the wall clock, mainly for tests that drive the
// release delay deterministically.
func WithClock(clk clock.Clock) Option {
	return func(o *coordinatorOptions) {
		o.clock = clk
	}
}

// WithBotClient replaces the HTTP bot client.
//
// Parameters:
//   - client: BotClient implementation
//
// Returns:
//   - Option: Functional option for New
func WithBotClient(client BotClient) Option {
	return func(o *coordinatorOptions) {
		o.client = client
	}
}

// WithNATS enables the channel view mirror on the given connection.
//
// The coordinator writes every channel state and the delay policy into the
// JetStream KV bucket named by Config.NATS.Bucket. The mirror is write-only.
//
// Parameters:
//   - conn: Connected NATS client
//
// Returns:
//   - Option: Functional option for New
func WithNATS(conn *nats.Conn) Option {
	return func(o *coordinatorOptions) {
		o.conn = conn
	}
}
