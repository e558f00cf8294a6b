package comms

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/itaame/MCC-COMMS/internal/botclient"
	"github.com/itaame/MCC-COMMS/internal/clock"
	"github.com/itaame/MCC-COMMS/internal/dispatch"
	"github.com/itaame/MCC-COMMS/internal/engine"
	"github.com/itaame/MCC-COMMS/internal/hooks"
	"github.com/itaame/MCC-COMMS/internal/logging"
	"github.com/itaame/MCC-COMMS/internal/metrics"
	"github.com/itaame/MCC-COMMS/internal/pool"
	"github.com/itaame/MCC-COMMS/internal/publish"
	"github.com/itaame/MCC-COMMS/internal/scheduler"
	"github.com/itaame/MCC-COMMS/internal/status"
	"github.com/itaame/MCC-COMMS/types"
)

// viewRewriteInterval is how often the NATS view is rewritten in full even
// when nothing changed, so a wiped bucket recovers on its own.
const viewRewriteInterval = 30 * time.Second

// lifecycle states
const (
	stateCreated int32 = iota
	stateRunning
	stateStopped
)

// Coordinator owns the loop catalog and the bot pool for one console.
//
// Coordinator is the main entry point of the module. It handles:
//   - Loading the loop catalog from a ChannelSource
//   - Arbitrating listen/talk requests over a fixed bot roster
//   - Delivering join/talk/mute/leave commands, immediately or after the release delay
//   - Polling bots for per-loop user counts
//   - Mirroring the channel view into NATS KV (optional)
//
// Thread Safety:
//   - All public methods are safe for concurrent use
//   - Channel state changes are serialized by the assignment engine
//   - No network call ever happens while engine state is locked
//
// Lifecycle:
//   - Create with New()
//   - Call Start() to load the catalog and begin polling
//   - Call SetChannelState/Toggle/TurnOff/ToggleDelay from the request layer
//   - Call Stop() for graceful shutdown; pending delayed commands still fire
type Coordinator struct {
	cfg    Config
	source ChannelSource

	hooks   Hooks
	metrics MetricsCollector
	logger  Logger
	clock   clock.Clock
	client  BotClient
	conn    *nats.Conn

	pool       *pool.Pool
	engine     *engine.Engine
	scheduler  *scheduler.Scheduler
	dispatcher *dispatch.Dispatcher
	aggregator *status.Aggregator
	publisher  *publish.Publisher

	subscribers *xsync.Map[uint64, *eventSubscriber]
	nextSubID   atomic.Uint64

	state atomic.Int32

	// Lifecycle management
	ctx    context.Context //nolint:containedctx // lifetime context for hooks and polling
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex

	// order serializes engine mutations with the enqueueing of their
	// commands and events, so bots and subscribers see engine order.
	// Lock order: order, then mu.
	order sync.Mutex
}

// New creates a Coordinator.
//
// The roster is validated here; a bad roster is a startup error. The
// catalog is not read until Start.
//
// Parameters:
//   - cfg: Configuration; missing values are filled with defaults
//   - source: Loop catalog provider
//   - opts: Optional logger, metrics, hooks, clock, bot client, NATS connection
//
// Returns:
//   - *Coordinator: Initialized coordinator
//   - error: ErrInvalidConfig or ErrChannelSourceRequired
//
// Example:
//
//	cfg := comms.DefaultConfig()
//	src := source.NewFile(cfg.LoopsDir, cfg.Role)
//	coord, err := comms.New(&cfg, src, comms.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := coord.Start(ctx); err != nil {
//	    return err
//	}
//	defer coord.Stop(context.Background())
func New(cfg *Config, source ChannelSource, opts ...Option) (*Coordinator, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if source == nil {
		return nil, ErrChannelSourceRequired
	}

	SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	options := &coordinatorOptions{}
	for _, opt := range opts {
		opt(options)
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	cfg.ValidateWithWarnings(loggerInstance)

	clk := options.clock
	if clk == nil {
		clk = clock.Real()
	}

	client := options.client
	if client == nil {
		client = botclient.New(nil)
	}

	p, err := pool.New(cfg.Bots, clk)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &Coordinator{
		cfg:         *cfg,
		source:      source,
		hooks:       hooks.Fill(options.hooks),
		metrics:     metricsCollector,
		logger:      loggerInstance,
		clock:       clk,
		client:      client,
		conn:        options.conn,
		pool:        p,
		subscribers: xsync.NewMap[uint64, *eventSubscriber](),
	}, nil
}

// Start loads the catalog and starts background work.
//
// A catalog that cannot be loaded is logged and replaced by an empty one:
// the coordinator keeps running and reports no loops. Likewise a NATS
// mirror that cannot be opened is logged and skipped.
//
// Parameters:
//   - ctx: Bounds catalog loading and the first view publish
//
// Returns:
//   - error: ErrAlreadyStarted if called twice
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Load() != stateCreated {
		return ErrAlreadyStarted
	}

	channels, err := c.source.ListChannels(ctx)
	if err != nil {
		c.logger.Error("failed to load loop catalog, continuing with no loops", "error", err)
		channels = nil
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.engine = engine.New(engine.Config{
		Channels: channels,
		Pool:     c.pool,
		Delay:    types.DelayPolicy{Enabled: c.cfg.Delay.Enabled, Delay: c.cfg.Delay.Delay},
		Clock:    c.clock,
		Logger:   c.logger,
		Metrics:  c.metrics,
	})

	c.scheduler = scheduler.New(c.clock, c.logger, c.metrics)
	c.dispatcher = dispatch.New(dispatch.Config{
		Client:    c.client,
		Scheduler: c.scheduler,
		Mode:      c.cfg.Delay.Mode,
		Timeout:   c.cfg.CommandTimeout,
		Logger:    c.logger,
		Metrics:   c.metrics,
	})

	if c.conn != nil {
		c.publisher = c.openPublisher(ctx)
	}

	c.aggregator = status.New(status.Config{
		Target:    c.engine,
		Client:    c.client,
		Timeout:   c.cfg.StatusTimeout,
		Interval:  c.cfg.StatusInterval,
		OnRefresh: func(context.Context, int) { c.notifyPublisher() },
		Clock:     c.clock,
		Logger:    c.logger,
		Metrics:   c.metrics,
	})
	if err := c.aggregator.Start(c.ctx); err != nil {
		c.cancel()
		return fmt.Errorf("failed to start status polling: %w", err)
	}

	// Bots keep their own delay setting; align them with the starting
	// policy. Queued before any request can run.
	var initial dispatch.Delivery
	if c.cfg.Delay.Enabled {
		_, actions := c.engine.SetDelay(true)
		initial = c.dispatcher.Submit(ctx, actions)
	}

	c.state.Store(stateRunning)
	initial.Wait()

	c.logger.Info("coordinator started",
		"role", c.cfg.Role,
		"loops", len(c.engine.Channels()),
		"bots", c.pool.Len(),
		"delay", c.cfg.Delay.Enabled,
		"delayMode", string(c.cfg.Delay.Mode),
	)

	return nil
}

// openPublisher opens the view bucket and starts the writer. Failures
// disable the mirror.
func (c *Coordinator) openPublisher(ctx context.Context) *publish.Publisher {
	js, err := jetstream.New(c.conn)
	if err != nil {
		c.logger.Error("NATS view mirror disabled", "error", err)
		return nil
	}

	openCtx, cancel := context.WithTimeout(ctx, c.cfg.NATS.Timeout)
	defer cancel()

	pub, err := publish.Open(openCtx, js, c.cfg.NATS.Bucket, publish.Config{
		Prefix:   c.cfg.Role,
		Interval: viewRewriteInterval,
		Timeout:  c.cfg.NATS.Timeout,
		Logger:   c.logger,
		Metrics:  c.metrics,
	})
	if err != nil {
		c.logger.Error("NATS view mirror disabled", "bucket", c.cfg.NATS.Bucket, "error", err)
		return nil
	}

	if err := pub.Start(openCtx, c.engine); err != nil {
		c.logger.Error("NATS view mirror disabled", "error", err)
		return nil
	}

	return pub
}

// Stop shuts the coordinator down.
//
// Polling stops first, then Stop waits for every pending delayed command to
// fire and for queued bot commands to be sent (bounded by ctx), writes a
// final view and closes subscriber channels.
//
// Parameters:
//   - ctx: Shutdown deadline
//
// Returns:
//   - error: ErrNotStarted, or the shutdown errors encountered
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.state.CompareAndSwap(stateRunning, stateStopped) {
		c.mu.Unlock()
		return ErrNotStarted
	}
	c.mu.Unlock()

	var errs []error

	if err := c.aggregator.Stop(); err != nil && !errors.Is(err, types.ErrAggregatorNotStarted) {
		errs = append(errs, fmt.Errorf("status polling stop failed: %w", err))
	}

	if err := c.scheduler.Close(ctx); err != nil {
		c.logger.Error("delayed commands did not finish before shutdown", "error", err)
		errs = append(errs, fmt.Errorf("scheduler close: %w", err))
	}

	if err := c.dispatcher.Close(ctx); err != nil {
		c.logger.Error("bot commands still queued at shutdown", "error", err)
		errs = append(errs, fmt.Errorf("dispatcher close: %w", err))
	}

	if c.publisher != nil {
		if err := c.publisher.Stop(); err != nil && !errors.Is(err, types.ErrNotStarted) {
			errs = append(errs, fmt.Errorf("view publisher stop failed: %w", err))
		}
	}

	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("shutdown timeout waiting for hooks: %w", ctx.Err()))
	}

	c.closeSubscribers()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.logger.Info("coordinator stopped gracefully")

	return nil
}

// SetChannelState asks for a loop to be Off, Listening or Talking.
//
// The returned Result tells apart a request that was applied, one that
// changed nothing, one dropped because every bot was busy, and one rejected
// because the loop cannot be listened to.
//
// Parameters:
//   - ctx: Request context; values only, delivery is bounded per command
//   - name: Loop name
//   - desired: Target state
//
// Returns:
//   - Result: Outcome and the loop's state afterwards
//   - error: ErrUnknownChannel, ErrInvalidState or ErrNotStarted
func (c *Coordinator) SetChannelState(ctx context.Context, name string, desired State) (Result, error) {
	eng, err := c.running()
	if err != nil {
		return Result{Channel: name}, err
	}

	c.order.Lock()
	plan, err := eng.Request(name, desired)
	if err != nil {
		c.order.Unlock()
		return Result{Channel: name}, err
	}
	delivery := c.complete(ctx, plan, desired)
	c.order.Unlock()

	delivery.Wait()

	return plan.Result, nil
}

// Toggle advances a loop Off → Listening → Talking → Listening, skipping
// Talking for listen-only loops.
//
// Parameters:
//   - ctx: Request context
//   - name: Loop name
//
// Returns:
//   - Result: Outcome and the loop's state afterwards
//   - error: ErrUnknownChannel or ErrNotStarted
func (c *Coordinator) Toggle(ctx context.Context, name string) (Result, error) {
	eng, err := c.running()
	if err != nil {
		return Result{Channel: name}, err
	}

	c.order.Lock()
	plan, err := eng.Toggle(name)
	if err != nil {
		c.order.Unlock()
		return Result{Channel: name}, err
	}

	desired := plan.Result.State.State
	if ch, ok := eng.Channel(name); ok && plan.Result.Outcome == OutcomeDropped {
		desired = engine.NextState(ch, plan.Result.State.State)
	}
	delivery := c.complete(ctx, plan, desired)
	c.order.Unlock()

	delivery.Wait()

	return plan.Result, nil
}

// TurnOff releases a loop's bot. Turning off an Off loop is a no-op.
func (c *Coordinator) TurnOff(ctx context.Context, name string) (Result, error) {
	return c.SetChannelState(ctx, name, StateOff)
}

// ToggleDelay flips the release delay and tells every bot.
//
// Delayed commands already pending keep their original fire time.
//
// Returns:
//   - DelayPolicy: Policy after the flip
//   - error: ErrNotStarted
func (c *Coordinator) ToggleDelay(ctx context.Context) (DelayPolicy, error) {
	eng, err := c.running()
	if err != nil {
		return DelayPolicy{}, err
	}

	c.order.Lock()
	policy, actions := eng.ToggleDelay()
	delivery := c.afterDelayChange(ctx, policy, actions)
	c.order.Unlock()

	delivery.Wait()

	return policy, nil
}

// SetDelay sets the release delay on or off and tells every bot, even when
// the value does not change.
func (c *Coordinator) SetDelay(ctx context.Context, enabled bool) (DelayPolicy, error) {
	eng, err := c.running()
	if err != nil {
		return DelayPolicy{}, err
	}

	c.order.Lock()
	policy, actions := eng.SetDelay(enabled)
	delivery := c.afterDelayChange(ctx, policy, actions)
	c.order.Unlock()

	delivery.Wait()

	return policy, nil
}

// afterDelayChange queues the delay broadcast. Callers hold c.order.
func (c *Coordinator) afterDelayChange(ctx context.Context, policy DelayPolicy, actions []types.Action) dispatch.Delivery {
	delivery := c.dispatcher.Submit(ctx, actions)
	c.notifyPublisher()
	c.runHook("OnDelayChanged", func(ctx context.Context) error {
		return c.hooks.OnDelayChanged(ctx, policy)
	})

	return delivery
}

// View returns a snapshot of every loop's state and user count plus the
// delay policy. Before Start it reports no loops.
func (c *Coordinator) View() View {
	eng, err := c.running()
	if err != nil {
		return View{
			Channels: map[string]ChannelView{},
			Delay:    DelayPolicy{Enabled: c.cfg.Delay.Enabled, Delay: c.cfg.Delay.Delay},
		}
	}

	return eng.View()
}

// States returns each loop's state and assigned bot.
func (c *Coordinator) States() map[string]ChannelState {
	eng, err := c.running()
	if err != nil {
		return map[string]ChannelState{}
	}

	return eng.States()
}

// Channels returns the loaded catalog in display order.
func (c *Coordinator) Channels() []Channel {
	eng, err := c.running()
	if err != nil {
		return nil
	}

	return eng.Channels()
}

// Refresh polls every bot for user counts now.
//
// Returns:
//   - int: Number of bots that answered (0 before Start)
func (c *Coordinator) Refresh(ctx context.Context) int {
	if _, err := c.running(); err != nil {
		return 0
	}

	answered := c.aggregator.Refresh(ctx)
	c.notifyPublisher()

	return answered
}

// Workers returns the bot roster with current assignments.
func (c *Coordinator) Workers() []pool.Worker {
	eng, err := c.running()
	if err != nil {
		return nil
	}

	return eng.Workers()
}

// Config returns the effective configuration.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// running returns the engine, or ErrNotStarted.
func (c *Coordinator) running() (*engine.Engine, error) {
	if c.state.Load() != stateRunning {
		return nil, ErrNotStarted
	}

	return c.engine, nil
}

// complete queues a plan's commands and fans out its events. Callers hold
// c.order and wait on the returned delivery after releasing it.
func (c *Coordinator) complete(ctx context.Context, plan engine.Plan, desired State) dispatch.Delivery {
	for _, ev := range plan.Events {
		c.emit(ev)
	}
	if len(plan.Events) > 0 {
		c.notifyPublisher()
	}

	if plan.Result.Outcome == OutcomeDropped {
		name := plan.Result.Channel
		c.runHook("OnRequestDropped", func(ctx context.Context) error {
			return c.hooks.OnRequestDropped(ctx, name, desired)
		})
	}

	return c.dispatcher.Submit(ctx, plan.Actions)
}

func (c *Coordinator) emit(ev ChannelEvent) {
	c.subscribers.Range(func(_ uint64, sub *eventSubscriber) bool {
		if !sub.trySend(ev) {
			c.logger.Debug("slow event subscriber, event dropped", "channel", ev.Channel)
		}

		return true
	})

	c.runHook("OnStateChanged", func(ctx context.Context) error {
		return c.hooks.OnStateChanged(ctx, ev)
	})
}

// runHook calls fn in its own goroutine. Hook errors are logged only.
func (c *Coordinator) runHook(name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Load() != stateRunning {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		if err := fn(c.ctx); err != nil {
			c.logger.Warn("hook returned error", "hook", name, "error", err)
		}
	}()
}

func (c *Coordinator) notifyPublisher() {
	if c.publisher != nil {
		c.publisher.Notify()
	}
}
