// Package dispatch delivers engine plans to bots.
//
// Delivery is best effort. Each command yields a types.Outcome that is
// logged and counted, then dropped: a failed command never changes
// coordinator state and is never retried.
//
// Every bot has its own FIFO lane served by one goroutine. Commands reach a
// bot in the order they were submitted, so callers that submit in engine
// order get engine order on the wire, while a slow bot never holds up the
// others.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/itaame/MCC-COMMS/internal/scheduler"
	"github.com/itaame/MCC-COMMS/types"
)

// Config holds dispatcher dependencies.
type Config struct {
	Client    types.BotClient
	Scheduler *scheduler.Scheduler

	// Mode selects who waits out delayed mute/leave commands.
	Mode types.DelayMode

	// Timeout bounds each remote call.
	Timeout time.Duration

	Logger  types.Logger
	Metrics types.CommandMetrics
}

// Dispatcher executes actions produced by the assignment engine.
type Dispatcher struct {
	client    types.BotClient
	scheduler *scheduler.Scheduler
	mode      types.DelayMode
	timeout   time.Duration
	logger    types.Logger
	metrics   types.CommandMetrics

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	wg     sync.WaitGroup
}

// Delivery tracks the commands queued by one Submit call.
type Delivery struct {
	wg *sync.WaitGroup
}

// Wait blocks until every immediate command of the submission has been
// sent. Deferred commands are not waited for.
func (d Delivery) Wait() {
	if d.wg != nil {
		d.wg.Wait()
	}
}

type job struct {
	ctx    context.Context //nolint:containedctx // carried from Submit to the lane goroutine
	action types.Action
	done   func()
}

// lane is an unbounded FIFO for one bot. push never blocks.
type lane struct {
	mu    sync.Mutex
	queue []job
	wake  chan struct{}
	stop  chan struct{}
}

// New creates a dispatcher. An unknown mode falls back to local scheduling.
func New(cfg Config) *Dispatcher {
	mode := cfg.Mode
	if !mode.Valid() {
		mode = types.DelayModeLocal
	}

	return &Dispatcher{
		client:    cfg.Client,
		scheduler: cfg.Scheduler,
		mode:      mode,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		lanes:     make(map[string]*lane),
	}
}

// Submit queues actions and returns without doing any network I/O.
//
// Immediate actions go to their bot's lane in order. Deferred actions are
// handed to the scheduler and enter the lane when they fire. In worker
// mode, deferred mute and leave are queued right away as
// mute_after_delay/leave_after_delay and the bot waits; talk is always
// scheduled here.
//
// Callers that need engine order on the wire must call Submit in that
// order, e.g. while holding the lock that serialized the engine calls.
//
// Cancelling ctx does not abort delivery: each call is bounded by the
// dispatcher timeout instead.
//
// Parameters:
//   - ctx: Request context; only its values are used
//   - actions: Plan actions in engine order
//
// Returns:
//   - Delivery: Wait on it to know the immediate actions were sent
func (d *Dispatcher) Submit(ctx context.Context, actions []types.Action) Delivery {
	ctx = context.WithoutCancel(ctx)
	wg := &sync.WaitGroup{}

	for _, a := range actions {
		if !a.Deferred() {
			d.enqueue(ctx, a, wg)
			continue
		}

		if d.mode == types.DelayModeWorker {
			if _, botDelayed := a.Command.Kind.Base(); botDelayed {
				d.enqueue(ctx, a, wg)
				continue
			}
		}

		d.schedule(a)
	}

	return Delivery{wg: wg}
}

// Close stops the lanes after they drain.
//
// Actions submitted after Close are sent directly by the submitting
// goroutine.
//
// Parameters:
//   - ctx: Bounds the wait for queued commands
//
// Returns:
//   - error: ctx.Err() if the lanes did not drain in time
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, l := range d.lanes {
			close(l.stop)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue appends a to its bot's lane, starting the lane on first use.
func (d *Dispatcher) enqueue(ctx context.Context, a types.Action, wg *sync.WaitGroup) {
	wg.Add(1)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.deliver(ctx, a)
		wg.Done()

		return
	}

	l, ok := d.lanes[a.WorkerID]
	if !ok {
		l = &lane{wake: make(chan struct{}, 1), stop: make(chan struct{})}
		d.lanes[a.WorkerID] = l
		d.wg.Add(1)
		go d.run(l)
	}
	l.push(job{ctx: ctx, action: a, done: wg.Done})
	d.mu.Unlock()
}

// run serves one lane until it is stopped and empty.
func (d *Dispatcher) run(l *lane) {
	defer d.wg.Done()

	for {
		for {
			j, ok := l.pop()
			if !ok {
				break
			}
			d.deliver(j.ctx, j.action)
			j.done()
		}

		select {
		case <-l.wake:
		case <-l.stop:
			// Nothing is pushed once stop is closed; drain what is left.
			for {
				j, ok := l.pop()
				if !ok {
					return
				}
				d.deliver(j.ctx, j.action)
				j.done()
			}
		}
	}
}

func (l *lane) push(j job) {
	l.mu.Lock()
	l.queue = append(l.queue, j)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *lane) pop() (job, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return job{}, false
	}
	j := l.queue[0]
	l.queue[0] = job{}
	l.queue = l.queue[1:]

	return j, true
}

// schedule queues the plain form of a delayed action. When it fires it
// joins the bot's lane behind whatever is already queued.
func (d *Dispatcher) schedule(a types.Action) {
	if base, ok := a.Command.Kind.Base(); ok {
		a.Command.Kind = base
	}
	delay := a.Delay
	a.Delay = 0

	err := d.scheduler.Schedule(a.Command.Kind.String(), delay, func(ctx context.Context) {
		var wg sync.WaitGroup
		d.enqueue(ctx, a, &wg)
		wg.Wait()
	})
	if err != nil {
		d.logger.Warn("deferred command not scheduled",
			"worker", a.WorkerID,
			"command", a.Command.Kind.String(),
			"error", err,
		)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, a types.Action) {
	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	out := d.client.Send(callCtx, a)
	d.record(out)
}

// record observes an outcome. The outcome itself goes nowhere else.
func (d *Dispatcher) record(out types.Outcome) {
	cmd := out.Action.Command.Kind.String()
	d.metrics.RecordCommand(cmd, out.OK(), out.Latency.Seconds())

	if out.OK() {
		d.logger.Debug("bot command delivered",
			"worker", out.Action.WorkerID,
			"command", cmd,
			"latency", out.Latency,
		)

		return
	}

	d.logger.Warn("bot command failed",
		"worker", out.Action.WorkerID,
		"command", cmd,
		"status", out.StatusCode,
		"error", out.Err,
	)
}
