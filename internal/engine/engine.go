package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/itaame/MCC-COMMS/internal/clock"
	"github.com/itaame/MCC-COMMS/internal/pool"
	"github.com/itaame/MCC-COMMS/types"
)

// Config holds the engine's dependencies.
type Config struct {
	// Channels is the catalog in display order. Later duplicates are ignored.
	Channels []types.Channel

	// Pool is the bot roster. The engine takes ownership of it.
	Pool *pool.Pool

	// Delay is the initial delay policy.
	Delay types.DelayPolicy

	Clock   clock.Clock
	Logger  types.Logger
	Metrics types.EngineMetrics
}

// Engine arbitrates channels over the bot pool.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	catalog map[string]types.Channel
	order   []string
	states  map[string]types.ChannelState
	counts  map[string]int
	pool    *pool.Pool
	delay   types.DelayPolicy

	clock   clock.Clock
	logger  types.Logger
	metrics types.EngineMetrics
}

// New creates an engine with every channel Off.
//
// Parameters:
//   - cfg: Catalog, pool, initial delay policy and observability hooks
//
// Returns:
//   - *Engine: Ready engine
func New(cfg Config) *Engine {
	e := &Engine{
		catalog: make(map[string]types.Channel, len(cfg.Channels)),
		order:   make([]string, 0, len(cfg.Channels)),
		states:  make(map[string]types.ChannelState, len(cfg.Channels)),
		counts:  make(map[string]int, len(cfg.Channels)),
		pool:    cfg.Pool,
		delay:   cfg.Delay,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}

	for _, ch := range cfg.Channels {
		if ch.Name == "" {
			e.logger.Warn("skipping catalog entry without a name")
			continue
		}
		if _, dup := e.catalog[ch.Name]; dup {
			e.logger.Warn("skipping duplicate catalog entry", "channel", ch.Name)
			continue
		}
		e.catalog[ch.Name] = ch
		e.order = append(e.order, ch.Name)
		e.states[ch.Name] = types.ChannelState{State: types.StateOff}
		e.counts[ch.Name] = 0
	}

	e.metrics.RecordIdleWorkers(e.pool.IdleCount())
	e.metrics.RecordDelayEnabled(e.delay.Enabled)

	return e
}

// Request moves a channel toward desired.
//
// Parameters:
//   - name: Channel name
//   - desired: Target state
//
// Returns:
//   - Plan: Outcome, transitions and remote actions to deliver
//   - error: ErrUnknownChannel or ErrInvalidState
func (e *Engine) Request(name string, desired types.State) (Plan, error) {
	if !desired.Valid() {
		return Plan{}, fmt.Errorf("%w: %d", types.ErrInvalidState, desired)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ch, ok := e.catalog[name]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", types.ErrUnknownChannel, name)
	}

	plan := e.apply(ch, desired)
	e.observe(desired, &plan)

	return plan, nil
}

// Toggle advances a channel along Off → Listening → Talking → Listening.
//
// The next state is computed and applied under one lock acquisition. A
// channel that cannot listen is rejected without change.
//
// Parameters:
//   - name: Channel name
//
// Returns:
//   - Plan: Outcome, transitions and remote actions to deliver
//   - error: ErrUnknownChannel
func (e *Engine) Toggle(name string) (Plan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, ok := e.catalog[name]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", types.ErrUnknownChannel, name)
	}

	cur := e.states[name]
	if !ch.CanListen {
		plan := Plan{Result: types.Result{Channel: name, Outcome: types.OutcomeRejected, State: cur}}
		e.observe(cur.State, &plan)

		return plan, nil
	}

	desired := NextState(ch, cur.State)
	plan := e.apply(ch, desired)
	e.observe(desired, &plan)

	return plan, nil
}

// apply runs the request algorithm. Caller holds e.mu.
func (e *Engine) apply(ch types.Channel, desired types.State) Plan {
	cur := e.states[ch.Name]
	plan := Plan{Result: types.Result{Channel: ch.Name, Outcome: types.OutcomeApplied, State: cur}}

	if !ch.CanListen && desired != types.StateOff {
		plan.Result.Outcome = types.OutcomeRejected
		return plan
	}

	// Listen-only channels asked to talk go all the way to Off.
	if ch.CanListen && !ch.CanTalk && desired > types.StateListening {
		desired = types.StateOff
	}

	if desired == types.StateOff {
		e.turnOff(ch.Name, cur, &plan)
		return plan
	}

	worker := cur.Worker
	if worker == "" {
		id, ok := e.pool.AcquireIdle()
		if !ok {
			plan.Result.Outcome = types.OutcomeDropped
			return plan
		}
		e.pool.Assign(id, ch.Name)
		worker = id
	}
	endpoint := e.pool.Endpoint(worker)
	delay := e.delay.Effective()

	switch desired {
	case types.StateTalking:
		e.demoteTalkers(ch.Name, &plan, delay)
		plan.send(worker, endpoint, types.Command{Kind: types.CmdJoin, Loop: ch.Name})
		plan.sendAfter(worker, endpoint, types.Command{Kind: types.CmdTalk}, delay)
	case types.StateListening:
		if cur.State == types.StateTalking {
			plan.mute(worker, endpoint, delay)
		} else {
			plan.send(worker, endpoint, types.Command{Kind: types.CmdJoin, Loop: ch.Name})
			plan.send(worker, endpoint, types.Command{Kind: types.CmdMute})
		}
	}

	e.setState(ch.Name, types.ChannelState{State: desired, Worker: worker}, &plan)
	plan.Result.State = e.states[ch.Name]

	// Repeating the current state re-sends its commands so a bot that
	// drifted converges again, but nothing changed.
	if len(plan.Events) == 0 {
		plan.Result.Outcome = types.OutcomeUnchanged
	}

	return plan
}

// turnOff releases the channel's bot. Caller holds e.mu.
func (e *Engine) turnOff(name string, cur types.ChannelState, plan *Plan) {
	if cur.IsOff() {
		plan.Result.Outcome = types.OutcomeUnchanged
		return
	}

	endpoint := e.pool.Endpoint(cur.Worker)
	delay := e.delay.Effective()
	if delay > 0 && cur.State == types.StateTalking {
		plan.sendAfter(cur.Worker, endpoint, types.Command{Kind: types.CmdLeaveAfterDelay}, delay)
	} else {
		plan.send(cur.Worker, endpoint, types.Command{Kind: types.CmdLeave})
		plan.send(cur.Worker, endpoint, types.Command{Kind: types.CmdMute})
	}
	e.pool.Release(cur.Worker)

	e.setState(name, types.ChannelState{State: types.StateOff}, plan)
	plan.Result.State = e.states[name]
}

// demoteTalkers moves every other Talking channel to Listening, keeping
// its bot. Caller holds e.mu.
func (e *Engine) demoteTalkers(except string, plan *Plan, delay time.Duration) {
	for _, name := range e.order {
		if name == except {
			continue
		}
		st := e.states[name]
		if st.State != types.StateTalking || st.Worker == "" {
			continue
		}

		plan.mute(st.Worker, e.pool.Endpoint(st.Worker), delay)
		e.setState(name, types.ChannelState{State: types.StateListening, Worker: st.Worker}, plan)
		e.metrics.RecordPreemption()
		e.logger.Info("demoted talking channel", "channel", name, "worker", st.Worker, "preempted_by", except)
	}
}

// setState records a transition if the state actually changed. Caller holds e.mu.
func (e *Engine) setState(name string, to types.ChannelState, plan *Plan) {
	from := e.states[name]
	e.states[name] = to
	if from == to {
		return
	}

	plan.Events = append(plan.Events, types.ChannelEvent{
		Channel: name,
		From:    from,
		To:      to,
		At:      e.clock.Now(),
	})
	e.metrics.RecordTransition(from.State, to.State)
}

// observe logs and records metrics for a finished request. Caller holds e.mu.
func (e *Engine) observe(desired types.State, plan *Plan) {
	res := plan.Result
	e.metrics.RecordRequest(desired.String(), res.Outcome.String())
	e.metrics.RecordIdleWorkers(e.pool.IdleCount())

	switch res.Outcome {
	case types.OutcomeDropped:
		e.logger.Info("request dropped: no idle bot", "channel", res.Channel, "desired", desired.String())
	case types.OutcomeRejected:
		e.logger.Info("request rejected: channel cannot listen", "channel", res.Channel, "desired", desired.String())
	default:
		e.logger.Debug("request handled",
			"channel", res.Channel,
			"desired", desired.String(),
			"state", res.State.State.String(),
			"worker", res.State.Worker,
			"actions", len(plan.Actions),
		)
	}
}
