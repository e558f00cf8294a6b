// Package status polls bots for per-channel user counts and merges them
// into the coordinator view.
//
// Counts are display-only enrichment. They never influence assignment. A
// refresh in which no bot answers leaves the previous counts in place.
package status

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/itaame/MCC-COMMS/internal/clock"
	"github.com/itaame/MCC-COMMS/internal/pool"
	"github.com/itaame/MCC-COMMS/types"
)

// Target is the state owner the aggregator reads the roster from and
// merges counts into. *engine.Engine satisfies it.
type Target interface {
	Workers() []pool.Worker
	MergeCounts(counts map[string]int) int
	View() types.View
}

// Config holds aggregator dependencies.
type Config struct {
	Target Target
	Client types.BotClient

	// Timeout bounds each bot's status fetch.
	Timeout time.Duration

	// Interval is the background refresh period used by Start.
	Interval time.Duration

	// OnRefresh, if set, runs after every background refresh.
	OnRefresh func(ctx context.Context, answered int)

	Clock   clock.Clock
	Logger  types.Logger
	Metrics types.StatusMetrics
}

// Aggregator fetches bot status in parallel and merges the replies.
type Aggregator struct {
	target    Target
	client    types.BotClient
	timeout   time.Duration
	interval  time.Duration
	onRefresh func(ctx context.Context, answered int)
	clock     clock.Clock
	logger    types.Logger
	metrics   types.StatusMetrics

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates an aggregator.
func New(cfg Config) *Aggregator {
	return &Aggregator{
		target:    cfg.Target,
		client:    cfg.Client,
		timeout:   cfg.Timeout,
		interval:  cfg.Interval,
		onRefresh: cfg.OnRefresh,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Refresh polls every bot once and merges what comes back.
//
// All bots are fetched concurrently, each bounded by the configured
// timeout. Every successful reply is applied in roster order to every
// catalog channel, a channel missing from the reply counting as 0, so the
// last answering bot decides. Failed bots are skipped, logged and counted;
// they never surface as errors.
//
// Parameters:
//   - ctx: Bounds the whole refresh
//
// Returns:
//   - int: Number of bots that answered
func (a *Aggregator) Refresh(ctx context.Context) int {
	workers := a.target.Workers()
	replies := make([]map[string]int, len(workers))

	var g errgroup.Group
	for i, w := range workers {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			counts, err := a.client.Status(fetchCtx, w.Endpoint)
			a.metrics.RecordStatusPoll(w.ID, err == nil)
			if err != nil {
				a.logger.Debug("bot status unavailable", "worker", w.ID, "error", err)
				return nil
			}
			if counts == nil {
				counts = map[string]int{}
			}
			replies[i] = counts

			return nil
		})
	}
	_ = g.Wait()

	order := a.target.View().Order
	merged := make(map[string]int, len(order))
	answered := 0
	for _, counts := range replies {
		if counts == nil {
			continue
		}
		answered++
		for _, name := range order {
			merged[name] = counts[name]
		}
	}
	if answered == 0 {
		return 0
	}

	a.target.MergeCounts(merged)
	for _, name := range order {
		a.metrics.RecordOccupancy(name, merged[name])
	}

	return answered
}

// Start runs Refresh every interval until Stop is called.
//
// The first refresh happens immediately in the background.
//
// Parameters:
//   - ctx: Parent context for refreshes; cancelling it also ends the loop
//
// Returns:
//   - error: ErrAggregatorAlreadyStarted if already running
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return types.ErrAggregatorAlreadyStarted
	}
	if a.interval <= 0 {
		return nil
	}

	a.started = true
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})

	ticker := a.clock.NewTicker(a.interval)
	go a.loop(ctx, ticker, a.stopCh, a.doneCh)

	return nil
}

// Stop ends the background loop and waits for it to exit.
//
// Returns:
//   - error: ErrAggregatorNotStarted if Start never launched a loop
func (a *Aggregator) Stop() error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return types.ErrAggregatorNotStarted
	}
	a.started = false
	close(a.stopCh)
	doneCh := a.doneCh
	a.mu.Unlock()

	<-doneCh

	return nil
}

// IsStarted reports whether the background loop is running.
func (a *Aggregator) IsStarted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.started
}

func (a *Aggregator) loop(ctx context.Context, ticker *clock.Ticker, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer ticker.Stop()

	a.refreshOnce(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.refreshOnce(ctx)
		}
	}
}

func (a *Aggregator) refreshOnce(ctx context.Context) {
	answered := a.Refresh(ctx)
	if a.onRefresh != nil {
		a.onRefresh(ctx, answered)
	}
}
