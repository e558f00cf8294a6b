package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/itaame/MCC-COMMS/types"
)

// delayKey is the channel-name slot used for the delay policy record.
const delayKey = "_delay"

// Source provides the snapshot to mirror. *engine.Engine satisfies it.
type Source interface {
	View() types.View
	States() map[string]types.ChannelState
}

// Config holds publisher settings.
type Config struct {
	// Prefix is the first key segment, normally the console role.
	Prefix string

	// Interval is the full rewrite period. Zero disables periodic rewrites.
	Interval time.Duration

	// Timeout bounds one write pass.
	Timeout time.Duration

	Logger  types.Logger
	Metrics types.PublisherMetrics
}

type channelRecord struct {
	State  types.State `json:"state"`
	Worker string      `json:"worker,omitempty"`
	Count  int         `json:"count"`
}

type delayRecord struct {
	Enabled bool    `json:"enabled"`
	Seconds float64 `json:"seconds"`
}

// Publisher writes channel views to a KV bucket in the background.
type Publisher struct {
	kv       jetstream.KeyValue
	prefix   string
	interval time.Duration
	timeout  time.Duration
	logger   types.Logger
	metrics  types.PublisherMetrics

	writeMu sync.Mutex
	last    map[string][]byte

	mu      sync.Mutex
	source  Source
	started bool
	notify  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New wraps an existing KV bucket.
//
// Parameters:
//   - kv: Bucket to write to
//   - cfg: Prefix, timing and observability
//
// Returns:
//   - *Publisher: Publisher ready to Start
func New(kv jetstream.KeyValue, cfg Config) *Publisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &Publisher{
		kv:       kv,
		prefix:   cfg.Prefix,
		interval: cfg.Interval,
		timeout:  timeout,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		last:     make(map[string][]byte),
	}
}

// Open creates or opens bucket and wraps it.
//
// Parameters:
//   - ctx: Bounds bucket creation
//   - js: JetStream context
//   - bucket: Bucket name
//   - cfg: Publisher settings
//
// Returns:
//   - *Publisher: Publisher ready to Start
//   - error: Bucket could not be created or opened
func Open(ctx context.Context, js jetstream.JetStream, bucket string, cfg Config) (*Publisher, error) {
	const maxRetries = 5
	kv, err := ensureBucket(ctx, js, bucket, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to open view bucket %s: %w", bucket, err)
	}

	return New(kv, cfg), nil
}

// Start launches the background writer and performs an initial write pass.
//
// Parameters:
//   - ctx: Bounds the initial pass
//   - src: Snapshot provider
//
// Returns:
//   - error: ErrAlreadyStarted if running
func (p *Publisher) Start(ctx context.Context, src Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return types.ErrAlreadyStarted
	}

	p.source = src
	p.started = true
	p.notify = make(chan struct{}, 1)
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	if err := p.PublishNow(ctx, src, true); err != nil {
		p.logFailure("initial view publish failed", err)
	}

	go p.loop(p.notify, p.stopCh, p.doneCh)

	return nil
}

// Notify asks the writer to publish the current view. It never blocks;
// notifications arriving while a pass is pending are merged.
func (p *Publisher) Notify() {
	p.mu.Lock()
	ch := p.notify
	started := p.started
	p.mu.Unlock()

	if !started {
		return
	}

	select {
	case ch <- struct{}{}:
	default:
	}
}

// Stop ends the writer after one final pass.
//
// Returns:
//   - error: ErrNotStarted if not running
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return types.ErrNotStarted
	}
	p.started = false
	close(p.stopCh)
	doneCh := p.doneCh
	src := p.source
	p.mu.Unlock()

	<-doneCh

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.PublishNow(ctx, src, false); err != nil {
		return fmt.Errorf("stopped but final publish failed: %w", err)
	}

	return nil
}

// IsStarted reports whether the writer is running.
func (p *Publisher) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.started
}

func (p *Publisher) loop(notify <-chan struct{}, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-stopCh:
			return
		case <-notify:
			p.pass(false)
		case <-tick:
			p.pass(true)
		}
	}
}

func (p *Publisher) pass(force bool) {
	p.mu.Lock()
	src := p.source
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.PublishNow(ctx, src, force); err != nil {
		p.logFailure("view publish failed", err)
	}
}

// PublishNow writes the current snapshot synchronously.
//
// Parameters:
//   - ctx: Bounds the pass
//   - src: Snapshot provider
//   - force: Rewrite keys whose value has not changed
//
// Returns:
//   - error: ErrPublishFailed wrapping every failed write, nil if all succeeded
func (p *Publisher) PublishNow(ctx context.Context, src Source, force bool) error {
	view := src.View()
	states := src.States()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	var errs []error
	for _, name := range view.Order {
		cv := view.Channels[name]
		rec := channelRecord{State: cv.State, Worker: states[name].Worker, Count: cv.Count}
		if err := p.put(ctx, Key(p.prefix, name), rec, force); err != nil {
			errs = append(errs, err)
		}
	}

	rec := delayRecord{Enabled: view.Delay.Enabled, Seconds: view.Delay.Seconds()}
	if err := p.put(ctx, p.delayKey(), rec, force); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", types.ErrPublishFailed, errors.Join(errs...))
	}

	return nil
}

// put writes one record unless it equals the last value written. Caller
// holds writeMu.
func (p *Publisher) put(ctx context.Context, key string, rec any, force bool) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if !force && bytes.Equal(p.last[key], value) {
		return nil
	}

	if _, err := p.kv.Put(ctx, key, value); err != nil {
		p.metrics.RecordViewPublished(false)
		delete(p.last, key)

		return fmt.Errorf("put %s: %w", key, err)
	}
	p.metrics.RecordViewPublished(true)
	p.last[key] = value

	return nil
}

func (p *Publisher) delayKey() string {
	return sanitize(p.prefix) + "." + delayKey
}

func (p *Publisher) logFailure(msg string, err error) {
	if isConnectivityError(err) {
		p.logger.Warn(msg+" (broker unreachable)", "error", err)
		return
	}
	p.logger.Error(msg, "error", err)
}
