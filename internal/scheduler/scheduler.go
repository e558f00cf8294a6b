// Package scheduler runs deferred bot commands at a fixed fire time.
//
// A task captures everything it needs when it is scheduled and never reads
// coordinator state again. Tasks are never cancelled: toggling the delay off
// or reassigning a bot does not stop a pending mute or leave. Bots treat
// those commands as idempotent, so a stale one is harmless.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/itaame/MCC-COMMS/internal/clock"
	"github.com/itaame/MCC-COMMS/types"
)

// Task is a deferred unit of work. ctx is cancelled only when Close gives up
// waiting for pending tasks.
type Task func(ctx context.Context)

type pendingTask struct {
	label string
	due   time.Time
}

// Scheduler fires tasks after a delay using the injected clock.
type Scheduler struct {
	clock   clock.Clock
	logger  types.Logger
	metrics types.CommandMetrics

	pending *xsync.Map[uint64, pendingTask]
	nextID  atomic.Uint64

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	ctx    context.Context //nolint:containedctx // lifetime context for fired tasks
	cancel context.CancelFunc
}

// New creates a scheduler.
//
// Parameters:
//   - clk: Clock driving fire times
//   - logger: Logger for task lifecycle messages
//   - metrics: Receives deferred counts and the pending gauge
//
// Returns:
//   - *Scheduler: Ready scheduler
func New(clk clock.Clock, logger types.Logger, metrics types.CommandMetrics) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		clock:   clk,
		logger:  logger,
		metrics: metrics,
		pending: xsync.NewMap[uint64, pendingTask](),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Schedule runs task once delay has elapsed.
//
// Parameters:
//   - label: Short name for logs and metrics (e.g., the command name)
//   - delay: Wait before firing; zero or negative fires right away
//   - task: Work to run
//
// Returns:
//   - error: ErrSchedulerClosed after Close
func (s *Scheduler) Schedule(label string, delay time.Duration, task Task) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.ErrSchedulerClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	id := s.nextID.Add(1)
	s.pending.Store(id, pendingTask{label: label, due: s.clock.Now().Add(delay)})
	s.metrics.RecordDeferred(label)
	s.metrics.RecordPendingDeferred(s.pending.Size())
	s.logger.Debug("task scheduled", "task", label, "delay", delay)

	s.clock.AfterFunc(delay, func() {
		defer s.wg.Done()
		defer func() {
			s.pending.Delete(id)
			s.metrics.RecordPendingDeferred(s.pending.Size())
		}()

		task(s.ctx)
	})

	return nil
}

// Pending returns the number of tasks that have not finished.
func (s *Scheduler) Pending() int {
	return s.pending.Size()
}

// Close stops accepting tasks and waits for pending ones to fire.
//
// If ctx ends first, the context handed to still-running tasks is cancelled
// and Close returns ctx.Err(). Tasks that have not fired yet still fire
// later, with a cancelled context.
//
// Parameters:
//   - ctx: Bounds the wait
//
// Returns:
//   - error: nil if every task finished, ctx.Err() otherwise
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		n := s.pending.Size()
		s.cancel()
		s.logger.Warn("scheduler closed with pending tasks", "pending", n)

		return ctx.Err()
	}
}
