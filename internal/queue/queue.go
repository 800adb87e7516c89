// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jeranaias/habitrun/internal/logging"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrClosed is returned for jobs submitted to, or still waiting in, a
	// closed queue.
	ErrClosed = errors.New("prompt queue closed")

	// ErrTaskTimeout is returned when a task exceeds the queue timeout. The
	// queue waits up to the grace period for the canceled task to return
	// before it moves on to the next job.
	ErrTaskTimeout = errors.New("prompt task timed out")
)

// =============================================================================
// OPTIONS
// =============================================================================

// Observer receives every finished job. It is called from the worker
// goroutine before the job's caller is released, so it must not block.
type Observer interface {
	JobFinished(info Info)
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(q *Queue) { q.log = logging.For(logger, "queue") }
}

// WithObserver sets the finished-job observer.
func WithObserver(o Observer) Option {
	return func(q *Queue) { q.observer = o }
}

// WithTimeout bounds each task. Zero means no timeout.
//
// On timeout the task context is canceled and the worker waits up to the
// grace period (WithTimeoutGrace) for the task to return. A task that ignores
// cancellation for longer keeps running in the background while the next job
// starts, so at most one such task can overlap each later job.
func WithTimeout(d time.Duration) Option {
	return func(q *Queue) { q.timeout = d }
}

// WithTimeoutGrace sets how long a timed-out task may take to return after
// its context is canceled. Zero moves on immediately.
func WithTimeoutGrace(d time.Duration) Option {
	return func(q *Queue) {
		if d >= 0 {
			q.grace = d
		}
	}
}

// WithMinInterval spaces task starts at least d apart. Zero means no pacing.
func WithMinInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			q.limiter = nil
		}
	}
}

// WithHistory keeps the last n finished jobs. Zero keeps none.
func WithHistory(n int) Option {
	return func(q *Queue) { q.maxHistory = n }
}

// =============================================================================
// QUEUE
// =============================================================================

// Queue is a single-slot FIFO serializer. Create it with New; the zero value
// is not usable.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []*Job
	running *Job
	closed  bool
	history []Info

	maxHistory int
	timeout    time.Duration
	grace      time.Duration
	limiter    *rate.Limiter
	observer   Observer
	log        *logrus.Entry
	now        func() time.Time

	wg sync.WaitGroup
}

// defaultTimeoutGrace covers HTTP calls unwinding after cancellation.
const defaultTimeoutGrace = 5 * time.Second

// New creates a queue and starts its worker.
func New(opts ...Option) *Queue {
	q := &Queue{
		maxHistory: 50,
		grace:      defaultTimeoutGrace,
		log:        logging.For(nil, "queue"),
		now:        time.Now,
	}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}

	q.wg.Add(1)
	go q.worker()
	return q
}

// Submit appends a task and returns its job. It never blocks on other jobs.
// If ctx is done by the time the job reaches the head of the queue, the
// task is skipped and the job fails with ctx.Err().
func (q *Queue) Submit(ctx context.Context, label string, fn Func) (*Job, error) {
	if fn == nil {
		return nil, errors.New("queue: nil task")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	job := &Job{
		ctx:  ctx,
		fn:   fn,
		done: make(chan struct{}),
		info: Info{
			ID:         uuid.New().String(),
			Label:      label,
			Status:     StatusQueued,
			EnqueuedAt: q.now(),
		},
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	q.pending = append(q.pending, job)
	q.cond.Signal()
	return job, nil
}

// Do submits fn and waits for it, returning fn's own result or error.
func Do[T any](ctx context.Context, q *Queue, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	job, err := q.Submit(ctx, label, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}

	v, err := job.Wait()
	if err != nil {
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// Pending returns the number of jobs waiting to start.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Running returns the job currently executing, if any.
func (q *Queue) Running() (Info, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running == nil {
		return Info{}, false
	}
	return q.running.info, true
}

// History returns finished jobs, oldest first.
func (q *Queue) History() []Info {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Info, len(q.history))
	copy(out, q.history)
	return out
}

// Close stops accepting jobs, fails every job that has not started with
// ErrClosed, and waits for the running task to settle.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.wg.Wait()
		return
	}
	q.closed = true
	dropped := q.pending
	q.pending = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	for _, job := range dropped {
		q.finish(job, StatusSkipped, nil, ErrClosed)
	}
	q.wg.Wait()
}

// =============================================================================
// WORKER
// =============================================================================

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		job := q.next()
		if job == nil {
			return
		}
		q.run(job)
	}
}

// next blocks until a job is available. It returns nil once the queue is
// closed.
func (q *Queue) next() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil
	}
	job := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return job
}

type outcome struct {
	value any
	err   error
}

func (q *Queue) run(job *Job) {
	if err := job.ctx.Err(); err != nil {
		q.finish(job, StatusSkipped, nil, err)
		return
	}
	if q.limiter != nil {
		if err := q.limiter.Wait(job.ctx); err != nil {
			q.finish(job, StatusSkipped, nil, err)
			return
		}
	}

	q.mu.Lock()
	job.info.Status = StatusRunning
	job.info.StartedAt = q.now()
	q.running = job
	q.mu.Unlock()

	ctx, cancel := job.ctx, context.CancelFunc(func() {})
	if q.timeout > 0 {
		ctx, cancel = context.WithTimeout(job.ctx, q.timeout)
	}
	defer cancel()

	results := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- outcome{err: fmt.Errorf("prompt task panicked: %v", r)}
			}
		}()
		v, err := job.fn(ctx)
		results <- outcome{value: v, err: err}
	}()

	var out outcome
	select {
	case out = <-results:
	case <-ctx.Done():
		if job.ctx.Err() != nil {
			// The caller gave up; the task sees the same cancellation and
			// should return promptly.
			out = <-results
		} else {
			out = outcome{err: fmt.Errorf("%w after %s", ErrTaskTimeout, q.timeout)}
			if !q.awaitCanceled(results) {
				q.log.WithFields(logrus.Fields{
					"job":   job.info.ID,
					"label": job.info.Label,
					"grace": q.grace.String(),
				}).Warn("timed-out task ignored cancellation, starting next job")
			}
		}
	}

	q.mu.Lock()
	q.running = nil
	q.mu.Unlock()

	if out.err != nil {
		q.finish(job, StatusFailed, nil, out.err)
		return
	}
	q.finish(job, StatusDone, out.value, nil)
}

// awaitCanceled waits up to the grace period for a canceled task to return.
func (q *Queue) awaitCanceled(results <-chan outcome) bool {
	if q.grace <= 0 {
		select {
		case <-results:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(q.grace)
	defer timer.Stop()
	select {
	case <-results:
		return true
	case <-timer.C:
		return false
	}
}

// finish records the outcome, reports failures, then releases the caller.
func (q *Queue) finish(job *Job, status Status, value any, err error) {
	q.mu.Lock()
	job.info.Status = status
	job.info.EndedAt = q.now()
	if err != nil {
		job.info.Err = err.Error()
	}
	info := job.info
	if q.maxHistory > 0 {
		q.history = append(q.history, info)
		if over := len(q.history) - q.maxHistory; over > 0 {
			q.history = append([]Info(nil), q.history[over:]...)
		}
	}
	q.mu.Unlock()

	if err != nil {
		q.log.WithFields(logrus.Fields{
			"job":    info.ID,
			"label":  info.Label,
			"status": info.Status,
			"waited": info.Waited().String(),
			"ran":    info.Ran().String(),
		}).WithError(err).Warn("prompt task failed")
	} else {
		q.log.WithFields(logrus.Fields{
			"job":   info.ID,
			"label": info.Label,
			"ran":   info.Ran().String(),
		}).Debug("prompt task done")
	}
	if q.observer != nil {
		q.observer.JobFinished(info)
	}

	job.result = value
	job.err = err
	close(job.done)
}
