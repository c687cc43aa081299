// Package worker runs assessment jobs from a queue on a fixed pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/riskengine/internal/domain/assess"
	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/logger"
	"github.com/okian/riskengine/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = model.Job

// Assessor runs one assessment. It never fails; degradation is in the outcome.
type Assessor interface {
	Run(ctx context.Context, p model.Proposal) assess.Outcome
}

// Sink receives finished jobs.
type Sink interface {
	Deliver(ctx context.Context, r model.JobResult) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	jobs     <-chan Job
	assessor Assessor
	sink     Sink
	name     string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	processed    *atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a worker that reads from jobs.
func NewInMemoryWorker(jobs <-chan Job, assessor Assessor, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		jobs:      jobs,
		assessor:  assessor,
		sink:      sink,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		processed: &atomic.Int64{},
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "error delivering job result", logger.String("job_id", job.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, job Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	out := w.assessor.Run(ctx, job.Proposal)
	metrics.RecordJobLatency(float64(time.Since(start).Milliseconds()))

	label := out.Label()
	metrics.RecordJobProcessed(label)
	w.processed.Add(1)
	w.logger.Debug(ctx, "job assessed",
		logger.String("job_id", job.ID),
		logger.String("name", job.Name),
		logger.String("outcome", label),
	)

	if err := w.sink.Deliver(ctx, model.JobResult{Job: job, Result: out.Result, Outcome: label, Err: out.Err}); err != nil {
		return fmt.Errorf("deliver job %s: %w", job.ID, err)
	}
	return nil
}

// Pool manages a fixed set of workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	logger    logger.Logger
}

// NewPool creates workerCount workers. A non-positive count uses one per CPU.
func NewPool(workerCount int, q Queue, assessor Assessor, sink Sink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		w := NewInMemoryWorker(nil, assessor, sink, WithName("worker-"+strconv.Itoa(i)))
		w.processed = &p.processed
		p.workers[i] = w
	}
	return p
}

// Start starts all workers on a shared dequeue channel.
func (p *Pool) Start(ctx context.Context) {
	jobs := p.queue.Dequeue(ctx)
	for _, w := range p.workers {
		w.jobs = jobs
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many jobs the pool has finished.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Wait blocks until every worker has exited, which happens once the queue is
// closed and drained.
func (p *Pool) Wait(ctx context.Context) error {
	defer metrics.UpdateWorkerActiveCount(0)
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker did not finish", logger.Int("worker_id", i))
			return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
		}
	}
	return nil
}

// Shutdown closes the queue, stops the workers and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	return p.Wait(shutdownCtx)
}
