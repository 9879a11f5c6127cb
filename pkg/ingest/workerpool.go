package ingest

import (
	"context"
	"sync"
	"sync/atomic"
)

// Job analyzes one sentence. A returned error is logged and counted; the
// ingester reports sentence failures through its own result channel.
type Job func(ctx context.Context) error

// WorkerPool fans sentence jobs out to a fixed set of goroutines.
type WorkerPool struct {
	queue   chan Job
	closing chan struct{}
	running sync.WaitGroup
	size    int

	mu       sync.Mutex
	isClosed bool
	// inflight counts submitters that may still send on queue, so Close
	// only closes it once nobody can.
	inflight sync.WaitGroup

	done   atomic.Int64
	failed atomic.Int64
}

// NewWorkerPool returns a pool of workers goroutines fed by a queue of the
// given depth. Non-positive values fall back to one worker and a queue twice
// the worker count.
func NewWorkerPool(workers, queue int) *WorkerPool {
	workers = max(workers, 1)
	if queue <= 0 {
		queue = 2 * workers
	}
	return &WorkerPool{
		queue:   make(chan Job, queue),
		closing: make(chan struct{}),
		size:    workers,
	}
}

// Start launches the workers. They stop when ctx is done, or once Close has
// been called and the queue is drained.
func (p *WorkerPool) Start(ctx context.Context) {
	p.running.Add(p.size)
	for range p.size {
		go p.work(ctx)
	}
}

func (p *WorkerPool) work(ctx context.Context) {
	defer p.running.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			if err := job(ctx); err != nil {
				p.failed.Add(1)
				Logger.Debug().Err(err).Msg("job failed")
			}
			p.done.Add(1)
		}
	}
}

// Submit queues job, waiting for room. It fails with ErrPoolClosed once
// Close has been called.
func (p *WorkerPool) Submit(job Job) error {
	return p.SubmitCtx(context.Background(), job)
}

// SubmitCtx is Submit bounded by ctx.
func (p *WorkerPool) SubmitCtx(ctx context.Context, job Job) error {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.inflight.Add(1)
	p.mu.Unlock()
	defer p.inflight.Done()

	select {
	case p.queue <- job:
		return nil
	case <-p.closing:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Processed returns how many jobs have run and how many of them failed.
func (p *WorkerPool) Processed() (done, failed int64) {
	return p.done.Load(), p.failed.Load()
}

// Close refuses further jobs, unblocks waiting submitters, and waits for the
// workers to finish what is queued. It is safe to call more than once.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return
	}
	p.isClosed = true
	close(p.closing)
	p.mu.Unlock()

	p.inflight.Wait()
	close(p.queue)
	p.running.Wait()
}

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError is the typed error of WorkerPool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
