// Package work provides a bounded worker pool for background pipeline runs.
// It replaces unbounded per-alert goroutines with a fixed worker count and a
// bounded queue so an alert storm degrades into rejections instead of
// unbounded memory growth.
package work

import (
	"context"
	"errors"
	"sync"

	"github.com/linnemanlabs/go-core/log"
)

// ErrQueueFull is returned by Submit when the queue has no room.
var ErrQueueFull = errors.New("work queue full")

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("pool closed")

// Task is one unit of background work.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed set of workers fed by a bounded queue.
type Pool struct {
	logger log.Logger
	tasks  chan Task
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New starts a pool with the given worker count and queue capacity.
func New(workers, queueSize int, logger log.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	// At least one queue slot, so a submit to a fresh pool is never rejected
	// before a worker has been scheduled.
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = log.Nop()
	}

	p := &Pool{
		logger: logger,
		tasks:  make(chan Task, queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues a task. It never blocks: a full queue is reported as
// ErrQueueFull so the caller can apply its own backpressure policy.
func (p *Pool) Submit(t Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.tasks <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Depth returns the number of queued tasks not yet picked up by a worker.
func (p *Pool) Depth() int {
	return len(p.tasks)
}

// Close stops accepting tasks and waits for queued and in-flight tasks to
// finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.run(t)
	}
}

func (p *Pool) run(t Task) {
	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(ctx, nil, "worker task panicked", "panic", r)
		}
	}()
	t(ctx)
}
