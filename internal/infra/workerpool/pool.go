package workerpool

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Defaults match the thread count the server has always used.
const (
	DefaultSize      = 10
	DefaultQueueSize = 1024
)

// ErrClosed is returned when submitting to a stopped pool.
var ErrClosed = errors.New("workerpool: closed")

// Task is a unit of work.
type Task func()

// Pool runs tasks on a fixed number of goroutines.
type Pool struct {
	size   int
	tasks  chan Task
	logger *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started atomic.Bool
	wg      sync.WaitGroup

	busy      atomic.Int64
	completed atomic.Uint64
	panics    atomic.Uint64
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used to report task panics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a pool with size workers and a queue of queueSize pending
// tasks. Non-positive values fall back to the defaults.
func New(size, queueSize int, opts ...Option) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	p := &Pool{
		size:   size,
		tasks:  make(chan Task, queueSize),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. Calling Start more than once is a no-op.
func (p *Pool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.wg.Add(p.size)
	for i := 0; i < p.size; i++ {
		go p.work(i)
	}
	p.logger.Info("worker pool started", "workers", p.size, "queue_size", cap(p.tasks))
}

// Submit queues task, blocking while the queue is full.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues task if there is room and reports whether it did.
func (p *Pool) TrySubmit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Stop rejects new tasks, lets the workers drain the queue and waits for
// them to exit or for ctx to end.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	if !p.started.Load() {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped", "completed", p.completed.Load())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// QueueDepth returns the number of queued tasks.
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}

// QueueCapacity returns the queue size.
func (p *Pool) QueueCapacity() int {
	return cap(p.tasks)
}

// Busy returns the number of workers currently running a task.
func (p *Pool) Busy() int {
	return int(p.busy.Load())
}

// Completed returns the number of tasks run so far, including panicked ones.
func (p *Pool) Completed() uint64 {
	return p.completed.Load()
}

// Panics returns the number of tasks that panicked.
func (p *Pool) Panics() uint64 {
	return p.panics.Load()
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task Task) {
	p.busy.Add(1)
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			p.logger.Error("worker task panicked",
				"worker", id,
				"panic", r,
				"stack", string(debug.Stack()))
		}
		p.busy.Add(-1)
		p.completed.Add(1)
	}()
	task()
}
