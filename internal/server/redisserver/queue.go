package redisserver

import (
	"context"
	"sync"

	"github.com/yndnr/respd-go/internal/infra/workerpool"
)

// serialQueue runs the tasks of one connection in FIFO order on the shared
// pool, never more than one at a time.
//
// The first task pushed to an idle queue submits a drain job. The drain job
// owns the queue until it finds it empty: between tasks it hands itself back
// to the pool so other connections get a turn, and keeps going inline when
// the pool queue is full.
type serialQueue struct {
	pool *workerpool.Pool

	// onIdle runs on the draining goroutine each time the queue empties.
	onIdle func()

	mu      sync.Mutex
	tasks   []func()
	running bool
}

func newSerialQueue(pool *workerpool.Pool, onIdle func()) *serialQueue {
	return &serialQueue{pool: pool, onIdle: onIdle}
}

// push appends task and starts a drain job if none is active. It blocks
// while the pool queue is full. If the pool refuses the job, the queue is
// drained on a dedicated goroutine so queued tasks always run.
func (q *serialQueue) push(ctx context.Context, task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	if err := q.pool.Submit(ctx, q.drain); err != nil {
		go q.drain()
	}
}

func (q *serialQueue) drain() {
	for {
		task, ok := q.pop()
		if !ok {
			if q.onIdle != nil {
				q.onIdle()
			}
			if q.release() {
				return
			}
			continue
		}
		task()
		if q.yield() {
			return
		}
	}
}

func (q *serialQueue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return task, true
}

// release gives up ownership if nothing was queued meanwhile.
func (q *serialQueue) release() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) > 0 {
		return false
	}
	q.running = false
	q.tasks = nil
	return true
}

// yield reports whether the rest of the queue was handed to another pool
// worker.
func (q *serialQueue) yield() bool {
	q.mu.Lock()
	more := len(q.tasks) > 0
	q.mu.Unlock()
	if !more {
		return false
	}
	return q.pool.TrySubmit(q.drain)
}

// len returns the number of queued tasks, excluding a running one.
func (q *serialQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
