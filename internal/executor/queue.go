package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/eapache/queue"
)

// DefaultCapacity is the queue capacity used when none is configured
const DefaultCapacity = 1024

// WakePolicy controls how many waiters are woken on a queue state change
type WakePolicy string

const (
	// WakeSignal wakes a single waiter per unit of new work or free space
	WakeSignal WakePolicy = "signal"
	// WakeBroadcast wakes every waiter on each state change
	WakeBroadcast WakePolicy = "broadcast"
)

// ParseWakePolicy converts a string to a WakePolicy
func ParseWakePolicy(s string) (WakePolicy, error) {
	switch WakePolicy(s) {
	case WakeSignal, WakeBroadcast:
		return WakePolicy(s), nil
	case "":
		return WakeSignal, nil
	default:
		return "", fmt.Errorf("unknown wake policy %q (expected signal or broadcast)", s)
	}
}

// BoundedQueue is a capacity-limited FIFO hand-off between producers and workers
// All state is guarded by mu; tasks are never run while mu is held
type BoundedQueue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	// items holds pending tasks in enqueue order
	items *queue.Queue

	// capacity and the live count (items.Length) are both plain ints
	capacity int
	policy   WakePolicy
	closed   bool
}

// NewBoundedQueue creates a queue holding at most capacity tasks
// capacity <= 0 falls back to DefaultCapacity
func NewBoundedQueue(capacity int, policy WakePolicy) *BoundedQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if policy == "" {
		policy = WakeSignal
	}

	q := &BoundedQueue{
		items:    queue.New(),
		capacity: capacity,
		policy:   policy,
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Put appends task at the tail, blocking while the queue is full
// It returns an error wrapping ErrQueueFull and the context error when ctx
// is done before space frees up, leaving the queue unchanged
func (q *BoundedQueue) Put(ctx context.Context, task Task) error {
	if task == nil {
		return ErrNilTask
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	if q.full() {
		stop := context.AfterFunc(ctx, func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			q.notFull.Broadcast()
		})
		defer stop()

		for q.full() && !q.closed {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrQueueFull, err)
			}
			q.notFull.Wait()
		}

		if q.closed {
			return ErrQueueClosed
		}
	}

	q.items.Add(task)
	q.wake(q.notEmpty)
	return nil
}

// TryPut appends task without blocking and reports whether it was enqueued
func (q *BoundedQueue) TryPut(task Task) bool {
	if task == nil {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.full() {
		return false
	}

	q.items.Add(task)
	q.wake(q.notEmpty)
	return true
}

// Take removes and returns the head task, blocking while the queue is empty
// Once the queue is closed, remaining tasks are still handed out and
// ErrQueueClosed is returned after the last one. If ctx is done first the
// context error is returned
func (q *BoundedQueue) Take(ctx context.Context) (Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.empty() && !q.closed {
		stop := context.AfterFunc(ctx, func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			q.notEmpty.Broadcast()
		})
		defer stop()

		for q.empty() && !q.closed {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			q.notEmpty.Wait()
		}
	}

	if q.empty() {
		return nil, ErrQueueClosed
	}

	task := q.items.Remove().(Task)
	q.wake(q.notFull)

	// More work is still pending, hand it to another idle worker
	if !q.empty() {
		q.wake(q.notEmpty)
	}

	return task, nil
}

// Close stops the queue from accepting tasks and wakes every waiter
// Calling Close more than once has no effect
func (q *BoundedQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// Len returns the number of pending tasks
func (q *BoundedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Cap returns the queue capacity
func (q *BoundedQueue) Cap() int {
	return q.capacity
}

// Closed reports whether Close has been called
func (q *BoundedQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Policy returns the wake policy in use
func (q *BoundedQueue) Policy() WakePolicy {
	return q.policy
}

func (q *BoundedQueue) full() bool {
	return q.items.Length() >= q.capacity
}

func (q *BoundedQueue) empty() bool {
	return q.items.Length() == 0
}

// wake must be called with mu held
func (q *BoundedQueue) wake(c *sync.Cond) {
	if q.policy == WakeBroadcast {
		c.Broadcast()
		return
	}
	c.Signal()
}
