package executor

import "errors"

// Errors returned by the queue and the pool
var (
	// ErrQueueFull indicates the queue stayed at capacity until the wait expired
	ErrQueueFull = errors.New("task queue is full")

	// ErrQueueClosed indicates the queue no longer accepts or yields tasks
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrNilTask indicates a nil task was submitted
	ErrNilTask = errors.New("task is nil")

	// ErrAlreadyStarted indicates the pool was started before
	ErrAlreadyStarted = errors.New("pool already started")

	// ErrConfigFrozen indicates a setting was changed after the queue was created
	ErrConfigFrozen = errors.New("pool configuration is frozen")

	// ErrPoolShutdown indicates the pool has been shut down
	ErrPoolShutdown = errors.New("pool is shut down")
)
