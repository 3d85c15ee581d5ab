// Package executor provides a bounded-capacity worker pool.
//
// A fixed set of long-lived workers pull tasks from a shared FIFO queue and
// run them. Producers submit under backpressure: when the queue is at its
// capacity threshold, Submit blocks for at most the submit timeout and then
// reports rejection instead of letting the queue grow without bound.
//
// # Basic Usage
//
//	pool, err := executor.NewPool(logger)
//	if err != nil {
//	    return err
//	}
//	pool.SetCapacityThreshold(256)
//
//	if err := pool.Start(4); err != nil {
//	    return err
//	}
//
//	accepted := pool.Submit(executor.TaskFunc(func() {
//	    // do work
//	}))
//	if !accepted {
//	    // queue stayed full for the submit timeout; retrying is up to the caller
//	}
//
// # Configuration
//
// Mode, capacity threshold, submit timeout and wake policy may be changed
// until the queue is created, which happens on Start or on the first
// submission. Later changes return ErrAlreadyStarted or ErrConfigFrozen.
//
// # Wake Policy
//
// WakeSignal (the default) wakes one waiter per unit of new work or free
// space, plus another taker whenever work is still pending after a removal.
// WakeBroadcast wakes every waiter on each change. Waiters always re-check
// their predicate, so both policies deliver every accepted task.
//
// # Cached Mode
//
// In ModeCached a scaler adds one worker per scale interval while the queue
// has stayed non-empty for the backlog threshold, up to the maximum worker
// count. Workers beyond the initial count retire after idling for the idle
// timeout.
//
// # Graceful Shutdown
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	if err := pool.Shutdown(ctx); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// Shutdown rejects new submissions, lets workers drain what is already
// queued and waits for every worker to exit.
//
// # Guarantees
//
//   - 0 <= queue length <= capacity at all times
//   - Tasks are dequeued in the order they were accepted
//   - Every accepted task runs exactly once, on exactly one worker
//   - Tasks never run while the queue lock is held
//   - Panics raised by a task are not recovered by the pool
package executor
