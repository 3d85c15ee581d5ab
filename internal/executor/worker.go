package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// WorkerState is the lifecycle state of a worker
type WorkerState int32

const (
	// WorkerCreated means the worker exists but its goroutine has not started
	WorkerCreated WorkerState = iota
	// WorkerWaiting means the worker is blocked waiting for a task
	WorkerWaiting
	// WorkerExecuting means the worker is running a task
	WorkerExecuting
	// WorkerStopped means the worker loop has exited
	WorkerStopped
)

// String returns the state name
func (s WorkerState) String() string {
	switch s {
	case WorkerCreated:
		return "CREATED"
	case WorkerWaiting:
		return "WAITING"
	case WorkerExecuting:
		return "EXECUTING"
	case WorkerStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// WorkerStats is a snapshot of a single worker
type WorkerStats struct {
	ID       int    `json:"id" yaml:"id"`
	State    string `json:"state" yaml:"state"`
	Executed uint64 `json:"executed" yaml:"executed"`
	Elastic  bool   `json:"elastic" yaml:"elastic"`
}

// worker runs one consume-execute loop over the pool's queue
type worker struct {
	id   int
	pool *Pool

	// elastic workers were added by the cached-mode scaler
	elastic bool

	state    atomic.Int32
	executed atomic.Uint64
}

func newWorker(id int, pool *Pool, elastic bool) *worker {
	w := &worker{
		id:      id,
		pool:    pool,
		elastic: elastic,
	}
	w.state.Store(int32(WorkerCreated))
	return w
}

// start spawns the worker goroutine
func (w *worker) start() {
	go w.run()
}

func (w *worker) run() {
	defer w.pool.deregister(w)

	logger := w.pool.logger
	logger.Debug("worker started", "worker_id", w.id, "elastic", w.elastic)

	for {
		w.setState(WorkerWaiting)

		task, err := w.take()
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				logger.Debug("worker finished (queue closed)", "worker_id", w.id)
				return
			}
			if errors.Is(err, context.DeadlineExceeded) && w.pool.retire(w) {
				logger.Debug("worker retired after idle timeout", "worker_id", w.id)
				return
			}
			continue
		}

		// The queue lock is released by the time Take returns
		w.setState(WorkerExecuting)
		startTime := time.Now()
		task.Run()

		w.executed.Add(1)
		w.pool.completed.Add(1)
		logger.Debug("task completed",
			"worker_id", w.id,
			"duration", time.Since(startTime))
	}
}

// take waits for the next task; in cached mode the wait is bounded by the
// idle timeout so surplus workers can retire
func (w *worker) take() (Task, error) {
	if w.pool.cfg.mode != ModeCached || w.pool.cfg.idleTimeout <= 0 {
		return w.pool.queue.Take(context.Background())
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.pool.cfg.idleTimeout)
	defer cancel()
	return w.pool.queue.Take(ctx)
}

func (w *worker) setState(s WorkerState) {
	w.state.Store(int32(s))
}

func (w *worker) stats() WorkerStats {
	return WorkerStats{
		ID:       w.id,
		State:    WorkerState(w.state.Load()).String(),
		Executed: w.executed.Load(),
		Elastic:  w.elastic,
	}
}
