package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aryankumar/taskpool/internal/util"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/wait"
)

// noCopy makes go vet's copylocks check flag copies of a Pool
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Pool owns a bounded task queue and the workers draining it
// A Pool must not be copied after first use; always handle it via pointer
type Pool struct {
	noCopy noCopy

	// mu protects cfg until the queue is created, and the worker registry
	mu  sync.Mutex
	cfg settings

	// queue is created on Start or the first submission, freezing cfg
	queue *BoundedQueue

	// workers holds every worker ever created, keyed by id; live holds the
	// ids of those still running their loop
	workers map[int]*worker
	live    sets.Set[int]
	nextID  int

	initialWorkers int
	maxWorkers     int
	peakWorkers    int

	// stopScaler cancels the cached-mode scaler loop
	stopScaler context.CancelFunc
	scalerDone chan struct{}

	logger *slog.Logger

	started  atomic.Bool
	shutdown atomic.Bool

	submitted atomic.Uint64
	accepted  atomic.Uint64
	rejected  atomic.Uint64
	completed atomic.Uint64
}

// NewPool creates an unstarted pool
// A nil logger falls back to slog.Default()
func NewPool(logger *slog.Logger, opts ...Option) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := defaultSettings()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &Pool{
		cfg:     cfg,
		workers: make(map[int]*worker),
		live:    sets.New[int](),
		logger:  logger,
	}, nil
}

// configure applies opts unless the configuration is already frozen
func (p *Pool) configure(opts ...Option) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started.Load() {
		return ErrAlreadyStarted
	}
	if p.queue != nil {
		return ErrConfigFrozen
	}

	cfg := p.cfg
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return err
		}
	}
	p.cfg = cfg
	return nil
}

// SetMode sets the growth mode; only effective before Start
func (p *Pool) SetMode(mode Mode) error {
	return p.configure(WithMode(mode))
}

// SetCapacityThreshold sets the queue capacity; only effective before Start
func (p *Pool) SetCapacityThreshold(n int) error {
	return p.configure(WithCapacity(n))
}

// SetSubmitTimeout sets the maximum wait of Submit on a full queue
func (p *Pool) SetSubmitTimeout(d time.Duration) error {
	return p.configure(WithSubmitTimeout(d))
}

// SetWakePolicy sets the queue wake policy
func (p *Pool) SetWakePolicy(policy WakePolicy) error {
	return p.configure(WithWakePolicy(policy))
}

// SetMaxWorkers caps the cached-mode worker count
func (p *Pool) SetMaxWorkers(n int) error {
	return p.configure(WithMaxWorkers(n))
}

// SetIdleTimeout sets the cached-mode idle retirement timeout
func (p *Pool) SetIdleTimeout(d time.Duration) error {
	return p.configure(WithIdleTimeout(d))
}

// SetScaleInterval sets the cached-mode scaler period
func (p *Pool) SetScaleInterval(d time.Duration) error {
	return p.configure(WithScaleInterval(d))
}

// SetBacklogThreshold sets the backlog duration that triggers growth
func (p *Pool) SetBacklogThreshold(d time.Duration) error {
	return p.configure(WithBacklogThreshold(d))
}

// ensureQueue returns the queue, creating it from cfg on first use
func (p *Pool) ensureQueue() *BoundedQueue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ensureQueueLocked()
}

func (p *Pool) ensureQueueLocked() *BoundedQueue {
	if p.queue == nil {
		p.queue = NewBoundedQueue(p.cfg.capacity, p.cfg.wakePolicy)
	}
	return p.queue
}

// StartDefault starts the pool with DefaultWorkers workers
func (p *Pool) StartDefault() error {
	return p.Start(DefaultWorkers)
}

// Start creates exactly workers workers bound to the queue and starts them
// A non-positive count is a configuration error: nothing is created and the
// pool may be started again with a valid count
func (p *Pool) Start(workers int) error {
	if workers <= 0 {
		err := util.NewValidationError("workers", workers, "initial worker count must be a positive integer")
		p.logger.Error("invalid pool configuration", "error", err)
		return err
	}

	p.mu.Lock()

	if p.shutdown.Load() {
		p.mu.Unlock()
		return ErrPoolShutdown
	}
	if p.started.Load() {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}

	p.ensureQueueLocked()
	p.initialWorkers = workers
	p.maxWorkers = workers
	if p.cfg.mode == ModeCached {
		p.maxWorkers = p.cfg.maxWorkers
		if p.maxWorkers == 0 {
			p.maxWorkers = 2 * workers
		}
		if p.maxWorkers < workers {
			p.maxWorkers = workers
		}
	}

	// Create every worker before starting any of them
	created := make([]*worker, 0, workers)
	for i := 0; i < workers; i++ {
		created = append(created, p.registerLocked(false))
	}
	p.started.Store(true)

	var scalerCtx context.Context
	if p.cfg.mode == ModeCached {
		scalerCtx, p.stopScaler = context.WithCancel(context.Background())
		p.scalerDone = make(chan struct{})
	}
	p.mu.Unlock()

	for _, w := range created {
		w.start()
	}

	if scalerCtx != nil {
		go p.runScaler(scalerCtx)
	}

	p.logger.Info("worker pool started",
		"mode", p.cfg.mode,
		"workers", workers,
		"max_workers", p.maxWorkers,
		"capacity", p.cfg.capacity,
		"wake_policy", p.cfg.wakePolicy)

	return nil
}

// registerLocked adds a new worker to the registry; mu must be held
func (p *Pool) registerLocked(elastic bool) *worker {
	w := newWorker(p.nextID, p, elastic)
	p.nextID++
	p.workers[w.id] = w
	p.live.Insert(w.id)
	if p.live.Len() > p.peakWorkers {
		p.peakWorkers = p.live.Len()
	}
	return w
}

// deregister marks w stopped when its loop exits
// Stopped workers stay in the registry so Stats can report their totals
func (p *Pool) deregister(w *worker) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.setState(WorkerStopped)
	p.live.Delete(w.id)
}

// retire reports whether an idle cached-mode worker may exit
// The live count never drops below the initial worker count this way
func (p *Pool) retire(w *worker) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown.Load() || p.live.Len() <= p.initialWorkers {
		return false
	}

	p.live.Delete(w.id)
	return true
}

// Submit enqueues task, waiting up to the submit timeout for space
// It reports whether the task was accepted; rejection is a normal outcome
// under overload and the task is not retried by the pool
func (p *Pool) Submit(task Task) bool {
	return p.SubmitContext(context.Background(), task) == nil
}

// SubmitFunc is Submit for a plain function
func (p *Pool) SubmitFunc(fn func()) bool {
	if fn == nil {
		return p.Submit(nil)
	}
	return p.Submit(TaskFunc(fn))
}

// SubmitContext enqueues task, waiting for space until ctx is done or the
// submit timeout elapses, whichever comes first
// Returns ErrNilTask, ErrPoolShutdown, or an error wrapping ErrQueueFull
func (p *Pool) SubmitContext(ctx context.Context, task Task) error {
	if task == nil {
		p.logger.Warn("rejected nil task")
		return ErrNilTask
	}

	if p.shutdown.Load() {
		return ErrPoolShutdown
	}

	q := p.ensureQueue()
	p.submitted.Add(1)

	putCtx, cancel := context.WithTimeout(ctx, p.cfg.submitTimeout)
	defer cancel()

	err := q.Put(putCtx, task)
	switch {
	case err == nil:
		p.accepted.Add(1)
		p.logger.Debug("task submitted", "queue_depth", q.Len())
		return nil

	case errors.Is(err, ErrQueueClosed):
		p.rejected.Add(1)
		return ErrPoolShutdown

	default:
		p.rejected.Add(1)
		p.logger.Warn("task submission rejected",
			"reason", "queue full",
			"capacity", q.Cap(),
			"timeout", p.cfg.submitTimeout)
		return err
	}
}

// Shutdown stops accepting tasks, lets workers drain the queue and waits for
// them to exit. The context controls how long to wait
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.shutdown.Load() {
		p.mu.Unlock()
		return ErrPoolShutdown
	}
	p.shutdown.Store(true)
	q := p.ensureQueueLocked()
	stopScaler, scalerDone := p.stopScaler, p.scalerDone
	p.mu.Unlock()

	p.logger.Info("shutting down worker pool", "pending", q.Len())

	if stopScaler != nil {
		stopScaler()
	}
	q.Close()

	if deadline, ok := ctx.Deadline(); ok {
		p.logger.Debug("waiting for workers to finish", "deadline", deadline)
	}

	err := wait.PollUntilContextCancel(ctx, 10*time.Millisecond, true, func(context.Context) (bool, error) {
		return p.WorkerCount() == 0, nil
	})
	if err != nil {
		return fmt.Errorf("shutdown timeout: %w", err)
	}

	if scalerDone != nil {
		select {
		case <-scalerDone:
		case <-ctx.Done():
			return fmt.Errorf("shutdown timeout: %w", ctx.Err())
		}
	}

	if pending := q.Len(); pending > 0 {
		p.logger.Warn("pool shut down with undrained tasks", "pending", pending)
	}

	p.logger.Info("worker pool shut down successfully",
		"completed", p.completed.Load(),
		"rejected", p.rejected.Load())
	return nil
}

// Mode returns the configured growth mode
func (p *Pool) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.mode
}

// CapacityThreshold returns the configured queue capacity
func (p *Pool) CapacityThreshold() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.capacity
}

// SubmitTimeout returns the configured submit timeout
func (p *Pool) SubmitTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.submitTimeout
}

// WorkerCount returns the number of live workers
func (p *Pool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live.Len()
}

// QueueLen returns the number of tasks waiting in the queue
func (p *Pool) QueueLen() int {
	p.mu.Lock()
	q := p.queue
	p.mu.Unlock()

	if q == nil {
		return 0
	}
	return q.Len()
}

// IsStarted returns true once Start has succeeded
func (p *Pool) IsStarted() bool {
	return p.started.Load()
}

// IsShutdown returns true if the pool has been shut down
func (p *Pool) IsShutdown() bool {
	return p.shutdown.Load()
}

// Stats returns a snapshot of the pool counters and of every worker created
// so far, stopped ones included
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	workerStats := make([]WorkerStats, 0, len(p.workers))
	for _, w := range p.workers {
		workerStats = append(workerStats, w.stats())
	}
	stats := Stats{
		Mode:        p.cfg.mode,
		Capacity:    p.cfg.capacity,
		WakePolicy:  p.cfg.wakePolicy,
		Workers:     p.live.Len(),
		PeakWorkers: p.peakWorkers,
		MaxWorkers:  p.maxWorkers,
		Started:     p.started.Load(),
		Shutdown:    p.shutdown.Load(),
	}
	q := p.queue
	p.mu.Unlock()

	sort.Slice(workerStats, func(i, j int) bool {
		return workerStats[i].ID < workerStats[j].ID
	})
	stats.WorkerStats = workerStats

	if q != nil {
		stats.QueueDepth = q.Len()
	}
	stats.Submitted = p.submitted.Load()
	stats.Accepted = p.accepted.Load()
	stats.Rejected = p.rejected.Load()
	stats.Completed = p.completed.Load()

	return stats
}
