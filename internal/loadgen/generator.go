package loadgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aryankumar/taskpool/internal/executor"
	"github.com/aryankumar/taskpool/internal/util"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/flowcontrol"
)

// Submitter is the part of the pool the generator drives
type Submitter interface {
	SubmitContext(ctx context.Context, task executor.Task) error
}

// Config describes a synthetic load run
type Config struct {
	// Producers is the number of concurrent submitting goroutines
	Producers int

	// Tasks is the total number of tasks, split evenly across producers
	Tasks int

	// Rate caps submissions per second across all producers; zero is unlimited
	Rate float64

	// Burst is the token bucket size used with Rate
	Burst int

	// Kind and Duration define what each task does
	Kind     Kind
	Duration time.Duration
}

// Generator submits synthetic tasks from several producers and verifies
// that every accepted task ran exactly once
type Generator struct {
	cfg    Config
	logger *slog.Logger

	// progressFn is called after each producer finishes
	progressFn func(done, total int)
}

// New creates a generator
func New(cfg Config, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	errs := &util.MultiError{}
	if cfg.Producers <= 0 {
		errs.Add(util.NewValidationError("producers", cfg.Producers, "must be a positive integer"))
	}
	if cfg.Tasks < 0 {
		errs.Add(util.NewValidationError("tasks", cfg.Tasks, "must not be negative"))
	}
	if cfg.Rate < 0 {
		errs.Add(util.NewValidationError("rate", cfg.Rate, "must not be negative"))
	}
	if _, err := ParseKind(string(cfg.Kind)); err != nil {
		errs.Add(util.NewValidationError("kind", cfg.Kind, err.Error()))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	if cfg.Rate > 0 && cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &Generator{cfg: cfg, logger: logger}, nil
}

// OnProducerDone registers a callback reporting finished producers
func (g *Generator) OnProducerDone(fn func(done, total int)) {
	g.progressFn = fn
}

// Run submits all tasks, then waits until every accepted task has executed
// or ctx is done. It never returns an error; the report carries the outcome
// ctx should carry a deadline when the pool might not drain
func (g *Generator) Run(ctx context.Context, pool Submitter) Report {
	startTime := time.Now()

	var limiter flowcontrol.RateLimiter
	if g.cfg.Rate > 0 {
		limiter = flowcontrol.NewTokenBucketRateLimiter(float32(g.cfg.Rate), g.cfg.Burst)
		defer limiter.Stop()
	}

	l := &ledger{}
	probes := make([][]*probe, g.cfg.Producers)
	producers := make([]ProducerReport, g.cfg.Producers)

	g.logger.Info("starting load generation",
		"producers", g.cfg.Producers,
		"tasks", g.cfg.Tasks,
		"kind", g.cfg.Kind,
		"rate", g.cfg.Rate)

	var finished atomic.Int32
	var wg sync.WaitGroup
	for p := 0; p < g.cfg.Producers; p++ {
		share := g.cfg.Tasks / g.cfg.Producers
		if p < g.cfg.Tasks%g.cfg.Producers {
			share++
		}

		batch := make([]*probe, share)
		for i := range batch {
			batch[i] = &probe{
				kind:     g.cfg.Kind,
				duration: g.cfg.Duration,
				ledger:   l,
			}
		}
		probes[p] = batch

		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			producers[p] = g.produce(ctx, p, pool, limiter, probes[p])

			done := int(finished.Add(1))
			if g.progressFn != nil {
				g.progressFn(done, g.cfg.Producers)
			}
		}(p)
	}
	wg.Wait()

	submitDone := time.Since(startTime)

	var accepted int64
	for _, pr := range producers {
		accepted += int64(pr.Accepted)
	}

	// Wait for the pool to work off everything it accepted
	drainErr := wait.PollUntilContextCancel(ctx, 5*time.Millisecond, true, func(context.Context) (bool, error) {
		return l.executed.Load() >= accepted, nil
	})
	if drainErr != nil {
		g.logger.Warn("stopped waiting for accepted tasks",
			"executed", l.executed.Load(),
			"accepted", accepted,
			"error", drainErr)
	}

	report := g.buildReport(probes, producers)
	report.SubmitDuration = submitDone
	report.Elapsed = time.Since(startTime)
	if secs := report.Elapsed.Seconds(); secs > 0 {
		report.Throughput = float64(report.Executed) / secs
	}
	if drainErr != nil {
		report.Incomplete = true
	}

	g.logger.Info("load generation completed",
		"accepted", report.Accepted,
		"rejected", report.Rejected,
		"executed", report.Executed,
		"duration", report.Elapsed)

	return report
}

// produce submits one producer's batch in order
func (g *Generator) produce(ctx context.Context, id int, pool Submitter, limiter flowcontrol.RateLimiter, batch []*probe) ProducerReport {
	pr := ProducerReport{ID: id}

	for _, task := range batch {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				pr.Skipped += len(batch) - pr.Submitted
				break
			}
		}

		start := time.Now()
		err := pool.SubmitContext(ctx, task)
		latency := time.Since(start)

		pr.Submitted++
		if latency > pr.MaxSubmitLatency {
			pr.MaxSubmitLatency = latency
		}
		pr.totalLatency += latency

		switch {
		case err == nil:
			pr.Accepted++
			task.enqueued = true
			pr.accepted = append(pr.accepted, task)
		case errors.Is(err, executor.ErrQueueFull):
			pr.Rejected++
		default:
			pr.Rejected++
			g.logger.Debug("producer stopped", "producer", id, "error", err)
			pr.Skipped += len(batch) - pr.Submitted
			return pr
		}

		if ctx.Err() != nil {
			pr.Skipped += len(batch) - pr.Submitted
			break
		}
	}

	return pr
}

// buildReport checks the delivery guarantees over all probes
func (g *Generator) buildReport(probes [][]*probe, producers []ProducerReport) Report {
	r := Report{
		Producers: producers,
		Kind:      g.cfg.Kind,
	}

	for p := range producers {
		pr := &producers[p]
		r.Submitted += pr.Submitted
		r.Accepted += pr.Accepted
		r.Rejected += pr.Rejected
		r.Skipped += pr.Skipped
		if pr.Submitted > 0 {
			pr.AvgSubmitLatency = pr.totalLatency / time.Duration(pr.Submitted)
		}
		if pr.MaxSubmitLatency > r.MaxSubmitLatency {
			r.MaxSubmitLatency = pr.MaxSubmitLatency
		}

		// Accepted tasks of one producer must start in submission order when
		// a single worker drains the queue
		var last int64
		for _, task := range pr.accepted {
			runs := task.runs.Load()
			switch {
			case runs == 0:
				r.Missing++
			case runs > 1:
				r.Duplicates++
			}
			if pos := task.startPos.Load(); pos > 0 {
				if pos < last {
					r.Reordered++
				}
				last = pos
			}
		}
	}

	// Rejected tasks must never run
	for _, batch := range probes {
		for _, task := range batch {
			runs := int(task.runs.Load())
			r.Executed += runs
			if runs > 0 && !task.enqueued {
				r.Unexpected++
			}
		}
	}

	return r
}

// Verify returns an error wrapping util.ErrLostTasks when the report shows
// accepted tasks that did not run exactly once, or rejected tasks that ran
func (r Report) Verify() error {
	if r.Incomplete && r.Missing > 0 {
		return fmt.Errorf("%d of %d accepted tasks still pending: %w", r.Missing, r.Accepted, util.ErrTimeout)
	}
	if r.Missing > 0 || r.Duplicates > 0 || r.Unexpected > 0 {
		return fmt.Errorf("%d missing, %d duplicated, %d unexpected: %w",
			r.Missing, r.Duplicates, r.Unexpected, util.ErrLostTasks)
	}
	return nil
}
