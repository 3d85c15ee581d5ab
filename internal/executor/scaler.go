package executor

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// runScaler grows a cached-mode pool while the queue stays backlogged
// It adds at most one worker per tick once the backlog has persisted for
// the backlog threshold, and stops when ctx is cancelled
func (p *Pool) runScaler(ctx context.Context) {
	defer close(p.scalerDone)

	var backlogSince time.Time

	wait.UntilWithContext(ctx, func(ctx context.Context) {
		if p.queue.Len() == 0 {
			backlogSince = time.Time{}
			return
		}

		now := time.Now()
		if backlogSince.IsZero() {
			backlogSince = now
		}
		if now.Sub(backlogSince) < p.cfg.backlogThreshold {
			return
		}

		p.grow()
	}, p.cfg.scaleInterval)

	p.logger.Debug("scaler stopped")
}

// grow starts one elastic worker unless the pool is at its cap or shutting down
func (p *Pool) grow() bool {
	p.mu.Lock()
	if p.shutdown.Load() || p.live.Len() >= p.maxWorkers {
		p.mu.Unlock()
		return false
	}
	w := p.registerLocked(true)
	live := p.live.Len()
	p.mu.Unlock()

	w.start()
	p.logger.Info("scaled up worker pool",
		"worker_id", w.id,
		"workers", live,
		"max_workers", p.maxWorkers,
		"queue_depth", p.queue.Len())
	return true
}
