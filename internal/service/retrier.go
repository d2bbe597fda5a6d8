package service

import (
	"context"
	"sync"
	"time"

	"licenseguard/backend/pkg/logger"
)

// Retrier periodically re-analyzes checks left pending by engine failures
type Retrier struct {
	checks   *ContentCheckService
	interval time.Duration
	batch    int
	log      *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRetrier creates a retrier. Start must be called to run it.
func NewRetrier(checks *ContentCheckService, interval time.Duration, batch int, log *logger.Logger) *Retrier {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 20
	}
	return &Retrier{
		checks:   checks,
		interval: interval,
		batch:    batch,
		log:      log.With("worker", "pending_retrier"),
	}
}

// Start runs the retry loop until Stop is called or ctx is done
func (r *Retrier) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()

	r.log.Info("Pending check retrier started", "interval", r.interval.String(), "batch", r.batch)
}

// RunOnce retries one batch
func (r *Retrier) RunOnce(ctx context.Context) {
	scored, failed, err := r.checks.RetryPending(ctx, r.batch)
	if err != nil {
		r.log.Error("Pending check retry failed", "error", err.Error())
		return
	}
	if scored > 0 || failed > 0 {
		r.log.Info("Pending checks retried", "scored", scored, "failed", failed)
	}
}

// Stop ends the loop and waits for the current batch
func (r *Retrier) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}
