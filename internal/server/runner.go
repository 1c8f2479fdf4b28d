// Package server drives the background reconciliation loop.
package server

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/grabarr/internal/download"
)

// Runner periodically reconciles downloads against their clients.
type Runner struct {
	manager  *download.Manager
	interval time.Duration
	logger   *slog.Logger
}

// NewRunner creates a runner that calls RefreshQueue every interval.
func NewRunner(manager *download.Manager, interval time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		manager:  manager,
		interval: interval,
		logger:   logger.With("component", "runner"),
	}
}

// Run blocks until the context is canceled. One reconciliation pass runs
// immediately, then one per interval. Pass errors are logged, never fatal.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.refresh(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				r.refresh(ctx)
			}
		}
	})

	err := g.Wait()

	// Drain fire-and-forget import/search tasks before reporting shutdown.
	r.manager.Wait()
	return err
}

func (r *Runner) refresh(ctx context.Context) {
	start := time.Now()
	if err := r.manager.RefreshQueue(ctx); err != nil {
		r.logger.Error("reconciliation pass failed", "error", err)
		return
	}
	r.logger.Debug("reconciliation pass complete", "duration_ms", time.Since(start).Milliseconds())
}
