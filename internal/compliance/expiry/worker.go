// Package expiry runs the periodic sweep that expires records whose end date
// has passed.
package expiry

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the slice of the compliance service the worker needs.
type Sweeper interface {
	SweepExpired(ctx context.Context) (expired, failed int, err error)
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

type Worker struct {
	sweeper  Sweeper
	logger   *slog.Logger
	interval time.Duration
}

func New(sweeper Sweeper, opts ...Option) *Worker {
	w := &Worker{
		sweeper:  sweeper,
		logger:   slog.Default(),
		interval: time.Hour,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start runs one sweep immediately, then on every tick until ctx is
// cancelled. It always returns ctx.Err().
func (w *Worker) Start(ctx context.Context) error {
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)
		case <-ctx.Done():
			w.logger.Info("expiry worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	start := time.Now()
	expired, failed, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		w.logger.Error("expiry_sweep_failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	w.logger.Info("expiry_sweep_completed",
		"expired", expired,
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
