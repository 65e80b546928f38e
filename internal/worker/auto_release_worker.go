package worker

import (
	"context"
	"errors"
	"time"

	"roombook/internal/config"
	"roombook/internal/domain"
	"roombook/internal/metrics"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

const sweepLockKey = "auto_release"

// AutoReleaseWorker runs the no-show sweep on an interval. With a shared
// coordinator only one replica sweeps per tick.
type AutoReleaseWorker struct {
	releaser    domain.AutoReleaser
	coordinator domain.Coordinator
	enabled     bool
	interval    time.Duration
	lockTTL     time.Duration
	retry       RetryPolicy
	logger      *zerolog.Logger
	sleep       func(context.Context, time.Duration) error

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewAutoReleaseWorker creates a worker but does not start it.
// A nil coordinator disables the cross-replica lock.
func NewAutoReleaseWorker(releaser domain.AutoReleaser, coordinator domain.Coordinator, cfg config.AutoReleaseConfig, logger *zerolog.Logger) *AutoReleaseWorker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AutoReleaseWorker{
		releaser:    releaser,
		coordinator: coordinator,
		enabled:     cfg.Enabled,
		interval:    config.Duration(cfg.Interval, models.DefaultAutoReleaseInterval*time.Second),
		lockTTL:     config.Duration(cfg.LockTTL, time.Minute),
		retry:       RetryPolicyFromConfig(cfg.Retry),
		logger:      logger,
		sleep:       sleepCtx,
		done:        make(chan struct{}),
	}
}

// Start sweeps once immediately and then on every interval until ctx is
// cancelled or Stop is called.
func (w *AutoReleaseWorker) Start(ctx context.Context) {
	w.started = true
	if !w.enabled {
		w.logger.Info().Msg("auto-release worker disabled")
		close(w.done)
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)

	w.logger.Info().Dur("interval", w.interval).Msg("auto-release worker started")
}

// Stop signals the loop to exit and waits for it. It is a no-op on a
// worker that was never started.
func (w *AutoReleaseWorker) Stop() {
	if !w.started {
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done
}

func (w *AutoReleaseWorker) loop(ctx context.Context) {
	defer close(w.done)

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("auto-release worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single locked sweep. It reports false when another
// replica holds the lock.
func (w *AutoReleaseWorker) RunOnce(ctx context.Context) (models.SweepResult, bool, error) {
	if w.coordinator != nil {
		token, acquired, err := w.coordinator.TryLock(ctx, sweepLockKey, w.lockTTL)
		if err != nil {
			w.logger.Warn().Err(err).Msg("sweep lock unavailable, skipping run")
			metrics.SkipSweep()
			return models.SweepResult{}, false, err
		}
		if !acquired {
			w.logger.Debug().Msg("sweep already running elsewhere")
			metrics.SkipSweep()
			return models.SweepResult{}, false, nil
		}
		defer func() {
			if err := w.coordinator.Unlock(context.WithoutCancel(ctx), sweepLockKey, token); err != nil {
				w.logger.Warn().Err(err).Msg("failed to release sweep lock")
			}
		}()
	}

	started := time.Now()
	result, err := w.sweepWithRetry(ctx)
	metrics.ObserveSweep(result.BookingsChecked, result.BookingsReleased, time.Since(started), err)

	if err != nil {
		w.logger.Error().Err(err).Msg("auto-release sweep failed")
		return result, true, err
	}
	if result.BookingsReleased > 0 {
		w.logger.Info().
			Int("checked", result.BookingsChecked).
			Int("released", result.BookingsReleased).
			Msg("auto-release sweep finished")
	}
	return result, true, nil
}

func (w *AutoReleaseWorker) sweepWithRetry(ctx context.Context) (models.SweepResult, error) {
	for attempt := 1; ; attempt++ {
		result, err := w.releaser.Sweep(ctx)
		if err == nil || !errors.Is(err, domain.ErrTransient) || attempt > w.retry.MaxRetries {
			return result, err
		}

		delay := w.retry.NextDelay(attempt)
		w.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("sweep failed, retrying")
		if serr := w.sleep(ctx, delay); serr != nil {
			return result, serr
		}
	}
}
