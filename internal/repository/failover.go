package repository

import (
	"context"
	"sync/atomic"
	"time"

	"roombook/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverCoordinator prefers the primary and degrades to the fallback while
// the primary is failing, probing it again once per recovery interval.
type FailoverCoordinator struct {
	primary   domain.Coordinator
	fallback  domain.Coordinator
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverCoordinator(primary, fallback domain.Coordinator, logger *zerolog.Logger) *FailoverCoordinator {
	return &FailoverCoordinator{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should try the primary.
func (r *FailoverCoordinator) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverCoordinator) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary coordinator failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverCoordinator) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary coordinator recovered")
	}
}

func (r *FailoverCoordinator) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if r.usePrimary() {
		token, ok, err := r.primary.TryLock(ctx, key, ttl)
		if err == nil {
			r.markUp()
			return token, ok, nil
		}
		r.markDown(err)
	}

	return r.fallback.TryLock(ctx, key, ttl)
}

// Unlock releases on both sides; a token unknown to one side is a no-op there.
func (r *FailoverCoordinator) Unlock(ctx context.Context, key, token string) error {
	_ = r.fallback.Unlock(ctx, key, token)
	if r.isDown.Load() {
		return nil
	}
	if err := r.primary.Unlock(ctx, key, token); err != nil {
		r.markDown(err)
	}
	return nil
}

func (r *FailoverCoordinator) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
