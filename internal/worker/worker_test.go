package worker

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"roombook/internal/config"
	"roombook/internal/domain"
	"roombook/internal/models"
	"roombook/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReleaser struct {
	calls  atomic.Int32
	errs   []error
	result models.SweepResult
}

func (f *fakeReleaser) Sweep(context.Context) (models.SweepResult, error) {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return models.SweepResult{}, f.errs[n]
	}
	return f.result, nil
}

func newWorker(r domain.AutoReleaser, c domain.Coordinator, cfg config.AutoReleaseConfig) *AutoReleaseWorker {
	logger := zerolog.New(io.Discard)
	w := NewAutoReleaseWorker(r, c, cfg, &logger)
	w.sleep = func(context.Context, time.Duration) error { return nil }
	return w
}

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2}
	assert.Equal(t, time.Second, p.NextDelay(0))
	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	assert.Equal(t, 5*time.Second, p.NextDelay(4))

	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(1))
}

func TestRetryPolicyFromConfig(t *testing.T) {
	p := RetryPolicyFromConfig(config.RetryConfig{MaxRetries: 2, InitialDelay: "250ms", MaxDelay: "bad", BackoffFactor: 3})
	assert.Equal(t, 2, p.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, p.InitialDelay)
	assert.Equal(t, time.Minute, p.MaxDelay)
	assert.Equal(t, 750*time.Millisecond, p.NextDelay(2))
}

func TestRunOnce(t *testing.T) {
	r := &fakeReleaser{result: models.SweepResult{BookingsChecked: 3, BookingsReleased: 2}}
	coord := repository.NewMemoryCoordinator()
	w := newWorker(r, coord, config.AutoReleaseConfig{Enabled: true})

	result, ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 2, result.BookingsReleased)

	// The lock is released after the run.
	token, ok, err := coord.TryLock(context.Background(), sweepLockKey, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, coord.Unlock(context.Background(), sweepLockKey, token))
}

func TestRunOnce_LockHeldElsewhere(t *testing.T) {
	r := &fakeReleaser{}
	coord := repository.NewMemoryCoordinator()
	_, ok, err := coord.TryLock(context.Background(), sweepLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	w := newWorker(r, coord, config.AutoReleaseConfig{Enabled: true})
	_, ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, r.calls.Load())
}

func TestRunOnce_RetriesTransient(t *testing.T) {
	transient := domain.Transient("get release candidates", errors.New("database is locked"))
	r := &fakeReleaser{errs: []error{transient, transient}, result: models.SweepResult{BookingsReleased: 1}}
	w := newWorker(r, nil, config.AutoReleaseConfig{Enabled: true, Retry: config.RetryConfig{MaxRetries: 3}})

	result, ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, result.BookingsReleased)
	assert.Equal(t, int32(3), r.calls.Load())
}

func TestRunOnce_GivesUp(t *testing.T) {
	transient := domain.Transient("get release candidates", errors.New("database is locked"))
	r := &fakeReleaser{errs: []error{transient, transient, transient}}
	w := newWorker(r, nil, config.AutoReleaseConfig{Enabled: true, Retry: config.RetryConfig{MaxRetries: 2}})

	_, _, err := w.RunOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, int32(3), r.calls.Load())

	permanent := &fakeReleaser{errs: []error{errors.New("boom")}}
	w = newWorker(permanent, nil, config.AutoReleaseConfig{Enabled: true, Retry: config.RetryConfig{MaxRetries: 5}})
	_, _, err = w.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(1), permanent.calls.Load())
}

func TestStartStop(t *testing.T) {
	r := &fakeReleaser{}
	w := newWorker(r, repository.NewMemoryCoordinator(), config.AutoReleaseConfig{Enabled: true, Interval: "10ms"})

	w.Start(context.Background())
	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	w.Stop()

	calls := r.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, r.calls.Load())
}

func TestStartDisabled(t *testing.T) {
	r := &fakeReleaser{}
	w := newWorker(r, nil, config.AutoReleaseConfig{})

	w.Start(context.Background())
	w.Stop()
	assert.Zero(t, r.calls.Load())
}

func TestStopWithoutStart(t *testing.T) {
	w := newWorker(&fakeReleaser{}, nil, config.AutoReleaseConfig{Enabled: true, Interval: "10ms"})

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a worker that was never started")
	}
}
