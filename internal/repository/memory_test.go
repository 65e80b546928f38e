package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCoordinator(t *testing.T) {
	repo := NewMemoryCoordinator()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("Lock", func(t *testing.T) {
		token, ok, err := repo.TryLock(ctx, "sweep", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, _ = repo.TryLock(ctx, "sweep", time.Minute)
		assert.False(t, ok)

		require.NoError(t, repo.Unlock(ctx, "sweep", "other"))
		_, ok, _ = repo.TryLock(ctx, "sweep", time.Minute)
		assert.False(t, ok, "foreign token must not unlock")

		require.NoError(t, repo.Unlock(ctx, "sweep", token))
		_, ok, _ = repo.TryLock(ctx, "sweep", time.Minute)
		assert.True(t, ok)
	})

	t.Run("LockExpiry", func(t *testing.T) {
		_, ok, _ := repo.TryLock(ctx, "expiring", time.Second)
		require.True(t, ok)

		now = now.Add(time.Second)
		_, ok, _ = repo.TryLock(ctx, "expiring", time.Second)
		assert.True(t, ok)
	})

	t.Run("RateLimit", func(t *testing.T) {
		allowed, _ := repo.CheckRateLimit(ctx, "u", 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, "u", 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, "u", 2, time.Second)
		assert.False(t, allowed)

		now = now.Add(time.Second)
		allowed, _ = repo.CheckRateLimit(ctx, "u", 2, time.Second)
		assert.True(t, allowed)
	})
}

func TestMemoryCoordinatorPrunesExpiredEntries(t *testing.T) {
	repo := NewMemoryCoordinator()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	for _, user := range []string{"a", "b", "c"} {
		_, err := repo.CheckRateLimit(ctx, "create:"+user, 5, time.Second)
		require.NoError(t, err)
	}
	_, ok, err := repo.TryLock(ctx, "stale", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, repo.rateLimits, 3)

	now = now.Add(pruneInterval)
	allowed, err := repo.CheckRateLimit(ctx, "create:d", 5, time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)

	assert.Len(t, repo.rateLimits, 1)
	assert.Contains(t, repo.rateLimits, "create:d")
	assert.Empty(t, repo.locks)
}
