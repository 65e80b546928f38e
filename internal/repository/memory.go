package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryCoordinator is the single-process Coordinator used without Redis
// and as the failover target.
type MemoryCoordinator struct {
	mu         sync.Mutex
	locks      map[string]lockEntry
	rateLimits map[string]rateLimitEntry
	lastPrune  time.Time
	now        func() time.Time
}

// pruneInterval bounds how often expired entries are swept.
const pruneInterval = time.Minute

type lockEntry struct {
	token     string
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryCoordinator() *MemoryCoordinator {
	return &MemoryCoordinator{
		locks:      make(map[string]lockEntry),
		rateLimits: make(map[string]rateLimitEntry),
		now:        time.Now,
	}
}

func (r *MemoryCoordinator) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.pruneLocked(now)
	if held, ok := r.locks[key]; ok && now.Before(held.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	r.locks[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (r *MemoryCoordinator) Unlock(_ context.Context, key, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held, ok := r.locks[key]; ok && held.token == token {
		delete(r.locks, key)
	}
	return nil
}

func (r *MemoryCoordinator) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.pruneLocked(now)

	entry, ok := r.rateLimits[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = rateLimitEntry{expiresAt: now.Add(window)}
	}
	entry.count++
	r.rateLimits[key] = entry

	return entry.count <= limit, nil
}

// pruneLocked drops expired locks and counters. Callers hold r.mu.
func (r *MemoryCoordinator) pruneLocked(now time.Time) {
	if now.Sub(r.lastPrune) < pruneInterval {
		return
	}
	r.lastPrune = now

	for key, entry := range r.rateLimits {
		if !now.Before(entry.expiresAt) {
			delete(r.rateLimits, key)
		}
	}
	for key, held := range r.locks {
		if !now.Before(held.expiresAt) {
			delete(r.locks, key)
		}
	}
}
