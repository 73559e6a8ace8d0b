package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local RateLimitStore.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	now     func() time.Time
}

type rateWindow struct {
	count     int
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*rateWindow),
		now:     time.Now,
	}
}

func (r *MemoryStore) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &rateWindow{expiresAt: now.Add(window)}
		r.windows[key] = w
	}
	w.count++

	if w.count <= limit {
		return true, 0, nil
	}
	return false, w.expiresAt.Sub(now), nil
}

// Sweep drops expired windows and returns how many were removed.
func (r *MemoryStore) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for k, w := range r.windows {
		if !now.Before(w.expiresAt) {
			delete(r.windows, k)
			removed++
		}
	}
	return removed
}
