// Package rate throttles repeated attempts per key inside a fixed window.
package rate

import (
	"sync"
	"time"
)

type Limiter interface {
	// Allow records one attempt for key and reports whether it is within limit.
	// The duration is the time left until the key's window resets.
	Allow(key string, limit int, window time.Duration) (bool, time.Duration)
}

type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*bucket
	calls   int
}

type bucket struct {
	count   int
	resetAt time.Time
}

// sweepEvery controls how often expired buckets are dropped.
const sweepEvery = 1024

func NewMemory() *MemoryLimiter {
	return NewMemoryWithClock(time.Now)
}

func NewMemoryWithClock(now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{now: now, buckets: make(map[string]*bucket)}
}

func (m *MemoryLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	if limit <= 0 {
		return true, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(now)
	}

	b, ok := m.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		m.buckets[key] = b
	}
	if b.count >= limit {
		return false, b.resetAt.Sub(now)
	}
	b.count++
	return true, b.resetAt.Sub(now)
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for k, b := range m.buckets {
		if !now.Before(b.resetAt) {
			delete(m.buckets, k)
		}
	}
}

func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
