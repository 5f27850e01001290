package repository

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryRateLimiter keeps one token bucket per key in process memory.
// A bucket holds limit tokens and refills them over window.
type MemoryRateLimiter struct {
	limiters sync.Map
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{}
}

func (r *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	return r.limiter(key, limit, window).Allow(), nil
}

func (r *MemoryRateLimiter) limiter(key string, limit int, window time.Duration) *rate.Limiter {
	if v, ok := r.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	every := rate.Every(window / time.Duration(limit))
	actual, _ := r.limiters.LoadOrStore(key, rate.NewLimiter(every, limit))
	return actual.(*rate.Limiter)
}
