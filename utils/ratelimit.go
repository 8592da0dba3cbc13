package utils

import (
	"sync"
	"time"
)

// RateLimiter реализует ограничение частоты запросов скользящим окном
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Limit возвращает максимальное число запросов в окне
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Allow проверяет, разрешен ли запрос, и учитывает его
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	requests := rl.pruneLocked(key, now)

	// Проверяем лимит
	if len(requests) >= rl.limit {
		return false
	}

	rl.requests[key] = append(requests, now)
	return true
}

// Remaining возвращает количество оставшихся запросов в текущем окне
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	remaining := rl.limit - len(rl.pruneLocked(key, rl.now()))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetTime возвращает момент, когда освободится место в окне
func (rl *RateLimiter) ResetTime(key string) time.Time {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	requests := rl.pruneLocked(key, now)
	if len(requests) == 0 {
		return now
	}
	return requests[0].Add(rl.window)
}

// Cleanup удаляет ключи без запросов в текущем окне
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key := range rl.requests {
		rl.pruneLocked(key, now)
	}
}

// pruneLocked отбрасывает запросы старше окна. Вызывается под rl.mu.
func (rl *RateLimiter) pruneLocked(key string, now time.Time) []time.Time {
	requests, exists := rl.requests[key]
	if !exists {
		return nil
	}

	windowStart := now.Add(-rl.window)
	i := 0
	for i < len(requests) && !requests[i].After(windowStart) {
		i++
	}
	requests = requests[i:]

	if len(requests) == 0 {
		delete(rl.requests, key)
		return nil
	}
	rl.requests[key] = requests
	return requests
}
