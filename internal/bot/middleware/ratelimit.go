package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"serotonyl.ru/economy-bot/internal/metrics"
)

// RateLimiter ограничивает количество команд на пользователя:
// не больше limit за window, с возможностью короткого всплеска до limit.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*userLimiter
	limit    int
	window   time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[int64]*userLimiter),
		limit:    limit,
		window:   window,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Close останавливает фоновую горутину очистки.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) Allow(userID int64) bool {
	return rl.AllowAt(userID, time.Now())
}

// AllowAt — Allow с явным временем.
func (rl *RateLimiter) AllowAt(userID int64, now time.Time) bool {
	if rl.limit <= 0 || rl.window <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.limiters[userID]
	if !ok {
		every := rl.window / time.Duration(rl.limit)
		ul = &userLimiter{limiter: rate.NewLimiter(rate.Every(every), rl.limit)}
		rl.limiters[userID] = ul
	}
	ul.lastSeen = now

	if !ul.limiter.AllowN(now, 1) {
		metrics.RecordRateLimited()
		return false
	}
	return true
}

// Len — число отслеживаемых пользователей.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case now := <-ticker.C:
			rl.sweep(now)
		}
	}
}

// sweep забывает тех, кто молчал дольше окна: их лимитер всё равно полон.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for userID, ul := range rl.limiters {
		if now.Sub(ul.lastSeen) > rl.window {
			delete(rl.limiters, userID)
		}
	}
}
