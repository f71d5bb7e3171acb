package activity

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Cooldown ограничивает частоту наград за сообщения для каждого пользователя.
// Состояние живёт только в памяти процесса: после рестарта оно теряется, и это
// нормально, потому что дневной лимит всё равно проверяется в базе.
type Cooldown struct {
	mu      sync.Mutex
	users   map[int64]*cooldownEntry
	calls   int
	idleTTL time.Duration
}

type cooldownEntry struct {
	limiter  *rate.Limiter
	interval time.Duration
	lastSeen time.Time
}

// sweepEvery — раз в сколько вызовов чистим давно молчащих.
const sweepEvery = 1024

// NewCooldown создаёт пустую карту. Записи, не трогавшиеся дольше idleTTL,
// удаляются.
func NewCooldown(idleTTL time.Duration) *Cooldown {
	if idleTTL <= 0 {
		idleTTL = time.Hour
	}
	return &Cooldown{users: make(map[int64]*cooldownEntry), idleTTL: idleTTL}
}

// Allow сообщает, прошло ли у пользователя interval с прошлой награды.
// interval <= 0 отключает паузу. Смена interval в настройках пересоздаёт лимитер.
func (c *Cooldown) Allow(userID int64, interval time.Duration, now time.Time) bool {
	if interval <= 0 {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.calls%sweepEvery == 0 {
		c.sweep(now)
	}

	e, ok := c.users[userID]
	if !ok || e.interval != interval {
		e = &cooldownEntry{limiter: rate.NewLimiter(rate.Every(interval), 1), interval: interval}
		c.users[userID] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Reset забывает всех. Корректность от этого не страдает.
func (c *Cooldown) Reset() {
	c.mu.Lock()
	c.users = make(map[int64]*cooldownEntry)
	c.mu.Unlock()
}

// Len — число отслеживаемых пользователей.
func (c *Cooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.users)
}

func (c *Cooldown) sweep(now time.Time) {
	for id, e := range c.users {
		if now.Sub(e.lastSeen) > max(c.idleTTL, e.interval) {
			delete(c.users, id)
		}
	}
}
