// Package admin — консоль стаффа в личных сообщениях: вход по паролю
// (Argon2id), сессии на сутки и команды управления экономикой.
package admin

import "time"

const (
	SessionTTL        = 24 * time.Hour
	LockoutWindow     = time.Hour
	MaxFailedAttempts = 3
	// stateTTL — сколько бот ждёт пароль после /вход
	stateTTL = 5 * time.Minute
)

// Session — активная сессия администратора.
type Session struct {
	ID              int64
	UserID          int64
	Token           string
	AuthenticatedAt time.Time
	ExpiresAt       time.Time
	LastActivity    time.Time
}
