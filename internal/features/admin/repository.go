// Package admin — repository.go работает с таблицами admin_sessions и admin_login_attempts.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/economy-bot/internal/db/postgres"
)

type Repository struct {
	db *postgres.DB
}

func NewRepository(db *postgres.DB) *Repository {
	return &Repository{db: db}
}

// CreateSession закрывает прежние сессии пользователя и открывает новую.
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE admin_sessions SET is_active = FALSE WHERE user_id = $1 AND is_active`, s.UserID,
		); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO admin_sessions (user_id, session_token, expires_at, is_active)
			VALUES ($1, $2, $3, TRUE)
			RETURNING id, authenticated_at, last_activity
		`, s.UserID, s.Token, s.ExpiresAt).Scan(&s.ID, &s.AuthenticatedAt, &s.LastActivity)
	})
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

// ActiveSession возвращает действующую сессию или nil.
func (r *Repository) ActiveSession(ctx context.Context, userID int64) (*Session, error) {
	var out *Session
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		var s Session
		err := q.QueryRow(ctx, `
			SELECT id, user_id, session_token, authenticated_at, expires_at, last_activity
			FROM admin_sessions
			WHERE user_id = $1 AND is_active AND expires_at > NOW()
			ORDER BY authenticated_at DESC
			LIMIT 1
		`, userID).Scan(&s.ID, &s.UserID, &s.Token, &s.AuthenticatedAt, &s.ExpiresAt, &s.LastActivity)
		if errors.Is(err, pgx.ErrNoRows) {
			out = nil
			return nil
		}
		if err != nil {
			return err
		}
		out = &s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
	}
	return out, nil
}

// DeactivateSessions закрывает все сессии пользователя.
func (r *Repository) DeactivateSessions(ctx context.Context, userID int64) error {
	return r.db.Do(ctx, func(q postgres.Querier) error {
		_, err := q.Exec(ctx, `UPDATE admin_sessions SET is_active = FALSE WHERE user_id = $1`, userID)
		return err
	})
}

// Touch обновляет время последней активности.
func (r *Repository) Touch(ctx context.Context, userID int64) error {
	return r.db.Do(ctx, func(q postgres.Querier) error {
		_, err := q.Exec(ctx,
			`UPDATE admin_sessions SET last_activity = NOW() WHERE user_id = $1 AND is_active`, userID)
		return err
	})
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, userID int64, success bool) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO admin_login_attempts (user_id, success) VALUES ($1, $2)`, userID, success)
		return err
	})
	if err != nil {
		return fmt.Errorf("ошибка записи попытки входа: %w", err)
	}
	return nil
}

// FailedAttemptsSince — число неудачных попыток после since.
func (r *Repository) FailedAttemptsSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		return q.QueryRow(ctx, `
			SELECT COUNT(*) FROM admin_login_attempts
			WHERE user_id = $1 AND NOT success AND attempt_time >= $2
		`, userID, since).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта попыток входа: %w", err)
	}
	return count, nil
}
