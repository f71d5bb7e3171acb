// Package activity — repository.go работает с таблицей daily_activity.
package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/economy-bot/internal/db/postgres"
)

// Repository — счётчики дневной активности.
type Repository struct {
	db *postgres.DB
}

func NewRepository(db *postgres.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *postgres.DB {
	return r.db
}

func ensureDay(ctx context.Context, tx pgx.Tx, userID int64, day time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO daily_activity (user_id, day) VALUES ($1, $2)
		ON CONFLICT (user_id, day) DO NOTHING
	`, userID, day)
	if err != nil {
		return fmt.Errorf("ошибка создания счётчика активности: %w", err)
	}
	return nil
}

// IncrementChatTx прибавляет reward к счётчику, только если он ещё ниже limit.
// Проверка и прибавление — один UPDATE, поэтому два параллельных сообщения
// не проскочат лимит. Возвращает false, если лимит уже достигнут.
func (r *Repository) IncrementChatTx(ctx context.Context, tx pgx.Tx, userID int64, day time.Time, reward, limit int64) (bool, error) {
	if err := ensureDay(ctx, tx, userID, day); err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE daily_activity
		SET chat_coins_earned = chat_coins_earned + $3
		WHERE user_id = $1 AND day = $2 AND chat_coins_earned < $4
	`, userID, day, reward, limit)
	if err != nil {
		return false, fmt.Errorf("ошибка обновления счётчика чата: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AddVoiceMinutesTx прибавляет минуты с потолком limit под блокировкой строки.
// Возвращает значения счётчика до и после.
func (r *Repository) AddVoiceMinutesTx(ctx context.Context, tx pgx.Tx, userID int64, day time.Time, minutes, limit int64) (before, after int64, err error) {
	if err := ensureDay(ctx, tx, userID, day); err != nil {
		return 0, 0, err
	}
	err = tx.QueryRow(ctx, `
		SELECT voice_minutes_earned FROM daily_activity
		WHERE user_id = $1 AND day = $2
		FOR UPDATE
	`, userID, day).Scan(&before)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка чтения счётчика голосовых: %w", err)
	}

	after = min(before+minutes, limit)
	if after <= before {
		return before, before, nil
	}
	_, err = tx.Exec(ctx, `
		UPDATE daily_activity SET voice_minutes_earned = $3
		WHERE user_id = $1 AND day = $2
	`, userID, day, after)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка обновления счётчика голосовых: %w", err)
	}
	return before, after, nil
}

// Get возвращает счётчики за день; если строки нет — нули.
func (r *Repository) Get(ctx context.Context, userID int64, day time.Time) (*DailyActivity, error) {
	a := &DailyActivity{UserID: userID, Day: day}
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		err := q.QueryRow(ctx, `
			SELECT chat_coins_earned, voice_minutes_earned
			FROM daily_activity WHERE user_id = $1 AND day = $2
		`, userID, day).Scan(&a.ChatCoinsEarned, &a.VoiceMinutesEarned)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения активности: %w", err)
	}
	return a, nil
}

// DeleteBefore удаляет счётчики старше day. Повтор безопасен.
func (r *Repository) DeleteBefore(ctx context.Context, day time.Time) (int64, error) {
	var deleted int64
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		tag, err := q.Exec(ctx, `DELETE FROM daily_activity WHERE day < $1`, day)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки активности: %w", err)
	}
	return deleted, nil
}
