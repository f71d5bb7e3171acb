// Package settings — repository.go работает с таблицей config.
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/economy-bot/internal/db/postgres"
)

type Repository struct {
	db *postgres.DB
}

func NewRepository(db *postgres.DB) *Repository {
	return &Repository{db: db}
}

// Get возвращает значение ключа. ok = false, если ключа нет.
func (r *Repository) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = r.db.Do(ctx, func(q postgres.Querier) error {
		err := q.QueryRow(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(&value)
		if errors.Is(err, pgx.ErrNoRows) {
			ok = false
			return nil
		}
		ok = err == nil
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("ошибка чтения настройки %s: %w", key, err)
	}
	return value, ok, nil
}

// Set записывает значение (последняя запись побеждает).
func (r *Repository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO config (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		_, err := q.Exec(ctx, query, key, value)
		return err
	})
	if err != nil {
		return fmt.Errorf("ошибка записи настройки %s: %w", key, err)
	}
	return nil
}

// All возвращает все заданные в базе настройки, отсортированные по ключу.
func (r *Repository) All(ctx context.Context) ([]Entry, error) {
	var out []Entry
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		out = out[:0]
		rows, err := q.Query(ctx, `SELECT key, value, updated_at FROM config ORDER BY key`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e Entry
			if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения настроек: %w", err)
	}
	return out, nil
}
