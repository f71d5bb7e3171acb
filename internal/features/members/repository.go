// Package members — repository.go отвечает за все операции с таблицей members в БД.
// Каждая функция выполняет один SQL-запрос (или одну транзакцию) и возвращает
// результат или ошибку.
package members

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/db/postgres"
)

const memberColumns = `id, user_id, COALESCE(username, ''), first_name, COALESCE(last_name, ''),
	roles, is_admin, is_banned, joined_at, created_at, updated_at`

type Repository struct {
	db *postgres.DB
}

func NewRepository(db *postgres.DB) *Repository {
	return &Repository{db: db}
}

// Create добавляет нового участника в таблицу members.
// На конфликте по user_id обновляет только имя/username (не трогает роли/бан/админку).
func (r *Repository) Create(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO members (user_id, username, first_name, last_name, is_admin, is_banned, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    updated_at = NOW()
	`
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		_, err := q.Exec(ctx, query,
			m.UserID, m.Username, m.FirstName, m.LastName,
			m.IsAdmin, m.IsBanned, time.Now().UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("ошибка создания/обновления участника: %w", err)
	}
	return nil
}

// GetByUserID: если не найден — ошибка с common.ErrUserNotFound.
func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE user_id = $1`
	m, err := r.queryOne(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("участник user_id=%d: %w", userID, err)
	}
	return m, nil
}

// GetByUsername: поиск без учёта регистра, username без @.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE LOWER(username) = LOWER($1)`
	m, err := r.queryOne(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("участник @%s: %w", username, err)
	}
	return m, nil
}

func (r *Repository) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		return q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM members WHERE user_id = $1)`, userID).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("ошибка проверки существования: %w", err)
	}
	return exists, nil
}

func (r *Repository) UpdateInfo(ctx context.Context, userID int64, info UpdateInfo) error {
	query := `
		UPDATE members
		SET username = $2, first_name = $3, last_name = $4, updated_at = NOW()
		WHERE user_id = $1
	`
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		_, err := q.Exec(ctx, query, userID, info.Username, info.FirstName, info.LastName)
		return err
	})
	if err != nil {
		return fmt.Errorf("ошибка обновления данных участника: %w", err)
	}
	return nil
}

// UpdateRoles меняет набор ролей под блокировкой строки: change получает
// текущие роли и возвращает новые. Возвращает итоговый набор.
func (r *Repository) UpdateRoles(ctx context.Context, userID int64, change func([]string) []string) ([]string, error) {
	var result []string
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var roles []string
		err := tx.QueryRow(ctx,
			`SELECT roles FROM members WHERE user_id = $1 FOR UPDATE`, userID,
		).Scan(&roles)
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		result = change(roles)
		if result == nil {
			result = []string{}
		}
		_, err = tx.Exec(ctx,
			`UPDATE members SET roles = $2, updated_at = NOW() WHERE user_id = $1`, userID, result,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления ролей user_id=%d: %w", userID, err)
	}
	return result, nil
}

// GetUsersWithRole возвращает участников, у которых есть роль.
func (r *Repository) GetUsersWithRole(ctx context.Context, role string) ([]*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE EXISTS (SELECT 1 FROM unnest(roles) AS r WHERE LOWER(r) = LOWER($1))
		  AND is_banned = FALSE
		ORDER BY first_name
	`
	return r.queryMembers(ctx, query, role)
}

func (r *Repository) queryOne(ctx context.Context, query string, args ...any) (*Member, error) {
	var m Member
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		return scanMember(q.QueryRow(ctx, query, args...), &m)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения участника: %w", err)
	}
	return &m, nil
}

func (r *Repository) queryMembers(ctx context.Context, query string, args ...any) ([]*Member, error) {
	var out []*Member
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		out = out[:0]
		rows, err := q.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m Member
			if err := scanMember(rows, &m); err != nil {
				return err
			}
			out = append(out, &m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса участников: %w", err)
	}
	return out, nil
}

func scanMember(row pgx.Row, m *Member) error {
	return row.Scan(
		&m.ID, &m.UserID, &m.Username, &m.FirstName, &m.LastName,
		&m.Roles, &m.IsAdmin, &m.IsBanned,
		&m.JoinedAt, &m.CreatedAt, &m.UpdatedAt,
	)
}
