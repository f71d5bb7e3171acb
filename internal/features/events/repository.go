package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/db/postgres"
)

const columns = `id, name, starts_at, status, capacity, participants, reward,
	COALESCE(required_role, ''), created_at`

type Repository struct {
	db *postgres.DB
}

func NewRepository(db *postgres.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *postgres.DB {
	return r.db
}

// Create сохраняет ивент со статусом scheduled.
func (r *Repository) Create(ctx context.Context, e *Event) error {
	var role *string
	if e.RequiredRole != "" {
		role = &e.RequiredRole
	}
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO events (name, starts_at, status, capacity, reward, required_role)
			VALUES ($1, $2, 'scheduled', $3, $4, $5)
			RETURNING id, created_at
		`, e.Name, e.StartsAt, e.Capacity, e.Reward, role).Scan(&e.ID, &e.CreatedAt)
		if err != nil {
			return fmt.Errorf("ошибка создания ивента: %w", err)
		}
		e.Status = StatusScheduled
		e.Participants = []int64{}
		return nil
	})
}

// Get возвращает ивент по номеру.
func (r *Repository) Get(ctx context.Context, id int64) (*Event, error) {
	var e *Event
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		var err error
		e, err = getOne(ctx, q, id, "")
		return err
	})
	return e, err
}

// Upcoming возвращает открытые ивенты, начинающиеся не раньше since.
// Идущие сейчас ивенты попадают в список независимо от времени начала.
func (r *Repository) Upcoming(ctx context.Context, since time.Time, limit int) ([]*Event, error) {
	var out []*Event
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		out = out[:0]
		rows, err := q.Query(ctx, `
			SELECT `+columns+` FROM events
			WHERE status = 'active' OR (status = 'scheduled' AND starts_at >= $1)
			ORDER BY starts_at, id
			LIMIT $2
		`, since, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scan(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ивентов: %w", err)
	}
	return out, nil
}

// LockTx читает ивент под блокировкой строки.
func (r *Repository) LockTx(ctx context.Context, tx pgx.Tx, id int64) (*Event, error) {
	return getOne(ctx, tx, id, "FOR UPDATE")
}

// SetParticipantsTx перезаписывает список участников.
func (r *Repository) SetParticipantsTx(ctx context.Context, tx pgx.Tx, id int64, participants []int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE events SET participants = $2, updated_at = NOW() WHERE id = $1`, id, participants)
	if err != nil {
		return fmt.Errorf("ошибка обновления участников ивента #%d: %w", id, err)
	}
	return nil
}

// SetStatusTx меняет статус ивента.
func (r *Repository) SetStatusTx(ctx context.Context, tx pgx.Tx, id int64, status Status) error {
	_, err := tx.Exec(ctx,
		`UPDATE events SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("ошибка смены статуса ивента #%d: %w", id, err)
	}
	return nil
}

func getOne(ctx context.Context, q postgres.Querier, id int64, lock string) (*Event, error) {
	e, err := scan(q.QueryRow(ctx, `SELECT `+columns+` FROM events WHERE id = $1 `+lock, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ивент #%d: %w", id, common.ErrEventNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ивента #%d: %w", id, err)
	}
	return e, nil
}

func scan(row pgx.Row) (*Event, error) {
	var (
		e        Event
		status   string
		capacity *int32
	)
	err := row.Scan(&e.ID, &e.Name, &e.StartsAt, &status, &capacity, &e.Participants,
		&e.Reward, &e.RequiredRole, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = Status(status)
	if capacity != nil {
		c := int(*capacity)
		e.Capacity = &c
	}
	return &e, nil
}
