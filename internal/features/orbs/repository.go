// Package orbs — repository.go работает с таблицей orb_submissions.
package orbs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/db/postgres"
	"serotonyl.ru/economy-bot/internal/features/approval"
)

const table = "orb_submissions"

const columns = `id, status, submitter_id, participants, amount, COALESCE(message_ref, ''),
	proof_ref, decided_by, decided_at, created_at`

type Repository struct {
	db *postgres.DB
}

func NewRepository(db *postgres.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *postgres.DB {
	return r.db
}

// Create сохраняет новую заявку в статусе pending.
// Вставка не идемпотентна, поэтому идёт через транзакцию: повтор после
// обрыва возможен только если pgx уверен, что запрос не ушёл.
func (r *Repository) Create(ctx context.Context, sub *Submission) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO orb_submissions (status, submitter_id, participants, amount, proof_ref)
			VALUES ('pending', $1, $2, $3, $4)
			RETURNING id, created_at
		`, sub.SubmitterID, sub.Payload.Participants, sub.Amount, sub.ProofRef).Scan(&sub.ID, &sub.CreatedAt)
		if err != nil {
			return fmt.Errorf("ошибка создания заявки на орб: %w", err)
		}
		sub.Status = approval.StatusPending
		return nil
	})
}

// SetMessageRef запоминает пост в чате модерации.
func (r *Repository) SetMessageRef(ctx context.Context, id int64, ref string) error {
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		_, err := q.Exec(ctx, `UPDATE orb_submissions SET message_ref = $2 WHERE id = $1`, id, ref)
		return err
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения ссылки на пост: %w", err)
	}
	return nil
}

// Get возвращает заявку по номеру.
func (r *Repository) Get(ctx context.Context, id int64) (*Submission, error) {
	var sub *Submission
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		var err error
		sub, err = getOne(ctx, q, id)
		return err
	})
	return sub, err
}

// TransitionTx — approval.Store для орбов.
func (r *Repository) TransitionTx(ctx context.Context, tx pgx.Tx, ref approval.Ref, to approval.Status, approverID int64) (*Submission, error) {
	id, err := approval.Transition(ctx, tx, table, ref, to, approverID)
	if err != nil {
		return nil, err
	}
	return getOne(ctx, tx, id)
}

// Pending возвращает нерешённые заявки, старые первыми.
func (r *Repository) Pending(ctx context.Context, limit int) ([]*Submission, error) {
	var out []*Submission
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		out = out[:0]
		rows, err := q.Query(ctx, `
			SELECT `+columns+` FROM orb_submissions
			WHERE status = 'pending'
			ORDER BY created_at, id
			LIMIT $1
		`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			sub, err := scan(rows)
			if err != nil {
				return err
			}
			out = append(out, sub)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заявок на орб: %w", err)
	}
	return out, nil
}

func getOne(ctx context.Context, q postgres.Querier, id int64) (*Submission, error) {
	sub, err := scan(q.QueryRow(ctx, `SELECT `+columns+` FROM orb_submissions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("заявка на орб #%d: %w", id, common.ErrSubmissionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заявки на орб #%d: %w", id, err)
	}
	return sub, nil
}

func scan(row pgx.Row) (*Submission, error) {
	var (
		sub    Submission
		status string
	)
	err := row.Scan(
		&sub.ID, &status, &sub.SubmitterID, &sub.Payload.Participants, &sub.Amount,
		&sub.MessageRef, &sub.ProofRef, &sub.DecidedBy, &sub.DecidedAt, &sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Status = approval.Status(status)
	return &sub, nil
}
