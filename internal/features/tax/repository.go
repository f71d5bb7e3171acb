// Package tax — repository.go работает с tax_submissions и tax_records.
package tax

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/db/postgres"
	"serotonyl.ru/economy-bot/internal/features/approval"
)

const table = "tax_submissions"

const columns = `id, status, user_id, amount, COALESCE(message_ref, ''),
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
func (r *Repository) Create(ctx context.Context, sub *Submission) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO tax_submissions (status, user_id, amount, proof_ref)
			VALUES ('pending', $1, $2, $3)
			RETURNING id, created_at
		`, sub.SubmitterID, sub.Amount, sub.ProofRef).Scan(&sub.ID, &sub.CreatedAt)
		if err != nil {
			return fmt.Errorf("ошибка создания заявки на налог: %w", err)
		}
		sub.Status = approval.StatusPending
		return nil
	})
}

// SetMessageRef запоминает пост в чате модерации.
func (r *Repository) SetMessageRef(ctx context.Context, id int64, ref string) error {
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		_, err := q.Exec(ctx, `UPDATE tax_submissions SET message_ref = $2 WHERE id = $1`, id, ref)
		return err
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения ссылки на пост: %w", err)
	}
	return nil
}

// TransitionTx — approval.Store для налога.
func (r *Repository) TransitionTx(ctx context.Context, tx pgx.Tx, ref approval.Ref, to approval.Status, approverID int64) (*Submission, error) {
	id, err := approval.Transition(ctx, tx, table, ref, to, approverID)
	if err != nil {
		return nil, err
	}
	sub, err := scan(tx.QueryRow(ctx, `SELECT `+columns+` FROM tax_submissions WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заявки на налог #%d: %w", id, err)
	}
	return sub, nil
}

// Pending возвращает нерешённые заявки, старые первыми.
func (r *Repository) Pending(ctx context.Context, limit int) ([]*Submission, error) {
	var out []*Submission
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		out = out[:0]
		rows, err := q.Query(ctx, `
			SELECT `+columns+` FROM tax_submissions
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
		return nil, fmt.Errorf("ошибка чтения заявок на налог: %w", err)
	}
	return out, nil
}

// MarkPaidTx продлевает запись участника до nextDue.
func (r *Repository) MarkPaidTx(ctx context.Context, tx pgx.Tx, userID int64, nextDue time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO tax_records (user_id, status, next_due, last_paid_at, updated_at)
		VALUES ($1, 'paid', $2, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET status = 'paid', next_due = EXCLUDED.next_due, last_paid_at = NOW(), updated_at = NOW()
	`, userID, nextDue)
	if err != nil {
		return fmt.Errorf("ошибка записи оплаты налога: %w", err)
	}
	return nil
}

// GetRecord возвращает запись или nil, если участник ни разу не платил.
func (r *Repository) GetRecord(ctx context.Context, userID int64) (*Record, error) {
	var rec *Record
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		var (
			got    Record
			status string
		)
		err := q.QueryRow(ctx, `
			SELECT user_id, status, next_due, last_paid_at FROM tax_records WHERE user_id = $1
		`, userID).Scan(&got.UserID, &status, &got.NextDue, &got.LastPaidAt)
		if errors.Is(err, pgx.ErrNoRows) {
			rec = nil
			return nil
		}
		if err != nil {
			return err
		}
		got.Status = RecordStatus(status)
		rec = &got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения налоговой записи: %w", err)
	}
	return rec, nil
}

// MarkOverdue помечает должниками всех, у кого срок прошёл раньше today,
// и возвращает их id. Повторный запуск за тот же день ничего не вернёт.
func (r *Repository) MarkOverdue(ctx context.Context, today time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		ids = ids[:0]
		rows, err := tx.Query(ctx, `
			UPDATE tax_records SET status = 'delinquent', updated_at = NOW()
			WHERE status = 'paid' AND next_due < $1
			RETURNING user_id
		`, today)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска должников: %w", err)
	}
	return ids, nil
}

func scan(row pgx.Row) (*Submission, error) {
	var (
		sub    Submission
		status string
	)
	err := row.Scan(
		&sub.ID, &status, &sub.SubmitterID, &sub.Amount,
		&sub.MessageRef, &sub.ProofRef, &sub.DecidedBy, &sub.DecidedAt, &sub.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	sub.Status = approval.Status(status)
	return &sub, nil
}
