// Package economy — repository.go выполняет все операции с таблицами accounts
// и transactions.
//
// Методы с суффиксом Tx работают внутри чужой транзакции: так магазин,
// заявки и ивенты делают несколько движений монет атомарно.
package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/db/postgres"
)

// Repository предоставляет методы для работы со счетами и журналом.
type Repository struct {
	db *postgres.DB
}

// NewRepository создаёт новый репозиторий экономики.
func NewRepository(db *postgres.DB) *Repository {
	return &Repository{db: db}
}

// DB — для сервисов, которые открывают транзакцию сами.
func (r *Repository) DB() *postgres.DB {
	return r.db
}

// ensureAccount создаёт счёт с нулевым балансом, если его нет.
func ensureAccount(ctx context.Context, q postgres.Querier, userID int64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO accounts (user_id, balance) VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ошибка создания счёта: %w", err)
	}
	return nil
}

func logTransaction(ctx context.Context, q postgres.Querier, userID, amount int64, kind, description string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO transactions (user_id, kind, amount, description)
		VALUES ($1, $2, $3, $4)
	`, userID, kind, amount, description)
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}

// GetOrCreateAccount возвращает счёт, создавая его при первом обращении.
// Вставка с ON CONFLICT DO NOTHING идемпотентна, поэтому повтор безопасен.
func (r *Repository) GetOrCreateAccount(ctx context.Context, userID int64) (*Account, error) {
	var a Account
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		if err := ensureAccount(ctx, q, userID); err != nil {
			return err
		}
		return q.QueryRow(ctx, `
			SELECT user_id, balance, created_at, updated_at FROM accounts WHERE user_id = $1
		`, userID).Scan(&a.UserID, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения счёта: %w", err)
	}
	return &a, nil
}

// CreditTx начисляет amount и пишет транзакцию. Возвращает новый баланс.
// UPDATE сам берёт блокировку строки до конца транзакции.
func (r *Repository) CreditTx(ctx context.Context, tx pgx.Tx, userID, amount int64, kind, description string) (int64, error) {
	if err := ensureAccount(ctx, tx, userID); err != nil {
		return 0, err
	}

	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING balance
	`, userID, amount).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("ошибка начисления: %w", err)
	}

	if err := logTransaction(ctx, tx, userID, amount, kind, description); err != nil {
		return 0, err
	}
	return balance, nil
}

// DebitTx списывает amount. Баланс перечитывается под FOR UPDATE:
// блокировка держится до коммита, и параллельное списание ждёт.
func (r *Repository) DebitTx(ctx context.Context, tx pgx.Tx, userID, amount int64, kind, description string) (int64, error) {
	if err := ensureAccount(ctx, tx, userID); err != nil {
		return 0, err
	}

	var current int64
	err := tx.QueryRow(ctx, `
		SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	if current < amount {
		return current, fmt.Errorf("нужно %d, есть %d: %w", amount, current, common.ErrInsufficientFunds)
	}

	var balance int64
	err = tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING balance
	`, userID, amount).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("ошибка списания: %w", err)
	}

	if err := logTransaction(ctx, tx, userID, -amount, kind, description); err != nil {
		return 0, err
	}
	return balance, nil
}

// Transfer переводит монеты одной транзакцией БД.
// Обе строки блокируются в порядке возрастания user_id, чтобы встречные
// переводы A→B и B→A не взаимоблокировались.
func (r *Repository) Transfer(ctx context.Context, fromUserID, toUserID, amount int64, description string) (int64, error) {
	var senderBalance int64
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		ids := []int64{fromUserID, toUserID}
		if ids[0] > ids[1] {
			ids[0], ids[1] = ids[1], ids[0]
		}
		// Вставка новых строк тоже блокирует, поэтому порядок тот же
		for _, id := range ids {
			if err := ensureAccount(ctx, tx, id); err != nil {
				return err
			}
		}

		rows, err := tx.Query(ctx, `
			SELECT user_id, balance FROM accounts
			WHERE user_id = ANY($1)
			ORDER BY user_id
			FOR UPDATE
		`, ids)
		if err != nil {
			return fmt.Errorf("ошибка блокировки счетов: %w", err)
		}
		balances := make(map[int64]int64, 2)
		for rows.Next() {
			var id, balance int64
			if err := rows.Scan(&id, &balance); err != nil {
				rows.Close()
				return err
			}
			balances[id] = balance
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if balances[fromUserID] < amount {
			return fmt.Errorf("нужно %d, есть %d: %w", amount, balances[fromUserID], common.ErrInsufficientFunds)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE accounts SET balance = balance - $2, updated_at = NOW() WHERE user_id = $1
		`, fromUserID, amount); err != nil {
			return fmt.Errorf("ошибка списания у отправителя: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE accounts SET balance = balance + $2, updated_at = NOW() WHERE user_id = $1
		`, toUserID, amount); err != nil {
			return fmt.Errorf("ошибка начисления получателю: %w", err)
		}

		if err := logTransaction(ctx, tx, fromUserID, -amount, KindTransfer, description); err != nil {
			return err
		}
		if err := logTransaction(ctx, tx, toUserID, amount, KindTransfer, description); err != nil {
			return err
		}

		senderBalance = balances[fromUserID] - amount
		return nil
	})
	return senderBalance, err
}

// GetTransactions возвращает последние N транзакций пользователя.
func (r *Repository) GetTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	query := `
		SELECT id, user_id, kind, amount, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	var out []*Transaction
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		out = out[:0]
		rows, err := q.Query(ctx, query, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t Transaction
			if err := rows.Scan(&t.ID, &t.UserID, &t.Kind, &t.Amount, &t.Description, &t.CreatedAt); err != nil {
				return err
			}
			out = append(out, &t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	return out, nil
}

// GetBalance возвращает баланс. Нет счёта — значит 0.
func (r *Repository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		err := q.QueryRow(ctx, `SELECT balance FROM accounts WHERE user_id = $1`, userID).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			balance = 0
			return nil
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// Supply считает сумму балансов и журнала в одном снимке.
func (r *Repository) Supply(ctx context.Context) (Supply, error) {
	var s Supply
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		return q.QueryRow(ctx, `
			SELECT
				(SELECT COALESCE(SUM(balance), 0)::BIGINT FROM accounts),
				(SELECT COALESCE(SUM(amount), 0)::BIGINT FROM transactions),
				(SELECT COUNT(*) FROM accounts)
		`).Scan(&s.Balances, &s.Journal, &s.Accounts)
	})
	if err != nil {
		return Supply{}, fmt.Errorf("ошибка подсчёта монет: %w", err)
	}
	return s, nil
}
