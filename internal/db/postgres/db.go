package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
)

// Querier — общий интерфейс пула и транзакции pgx.
// Репозитории пишут запросы против него, чтобы один и тот же метод
// работал и сам по себе, и внутри чужой транзакции.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB — пул соединений плюс политика повторов.
// Передаётся во все репозитории при создании; глобального состояния нет.
type DB struct {
	Pool     *pgxpool.Pool
	attempts int
	interval time.Duration
}

// New оборачивает готовый пул. attempts — число ПОВТОРОВ после первой попытки.
func New(pool *pgxpool.Pool, attempts int, interval time.Duration) *DB {
	if attempts < 0 {
		attempts = 0
	}
	return &DB{Pool: pool, attempts: attempts, interval: interval}
}

// Close закрывает пул.
func (d *DB) Close() {
	d.Pool.Close()
}

// Ping проверяет доступность базы.
func (d *DB) Ping(ctx context.Context) error {
	return d.retry(ctx, func() error { return d.Pool.Ping(ctx) })
}

// Do выполняет fn на пуле с повторами при обрыве соединения.
// Только для чтений и идемпотентных запросов: одиночный UPDATE,
// упавший посреди ответа, повторять нельзя.
func (d *DB) Do(ctx context.Context, fn func(q Querier) error) error {
	return d.retry(ctx, func() error { return fn(d.Pool) })
}

// WithTx выполняет fn в транзакции. Rollback вызывается на любом выходе
// (после Commit он ничего не делает). При сетевой ошибке до коммита
// транзакция целиком повторяется; ошибки fn (бизнес-ошибки) не повторяются.
func (d *DB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return d.retry(ctx, func() error {
		tx, err := d.Pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			// Коммит мог дойти до сервера — повторять можно только если
			// pgx уверен, что ничего не было отправлено.
			if pgconn.SafeToRetry(err) {
				return err
			}
			return backoff.Permanent(fmt.Errorf("ошибка коммита: %w", err))
		}
		return nil
	})
}

func (d *DB) retry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(d.interval), uint64(d.attempts)),
		ctx,
	)

	err := backoff.RetryNotify(func() error {
		err := op()
		if err == nil || IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, func(err error, wait time.Duration) {
		log.WithError(err).WithField("retry_in", wait).Warn("Ошибка соединения с БД, повторяем")
	})

	if err != nil && IsTransient(err) {
		return fmt.Errorf("%w: %w", common.ErrConnectionFailure, err)
	}
	return err
}

// IsTransient сообщает, что ошибка вызвана соединением, а не запросом:
// такие ошибки имеет смысл повторить.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgconn.SafeToRetry(err) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Класс 08 — connection exception, 57P01..03 — сервер выключается
		switch {
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			return true
		case pgErr.Code == "57P01", pgErr.Code == "57P02", pgErr.Code == "57P03":
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
