// Package pgtest поднимает PostgreSQL для интеграционных тестов.
//
// Если задан TEST_DATABASE_URL — используется внешняя база (CI, локальная
// разработка). Иначе запускается контейнер через testcontainers. Когда нет
// ни того, ни другого (нет Docker), тесты с базой пропускаются.
package pgtest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"serotonyl.ru/economy-bot/internal/db/postgres"
)

// Env — общая база для всех тестов пакета.
type Env struct {
	DB        *postgres.DB
	container *tcpostgres.PostgresContainer
	startErr  error
}

// Start вызывается из TestMain. Ошибку запуска не считает фатальной:
// она сохраняется, и Require пропустит тест.
//
// schema — отдельная схема на пакет: go test гоняет пакеты параллельно,
// и с общей внешней базой они иначе чистили бы таблицы друг другу.
func Start(ctx context.Context, schema string) *Env {
	env := &Env{}

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		container, err := startContainer(ctx)
		if err != nil {
			env.startErr = err
			return env
		}
		env.container = container

		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			env.startErr = fmt.Errorf("connection string: %w", err)
			return env
		}
	}

	if err := createSchema(ctx, dsn, schema); err != nil {
		env.startErr = err
		return env
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		env.startErr = fmt.Errorf("parse dsn: %w", err)
		return env
	}
	poolConfig.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		env.startErr = fmt.Errorf("connect: %w", err)
		return env
	}
	env.DB = postgres.New(pool, 3, 200*time.Millisecond)

	if err := postgres.RunMigrations(ctx, env.DB); err != nil {
		env.startErr = fmt.Errorf("migrations: %w", err)
		return env
	}
	return env
}

func createSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	return nil
}

func startContainer(ctx context.Context) (c *tcpostgres.PostgresContainer, err error) {
	// testcontainers паникует, если Docker не найден
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker недоступен: %v", r)
		}
	}()

	return tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("economy_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
}

// Require возвращает базу с чистыми таблицами или пропускает тест.
func (e *Env) Require(t *testing.T) *postgres.DB {
	t.Helper()
	if e == nil || e.DB == nil || e.startErr != nil {
		t.Skipf("PostgreSQL недоступен: %v", e.err())
	}
	if err := Truncate(context.Background(), e.DB); err != nil {
		t.Fatalf("очистка таблиц: %v", err)
	}
	return e.DB
}

func (e *Env) err() error {
	if e == nil {
		return fmt.Errorf("окружение не создано")
	}
	return e.startErr
}

// Close останавливает контейнер и закрывает пул.
func (e *Env) Close(ctx context.Context) {
	if e == nil {
		return
	}
	if e.DB != nil {
		e.DB.Close()
	}
	if e.container != nil {
		if err := e.container.Terminate(ctx); err != nil {
			fmt.Printf("Не удалось остановить контейнер PostgreSQL: %v\n", err)
		}
	}
}

// Truncate очищает все таблицы приложения.
func Truncate(ctx context.Context, db *postgres.DB) error {
	return db.Do(ctx, func(q postgres.Querier) error {
		_, err := q.Exec(ctx, `
			TRUNCATE members, accounts, transactions, config, daily_activity,
			         shop_items, orb_submissions, tax_submissions, tax_records,
			         events, admin_sessions, admin_login_attempts
			RESTART IDENTITY
		`)
		return err
	})
}
