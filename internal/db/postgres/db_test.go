package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-bot/internal/common"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("syntax error")))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(common.ErrInsufficientFunds))

	assert.True(t, IsTransient(fmt.Errorf("read: %w", timeoutErr{})))
	assert.True(t, IsTransient(&pgconn.PgError{Code: "08006"}))
	assert.True(t, IsTransient(&pgconn.PgError{Code: "57P01"}))
	assert.False(t, IsTransient(&pgconn.PgError{Code: "23505"}))
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	db := &DB{attempts: 3, interval: time.Millisecond}

	calls := 0
	err := db.retry(context.Background(), func() error {
		calls++
		return timeoutErr{}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConnectionFailure)
	// первая попытка + 3 повтора
	assert.Equal(t, 4, calls)
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	db := &DB{attempts: 3, interval: time.Millisecond}

	calls := 0
	err := db.retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return timeoutErr{}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryDoesNotRepeatBusinessErrors(t *testing.T) {
	db := &DB{attempts: 3, interval: time.Millisecond}

	calls := 0
	err := db.retry(context.Background(), func() error {
		calls++
		return common.ErrInsufficientFunds
	})

	assert.ErrorIs(t, err, common.ErrInsufficientFunds)
	assert.NotErrorIs(t, err, common.ErrConnectionFailure)
	assert.Equal(t, 1, calls)
}

func TestLoadMigrationsOrdered(t *testing.T) {
	migrations, err := LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}
	assert.Equal(t, 1, migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS accounts")
}
