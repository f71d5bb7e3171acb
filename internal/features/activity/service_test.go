package activity

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-bot/internal/db/postgres/pgtest"
	"serotonyl.ru/economy-bot/internal/features/economy"
	"serotonyl.ru/economy-bot/internal/features/settings"
)

var env *pgtest.Env

func TestMain(m *testing.M) {
	ctx := context.Background()
	env = pgtest.Start(ctx, "activity_test")
	code := m.Run()
	env.Close(ctx)
	os.Exit(code)
}

type fixture struct {
	service  *Service
	ledger   *economy.Service
	settings *settings.Service
}

func newFixture(t *testing.T) fixture {
	db := env.Require(t)
	ledger := economy.NewService(economy.NewRepository(db))
	st := settings.NewService(settings.NewRepository(db))
	return fixture{
		service:  NewService(NewRepository(db), ledger, st, NewCooldown(time.Hour), time.UTC),
		ledger:   ledger,
		settings: st,
	}
}

var day = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestChatLimitIsAGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// лимит 10, награда 4: 0→4→8→12, дальше начислений нет
	var credits int
	for i := 0; i < 6; i++ {
		ok, err := f.service.RecordChatActivity(ctx, 1, day, 4, 10)
		require.NoError(t, err)
		if ok {
			credits++
		}
	}
	assert.Equal(t, 3, credits)

	a, err := f.service.repo.Get(ctx, 1, day)
	require.NoError(t, err)
	assert.Equal(t, int64(12), a.ChatCoinsEarned)

	balance, err := f.ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(12), balance)

	// новый день — новый счётчик
	ok, err := f.service.RecordChatActivity(ctx, 1, day.AddDate(0, 0, 1), 4, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChatLimitUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		credits int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.service.RecordChatActivity(ctx, 1, day, 1, 5)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				credits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, credits)
	balance, err := f.ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
}

func TestChatRewardDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ok, err := f.service.RecordChatActivity(ctx, 1, day, 0, 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVoiceBoundaries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	units, err := f.service.RecordVoiceActivity(ctx, 1, day, 3, 2, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(0), units)

	units, err = f.service.RecordVoiceActivity(ctx, 1, day, 4, 2, 12) // 3 → 7
	require.NoError(t, err)
	assert.Equal(t, int64(1), units)

	units, err = f.service.RecordVoiceActivity(ctx, 1, day, 30, 2, 12) // 7 → 12 (потолок)
	require.NoError(t, err)
	assert.Equal(t, int64(1), units)

	units, err = f.service.RecordVoiceActivity(ctx, 1, day, 30, 2, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(0), units)

	a, err := f.service.repo.Get(ctx, 1, day)
	require.NoError(t, err)
	assert.Equal(t, int64(12), a.VoiceMinutesEarned)

	balance, err := f.ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), balance)
}

func TestOnChatMessageUsesSettingsAndCooldown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.Set(ctx, settings.KeyChatReward, "3"))
	require.NoError(t, f.settings.Set(ctx, settings.KeyChatCooldownSeconds, "60"))

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	ok, err := f.service.OnChatMessage(ctx, 1, "ок", now)
	require.NoError(t, err)
	assert.False(t, ok, "короткое сообщение не засчитывается")

	ok, err = f.service.OnChatMessage(ctx, 1, "всем привет из чата", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.service.OnChatMessage(ctx, 1, "и снова привет всем", now.Add(5*time.Second))
	require.NoError(t, err)
	assert.False(t, ok, "пауза ещё не прошла")

	ok, err = f.service.OnChatMessage(ctx, 1, "и снова привет всем", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	balance, err := f.ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(6), balance)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	now := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)
	_, err := f.service.RecordChatActivity(ctx, 1, now.AddDate(0, 0, -40), 1, 10)
	require.NoError(t, err)
	_, err = f.service.RecordChatActivity(ctx, 1, now.AddDate(0, 0, -1), 1, 10)
	require.NoError(t, err)

	deleted, err := f.service.Prune(ctx, now, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestFormatToday(t *testing.T) {
	text := FormatToday(&DailyActivity{ChatCoinsEarned: 50, VoiceMinutesEarned: 5}, Limits{ChatDailyLimit: 50, VoiceDailyMinutes: 120})
	assert.Contains(t, text, "50 / 50 ✅ лимит на сегодня")
	assert.Contains(t, text, "5 / 120 минут")
}
