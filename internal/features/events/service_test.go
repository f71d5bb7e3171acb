package events

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/db/postgres/pgtest"
	"serotonyl.ru/economy-bot/internal/features/economy"
)

var env *pgtest.Env

func TestMain(m *testing.M) {
	ctx := context.Background()
	env = pgtest.Start(ctx, "events_test")
	code := m.Run()
	env.Close(ctx)
	os.Exit(code)
}

var startsAt = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

func newServices(t *testing.T) (*Service, *economy.Service) {
	db := env.Require(t)
	ledger := economy.NewService(economy.NewRepository(db))
	return NewService(NewRepository(db), ledger), ledger
}

func intPtr(n int) *int { return &n }

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusScheduled, StatusActive))
	assert.True(t, CanTransition(StatusScheduled, StatusCancelled))
	assert.True(t, CanTransition(StatusActive, StatusFinished))
	assert.True(t, CanTransition(StatusActive, StatusCancelled))

	assert.False(t, CanTransition(StatusScheduled, StatusFinished))
	assert.False(t, CanTransition(StatusActive, StatusScheduled))
	assert.False(t, CanTransition(StatusFinished, StatusActive))
	assert.False(t, CanTransition(StatusCancelled, StatusScheduled))
	assert.False(t, CanTransition(StatusFinished, StatusFinished))
}

func TestRegisterCapacityAndIdempotency(t *testing.T) {
	ctx := context.Background()
	s, _ := newServices(t)

	e, err := s.Create(ctx, "Турнир", startsAt, intPtr(2), 0, "")
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, e.Status)

	_, added, err := s.Register(ctx, e.ID, 1, nil)
	require.NoError(t, err)
	assert.True(t, added)

	got, added, err := s.Register(ctx, e.ID, 1, nil)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, []int64{1}, got.Participants)

	_, _, err = s.Register(ctx, e.ID, 2, nil)
	require.NoError(t, err)

	_, _, err = s.Register(ctx, e.ID, 3, nil)
	assert.ErrorIs(t, err, common.ErrEventFull)

	// уже записанный не получает ErrEventFull
	_, added, err = s.Register(ctx, e.ID, 2, nil)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestRegisterRequiresRole(t *testing.T) {
	ctx := context.Background()
	s, _ := newServices(t)

	e, err := s.Create(ctx, "Закрытый вечер", startsAt, nil, 0, "VIP")
	require.NoError(t, err)

	_, _, err = s.Register(ctx, e.ID, 1, []string{"участник"})
	assert.ErrorIs(t, err, common.ErrRoleRequired)

	_, added, err := s.Register(ctx, e.ID, 1, []string{"vip"})
	require.NoError(t, err)
	assert.True(t, added)
}

func TestRegisterUnknownEvent(t *testing.T) {
	s, _ := newServices(t)
	_, _, err := s.Register(context.Background(), 404, 1, nil)
	assert.ErrorIs(t, err, common.ErrEventNotFound)
}

func TestConcurrentRegistrationRespectsCapacity(t *testing.T) {
	ctx := context.Background()
	s, _ := newServices(t)

	e, err := s.Create(ctx, "Квиз", startsAt, intPtr(3), 0, "")
	require.NoError(t, err)

	const users = 12
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		full int
	)
	for i := 1; i <= users; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, _, err := s.Register(ctx, e.ID, userID, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, common.ErrEventFull):
				full++
			default:
				t.Errorf("неожиданная ошибка: %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, users-3, full)

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 3)
}

func TestUnregister(t *testing.T) {
	ctx := context.Background()
	s, _ := newServices(t)

	e, err := s.Create(ctx, "Кино", startsAt, nil, 0, "")
	require.NoError(t, err)
	_, _, err = s.Register(ctx, e.ID, 1, nil)
	require.NoError(t, err)
	_, _, err = s.Register(ctx, e.ID, 2, nil)
	require.NoError(t, err)

	removed, err := s.Unregister(ctx, e.ID, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Unregister(ctx, e.ID, 1)
	require.NoError(t, err)
	assert.False(t, removed)

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, got.Participants)
}

func TestFinishPaysParticipantsOnce(t *testing.T) {
	ctx := context.Background()
	s, ledger := newServices(t)

	e, err := s.Create(ctx, "Субботник", startsAt, nil, 25, "")
	require.NoError(t, err)
	for _, id := range []int64{3, 1, 2} {
		_, _, err := s.Register(ctx, e.ID, id, nil)
		require.NoError(t, err)
	}

	_, err = s.SetStatus(ctx, e.ID, StatusFinished)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	_, err = s.SetStatus(ctx, e.ID, StatusActive)
	require.NoError(t, err)

	res, err := s.SetStatus(ctx, e.ID, StatusFinished)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Paid)
	assert.Equal(t, StatusFinished, res.Event.Status)

	for _, id := range []int64{1, 2, 3} {
		balance, err := ledger.GetBalance(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(25), balance)
	}

	_, err = s.SetStatus(ctx, e.ID, StatusFinished)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	_, _, err = s.Register(ctx, e.ID, 9, nil)
	assert.ErrorIs(t, err, common.ErrEventClosed)

	balance, err := ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(25), balance)
}

func TestCancelPaysNothing(t *testing.T) {
	ctx := context.Background()
	s, ledger := newServices(t)

	e, err := s.Create(ctx, "Поход", startsAt, nil, 10, "")
	require.NoError(t, err)
	_, _, err = s.Register(ctx, e.ID, 1, nil)
	require.NoError(t, err)

	res, err := s.SetStatus(ctx, e.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Zero(t, res.Paid)

	balance, err := ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = s.Unregister(ctx, e.ID, 1)
	assert.ErrorIs(t, err, common.ErrEventClosed)
}

func TestUpcomingSkipsClosedAndPast(t *testing.T) {
	ctx := context.Background()
	s, _ := newServices(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	late, err := s.Create(ctx, "Позже", now.Add(48*time.Hour), nil, 0, "")
	require.NoError(t, err)
	soon, err := s.Create(ctx, "Скоро", now.Add(2*time.Hour), nil, 0, "")
	require.NoError(t, err)
	_, err = s.Create(ctx, "Прошедший", now.Add(-48*time.Hour), nil, 0, "")
	require.NoError(t, err)
	running, err := s.Create(ctx, "Идёт", now.Add(-time.Hour), nil, 0, "")
	require.NoError(t, err)
	_, err = s.SetStatus(ctx, running.ID, StatusActive)
	require.NoError(t, err)
	cancelled, err := s.Create(ctx, "Отменён", now.Add(time.Hour), nil, 0, "")
	require.NoError(t, err)
	_, err = s.SetStatus(ctx, cancelled.ID, StatusCancelled)
	require.NoError(t, err)

	list, err := s.Upcoming(ctx, now, 10)
	require.NoError(t, err)
	ids := make([]int64, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{running.ID, soon.ID, late.ID}, ids)
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "📅 Ближайших ивентов нет", FormatList(nil, 1, time.UTC))

	text := FormatList([]*Event{{
		ID: 4, Name: "Квиз", StartsAt: startsAt, Status: StatusScheduled,
		Capacity: intPtr(10), Participants: []int64{1, 2}, Reward: 5, RequiredRole: "VIP",
	}}, 1, time.UTC)
	assert.Contains(t, text, "#4 Квиз ✅")
	assert.Contains(t, text, "01.05.2026 18:00")
	assert.Contains(t, text, "мест 2/10")
	assert.Contains(t, text, "награда 5 монет")
	assert.Contains(t, text, "только для «VIP»")
}
