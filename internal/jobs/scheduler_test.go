package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-bot/internal/common"
)

type fakeTax struct {
	ids []int64
	err error
}

func (f *fakeTax) Sweep(context.Context) ([]int64, error) { return f.ids, f.err }

type fakePruner struct {
	now  time.Time
	days int
	err  error
}

func (f *fakePruner) Prune(_ context.Context, now time.Time, days int) (int64, error) {
	f.now, f.days = now, days
	return 3, f.err
}

var schedules = Schedules{TaxSweep: "5 0 * * *", ActivityPrune: "30 3 * * *", RetentionDays: 60}

func TestTaxSweepNotifiesDelinquents(t *testing.T) {
	var notified []int64
	s := NewScheduler(time.UTC, schedules, &fakeTax{ids: []int64{1, 2}}, &fakePruner{}, func(userID int64, _ string) {
		notified = append(notified, userID)
	})

	s.RunTaxSweep(context.Background())
	assert.Equal(t, []int64{1, 2}, notified)
}

func TestTaxSweepWithoutRolesIsQuiet(t *testing.T) {
	var notified int
	s := NewScheduler(time.UTC, schedules, &fakeTax{err: common.ErrConfigurationMissing}, &fakePruner{}, func(int64, string) {
		notified++
	})

	assert.NotPanics(t, func() { s.RunTaxSweep(context.Background()) })
	assert.Zero(t, notified)
}

func TestActivityPrunePassesRetention(t *testing.T) {
	p := &fakePruner{err: errors.New("db down")}
	s := NewScheduler(time.UTC, schedules, &fakeTax{}, p, func(int64, string) {})
	fixed := time.Date(2026, 3, 1, 3, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.RunActivityPrune(context.Background())
	assert.Equal(t, fixed, p.now)
	assert.Equal(t, 60, p.days)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	bad := schedules
	bad.TaxSweep = "каждый день"
	s := NewScheduler(time.UTC, bad, &fakeTax{}, &fakePruner{}, func(int64, string) {})
	assert.Error(t, s.Start(context.Background()))

	s = NewScheduler(time.UTC, schedules, &fakeTax{}, &fakePruner{}, func(int64, string) {})
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
