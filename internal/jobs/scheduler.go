// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежедневная проверка налоговых
// сроков и чистка старых счётчиков активности.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/metrics"
)

const (
	jobTaxSweep      = "tax_sweep"
	jobActivityPrune = "activity_prune"
)

// TaxSweeper отмечает должников по налогу.
type TaxSweeper interface {
	Sweep(ctx context.Context) ([]int64, error)
}

// ActivityPruner удаляет старые счётчики активности.
type ActivityPruner interface {
	Prune(ctx context.Context, now time.Time, retentionDays int) (int64, error)
}

// Schedules — расписания задач в формате cron (5 полей).
type Schedules struct {
	TaxSweep      string
	ActivityPrune string
	RetentionDays int
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron      *cron.Cron
	schedules Schedules
	tax       TaxSweeper
	activity  ActivityPruner
	sendFunc  func(userID int64, text string)
	now       func() time.Time
}

// NewScheduler создаёт планировщик в часовом поясе приложения.
// sendFunc — личное сообщение пользователю (уведомление о просрочке).
func NewScheduler(loc *time.Location, schedules Schedules, tax TaxSweeper, activity ActivityPruner, sendFunc func(userID int64, text string)) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		schedules: schedules,
		tax:       tax,
		activity:  activity,
		sendFunc:  sendFunc,
		now:       time.Now,
	}
}

// Start регистрирует задачи и запускает cron. Ошибка — кривое расписание.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedules.TaxSweep, func() { s.RunTaxSweep(ctx) }); err != nil {
		return fmt.Errorf("расписание %s %q: %w", jobTaxSweep, s.schedules.TaxSweep, err)
	}
	if _, err := s.cron.AddFunc(s.schedules.ActivityPrune, func() { s.RunActivityPrune(ctx) }); err != nil {
		return fmt.Errorf("расписание %s %q: %w", jobActivityPrune, s.schedules.ActivityPrune, err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		jobTaxSweep:      s.schedules.TaxSweep,
		jobActivityPrune: s.schedules.ActivityPrune,
	}).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт выполняющиеся задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// RunTaxSweep — ежедневная проверка сроков налога. Новым должникам
// уходит личное сообщение; если лички с ботом нет, Telegram откажет,
// и это не ошибка задачи.
func (s *Scheduler) RunTaxSweep(ctx context.Context) {
	start := time.Now()
	log.Info("[CRON] Проверка налоговых сроков")

	ids, err := s.tax.Sweep(ctx)
	switch {
	case errors.Is(err, common.ErrConfigurationMissing):
		log.Debug("[CRON] Роли налога не настроены, проверка пропущена")
		err = nil
	case err != nil:
		log.WithError(err).Error("[CRON] Ошибка проверки налогов")
	}

	for _, userID := range ids {
		s.sendFunc(userID, "🧾 Срок оплаты налога истёк. Оплатите его командой !оплата со скриншотом перевода, чтобы вернуть роль участника.")
	}
	metrics.RecordJob(jobTaxSweep, time.Since(start), err == nil)
}

// RunActivityPrune удаляет счётчики активности старше срока хранения.
func (s *Scheduler) RunActivityPrune(ctx context.Context) {
	start := time.Now()
	log.Debug("[CRON] Чистка счётчиков активности")

	_, err := s.activity.Prune(ctx, s.now(), s.schedules.RetentionDays)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка чистки активности")
	}
	metrics.RecordJob(jobActivityPrune, time.Since(start), err == nil)
}
