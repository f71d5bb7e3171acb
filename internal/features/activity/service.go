// Package activity — service.go: начисления за сообщения и голосовые.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/economy"
	"serotonyl.ru/economy-bot/internal/features/settings"
	"serotonyl.ru/economy-bot/internal/metrics"
)

// Service связывает счётчики активности с начислениями.
type Service struct {
	repo     *Repository
	ledger   *economy.Service
	settings *settings.Service
	cooldown *Cooldown
	loc      *time.Location
}

func NewService(repo *Repository, ledger *economy.Service, settingsService *settings.Service, cooldown *Cooldown, loc *time.Location) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		settings: settingsService,
		cooldown: cooldown,
		loc:      loc,
	}
}

// RecordChatActivity начисляет reward, если счётчик дня ещё ниже limit.
//
// Лимит — порог, а не потолок: последняя награда начисляется целиком,
// даже если счётчик перевалит за limit. После этого начислений за день нет.
// Счётчик и начисление меняются в одной транзакции.
func (s *Service) RecordChatActivity(ctx context.Context, userID int64, day time.Time, reward, limit int64) (bool, error) {
	if reward <= 0 || limit <= 0 {
		return false, nil
	}

	credited := false
	err := s.repo.DB().WithTx(ctx, func(tx pgx.Tx) error {
		credited = false
		ok, err := s.repo.IncrementChatTx(ctx, tx, userID, day, reward, limit)
		if err != nil || !ok {
			return err
		}
		if _, err := s.ledger.CreditTx(ctx, tx, userID, reward, economy.KindChatReward, "Активность в чате"); err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("награда за чат user_id=%d: %w", userID, err)
	}
	if credited {
		metrics.RecordLedger(economy.KindChatReward, reward, nil)
	}
	return credited, nil
}

// RecordVoiceActivity прибавляет минуты (не выше minuteLimit) и начисляет
// rewardPerIncrement за каждую пересечённую границу в 5 минут.
// Возвращает число начисленных наград.
func (s *Service) RecordVoiceActivity(ctx context.Context, userID int64, day time.Time, minutes, rewardPerIncrement, minuteLimit int64) (int64, error) {
	if minutes <= 0 || minuteLimit <= 0 {
		return 0, nil
	}

	var units int64
	err := s.repo.DB().WithTx(ctx, func(tx pgx.Tx) error {
		units = 0
		before, after, err := s.repo.AddVoiceMinutesTx(ctx, tx, userID, day, minutes, minuteLimit)
		if err != nil {
			return err
		}
		units = voiceUnits(before, after)
		if units == 0 || rewardPerIncrement <= 0 {
			return nil
		}
		description := fmt.Sprintf("Голосовые: %d %s", after, common.PluralizeMinutes(int(after)))
		_, err = s.ledger.CreditTx(ctx, tx, userID, units*rewardPerIncrement, economy.KindVoiceReward, description)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("награда за голосовые user_id=%d: %w", userID, err)
	}
	if units > 0 && rewardPerIncrement > 0 {
		metrics.RecordLedger(economy.KindVoiceReward, units*rewardPerIncrement, nil)
	}
	return units, nil
}

// Limits читает награды и лимиты из настроек.
func (s *Service) Limits(ctx context.Context) (Limits, error) {
	var (
		l   Limits
		err error
	)
	read := func(key string, dst *int64) {
		if err != nil {
			return
		}
		*dst, err = s.settings.GetInt(ctx, key, 0)
	}
	var cooldownSeconds int64
	read(settings.KeyChatReward, &l.ChatReward)
	read(settings.KeyChatDailyLimit, &l.ChatDailyLimit)
	read(settings.KeyChatCooldownSeconds, &cooldownSeconds)
	read(settings.KeyVoiceReward, &l.VoiceReward)
	read(settings.KeyVoiceDailyMinutes, &l.VoiceDailyMinutes)
	if err != nil {
		return Limits{}, err
	}
	l.ChatCooldown = time.Duration(cooldownSeconds) * time.Second
	return l, nil
}

// OnChatMessage — входная точка для сообщения в чате сообщества.
// Пауза проверяется первой, чтобы не ходить в базу на каждое сообщение.
func (s *Service) OnChatMessage(ctx context.Context, userID int64, text string, now time.Time) (bool, error) {
	if !Qualifies(text) {
		return false, nil
	}
	limits, err := s.Limits(ctx)
	if err != nil {
		return false, err
	}
	if !s.cooldown.Allow(userID, limits.ChatCooldown, now) {
		return false, nil
	}

	credited, err := s.RecordChatActivity(ctx, userID, common.Day(now, s.loc), limits.ChatReward, limits.ChatDailyLimit)
	if err != nil {
		return false, err
	}
	if credited {
		log.WithFields(log.Fields{"user_id": userID, "reward": limits.ChatReward}).Debug("Награда за сообщение")
	}
	return credited, nil
}

// OnVoice — входная точка для голосового сообщения длительностью seconds.
// Засчитываются только целые минуты.
func (s *Service) OnVoice(ctx context.Context, userID int64, seconds int, now time.Time) (int64, error) {
	minutes := int64(seconds / 60)
	if minutes <= 0 {
		return 0, nil
	}
	limits, err := s.Limits(ctx)
	if err != nil {
		return 0, err
	}
	units, err := s.RecordVoiceActivity(ctx, userID, common.Day(now, s.loc), minutes, limits.VoiceReward, limits.VoiceDailyMinutes)
	if err != nil {
		return 0, err
	}
	if units > 0 {
		log.WithFields(log.Fields{"user_id": userID, "units": units}).Debug("Награда за голосовые")
	}
	return units, nil
}

// Today возвращает счётчики пользователя за сегодня.
func (s *Service) Today(ctx context.Context, userID int64, now time.Time) (*DailyActivity, error) {
	return s.repo.Get(ctx, userID, common.Day(now, s.loc))
}

// Prune удаляет счётчики старше retentionDays дней.
func (s *Service) Prune(ctx context.Context, now time.Time, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := common.Day(now, s.loc).AddDate(0, 0, -retentionDays)
	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"deleted": deleted, "before": common.FormatDate(cutoff)}).Info("Старые счётчики активности удалены")
	return deleted, nil
}
