// Package activity — handlers.go: сообщения и голосовые в чате сообщества,
// команда !активность.
package activity

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
)

type Handler struct {
	service *Service
	bot     common.Sender
	now     func() time.Time
}

func NewHandler(service *Service, bot common.Sender) *Handler {
	return &Handler{service: service, bot: bot, now: time.Now}
}

// HandleMessage засчитывает обычное сообщение. Награды начисляются молча.
func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := h.service.OnChatMessage(ctx, msg.From.ID, msg.Text, h.now()); err != nil {
		log.WithError(err).WithField("user_id", msg.From.ID).Error("Ошибка начисления за сообщение")
	}
}

// HandleVoice засчитывает голосовое сообщение по его длительности.
func (h *Handler) HandleVoice(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Voice == nil {
		return
	}
	if _, err := h.service.OnVoice(ctx, msg.From.ID, msg.Voice.Duration, h.now()); err != nil {
		log.WithError(err).WithField("user_id", msg.From.ID).Error("Ошибка начисления за голосовое")
	}
}

// HandleActivity — команда !активность: прогресс за сегодня.
func (h *Handler) HandleActivity(ctx context.Context, msg *tgbotapi.Message) {
	today, err := h.service.Today(ctx, msg.From.ID, h.now())
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка чтения активности")
		return
	}
	limits, err := h.service.Limits(ctx)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка чтения лимитов")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, FormatToday(today, limits))
}

// FormatToday собирает текст прогресса за день.
func FormatToday(a *DailyActivity, l Limits) string {
	chat := fmt.Sprintf("💬 Сообщения: %d / %d", a.ChatCoinsEarned, l.ChatDailyLimit)
	if l.ChatDailyLimit > 0 && a.ChatCoinsEarned >= l.ChatDailyLimit {
		chat += " ✅ лимит на сегодня"
	}
	voice := fmt.Sprintf("🎙 Голосовые: %d / %d %s",
		a.VoiceMinutesEarned, l.VoiceDailyMinutes, common.PluralizeMinutes(int(l.VoiceDailyMinutes)))
	if l.VoiceDailyMinutes > 0 && a.VoiceMinutesEarned >= l.VoiceDailyMinutes {
		voice += " ✅"
	}
	return "📊 Активность за сегодня\n\n" + chat + "\n" + voice
}
