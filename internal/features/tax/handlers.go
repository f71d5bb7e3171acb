package tax

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/approval"
)

// CallbackKind — префикс callback data кнопок налога.
const CallbackKind = "tax"

type Handler struct {
	service *Service
	bot     common.Sender
}

func NewHandler(service *Service, bot common.Sender) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleStatus — !налог.
func (h *Handler) HandleStatus(ctx context.Context, msg *tgbotapi.Message) {
	amount, err := h.service.Amount(ctx)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка чтения ставки налога")
		return
	}
	rec, err := h.service.Status(ctx, msg.From.ID)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка чтения налоговой записи")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, FormatStatus(amount, rec))
}

// HandleSubmit — !оплата, подписью к скриншоту перевода.
func (h *Handler) HandleSubmit(ctx context.Context, msg *tgbotapi.Message) {
	chatID, userID := msg.Chat.ID, msg.From.ID

	sub, err := h.service.Submit(ctx, userID, approval.ProofFileID(msg))
	if err != nil {
		common.ReplyError(h.bot, chatID, userID, err, "Ошибка создания заявки на налог")
		return
	}

	reviewChat, err := h.service.ReviewChat(ctx)
	if err != nil {
		common.ReplyError(h.bot, chatID, userID, err, "Ошибка чтения чата модерации")
		return
	}

	photo := tgbotapi.NewPhoto(reviewChat, tgbotapi.FileID(sub.ProofRef))
	photo.Caption = fmt.Sprintf("🧾 Оплата налога #%d\nОт: %s\nСумма: %s",
		sub.ID, common.DisplayName(msg.From), common.FormatBalance(sub.Amount))
	photo.ReplyMarkup = approval.ReviewKeyboard(CallbackKind, sub.ID)
	posted, err := h.bot.Send(photo)
	if err != nil {
		log.WithError(err).WithField("submission", sub.ID).Error("Не удалось отправить заявку на налог в чат модерации")
	} else if err := h.service.AttachMessage(ctx, sub.ID, reviewChat, posted.MessageID); err != nil {
		log.WithError(err).WithField("submission", sub.ID).Error("Не удалось сохранить пост заявки на налог")
	}

	common.SendText(h.bot, chatID, fmt.Sprintf("📨 Заявка об оплате налога #%d отправлена на проверку", sub.ID))
}

// HandleCallback — нажатие кнопки под постом с заявкой.
func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, decision approval.Decision, id int64) {
	sub, err := h.service.Decide(ctx, approval.ByID(id), decision, cq.From.ID)
	if err != nil {
		text, known := common.ErrorText(err)
		if !known {
			log.WithError(err).WithField("submission", id).Error("Ошибка решения по налогу")
		}
		approval.AnswerCallback(h.bot, cq.ID, text)
		return
	}

	approval.AnswerCallback(h.bot, cq.ID, approval.CallbackText(sub.Status))
	if cq.Message != nil {
		approval.CloseCard(h.bot, cq.Message.Chat.ID, cq.Message.MessageID, cq.Message.Caption, sub.Status, common.DisplayName(cq.From))
	}
}

// HandleReplyDecision — /одобрить или /отклонить ответом на пост.
// Возвращает false, если пост не относится к налогу.
func (h *Handler) HandleReplyDecision(ctx context.Context, msg *tgbotapi.Message, decision approval.Decision) bool {
	post := msg.ReplyToMessage
	if post == nil {
		return false
	}

	sub, err := h.service.Decide(ctx, approval.ByMessage(post.Chat.ID, post.MessageID), decision, msg.From.ID)
	if errors.Is(err, common.ErrSubmissionNotFound) {
		return false
	}
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка решения по налогу")
		return true
	}

	approval.CloseCard(h.bot, post.Chat.ID, post.MessageID, post.Caption, sub.Status, common.DisplayName(msg.From))
	return true
}

// FormatStatus — ответ на !налог.
func FormatStatus(amount int64, rec *Record) string {
	if amount <= 0 {
		return "🧾 Налог сейчас не взимается"
	}
	head := fmt.Sprintf("🧾 Налог: %s в неделю\n", common.FormatBalance(amount))
	switch {
	case rec == nil:
		return head + "Статус: ещё не оплачивался\nОплата: !оплата подписью к скриншоту перевода"
	case rec.Status == StatusDelinquent:
		return head + fmt.Sprintf("Статус: ⚠️ просрочен с %s\nОплата: !оплата подписью к скриншоту перевода",
			common.FormatDate(rec.NextDue.AddDate(0, 0, 1)))
	}
	return head + fmt.Sprintf("Статус: ✅ оплачен до %s", common.FormatDate(rec.NextDue))
}

