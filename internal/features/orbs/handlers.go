// Package orbs — handlers.go: команда !орб, кнопки и ответы модераторов.
package orbs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/approval"
	"serotonyl.ru/economy-bot/internal/features/members"
)

// CallbackKind — префикс callback data кнопок орбов.
const CallbackKind = "orb"

type Handler struct {
	service *Service
	members *members.Service
	bot     common.Sender
}

func NewHandler(service *Service, memberService *members.Service, bot common.Sender) *Handler {
	return &Handler{service: service, members: memberService, bot: bot}
}

// HandleSubmit — !орб @a @b, подписью к скриншоту.
// Автор заявки тоже участник, даже если не упомянул себя.
func (h *Handler) HandleSubmit(ctx context.Context, msg *tgbotapi.Message, args []string) {
	chatID, userID := msg.Chat.ID, msg.From.ID

	mentions := common.ParseMentions(args)
	if len(mentions) == 0 {
		common.SendText(h.bot, chatID, "❌ Формат: !орб @участник1 @участник2 — подписью к скриншоту")
		return
	}

	ids := []int64{userID}
	names := []string{common.DisplayName(msg.From)}
	seen := map[int64]struct{}{userID: {}}
	for _, username := range mentions {
		m, err := h.members.GetByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, common.ErrUserNotFound) {
				common.SendText(h.bot, chatID, fmt.Sprintf("❌ @%s не найден. Он должен хотя бы раз написать в чат", username))
				return
			}
			common.ReplyError(h.bot, chatID, userID, err, "Ошибка поиска участника орба")
			return
		}
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		ids = append(ids, m.UserID)
		names = append(names, m.DisplayName())
	}
	sub, err := h.service.Submit(ctx, userID, ids, approval.ProofFileID(msg))
	if err != nil {
		common.ReplyError(h.bot, chatID, userID, err, "Ошибка создания заявки на орб")
		return
	}

	reviewChat, err := h.service.ReviewChat(ctx)
	if err != nil {
		common.ReplyError(h.bot, chatID, userID, err, "Ошибка чтения чата модерации")
		return
	}

	photo := tgbotapi.NewPhoto(reviewChat, tgbotapi.FileID(sub.ProofRef))
	photo.Caption = FormatCard(sub, common.DisplayName(msg.From), names)
	photo.ReplyMarkup = approval.ReviewKeyboard(CallbackKind, sub.ID)
	posted, err := h.bot.Send(photo)
	if err != nil {
		// Заявка уже в базе: её можно решить через /заявки
		log.WithError(err).WithField("submission", sub.ID).Error("Не удалось отправить заявку на орб в чат модерации")
	} else if err := h.service.AttachMessage(ctx, sub.ID, reviewChat, posted.MessageID); err != nil {
		log.WithError(err).WithField("submission", sub.ID).Error("Не удалось сохранить пост заявки на орб")
	}

	common.SendText(h.bot, chatID, fmt.Sprintf("📨 Заявка на орб #%d отправлена на модерацию", sub.ID))
}

// HandleCallback — нажатие кнопки под постом с заявкой.
func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, decision approval.Decision, id int64) {
	sub, err := h.service.Decide(ctx, approval.ByID(id), decision, cq.From.ID)
	if err != nil {
		text, known := common.ErrorText(err)
		if !known {
			log.WithError(err).WithField("submission", id).Error("Ошибка решения по орбу")
		}
		approval.AnswerCallback(h.bot, cq.ID, text)
		return
	}

	approval.AnswerCallback(h.bot, cq.ID, approval.CallbackText(sub.Status))
	if cq.Message != nil {
		approval.CloseCard(h.bot, cq.Message.Chat.ID, cq.Message.MessageID, cq.Message.Caption, sub.Status, common.DisplayName(cq.From))
	}
}

// HandleReplyDecision — /одобрить или /отклонить ответом на пост с заявкой.
// Возвращает false, если пост не относится к орбам.
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
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка решения по орбу")
		return true
	}

	approval.CloseCard(h.bot, post.Chat.ID, post.MessageID, post.Caption, sub.Status, common.DisplayName(msg.From))
	return true
}

// FormatCard — подпись поста в чате модерации.
func FormatCard(sub *Submission, submitter string, participants []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔮 Заявка на орб #%d\n", sub.ID))
	sb.WriteString(fmt.Sprintf("От: %s\n", submitter))
	sb.WriteString(fmt.Sprintf("Участники (%d): %s\n", len(participants), strings.Join(participants, ", ")))

	share := Share(sub.Amount, len(participants))
	sb.WriteString(fmt.Sprintf("Награда: %s, по %s каждому", common.FormatBalance(sub.Amount), common.FormatBalance(share)))
	return sb.String()
}
