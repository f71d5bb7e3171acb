// Package members — handlers.go обрабатывает Telegram-события, связанные с участниками.
// Основное событие: новый пользователь вступил в чат.
package members

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает события участников.
type Handler struct {
	service *Service
}

// NewHandler создаёт новый обработчик событий участников.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleNewChatMembers регистрирует каждого вступившего пользователя.
// Ботов пропускаем: у них не бывает счетов.
func (h *Handler) HandleNewChatMembers(ctx context.Context, newMembers []tgbotapi.User) {
	for _, user := range newMembers {
		if user.IsBot {
			continue
		}
		err := h.service.HandleNewMember(ctx, user.ID, user.UserName, user.FirstName, user.LastName)
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("Ошибка регистрации нового участника")
		}
	}
}

// Touch регистрирует автора сообщения, если его ещё нет в базе.
func (h *Handler) Touch(ctx context.Context, from *tgbotapi.User) {
	if from == nil || from.IsBot {
		return
	}
	if err := h.service.EnsureMember(ctx, from.ID, from.UserName, from.FirstName, from.LastName); err != nil {
		log.WithError(err).WithField("user_id", from.ID).Warn("Не удалось зарегистрировать автора сообщения")
	}
}
