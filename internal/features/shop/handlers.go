// Package shop — handlers.go обрабатывает команды !магазин и !купить.
package shop

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"serotonyl.ru/economy-bot/internal/common"
)

type Handler struct {
	service *Service
	bot     common.Sender
}

func NewHandler(service *Service, bot common.Sender) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleList — !магазин.
func (h *Handler) HandleList(ctx context.Context, msg *tgbotapi.Message) {
	items, err := h.service.ListItems(ctx)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка чтения каталога")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, FormatCatalog(items))
}

// HandleBuy — !купить <id>.
func (h *Handler) HandleBuy(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		common.SendText(h.bot, msg.Chat.ID, "❌ Формат: !купить id_товара\nСписок товаров: !магазин")
		return
	}

	p, err := h.service.Purchase(ctx, msg.From.ID, args[0])
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка покупки")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, fmt.Sprintf("🛍 %s куплен за %s\nТвой баланс: %s",
		p.Item.Name, common.FormatBalance(p.Item.Price), common.FormatBalance(p.Balance)))
}

// FormatCatalog собирает текст каталога.
func FormatCatalog(items []*Item) string {
	if len(items) == 0 {
		return "🛒 Магазин пока пуст"
	}
	var sb strings.Builder
	sb.WriteString("🛒 Магазин\n")
	for _, it := range items {
		sb.WriteString(fmt.Sprintf("\n• %s — %s  [%s]", it.Name, common.FormatBalance(it.Price), it.ItemID))
		if it.Description != "" {
			sb.WriteString("\n   " + it.Description)
		}
	}
	sb.WriteString("\n\nКупить: !купить id")
	return sb.String()
}
