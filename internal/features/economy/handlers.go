// Package economy — handlers.go обрабатывает команды:
// !баланс, !перевод (перевод), !транзакции (история).
package economy

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/members"
)

// Handler обрабатывает команды экономики.
type Handler struct {
	service       *Service         // Сервис экономики
	memberService *members.Service // Сервис участников (для поиска получателя)
	bot           common.Sender    // API Telegram для отправки ответов
	loc           *time.Location   // Часовой пояс для дат в истории
}

// NewHandler создаёт новый обработчик экономических команд.
func NewHandler(service *Service, memberService *members.Service, bot common.Sender, loc *time.Location) *Handler {
	return &Handler{
		service:       service,
		memberService: memberService,
		bot:           bot,
		loc:           loc,
	}
}

// HandleBalance обрабатывает команду !баланс.
//
// Формат ответа:
//
//	💰 Баланс: 150 монет
func (h *Handler) HandleBalance(ctx context.Context, msg *tgbotapi.Message) {
	account, err := h.service.GetOrCreateAccount(ctx, msg.From.ID)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка получения баланса")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, fmt.Sprintf("💰 Баланс: %s", common.FormatBalance(account.Balance)))
}

// HandleTransfer обрабатывает команду перевода.
//
// Форматы:
//
//	!перевод @username 100
//	!перевод 100 (ответом на сообщение получателя)
func (h *Handler) HandleTransfer(ctx context.Context, msg *tgbotapi.Message, args []string) {
	chatID := msg.Chat.ID

	var (
		recipientID   int64
		recipientName string
		amountArg     string
	)
	switch {
	case len(args) >= 2 && common.ParseMention(args[0]) != "":
		recipient, err := h.memberService.GetByUsername(ctx, common.ParseMention(args[0]))
		if err != nil {
			common.ReplyError(h.bot, chatID, msg.From.ID, err, "Ошибка поиска получателя")
			return
		}
		recipientID, recipientName, amountArg = recipient.UserID, recipient.DisplayName(), args[1]
	case len(args) >= 1 && msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && !msg.ReplyToMessage.From.IsBot:
		to := msg.ReplyToMessage.From
		recipientID, recipientName, amountArg = to.ID, common.DisplayName(to), args[0]
	default:
		common.SendText(h.bot, chatID, "❌ Формат: !перевод @username сумма\nили ответом на сообщение: !перевод сумма")
		return
	}

	amount, err := common.ParseAmount(amountArg)
	if err != nil {
		common.ReplyError(h.bot, chatID, msg.From.ID, err, "")
		return
	}

	balance, err := h.service.Transfer(ctx, msg.From.ID, recipientID, amount)
	if err != nil {
		common.ReplyError(h.bot, chatID, msg.From.ID, err, "Ошибка перевода")
		return
	}

	common.SendText(h.bot, chatID, fmt.Sprintf("✅ Переведено %s → %s\nТвой баланс: %s",
		common.FormatBalance(amount), recipientName, common.FormatBalance(balance)))
}

// HandleTransactions обрабатывает команду !транзакции — показывает историю.
func (h *Handler) HandleTransactions(ctx context.Context, msg *tgbotapi.Message) {
	history, err := h.service.History(ctx, msg.From.ID, DefaultHistoryLimit)
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка получения транзакций")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, FormatHistory(history, h.loc))
}

// FormatHistory собирает текст истории транзакций.
func FormatHistory(history []*Transaction, loc *time.Location) string {
	if len(history) == 0 {
		return "📜 Транзакций пока нет"
	}

	var sb strings.Builder
	sb.WriteString("📜 Последние транзакции:\n")
	for _, t := range history {
		sb.WriteString(fmt.Sprintf("\n%s  %s  %s",
			common.FormatDateTime(t.CreatedAt, loc),
			common.FormatCoinsAmount(t.Amount),
			KindLabel(t.Kind),
		))
		if t.Description != "" && t.Kind != KindTransfer {
			sb.WriteString(" · " + t.Description)
		}
	}
	return sb.String()
}
