package economy

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/settings"
)

// Quote переводит монеты в рубли по курсу, с точностью до копейки.
// Округление банковское, чтобы сумма котировок не «уползала» вверх.
func Quote(coins int64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(coins).Mul(rate).RoundBank(2)
}

// RateHandler отвечает на !курс.
type RateHandler struct {
	settings *settings.Service
	bot      common.Sender
}

func NewRateHandler(settingsService *settings.Service, bot common.Sender) *RateHandler {
	return &RateHandler{settings: settingsService, bot: bot}
}

// HandleRate — !курс [сумма]. Без суммы показывает курс одной монеты.
func (h *RateHandler) HandleRate(ctx context.Context, msg *tgbotapi.Message, args []string) {
	coins := int64(1)
	if len(args) > 0 {
		n, err := common.ParseAmount(args[0])
		if err != nil {
			common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "")
			return
		}
		coins = n
	}

	rate, err := h.settings.GetDecimal(ctx, settings.KeyExchangeRate, decimal.NewFromInt(1))
	if err != nil {
		common.ReplyError(h.bot, msg.Chat.ID, msg.From.ID, err, "Ошибка чтения курса")
		return
	}
	common.SendText(h.bot, msg.Chat.ID, FormatQuote(coins, rate))
}

// FormatQuote — текст котировки.
func FormatQuote(coins int64, rate decimal.Decimal) string {
	if !rate.IsPositive() {
		return "💱 Обмен монет сейчас не проводится"
	}
	return fmt.Sprintf("💱 %s = %s ₽\nКурс: 1 монета = %s ₽",
		common.FormatBalance(coins), Quote(coins, rate).StringFixed(2), rate.String())
}
