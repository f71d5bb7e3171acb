// Package bot — приём апдейтов Telegram и маршрутизация по обработчикам.
// bot.go читает long polling, раздаёт апдейты в пул воркеров и решает,
// какой фиче отдать сообщение, команду или нажатие кнопки.
package bot

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/bot/filters"
	"serotonyl.ru/economy-bot/internal/bot/middleware"
	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/config"
	"serotonyl.ru/economy-bot/internal/features/activity"
	"serotonyl.ru/economy-bot/internal/features/admin"
	"serotonyl.ru/economy-bot/internal/features/approval"
	"serotonyl.ru/economy-bot/internal/features/economy"
	"serotonyl.ru/economy-bot/internal/features/events"
	"serotonyl.ru/economy-bot/internal/features/members"
	"serotonyl.ru/economy-bot/internal/features/orbs"
	"serotonyl.ru/economy-bot/internal/features/shop"
	"serotonyl.ru/economy-bot/internal/features/tax"
	"serotonyl.ru/economy-bot/internal/metrics"
)

// Handlers — обработчики фич, между которыми бот раздаёт сообщения.
type Handlers struct {
	Members  *members.Handler
	Economy  *economy.Handler
	Rate     *economy.RateHandler
	Shop     *shop.Handler
	Activity *activity.Handler
	Orbs     *orbs.Handler
	Tax      *tax.Handler
	Events   *events.Handler
	Admin    *admin.Handler
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api    *tgbotapi.BotAPI
	sender common.Sender
	cfg    *config.Config

	handlers    Handlers
	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter
	parser      *CommandParser
}

// New создаёт бота. api нужен только для long polling, всё остальное
// уходит через sender.
func New(api *tgbotapi.BotAPI, sender common.Sender, cfg *config.Config, handlers Handlers, chatFilter *filters.ChatFilter) *Bot {
	return &Bot{
		api:         api,
		sender:      sender,
		cfg:         cfg,
		handlers:    handlers,
		chatFilter:  chatFilter,
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		parser:      NewCommandParser(),
	}
}

// Start запускает polling и блокируется до отмены ctx.
// Апдейты обрабатываются в пуле из BOT_WORKERS воркеров; когда очередь
// полна, чтение новых апдейтов ждёт.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	pool := pond.NewPool(
		b.cfg.BotWorkers,
		pond.WithQueueSize(b.cfg.BotWorkers*4),
		pond.WithContext(ctx),
	)
	defer func() {
		b.rateLimiter.Close()
		pool.StopAndWait()
		log.WithFields(log.Fields{
			"submitted": pool.SubmittedTasks(),
			"completed": pool.CompletedTasks(),
		}).Info("Пул обработчиков остановлен")
	}()

	log.WithFields(log.Fields{
		"workers":     b.cfg.BotWorkers,
		"timeout_sec": b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}
			pool.Submit(func() {
				b.HandleUpdate(ctx, update)
			})
		}
	}
}

// HandleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	kind := updateKind(update)
	defer func() { metrics.RecordUpdate(kind, time.Since(start)) }()
	defer middleware.RecoverFromPanic(update.UpdateID)

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func updateKind(update tgbotapi.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback"
	case update.Message == nil:
		return "other"
	case len(update.Message.NewChatMembers) > 0:
		return "join"
	case update.Message.Voice != nil:
		return "voice"
	case len(update.Message.Photo) > 0 || update.Message.Document != nil:
		return "attachment"
	}
	return "message"
}

// handleMessage обрабатывает сообщение: вступления, админку в личке,
// решения в чате модерации, команды и активность в чате сообщества.
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	middleware.LogMessage(message)

	scope := b.chatFilter.Classify(ctx, message)
	if scope == filters.ScopeNone {
		return
	}

	if len(message.NewChatMembers) > 0 {
		if scope == filters.ScopeCommunity {
			b.handlers.Members.HandleNewChatMembers(ctx, message.NewChatMembers)
		}
		return
	}
	if message.From.IsBot {
		return
	}

	b.handlers.Members.Touch(ctx, message.From)

	if scope == filters.ScopePrivate && b.handlers.Admin.HandleMessage(ctx, message) {
		return
	}

	cmd, args, isCommand := b.parser.ParseMessage(message)
	if !isCommand {
		if scope == filters.ScopeCommunity {
			b.countActivity(ctx, message)
		}
		return
	}

	log.WithFields(log.Fields{
		"cmd":   cmd,
		"args":  args,
		"scope": scope.String(),
	}).Debug("parsed command")

	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	if decision, ok := reviewDecision(cmd); ok {
		if scope == filters.ScopeReview {
			b.handleReplyDecision(ctx, message, decision)
		}
		return
	}

	b.routeCommand(ctx, message, cmd, args)
}

// countActivity — награды за активность. Голосовые считаются по длительности,
// текст по сообщениям; остальное (стикеры, фото без команды) не учитывается.
func (b *Bot) countActivity(ctx context.Context, message *tgbotapi.Message) {
	switch {
	case message.Voice != nil:
		b.handlers.Activity.HandleVoice(ctx, message)
	case message.Text != "":
		b.handlers.Activity.HandleMessage(ctx, message)
	}
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, message *tgbotapi.Message, cmd string, args []string) {
	h := b.handlers
	switch cmd {
	case "start", "help", "помощь":
		common.SendText(b.sender, message.Chat.ID, helpText)

	case "баланс":
		h.Economy.HandleBalance(ctx, message)
	case "перевод":
		h.Economy.HandleTransfer(ctx, message, args)
	case "транзакции":
		h.Economy.HandleTransactions(ctx, message)
	case "курс":
		h.Rate.HandleRate(ctx, message, args)

	case "магазин":
		h.Shop.HandleList(ctx, message)
	case "купить":
		h.Shop.HandleBuy(ctx, message, args)

	case "активность":
		h.Activity.HandleActivity(ctx, message)

	case "орб":
		h.Orbs.HandleSubmit(ctx, message, args)
	case "налог":
		h.Tax.HandleStatus(ctx, message)
	case "оплата":
		h.Tax.HandleSubmit(ctx, message)

	case "ивенты":
		h.Events.HandleList(ctx, message)
	case "записаться":
		h.Events.HandleRegister(ctx, message, args)
	case "отписаться":
		h.Events.HandleUnregister(ctx, message, args)
	}
}

const helpText = `🤖 Команды

💰 !баланс, !перевод @ник сумма, !транзакции, !курс [сумма]
🛒 !магазин, !купить id_товара
📊 !активность
🔮 !орб @ник1 @ник2 (со скриншотом)
🧾 !налог, !оплата (со скриншотом)
📅 !ивенты, !записаться N, !отписаться N`

func reviewDecision(cmd string) (approval.Decision, bool) {
	switch cmd {
	case "одобрить", "approve":
		return approval.Approve, true
	case "отклонить", "deny":
		return approval.Deny, true
	}
	return "", false
}

// handleReplyDecision — решение ответом на пост с заявкой. Пост может
// относиться к орбу или к налогу: пробуем по очереди.
func (b *Bot) handleReplyDecision(ctx context.Context, message *tgbotapi.Message, decision approval.Decision) {
	if message.ReplyToMessage == nil {
		common.SendText(b.sender, message.Chat.ID, "↩️ Ответьте этой командой на пост с заявкой")
		return
	}
	if b.handlers.Orbs.HandleReplyDecision(ctx, message, decision) {
		return
	}
	if b.handlers.Tax.HandleReplyDecision(ctx, message, decision) {
		return
	}
	common.SendText(b.sender, message.Chat.ID, "❌ Это не пост с заявкой")
}

// handleCallback — нажатие кнопки «Одобрить»/«Отклонить» под заявкой.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	middleware.LogCallback(cq)
	if cq.From == nil {
		return
	}

	kind, decision, id, ok := approval.ParseCallback(cq.Data)
	if !ok {
		approval.AnswerCallback(b.sender, cq.ID, "")
		return
	}

	if !b.rateLimiter.Allow(cq.From.ID) {
		approval.AnswerCallback(b.sender, cq.ID, "⏳ Слишком часто, подождите")
		return
	}

	switch kind {
	case orbs.CallbackKind:
		b.handlers.Orbs.HandleCallback(ctx, cq, decision, id)
	case tax.CallbackKind:
		b.handlers.Tax.HandleCallback(ctx, cq, decision, id)
	default:
		log.WithField("data", cq.Data).Warn("Неизвестная кнопка")
		approval.AnswerCallback(b.sender, cq.ID, "")
	}
}

// SendMessageToUser отправляет личное сообщение (уведомления из фоновых задач).
// Пользователь мог не открывать личку с ботом, поэтому ошибка только в debug.
func (b *Bot) SendMessageToUser(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.sender.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить сообщение")
		return
	}
	log.WithField("user_id", userID).Debug("message sent")
}
