// Package filters решает, в каком контексте пришло сообщение и стоит ли
// его вообще обрабатывать.
package filters

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/members"
	"serotonyl.ru/economy-bot/internal/features/settings"
)

// Scope — где находится сообщение.
type Scope int

const (
	ScopeNone      Scope = iota // чужой чат, игнорируем
	ScopeCommunity              // основной чат сообщества
	ScopeReview                 // чат модерации заявок
	ScopePrivate                // личка с участником
)

func (s Scope) String() string {
	switch s {
	case ScopeCommunity:
		return "community"
	case ScopeReview:
		return "review"
	case ScopePrivate:
		return "private"
	}
	return "none"
}

// ChatMemberGetter — проверка членства через Telegram API.
type ChatMemberGetter interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

type ChatFilter struct {
	communityChatID int64
	adminIDs        map[int64]struct{}
	memberService   *members.Service
	settings        *settings.Service
	api             ChatMemberGetter
	bot             common.Sender
}

func NewChatFilter(communityChatID int64, adminIDs []int64, memberService *members.Service, settingsService *settings.Service, api ChatMemberGetter, bot common.Sender) *ChatFilter {
	ids := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = struct{}{}
	}
	return &ChatFilter{
		communityChatID: communityChatID,
		adminIDs:        ids,
		memberService:   memberService,
		settings:        settingsService,
		api:             api,
		bot:             bot,
	}
}

// Classify определяет контекст сообщения. ScopeNone — не обрабатывать.
func (f *ChatFilter) Classify(ctx context.Context, message *tgbotapi.Message) Scope {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return ScopeNone
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Debug("nil message.From (service/channel message?)")
		return ScopeNone
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   chatID,
		"chat_type": message.Chat.Type,
		"user_id":   userID,
	})

	if chatID == f.communityChatID {
		return ScopeCommunity
	}

	if message.Chat.IsPrivate() {
		if f.allowPrivate(ctx, message, logger) {
			return ScopePrivate
		}
		return ScopeNone
	}

	// Чат модерации настраивается на ходу, поэтому читаем привязку каждый раз
	reviewChatID, err := f.settings.GetInt(ctx, settings.KeyReviewChatID, 0)
	if err != nil {
		logger.WithError(err).Error("review chat lookup failed")
		return ScopeNone
	}
	if reviewChatID != 0 && chatID == reviewChatID {
		return ScopeReview
	}

	logger.Debug("deny: foreign chat")
	return ScopeNone
}

// allowPrivate пускает в личку админов и участников сообщества.
// Если база не знает пользователя, спрашиваем Telegram и дописываем его.
func (f *ChatFilter) allowPrivate(ctx context.Context, message *tgbotapi.Message, logger *log.Entry) bool {
	userID := message.From.ID
	if _, ok := f.adminIDs[userID]; ok {
		return true
	}

	isMember, err := f.memberService.IsMember(ctx, userID)
	if err != nil {
		logger.WithError(err).Error("member check failed (db)")
		return false
	}
	if isMember {
		return true
	}

	cm, err := f.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: f.communityChatID,
			UserID: userID,
		},
	})
	if err != nil {
		logger.WithError(err).Error("member check failed (telegram GetChatMember)")
		return false
	}

	switch cm.Status {
	case "creator", "administrator", "member", "restricted":
		if err := f.memberService.EnsureMember(ctx, userID,
			message.From.UserName, message.From.FirstName, message.From.LastName,
		); err != nil {
			logger.WithError(err).Warn("failed to backfill member to DB (allowing anyway)")
		}
		logger.WithField("tg_status", cm.Status).Info("allow: private (telegram member, backfilled)")
		return true
	default:
		logger.WithField("tg_status", cm.Status).Info("deny: private (not a chat member)")
		common.SendText(f.bot, message.Chat.ID, "❌ Бот работает только для участников чата сообщества")
		return false
	}
}
