package bot

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-bot/internal/bot/filters"
	"serotonyl.ru/economy-bot/internal/bot/middleware"
	"serotonyl.ru/economy-bot/internal/common/commontest"
	"serotonyl.ru/economy-bot/internal/config"
	"serotonyl.ru/economy-bot/internal/db/postgres/pgtest"
	"serotonyl.ru/economy-bot/internal/features/activity"
	"serotonyl.ru/economy-bot/internal/features/admin"
	"serotonyl.ru/economy-bot/internal/features/economy"
	"serotonyl.ru/economy-bot/internal/features/events"
	"serotonyl.ru/economy-bot/internal/features/members"
	"serotonyl.ru/economy-bot/internal/features/orbs"
	"serotonyl.ru/economy-bot/internal/features/settings"
	"serotonyl.ru/economy-bot/internal/features/shop"
	"serotonyl.ru/economy-bot/internal/features/tax"
)

const (
	communityChat = -1001
	reviewChat    = -1002
	foreignChat   = -1003
	moderatorID   = 900
)

var env *pgtest.Env

func TestMain(m *testing.M) {
	ctx := context.Background()
	env = pgtest.Start(ctx, "bot_test")
	code := m.Run()
	env.Close(ctx)
	os.Exit(code)
}

// chatMembers — Telegram без участников: все, кого нет в базе, «left».
type chatMembers struct{}

func (chatMembers) GetChatMember(tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	return tgbotapi.ChatMember{Status: "left"}, nil
}

type harness struct {
	bot      *Bot
	sender   *commontest.Sender
	ledger   *economy.Service
	members  *members.Service
	settings *settings.Service
	orbs     *orbs.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	db := env.Require(t)
	loc := time.UTC
	sender := &commontest.Sender{}

	cfg := &config.Config{
		CommunityChatID:         communityChat,
		BotWorkers:              2,
		BotUpdateTimeoutSeconds: 1,
		RateLimitRequests:       100,
		RateLimitWindow:         time.Minute,
	}

	memberService := members.NewService(members.NewRepository(db))
	settingsService := settings.NewService(settings.NewRepository(db))
	ledger := economy.NewService(economy.NewRepository(db))
	shopService := shop.NewService(shop.NewRepository(db), ledger, 0)
	activityService := activity.NewService(activity.NewRepository(db), ledger, settingsService, activity.NewCooldown(time.Hour), loc)
	orbService := orbs.NewService(orbs.NewRepository(db), ledger, settingsService, memberService)
	taxService := tax.NewService(tax.NewRepository(db), settingsService, memberService, loc)
	eventService := events.NewService(events.NewRepository(db), ledger)
	adminService := admin.NewService(admin.NewRepository(db), memberService, "", nil)

	handlers := Handlers{
		Members:  members.NewHandler(memberService),
		Economy:  economy.NewHandler(ledger, memberService, sender, loc),
		Rate:     economy.NewRateHandler(settingsService, sender),
		Shop:     shop.NewHandler(shopService, sender),
		Activity: activity.NewHandler(activityService, sender),
		Orbs:     orbs.NewHandler(orbService, memberService, sender),
		Tax:      tax.NewHandler(taxService, sender),
		Events:   events.NewHandler(eventService, memberService, sender, loc),
		Admin: admin.NewHandler(adminService, admin.Services{
			Members: memberService, Ledger: ledger, Settings: settingsService, Shop: shopService,
			Events: eventService, Orbs: orbService, Tax: taxService,
		}, sender, loc, 0),
	}
	filter := filters.NewChatFilter(communityChat, nil, memberService, settingsService, chatMembers{}, sender)

	require.NoError(t, settingsService.Set(ctx, settings.KeyReviewChatID, strconv.Itoa(reviewChat)))

	b := New(nil, sender, cfg, handlers, filter)
	t.Cleanup(b.rateLimiter.Close)

	return &harness{
		bot: b, sender: sender, ledger: ledger,
		members: memberService, settings: settingsService, orbs: orbService,
	}
}

func (h *harness) message(chatID, userID int64, username, text string) {
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: commontest.Message(chatID, userID, username, text),
	})
}

func TestBalanceCommandInCommunityChat(t *testing.T) {
	h := newHarness(t)

	h.message(communityChat, 1, "alice", "!баланс")
	assert.Equal(t, "💰 Баланс: 0 монет", h.sender.Last())

	ok, err := h.members.IsMember(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok, "автор команды регистрируется")
}

func TestForeignChatIgnored(t *testing.T) {
	h := newHarness(t)

	h.message(foreignChat, 1, "alice", "!баланс")
	assert.Empty(t, h.sender.Texts())
}

func TestPrivateChatRequiresMembership(t *testing.T) {
	h := newHarness(t)

	msg := commontest.Message(1, 1, "alice", "!баланс")
	msg.Chat.Type = "private"
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
	assert.Contains(t, h.sender.Last(), "только для участников")

	h.message(communityChat, 1, "alice", "привет")
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
	assert.Contains(t, h.sender.Last(), "Баланс")
}

func TestChatMessageEarnsActivityReward(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.message(communityChat, 1, "alice", "всем привет, как дела")
	balance, err := h.ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), balance)

	// команды и сообщения в других чатах наград не дают
	h.message(communityChat, 2, "bob", "!баланс")
	h.message(foreignChat, 3, "carol", "всем привет, как дела")
	for _, id := range []int64{2, 3} {
		balance, err := h.ledger.GetBalance(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, balance)
	}
}

func TestOrbSubmissionApprovedByButton(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.settings.Set(ctx, settings.KeyOrbReward, "100"))
	require.NoError(t, h.settings.Set(ctx, settings.PermLevelKey(2), "moderator"))
	require.NoError(t, h.members.HandleNewMember(ctx, moderatorID, "mod", "Mod", ""))
	_, err := h.members.AddRole(ctx, moderatorID, "moderator")
	require.NoError(t, err)

	h.message(communityChat, 2, "bob", "я тут")

	submit := commontest.Message(communityChat, 1, "alice", "")
	submit.Caption = "!орб @bob"
	submit.Photo = []tgbotapi.PhotoSize{{FileID: "proof", Width: 100, Height: 100}}
	h.bot.HandleUpdate(ctx, tgbotapi.Update{Message: submit})
	require.Contains(t, h.sender.Last(), "отправлена на модерацию")

	pending, err := h.orbs.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	data := orbs.CallbackKind + ":approve:" + strconv.FormatInt(pending[0].ID, 10)

	// без прав кнопка не срабатывает
	h.bot.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "cb1", From: &tgbotapi.User{ID: 2, UserName: "bob"}, Data: data,
	}})
	balance, err := h.ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, balance)

	h.bot.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "cb2", From: &tgbotapi.User{ID: moderatorID, UserName: "mod"}, Data: data,
	}})
	for _, id := range []int64{1, 2} {
		balance, err := h.ledger.GetBalance(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(50), balance)
	}

	// повторное нажатие ничего не меняет
	h.bot.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "cb3", From: &tgbotapi.User{ID: moderatorID, UserName: "mod"}, Data: data,
	}})
	balance, err = h.ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
}

func TestReplyDecisionNeedsReply(t *testing.T) {
	h := newHarness(t)

	h.message(reviewChat, moderatorID, "mod", "/одобрить")
	assert.Contains(t, h.sender.Last(), "Ответьте этой командой")

	msg := commontest.Message(reviewChat, moderatorID, "mod", "/одобрить")
	msg.ReplyToMessage = &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: reviewChat}}
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
	assert.Equal(t, "❌ Это не пост с заявкой", h.sender.Last())
}

func TestDecisionCommandsIgnoredOutsideReviewChat(t *testing.T) {
	h := newHarness(t)

	h.message(communityChat, 1, "alice", "/одобрить")
	assert.Empty(t, h.sender.Texts())
}

func TestRateLimitDropsCommands(t *testing.T) {
	h := newHarness(t)
	h.bot.rateLimiter.Close()
	h.bot.rateLimiter = middleware.NewRateLimiter(2, time.Hour)
	t.Cleanup(h.bot.rateLimiter.Close)

	for i := 0; i < 5; i++ {
		h.message(communityChat, 1, "alice", "!баланс")
	}
	assert.Len(t, h.sender.Texts(), 2)
}

func TestPanicInHandlerIsRecovered(t *testing.T) {
	h := newHarness(t)
	h.bot.handlers.Shop = nil

	assert.NotPanics(t, func() {
		h.message(communityChat, 1, "alice", "!магазин")
	})
}
