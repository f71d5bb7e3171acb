package filters

import (
	"context"
	"os"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-bot/internal/common/commontest"
	"serotonyl.ru/economy-bot/internal/db/postgres/pgtest"
	"serotonyl.ru/economy-bot/internal/features/members"
	"serotonyl.ru/economy-bot/internal/features/settings"
)

const (
	communityChat = -1001
	reviewChat    = -1002
	adminID       = 42
)

var env *pgtest.Env

func TestMain(m *testing.M) {
	ctx := context.Background()
	env = pgtest.Start(ctx, "filters_test")
	code := m.Run()
	env.Close(ctx)
	os.Exit(code)
}

type fakeTelegram struct {
	status string
	calls  int
}

func (f *fakeTelegram) GetChatMember(tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.calls++
	return tgbotapi.ChatMember{Status: f.status}, nil
}

func newFilter(t *testing.T, tg *fakeTelegram) (*ChatFilter, *members.Service, *settings.Service, *commontest.Sender) {
	t.Helper()
	db := env.Require(t)
	m := members.NewService(members.NewRepository(db))
	s := settings.NewService(settings.NewRepository(db))
	sender := &commontest.Sender{}
	return NewChatFilter(communityChat, []int64{adminID}, m, s, tg, sender), m, s, sender
}

func private(userID int64) *tgbotapi.Message {
	msg := commontest.Message(userID, userID, "user", "!баланс")
	msg.Chat.Type = "private"
	return msg
}

func TestClassifyGroups(t *testing.T) {
	ctx := context.Background()
	f, _, s, _ := newFilter(t, &fakeTelegram{status: "left"})

	assert.Equal(t, ScopeCommunity, f.Classify(ctx, commontest.Message(communityChat, 1, "a", "hi")))
	assert.Equal(t, ScopeNone, f.Classify(ctx, commontest.Message(reviewChat, 1, "a", "hi")), "чат модерации ещё не привязан")

	require.NoError(t, s.Set(ctx, settings.KeyReviewChatID, "-1002"))
	assert.Equal(t, ScopeReview, f.Classify(ctx, commontest.Message(reviewChat, 1, "a", "hi")))
	assert.Equal(t, ScopeNone, f.Classify(ctx, commontest.Message(-5, 1, "a", "hi")))

	assert.Equal(t, ScopeNone, f.Classify(ctx, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: communityChat}}))
	assert.Equal(t, ScopeNone, f.Classify(ctx, nil))
}

func TestClassifyPrivate(t *testing.T) {
	ctx := context.Background()
	tg := &fakeTelegram{status: "left"}
	f, m, _, sender := newFilter(t, tg)

	assert.Equal(t, ScopePrivate, f.Classify(ctx, private(adminID)))
	assert.Zero(t, tg.calls, "админов не проверяем через Telegram")

	assert.Equal(t, ScopeNone, f.Classify(ctx, private(7)))
	assert.Contains(t, sender.Last(), "только для участников")

	require.NoError(t, m.HandleNewMember(ctx, 8, "known", "Known", ""))
	assert.Equal(t, ScopePrivate, f.Classify(ctx, private(8)))
}

func TestClassifyPrivateBackfillsTelegramMember(t *testing.T) {
	ctx := context.Background()
	f, m, _, _ := newFilter(t, &fakeTelegram{status: "member"})

	assert.Equal(t, ScopePrivate, f.Classify(ctx, private(9)))

	ok, err := m.IsMember(ctx, 9)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScopeString(t *testing.T) {
	assert.Equal(t, "community", ScopeCommunity.String())
	assert.Equal(t, "review", ScopeReview.String())
	assert.Equal(t, "private", ScopePrivate.String())
	assert.Equal(t, "none", ScopeNone.String())
}
