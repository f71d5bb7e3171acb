package economy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-bot/internal/common/commontest"
	"serotonyl.ru/economy-bot/internal/features/members"
)

func TestFormatHistory(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	at := time.Date(2024, 3, 8, 9, 30, 0, 0, time.UTC)

	text := FormatHistory([]*Transaction{
		{Kind: KindChatReward, Amount: 2, CreatedAt: at},
		{Kind: KindPurchase, Amount: -50, Description: "Покупка: Значок", CreatedAt: at},
	}, loc)

	assert.Contains(t, text, "08.03.2024 12:30")
	assert.Contains(t, text, "+2 монеты")
	assert.Contains(t, text, "-50 монет")
	assert.Contains(t, text, "Покупка: Значок")

	assert.Equal(t, "📜 Транзакций пока нет", FormatHistory(nil, loc))
}

func TestHandleTransferByMention(t *testing.T) {
	ctx := context.Background()
	db := env.Require(t)
	s := NewService(NewRepository(db))
	ms := members.NewService(members.NewRepository(db))
	sender := &commontest.Sender{}
	h := NewHandler(s, ms, sender, time.UTC)

	require.NoError(t, ms.EnsureMember(ctx, 2, "bob", "Боб", ""))
	_, err := s.Credit(ctx, 1, 20, KindAdminGrant, "")
	require.NoError(t, err)

	h.HandleTransfer(ctx, commontest.Message(-100, 1, "alice", "!перевод @bob 5"), []string{"@bob", "5"})
	assert.Contains(t, sender.Last(), "Переведено 5 монет → @bob")
	assert.Equal(t, int64(5), balanceOf(t, s, 2))

	h.HandleTransfer(ctx, commontest.Message(-100, 1, "alice", "!перевод @bob 500"), []string{"@bob", "500"})
	assert.Contains(t, sender.Last(), "Недостаточно монет")

	h.HandleTransfer(ctx, commontest.Message(-100, 1, "alice", "!перевод @ghost 1"), []string{"@ghost", "1"})
	assert.Contains(t, sender.Last(), "Пользователь не найден")
}
