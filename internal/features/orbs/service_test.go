package orbs

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/common/commontest"
	"serotonyl.ru/economy-bot/internal/db/postgres/pgtest"
	"serotonyl.ru/economy-bot/internal/features/approval"
	"serotonyl.ru/economy-bot/internal/features/economy"
	"serotonyl.ru/economy-bot/internal/features/members"
	"serotonyl.ru/economy-bot/internal/features/settings"
)

const (
	moderatorID = 900
	reviewChat  = -100500
)

var env *pgtest.Env

func TestMain(m *testing.M) {
	ctx := context.Background()
	env = pgtest.Start(ctx, "orbs_test")
	code := m.Run()
	env.Close(ctx)
	os.Exit(code)
}

type fixture struct {
	orbs     *Service
	ledger   *economy.Service
	settings *settings.Service
	members  *members.Service
}

// newFixture настраивает награду 100, чат модерации и модератора второго уровня.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := env.Require(t)

	f := &fixture{
		ledger:   economy.NewService(economy.NewRepository(db)),
		settings: settings.NewService(settings.NewRepository(db)),
		members:  members.NewService(members.NewRepository(db)),
	}
	f.orbs = NewService(NewRepository(db), f.ledger, f.settings, f.members)

	require.NoError(t, f.settings.Set(ctx, settings.KeyOrbReward, "100"))
	require.NoError(t, f.settings.Set(ctx, settings.KeyReviewChatID, "-100500"))
	require.NoError(t, f.settings.Set(ctx, settings.PermLevelKey(2), "moderator"))

	require.NoError(t, f.members.HandleNewMember(ctx, moderatorID, "mod", "Mod", ""))
	_, err := f.members.AddRole(ctx, moderatorID, "moderator")
	require.NoError(t, err)
	return f
}

func TestShare(t *testing.T) {
	assert.Equal(t, int64(33), Share(100, 3))
	assert.Equal(t, int64(50), Share(100, 2))
	assert.Equal(t, int64(0), Share(2, 3))
	assert.Equal(t, int64(0), Share(100, 0))
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.orbs.Submit(ctx, 1, []int64{1, 2}, "")
	assert.ErrorIs(t, err, common.ErrNoProofAttached)

	_, err = f.orbs.Submit(ctx, 1, nil, "file")
	assert.ErrorIs(t, err, common.ErrNoParticipants)

	require.NoError(t, f.settings.Set(ctx, settings.KeyOrbReward, "0"))
	_, err = f.orbs.Submit(ctx, 1, []int64{1, 2}, "file")
	assert.ErrorIs(t, err, common.ErrUnconfiguredReward)

	pending, err := f.orbs.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSubmitRequiresReviewChat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.settings.Set(ctx, settings.KeyReviewChatID, "0"))

	_, err := f.orbs.Submit(ctx, 1, []int64{1, 2}, "file")
	assert.ErrorIs(t, err, common.ErrConfigurationMissing)
}

func TestApproveSplitsRewardEvenly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sub, err := f.orbs.Submit(ctx, 1, []int64{1, 2, 3}, "file")
	require.NoError(t, err)
	assert.Equal(t, int64(100), sub.Amount)
	assert.Equal(t, approval.StatusPending, sub.Status)

	decided, err := f.orbs.Decide(ctx, approval.ByID(sub.ID), approval.Approve, moderatorID)
	require.NoError(t, err)
	assert.Equal(t, approval.StatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	assert.Equal(t, int64(moderatorID), *decided.DecidedBy)

	for _, id := range []int64{1, 2, 3} {
		balance, err := f.ledger.GetBalance(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(33), balance, "user %d", id)
	}

	history, err := f.ledger.History(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, economy.KindOrbReward, history[0].Kind)
}

func TestDenyPaysNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sub, err := f.orbs.Submit(ctx, 1, []int64{1, 2}, "file")
	require.NoError(t, err)

	decided, err := f.orbs.Decide(ctx, approval.ByID(sub.ID), approval.Deny, moderatorID)
	require.NoError(t, err)
	assert.Equal(t, approval.StatusDenied, decided.Status)

	balance, err := f.ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = f.orbs.Decide(ctx, approval.ByID(sub.ID), approval.Approve, moderatorID)
	assert.ErrorIs(t, err, common.ErrAlreadyProcessed)
}

func TestDecideRequiresTier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sub, err := f.orbs.Submit(ctx, 1, []int64{1, 2}, "file")
	require.NoError(t, err)

	// автор без ролей не может одобрить свою заявку
	_, err = f.orbs.Decide(ctx, approval.ByID(sub.ID), approval.Approve, 1)
	assert.ErrorIs(t, err, common.ErrNotAuthorized)

	pending, err := f.orbs.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, sub.ID, pending[0].ID)
}

func TestConcurrentApprovePaysOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sub, err := f.orbs.Submit(ctx, 1, []int64{1, 2}, "file")
	require.NoError(t, err)

	const clicks = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		processed int
	)
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orbs.Decide(ctx, approval.ByID(sub.ID), approval.Approve, moderatorID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, common.ErrAlreadyProcessed):
				processed++
			default:
				t.Errorf("неожиданная ошибка: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, clicks-1, processed)

	balance, err := f.ledger.GetBalance(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
}

func TestReplyDecisionByReviewPost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sender := &commontest.Sender{}
	h := NewHandler(f.orbs, f.members, sender)

	require.NoError(t, f.members.HandleNewMember(ctx, 2, "bob", "Bob", ""))

	msg := commontest.Message(1, 1, "alice", "")
	msg.Caption = "!орб @bob"
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "proof"}}
	h.HandleSubmit(ctx, msg, []string{"@bob"})

	pending, err := f.orbs.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotEmpty(t, pending[0].MessageRef)

	chatID, postID, err := approval.ParseMessageRef(pending[0].MessageRef)
	require.NoError(t, err)
	assert.Equal(t, int64(reviewChat), chatID)

	reply := commontest.Message(reviewChat, moderatorID, "mod", "/одобрить")
	reply.ReplyToMessage = commontest.Message(reviewChat, 0, "", "")
	reply.ReplyToMessage.MessageID = postID
	assert.True(t, h.HandleReplyDecision(ctx, reply, approval.Approve))

	balance, err := f.ledger.GetBalance(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	// ответ на посторонний пост не наш
	other := commontest.Message(reviewChat, moderatorID, "mod", "/одобрить")
	other.ReplyToMessage = commontest.Message(reviewChat, 0, "", "")
	other.ReplyToMessage.MessageID = postID + 100
	assert.False(t, h.HandleReplyDecision(ctx, other, approval.Approve))
}

func TestFormatCard(t *testing.T) {
	card := FormatCard(&Submission{ID: 7, Amount: 100}, "@alice", []string{"@alice", "@bob", "@carl"})
	assert.Contains(t, card, "#7")
	assert.Contains(t, card, "Участники (3): @alice, @bob, @carl")
	assert.Contains(t, card, "по 33 монеты")
}
