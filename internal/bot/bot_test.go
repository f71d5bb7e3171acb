package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"serotonyl.ru/economy-bot/internal/features/approval"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	cases := []struct {
		text  string
		cmd   string
		args  []string
		isCmd bool
	}{
		{"!баланс", "баланс", nil, true},
		{"  !Перевод @bob 100 ", "перевод", []string{"@bob", "100"}, true},
		{"/баланс@economy_bot", "баланс", nil, true},
		{"/start", "start", nil, true},
		{"привет всем", "", nil, false},
		{"!", "", nil, false},
		{"! ", "", nil, false},
		{"/@bot", "", nil, false},
		{".баланс", "", nil, false},
	}
	for _, c := range cases {
		cmd, args, ok := p.ParseCommand(c.text)
		assert.Equal(t, c.isCmd, ok, c.text)
		assert.Equal(t, c.cmd, cmd, c.text)
		assert.Equal(t, c.args, args, c.text)
	}
}

func TestParseMessageUsesCaption(t *testing.T) {
	p := NewCommandParser()
	cmd, args, ok := p.ParseMessage(&tgbotapi.Message{Caption: "!орб @alice"})
	assert.True(t, ok)
	assert.Equal(t, "орб", cmd)
	assert.Equal(t, []string{"@alice"}, args)

	// текст важнее подписи
	cmd, _, ok = p.ParseMessage(&tgbotapi.Message{Text: "!баланс", Caption: "!орб"})
	assert.True(t, ok)
	assert.Equal(t, "баланс", cmd)
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, "callback", updateKind(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{}}))
	assert.Equal(t, "other", updateKind(tgbotapi.Update{}))
	assert.Equal(t, "join", updateKind(tgbotapi.Update{Message: &tgbotapi.Message{NewChatMembers: []tgbotapi.User{{ID: 1}}}}))
	assert.Equal(t, "voice", updateKind(tgbotapi.Update{Message: &tgbotapi.Message{Voice: &tgbotapi.Voice{Duration: 10}}}))
	assert.Equal(t, "attachment", updateKind(tgbotapi.Update{Message: &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{FileID: "x"}}}}))
	assert.Equal(t, "message", updateKind(tgbotapi.Update{Message: &tgbotapi.Message{Text: "hi"}}))
}

func TestReviewDecision(t *testing.T) {
	d, ok := reviewDecision("одобрить")
	assert.True(t, ok)
	assert.Equal(t, approval.Approve, d)

	d, ok = reviewDecision("deny")
	assert.True(t, ok)
	assert.Equal(t, approval.Deny, d)

	_, ok = reviewDecision("баланс")
	assert.False(t, ok)
}
