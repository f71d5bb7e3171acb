package approval

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewKeyboardMatchesParseCallback(t *testing.T) {
	kb := ReviewKeyboard("tax", 15)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 2)

	kind, decision, id, ok := ParseCallback(*kb.InlineKeyboard[0][1].CallbackData)
	require.True(t, ok)
	assert.Equal(t, "tax", kind)
	assert.Equal(t, Deny, decision)
	assert.Equal(t, int64(15), id)
}

func TestParseCallbackRejectsGarbage(t *testing.T) {
	for _, data := range []string{"", "orb", "orb:approve", "orb:maybe:1", "orb:approve:x", "orb:approve:-3", "a:b:c:d"} {
		_, _, _, ok := ParseCallback(data)
		assert.False(t, ok, data)
	}
}

func TestProofFileID(t *testing.T) {
	msg := &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}}}
	assert.Equal(t, "big", ProofFileID(msg))

	msg = &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "doc"}}
	assert.Equal(t, "doc", ProofFileID(msg))

	assert.Equal(t, "", ProofFileID(&tgbotapi.Message{Text: "!орб @a"}))
}
