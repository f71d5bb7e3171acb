package common

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluralizeCoins(t *testing.T) {
	cases := map[int64]string{
		0:   "монет",
		1:   "монета",
		3:   "монеты",
		5:   "монет",
		11:  "монет",
		12:  "монет",
		21:  "монета",
		22:  "монеты",
		111: "монет",
		-2:  "монеты",
	}
	for n, want := range cases {
		assert.Equal(t, want, PluralizeCoins(n), "n=%d", n)
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "2 350", FormatNumber(2350))
	assert.Equal(t, "1 000 005", FormatNumber(1000005))
	assert.Equal(t, "-12 000", FormatNumber(-12000))
}

func TestFormatCoinsAmount(t *testing.T) {
	assert.Equal(t, "+100 монет", FormatCoinsAmount(100))
	assert.Equal(t, "-50 монет", FormatCoinsAmount(-50))
	assert.Equal(t, "+1 монета", FormatCoinsAmount(1))
	assert.Equal(t, "1 500 монет", FormatBalance(1500))
}

func TestDayUsesLocation(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	// 22:30 UTC — уже следующие сутки по Москве
	ts := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC)

	day := Day(ts, msk)
	assert.Equal(t, 2, day.Day())
	assert.Equal(t, 0, day.Hour())
}

func TestParseMentions(t *testing.T) {
	got := ParseMentions([]string{"@alice", "bob", "@Alice", "@carol", "@"})
	assert.Equal(t, []string{"alice", "carol"}, got)
	assert.Equal(t, "", ParseMention("alice"))
}

func TestErrorText(t *testing.T) {
	text, known := ErrorText(fmt.Errorf("transfer: %w", ErrInsufficientFunds))
	assert.True(t, known)
	assert.Contains(t, text, "Недостаточно монет")

	_, known = ErrorText(errors.New("syntax error at or near"))
	assert.False(t, known)
}

func TestParseAmount(t *testing.T) {
	n, err := ParseAmount(" 150 ")
	require.NoError(t, err)
	assert.Equal(t, int64(150), n)

	for _, bad := range []string{"0", "-5", "abc", ""} {
		_, err := ParseAmount(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
}
