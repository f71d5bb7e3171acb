package economy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestQuote(t *testing.T) {
	rate := decimal.RequireFromString("0.125")
	assert.Equal(t, "12.50", Quote(100, rate).StringFixed(2))
	// 3 × 0.125 = 0.375 → 0.38 (до чётной копейки)
	assert.Equal(t, "0.38", Quote(3, rate).StringFixed(2))
	assert.Equal(t, "0.12", Quote(1, rate).StringFixed(2))
}

func TestFormatQuote(t *testing.T) {
	text := FormatQuote(40, decimal.RequireFromString("2.5"))
	assert.Contains(t, text, "40 монет = 100.00 ₽")
	assert.Contains(t, text, "1 монета = 2.5 ₽")

	assert.Equal(t, "💱 Обмен монет сейчас не проводится", FormatQuote(10, decimal.Zero))
}
