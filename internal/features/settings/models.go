// Package settings — хранилище настроек, которые админы меняют прямо из бота
// (награды, лимиты, привязки чатов и ролей, курс обмена).
//
// Значения лежат в таблице config в виде строк. Кэша нет: каждое чтение идёт
// в базу, поэтому изменение через /настройка сразу видно всем обработчикам.
package settings

import (
	"strconv"
	"time"
)

// Ключи настроек.
const (
	KeyChatReward          = "chat_reward"           // монет за сообщение в чате
	KeyChatDailyLimit      = "chat_daily_limit"      // дневной порог наград за сообщения
	KeyChatCooldownSeconds = "chat_cooldown_seconds" // пауза между наградами за сообщения
	KeyVoiceReward         = "voice_reward"          // монет за каждые 5 минут голосовых
	KeyVoiceDailyMinutes   = "voice_daily_minutes"   // дневной лимит минут голосовых
	KeyOrbReward           = "orb_reward"            // сумма орба на всех участников
	KeyTaxAmount           = "tax_amount"            // недельный налог
	KeyReviewChatID        = "review_chat_id"        // чат модерации заявок
	KeyApproveTier         = "approve_tier"          // минимальный уровень прав для решений по заявкам
	KeyExchangeRate        = "exchange_rate"         // курс монеты к рублю для !курс
	KeyMemberRole          = "member_role"           // роль «участник» (выдаётся после оплаты налога)
	KeyDelinquentRole      = "delinquent_role"       // роль должника
)

// MaxTier — число уровней прав (perm_level_1..perm_level_4).
const MaxTier = 4

// PermLevelKey возвращает ключ привязки уровня прав к роли.
func PermLevelKey(tier int) string {
	return "perm_level_" + strconv.Itoa(tier)
}

// Defaults — значения по умолчанию, если ключа нет в таблице.
// Привязки чатов и ролей по умолчанию пустые: без них операции
// возвращают ErrConfigurationMissing.
var Defaults = map[string]string{
	KeyChatReward:          "1",
	KeyChatDailyLimit:      "50",
	KeyChatCooldownSeconds: "60",
	KeyVoiceReward:         "2",
	KeyVoiceDailyMinutes:   "120",
	KeyOrbReward:           "0",
	KeyTaxAmount:           "0",
	KeyApproveTier:         "2",
	KeyExchangeRate:        "1",
}

// Entry — одна строка таблицы config.
type Entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
	Default   bool // значение не задано в базе, показан дефолт
}
