// Package activity начисляет монеты за активность в чате и голосовые
// сообщения с дневными лимитами.
//
// Счётчики хранятся построчно на (пользователь, день). Новый день — новая
// строка, поэтому «сброс в полночь» не нужен.
package activity

import "time"

// VoiceStep — за каждые полные 5 минут голосовых начисляется одна награда.
const VoiceStep = 5

// DailyActivity — счётчики пользователя за один день.
type DailyActivity struct {
	UserID             int64
	Day                time.Time
	ChatCoinsEarned    int64 // сколько монет начислено за сообщения
	VoiceMinutesEarned int64 // сколько минут голосовых засчитано
}

// Limits — текущие награды и лимиты из настроек.
type Limits struct {
	ChatReward        int64
	ChatDailyLimit    int64
	ChatCooldown      time.Duration
	VoiceReward       int64
	VoiceDailyMinutes int64
}

// voiceUnits — сколько 5-минутных границ пересечено при росте счётчика
// с before до after.
func voiceUnits(before, after int64) int64 {
	if after <= before {
		return 0
	}
	return after/VoiceStep - before/VoiceStep
}
