// Package common — telegram.go: общие куски для обработчиков команд.
package common

import (
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Sender — то, что нужно обработчикам от *tgbotapi.BotAPI.
// В тестах подменяется записывающей заглушкой.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// SendText отправляет простое текстовое сообщение и логирует ошибку отправки.
func SendText(s Sender, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := s.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// userErrors — тексты для ошибок, которые показываем пользователю как есть.
var userErrors = []struct {
	err  error
	text string
}{
	{ErrInsufficientFunds, "❌ Недостаточно монет на счёте"},
	{ErrSelfTransfer, "❌ Нельзя переводить монеты самому себе"},
	{ErrInvalidAmount, "❌ Сумма должна быть положительным числом"},
	{ErrUserNotFound, "❌ Пользователь не найден. Он должен хотя бы раз написать в чат"},
	{ErrItemNotFound, "❌ Такого товара нет"},
	{ErrInvalidPrice, "❌ Цена должна быть положительной"},
	{ErrNoProofAttached, "❌ Приложите скриншот к сообщению с командой"},
	{ErrUnconfiguredReward, "❌ Сумма для этой заявки ещё не настроена администрацией"},
	{ErrAlreadyProcessed, "⚠️ Заявка уже обработана"},
	{ErrSubmissionNotFound, "❌ Заявка не найдена"},
	{ErrNoParticipants, "❌ Укажите участников через @"},
	{ErrEventNotFound, "❌ Ивент не найден"},
	{ErrEventFull, "❌ Все места на ивент заняты"},
	{ErrRoleRequired, "❌ Для записи на этот ивент нужна особая роль"},
	{ErrEventClosed, "❌ Запись на этот ивент закрыта"},
	{ErrInvalidTransition, "❌ Так сменить статус ивента нельзя"},
	{ErrNotAuthorized, "⛔ Недостаточно прав"},
	{ErrConfigurationMissing, "⚙️ Бот ещё не настроен для этой операции, обратитесь к администрации"},
	{ErrConnectionFailure, "❌ База данных временно недоступна, попробуйте позже"},
	{ErrRoleTooLong, "❌ Роль слишком длинная (максимум 64 символа)"},
}

// ErrorText возвращает текст для пользователя. known = false означает
// непредвиденную ошибку: её нужно залогировать, а пользователю показать
// общий текст.
func ErrorText(err error) (text string, known bool) {
	for _, ue := range userErrors {
		if errors.Is(err, ue.err) {
			return ue.text, true
		}
	}
	return "❌ Что-то пошло не так, попробуйте позже", false
}

// ParseAmount разбирает положительную сумму ("100", "1 000" не поддерживается).
func ParseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidAmount
	}
	return n, nil
}

// ReplyError отвечает пользователю текстом ошибки. Непредвиденные ошибки
// дополнительно логируются с контекстом.
func ReplyError(s Sender, chatID, userID int64, err error, logMsg string) {
	text, known := ErrorText(err)
	if !known {
		log.WithError(err).WithFields(log.Fields{"user_id": userID, "chat_id": chatID}).Error(logMsg)
	}
	SendText(s, chatID, text)
}

// DisplayName — @username или имя, если username не задан.
func DisplayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
