package approval

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
)

// Callback data кнопок модерации: "<вид>:<approve|deny>:<id>", например "orb:approve:12".

// ReviewKeyboard — кнопки «Одобрить» / «Отклонить» под постом с заявкой.
func ReviewKeyboard(kind string, id int64) tgbotapi.InlineKeyboardMarkup {
	idStr := strconv.FormatInt(id, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Одобрить", kind+":"+string(Approve)+":"+idStr),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", kind+":"+string(Deny)+":"+idStr),
		),
	)
}

// ParseCallback разбирает callback data кнопки модерации.
func ParseCallback(data string) (kind string, decision Decision, id int64, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return "", "", 0, false
	}
	decision = Decision(parts[1])
	if decision != Approve && decision != Deny {
		return "", "", 0, false
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return "", "", 0, false
	}
	return parts[0], decision, id, true
}

// DecisionLine — строка, которая дописывается к посту после решения.
func DecisionLine(status Status, approverName string) string {
	switch status {
	case StatusApproved:
		return fmt.Sprintf("✅ Одобрено: %s", approverName)
	case StatusDenied:
		return fmt.Sprintf("❌ Отклонено: %s", approverName)
	}
	return ""
}

// CallbackText — всплывающий ответ на нажатие кнопки.
func CallbackText(status Status) string {
	if status == StatusApproved {
		return "Заявка одобрена"
	}
	return "Заявка отклонена"
}

// ProofFileID достаёт file_id скриншота: самое большое фото или документ.
func ProofFileID(msg *tgbotapi.Message) string {
	if msg == nil {
		return ""
	}
	if n := len(msg.Photo); n > 0 {
		return msg.Photo[n-1].FileID
	}
	if msg.Document != nil {
		return msg.Document.FileID
	}
	return ""
}

// CloseCard дописывает решение к посту с заявкой. Клавиатура в правке
// не передаётся, поэтому Telegram её убирает.
func CloseCard(s common.Sender, chatID int64, messageID int, caption string, status Status, approverName string) {
	edit := tgbotapi.NewEditMessageCaption(chatID, messageID, caption+"\n\n"+DecisionLine(status, approverName))
	if _, err := s.Send(edit); err != nil {
		log.WithError(err).WithFields(log.Fields{"chat_id": chatID, "message_id": messageID}).
			Warn("Не удалось обновить пост с заявкой")
	}
}

// AnswerCallback убирает «часики» с нажатой кнопки.
func AnswerCallback(s common.Sender, callbackID, text string) {
	if _, err := s.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.WithError(err).Warn("Ошибка ответа на callback")
	}
}
