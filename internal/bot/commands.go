package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CommandParser парсит русские команды с префиксами ! и /.
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// "/баланс@economy_bot" и "!Баланс" дают одну и ту же команду "баланс".
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	if command == "" {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}

// ParseMessage достаёт команду из текста или из подписи к фото:
// заявки на орб и налог приходят скриншотом с командой в подписи.
func (p *CommandParser) ParseMessage(msg *tgbotapi.Message) (string, []string, bool) {
	if msg.Text != "" {
		return p.ParseCommand(msg.Text)
	}
	return p.ParseCommand(msg.Caption)
}
