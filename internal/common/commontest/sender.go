// Package commontest — заглушки Telegram для тестов обработчиков.
package commontest

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender запоминает всё, что обработчики пытались отправить.
type Sender struct {
	mu       sync.Mutex
	Sent     []tgbotapi.Chattable
	Requests []tgbotapi.Chattable
	nextID   int
}

func (s *Sender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, c)
	s.nextID++
	return tgbotapi.Message{MessageID: s.nextID, Chat: &tgbotapi.Chat{ID: chatOf(c)}}, nil
}

func (s *Sender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// Texts возвращает тексты всех отправленных сообщений и подписей.
func (s *Sender) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.Sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.PhotoConfig:
			out = append(out, m.Caption)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageCaptionConfig:
			out = append(out, m.Caption)
		}
	}
	return out
}

// Last возвращает текст последнего сообщения.
func (s *Sender) Last() string {
	texts := s.Texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func chatOf(c tgbotapi.Chattable) int64 {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		return m.ChatID
	case tgbotapi.PhotoConfig:
		return m.ChatID
	}
	return 0
}

// Message собирает входящее сообщение для теста.
func Message(chatID, userID int64, username, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: username, FirstName: username},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "supergroup"},
		Text:      text,
	}
}
