// Package approval — заявки, которые проходят через модерацию:
// pending → approved | denied. Переход делается один раз и необратим.
//
// Workflow не знает, что именно одобряется (орб, налог): хранение строк
// и выплата при одобрении передаются ему при создании.
package approval

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status — состояние заявки.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Decision — решение модератора.
type Decision string

const (
	Approve Decision = "approve"
	Deny    Decision = "deny"
)

// Status возвращает конечное состояние для решения.
func (d Decision) Status() (Status, error) {
	switch d {
	case Approve:
		return StatusApproved, nil
	case Deny:
		return StatusDenied, nil
	}
	return "", fmt.Errorf("неизвестное решение %q", string(d))
}

// Submission — заявка с данными конкретного вида P.
type Submission[P any] struct {
	ID          int64
	Status      Status
	SubmitterID int64
	Amount      int64
	MessageRef  string // ссылка на пост в чате модерации, "chat_id:message_id"
	ProofRef    string // file_id скриншота
	DecidedBy   *int64
	DecidedAt   *time.Time
	CreatedAt   time.Time
	Payload     P
}

// Ref — заявка по номеру или по посту в чате модерации.
// Заполняется ровно одно поле.
type Ref struct {
	ID         int64
	MessageRef string
}

// ByID — заявка по номеру.
func ByID(id int64) Ref {
	return Ref{ID: id}
}

// ByMessage — заявка по посту в чате модерации.
func ByMessage(chatID int64, messageID int) Ref {
	return Ref{MessageRef: MessageRef(chatID, messageID)}
}

func (r Ref) String() string {
	if r.ID != 0 {
		return "#" + strconv.FormatInt(r.ID, 10)
	}
	return r.MessageRef
}

// MessageRef собирает ссылку на сообщение Telegram.
func MessageRef(chatID int64, messageID int) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(messageID)
}

// ParseMessageRef разбирает ссылку обратно.
func ParseMessageRef(ref string) (chatID int64, messageID int, err error) {
	chat, msg, ok := strings.Cut(ref, ":")
	if !ok {
		return 0, 0, fmt.Errorf("некорректная ссылка на сообщение %q", ref)
	}
	if chatID, err = strconv.ParseInt(chat, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("некорректная ссылка на сообщение %q: %w", ref, err)
	}
	if messageID, err = strconv.Atoi(msg); err != nil {
		return 0, 0, fmt.Errorf("некорректная ссылка на сообщение %q: %w", ref, err)
	}
	return chatID, messageID, nil
}

// Approver — кто принимает решение.
type Approver struct {
	UserID int64
	Roles  []string
}
