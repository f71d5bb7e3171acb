// Package tax — еженедельный налог. Участник присылает скриншот оплаты,
// модератор одобряет, и запись в tax_records продлевается на неделю.
// Просроченные записи ежедневно помечаются должниками.
package tax

import (
	"time"

	"serotonyl.ru/economy-bot/internal/features/approval"
)

// PeriodDays — на сколько дней продлевает одна оплата.
const PeriodDays = 7

// Payload — у налога нет своих данных, кроме общих полей заявки.
type Payload struct{}

// Submission — заявка об оплате налога.
type Submission = approval.Submission[Payload]

// RecordStatus — состояние налоговой записи участника.
type RecordStatus string

const (
	StatusPaid       RecordStatus = "paid"
	StatusDelinquent RecordStatus = "delinquent"
)

// Record — налоговая запись участника.
type Record struct {
	UserID     int64
	Status     RecordStatus
	NextDue    time.Time // дата, до которой включительно налог оплачен
	LastPaidAt *time.Time
}

// NextDue — срок следующей оплаты, считая от дня одобрения.
func NextDue(today time.Time) time.Time {
	return today.AddDate(0, 0, PeriodDays)
}
