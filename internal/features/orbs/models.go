// Package orbs — заявки на «орб»: групповую награду за совместную активность.
// Участник присылает скриншот с упоминаниями участников, модератор одобряет,
// и сумма orb_reward делится поровну между всеми.
package orbs

import "serotonyl.ru/economy-bot/internal/features/approval"

// Payload — данные, специфичные для орба.
type Payload struct {
	Participants []int64
}

// Submission — заявка на орб.
type Submission = approval.Submission[Payload]

// MaxParticipants — больше участников в одной заявке не бывает.
const MaxParticipants = 25

// Share — доля каждого участника. Остаток от деления никому не
// начисляется и сгорает: 100 на троих — по 33, одна монета пропадает.
func Share(amount int64, participants int) int64 {
	if participants <= 0 || amount <= 0 {
		return 0
	}
	return amount / int64(participants)
}
