// Package events — ивенты сообщества: запись участников с лимитом мест
// и ролью-допуском, смена статуса и награда участникам по завершении.
package events

import (
	"slices"
	"time"
)

// Event — ивент.
type Event struct {
	ID           int64
	Name         string
	StartsAt     time.Time
	Status       Status
	Capacity     *int // nil — без ограничения мест
	Participants []int64
	Reward       int64 // монет каждому участнику при завершении
	RequiredRole string
	CreatedAt    time.Time
}

// Registered — записан ли пользователь.
func (e *Event) Registered(userID int64) bool {
	return slices.Contains(e.Participants, userID)
}

// Full — все места заняты.
func (e *Event) Full() bool {
	return e.Capacity != nil && len(e.Participants) >= *e.Capacity
}

// Finish — итог завершения ивента.
type Finish struct {
	Event *Event
	Paid  int // скольким участникам начислена награда
}
