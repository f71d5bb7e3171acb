package events

// Status — состояние ивента.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// transitions — разрешённые переходы. Назад статус не откатывается.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusActive, StatusCancelled},
	StatusActive:    {StatusFinished, StatusCancelled},
}

// CanTransition сообщает, можно ли перевести ивент из from в to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Open — на ивент ещё можно записаться.
func (s Status) Open() bool {
	return s == StatusScheduled || s == StatusActive
}

// ParseStatus разбирает статус из команды, по-русски или по-английски.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "scheduled", "запланирован":
		return StatusScheduled, true
	case "active", "идёт", "идет", "начат":
		return StatusActive, true
	case "finished", "завершён", "завершен":
		return StatusFinished, true
	case "cancelled", "отменён", "отменен":
		return StatusCancelled, true
	}
	return "", false
}

// Label — статус для людей.
func (s Status) Label() string {
	switch s {
	case StatusScheduled:
		return "📅 запланирован"
	case StatusActive:
		return "▶️ идёт"
	case StatusFinished:
		return "🏁 завершён"
	case StatusCancelled:
		return "🚫 отменён"
	}
	return string(s)
}
