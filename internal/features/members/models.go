// Package members управляет участниками чата: регистрацией, ролями, флагами.
// models.go описывает структуры данных для работы с таблицей members.
package members

import "time"

// Member представляет участника чата в базе данных.
// Каждый пользователь, написавший в чат сообщества или вступивший в него,
// автоматически создаётся в этой таблице.
type Member struct {
	ID        int64     // Автоинкрементный ID записи в БД
	UserID    int64     // Telegram user ID (уникальный)
	Username  string    // @username (может быть пустым)
	FirstName string    // Имя пользователя
	LastName  string    // Фамилия (может быть пустой)
	Roles     []string  // Роли, назначенные админом или ботом (налог, права)
	IsAdmin   bool      // Флаг администратора
	IsBanned  bool      // Флаг бана
	JoinedAt  time.Time // Когда вступил в чат
	CreatedAt time.Time // Когда запись создана в БД
	UpdatedAt time.Time // Последнее обновление записи
}

// UpdateInfo содержит данные для обновления информации о пользователе.
// Используется, когда пользователь возвращается в чат и его имя/username могли измениться.
type UpdateInfo struct {
	Username  string // Новый @username
	FirstName string // Новое имя
	LastName  string // Новая фамилия
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть @username — возвращает его, иначе — имя + фамилию.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	name := m.FirstName
	if m.LastName != "" {
		name += " " + m.LastName
	}
	return name
}

// HasRole сообщает, есть ли у участника роль (без учёта регистра).
func (m *Member) HasRole(role string) bool {
	return HasRole(m.Roles, role)
}
