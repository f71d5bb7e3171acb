// Package members — service.go содержит бизнес-логику управления участниками.
// Сервис координирует регистрацию новых участников, проверку членства,
// обновление информации и роли.
package members

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
)

// maxRoleLength — ограничение колонки и здравый смысл.
const maxRoleLength = 64

// Service управляет участниками чата.
// Связывает обработчики Telegram-событий с репозиторием БД.
type Service struct {
	repo *Repository // Репозиторий для работы с таблицей members
}

// NewService создаёт новый сервис участников.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// HandleNewMember обрабатывает вступление нового пользователя в чат.
// Если пользователь уже есть в базе (перезашёл) — обновляет его данные.
// Если пользователь новый — создаёт запись.
func (s *Service) HandleNewMember(ctx context.Context, userID int64, username, firstName, lastName string) error {
	existing, err := s.repo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrUserNotFound) {
		return err
	}
	if existing != nil {
		log.WithField("user_id", userID).Info("Участник перезашёл в чат, обновляем данные")
		return s.repo.UpdateInfo(ctx, userID, UpdateInfo{
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
		})
	}

	member := &Member{
		UserID:    userID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := s.repo.Create(ctx, member); err != nil {
		return fmt.Errorf("ошибка регистрации нового участника: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"username": username,
	}).Info("Новый участник зарегистрирован")

	return nil
}

// IsMember проверяет, является ли пользователь участником чата.
func (s *Service) IsMember(ctx context.Context, userID int64) (bool, error) {
	return s.repo.Exists(ctx, userID)
}

// GetByUserID возвращает участника по его Telegram user ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// GetByUsername возвращает участника по @username (с @ или без).
func (s *Service) GetByUsername(ctx context.Context, username string) (*Member, error) {
	return s.repo.GetByUsername(ctx, strings.TrimPrefix(username, "@"))
}

// EnsureMember гарантирует, что пользователь есть в базе.
// Если нет — создаёт запись. Используется при первом сообщении в чате.
func (s *Service) EnsureMember(ctx context.Context, userID int64, username, firstName, lastName string) error {
	exists, err := s.repo.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.HandleNewMember(ctx, userID, username, firstName, lastName)
}

// Roles возвращает роли участника. Незарегистрированный пользователь
// просто не имеет ролей.
func (s *Service) Roles(ctx context.Context, userID int64) ([]string, error) {
	m, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, common.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.Roles, nil
}

// AddRole выдаёт роль (повторная выдача ничего не меняет).
func (s *Service) AddRole(ctx context.Context, userID int64, role string) ([]string, error) {
	role, err := normalizeRole(role)
	if err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, userID, "", role)
}

// RemoveRole снимает роль.
func (s *Service) RemoveRole(ctx context.Context, userID int64, role string) ([]string, error) {
	role, err := normalizeRole(role)
	if err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, userID, role, "")
}

// Reconcile за одну транзакцию снимает remove и выдаёт add.
// Используется налогами: «должник» → «участник» и обратно.
func (s *Service) Reconcile(ctx context.Context, userID int64, remove, add string) ([]string, error) {
	roles, err := s.repo.UpdateRoles(ctx, userID, func(current []string) []string {
		return reconcileRoles(current, remove, add)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"removed": remove,
		"added":   add,
	}).Info("Роли участника обновлены")
	return roles, nil
}

// UsersWithRole возвращает участников с ролью.
func (s *Service) UsersWithRole(ctx context.Context, role string) ([]*Member, error) {
	return s.repo.GetUsersWithRole(ctx, role)
}

func normalizeRole(role string) (string, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return "", fmt.Errorf("пустое имя роли")
	}
	if utf8.RuneCountInString(role) > maxRoleLength {
		return "", common.ErrRoleTooLong
	}
	return role, nil
}
