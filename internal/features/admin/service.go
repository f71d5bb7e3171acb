// Package admin — service.go: вход по паролю, сессии и ожидание пароля.
package admin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/members"
)

// Service управляет доступом к консоли.
type Service struct {
	repo         *Repository
	members      *members.Service
	passwordHash string
	adminIDs     map[int64]struct{}

	// кто из админов сейчас вводит пароль: userID → срок ожидания
	awaiting   map[int64]time.Time
	awaitingMu sync.Mutex
	now        func() time.Time
}

func NewService(repo *Repository, memberService *members.Service, passwordHash string, adminIDs []int64) *Service {
	ids := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = struct{}{}
	}
	return &Service{
		repo:         repo,
		members:      memberService,
		passwordHash: passwordHash,
		adminIDs:     ids,
		awaiting:     make(map[int64]time.Time),
		now:          time.Now,
	}
}

// IsAdmin — пользователь из ADMIN_IDS или с флагом is_admin в members.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if _, ok := s.adminIDs[userID]; ok {
		return true, nil
	}
	m, err := s.members.GetByUserID(ctx, userID)
	if errors.Is(err, common.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.IsAdmin, nil
}

// Login проверяет пароль и открывает сессию на сутки.
// После трёх неудач за час вход блокируется до конца окна.
func (s *Service) Login(ctx context.Context, userID int64, password string) (*Session, error) {
	failed, err := s.repo.FailedAttemptsSince(ctx, userID, s.now().Add(-LockoutWindow))
	if err != nil {
		return nil, err
	}
	if failed >= MaxFailedAttempts {
		return nil, common.ErrTooManyAttempts
	}

	ok := VerifyPassword(password, s.passwordHash)
	if err := s.repo.LogAttempt(ctx, userID, ok); err != nil {
		return nil, err
	}
	if !ok {
		log.WithField("user_id", userID).Warn("Неудачная попытка входа в админ-панель")
		return nil, common.ErrWrongPassword
	}

	session := &Session{
		UserID:    userID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(SessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	log.WithField("user_id", userID).Info("Вход в админ-панель")
	return session, nil
}

// Logout закрывает сессии пользователя.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	s.StopAwaiting(userID)
	return s.repo.DeactivateSessions(ctx, userID)
}

// HasActiveSession проверяет сессию и отмечает активность.
func (s *Service) HasActiveSession(ctx context.Context, userID int64) (bool, error) {
	session, err := s.repo.ActiveSession(ctx, userID)
	if err != nil || session == nil {
		return false, err
	}
	if err := s.repo.Touch(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось обновить активность сессии")
	}
	return true, nil
}

// AwaitPassword — следующее сообщение пользователя считается паролем.
func (s *Service) AwaitPassword(userID int64) {
	s.awaitingMu.Lock()
	defer s.awaitingMu.Unlock()
	s.awaiting[userID] = s.now().Add(stateTTL)
}

// AwaitingPassword сообщает, ждём ли пароль. Просроченное ожидание сбрасывается.
func (s *Service) AwaitingPassword(userID int64) bool {
	s.awaitingMu.Lock()
	defer s.awaitingMu.Unlock()
	until, ok := s.awaiting[userID]
	if !ok {
		return false
	}
	if s.now().After(until) {
		delete(s.awaiting, userID)
		return false
	}
	return true
}

// StopAwaiting сбрасывает ожидание пароля.
func (s *Service) StopAwaiting(userID int64) {
	s.awaitingMu.Lock()
	defer s.awaitingMu.Unlock()
	delete(s.awaiting, userID)
}
