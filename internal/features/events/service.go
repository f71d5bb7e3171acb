package events

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/economy"
	"serotonyl.ru/economy-bot/internal/features/members"
)

// DefaultListLimit — сколько ивентов показывает !ивенты.
const DefaultListLimit = 10

type Service struct {
	repo   *Repository
	ledger *economy.Service
}

func NewService(repo *Repository, ledger *economy.Service) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// Create заводит ивент. capacity nil — без ограничения мест.
func (s *Service) Create(ctx context.Context, name string, startsAt time.Time, capacity *int, reward int64, requiredRole string) (*Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("пустое название ивента")
	}
	if reward < 0 {
		return nil, common.ErrInvalidAmount
	}
	if capacity != nil && *capacity <= 0 {
		return nil, fmt.Errorf("число мест должно быть положительным")
	}

	e := &Event{
		Name:         name,
		StartsAt:     startsAt,
		Capacity:     capacity,
		Reward:       reward,
		RequiredRole: strings.TrimSpace(requiredRole),
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"event": e.ID, "name": e.Name, "starts_at": e.StartsAt}).Info("Создан ивент")
	return e, nil
}

// Get возвращает ивент.
func (s *Service) Get(ctx context.Context, id int64) (*Event, error) {
	return s.repo.Get(ctx, id)
}

// Upcoming — открытые ивенты от now.
func (s *Service) Upcoming(ctx context.Context, now time.Time, limit int) ([]*Event, error) {
	return s.repo.Upcoming(ctx, now, limit)
}

// Register записывает пользователя. Повторная запись не ошибка:
// added = false, список не меняется.
//
// Проверки под блокировкой строки, чтобы два последних желающих
// не заняли одно место.
func (s *Service) Register(ctx context.Context, eventID, userID int64, roles []string) (e *Event, added bool, err error) {
	err = s.repo.DB().WithTx(ctx, func(tx pgx.Tx) error {
		added = false
		e, err = s.repo.LockTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !e.Status.Open() {
			return common.ErrEventClosed
		}
		if e.Registered(userID) {
			return nil
		}
		if e.RequiredRole != "" && !members.HasRole(roles, e.RequiredRole) {
			return common.ErrRoleRequired
		}
		if e.Full() {
			return common.ErrEventFull
		}

		e.Participants = append(e.Participants, userID)
		added = true
		return s.repo.SetParticipantsTx(ctx, tx, eventID, e.Participants)
	})
	if err != nil {
		return nil, false, err
	}
	if added {
		log.WithFields(log.Fields{"event": eventID, "user_id": userID}).Info("Запись на ивент")
	}
	return e, added, nil
}

// Unregister отписывает пользователя. Отписка того, кто не записан,
// не ошибка: removed = false.
func (s *Service) Unregister(ctx context.Context, eventID, userID int64) (removed bool, err error) {
	err = s.repo.DB().WithTx(ctx, func(tx pgx.Tx) error {
		removed = false
		e, err := s.repo.LockTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !e.Status.Open() {
			return common.ErrEventClosed
		}
		idx := slices.Index(e.Participants, userID)
		if idx < 0 {
			return nil
		}
		removed = true
		return s.repo.SetParticipantsTx(ctx, tx, eventID, slices.Delete(e.Participants, idx, idx+1))
	})
	return removed, err
}

// SetStatus двигает ивент по статусам. При завершении каждый участник
// получает награду в той же транзакции: либо статус сменился и все
// получили монеты, либо ничего не произошло.
func (s *Service) SetStatus(ctx context.Context, eventID int64, to Status) (*Finish, error) {
	var res *Finish
	err := s.repo.DB().WithTx(ctx, func(tx pgx.Tx) error {
		res = nil
		e, err := s.repo.LockTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !CanTransition(e.Status, to) {
			return fmt.Errorf("ивент #%d: %s → %s: %w", eventID, e.Status, to, common.ErrInvalidTransition)
		}
		if err := s.repo.SetStatusTx(ctx, tx, eventID, to); err != nil {
			return err
		}
		e.Status = to
		res = &Finish{Event: e}

		if to != StatusFinished || e.Reward <= 0 {
			return nil
		}
		ids := slices.Clone(e.Participants)
		slices.Sort(ids)
		description := fmt.Sprintf("Ивент «%s»", e.Name)
		for _, userID := range ids {
			if _, err := s.ledger.CreditTx(ctx, tx, userID, e.Reward, economy.KindEventReward, description); err != nil {
				return err
			}
		}
		res.Paid = len(ids)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"event": eventID, "status": to, "paid": res.Paid}).Info("Статус ивента изменён")
	return res, nil
}
