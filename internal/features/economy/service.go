// Package economy — service.go содержит бизнес-логику экономики:
// проверку сумм, переводы, начисления и списания, историю.
package economy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/metrics"
)

// DefaultHistoryLimit — сколько транзакций показывает !транзакции.
const DefaultHistoryLimit = 10

// Service — счётная книга бота.
type Service struct {
	repo *Repository
}

// NewService создаёт новый сервис экономики.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// GetOrCreateAccount возвращает счёт пользователя (создаёт нулевой при первом обращении).
func (s *Service) GetOrCreateAccount(ctx context.Context, userID int64) (*Account, error) {
	return s.repo.GetOrCreateAccount(ctx, userID)
}

// GetBalance возвращает текущий баланс пользователя.
func (s *Service) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

// Credit начисляет монеты отдельной транзакцией БД.
// Отрицательная сумма — ошибка: списания идут только через Debit.
func (s *Service) Credit(ctx context.Context, userID, amount int64, kind, description string) (int64, error) {
	var balance int64
	err := s.repo.DB().WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		balance, err = s.CreditTx(ctx, tx, userID, amount, kind, description)
		return err
	})
	metrics.RecordLedger(kind, amount, err)
	return balance, err
}

// Debit списывает монеты отдельной транзакцией БД.
// Возвращает common.ErrInsufficientFunds, если монет не хватает.
func (s *Service) Debit(ctx context.Context, userID, amount int64, kind, description string) (int64, error) {
	var balance int64
	err := s.repo.DB().WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		balance, err = s.DebitTx(ctx, tx, userID, amount, kind, description)
		return err
	})
	metrics.RecordLedger(kind, -amount, err)
	return balance, err
}

// CreditTx — начисление внутри транзакции вызывающего.
// Нулевая сумма ничего не меняет и не пишет в журнал.
func (s *Service) CreditTx(ctx context.Context, tx pgx.Tx, userID, amount int64, kind, description string) (int64, error) {
	if amount < 0 {
		return 0, common.ErrInvalidAmount
	}
	if amount == 0 {
		return 0, nil
	}
	return s.repo.CreditTx(ctx, tx, userID, amount, kind, description)
}

// DebitTx — списание внутри транзакции вызывающего.
func (s *Service) DebitTx(ctx context.Context, tx pgx.Tx, userID, amount int64, kind, description string) (int64, error) {
	if amount < 0 {
		return 0, common.ErrInvalidAmount
	}
	if amount == 0 {
		return 0, nil
	}
	return s.repo.DebitTx(ctx, tx, userID, amount, kind, description)
}

// Transfer переводит монеты от одного пользователя к другому.
// Проверки:
//   - сумма должна быть положительной
//   - нельзя переводить себе
//   - у отправителя должно хватать монет (проверяется под блокировкой)
//
// Возвращает новый баланс отправителя.
func (s *Service) Transfer(ctx context.Context, fromUserID, toUserID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	if fromUserID == toUserID {
		return 0, common.ErrSelfTransfer
	}

	description := fmt.Sprintf("Перевод %s", common.FormatBalance(amount))
	balance, err := s.repo.Transfer(ctx, fromUserID, toUserID, amount, description)
	metrics.RecordLedger(KindTransfer, amount, err)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"from":   fromUserID,
		"to":     toUserID,
		"amount": amount,
	}).Info("Перевод выполнен")
	return balance, nil
}

// History возвращает последние транзакции пользователя (новые первыми).
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.repo.GetTransactions(ctx, userID, limit)
}

// Supply сверяет сумму балансов с журналом.
func (s *Service) Supply(ctx context.Context) (Supply, error) {
	return s.repo.Supply(ctx)
}

// Issue — выдача монет админом (эмиссия).
func (s *Service) Issue(ctx context.Context, adminID, userID, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	balance, err := s.Credit(ctx, userID, amount, KindAdminGrant, adminDescription("Выдача", reason))
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"admin_id": adminID,
		"user_id":  userID,
		"amount":   amount,
	}).Info("Админ выдал монеты")
	return balance, nil
}

// Burn — изъятие монет админом. Монеты сгорают, никому не зачисляются.
func (s *Service) Burn(ctx context.Context, adminID, userID, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	balance, err := s.Debit(ctx, userID, amount, KindAdminBurn, adminDescription("Изъятие", reason))
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"admin_id": adminID,
		"user_id":  userID,
		"amount":   amount,
	}).Info("Админ изъял монеты")
	return balance, nil
}

func adminDescription(action, reason string) string {
	if reason == "" {
		return action + " администратором"
	}
	return action + " администратором: " + reason
}
