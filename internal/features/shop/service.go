// Package shop — service.go: каталог и покупки.
package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/features/economy"
	"serotonyl.ru/economy-bot/internal/metrics"
)

type Service struct {
	repo       *Repository
	ledger     *economy.Service
	treasuryID int64
}

func NewService(repo *Repository, ledger *economy.Service, treasuryID int64) *Service {
	return &Service{repo: repo, ledger: ledger, treasuryID: treasuryID}
}

// ListItems возвращает каталог по возрастанию цены.
func (s *Service) ListItems(ctx context.Context) ([]*Item, error) {
	return s.repo.List(ctx)
}

// Purchase списывает цену у покупателя и зачисляет её в казну одной
// транзакцией. Если товара нет или монет не хватает — ничего не меняется.
func (s *Service) Purchase(ctx context.Context, buyerID int64, itemID string) (*Purchase, error) {
	itemID = strings.ToLower(strings.TrimSpace(itemID))
	if buyerID == s.treasuryID {
		return nil, common.ErrSelfTransfer
	}

	var result Purchase
	err := s.repo.DB().WithTx(ctx, func(tx pgx.Tx) error {
		item, err := s.repo.GetTx(ctx, tx, itemID)
		if err != nil {
			return err
		}

		balance, err := s.ledger.DebitTx(ctx, tx, buyerID, item.Price, economy.KindPurchase, "Покупка: "+item.Name)
		if err != nil {
			return err
		}
		description := fmt.Sprintf("Продажа: %s (user_id=%d)", item.Name, buyerID)
		if _, err := s.ledger.CreditTx(ctx, tx, s.treasuryID, item.Price, economy.KindShopRevenue, description); err != nil {
			return err
		}

		result = Purchase{Item: item, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordLedger(economy.KindPurchase, -result.Item.Price, nil)
	metrics.RecordLedger(economy.KindShopRevenue, result.Item.Price, nil)
	log.WithFields(log.Fields{
		"user_id": buyerID,
		"item_id": itemID,
		"price":   result.Item.Price,
	}).Info("Покупка в магазине")
	return &result, nil
}

// UpsertItem создаёт или заменяет товар.
func (s *Service) UpsertItem(ctx context.Context, itemID, name string, price int64, description string) (*Item, error) {
	if price <= 0 {
		return nil, common.ErrInvalidPrice
	}
	itemID = strings.ToLower(strings.TrimSpace(itemID))
	if !ValidItemID(itemID) {
		return nil, fmt.Errorf("некорректный id товара %q", itemID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = itemID
	}

	item := &Item{ItemID: itemID, Name: name, Price: price, Description: strings.TrimSpace(description)}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"item_id": itemID, "price": price}).Info("Товар сохранён")
	return item, nil
}

// DeleteItem удаляет товар и сообщает, был ли он.
func (s *Service) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	return s.repo.Delete(ctx, strings.ToLower(strings.TrimSpace(itemID)))
}
