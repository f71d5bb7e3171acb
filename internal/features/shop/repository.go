// Package shop — repository.go работает с таблицей shop_items.
package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/economy-bot/internal/common"
	"serotonyl.ru/economy-bot/internal/db/postgres"
)

type Repository struct {
	db *postgres.DB
}

func NewRepository(db *postgres.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *postgres.DB {
	return r.db
}

// List возвращает каталог: по возрастанию цены, при равной цене — по id.
func (r *Repository) List(ctx context.Context) ([]*Item, error) {
	var out []*Item
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		out = out[:0]
		rows, err := q.Query(ctx, `
			SELECT item_id, name, price, description, updated_at
			FROM shop_items
			ORDER BY price ASC, item_id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var it Item
			if err := rows.Scan(&it.ItemID, &it.Name, &it.Price, &it.Description, &it.UpdatedAt); err != nil {
				return err
			}
			out = append(out, &it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения каталога: %w", err)
	}
	return out, nil
}

// GetTx читает товар внутри транзакции покупки. FOR SHARE не даёт удалить
// или переоценить товар, пока покупка не закоммичена.
func (r *Repository) GetTx(ctx context.Context, tx pgx.Tx, itemID string) (*Item, error) {
	var it Item
	err := tx.QueryRow(ctx, `
		SELECT item_id, name, price, description, updated_at
		FROM shop_items WHERE item_id = $1
		FOR SHARE
	`, itemID).Scan(&it.ItemID, &it.Name, &it.Price, &it.Description, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения товара: %w", err)
	}
	return &it, nil
}

// Upsert создаёт или заменяет товар по id.
func (r *Repository) Upsert(ctx context.Context, it *Item) error {
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO shop_items (item_id, name, price, description, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (item_id) DO UPDATE
			SET name = EXCLUDED.name,
			    price = EXCLUDED.price,
			    description = EXCLUDED.description,
			    updated_at = NOW()
		`, it.ItemID, it.Name, it.Price, it.Description)
		return err
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения товара: %w", err)
	}
	return nil
}

// Delete удаляет товар. removed = false, если товара не было.
func (r *Repository) Delete(ctx context.Context, itemID string) (bool, error) {
	var removed bool
	err := r.db.Do(ctx, func(q postgres.Querier) error {
		tag, err := q.Exec(ctx, `DELETE FROM shop_items WHERE item_id = $1`, itemID)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ошибка удаления товара: %w", err)
	}
	return removed, nil
}
