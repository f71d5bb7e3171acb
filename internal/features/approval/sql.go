package approval

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/economy-bot/internal/common"
)

// Transition — условный UPDATE для таблиц заявок с колонками
// id, status, message_ref, decided_by, decided_at. Возвращает id заявки.
//
// Обновляется только строка со status = 'pending'.
// Если UPDATE не вернул строку, второй запрос выясняет почему.
func Transition(ctx context.Context, tx pgx.Tx, table string, ref Ref, to Status, approverID int64) (int64, error) {
	column, arg, err := refColumn(ref)
	if err != nil {
		return 0, err
	}
	tbl := pgx.Identifier{table}.Sanitize()

	var id int64
	err = tx.QueryRow(ctx, `
		UPDATE `+tbl+`
		SET status = $1, decided_by = $2, decided_at = NOW()
		WHERE `+column+` = $3 AND status = 'pending'
		RETURNING id
	`, string(to), approverID, arg).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("ошибка смены статуса заявки %s: %w", ref, err)
	}

	// Ничего не обновили: либо заявки нет, либо она уже решена
	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM `+tbl+` WHERE `+column+` = $1`, arg).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("заявка %s: %w", ref, common.ErrSubmissionNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения заявки %s: %w", ref, err)
	}
	return 0, fmt.Errorf("заявка %s уже %s: %w", ref, status, common.ErrAlreadyProcessed)
}

// refColumn возвращает колонку и значение, по которым ищется заявка.
func refColumn(ref Ref) (string, any, error) {
	switch {
	case ref.ID != 0:
		return "id", ref.ID, nil
	case ref.MessageRef != "":
		return "message_ref", ref.MessageRef, nil
	}
	return "", nil, fmt.Errorf("пустая ссылка на заявку: %w", common.ErrSubmissionNotFound)
}
