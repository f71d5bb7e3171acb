// Package shop — магазин сообщества: каталог товаров и покупки за монеты.
// Деньги за покупку уходят на счёт казны (ECONOMY_TREASURY_ID).
package shop

import (
	"regexp"
	"time"
)

// Item — товар в каталоге.
type Item struct {
	ItemID      string
	Name        string
	Price       int64
	Description string
	UpdatedAt   time.Time
}

// Purchase — результат покупки.
type Purchase struct {
	Item    *Item
	Balance int64 // баланс покупателя после покупки
}

// itemIDPattern — id товара: латиница, цифры, дефис и подчёркивание.
var itemIDPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidItemID проверяет id товара.
func ValidItemID(id string) bool {
	return itemIDPattern.MatchString(id)
}
