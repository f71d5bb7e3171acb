// Package economy управляет виртуальной валютой сообщества (монетами).
// models.go описывает счета и журнал транзакций.
//
// Баланс хранится в accounts, каждое его изменение пишет ровно одну строку
// в transactions со знаковой суммой. Поэтому сумма балансов всегда равна
// сумме журнала: монеты появляются только через начисления известных типов.
package economy

import "time"

// Account — счёт пользователя. Создаётся лениво при первом обращении.
type Account struct {
	UserID    int64
	Balance   int64 // никогда не меньше нуля (CHECK в таблице)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction — строка журнала. Не изменяется и не удаляется.
type Transaction struct {
	ID          int64
	UserID      int64
	Kind        string
	Amount      int64 // > 0 начисление, < 0 списание
	Description string
	CreatedAt   time.Time
}

// Supply — сверка балансов с журналом.
type Supply struct {
	Balances int64 // сумма всех балансов
	Journal  int64 // сумма всех транзакций
	Accounts int64 // число счетов
}

// Consistent сообщает, что балансы сходятся с журналом.
func (s Supply) Consistent() bool {
	return s.Balances == s.Journal
}

// Типы транзакций
const (
	KindTransfer    = "transfer"     // Перевод между пользователями
	KindChatReward  = "chat_reward"  // Награда за сообщения
	KindVoiceReward = "voice_reward" // Награда за голосовые
	KindOrbReward   = "orb_reward"   // Доля орба после одобрения
	KindEventReward = "event_reward" // Награда за участие в ивенте
	KindPurchase    = "purchase"     // Покупка в магазине
	KindShopRevenue = "shop_revenue" // Выручка казны с покупки
	KindAdminGrant  = "admin_grant"  // Выдача админом
	KindAdminBurn   = "admin_burn"   // Изъятие админом
)

// kindLabels — подписи для истории транзакций.
var kindLabels = map[string]string{
	KindTransfer:    "Перевод",
	KindChatReward:  "Награда за чат",
	KindVoiceReward: "Награда за голосовые",
	KindOrbReward:   "Орб",
	KindEventReward: "Ивент",
	KindPurchase:    "Покупка",
	KindShopRevenue: "Выручка магазина",
	KindAdminGrant:  "Выдача",
	KindAdminBurn:   "Изъятие",
}

// KindLabel возвращает подпись типа транзакции.
func KindLabel(kind string) string {
	if l, ok := kindLabels[kind]; ok {
		return l
	}
	return kind
}
