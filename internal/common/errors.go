// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
//
// Проверять их нужно через errors.Is: репозитории оборачивают
// ошибки через %w.
package common

import "errors"

// Ошибки экономики (баланс, переводы)
var (
	// ErrInsufficientFunds — недостаточно монет на счёте
	ErrInsufficientFunds = errors.New("недостаточно монет на счёте")
	// ErrSelfTransfer — попытка перевести монеты самому себе
	ErrSelfTransfer = errors.New("нельзя переводить монеты самому себе")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
)

// Ошибки магазина
var (
	ErrItemNotFound = errors.New("товар не найден")
	ErrInvalidPrice = errors.New("цена должна быть положительной")
)

// Ошибки заявок (орбы, налоги)
var (
	// ErrNoProofAttached — к заявке не приложено подтверждение (скриншот)
	ErrNoProofAttached = errors.New("к заявке нужно приложить скриншот")
	// ErrUnconfiguredReward — награда/сумма для заявки не настроена (0 или нет ключа)
	ErrUnconfiguredReward = errors.New("награда не настроена")
	// ErrAlreadyProcessed — заявка уже одобрена или отклонена
	ErrAlreadyProcessed = errors.New("заявка уже обработана")
	// ErrSubmissionNotFound — заявки с таким номером нет
	ErrSubmissionNotFound = errors.New("заявка не найдена")
	// ErrNoParticipants — в заявке на орб нет ни одного участника
	ErrNoParticipants = errors.New("укажите хотя бы одного участника")
)

// Ошибки ивентов
var (
	ErrEventNotFound = errors.New("ивент не найден")
	// ErrEventFull — мест больше нет
	ErrEventFull = errors.New("все места на ивент заняты")
	// ErrRoleRequired — для записи нужна определённая роль
	ErrRoleRequired = errors.New("для записи нужна роль")
	// ErrEventClosed — ивент завершён или отменён, запись закрыта
	ErrEventClosed = errors.New("запись на ивент закрыта")
	// ErrInvalidTransition — недопустимая смена статуса ивента
	ErrInvalidTransition = errors.New("недопустимая смена статуса")
)

// Ошибки прав и настроек
var (
	// ErrNotAuthorized — у пользователя нет нужного уровня прав
	ErrNotAuthorized = errors.New("недостаточно прав")
	// ErrConfigurationMissing — канал или роль не привязаны в настройках
	ErrConfigurationMissing = errors.New("не настроена привязка канала или роли")
	// ErrConnectionFailure — база недоступна после всех повторов
	ErrConnectionFailure = errors.New("база данных недоступна")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrRoleTooLong — роль длиннее 64 символов
	ErrRoleTooLong = errors.New("роль слишком длинная (максимум 64 символа)")
)
