// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки леджера (баланс, транзакции)
var (
	// ErrInsufficientBalance — недостаточно средств на счёте
	ErrInsufficientBalance = errors.New("недостаточно средств на счёте")
	// ErrInvalidAmount — сумма вне допустимых пределов (ноль, отрицательная или за лимитами)
	ErrInvalidAmount = errors.New("недопустимая сумма")
	// ErrDuplicateReference — номер платежа уже заявлен для этого метода оплаты
	ErrDuplicateReference = errors.New("этот номер платежа уже использован")
	// ErrAlreadyFinalized — транзакция уже обработана (approved/rejected)
	ErrAlreadyFinalized = errors.New("транзакция уже обработана")
	// ErrNotFound — запись не найдена в базе
	ErrNotFound = errors.New("запись не найдена")
	// ErrStoreUnavailable — база данных не ответила вовремя или соединение оборвалось
	ErrStoreUnavailable = errors.New("хранилище временно недоступно")
)

// Ошибки подарков и кодов
var (
	// ErrSelfTransfer — попытка подарить средства самому себе
	ErrSelfTransfer = errors.New("нельзя переводить средства самому себе")
	// ErrReceiverBanned — получатель заблокирован
	ErrReceiverBanned = errors.New("получатель заблокирован")
	// ErrExpiredOrExhausted — код просрочен или лимит использований исчерпан
	ErrExpiredOrExhausted = errors.New("код просрочен или уже использован")
	// ErrCodeAlreadyRedeemed — этот аккаунт уже активировал этот код
	ErrCodeAlreadyRedeemed = errors.New("вы уже активировали этот код")
)

// Ошибки доступа
var (
	// ErrRateLimited — превышен лимит запросов
	ErrRateLimited = errors.New("слишком много запросов, попробуйте позже")
	// ErrUserBanned — пользователь заблокирован
	ErrUserBanned = errors.New("ваш аккаунт заблокирован")
	// ErrMaintenance — включён режим обслуживания
	ErrMaintenance = errors.New("бот на обслуживании")
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
)

// Ошибки платёжных методов
var (
	// ErrMethodUnavailable — метод оплаты отключён администратором
	ErrMethodUnavailable = errors.New("метод оплаты временно недоступен")
)
