// Package sessions хранит состояние многошаговых диалогов.
// Одна строка на пользователя: тег шага + типизированный payload.
package sessions

import (
	"encoding/json"
	"time"
)

// Теги шагов диалогов. По тегу обработчик выбирает, какой payload
// декодировать и что делать со следующим сообщением пользователя.
const (
	// Пополнение: метод выбран кнопкой, дальше сумма и номер платежа
	StepDepositAmount    = "awaiting_deposit_amount"
	StepDepositReference = "awaiting_deposit_reference"

	// Вывод: сумма, затем реквизиты
	StepWithdrawAmount  = "awaiting_withdraw_amount"
	StepWithdrawDetails = "awaiting_withdraw_details"

	// Подарки
	StepGiftAmount   = "awaiting_gift_amount"
	StepGiftReceiver = "awaiting_gift_receiver"
	StepGiftCode     = "awaiting_gift_code"

	// Админ-панель
	StepAdminPassword     = "awaiting_admin_password"
	StepAdminAdjustUser   = "admin_adjust_user"
	StepAdminAdjustAmount = "admin_adjust_amount"
	StepAdminBanUser      = "admin_ban_user"
	StepAdminSettingValue = "admin_setting_value"
	StepAdminCodeParams   = "admin_code_params"
)

// Session — текущее состояние диалога пользователя.
type Session struct {
	UserID    int64           `db:"user_id"`
	Step      string          `db:"step"`
	Payload   json.RawMessage `db:"payload"`
	ExpiresAt time.Time       `db:"expires_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// DecodePayload распаковывает payload сессии в типизированную структуру.
// Тип выбирает вызывающий по тегу шага.
func (s *Session) DecodePayload(v any) error {
	if len(s.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(s.Payload, v)
}

// Expired возвращает true, если сессия протухла.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// DepositPayload — накопленные данные диалога пополнения.
type DepositPayload struct {
	Method string `json:"method"`           // ключ метода оплаты
	Amount int64  `json:"amount,omitempty"` // сумма в лирах (после конвертации)
}

// WithdrawPayload — накопленные данные диалога вывода.
type WithdrawPayload struct {
	Method string `json:"method"`
	Amount int64  `json:"amount,omitempty"`
}

// GiftPayload — данные диалога перевода-подарка.
type GiftPayload struct {
	ReceiverID int64 `json:"receiver_id,omitempty"`
	Amount     int64 `json:"amount,omitempty"`
}

// AdminAdjustPayload — данные диалога ручной корректировки баланса.
type AdminAdjustPayload struct {
	TargetID int64 `json:"target_id,omitempty"`
	Add      bool  `json:"add"` // true — начислить, false — списать
}

// AdminSettingPayload — какая настройка сейчас редактируется.
type AdminSettingPayload struct {
	Key string `json:"key"`
}

// AdminBanPayload — направление операции блокировки.
type AdminBanPayload struct {
	Ban bool `json:"ban"` // true — заблокировать, false — разблокировать
}
