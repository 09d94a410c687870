// Package ledger — единственная точка изменения балансов.
// models.go описывает транзакцию и её словари.
package ledger

import "time"

// Виды транзакций.
const (
	KindDeposit            = "deposit"             // пополнение (требует одобрения)
	KindWithdraw           = "withdraw"            // вывод средств (требует одобрения)
	KindGiftSent           = "gift_sent"           // отправленный подарок
	KindGiftReceived       = "gift_received"       // полученный подарок
	KindCodeBonus          = "code_bonus"          // активация подарочного кода
	KindReferralCommission = "referral_commission" // выплата реферальной комиссии
	KindAdminAdd           = "admin_add"           // ручное начисление админом
	KindAdminDeduct        = "admin_deduct"        // ручное списание админом
)

// Статусы транзакций. Терминальные статусы никогда не меняются обратно.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Transaction — запись в журнале операций.
// Amount всегда положительный; направление определяется видом.
type Transaction struct {
	ID                int64      `db:"id"`
	UserID            int64      `db:"user_id"`
	Kind              string     `db:"kind"`
	Amount            int64      `db:"amount"` // минорные единицы
	Status            string     `db:"status"`
	PaymentMethod     string     `db:"payment_method"`     // метод оплаты (для deposit/withdraw)
	ExternalReference string     `db:"external_reference"` // номер платежа у оператора
	Details           string     `db:"details"`            // реквизиты вывода, комментарий админа и т.п.
	AdminID           *int64     `db:"admin_id"`           // кто обработал заявку
	CreatedAt         time.Time  `db:"created_at"`
	ProcessedAt       *time.Time `db:"processed_at"`
}

// Pending возвращает true, пока заявка ждёт решения администратора.
func (t *Transaction) Pending() bool {
	return t.Status == StatusPending
}
