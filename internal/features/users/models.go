// Package users управляет аккаунтами пользователей.
// models.go описывает структуру аккаунта — носителя баланса.
package users

import "time"

// Account представляет аккаунт пользователя, привязанный к Telegram ID.
// Баланс хранится в целых минорных единицах и никогда не бывает
// отрицательным (ограничение CHECK в БД + guarded UPDATE в леджере).
//
// Баланс мутируется ТОЛЬКО через пакет ledger.
type Account struct {
	UserID         int64      `db:"user_id"`         // Telegram user ID
	Balance        int64      `db:"balance"`         // Текущий баланс
	TotalDeposited int64      `db:"total_deposited"` // Сколько всего зачислено депозитами
	TotalWithdrawn int64      `db:"total_withdrawn"` // Сколько всего выведено
	ReferralCode   string     `db:"referral_code"`   // Уникальный реферальный код (REF...)
	ReferredBy     *int64     `db:"referred_by"`     // Кто привёл (nil, если пришёл сам)
	IsBanned       bool       `db:"is_banned"`
	BanReason      string     `db:"ban_reason"`
	BanUntil       *time.Time `db:"ban_until"` // nil — бан бессрочный
	CreatedAt      time.Time  `db:"created_at"`
	LastActive     time.Time  `db:"last_active"`
}

// Banned возвращает true, если аккаунт заблокирован прямо сейчас.
// Временный бан считается истёкшим после ban_until.
func (a *Account) Banned(now time.Time) bool {
	if !a.IsBanned {
		return false
	}
	if a.BanUntil != nil && now.After(*a.BanUntil) {
		return false
	}
	return true
}
