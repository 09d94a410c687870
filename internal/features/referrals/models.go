// Package referrals — реферальная программа.
// models.go описывает связку реферер-приглашённый и агрегаты.
package referrals

import "time"

// Referral — один приглашённый. На пользователя ровно одна строка:
// первый реферер побеждает, перезапись невозможна (UNIQUE referred_id).
type Referral struct {
	ID               int64      `db:"id"`
	ReferrerID       int64      `db:"referrer_id"`
	ReferredID       int64      `db:"referred_id"`
	AmountCharged    int64      `db:"amount_charged"`    // депозиты с прошлой выплаты
	CommissionEarned int64      `db:"commission_earned"` // уже учтённые депозиты
	Active           bool       `db:"active"`            // прошёл порог активации
	CreatedAt        time.Time  `db:"created_at"`
	ActivatedAt      *time.Time `db:"activated_at"`
}

// Stats — сводка для экрана «Рефералы».
type Stats struct {
	Total       int64 // всего приглашено
	Active      int64 // прошли порог активации
	Eligible    int64 // активные с достаточными депозитами в этом цикле
	ChargedSum  int64 // сумма депозитов учитываемых рефералов
	TotalEarned int64 // выплачено за всё время (в депозитной базе)
	Pending     int64 // комиссия к выплате в ближайшем цикле
}

// Payout — агрегат одного реферера при выплате.
type Payout struct {
	ReferrerID    int64
	EligibleCount int64
	ChargedSum    int64
}
