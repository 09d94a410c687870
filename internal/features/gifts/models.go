// Package gifts — переводы между пользователями и подарочные коды.
// models.go описывает код и запись аудита перевода.
package gifts

import "time"

// GiftCode — подарочный код с лимитом активаций.
type GiftCode struct {
	ID        int64      `db:"id"`
	Code      string     `db:"code"` // 8 символов A-Z0-9
	Amount    int64      `db:"amount"`
	MaxUses   int        `db:"max_uses"`
	UsedCount int        `db:"used_count"` // никогда не превышает MaxUses
	ExpiresAt *time.Time `db:"expires_at"` // nil — бессрочный
	CreatedBy int64      `db:"created_by"`
	CreatedAt time.Time  `db:"created_at"`
}

// Usable возвращает true, если код ещё можно активировать.
func (c *GiftCode) Usable(now time.Time) bool {
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false
	}
	return c.UsedCount < c.MaxUses
}

// Transfer — запись аудита перевода-подарка.
// Сами движения денег лежат в журнале транзакций; здесь связка
// отправитель-получатель и взятая комиссия.
type Transfer struct {
	ID         int64     `db:"id"`
	SenderID   int64     `db:"sender_id"`
	ReceiverID int64     `db:"receiver_id"`
	Amount     int64     `db:"amount"` // списано с отправителя
	Fee        int64     `db:"fee"`    // удержанная комиссия
	Net        int64     `db:"net"`    // зачислено получателю
	CreatedAt  time.Time `db:"created_at"`
}
