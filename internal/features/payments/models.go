// Package payments — методы пополнения и вывода.
// models.go описывает платёжный метод и его лимиты.
package payments

import "time"

// Ключи платёжных методов.
const (
	MethodSyriatelCash = "syriatel_cash"
	MethodShamCash     = "sham_cash"
	MethodShamCashUSD  = "sham_cash_usd"
)

// Валюты методов. Суммы в USD конвертируются в лиры по курсу
// из настройки exchange_rate.
const (
	CurrencySYP = "SYP"
	CurrencyUSD = "USD"
)

// Method — платёжный метод с лимитами на одну операцию.
// Лимиты заданы в валюте метода.
type Method struct {
	Key       string    `db:"key"`
	Title     string    `db:"title"` // название для кнопки
	Currency  string    `db:"currency"`
	MinAmount int64     `db:"min_amount"`
	MaxAmount int64     `db:"max_amount"`
	Enabled   bool      `db:"enabled"` // false — скрыт из меню
	Paused    bool      `db:"paused"`  // true — временно приостановлен
	UpdatedAt time.Time `db:"updated_at"`
}

// Available возвращает true, если методом сейчас можно пользоваться.
func (m *Method) Available() bool {
	return m.Enabled && !m.Paused
}

// defaultMethods сеются при первом запуске.
var defaultMethods = []Method{
	{Key: MethodSyriatelCash, Title: "Syriatel Cash", Currency: CurrencySYP, MinAmount: 1000, MaxAmount: 50000, Enabled: true},
	{Key: MethodShamCash, Title: "Sham Cash", Currency: CurrencySYP, MinAmount: 1000, MaxAmount: 50000, Enabled: true},
	{Key: MethodShamCashUSD, Title: "Sham Cash (USD)", Currency: CurrencyUSD, MinAmount: 10, MaxAmount: 500, Enabled: true},
}
