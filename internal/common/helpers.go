// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование сумм, работа с временем
// и генерация кодов.
package common

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"
)

// PluralizeLira возвращает правильную форму слова «лира» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "лира" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "лиры" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "лир" (0, 5-20, 25-30, 100, ...)
func PluralizeLira(n int64) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "лира"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "лиры"
	}
	return "лир"
}

// FormatAmount форматирует сумму с разделителями тысяч и словом «лира».
// Пример: FormatAmount(150000) → "150 000 лир"
func FormatAmount(amount int64) string {
	return fmt.Sprintf("%s %s", GroupDigits(amount), PluralizeLira(amount))
}

// GroupDigits разбивает число на группы по три цифры.
// Пример: GroupDigits(1234567) → "1 234 567"
func GroupDigits(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return sign + s
	}

	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)

	return sign + strings.Join(groups, " ")
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется для отображения дат транзакций и кодов.
func FormatDateTime(t time.Time) string {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return t.In(loc).Format("02.01.2006 15:04")
}

// Алфавит кодов: заглавные латинские буквы и цифры.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomString возвращает криптографически случайную строку длины n
// из codeAlphabet.
func randomString(n int) string {
	var sb strings.Builder
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand не должен падать; fallback на время
			sb.WriteByte(codeAlphabet[time.Now().UnixNano()%int64(len(codeAlphabet))])
			continue
		}
		sb.WriteByte(codeAlphabet[idx.Int64()])
	}
	return sb.String()
}

// GenerateReferralCode генерирует реферальный код вида REF123456AB7C:
// префикс REF, последние 6 цифр user ID и 4 случайных символа.
func GenerateReferralCode(userID int64) string {
	base := fmt.Sprintf("%d", userID)
	if len(base) > 6 {
		base = base[len(base)-6:]
	}
	for len(base) < 6 {
		base = "0" + base
	}
	return "REF" + base + randomString(4)
}

// GenerateGiftCode генерирует 8-символьный код подарка.
func GenerateGiftCode() string {
	return randomString(8)
}
