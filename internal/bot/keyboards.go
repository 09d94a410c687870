// Package bot — keyboards.go собирает inline-клавиатуры меню.
package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"serotonyl.ru/cashier-bot/internal/features/payments"
)

// Префиксы callback data. Формат: "<префикс>:<аргумент>".
const (
	cbMenu     = "menu"     // menu:balance, menu:deposit, ...
	cbDeposit  = "deposit"  // deposit:<method>
	cbWithdraw = "withdraw" // withdraw:<method>
	cbTx       = "tx"       // tx:approve:<id>, tx:reject:<id>
	cbAdmin    = "admin"    // admin:pending, admin:set:<key>, ...
)

// mainMenuKeyboard — главное меню пользователя.
func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Баланс", "menu:balance"),
			tgbotapi.NewInlineKeyboardButtonData("📋 История", "menu:history"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Пополнить", "menu:deposit"),
			tgbotapi.NewInlineKeyboardButtonData("➖ Вывести", "menu:withdraw"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 Подарить", "menu:gift"),
			tgbotapi.NewInlineKeyboardButtonData("🎟 Активировать код", "menu:redeem"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Рефералы", "menu:referrals"),
		),
	)
}

// methodsKeyboard — выбор платёжного метода для пополнения или вывода.
func methodsKeyboard(prefix string, methods []*payments.Method) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range methods {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(m.Title, prefix+":"+m.Key),
		))
	}
	rows = append(rows, backRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// backRow — кнопка возврата в главное меню.
func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Главное меню", "menu:main"),
	)
}

// backToMenuKeyboard — клавиатура с одной кнопкой возврата.
func backToMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(backRow())
}
