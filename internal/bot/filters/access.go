// Package filters решает, пускать ли обновление в обработку.
package filters

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

type accountService interface {
	IsBanned(ctx context.Context, userID int64) (bool, error)
}

type settingsService interface {
	MaintenanceMode(ctx context.Context) (bool, string)
}

type adminService interface {
	IsAdmin(ctx context.Context, userID int64) bool
}

// AccessFilter отсекает обновления от заблокированных пользователей,
// групповые чаты и всех, кроме админов, в режиме обслуживания.
type AccessFilter struct {
	accounts accountService
	settings settingsService
	admins   adminService
	bot      *tgbotapi.BotAPI
}

func NewAccessFilter(accounts accountService, settings settingsService, admins adminService, bot *tgbotapi.BotAPI) *AccessFilter {
	return &AccessFilter{
		accounts: accounts,
		settings: settings,
		admins:   admins,
		bot:      bot,
	}
}

// CheckMessage возвращает true, если сообщение можно обрабатывать.
// Отказ пользователю объясняется прямо отсюда.
func (f *AccessFilter) CheckMessage(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil || message.From == nil {
		return false
	}
	// Бот работает только в личке
	if !message.Chat.IsPrivate() {
		return false
	}
	return f.allow(ctx, message.From.ID, message.Chat.ID)
}

// CheckCallback возвращает true, если нажатие кнопки можно обрабатывать.
func (f *AccessFilter) CheckCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) bool {
	if callback == nil || callback.From == nil || callback.Message == nil || callback.Message.Chat == nil {
		return false
	}
	if !callback.Message.Chat.IsPrivate() {
		return false
	}
	return f.allow(ctx, callback.From.ID, callback.Message.Chat.ID)
}

func (f *AccessFilter) allow(ctx context.Context, userID, chatID int64) bool {
	logger := log.WithFields(log.Fields{
		"component": "AccessFilter",
		"user_id":   userID,
	})

	banned, err := f.accounts.IsBanned(ctx, userID)
	if err != nil {
		logger.WithError(err).Error("Ошибка проверки блокировки")
		// При недоступном хранилище никого не отсекаем
	}
	if banned {
		logger.Info("Сообщение от заблокированного пользователя")
		f.reply(chatID, "⛔ Ваш аккаунт заблокирован. Обратитесь к администратору.")
		return false
	}

	if on, text := f.settings.MaintenanceMode(ctx); on && !f.admins.IsAdmin(ctx, userID) {
		f.reply(chatID, "🔧 "+text)
		return false
	}
	return true
}

func (f *AccessFilter) reply(chatID int64, text string) {
	if _, err := f.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("Не удалось отправить отказ")
	}
}
