// Package bot содержит главный модуль бота — инициализацию, запуск и
// остановку. bot.go принимает апдейты и маршрутизирует их между
// обработчиками: команды, кнопки и шаги диалогов.
package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/bot/filters"
	"serotonyl.ru/cashier-bot/internal/bot/middleware"
	"serotonyl.ru/cashier-bot/internal/config"
	"serotonyl.ru/cashier-bot/internal/features/admin"
	"serotonyl.ru/cashier-bot/internal/features/gifts"
	"serotonyl.ru/cashier-bot/internal/features/payments"
	"serotonyl.ru/cashier-bot/internal/features/referrals"
	"serotonyl.ru/cashier-bot/internal/features/sessions"
	"serotonyl.ru/cashier-bot/internal/features/users"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	accessFilter *filters.AccessFilter
	rateLimiter  *middleware.RateLimiter

	userService     *users.Service
	sessionService  *sessions.Service
	paymentService  *payments.Service
	adminService    *admin.Service

	userHandler     *users.Handler
	referralHandler *referrals.Handler
	paymentHandler  *payments.Handler
	giftHandler     *gifts.Handler
	adminHandler    *admin.Handler

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	accessFilter *filters.AccessFilter,
	userService *users.Service,
	sessionService *sessions.Service,
	paymentService *payments.Service,
	adminService *admin.Service,
	userHandler *users.Handler,
	referralHandler *referrals.Handler,
	paymentHandler *payments.Handler,
	giftHandler *gifts.Handler,
	adminHandler *admin.Handler,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:             api,
		cfg:             cfg,
		accessFilter:    accessFilter,
		rateLimiter:     middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.IsSuperAdmin),
		userService:     userService,
		sessionService:  sessionService,
		paymentService:  paymentService,
		adminService:    adminService,
		userHandler:     userHandler,
		referralHandler: referralHandler,
		paymentHandler:  paymentHandler,
		giftHandler:     giftHandler,
		adminHandler:    adminHandler,
		inflight:        make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var userID int64
	if update.Message != nil && update.Message.From != nil {
		userID = update.Message.From.ID
	} else if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		userID = update.CallbackQuery.From.ID
	}
	defer middleware.RecoverFromPanic(userID)

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		b.handleMessage(ctx, update.Message)
	}
}

// handleMessage обрабатывает текстовое сообщение: команду или шаг
// текущего диалога.
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	middleware.LogMessage(message)

	if !b.accessFilter.CheckMessage(ctx, message) {
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	if ok, retryAfter := b.rateLimiter.Allow(userID, "message"); !ok {
		log.WithField("user_id", userID).Debug("rate limited")
		b.sendMessage(chatID, "⏳ Слишком много запросов. Подождите "+
			strconv.Itoa(retryAfter)+" сек.")
		return
	}

	// Аккаунт заводится при первом же сообщении
	if _, err := b.userService.GetOrCreate(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка создания аккаунта")
		b.sendMessage(chatID, "❌ Сервис временно недоступен, попробуйте позже")
		return
	}
	b.userService.TouchActivity(ctx, userID)

	if message.IsCommand() {
		b.routeCommand(ctx, chatID, userID, message.Command(), message.CommandArguments())
		return
	}

	b.routeStep(ctx, message)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, cmd, args string) {
	switch cmd {
	case "start":
		// deep-link /start ref_XXXX привязывает реферера
		if payload := strings.TrimSpace(args); payload != "" {
			b.referralHandler.HandleDeepLink(ctx, userID, payload)
		}
		_ = b.sessionService.Clear(ctx, userID)
		b.sendMainMenu(chatID)

	case "help":
		b.sendMessage(chatID, "Я кассовый бот.\n\n"+
			"/start — главное меню\n"+
			"/cancel — прервать текущий диалог\n\n"+
			"Пополнение и вывод оформляются заявками, их проверяет администратор.")

	case "cancel":
		_ = b.sessionService.Clear(ctx, userID)
		b.sendMessage(chatID, "Диалог прерван.")
		b.sendMainMenu(chatID)

	case "admin":
		b.adminHandler.HandleAdminCommand(ctx, chatID, userID)

	default:
		b.sendMessage(chatID, "Неизвестная команда. Нажмите /start")
	}
}

// routeStep передаёт свободный текст обработчику текущего шага диалога.
func (b *Bot) routeStep(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID
	text := message.Text

	sess, err := b.sessionService.Get(ctx, userID)
	if err != nil {
		// Диалога нет — показываем меню
		b.sendMainMenu(chatID)
		return
	}

	switch sess.Step {
	case sessions.StepDepositAmount:
		b.paymentHandler.HandleDepositAmount(ctx, chatID, userID, sess, text)
	case sessions.StepDepositReference:
		b.paymentHandler.HandleDepositReference(ctx, chatID, userID, sess, text)
	case sessions.StepWithdrawAmount:
		b.paymentHandler.HandleWithdrawAmount(ctx, chatID, userID, sess, text)
	case sessions.StepWithdrawDetails:
		b.paymentHandler.HandleWithdrawDetails(ctx, chatID, userID, sess, text)

	case sessions.StepGiftReceiver:
		b.giftHandler.HandleGiftReceiver(ctx, chatID, userID, sess, text)
	case sessions.StepGiftAmount:
		b.giftHandler.HandleGiftAmount(ctx, chatID, userID, sess, text)
	case sessions.StepGiftCode:
		b.giftHandler.HandleRedeemCode(ctx, chatID, userID, text)

	case sessions.StepAdminPassword:
		b.adminHandler.HandlePassword(ctx, chatID, userID, message.MessageID, text)

	case sessions.StepAdminAdjustUser, sessions.StepAdminAdjustAmount,
		sessions.StepAdminBanUser, sessions.StepAdminSettingValue,
		sessions.StepAdminCodeParams:
		b.routeAdminStep(ctx, chatID, userID, sess, text)

	default:
		log.WithFields(log.Fields{"user_id": userID, "step": sess.Step}).Warn("Неизвестный шаг диалога")
		_ = b.sessionService.Clear(ctx, userID)
		b.sendMainMenu(chatID)
	}
}

// routeAdminStep — шаги админ-диалогов; требуют живой админ-сессии.
func (b *Bot) routeAdminStep(ctx context.Context, chatID, userID int64, sess *sessions.Session, text string) {
	if !b.adminService.Authenticated(ctx, userID) {
		_ = b.sessionService.Clear(ctx, userID)
		b.sendMessage(chatID, "🔐 Сессия истекла. Нажмите /admin")
		return
	}

	switch sess.Step {
	case sessions.StepAdminAdjustUser:
		b.adminHandler.HandleAdjustUser(ctx, chatID, userID, sess, text)
	case sessions.StepAdminAdjustAmount:
		b.adminHandler.HandleAdjustAmount(ctx, chatID, userID, sess, text)
	case sessions.StepAdminBanUser:
		b.adminHandler.HandleBanUser(ctx, chatID, userID, sess, text)
	case sessions.StepAdminSettingValue:
		b.adminHandler.HandleSettingValue(ctx, chatID, userID, sess, text)
	case sessions.StepAdminCodeParams:
		b.adminHandler.HandleCodeParams(ctx, chatID, userID, text)
	}
}

// handleCallback обрабатывает нажатие inline-кнопки.
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	middleware.LogCallback(callback)

	if !b.accessFilter.CheckCallback(ctx, callback) {
		return
	}

	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	if ok, _ := b.rateLimiter.Allow(userID, "callback"); !ok {
		b.answerCallback(callback.ID, "⏳ Слишком часто")
		return
	}
	b.answerCallback(callback.ID, "")

	parts := strings.Split(callback.Data, ":")
	if len(parts) < 2 {
		return
	}

	switch parts[0] {
	case cbMenu:
		b.routeMenu(ctx, chatID, userID, parts[1])

	case cbDeposit:
		b.paymentHandler.StartDeposit(ctx, chatID, userID, parts[1])

	case cbWithdraw:
		b.paymentHandler.StartWithdraw(ctx, chatID, userID, parts[1])

	case cbTx:
		b.routeDecision(ctx, callback, parts[1:])

	case cbAdmin:
		b.routeAdmin(ctx, chatID, userID, parts[1:])
	}
}

// routeMenu — кнопки главного меню пользователя.
func (b *Bot) routeMenu(ctx context.Context, chatID, userID int64, item string) {
	switch item {
	case "main":
		b.sendMainMenu(chatID)
	case "balance":
		b.sendWithBack(chatID, b.userHandler.BalanceText(ctx, userID))
	case "history":
		b.sendWithBack(chatID, b.userHandler.HistoryText(ctx, userID))
	case "deposit":
		b.sendMethodsMenu(ctx, chatID, cbDeposit, "Выберите способ пополнения:")
	case "withdraw":
		b.sendMethodsMenu(ctx, chatID, cbWithdraw, "Выберите способ вывода:")
	case "gift":
		b.giftHandler.StartGift(ctx, chatID, userID)
	case "redeem":
		b.giftHandler.StartRedeem(ctx, chatID, userID)
	case "referrals":
		b.sendWithBack(chatID, b.referralHandler.StatsText(ctx, userID))
	}
}

// routeDecision — кнопки «Одобрить»/«Отклонить» у администратора.
func (b *Bot) routeDecision(ctx context.Context, callback *tgbotapi.CallbackQuery, args []string) {
	adminID := callback.From.ID
	chatID := callback.Message.Chat.ID

	if !b.adminService.Authenticated(ctx, adminID) {
		b.sendMessage(chatID, "🔐 Сессия истекла. Нажмите /admin")
		return
	}
	if len(args) != 2 {
		return
	}
	txID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return
	}

	switch args[0] {
	case "approve":
		b.adminHandler.HandleDecision(ctx, chatID, callback.Message.MessageID, adminID, txID, true)
	case "reject":
		b.adminHandler.HandleDecision(ctx, chatID, callback.Message.MessageID, adminID, txID, false)
	}
}

// routeAdmin — кнопки админ-панели.
func (b *Bot) routeAdmin(ctx context.Context, chatID, userID int64, args []string) {
	if !b.adminService.Authenticated(ctx, userID) {
		b.sendMessage(chatID, "🔐 Сессия истекла. Нажмите /admin")
		return
	}

	switch args[0] {
	case "panel":
		b.adminHandler.ShowPanel(ctx, chatID)
	case "pending":
		b.adminHandler.ShowPending(ctx, chatID)
	case "stats":
		b.adminHandler.ShowStats(ctx, chatID)
	case "adjust_add":
		b.adminHandler.StartAdjust(ctx, chatID, userID, true)
	case "adjust_sub":
		b.adminHandler.StartAdjust(ctx, chatID, userID, false)
	case "ban":
		b.adminHandler.StartBan(ctx, chatID, userID, true)
	case "unban":
		b.adminHandler.StartBan(ctx, chatID, userID, false)
	case "settings":
		b.adminHandler.ShowSettings(ctx, chatID)
	case "set":
		if len(args) == 2 {
			b.adminHandler.StartSetSetting(ctx, chatID, userID, args[1])
		}
	case "methods":
		b.adminHandler.ShowMethods(ctx, chatID)
	case "method":
		if len(args) == 2 {
			b.adminHandler.ToggleMethod(ctx, chatID, args[1])
		}
	case "code":
		b.adminHandler.StartCode(ctx, chatID, userID)
	case "logout":
		b.adminHandler.Logout(ctx, chatID, userID)
	}
}

// sendMainMenu показывает главное меню пользователя.
func (b *Bot) sendMainMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "💼 Главное меню\nВыберите действие:")
	msg.ReplyMarkup = mainMenuKeyboard()
	b.send(msg)
}

// sendMethodsMenu показывает доступные платёжные методы.
func (b *Bot) sendMethodsMenu(ctx context.Context, chatID int64, prefix, title string) {
	methods, err := b.paymentService.AvailableMethods(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка загрузки платёжных методов")
		b.sendMessage(chatID, "❌ Сервис временно недоступен, попробуйте позже")
		return
	}
	if len(methods) == 0 {
		b.sendWithBack(chatID, "😔 Сейчас нет доступных методов. Попробуйте позже.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, title)
	msg.ReplyMarkup = methodsKeyboard(prefix, methods)
	b.send(msg)
}

func (b *Bot) sendWithBack(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = backToMenuKeyboard()
	b.send(msg)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", msg.ChatID).Error("Ошибка отправки сообщения")
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		log.WithError(err).Warn("Ошибка ответа на callback")
	}
}
