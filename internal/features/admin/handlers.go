// Package admin — handlers.go реализует админ-панель: вход по паролю,
// обработку заявок, корректировки балансов, блокировки, настройки,
// платёжные методы и подарочные коды.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/features/gifts"
	"serotonyl.ru/cashier-bot/internal/features/ledger"
	"serotonyl.ru/cashier-bot/internal/features/payments"
	"serotonyl.ru/cashier-bot/internal/features/sessions"
	"serotonyl.ru/cashier-bot/internal/features/settings"
	"serotonyl.ru/cashier-bot/internal/features/users"
)

const pendingPageSize = 10

type ledgerReader interface {
	ListPending(ctx context.Context, limit int) ([]*ledger.Transaction, error)
	CountPending(ctx context.Context) (int64, error)
}

// Handler ведёт диалоги админ-панели.
type Handler struct {
	service  *Service
	sessions *sessions.Service
	users    *users.Service
	ledger   ledgerReader
	payments *payments.Service
	settings *settings.Service
	gifts    *gifts.Service
	api      *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service, sess *sessions.Service, u *users.Service, l ledgerReader,
	p *payments.Service, st *settings.Service, g *gifts.Service, api *tgbotapi.BotAPI) *Handler {
	return &Handler{
		service: service, sessions: sess, users: u, ledger: l,
		payments: p, settings: st, gifts: g, api: api,
	}
}

// HandleAdminCommand обрабатывает /admin: авторизованным показывает
// панель, остальным админам предлагает ввести пароль.
func (h *Handler) HandleAdminCommand(ctx context.Context, chatID, userID int64) {
	if !h.service.IsAdmin(ctx, userID) {
		h.send(chatID, "⛔ У вас нет доступа к этой команде")
		return
	}
	if h.service.Authenticated(ctx, userID) {
		h.ShowPanel(ctx, chatID)
		return
	}
	if err := h.sessions.Set(ctx, userID, sessions.StepAdminPassword, struct{}{}); err != nil {
		h.sendError(chatID, err)
		return
	}
	h.send(chatID, "🔐 Введите пароль администратора:")
}

// HandlePassword проверяет введённый пароль и открывает панель.
func (h *Handler) HandlePassword(ctx context.Context, chatID, userID int64, messageID int, password string) {
	// Сообщение с паролем не должно оставаться в переписке
	if _, err := h.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.WithError(err).Warn("Не удалось удалить сообщение с паролем")
	}

	if err := h.service.Login(ctx, userID, password); err != nil {
		switch {
		case errors.Is(err, common.ErrTooManyAttempts):
			h.send(chatID, "⛔ Слишком много неудачных попыток. Подождите час.")
			_ = h.sessions.Clear(ctx, userID)
		case errors.Is(err, common.ErrWrongPassword):
			h.send(chatID, "❌ Неверный пароль. Попробуйте ещё раз:")
		case errors.Is(err, common.ErrNotAdmin):
			h.send(chatID, "⛔ У вас нет доступа")
			_ = h.sessions.Clear(ctx, userID)
		default:
			h.sendError(chatID, err)
		}
		return
	}
	_ = h.sessions.Clear(ctx, userID)
	h.ShowPanel(ctx, chatID)
}

// ShowPanel показывает главное меню админ-панели.
func (h *Handler) ShowPanel(ctx context.Context, chatID int64) {
	count, err := h.ledger.CountPending(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка подсчёта заявок")
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("🛠 Админ-панель\n\nЗаявок в очереди: %d", count))
	msg.ReplyMarkup = panelKeyboard()
	h.sendMsg(msg)
}

// ShowPending выводит очередь необработанных заявок, каждую с кнопками
// решения.
func (h *Handler) ShowPending(ctx context.Context, chatID int64) {
	list, err := h.ledger.ListPending(ctx, pendingPageSize)
	if err != nil {
		h.sendError(chatID, err)
		return
	}
	if len(list) == 0 {
		h.send(chatID, "📭 Заявок нет")
		return
	}
	for _, t := range list {
		msg := tgbotapi.NewMessage(chatID, claimText(t))
		msg.ReplyMarkup = reviewKeyboard(t.ID)
		h.sendMsg(msg)
	}
}

// ShowStats выводит сводную статистику по пользователям и балансам.
func (h *Handler) ShowStats(ctx context.Context, chatID int64) {
	total, banned, err := h.users.Stats(ctx)
	if err != nil {
		h.sendError(chatID, err)
		return
	}
	pending, err := h.ledger.CountPending(ctx)
	if err != nil {
		h.sendError(chatID, err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Статистика\n\n")
	fmt.Fprintf(&b, "Пользователей: %d (заблокировано %d)\n", total, banned)
	fmt.Fprintf(&b, "Заявок в очереди: %d\n", pending)

	if top, err := h.users.TopByBalance(ctx, 5); err == nil && len(top) > 0 {
		b.WriteString("\nТоп по балансу:\n")
		for i, a := range top {
			fmt.Fprintf(&b, "%d. %d — %s\n", i+1, a.UserID, common.FormatAmount(a.Balance))
		}
	}
	if top, err := h.users.TopByDeposited(ctx, 5); err == nil && len(top) > 0 {
		b.WriteString("\nТоп по пополнениям:\n")
		for i, a := range top {
			fmt.Fprintf(&b, "%d. %d — %s\n", i+1, a.UserID, common.FormatAmount(a.TotalDeposited))
		}
	}
	h.send(chatID, b.String())
}

// HandleDecision обрабатывает нажатие «Одобрить»/«Отклонить» на заявке.
func (h *Handler) HandleDecision(ctx context.Context, chatID int64, messageID int, adminID, txID int64, approve bool) {
	var (
		t   *ledger.Transaction
		err error
	)
	if approve {
		t, err = h.service.Approve(ctx, txID, adminID)
	} else {
		t, err = h.service.Reject(ctx, txID, adminID)
	}
	if err != nil {
		switch {
		case errors.Is(err, common.ErrAlreadyFinalized):
			h.send(chatID, fmt.Sprintf("Заявка №%d уже обработана другим администратором", txID))
		case errors.Is(err, common.ErrNotFound):
			h.send(chatID, fmt.Sprintf("Заявка №%d не найдена", txID))
		default:
			h.sendError(chatID, err)
		}
		return
	}

	verdict := "❌ Отклонена"
	if approve {
		verdict = "✅ Одобрена"
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID,
		claimText(t)+"\n\n"+verdict+fmt.Sprintf(" (админ %d)", adminID))
	if _, err := h.api.Send(edit); err != nil {
		log.WithError(err).Warn("Не удалось обновить сообщение заявки")
	}

	h.notifyDecision(t, approve)
}

// notifyDecision сообщает пользователю итог по его заявке.
func (h *Handler) notifyDecision(t *ledger.Transaction, approve bool) {
	var text string
	switch {
	case approve && t.Kind == ledger.KindDeposit:
		text = fmt.Sprintf("✅ Ваша заявка №%d одобрена!\nНачислено %s.", t.ID, common.FormatAmount(t.Amount))
	case approve && t.Kind == ledger.KindWithdraw:
		text = fmt.Sprintf("✅ Ваша заявка на вывод №%d выполнена.\nСумма: %s.", t.ID, common.FormatAmount(t.Amount))
	case t.Kind == ledger.KindWithdraw:
		text = fmt.Sprintf("❌ Ваша заявка на вывод №%d отклонена.\nСредства возвращены на счёт.", t.ID)
	default:
		text = fmt.Sprintf("❌ Ваша заявка №%d отклонена.", t.ID)
	}
	h.send(t.UserID, text)
}

// NotifyNewClaim рассылает администраторам новую заявку с кнопками
// решения. Вызывается платёжными обработчиками.
func (h *Handler) NotifyNewClaim(ctx context.Context, t *ledger.Transaction) {
	for _, adminID := range h.service.NotifyTargets(ctx) {
		msg := tgbotapi.NewMessage(adminID, "🔔 Новая заявка\n\n"+claimText(t))
		msg.ReplyMarkup = reviewKeyboard(t.ID)
		h.sendMsg(msg)
	}
}

// StartAdjust начинает диалог ручной корректировки баланса.
func (h *Handler) StartAdjust(ctx context.Context, chatID, adminID int64, add bool) {
	err := h.sessions.Set(ctx, adminID, sessions.StepAdminAdjustUser, sessions.AdminAdjustPayload{Add: add})
	if err != nil {
		h.sendError(chatID, err)
		return
	}
	if add {
		h.send(chatID, "Введите ID пользователя для начисления:")
	} else {
		h.send(chatID, "Введите ID пользователя для списания:")
	}
}

// HandleAdjustUser обрабатывает введённый ID цели корректировки.
func (h *Handler) HandleAdjustUser(ctx context.Context, chatID, adminID int64, sess *sessions.Session, text string) {
	var p sessions.AdminAdjustPayload
	if err := sess.DecodePayload(&p); err != nil {
		h.sendError(chatID, err)
		return
	}

	targetID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || targetID <= 0 {
		h.send(chatID, "❌ ID должен быть положительным числом. Попробуйте ещё раз:")
		return
	}
	account, err := h.users.Get(ctx, targetID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			h.send(chatID, "❌ Пользователь не найден. Введите другой ID:")
			return
		}
		h.sendError(chatID, err)
		return
	}

	p.TargetID = targetID
	if err := h.sessions.Set(ctx, adminID, sessions.StepAdminAdjustAmount, p); err != nil {
		h.sendError(chatID, err)
		return
	}
	h.send(chatID, fmt.Sprintf("Текущий баланс пользователя %d: %s\nВведите сумму:",
		targetID, common.FormatAmount(account.Balance)))
}

// HandleAdjustAmount завершает корректировку баланса.
func (h *Handler) HandleAdjustAmount(ctx context.Context, chatID, adminID int64, sess *sessions.Session, text string) {
	var p sessions.AdminAdjustPayload
	if err := sess.DecodePayload(&p); err != nil {
		h.sendError(chatID, err)
		return
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || amount <= 0 {
		h.send(chatID, "❌ Сумма должна быть положительным числом. Попробуйте ещё раз:")
		return
	}

	balance, err := h.service.AdjustBalance(ctx, adminID, p.TargetID, amount, p.Add)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInsufficientBalance):
			h.send(chatID, "❌ У пользователя недостаточно средств для списания")
		case errors.Is(err, common.ErrNotFound):
			h.send(chatID, "❌ Пользователь не найден")
		default:
			h.sendError(chatID, err)
		}
		return
	}
	_ = h.sessions.Clear(ctx, adminID)

	h.send(chatID, fmt.Sprintf("✅ Готово. Новый баланс пользователя %d: %s",
		p.TargetID, common.FormatAmount(balance)))

	if p.Add {
		h.send(p.TargetID, fmt.Sprintf("💵 Вам начислено %s администратором.", common.FormatAmount(amount)))
	} else {
		h.send(p.TargetID, fmt.Sprintf("💵 С вашего счёта списано %s администратором.", common.FormatAmount(amount)))
	}
}

// StartBan начинает диалог блокировки или разблокировки.
func (h *Handler) StartBan(ctx context.Context, chatID, adminID int64, ban bool) {
	err := h.sessions.Set(ctx, adminID, sessions.StepAdminBanUser, sessions.AdminBanPayload{Ban: ban})
	if err != nil {
		h.sendError(chatID, err)
		return
	}
	if ban {
		h.send(chatID, "Введите ID пользователя и при необходимости причину:\nнапример: 123456789 мошенничество")
	} else {
		h.send(chatID, "Введите ID пользователя для разблокировки:")
	}
}

// HandleBanUser завершает диалог блокировки.
func (h *Handler) HandleBanUser(ctx context.Context, chatID, adminID int64, sess *sessions.Session, text string) {
	var p sessions.AdminBanPayload
	if err := sess.DecodePayload(&p); err != nil {
		h.sendError(chatID, err)
		return
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		h.send(chatID, "❌ Введите ID пользователя:")
		return
	}
	targetID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || targetID <= 0 {
		h.send(chatID, "❌ ID должен быть положительным числом. Попробуйте ещё раз:")
		return
	}

	if p.Ban {
		reason := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))
		err = h.users.Ban(ctx, targetID, reason, nil)
	} else {
		err = h.users.Unban(ctx, targetID)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			h.send(chatID, "❌ Пользователь не найден")
			return
		}
		h.sendError(chatID, err)
		return
	}
	_ = h.sessions.Clear(ctx, adminID)

	if p.Ban {
		h.send(chatID, fmt.Sprintf("🚫 Пользователь %d заблокирован", targetID))
	} else {
		h.send(chatID, fmt.Sprintf("✅ Пользователь %d разблокирован", targetID))
	}
}

// ShowSettings выводит текущие значения настроек с кнопками правки.
func (h *Handler) ShowSettings(ctx context.Context, chatID int64) {
	var b strings.Builder
	b.WriteString("⚙️ Настройки\n\n")
	for _, key := range settingKeys {
		value, err := h.settings.Get(ctx, key)
		if err != nil {
			value = "?"
		}
		fmt.Fprintf(&b, "%s = %s\n", key, value)
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ReplyMarkup = settingsKeyboard()
	h.sendMsg(msg)
}

// StartSetSetting начинает диалог изменения настройки.
func (h *Handler) StartSetSetting(ctx context.Context, chatID, adminID int64, key string) {
	if _, ok := settings.Defaults[key]; !ok {
		h.send(chatID, "❌ Неизвестная настройка")
		return
	}
	err := h.sessions.Set(ctx, adminID, sessions.StepAdminSettingValue, sessions.AdminSettingPayload{Key: key})
	if err != nil {
		h.sendError(chatID, err)
		return
	}

	current, err := h.settings.Get(ctx, key)
	if err != nil {
		current = "?"
	}
	h.send(chatID, fmt.Sprintf("Настройка %s\nТекущее значение: %s\nВведите новое значение:", key, current))
}

// HandleSettingValue завершает диалог изменения настройки.
func (h *Handler) HandleSettingValue(ctx context.Context, chatID, adminID int64, sess *sessions.Session, text string) {
	var p sessions.AdminSettingPayload
	if err := sess.DecodePayload(&p); err != nil {
		h.sendError(chatID, err)
		return
	}

	value := strings.TrimSpace(text)
	if value == "" {
		h.send(chatID, "❌ Значение не может быть пустым. Попробуйте ещё раз:")
		return
	}
	if err := h.settings.Set(ctx, p.Key, value, adminID, "изменено через админ-панель"); err != nil {
		h.sendError(chatID, err)
		return
	}
	_ = h.sessions.Clear(ctx, adminID)
	h.send(chatID, fmt.Sprintf("✅ %s = %s", p.Key, value))
}

// StartCode начинает диалог создания подарочного кода.
func (h *Handler) StartCode(ctx context.Context, chatID, adminID int64) {
	if err := h.sessions.Set(ctx, adminID, sessions.StepAdminCodeParams, struct{}{}); err != nil {
		h.sendError(chatID, err)
		return
	}
	h.send(chatID, "Введите параметры кода: сумма макс_активаций [срок_в_днях]\nнапример: 5000 10 7")
}

// HandleCodeParams завершает создание подарочного кода.
func (h *Handler) HandleCodeParams(ctx context.Context, chatID, adminID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) < 2 || len(fields) > 3 {
		h.send(chatID, "❌ Формат: сумма макс_активаций [срок_в_днях]. Попробуйте ещё раз:")
		return
	}

	amount, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || amount <= 0 {
		h.send(chatID, "❌ Сумма должна быть положительным числом. Попробуйте ещё раз:")
		return
	}
	maxUses, err := strconv.Atoi(fields[1])
	if err != nil || maxUses <= 0 {
		h.send(chatID, "❌ Число активаций должно быть положительным. Попробуйте ещё раз:")
		return
	}
	var expiresAt *time.Time
	if len(fields) == 3 {
		days, err := strconv.Atoi(fields[2])
		if err != nil || days <= 0 {
			h.send(chatID, "❌ Срок в днях должен быть положительным. Попробуйте ещё раз:")
			return
		}
		t := time.Now().AddDate(0, 0, days)
		expiresAt = &t
	}

	code, err := h.gifts.CreateCode(ctx, adminID, amount, maxUses, expiresAt)
	if err != nil {
		h.sendError(chatID, err)
		return
	}
	_ = h.sessions.Clear(ctx, adminID)

	reply := fmt.Sprintf("✅ Код создан: %s\nСумма: %s, активаций: %d",
		code.Code, common.FormatAmount(code.Amount), code.MaxUses)
	if code.ExpiresAt != nil {
		reply += fmt.Sprintf("\nДействует до %s", common.FormatDateTime(*code.ExpiresAt))
	}
	h.send(chatID, reply)
}

// ShowMethods выводит платёжные методы с тумблерами паузы.
func (h *Handler) ShowMethods(ctx context.Context, chatID int64) {
	methods, err := h.payments.AllMethods(ctx)
	if err != nil {
		h.sendError(chatID, err)
		return
	}

	var b strings.Builder
	b.WriteString("💳 Платёжные методы\n\n")
	for _, m := range methods {
		state := "работает"
		switch {
		case !m.Enabled:
			state = "отключён"
		case m.Paused:
			state = "на паузе"
		}
		fmt.Fprintf(&b, "%s (%s): %s, лимиты %d–%d\n", m.Title, m.Currency, state, m.MinAmount, m.MaxAmount)
	}
	b.WriteString("\nНажмите на метод, чтобы поставить или снять паузу.")

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ReplyMarkup = methodsKeyboard(methods)
	h.sendMsg(msg)
}

// ToggleMethod переключает паузу метода и перерисовывает список.
func (h *Handler) ToggleMethod(ctx context.Context, chatID int64, key string) {
	m, err := h.payments.Method(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			h.send(chatID, "❌ Метод не найден")
			return
		}
		h.sendError(chatID, err)
		return
	}
	if err := h.payments.Pause(ctx, key, !m.Paused); err != nil {
		h.sendError(chatID, err)
		return
	}
	h.ShowMethods(ctx, chatID)
}

// Logout завершает админ-сессию.
func (h *Handler) Logout(ctx context.Context, chatID, adminID int64) {
	if err := h.service.Logout(ctx, adminID); err != nil {
		log.WithError(err).Warn("Ошибка выхода из админ-панели")
	}
	h.send(chatID, "🚪 Вы вышли из админ-панели")
}

// settingKeys — порядок настроек на экране админ-панели.
var settingKeys = []string{
	settings.KeyMaintenanceMode,
	settings.KeyMaintenanceMessage,
	settings.KeyGiftFeePercent,
	settings.KeyWithdrawFeePercent,
	settings.KeyReferralCommissionRate,
	settings.KeyReferralBonus,
	settings.KeyReferralMinActive,
	settings.KeyReferralMinCharge,
	settings.KeyReferralActivationDeposit,
	settings.KeyDepositEnabled,
	settings.KeyWithdrawEnabled,
	settings.KeyExchangeRate,
}

// claimText форматирует заявку для администратора.
func claimText(t *ledger.Transaction) string {
	kind := "Пополнение"
	if t.Kind == ledger.KindWithdraw {
		kind = "Вывод"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s №%d\n", kind, t.ID)
	fmt.Fprintf(&b, "Пользователь: %d\n", t.UserID)
	fmt.Fprintf(&b, "Сумма: %s\n", common.FormatAmount(t.Amount))
	if t.PaymentMethod != "" {
		fmt.Fprintf(&b, "Метод: %s\n", t.PaymentMethod)
	}
	if t.ExternalReference != "" {
		fmt.Fprintf(&b, "Номер операции: %s\n", t.ExternalReference)
	}
	if t.Details != "" {
		fmt.Fprintf(&b, "Реквизиты: %s\n", t.Details)
	}
	fmt.Fprintf(&b, "Создана: %s", common.FormatDateTime(t.CreatedAt))
	return b.String()
}

// panelKeyboard — главное меню админ-панели.
func panelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📬 Заявки", "admin:pending"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", "admin:stats"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💵 Баланс +", "admin:adjust_add"),
			tgbotapi.NewInlineKeyboardButtonData("💵 Баланс −", "admin:adjust_sub"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚫 Бан", "admin:ban"),
			tgbotapi.NewInlineKeyboardButtonData("✅ Разбан", "admin:unban"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Настройки", "admin:settings"),
			tgbotapi.NewInlineKeyboardButtonData("💳 Методы", "admin:methods"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎟 Создать код", "admin:code"),
			tgbotapi.NewInlineKeyboardButtonData("🚪 Выйти", "admin:logout"),
		),
	)
}

// reviewKeyboard — кнопки решения по заявке.
func reviewKeyboard(txID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Одобрить", fmt.Sprintf("tx:approve:%d", txID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("tx:reject:%d", txID)),
		),
	)
}

// settingsKeyboard — кнопки правки настроек.
func settingsKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, key := range settingKeys {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(key, "admin:set:"+key),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "admin:panel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// methodsKeyboard — тумблеры паузы по методам.
func methodsKeyboard(methods []*payments.Method) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range methods {
		label := m.Title
		if m.Paused {
			label += " (пауза)"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "admin:method:"+m.Key),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "admin:panel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (h *Handler) send(chatID int64, text string) {
	h.sendMsg(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) sendMsg(msg tgbotapi.MessageConfig) {
	if _, err := h.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", msg.ChatID).Error("Ошибка отправки сообщения")
	}
}

func (h *Handler) sendError(chatID int64, err error) {
	log.WithError(err).Error("Ошибка админ-панели")
	h.send(chatID, "❌ Что-то пошло не так, попробуйте позже")
}
