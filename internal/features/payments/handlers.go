// Package payments — handlers.go ведёт диалоги пополнения и вывода.
// Шаги диалога живут в сессиях; каждая заявка в конце уходит
// администраторам на одобрение.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/features/ledger"
	"serotonyl.ru/cashier-bot/internal/features/sessions"
)

// ClaimNotifier уведомляет администраторов о новой заявке.
// Реализуется админ-панелью; для леджера это сторонний наблюдатель.
type ClaimNotifier interface {
	NotifyNewClaim(ctx context.Context, t *ledger.Transaction)
}

type ledgerReader interface {
	GetByID(ctx context.Context, id int64) (*ledger.Transaction, error)
}

// Handler ведёт платёжные диалоги.
type Handler struct {
	service  *Service
	sessions *sessions.Service
	ledger   ledgerReader
	notifier ClaimNotifier
	api      *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик платежей.
func NewHandler(service *Service, sess *sessions.Service, l ledgerReader, n ClaimNotifier, api *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, sessions: sess, ledger: l, notifier: n, api: api}
}

// amountUnit возвращает подпись валюты метода для подсказок.
func amountUnit(m *Method) string {
	if m.Currency == CurrencyUSD {
		return "USD"
	}
	return "лир"
}

// StartDeposit начинает диалог пополнения выбранным методом.
func (h *Handler) StartDeposit(ctx context.Context, chatID, userID int64, methodKey string) {
	m, err := h.service.Method(ctx, methodKey)
	if err != nil || !m.Available() {
		h.send(chatID, "❌ Метод оплаты временно недоступен")
		return
	}

	err = h.sessions.Set(ctx, userID, sessions.StepDepositAmount,
		sessions.DepositPayload{Method: methodKey})
	if err != nil {
		h.sendError(chatID, err)
		return
	}

	h.send(chatID, fmt.Sprintf("Введите сумму пополнения (%s — от %d до %d):",
		amountUnit(m), m.MinAmount, m.MaxAmount))
}

// HandleDepositAmount обрабатывает введённую сумму пополнения.
func (h *Handler) HandleDepositAmount(ctx context.Context, chatID, userID int64, sess *sessions.Session, text string) {
	var p sessions.DepositPayload
	if err := sess.DecodePayload(&p); err != nil {
		h.sendError(chatID, err)
		return
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || amount <= 0 {
		h.send(chatID, "❌ Сумма должна быть положительным числом. Попробуйте ещё раз:")
		return
	}

	m, err := h.service.Method(ctx, p.Method)
	if err != nil {
		h.sendError(chatID, err)
		return
	}
	if amount < m.MinAmount || amount > m.MaxAmount {
		h.send(chatID, fmt.Sprintf("❌ Сумма вне лимитов метода (от %d до %d %s). Попробуйте ещё раз:",
			m.MinAmount, m.MaxAmount, amountUnit(m)))
		return
	}

	p.Amount = amount
	if err := h.sessions.Set(ctx, userID, sessions.StepDepositReference, p); err != nil {
		h.sendError(chatID, err)
		return
	}
	h.send(chatID, "Отправьте номер операции (номер платежа у оператора):")
}

// HandleDepositReference завершает диалог пополнения: создаёт заявку
// и уведомляет администраторов.
func (h *Handler) HandleDepositReference(ctx context.Context, chatID, userID int64, sess *sessions.Session, text string) {
	var p sessions.DepositPayload
	if err := sess.DecodePayload(&p); err != nil {
		h.sendError(chatID, err)
		return
	}

	ref := strings.TrimSpace(text)
	if ref == "" {
		h.send(chatID, "❌ Номер операции не может быть пустым. Попробуйте ещё раз:")
		return
	}

	id, lira, err := h.service.CreateDeposit(ctx, userID, p.Method, p.Amount, ref)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrDuplicateReference):
			h.send(chatID, "❌ Этот номер операции уже использован")
		case errors.Is(err, common.ErrMethodUnavailable):
			h.send(chatID, "❌ Пополнение сейчас недоступно")
		case errors.Is(err, common.ErrInvalidAmount):
			h.send(chatID, "❌ Сумма вне допустимых пределов")
		default:
			log.WithError(err).Error("Ошибка создания заявки на пополнение")
			h.send(chatID, "❌ Не удалось создать заявку, попробуйте позже")
		}
		return
	}
	_ = h.sessions.Clear(ctx, userID)

	h.send(chatID, fmt.Sprintf(
		"✅ Заявка №%d создана!\nПосле проверки вам будет начислено %s.",
		id, common.FormatAmount(lira)))

	if t, err := h.ledger.GetByID(ctx, id); err == nil {
		h.notifier.NotifyNewClaim(ctx, t)
	}
}

// StartWithdraw начинает диалог вывода выбранным методом.
func (h *Handler) StartWithdraw(ctx context.Context, chatID, userID int64, methodKey string) {
	m, err := h.service.Method(ctx, methodKey)
	if err != nil || !m.Available() {
		h.send(chatID, "❌ Метод вывода временно недоступен")
		return
	}

	err = h.sessions.Set(ctx, userID, sessions.StepWithdrawAmount,
		sessions.WithdrawPayload{Method: methodKey})
	if err != nil {
		h.sendError(chatID, err)
		return
	}

	h.send(chatID, fmt.Sprintf("Введите сумму вывода (%s — от %d до %d):",
		amountUnit(m), m.MinAmount, m.MaxAmount))
}

// HandleWithdrawAmount обрабатывает введённую сумму вывода.
func (h *Handler) HandleWithdrawAmount(ctx context.Context, chatID, userID int64, sess *sessions.Session, text string) {
	var p sessions.WithdrawPayload
	if err := sess.DecodePayload(&p); err != nil {
		h.sendError(chatID, err)
		return
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || amount <= 0 {
		h.send(chatID, "❌ Сумма должна быть положительным числом. Попробуйте ещё раз:")
		return
	}

	m, err := h.service.Method(ctx, p.Method)
	if err != nil {
		h.sendError(chatID, err)
		return
	}
	if amount < m.MinAmount || amount > m.MaxAmount {
		h.send(chatID, fmt.Sprintf("❌ Сумма вне лимитов метода (от %d до %d %s). Попробуйте ещё раз:",
			m.MinAmount, m.MaxAmount, amountUnit(m)))
		return
	}

	p.Amount = amount
	if err := h.sessions.Set(ctx, userID, sessions.StepWithdrawDetails, p); err != nil {
		h.sendError(chatID, err)
		return
	}
	h.send(chatID, "Отправьте реквизиты для перевода (номер счёта или телефона):")
}

// HandleWithdrawDetails завершает диалог вывода: замораживает сумму
// и уведомляет администраторов.
func (h *Handler) HandleWithdrawDetails(ctx context.Context, chatID, userID int64, sess *sessions.Session, text string) {
	var p sessions.WithdrawPayload
	if err := sess.DecodePayload(&p); err != nil {
		h.sendError(chatID, err)
		return
	}

	details := strings.TrimSpace(text)
	if details == "" {
		h.send(chatID, "❌ Реквизиты не могут быть пустыми. Попробуйте ещё раз:")
		return
	}

	id, lira, fee, err := h.service.CreateWithdraw(ctx, userID, p.Method, p.Amount, details)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInsufficientBalance):
			h.send(chatID, "❌ Недостаточно средств на счёте")
		case errors.Is(err, common.ErrMethodUnavailable):
			h.send(chatID, "❌ Вывод сейчас недоступен")
		case errors.Is(err, common.ErrInvalidAmount):
			h.send(chatID, "❌ Сумма вне допустимых пределов")
		default:
			log.WithError(err).Error("Ошибка создания заявки на вывод")
			h.send(chatID, "❌ Не удалось создать заявку, попробуйте позже")
		}
		return
	}
	_ = h.sessions.Clear(ctx, userID)

	reply := fmt.Sprintf("✅ Заявка №%d создана!\nСумма %s заморожена до обработки.",
		id, common.FormatAmount(lira))
	if fee > 0 {
		reply += fmt.Sprintf("\nКомиссия вывода: %s.", common.FormatAmount(fee))
	}
	h.send(chatID, reply)

	if t, err := h.ledger.GetByID(ctx, id); err == nil {
		h.notifier.NotifyNewClaim(ctx, t)
	}
}

func (h *Handler) send(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

func (h *Handler) sendError(chatID int64, err error) {
	log.WithError(err).Error("Ошибка платёжного диалога")
	h.send(chatID, "❌ Что-то пошло не так, попробуйте позже")
}
