// Package gifts — handlers.go ведёт диалоги перевода средств
// и активации подарочных кодов.
package gifts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/features/sessions"
)

// Handler ведёт подарочные диалоги.
type Handler struct {
	service  *Service
	sessions *sessions.Service
	api      *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик подарков.
func NewHandler(service *Service, sess *sessions.Service, api *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, sessions: sess, api: api}
}

// StartGift начинает диалог перевода: спрашивает ID получателя.
func (h *Handler) StartGift(ctx context.Context, chatID, userID int64) {
	if err := h.sessions.Set(ctx, userID, sessions.StepGiftReceiver, sessions.GiftPayload{}); err != nil {
		h.sendError(chatID, err)
		return
	}
	h.send(chatID, "Введите Telegram ID получателя.\nПолучатель может узнать свой ID, нажав «Баланс».")
}

// HandleGiftReceiver обрабатывает введённый ID получателя.
func (h *Handler) HandleGiftReceiver(ctx context.Context, chatID, userID int64, sess *sessions.Session, text string) {
	receiverID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || receiverID <= 0 {
		h.send(chatID, "❌ ID должен быть положительным числом. Попробуйте ещё раз:")
		return
	}
	if receiverID == userID {
		h.send(chatID, "❌ Нельзя перевести самому себе. Введите другой ID:")
		return
	}
	if _, err := h.service.accounts.Get(ctx, receiverID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			h.send(chatID, "❌ Получатель не найден. Он должен сначала запустить бота. Введите другой ID:")
			return
		}
		h.sendError(chatID, err)
		return
	}

	p := sessions.GiftPayload{ReceiverID: receiverID}
	if err := h.sessions.Set(ctx, userID, sessions.StepGiftAmount, p); err != nil {
		h.sendError(chatID, err)
		return
	}
	h.send(chatID, "Введите сумму перевода в лирах:")
}

// HandleGiftAmount завершает диалог перевода.
func (h *Handler) HandleGiftAmount(ctx context.Context, chatID, userID int64, sess *sessions.Session, text string) {
	var p sessions.GiftPayload
	if err := sess.DecodePayload(&p); err != nil {
		h.sendError(chatID, err)
		return
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || amount <= 0 {
		h.send(chatID, "❌ Сумма должна быть положительным числом. Попробуйте ещё раз:")
		return
	}

	t, err := h.service.Transfer(ctx, userID, p.ReceiverID, amount)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInsufficientBalance):
			h.send(chatID, "❌ Недостаточно средств на счёте")
		case errors.Is(err, common.ErrReceiverBanned):
			h.send(chatID, "❌ Получатель заблокирован")
		case errors.Is(err, common.ErrSelfTransfer):
			h.send(chatID, "❌ Нельзя перевести самому себе")
		case errors.Is(err, common.ErrNotFound):
			h.send(chatID, "❌ Получатель не найден")
		default:
			log.WithError(err).Error("Ошибка перевода-подарка")
			h.send(chatID, "❌ Не удалось выполнить перевод, попробуйте позже")
		}
		return
	}
	_ = h.sessions.Clear(ctx, userID)

	reply := fmt.Sprintf("✅ Перевод выполнен!\nПолучателю зачислено %s.", common.FormatAmount(t.Net))
	if t.Fee > 0 {
		reply += fmt.Sprintf("\nКомиссия: %s.", common.FormatAmount(t.Fee))
	}
	h.send(chatID, reply)

	// Получатель узнаёт о подарке сразу; его chat id в личке
	// совпадает с user id.
	h.send(t.ReceiverID, fmt.Sprintf(
		"🎁 Вам перевели %s от пользователя %d!", common.FormatAmount(t.Net), userID))
}

// StartRedeem начинает диалог активации подарочного кода.
func (h *Handler) StartRedeem(ctx context.Context, chatID, userID int64) {
	if err := h.sessions.Set(ctx, userID, sessions.StepGiftCode, struct{}{}); err != nil {
		h.sendError(chatID, err)
		return
	}
	h.send(chatID, "Введите подарочный код:")
}

// HandleRedeemCode завершает диалог активации кода.
func (h *Handler) HandleRedeemCode(ctx context.Context, chatID, userID int64, text string) {
	code := strings.ToUpper(strings.TrimSpace(text))
	if code == "" {
		h.send(chatID, "❌ Код не может быть пустым. Попробуйте ещё раз:")
		return
	}

	amount, err := h.service.Redeem(ctx, userID, code)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			h.send(chatID, "❌ Такого кода не существует")
		case errors.Is(err, common.ErrCodeAlreadyRedeemed):
			h.send(chatID, "❌ Вы уже активировали этот код")
		case errors.Is(err, common.ErrExpiredOrExhausted):
			h.send(chatID, "❌ Код истёк или исчерпан")
		default:
			log.WithError(err).Error("Ошибка активации кода")
			h.send(chatID, "❌ Не удалось активировать код, попробуйте позже")
		}
		return
	}
	_ = h.sessions.Clear(ctx, userID)

	h.send(chatID, fmt.Sprintf("✅ Код активирован! Вам начислено %s.", common.FormatAmount(amount)))
}

func (h *Handler) send(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

func (h *Handler) sendError(chatID int64, err error) {
	log.WithError(err).Error("Ошибка подарочного диалога")
	h.send(chatID, "❌ Что-то пошло не так, попробуйте позже")
}
