// Package users — handlers.go отвечает на запросы баланса и истории.
package users

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/features/ledger"
)

// Подписи видов транзакций для истории.
var kindTitles = map[string]string{
	ledger.KindDeposit:            "Пополнение",
	ledger.KindWithdraw:           "Вывод",
	ledger.KindGiftSent:           "Подарок (отправлен)",
	ledger.KindGiftReceived:       "Подарок (получен)",
	ledger.KindCodeBonus:          "Бонус по коду",
	ledger.KindReferralCommission: "Реферальная комиссия",
	ledger.KindAdminAdd:           "Начисление",
	ledger.KindAdminDeduct:        "Списание",
}

var statusTitles = map[string]string{
	ledger.StatusPending:  "⏳ на рассмотрении",
	ledger.StatusApproved: "✅",
	ledger.StatusRejected: "❌ отклонено",
}

type ledgerHistory interface {
	History(ctx context.Context, userID int64, limit int) ([]*ledger.Transaction, error)
}

// Handler обрабатывает запросы аккаунта.
type Handler struct {
	service *Service
	ledger  ledgerHistory
	api     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик аккаунтов.
func NewHandler(service *Service, l ledgerHistory, api *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, ledger: l, api: api}
}

// BalanceText возвращает текст экрана «Баланс».
func (h *Handler) BalanceText(ctx context.Context, userID int64) string {
	account, err := h.service.Get(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения баланса")
		return "❌ Не удалось получить баланс, попробуйте позже"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 Баланс: %s\n\n", common.FormatAmount(account.Balance))
	fmt.Fprintf(&sb, "Всего пополнено: %s\n", common.FormatAmount(account.TotalDeposited))
	fmt.Fprintf(&sb, "Всего выведено: %s\n\n", common.FormatAmount(account.TotalWithdrawn))
	fmt.Fprintf(&sb, "Ваш ID: %d", account.UserID)
	return sb.String()
}

// HistoryText возвращает текст экрана «История» (последние операции).
func (h *Handler) HistoryText(ctx context.Context, userID int64) string {
	history, err := h.ledger.History(ctx, userID, 10)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения истории")
		return "❌ Не удалось получить историю, попробуйте позже"
	}
	if len(history) == 0 {
		return "📋 Операций пока нет"
	}

	var sb strings.Builder
	sb.WriteString("📋 Последние операции:\n")
	for _, t := range history {
		title := kindTitles[t.Kind]
		if title == "" {
			title = t.Kind
		}
		fmt.Fprintf(&sb, "\n%s — %s %s\n%s",
			title, common.FormatAmount(t.Amount),
			statusTitles[t.Status], common.FormatDateTime(t.CreatedAt))
		sb.WriteString("\n")
	}
	return sb.String()
}
