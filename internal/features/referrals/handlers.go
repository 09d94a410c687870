// Package referrals — handlers.go рисует экран «Рефералы».
package referrals

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/features/users"
)

type accountReader interface {
	Get(ctx context.Context, userID int64) (*users.Account, error)
}

// Handler обрабатывает экран реферальной программы.
type Handler struct {
	service     *Service
	accounts    accountReader
	botUsername string
}

// NewHandler создаёт обработчик рефералов.
// botUsername нужен для сборки deep-link приглашения.
func NewHandler(service *Service, accounts accountReader, botUsername string) *Handler {
	return &Handler{service: service, accounts: accounts, botUsername: botUsername}
}

// StatsText возвращает текст экрана «Рефералы» со ссылкой-приглашением.
func (h *Handler) StatsText(ctx context.Context, userID int64) string {
	account, err := h.accounts.Get(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения реферального кода")
		return "❌ Не удалось получить данные, попробуйте позже"
	}

	stats, err := h.service.Stats(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения реферальной статистики")
		return "❌ Не удалось получить данные, попробуйте позже"
	}

	var sb strings.Builder
	sb.WriteString("👥 Реферальная программа\n\n")
	fmt.Fprintf(&sb, "Ваша ссылка:\nhttps://t.me/%s?start=ref_%s\n\n", h.botUsername, account.ReferralCode)
	fmt.Fprintf(&sb, "Приглашено: %d\n", stats.Total)
	fmt.Fprintf(&sb, "Активных: %d\n", stats.Active)
	fmt.Fprintf(&sb, "Учитываются в выплате: %d\n", stats.Eligible)
	fmt.Fprintf(&sb, "Заработано всего: %s\n", common.FormatAmount(stats.TotalEarned))
	if stats.Pending > 0 {
		fmt.Fprintf(&sb, "\nК выплате в ближайшем цикле: %s", common.FormatAmount(stats.Pending))
	}
	return sb.String()
}

// HandleDeepLink разбирает payload команды /start и привязывает
// нового пользователя к рефереру. Формат: ref_REF123456XXXX.
func (h *Handler) HandleDeepLink(ctx context.Context, userID int64, payload string) {
	code, ok := strings.CutPrefix(payload, "ref_")
	if !ok || code == "" {
		return
	}
	h.service.Register(ctx, userID, code)
}
