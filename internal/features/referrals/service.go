// Package referrals — service.go содержит бизнес-логику программы:
// регистрация по deep-link, учёт депозитов, расчёт и выплата комиссии.
package referrals

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/features/settings"
	"serotonyl.ru/cashier-bot/internal/features/users"
)

type store interface {
	Create(ctx context.Context, referrerID, referredID int64) error
	RecordCharge(ctx context.Context, referredID, amount, activationThreshold int64) error
	StatsFor(ctx context.Context, referrerID, minCharge int64) (*Stats, error)
	ListPayable(ctx context.Context, minCharge, minActive int64) ([]*Payout, error)
	SettlePayout(ctx context.Context, referrerID, commission, minCharge int64) error
}

type accountService interface {
	GetByReferralCode(ctx context.Context, code string) (*users.Account, error)
	SetReferrer(ctx context.Context, userID, referrerID int64) error
}

type settingsService interface {
	GetInt(ctx context.Context, key string) (int64, error)
}

// Service управляет реферальной программой.
type Service struct {
	store    store
	accounts accountService
	settings settingsService
	cache    *cache.Cache
}

// NewService создаёт сервис рефералов.
func NewService(store store, a accountService, s settingsService, c *cache.Cache) *Service {
	return &Service{store: store, accounts: a, settings: s, cache: c}
}

// Register привязывает нового пользователя к рефереру по коду
// из deep-link (/start ref_REF...). Неизвестный код и попытка
// привести себя самого молча игнорируются: регистрация пользователя
// важнее реферальной привязки.
func (s *Service) Register(ctx context.Context, newUserID int64, code string) {
	referrer, err := s.accounts.GetByReferralCode(ctx, code)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			log.WithError(err).Warn("Ошибка поиска реферера по коду")
		}
		return
	}
	if referrer.UserID == newUserID {
		return
	}

	if err := s.accounts.SetReferrer(ctx, newUserID, referrer.UserID); err != nil {
		log.WithError(err).Warn("Не удалось записать реферера в аккаунт")
		return
	}
	if err := s.store.Create(ctx, referrer.UserID, newUserID); err != nil {
		log.WithError(err).Warn("Не удалось создать реферальную связку")
		return
	}

	log.WithFields(log.Fields{
		"referrer_id": referrer.UserID,
		"referred_id": newUserID,
	}).Info("Реферал зарегистрирован")
}

// RecordCharge учитывает одобренный депозит приглашённого.
// Вызывается после каждого одобрения заявки на пополнение.
func (s *Service) RecordCharge(ctx context.Context, userID, amount int64) error {
	threshold, err := s.settings.GetInt(ctx, settings.KeyReferralActivationDeposit)
	if err != nil {
		return err
	}
	return s.store.RecordCharge(ctx, userID, amount, threshold)
}

// Stats возвращает сводку реферера с рассчитанной комиссией к выплате.
// Комиссия показывается только когда учитываемых рефералов достаточно
// для выплаты.
func (s *Service) Stats(ctx context.Context, referrerID int64) (*Stats, error) {
	minCharge, err := s.settings.GetInt(ctx, settings.KeyReferralMinCharge)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.StatsFor(ctx, referrerID, minCharge)
	if err != nil {
		return nil, err
	}

	minActive, err := s.settings.GetInt(ctx, settings.KeyReferralMinActive)
	if err != nil {
		return nil, err
	}
	if stats.Eligible >= minActive {
		stats.Pending, err = s.commission(ctx, stats.ChargedSum, stats.Eligible)
		if err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// commission = депозиты * ставка% + бонус за каждого учитываемого.
func (s *Service) commission(ctx context.Context, chargedSum, eligible int64) (int64, error) {
	rate, err := s.settings.GetInt(ctx, settings.KeyReferralCommissionRate)
	if err != nil {
		return 0, err
	}
	bonus, err := s.settings.GetInt(ctx, settings.KeyReferralBonus)
	if err != nil {
		return 0, err
	}
	return chargedSum*rate/100 + eligible*bonus, nil
}

// Distribute выплачивает комиссии всем готовым реферерам.
// Запускается планировщиком раз в сутки. Идемпотентна в рамках цикла:
// выплата обнуляет накопитель, повторный запуск никого не находит.
func (s *Service) Distribute(ctx context.Context) (int, error) {
	minCharge, err := s.settings.GetInt(ctx, settings.KeyReferralMinCharge)
	if err != nil {
		return 0, err
	}
	minActive, err := s.settings.GetInt(ctx, settings.KeyReferralMinActive)
	if err != nil {
		return 0, err
	}

	payouts, err := s.store.ListPayable(ctx, minCharge, minActive)
	if err != nil {
		return 0, err
	}

	paid := 0
	for _, p := range payouts {
		commission, err := s.commission(ctx, p.ChargedSum, p.EligibleCount)
		if err != nil {
			return paid, err
		}
		if commission <= 0 {
			continue
		}

		if err := s.store.SettlePayout(ctx, p.ReferrerID, commission, minCharge); err != nil {
			// один сбой не валит весь цикл
			log.WithError(err).WithField("referrer_id", p.ReferrerID).
				Error("Ошибка выплаты реферальной комиссии")
			continue
		}
		s.cache.Invalidate(cache.AccountKey(p.ReferrerID))
		paid++

		log.WithFields(log.Fields{
			"referrer_id": p.ReferrerID,
			"commission":  commission,
			"referrals":   p.EligibleCount,
		}).Info("Выплачена реферальная комиссия")
	}
	return paid, nil
}
