// Package users — service.go содержит бизнес-логику аккаунтов:
// регистрация при первом контакте, кешированные чтения, блокировки.
package users

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
)

// store — операции хранилища, нужные сервису. Реализуется *Repository,
// в тестах подменяется фейком.
type store interface {
	GetOrCreate(ctx context.Context, userID int64, referralCode string) (*Account, error)
	Get(ctx context.Context, userID int64) (*Account, error)
	GetByReferralCode(ctx context.Context, code string) (*Account, error)
	SetReferrer(ctx context.Context, userID, referrerID int64) error
	Ban(ctx context.Context, userID int64, reason string, until *time.Time) error
	Unban(ctx context.Context, userID int64) error
	TouchActivity(ctx context.Context, userID int64) error
	TopByBalance(ctx context.Context, limit int) ([]*Account, error)
	TopByDeposited(ctx context.Context, limit int) ([]*Account, error)
	Count(ctx context.Context) (total, banned int64, err error)
}

// Service управляет аккаунтами.
type Service struct {
	store store
	cache *cache.Cache
	ttl   time.Duration // TTL снапшота аккаунта в кеше
}

// NewService создаёт сервис аккаунтов.
func NewService(store store, c *cache.Cache, accountTTL time.Duration) *Service {
	return &Service{store: store, cache: c, ttl: accountTTL}
}

// GetOrCreate возвращает аккаунт, регистрируя его при первом контакте.
// Новому аккаунту выдаётся уникальный реферальный код.
func (s *Service) GetOrCreate(ctx context.Context, userID int64) (*Account, error) {
	account, err := s.store.GetOrCreate(ctx, userID, common.GenerateReferralCode(userID))
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.AccountKey(userID), account, s.ttl)
	return account, nil
}

// Get возвращает аккаунт через read-through кеш.
// Промах кеша прозрачно падает в хранилище.
func (s *Service) Get(ctx context.Context, userID int64) (*Account, error) {
	v, err := s.cache.GetOrLoad(ctx, cache.AccountKey(userID), s.ttl,
		func(ctx context.Context) (interface{}, error) {
			return s.store.Get(ctx, userID)
		})
	if err != nil {
		return nil, err
	}
	return v.(*Account), nil
}

// GetByReferralCode ищет аккаунт по реферальному коду (deep-link /start).
func (s *Service) GetByReferralCode(ctx context.Context, code string) (*Account, error) {
	return s.store.GetByReferralCode(ctx, code)
}

// SetReferrer записывает реферера. Первый победил: если пользователь
// уже кем-то приведён, вызов молча ничего не меняет.
func (s *Service) SetReferrer(ctx context.Context, userID, referrerID int64) error {
	if err := s.store.SetReferrer(ctx, userID, referrerID); err != nil {
		return err
	}
	s.cache.Invalidate(cache.AccountKey(userID))
	return nil
}

// Balance возвращает текущий баланс.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	account, err := s.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// IsBanned проверяет, заблокирован ли пользователь прямо сейчас.
func (s *Service) IsBanned(ctx context.Context, userID int64) (bool, error) {
	account, err := s.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.Banned(time.Now()), nil
}

// Ban блокирует пользователя и сбрасывает его снапшот в кеше.
func (s *Service) Ban(ctx context.Context, userID int64, reason string, until *time.Time) error {
	if err := s.store.Ban(ctx, userID, reason, until); err != nil {
		return err
	}
	s.cache.Invalidate(cache.AccountKey(userID))

	log.WithFields(log.Fields{
		"user_id": userID,
		"reason":  reason,
	}).Info("Пользователь заблокирован")
	return nil
}

// Unban снимает блокировку.
func (s *Service) Unban(ctx context.Context, userID int64) error {
	if err := s.store.Unban(ctx, userID); err != nil {
		return err
	}
	s.cache.Invalidate(cache.AccountKey(userID))

	log.WithField("user_id", userID).Info("Пользователь разблокирован")
	return nil
}

// TouchActivity отмечает активность пользователя.
// Ошибка здесь не критична — логируем и едем дальше.
func (s *Service) TouchActivity(ctx context.Context, userID int64) {
	if err := s.store.TouchActivity(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("TouchActivity failed")
	}
}

// TopByBalance — для админ-панели.
func (s *Service) TopByBalance(ctx context.Context, limit int) ([]*Account, error) {
	return s.store.TopByBalance(ctx, limit)
}

// TopByDeposited — для админ-панели.
func (s *Service) TopByDeposited(ctx context.Context, limit int) ([]*Account, error) {
	return s.store.TopByDeposited(ctx, limit)
}

// Stats возвращает счётчики аккаунтов.
func (s *Service) Stats(ctx context.Context) (total, banned int64, err error) {
	return s.store.Count(ctx)
}
