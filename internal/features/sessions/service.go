// Package sessions — service.go добавляет TTL, кеш и типизированную
// упаковку payload поверх репозитория.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
)

// Кешируем сессию недолго: она меняется на каждом шаге диалога.
const cacheTTL = 30 * time.Second

type store interface {
	Set(ctx context.Context, userID int64, step string, payload json.RawMessage, expiresAt time.Time) error
	Get(ctx context.Context, userID int64) (*Session, error)
	Clear(ctx context.Context, userID int64) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// Service управляет сессиями диалогов.
type Service struct {
	store store
	cache *cache.Cache
	ttl   time.Duration // срок жизни сессии
}

// NewService создаёт сервис сессий.
func NewService(store store, c *cache.Cache, sessionTTL time.Duration) *Service {
	return &Service{store: store, cache: c, ttl: sessionTTL}
}

// Set переводит диалог пользователя на шаг step с данными payload.
// Прежняя сессия перезаписывается, срок жизни начинается заново.
func (s *Service) Set(ctx context.Context, userID int64, step string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("ошибка сериализации payload: %w", err)
		}
		raw = b
	}

	if err := s.store.Set(ctx, userID, step, raw, time.Now().Add(s.ttl)); err != nil {
		return err
	}
	s.cache.Invalidate(cache.SessionKey(userID))
	return nil
}

// Get возвращает активную сессию пользователя или ErrNotFound.
func (s *Service) Get(ctx context.Context, userID int64) (*Session, error) {
	v, err := s.cache.GetOrLoad(ctx, cache.SessionKey(userID), cacheTTL,
		func(ctx context.Context) (interface{}, error) {
			return s.store.Get(ctx, userID)
		})
	if err != nil {
		return nil, err
	}

	sess := v.(*Session)
	if sess.Expired(time.Now()) {
		// протухла, пока лежала в кеше
		s.cache.Invalidate(cache.SessionKey(userID))
		return nil, common.ErrNotFound
	}
	return sess, nil
}

// Step возвращает тег текущего шага или пустую строку, если диалога нет.
func (s *Service) Step(ctx context.Context, userID int64) (string, error) {
	sess, err := s.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return sess.Step, nil
}

// Clear завершает диалог пользователя.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return err
	}
	s.cache.Invalidate(cache.SessionKey(userID))
	return nil
}

// CleanupExpired удаляет протухшие сессии. Вызывается планировщиком.
func (s *Service) CleanupExpired(ctx context.Context) error {
	n, err := s.store.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.WithField("count", n).Info("Удалены протухшие сессии")
	}
	return nil
}
