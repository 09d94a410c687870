// Package settings — service.go добавляет кеш и типизированные геттеры.
package settings

import (
	"context"
	"errors"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
)

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, adminID int64, reason string) error
	EnsureDefaults(ctx context.Context, defaults map[string]string) error
	Audit(ctx context.Context, key string, limit int) ([]*AuditEntry, error)
}

// Service — сервис настроек.
type Service struct {
	store store
	cache *cache.Cache
	ttl   time.Duration
}

// NewService создаёт сервис настроек.
func NewService(store store, c *cache.Cache, settingTTL time.Duration) *Service {
	return &Service{store: store, cache: c, ttl: settingTTL}
}

// EnsureDefaults сеет недостающие настройки. Вызывается при старте.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	return s.store.EnsureDefaults(ctx, Defaults)
}

// Get возвращает строковое значение настройки (через кеш).
// Отсутствующий ключ падает на значение из Defaults.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	v, err := s.cache.GetOrLoad(ctx, cache.SettingKey(key), s.ttl,
		func(ctx context.Context) (interface{}, error) {
			value, err := s.store.Get(ctx, key)
			if errors.Is(err, common.ErrNotFound) {
				if def, ok := Defaults[key]; ok {
					return def, nil
				}
			}
			return value, err
		})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetInt возвращает числовое значение настройки.
func (s *Service) GetInt(ctx context.Context, key string) (int64, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": value}).
			Warn("Настройка содержит нечисловое значение")
		return 0, common.ErrInvalidAmount
	}
	return n, nil
}

// GetBool возвращает булево значение настройки.
// Всё, кроме "true"/"1"/"yes", считается false.
func (s *Service) GetBool(ctx context.Context, key string) (bool, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	switch value {
	case "true", "1", "yes":
		return true, nil
	}
	return false, nil
}

// Set меняет настройку с записью в журнал и сбрасывает кеш ключа.
func (s *Service) Set(ctx context.Context, key, value string, adminID int64, reason string) error {
	if err := s.store.Set(ctx, key, value, adminID, reason); err != nil {
		return err
	}
	s.cache.Invalidate(cache.SettingKey(key))

	log.WithFields(log.Fields{
		"key":      key,
		"value":    value,
		"admin_id": adminID,
	}).Info("Настройка изменена")
	return nil
}

// Audit возвращает историю изменений настройки.
func (s *Service) Audit(ctx context.Context, key string, limit int) ([]*AuditEntry, error) {
	return s.store.Audit(ctx, key, limit)
}

// MaintenanceMode возвращает флаг режима обслуживания и его сообщение.
func (s *Service) MaintenanceMode(ctx context.Context) (bool, string) {
	on, err := s.GetBool(ctx, KeyMaintenanceMode)
	if err != nil {
		// при недоступном хранилище бот продолжает работать
		log.WithError(err).Warn("Не удалось прочитать maintenance_mode")
		return false, ""
	}
	if !on {
		return false, ""
	}
	msg, err := s.Get(ctx, KeyMaintenanceMessage)
	if err != nil {
		msg = Defaults[KeyMaintenanceMessage]
	}
	return true, msg
}
