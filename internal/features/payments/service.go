// Package payments — service.go содержит бизнес-логику пополнений
// и выводов: проверка лимитов, конвертация валют, создание заявок.
package payments

import (
	"context"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/features/ledger"
	"serotonyl.ru/cashier-bot/internal/features/settings"
)

type store interface {
	Get(ctx context.Context, key string) (*Method, error)
	List(ctx context.Context) ([]*Method, error)
	SetPaused(ctx context.Context, key string, paused bool) error
	SetEnabled(ctx context.Context, key string, enabled bool) error
	UpdateLimits(ctx context.Context, key string, min, max int64) error
	EnsureDefaults(ctx context.Context) error
}

type ledgerService interface {
	CreatePending(ctx context.Context, t *ledger.Transaction) (int64, error)
}

type settingsService interface {
	GetInt(ctx context.Context, key string) (int64, error)
	GetBool(ctx context.Context, key string) (bool, error)
}

// Service управляет платёжными методами и заявками.
type Service struct {
	store    store
	ledger   ledgerService
	settings settingsService
}

// NewService создаёт сервис платежей.
func NewService(store store, l ledgerService, s settingsService) *Service {
	return &Service{store: store, ledger: l, settings: s}
}

// EnsureDefaults сеет стандартные методы. Вызывается при старте.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	return s.store.EnsureDefaults(ctx)
}

// AvailableMethods возвращает методы, доступные пользователю.
func (s *Service) AvailableMethods(ctx context.Context) ([]*Method, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Method
	for _, m := range all {
		if m.Available() {
			out = append(out, m)
		}
	}
	return out, nil
}

// AllMethods возвращает все методы для админ-панели.
func (s *Service) AllMethods(ctx context.Context) ([]*Method, error) {
	return s.store.List(ctx)
}

// Method возвращает метод по ключу.
func (s *Service) Method(ctx context.Context, key string) (*Method, error) {
	return s.store.Get(ctx, key)
}

// checkMethod возвращает метод, убедившись, что он доступен
// и сумма в его пределах. Сумма в валюте метода.
func (s *Service) checkMethod(ctx context.Context, key string, amount int64) (*Method, error) {
	m, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !m.Available() {
		return nil, common.ErrMethodUnavailable
	}
	if amount < m.MinAmount || amount > m.MaxAmount {
		return nil, common.ErrInvalidAmount
	}
	return m, nil
}

// ToLira конвертирует сумму метода в лиры. Для лировых методов
// возвращает сумму как есть, для USD умножает на курс.
func (s *Service) ToLira(ctx context.Context, m *Method, amount int64) (int64, error) {
	if m.Currency != CurrencyUSD {
		return amount, nil
	}
	rate, err := s.settings.GetInt(ctx, settings.KeyExchangeRate)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// CreateDeposit создаёт заявку на пополнение.
// amount — в валюте метода; возвращается id заявки и сумма в лирах,
// которая будет начислена после одобрения.
func (s *Service) CreateDeposit(ctx context.Context, userID int64, methodKey string, amount int64, externalRef string) (int64, int64, error) {
	enabled, err := s.settings.GetBool(ctx, settings.KeyDepositEnabled)
	if err != nil {
		return 0, 0, err
	}
	if !enabled {
		return 0, 0, common.ErrMethodUnavailable
	}

	m, err := s.checkMethod(ctx, methodKey, amount)
	if err != nil {
		return 0, 0, err
	}
	lira, err := s.ToLira(ctx, m, amount)
	if err != nil {
		return 0, 0, err
	}

	id, err := s.ledger.CreatePending(ctx, &ledger.Transaction{
		UserID:            userID,
		Kind:              ledger.KindDeposit,
		Amount:            lira,
		PaymentMethod:     methodKey,
		ExternalReference: externalRef,
	})
	if err != nil {
		return 0, 0, err
	}
	return id, lira, nil
}

// WithdrawFee возвращает комиссию вывода для суммы в лирах.
func (s *Service) WithdrawFee(ctx context.Context, amount int64) (int64, error) {
	percent, err := s.settings.GetInt(ctx, settings.KeyWithdrawFeePercent)
	if err != nil {
		return 0, err
	}
	return amount * percent / 100, nil
}

// CreateWithdraw создаёт заявку на вывод. amount — в валюте метода.
// Сумма в лирах замораживается сразу; к выплате идёт сумма за вычетом
// комиссии. Возвращается id заявки, сумма в лирах и комиссия.
func (s *Service) CreateWithdraw(ctx context.Context, userID int64, methodKey string, amount int64, details string) (int64, int64, int64, error) {
	enabled, err := s.settings.GetBool(ctx, settings.KeyWithdrawEnabled)
	if err != nil {
		return 0, 0, 0, err
	}
	if !enabled {
		return 0, 0, 0, common.ErrMethodUnavailable
	}

	m, err := s.checkMethod(ctx, methodKey, amount)
	if err != nil {
		return 0, 0, 0, err
	}
	lira, err := s.ToLira(ctx, m, amount)
	if err != nil {
		return 0, 0, 0, err
	}
	fee, err := s.WithdrawFee(ctx, lira)
	if err != nil {
		return 0, 0, 0, err
	}

	id, err := s.ledger.CreatePending(ctx, &ledger.Transaction{
		UserID:        userID,
		Kind:          ledger.KindWithdraw,
		Amount:        lira,
		PaymentMethod: methodKey,
		Details:       details,
	})
	if err != nil {
		return 0, 0, 0, err
	}
	return id, lira, fee, nil
}

// Pause приостанавливает или возобновляет метод (админ-панель).
func (s *Service) Pause(ctx context.Context, key string, paused bool) error {
	if err := s.store.SetPaused(ctx, key, paused); err != nil {
		return err
	}
	log.WithFields(log.Fields{"method": key, "paused": paused}).Info("Статус метода изменён")
	return nil
}

// SetEnabled показывает или скрывает метод (админ-панель).
func (s *Service) SetEnabled(ctx context.Context, key string, enabled bool) error {
	return s.store.SetEnabled(ctx, key, enabled)
}

// UpdateLimits меняет лимиты метода (админ-панель).
func (s *Service) UpdateLimits(ctx context.Context, key string, min, max int64) error {
	if min <= 0 || max < min {
		return common.ErrInvalidAmount
	}
	return s.store.UpdateLimits(ctx, key, min, max)
}
