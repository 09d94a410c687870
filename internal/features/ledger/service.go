// Package ledger — service.go добавляет к репозиторию валидацию,
// повтор транзиентных ошибок и инвалидацию кеша балансов.
package ledger

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
)

// Параметры повтора при ErrStoreUnavailable.
const (
	retryAttempts = 3
	retryBackoff  = 150 * time.Millisecond
)

type store interface {
	Credit(ctx context.Context, userID, amount int64, kind string) (int64, error)
	Debit(ctx context.Context, userID, amount int64, kind string) (int64, error)
	Record(ctx context.Context, t *Transaction) (int64, error)
	CreatePending(ctx context.Context, t *Transaction) (int64, error)
	Finalize(ctx context.Context, txID int64, approve bool, adminID int64) (*Transaction, error)
	GetByID(ctx context.Context, id int64) (*Transaction, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*Transaction, error)
	ListPending(ctx context.Context, limit int) ([]*Transaction, error)
	CountPending(ctx context.Context) (int64, error)
}

// Service — сервис журнала операций.
type Service struct {
	store store
	cache *cache.Cache
}

// NewService создаёт сервис леджера.
func NewService(store store, c *cache.Cache) *Service {
	return &Service{store: store, cache: c}
}

// withRetry повторяет op до retryAttempts раз при транзиентной ошибке
// хранилища. Бизнес-ошибки не повторяются.
func withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = op(ctx)
		if err == nil || !errors.Is(err, common.ErrStoreUnavailable) {
			return err
		}
		if attempt == retryAttempts {
			break
		}

		log.WithError(err).WithField("attempt", attempt).Warn("Хранилище не ответило, повторяем")
		select {
		case <-time.After(retryBackoff * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Credit начисляет средства и возвращает новый баланс.
func (s *Service) Credit(ctx context.Context, userID, amount int64, kind string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}

	var balance int64
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		balance, err = s.store.Credit(ctx, userID, amount, kind)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.cache.Invalidate(cache.AccountKey(userID))

	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amount,
		"kind":    kind,
		"balance": balance,
	}).Info("Начисление средств")
	return balance, nil
}

// Debit списывает средства и возвращает новый баланс.
func (s *Service) Debit(ctx context.Context, userID, amount int64, kind string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}

	var balance int64
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		balance, err = s.store.Debit(ctx, userID, amount, kind)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.cache.Invalidate(cache.AccountKey(userID))

	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amount,
		"kind":    kind,
		"balance": balance,
	}).Info("Списание средств")
	return balance, nil
}

// Record записывает уже исполненную операцию в журнал.
func (s *Service) Record(ctx context.Context, t *Transaction) (int64, error) {
	if t.Amount <= 0 {
		return 0, common.ErrInvalidAmount
	}

	var id int64
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.store.Record(ctx, t)
		return err
	})
	return id, err
}

// CreatePending создаёт заявку на одобрение администратором.
// Заявка на вывод замораживает сумму сразу.
func (s *Service) CreatePending(ctx context.Context, t *Transaction) (int64, error) {
	if t.Amount <= 0 {
		return 0, common.ErrInvalidAmount
	}

	var id int64
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.store.CreatePending(ctx, t)
		return err
	})
	if err != nil {
		return 0, err
	}

	if t.Kind == KindWithdraw {
		s.cache.Invalidate(cache.AccountKey(t.UserID))
	}

	log.WithFields(log.Fields{
		"tx_id":   id,
		"user_id": t.UserID,
		"kind":    t.Kind,
		"amount":  t.Amount,
		"method":  t.PaymentMethod,
	}).Info("Создана заявка")
	return id, nil
}

// Finalize одобряет или отклоняет pending-заявку.
// Идемпотентность обеспечивает репозиторий: повторный вызов
// возвращает ErrAlreadyFinalized, эффект не применяется дважды.
func (s *Service) Finalize(ctx context.Context, txID int64, approve bool, adminID int64) (*Transaction, error) {
	var t *Transaction
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.store.Finalize(ctx, txID, approve, adminID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.AccountKey(t.UserID))

	log.WithFields(log.Fields{
		"tx_id":    txID,
		"user_id":  t.UserID,
		"kind":     t.Kind,
		"amount":   t.Amount,
		"status":   t.Status,
		"admin_id": adminID,
	}).Info("Заявка обработана")
	return t, nil
}

// GetByID возвращает транзакцию по идентификатору.
func (s *Service) GetByID(ctx context.Context, id int64) (*Transaction, error) {
	return s.store.GetByID(ctx, id)
}

// History возвращает последние операции пользователя.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

// ListPending возвращает очередь заявок для админ-панели.
func (s *Service) ListPending(ctx context.Context, limit int) ([]*Transaction, error) {
	return s.store.ListPending(ctx, limit)
}

// CountPending возвращает размер очереди заявок.
func (s *Service) CountPending(ctx context.Context) (int64, error) {
	return s.store.CountPending(ctx)
}
