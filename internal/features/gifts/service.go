// Package gifts — service.go содержит бизнес-логику переводов
// и подарочных кодов.
package gifts

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/features/ledger"
	"serotonyl.ru/cashier-bot/internal/features/settings"
	"serotonyl.ru/cashier-bot/internal/features/users"
)

// Сколько раз перегенерируем код при коллизии.
const codeRetries = 5

type store interface {
	CreateCode(ctx context.Context, c *GiftCode) error
	GetCode(ctx context.Context, code string) (*GiftCode, error)
	Redeem(ctx context.Context, code string, userID int64) (*GiftCode, error)
	RecordTransfer(ctx context.Context, t *Transfer) error
	CleanupExpired(ctx context.Context) (int64, error)
}

type ledgerService interface {
	Credit(ctx context.Context, userID, amount int64, kind string) (int64, error)
	Debit(ctx context.Context, userID, amount int64, kind string) (int64, error)
	Record(ctx context.Context, t *ledger.Transaction) (int64, error)
}

type accountService interface {
	Get(ctx context.Context, userID int64) (*users.Account, error)
}

type settingsService interface {
	GetInt(ctx context.Context, key string) (int64, error)
}

// Service управляет подарками.
type Service struct {
	store    store
	ledger   ledgerService
	accounts accountService
	settings settingsService
	cache    *cache.Cache
}

// NewService создаёт сервис подарков.
func NewService(store store, l ledgerService, a accountService, s settingsService, c *cache.Cache) *Service {
	return &Service{store: store, ledger: l, accounts: a, settings: s, cache: c}
}

// Transfer переводит amount от отправителя получателю за вычетом
// комиссии gift_fee_percent. Возвращает запись аудита перевода.
//
// Списание и зачисление выполняются раздельно; при падении второй
// ноги отправителю немедленно возвращается вся сумма.
func (s *Service) Transfer(ctx context.Context, senderID, receiverID, amount int64) (*Transfer, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if senderID == receiverID {
		return nil, common.ErrSelfTransfer
	}

	receiver, err := s.accounts.Get(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver.Banned(time.Now()) {
		return nil, common.ErrReceiverBanned
	}

	feePercent, err := s.settings.GetInt(ctx, settings.KeyGiftFeePercent)
	if err != nil {
		return nil, err
	}
	fee := amount * feePercent / 100
	net := amount - fee
	if net <= 0 {
		return nil, common.ErrInvalidAmount
	}

	if _, err := s.ledger.Debit(ctx, senderID, amount, ledger.KindGiftSent); err != nil {
		return nil, err
	}

	if _, err := s.ledger.Credit(ctx, receiverID, net, ledger.KindGiftReceived); err != nil {
		// Компенсация: возвращаем отправителю всю сумму
		if _, refundErr := s.ledger.Credit(ctx, senderID, amount, ""); refundErr != nil {
			log.WithError(refundErr).WithFields(log.Fields{
				"sender_id": senderID,
				"amount":    amount,
			}).Error("НЕ УДАЛОСЬ вернуть средства после сбоя перевода")
		}
		return nil, err
	}

	transfer := &Transfer{
		SenderID: senderID, ReceiverID: receiverID,
		Amount: amount, Fee: fee, Net: net,
	}
	if err := s.store.RecordTransfer(ctx, transfer); err != nil {
		log.WithError(err).Warn("Не удалось записать аудит перевода")
	}
	s.recordLeg(ctx, senderID, ledger.KindGiftSent, amount)
	s.recordLeg(ctx, receiverID, ledger.KindGiftReceived, net)

	log.WithFields(log.Fields{
		"sender_id":   senderID,
		"receiver_id": receiverID,
		"amount":      amount,
		"fee":         fee,
	}).Info("Подарок переведён")
	return transfer, nil
}

// recordLeg пишет строку журнала для одной ноги перевода.
// Деньги уже двинулись; провал журнала не отменяет перевод.
func (s *Service) recordLeg(ctx context.Context, userID int64, kind string, amount int64) {
	_, err := s.ledger.Record(ctx, &ledger.Transaction{
		UserID: userID, Kind: kind, Amount: amount,
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"kind":    kind,
		}).Warn("Не удалось записать транзакцию перевода")
	}
}

// CreateCode создаёт подарочный код. При коллизии сгенерированного
// кода пробует ещё раз с новым кодом.
func (s *Service) CreateCode(ctx context.Context, adminID, amount int64, maxUses int, expiresAt *time.Time) (*GiftCode, error) {
	if amount <= 0 || maxUses <= 0 {
		return nil, common.ErrInvalidAmount
	}

	var lastErr error
	for i := 0; i < codeRetries; i++ {
		c := &GiftCode{
			Code:      common.GenerateGiftCode(),
			Amount:    amount,
			MaxUses:   maxUses,
			ExpiresAt: expiresAt,
			CreatedBy: adminID,
		}
		err := s.store.CreateCode(ctx, c)
		if err == nil {
			log.WithFields(log.Fields{
				"code":     c.Code,
				"amount":   amount,
				"max_uses": maxUses,
				"admin_id": adminID,
			}).Info("Создан подарочный код")
			return c, nil
		}
		if !IsCodeCollision(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Redeem активирует код и возвращает размер бонуса.
func (s *Service) Redeem(ctx context.Context, userID int64, code string) (int64, error) {
	c, err := s.store.Redeem(ctx, code, userID)
	if err != nil {
		return 0, err
	}
	// начисление шло мимо сервиса леджера, кеш сбрасываем сами
	s.cache.Invalidate(cache.AccountKey(userID))

	log.WithFields(log.Fields{
		"user_id": userID,
		"code":    c.Code,
		"amount":  c.Amount,
	}).Info("Активирован подарочный код")
	return c.Amount, nil
}

// GetCode возвращает код для админ-панели.
func (s *Service) GetCode(ctx context.Context, code string) (*GiftCode, error) {
	return s.store.GetCode(ctx, code)
}

// CleanupExpired удаляет просроченные коды. Вызывается планировщиком.
func (s *Service) CleanupExpired(ctx context.Context) error {
	n, err := s.store.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.WithField("count", n).Info("Удалены просроченные подарочные коды")
	}
	return nil
}
