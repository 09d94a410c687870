// Package admin — service.go содержит логику аутентификации
// и административных операций: одобрение заявок, корректировка
// балансов, блокировки, управление настройками.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/config"
	"serotonyl.ru/cashier-bot/internal/features/ledger"
)

// Защита от перебора пароля: 3 неудачи за час — блокировка.
const (
	maxLoginAttempts = 3
	attemptsWindow   = time.Hour
	sessionLifetime  = 24 * time.Hour
	adminCacheTTL    = time.Minute
)

type store interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	Add(ctx context.Context, userID, addedBy int64) error
	Remove(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]*Admin, error)
	CreateSession(ctx context.Context, s *Session) error
	GetActiveSession(ctx context.Context, userID int64) (*Session, error)
	DeactivateSession(ctx context.Context, userID int64) error
	UpdateActivity(ctx context.Context, userID int64) error
	LogAttempt(ctx context.Context, userID int64, success bool) error
	RecentFailedAttempts(ctx context.Context, userID int64, period time.Duration) (int, error)
	CleanupStale(ctx context.Context) (int64, error)
}

type ledgerService interface {
	Credit(ctx context.Context, userID, amount int64, kind string) (int64, error)
	Debit(ctx context.Context, userID, amount int64, kind string) (int64, error)
	Record(ctx context.Context, t *ledger.Transaction) (int64, error)
	Finalize(ctx context.Context, txID int64, approve bool, adminID int64) (*ledger.Transaction, error)
}

type referralService interface {
	RecordCharge(ctx context.Context, userID, amount int64) error
}

// Service управляет админ-панелью.
type Service struct {
	store     store
	ledger    ledgerService
	referrals referralService
	cfg       *config.Config
	cache     *cache.Cache
}

// NewService создаёт сервис админ-панели.
func NewService(store store, l ledgerService, r referralService, cfg *config.Config, c *cache.Cache) *Service {
	return &Service{store: store, ledger: l, referrals: r, cfg: cfg, cache: c}
}

// IsAdmin проверяет права: супер-админ из окружения или запись
// в таблице администраторов (через кеш).
func (s *Service) IsAdmin(ctx context.Context, userID int64) bool {
	if s.cfg.IsSuperAdmin(userID) {
		return true
	}

	v, err := s.cache.GetOrLoad(ctx, cache.AdminKey(userID), adminCacheTTL,
		func(ctx context.Context) (interface{}, error) {
			return s.store.IsAdmin(ctx, userID)
		})
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Ошибка проверки прав администратора")
		return false
	}
	return v.(bool)
}

// Authenticated проверяет, что администратор вошёл по паролю
// и его сессия ещё жива.
func (s *Service) Authenticated(ctx context.Context, userID int64) bool {
	if !s.IsAdmin(ctx, userID) {
		return false
	}
	_, err := s.store.GetActiveSession(ctx, userID)
	if err != nil {
		return false
	}
	_ = s.store.UpdateActivity(ctx, userID)
	return true
}

// Login проверяет пароль и открывает сессию на 24 часа.
// После трёх неудач за час вход блокируется.
func (s *Service) Login(ctx context.Context, userID int64, password string) error {
	if !s.IsAdmin(ctx, userID) {
		return common.ErrNotAdmin
	}

	attempts, err := s.store.RecentFailedAttempts(ctx, userID, attemptsWindow)
	if err != nil {
		return err
	}
	if attempts >= maxLoginAttempts {
		return common.ErrTooManyAttempts
	}

	match := verifyArgon2id(password, s.cfg.AdminPasswordHash)
	if err := s.store.LogAttempt(ctx, userID, match); err != nil {
		log.WithError(err).Warn("Не удалось записать попытку входа")
	}
	if !match {
		log.WithField("user_id", userID).Warn("Неудачная попытка входа в админ-панель")
		return common.ErrWrongPassword
	}

	session := &Session{
		UserID:       userID,
		SessionToken: generateSecureToken(),
		ExpiresAt:    time.Now().Add(sessionLifetime),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return err
	}

	log.WithField("user_id", userID).Info("Администратор вошёл в панель")
	return nil
}

// Logout завершает сессии администратора.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.store.DeactivateSession(ctx, userID)
}

// Approve одобряет заявку. Для депозита дополнительно учитывается
// реферальный депозит приглашённого.
func (s *Service) Approve(ctx context.Context, txID, adminID int64) (*ledger.Transaction, error) {
	t, err := s.ledger.Finalize(ctx, txID, true, adminID)
	if err != nil {
		return nil, err
	}

	if t.Kind == ledger.KindDeposit {
		if err := s.referrals.RecordCharge(ctx, t.UserID, t.Amount); err != nil {
			// комиссия догонит со следующим депозитом
			log.WithError(err).WithField("user_id", t.UserID).
				Warn("Не удалось учесть реферальный депозит")
		}
	}
	return t, nil
}

// Reject отклоняет заявку. Замороженная сумма вывода возвращается.
func (s *Service) Reject(ctx context.Context, txID, adminID int64) (*ledger.Transaction, error) {
	return s.ledger.Finalize(ctx, txID, false, adminID)
}

// AdjustBalance вручную начисляет (add=true) или списывает средства
// со следом в журнале транзакций.
func (s *Service) AdjustBalance(ctx context.Context, adminID, targetID, amount int64, add bool) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}

	var balance int64
	var err error
	kind := ledger.KindAdminDeduct
	if add {
		kind = ledger.KindAdminAdd
		balance, err = s.ledger.Credit(ctx, targetID, amount, kind)
	} else {
		balance, err = s.ledger.Debit(ctx, targetID, amount, kind)
	}
	if err != nil {
		return 0, err
	}

	if _, err := s.ledger.Record(ctx, &ledger.Transaction{
		UserID:  targetID,
		Kind:    kind,
		Amount:  amount,
		AdminID: &adminID,
		Details: fmt.Sprintf("корректировка админом %d", adminID),
	}); err != nil {
		log.WithError(err).Warn("Не удалось записать корректировку в журнал")
	}

	log.WithFields(log.Fields{
		"admin_id":  adminID,
		"target_id": targetID,
		"amount":    amount,
		"add":       add,
	}).Info("Ручная корректировка баланса")
	return balance, nil
}

// AddAdmin добавляет второстепенного администратора.
func (s *Service) AddAdmin(ctx context.Context, userID, addedBy int64) error {
	if err := s.store.Add(ctx, userID, addedBy); err != nil {
		return err
	}
	s.cache.Invalidate(cache.AdminKey(userID))

	log.WithFields(log.Fields{"user_id": userID, "added_by": addedBy}).Info("Добавлен администратор")
	return nil
}

// RemoveAdmin снимает второстепенного администратора.
// Супер-админа из окружения снять нельзя.
func (s *Service) RemoveAdmin(ctx context.Context, userID int64) error {
	if s.cfg.IsSuperAdmin(userID) {
		return common.ErrNotAdmin
	}
	if err := s.store.Remove(ctx, userID); err != nil {
		return err
	}
	s.cache.Invalidate(cache.AdminKey(userID))
	_ = s.store.DeactivateSession(ctx, userID)

	log.WithField("user_id", userID).Info("Администратор снят")
	return nil
}

// ListAdmins возвращает второстепенных администраторов.
func (s *Service) ListAdmins(ctx context.Context) ([]*Admin, error) {
	return s.store.List(ctx)
}

// NotifyTargets возвращает всех получателей админ-уведомлений:
// супер-админы из окружения плюс администраторы из таблицы.
func (s *Service) NotifyTargets(ctx context.Context) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, id := range s.cfg.AdminIDs {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	admins, err := s.store.List(ctx)
	if err != nil {
		log.WithError(err).Warn("Не удалось получить список администраторов")
		return out
	}
	for _, a := range admins {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			out = append(out, a.UserID)
		}
	}
	return out
}

// CleanupStale подчищает старые сессии и попытки входа (планировщик).
func (s *Service) CleanupStale(ctx context.Context) error {
	n, err := s.store.CleanupStale(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.WithField("count", n).Debug("Удалены старые админ-сессии и попытки входа")
	}
	return nil
}

// verifyArgon2id проверяет пароль по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// сравнение в постоянном времени
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}

// generateSecureToken генерирует токен сессии.
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}
