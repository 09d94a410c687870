// Package gifts — repository.go работает с таблицами gift_codes,
// gift_code_usage и gift_transfers.
package gifts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/db/postgres"
	"serotonyl.ru/cashier-bot/internal/features/ledger"
)

// Имена уникальных ограничений.
const (
	uqGiftCode      = "uq_gift_codes_code"
	uqGiftCodeUsage = "uq_gift_code_usage"
)

// Repository работает с таблицами подарков.
// Леджер подключён для атомарного начисления при активации кода.
type Repository struct {
	db      *pgxpool.Pool
	ledger  *ledger.Repository
	timeout time.Duration
}

// NewRepository создаёт репозиторий подарков.
func NewRepository(db *pgxpool.Pool, ledgerRepo *ledger.Repository, timeout time.Duration) *Repository {
	return &Repository{db: db, ledger: ledgerRepo, timeout: timeout}
}

// CreateCode сохраняет новый подарочный код.
// Коллизия кода (крайне маловероятная) возвращается как есть,
// сервис генерирует новый код и повторяет.
func (r *Repository) CreateCode(ctx context.Context, c *GiftCode) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		INSERT INTO gift_codes (code, amount, max_uses, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, c.Code, c.Amount, c.MaxUses, c.ExpiresAt, c.CreatedBy).Scan(&c.ID, &c.CreatedAt)
	return postgres.WrapErr(err)
}

// IsCodeCollision сообщает, что вставка упала из-за занятого кода.
func IsCodeCollision(err error) bool {
	return postgres.IsUniqueViolation(err, uqGiftCode)
}

// GetCode возвращает код по его строке.
func (r *Repository) GetCode(ctx context.Context, code string) (*GiftCode, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.scanCode(r.db.QueryRow(ctx, `
		SELECT id, code, amount, max_uses, used_count, expires_at, created_by, created_at
		FROM gift_codes WHERE code = $1
	`, code))
}

func (r *Repository) scanCode(row pgx.Row) (*GiftCode, error) {
	var c GiftCode
	err := row.Scan(&c.ID, &c.Code, &c.Amount, &c.MaxUses, &c.UsedCount,
		&c.ExpiresAt, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, postgres.WrapErr(err)
	}
	return &c, nil
}

// Redeem активирует код для пользователя. Одна транзакция БД:
// журнал использования, guarded-инкремент счётчика, начисление
// и строка журнала операций. Либо всё, либо ничего.
func (r *Repository) Redeem(ctx context.Context, code string, userID int64) (*GiftCode, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", postgres.WrapErr(err))
	}
	defer tx.Rollback(ctx)

	c, err := r.scanCode(tx.QueryRow(ctx, `
		SELECT id, code, amount, max_uses, used_count, expires_at, created_by, created_at
		FROM gift_codes WHERE code = $1
		FOR UPDATE
	`, code))
	if err != nil {
		return nil, err
	}
	if !c.Usable(time.Now()) {
		return nil, common.ErrExpiredOrExhausted
	}

	// Одна активация на пару (код, пользователь)
	if _, err := tx.Exec(ctx, `
		INSERT INTO gift_code_usage (code_id, user_id) VALUES ($1, $2)
	`, c.ID, userID); err != nil {
		if postgres.IsUniqueViolation(err, uqGiftCodeUsage) {
			return nil, common.ErrCodeAlreadyRedeemed
		}
		return nil, postgres.WrapErr(err)
	}

	// Guarded-инкремент: под FOR UPDATE это не гонка, но условие
	// used_count < max_uses остаётся последней линией обороны
	tag, err := tx.Exec(ctx, `
		UPDATE gift_codes SET used_count = used_count + 1
		WHERE id = $1 AND used_count < max_uses
	`, c.ID)
	if err != nil {
		return nil, postgres.WrapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, common.ErrExpiredOrExhausted
	}

	if _, err := r.ledger.CreditInTx(ctx, tx, userID, c.Amount, ""); err != nil {
		return nil, err
	}
	if _, err := r.ledger.RecordInTx(ctx, tx, &ledger.Transaction{
		UserID: userID,
		Kind:   ledger.KindCodeBonus,
		Amount: c.Amount,
		Details: c.Code,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, postgres.WrapErr(err)
	}
	c.UsedCount++
	return c, nil
}

// RecordTransfer пишет запись аудита перевода-подарка.
func (r *Repository) RecordTransfer(ctx context.Context, t *Transfer) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		INSERT INTO gift_transfers (sender_id, receiver_id, amount, fee, net)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, t.SenderID, t.ReceiverID, t.Amount, t.Fee, t.Net).Scan(&t.ID, &t.CreatedAt)
	return postgres.WrapErr(err)
}

// CleanupExpired удаляет просроченные коды и возвращает их число.
// Журнал использования уходит вместе с кодом (FK ON DELETE CASCADE);
// след активаций остаётся в журнале транзакций.
func (r *Repository) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`DELETE FROM gift_codes WHERE expires_at IS NOT NULL AND expires_at < NOW()`)
	if err != nil {
		return 0, postgres.WrapErr(err)
	}
	return tag.RowsAffected(), nil
}
