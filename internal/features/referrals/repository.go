// Package referrals — repository.go работает с таблицей referrals.
package referrals

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/cashier-bot/internal/db/postgres"
	"serotonyl.ru/cashier-bot/internal/features/ledger"
)

// Repository работает с таблицей referrals.
// Леджер подключён для атомарной выплаты комиссии.
type Repository struct {
	db      *pgxpool.Pool
	ledger  *ledger.Repository
	timeout time.Duration
}

// NewRepository создаёт репозиторий рефералов.
func NewRepository(db *pgxpool.Pool, ledgerRepo *ledger.Repository, timeout time.Duration) *Repository {
	return &Repository{db: db, ledger: ledgerRepo, timeout: timeout}
}

// Create привязывает приглашённого к рефереру.
// Повторная привязка молча игнорируется: первый реферер побеждает.
func (r *Repository) Create(ctx context.Context, referrerID, referredID int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO referrals (referrer_id, referred_id)
		VALUES ($1, $2)
		ON CONFLICT (referred_id) DO NOTHING
	`, referrerID, referredID)
	return postgres.WrapErr(err)
}

// RecordCharge накапливает депозит приглашённого и активирует связку,
// когда накопленная сумма проходит порог activationThreshold.
// Для пользователя без реферера это no-op.
func (r *Repository) RecordCharge(ctx context.Context, referredID, amount, activationThreshold int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Учитываем и депозиты, уже сконвертированные в комиссию:
	// порог активации считается по всей жизни приглашённого
	_, err := r.db.Exec(ctx, `
		UPDATE referrals SET
			amount_charged = amount_charged + $2,
			active = active OR (amount_charged + commission_earned + $2) >= $3,
			activated_at = COALESCE(activated_at,
				CASE WHEN (amount_charged + commission_earned + $2) >= $3 THEN NOW() END)
		WHERE referred_id = $1
	`, referredID, amount, activationThreshold)
	return postgres.WrapErr(err)
}

// StatsFor возвращает агрегаты реферера. Учитываемый реферал —
// активный с депозитами не ниже minCharge в текущем цикле.
func (r *Repository) StatsFor(ctx context.Context, referrerID, minCharge int64) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var s Stats
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE active),
			COUNT(*) FILTER (WHERE active AND amount_charged >= $2),
			COALESCE(SUM(amount_charged) FILTER (WHERE active AND amount_charged >= $2), 0),
			COALESCE(SUM(commission_earned), 0)
		FROM referrals
		WHERE referrer_id = $1
	`, referrerID, minCharge).Scan(&s.Total, &s.Active, &s.Eligible, &s.ChargedSum, &s.TotalEarned)
	if err != nil {
		return nil, postgres.WrapErr(err)
	}
	return &s, nil
}

// ListPayable возвращает рефереров, готовых к выплате: не меньше
// minActive учитываемых рефералов.
func (r *Repository) ListPayable(ctx context.Context, minCharge, minActive int64) ([]*Payout, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT referrer_id, COUNT(*), SUM(amount_charged)
		FROM referrals
		WHERE active AND amount_charged >= $1
		GROUP BY referrer_id
		HAVING COUNT(*) >= $2
	`, minCharge, minActive)
	if err != nil {
		return nil, postgres.WrapErr(err)
	}
	defer rows.Close()

	var out []*Payout
	for rows.Next() {
		var p Payout
		if err := rows.Scan(&p.ReferrerID, &p.EligibleCount, &p.ChargedSum); err != nil {
			return nil, postgres.WrapErr(err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// SettlePayout выплачивает комиссию рефереру и обнуляет накопитель
// учтённых рефералов в одной транзакции. Повторный запуск цикла
// никого не найдёт: amount_charged уже нули.
func (r *Repository) SettlePayout(ctx context.Context, referrerID, commission, minCharge int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", postgres.WrapErr(err))
	}
	defer tx.Rollback(ctx)

	if _, err := r.ledger.CreditInTx(ctx, tx, referrerID, commission, ""); err != nil {
		return err
	}
	if _, err := r.ledger.RecordInTx(ctx, tx, &ledger.Transaction{
		UserID: referrerID,
		Kind:   ledger.KindReferralCommission,
		Amount: commission,
	}); err != nil {
		return err
	}

	// Депозитная база перекладывается в commission_earned
	if _, err := tx.Exec(ctx, `
		UPDATE referrals SET
			commission_earned = commission_earned + amount_charged,
			amount_charged = 0
		WHERE referrer_id = $1 AND active AND amount_charged >= $2
	`, referrerID, minCharge); err != nil {
		return postgres.WrapErr(err)
	}

	return tx.Commit(ctx)
}
