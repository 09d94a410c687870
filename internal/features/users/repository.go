// Package users — repository.go выполняет операции с таблицей accounts.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/db/postgres"
)

const accountColumns = `user_id, balance, total_deposited, total_withdrawn,
	referral_code, referred_by, is_banned, COALESCE(ban_reason, ''), ban_until,
	created_at, last_active`

// Repository работает с таблицей accounts.
type Repository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewRepository создаёт репозиторий аккаунтов.
func NewRepository(db *pgxpool.Pool, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.UserID, &a.Balance, &a.TotalDeposited, &a.TotalWithdrawn,
		&a.ReferralCode, &a.ReferredBy, &a.IsBanned, &a.BanReason, &a.BanUntil,
		&a.CreatedAt, &a.LastActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, postgres.WrapErr(err)
	}
	return &a, nil
}

// GetOrCreate возвращает аккаунт, создавая его при первом обращении.
// referralCode используется только при создании новой записи.
func (r *Repository) GetOrCreate(ctx context.Context, userID int64, referralCode string) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (user_id, referral_code)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, referralCode)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания аккаунта: %w", postgres.WrapErr(err))
	}

	return r.Get(ctx, userID)
}

// Get возвращает аккаунт по Telegram ID.
func (r *Repository) Get(ctx context.Context, userID int64) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID)
	return scanAccount(row)
}

// GetByReferralCode ищет аккаунт по реферальному коду.
func (r *Repository) GetByReferralCode(ctx context.Context, code string) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE referral_code = $1`, code)
	return scanAccount(row)
}

// SetReferrer записывает, кто привёл пользователя.
// Заполняется один раз: повторная попытка не перезаписывает первого реферера.
func (r *Repository) SetReferrer(ctx context.Context, userID, referrerID int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		UPDATE accounts SET referred_by = $2
		WHERE user_id = $1 AND referred_by IS NULL
	`, userID, referrerID)
	return postgres.WrapErr(err)
}

// Ban блокирует аккаунт. until == nil означает бессрочный бан.
func (r *Repository) Ban(ctx context.Context, userID int64, reason string, until *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET is_banned = TRUE, ban_reason = $2, ban_until = $3
		WHERE user_id = $1
	`, userID, reason, until)
	if err != nil {
		return fmt.Errorf("ошибка блокировки: %w", postgres.WrapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Unban снимает блокировку.
func (r *Repository) Unban(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET is_banned = FALSE, ban_reason = NULL, ban_until = NULL
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("ошибка разблокировки: %w", postgres.WrapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// TouchActivity обновляет время последней активности.
func (r *Repository) TouchActivity(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`UPDATE accounts SET last_active = NOW() WHERE user_id = $1`, userID)
	return postgres.WrapErr(err)
}

// TopByBalance возвращает аккаунты с наибольшим балансом (для админ-панели).
func (r *Repository) TopByBalance(ctx context.Context, limit int) ([]*Account, error) {
	return r.top(ctx, "balance", limit)
}

// TopByDeposited возвращает аккаунты с наибольшей суммой депозитов.
func (r *Repository) TopByDeposited(ctx context.Context, limit int) ([]*Account, error) {
	return r.top(ctx, "total_deposited", limit)
}

func (r *Repository) top(ctx context.Context, column string, limit int) ([]*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// column приходит только из top-обёрток выше, не от пользователя
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY `+column+` DESC LIMIT $1`, limit)
	if err != nil {
		return nil, postgres.WrapErr(err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Count возвращает количество аккаунтов (всего и заблокированных).
func (r *Repository) Count(ctx context.Context) (total, banned int64, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_banned)
		FROM accounts
	`).Scan(&total, &banned)
	return total, banned, postgres.WrapErr(err)
}
