// Package admin — repository.go работает с таблицами admins,
// admin_sessions и admin_login_attempts.
package admin

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

// Repository работает с админ-таблицами.
type Repository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewRepository создаёт репозиторий админ-панели.
func NewRepository(db *pgxpool.Pool, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

// IsAdmin проверяет, есть ли пользователь в таблице администраторов.
func (r *Repository) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM admins WHERE user_id = $1)`, userID).Scan(&exists)
	return exists, postgres.WrapErr(err)
}

// Add добавляет второстепенного администратора.
func (r *Repository) Add(ctx context.Context, userID, addedBy int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO admins (user_id, added_by)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, addedBy)
	return postgres.WrapErr(err)
}

// Remove снимает администратора.
func (r *Repository) Remove(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM admins WHERE user_id = $1`, userID)
	if err != nil {
		return postgres.WrapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// List возвращает всех второстепенных администраторов.
func (r *Repository) List(ctx context.Context) ([]*Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx,
		`SELECT user_id, added_by, created_at FROM admins ORDER BY created_at`)
	if err != nil {
		return nil, postgres.WrapErr(err)
	}
	defer rows.Close()

	var out []*Admin
	for rows.Next() {
		var a Admin
		if err := rows.Scan(&a.UserID, &a.AddedBy, &a.CreatedAt); err != nil {
			return nil, postgres.WrapErr(err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// CreateSession создаёт сессию администратора.
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO admin_sessions (user_id, session_token, expires_at, is_active)
		VALUES ($1, $2, $3, TRUE)
	`, s.UserID, s.SessionToken, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", postgres.WrapErr(err))
	}
	return nil
}

// GetActiveSession возвращает активную сессию пользователя.
func (r *Repository) GetActiveSession(ctx context.Context, userID int64) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var s Session
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, session_token, authenticated_at, expires_at, last_activity, is_active
		FROM admin_sessions
		WHERE user_id = $1 AND is_active = TRUE AND expires_at > NOW()
		ORDER BY authenticated_at DESC
		LIMIT 1
	`, userID).Scan(
		&s.ID, &s.UserID, &s.SessionToken, &s.AuthenticatedAt,
		&s.ExpiresAt, &s.LastActivity, &s.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, postgres.WrapErr(err)
	}
	return &s, nil
}

// DeactivateSession завершает все сессии пользователя.
func (r *Repository) DeactivateSession(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`UPDATE admin_sessions SET is_active = FALSE WHERE user_id = $1`, userID)
	return postgres.WrapErr(err)
}

// UpdateActivity обновляет время последней активности сессии.
func (r *Repository) UpdateActivity(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`UPDATE admin_sessions SET last_activity = NOW() WHERE user_id = $1 AND is_active = TRUE`, userID)
	return postgres.WrapErr(err)
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, userID int64, success bool) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`INSERT INTO admin_login_attempts (user_id, success) VALUES ($1, $2)`, userID, success)
	return postgres.WrapErr(err)
}

// RecentFailedAttempts возвращает число неудачных попыток за период.
func (r *Repository) RecentFailedAttempts(ctx context.Context, userID int64, period time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE user_id = $1 AND success = FALSE AND attempt_time >= $2
	`, userID, time.Now().Add(-period)).Scan(&count)
	return count, postgres.WrapErr(err)
}

// CleanupStale удаляет протухшие сессии и старые попытки входа.
func (r *Repository) CleanupStale(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`DELETE FROM admin_sessions WHERE expires_at < NOW() - INTERVAL '7 days'`)
	if err != nil {
		return 0, postgres.WrapErr(err)
	}
	n := tag.RowsAffected()

	tag, err = r.db.Exec(ctx,
		`DELETE FROM admin_login_attempts WHERE attempt_time < NOW() - INTERVAL '7 days'`)
	if err != nil {
		return n, postgres.WrapErr(err)
	}
	return n + tag.RowsAffected(), nil
}
