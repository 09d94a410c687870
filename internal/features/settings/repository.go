// Package settings — repository.go работает с таблицами
// system_settings и settings_audit.
package settings

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

// Repository работает с таблицами настроек.
type Repository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewRepository создаёт репозиторий настроек.
func NewRepository(db *pgxpool.Pool, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

// Get возвращает значение настройки.
func (r *Repository) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var value string
	err := r.db.QueryRow(ctx,
		`SELECT value FROM system_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", postgres.WrapErr(err)
	}
	return value, nil
}

// Set меняет значение настройки и пишет запись в журнал изменений.
// Оба действия в одной транзакции: изменение без следа невозможно.
func (r *Repository) Set(ctx context.Context, key, value string, adminID int64, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", postgres.WrapErr(err))
	}
	defer tx.Rollback(ctx)

	var old string
	err = tx.QueryRow(ctx,
		`SELECT value FROM system_settings WHERE key = $1 FOR UPDATE`, key).Scan(&old)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return postgres.WrapErr(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO system_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()
	`, key, value)
	if err != nil {
		return postgres.WrapErr(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO settings_audit (key, old_value, new_value, admin_id, reason)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
	`, key, old, value, adminID, reason)
	if err != nil {
		return postgres.WrapErr(err)
	}

	return tx.Commit(ctx)
}

// EnsureDefaults сеет отсутствующие настройки. Существующие значения
// не трогаются.
func (r *Repository) EnsureDefaults(ctx context.Context, defaults map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for key, value := range defaults {
		_, err := r.db.Exec(ctx, `
			INSERT INTO system_settings (key, value)
			VALUES ($1, $2)
			ON CONFLICT (key) DO NOTHING
		`, key, value)
		if err != nil {
			return fmt.Errorf("ошибка посева настройки %s: %w", key, postgres.WrapErr(err))
		}
	}
	return nil
}

// Audit возвращает последние изменения настройки.
func (r *Repository) Audit(ctx context.Context, key string, limit int) ([]*AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, key, COALESCE(old_value, ''), new_value, admin_id,
			COALESCE(reason, ''), created_at
		FROM settings_audit
		WHERE key = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, key, limit)
	if err != nil {
		return nil, postgres.WrapErr(err)
	}
	defer rows.Close()

	var out []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Key, &e.OldValue, &e.NewValue,
			&e.AdminID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, postgres.WrapErr(err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
