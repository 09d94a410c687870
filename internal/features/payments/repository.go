// Package payments — repository.go работает с таблицей payment_methods.
package payments

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

const methodColumns = `key, title, currency, min_amount, max_amount, enabled, paused, updated_at`

// Repository работает с таблицей payment_methods.
type Repository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewRepository создаёт репозиторий платёжных методов.
func NewRepository(db *pgxpool.Pool, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

func scanMethod(row pgx.Row) (*Method, error) {
	var m Method
	err := row.Scan(&m.Key, &m.Title, &m.Currency, &m.MinAmount, &m.MaxAmount,
		&m.Enabled, &m.Paused, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, postgres.WrapErr(err)
	}
	return &m, nil
}

// Get возвращает метод по ключу.
func (r *Repository) Get(ctx context.Context, key string) (*Method, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return scanMethod(r.db.QueryRow(ctx,
		`SELECT `+methodColumns+` FROM payment_methods WHERE key = $1`, key))
}

// List возвращает все методы в стабильном порядке.
func (r *Repository) List(ctx context.Context) ([]*Method, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx,
		`SELECT `+methodColumns+` FROM payment_methods ORDER BY key`)
	if err != nil {
		return nil, postgres.WrapErr(err)
	}
	defer rows.Close()

	var out []*Method
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetPaused приостанавливает или возобновляет метод.
func (r *Repository) SetPaused(ctx context.Context, key string, paused bool) error {
	return r.update(ctx, `UPDATE payment_methods SET paused = $2, updated_at = NOW() WHERE key = $1`, key, paused)
}

// SetEnabled показывает или скрывает метод.
func (r *Repository) SetEnabled(ctx context.Context, key string, enabled bool) error {
	return r.update(ctx, `UPDATE payment_methods SET enabled = $2, updated_at = NOW() WHERE key = $1`, key, enabled)
}

// UpdateLimits меняет лимиты метода.
func (r *Repository) UpdateLimits(ctx context.Context, key string, min, max int64) error {
	return r.update(ctx, `
		UPDATE payment_methods SET min_amount = $2, max_amount = $3, updated_at = NOW()
		WHERE key = $1
	`, key, min, max)
}

func (r *Repository) update(ctx context.Context, sql string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.WrapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// EnsureDefaults сеет стандартные методы. Существующие не трогаются.
func (r *Repository) EnsureDefaults(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for _, m := range defaultMethods {
		_, err := r.db.Exec(ctx, `
			INSERT INTO payment_methods (key, title, currency, min_amount, max_amount, enabled)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (key) DO NOTHING
		`, m.Key, m.Title, m.Currency, m.MinAmount, m.MaxAmount, m.Enabled)
		if err != nil {
			return fmt.Errorf("ошибка посева метода %s: %w", m.Key, postgres.WrapErr(err))
		}
	}
	return nil
}
