// Package sessions — repository.go работает с таблицей sessions.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/db/postgres"
)

// Repository работает с таблицей sessions.
type Repository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewRepository создаёт репозиторий сессий.
func NewRepository(db *pgxpool.Pool, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

// Set перезаписывает сессию пользователя (upsert).
func (r *Repository) Set(ctx context.Context, userID int64, step string, payload json.RawMessage, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if payload == nil {
		payload = json.RawMessage(`{}`)
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (user_id, step, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET step = $2, payload = $3, expires_at = $4, updated_at = NOW()
	`, userID, step, payload, expiresAt)
	return postgres.WrapErr(err)
}

// Get возвращает сессию пользователя. Протухшая сессия считается
// отсутствующей и попутно удаляется.
func (r *Repository) Get(ctx context.Context, userID int64) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var s Session
	err := r.db.QueryRow(ctx, `
		SELECT user_id, step, payload, expires_at, updated_at
		FROM sessions WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.Step, &s.Payload, &s.ExpiresAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, postgres.WrapErr(err)
	}

	if s.Expired(time.Now()) {
		_, _ = r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
		return nil, common.ErrNotFound
	}
	return &s, nil
}

// Clear удаляет сессию пользователя.
func (r *Repository) Clear(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return postgres.WrapErr(err)
}

// CleanupExpired удаляет протухшие сессии и возвращает их число.
// Вызывается из планировщика.
func (r *Repository) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, postgres.WrapErr(err)
	}
	return tag.RowsAffected(), nil
}
