// Package admin реализует админ-панель с парольной аутентификацией.
// models.go описывает администраторов, сессии и попытки входа.
package admin

import "time"

// Admin — второстепенный администратор, добавленный через панель.
// Супер-админы приходят из окружения (ADMIN_IDS) и в таблице не лежат.
type Admin struct {
	UserID    int64     `db:"user_id"`
	AddedBy   int64     `db:"added_by"`
	CreatedAt time.Time `db:"created_at"`
}

// Session — активная сессия администратора после ввода пароля.
type Session struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	LastActivity    time.Time `db:"last_activity"`
	IsActive        bool      `db:"is_active"`
}

// LoginAttempt — попытка входа (для защиты от перебора пароля).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}
