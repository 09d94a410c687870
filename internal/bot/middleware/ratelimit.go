// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	"sync"
	"time"
)

// rlKey — ключ скользящего окна: лимит считается отдельно
// для каждой пары (пользователь, действие).
type rlKey struct {
	userID int64
	action string
}

// RateLimiter ограничивает количество запросов на пару (пользователь, действие).
// Использует алгоритм скользящего окна.
//
// Проверяется на каждом входящем событии, поэтому под мьютексом
// никогда не выполняется I/O — только работа с картой в памяти.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[rlKey][]time.Time
	limit    int
	window   time.Duration

	// exempt освобождает супер-админов от лимита безусловно
	exempt func(userID int64) bool

	stopOnce sync.Once
	stopCh   chan struct{}

	// подменяется в тестах
	now func() time.Time
}

// NewRateLimiter создаёт лимитер: не более limit событий за window
// на пару (пользователь, действие). exempt может быть nil.
func NewRateLimiter(limit int, window time.Duration, exempt func(userID int64) bool) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[rlKey][]time.Time),
		limit:    limit,
		window:   window,
		exempt:   exempt,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
	go rl.cleanup()
	return rl
}

// Close останавливает фоновую горутину очистки.
// Его надо вызывать на shutdown (иначе cleanup будет жить вечно).
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow проверяет, разрешено ли событие. Если лимит исчерпан,
// возвращает false и число секунд до освобождения окна.
func (rl *RateLimiter) Allow(userID int64, action string) (bool, int) {
	if rl.exempt != nil && rl.exempt(userID) {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := rlKey{userID: userID, action: action}
	now := rl.now()
	cutoff := now.Add(-rl.window)

	var recent []time.Time
	for _, t := range rl.requests[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		// Окно освободится, когда протухнет самое старое событие
		retryAfter := recent[0].Add(rl.window).Sub(now)
		seconds := int(retryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		return false, seconds
	}

	recent = append(recent, now)
	rl.requests[key] = recent
	return true, 0
}

// cleanup периодически выбрасывает протухшие окна, чтобы карта
// не росла бесконечно на разовых пользователях.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := rl.now().Add(-rl.window)
			for key, times := range rl.requests {
				var recent []time.Time
				for _, t := range times {
					if t.After(cutoff) {
						recent = append(recent, t)
					}
				}
				if len(recent) == 0 {
					delete(rl.requests, key)
				} else {
					rl.requests[key] = recent
				}
			}
			rl.mu.Unlock()
		}
	}
}
