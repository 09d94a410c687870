// Package cache — read-through кеш поверх LRU с ограничением размера
// и TTL на каждую запись.
//
// Кеш снимает нагрузку с БД на горячих чтениях (аккаунт, настройки,
// сессия, статус админа). Любая мутация обязана явно инвалидировать
// соответствующий ключ — TTL здесь только страховка, не механизм
// согласованности.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Loader загружает значение из авторитетного хранилища при промахе кеша.
type Loader func(ctx context.Context) (interface{}, error)

// entry — значение кеша вместе со сроком годности.
type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache — LRU-кеш с TTL на запись.
// Все методы безопасны для конкурентного вызова.
type Cache struct {
	lru    *lru.Cache[string, entry]
	hits   atomic.Int64
	misses atomic.Int64

	// подменяется в тестах
	now func() time.Time
}

// New создаёт кеш, ограниченный maxEntries записями.
func New(maxEntries int) (*Cache, error) {
	l, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания LRU: %w", err)
	}
	return &Cache{lru: l, now: time.Now}, nil
}

// Get возвращает значение по ключу, если оно есть и не протухло.
func (c *Cache) Get(key string) (interface{}, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set сохраняет значение с указанным TTL.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.lru.Add(key, entry{value: value, expiresAt: c.now().Add(ttl)})
}

// GetOrLoad возвращает значение из кеша; при промахе вызывает loader
// и кеширует успешный результат. Ошибка loader НЕ кешируется —
// промах просто падает насквозь в хранилище (контракт read-through).
//
// ВАЖНО: loader выполняется без внутренних блокировок кеша,
// поэтому здесь можно ходить в БД.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader Loader) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}

	c.Set(key, v, ttl)
	return v, nil
}

// Invalidate удаляет ключ из кеша. Вызывается на каждом пути мутации,
// чтобы сразу после credit/debit не отдать устаревший баланс.
func (c *Cache) Invalidate(key string) {
	c.lru.Remove(key)
}

// Purge полностью очищает кеш.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Stats возвращает счётчики попаданий/промахов и текущий размер.
func (c *Cache) Stats() (hits, misses int64, size int) {
	return c.hits.Load(), c.misses.Load(), c.lru.Len()
}

// Ключи кеша. Единая точка именования, чтобы мутации и чтения
// гарантированно сходились на одном ключе.

// AccountKey — ключ снапшота аккаунта.
func AccountKey(userID int64) string {
	return fmt.Sprintf("account_%d", userID)
}

// SettingKey — ключ значения настройки.
func SettingKey(key string) string {
	return fmt.Sprintf("setting_%s", key)
}

// SessionKey — ключ сессии диалога.
func SessionKey(userID int64) string {
	return fmt.Sprintf("session_%d", userID)
}

// AdminKey — ключ статуса администратора.
func AdminKey(userID int64) string {
	return fmt.Sprintf("admin_%d", userID)
}
