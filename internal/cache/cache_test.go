package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, maxEntries int) *Cache {
	t.Helper()
	c, err := New(maxEntries)
	require.NoError(t, err)
	return c
}

func TestGetOrLoad_LoadsOnceAndCaches(t *testing.T) {
	c := newTestCache(t, 10)
	ctx := context.Background()

	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return int64(5000), nil
	}

	v, err := c.GetOrLoad(ctx, "account_1", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), v)

	// Второе чтение — из кеша, loader не вызывается
	v, err = c.GetOrLoad(ctx, "account_1", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), v)
	assert.Equal(t, 1, calls)
}

func TestGetOrLoad_ErrorNotCached(t *testing.T) {
	c := newTestCache(t, 10)
	ctx := context.Background()

	boom := errors.New("база недоступна")
	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return "ok", nil
	}

	_, err := c.GetOrLoad(ctx, "k", time.Minute, loader)
	assert.ErrorIs(t, err, boom)

	// Ошибка не закешировалась — повторный вызов снова идёт в loader
	v, err := c.GetOrLoad(ctx, "k", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestInvalidate_ForcesReload(t *testing.T) {
	c := newTestCache(t, 10)
	ctx := context.Background()

	balance := int64(1000)
	loader := func(ctx context.Context) (interface{}, error) {
		return balance, nil
	}

	v, _ := c.GetOrLoad(ctx, AccountKey(7), time.Minute, loader)
	assert.Equal(t, int64(1000), v)

	// Мутация баланса + инвалидация
	balance = 2500
	c.Invalidate(AccountKey(7))

	v, _ = c.GetOrLoad(ctx, AccountKey(7), time.Minute, loader)
	assert.Equal(t, int64(2500), v, "после инвалидации должен вернуться свежий баланс")
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t, 10)

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("k", "v", 30*time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	// Прошла минута — запись протухла
	current = current.Add(time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestLRUEviction(t *testing.T) {
	c := newTestCache(t, 2)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("c", 3, time.Minute) // вытесняет "a"

	_, ok := c.Get("a")
	assert.False(t, ok, "старейшая запись должна быть вытеснена")

	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestStats(t *testing.T) {
	c := newTestCache(t, 10)

	c.Set("k", "v", time.Minute)
	c.Get("k")
	c.Get("нет такого")

	hits, misses, size := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1, size)
}
