package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
)

type fakeStore struct {
	values   map[string]string
	audit    []*AuditEntry
	getCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.getCalls++
	v, ok := f.values[key]
	if !ok {
		return "", common.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string, adminID int64, reason string) error {
	f.audit = append(f.audit, &AuditEntry{
		Key: key, OldValue: f.values[key], NewValue: value,
		AdminID: adminID, Reason: reason, CreatedAt: time.Now(),
	})
	f.values[key] = value
	return nil
}

func (f *fakeStore) EnsureDefaults(_ context.Context, defaults map[string]string) error {
	for k, v := range defaults {
		if _, ok := f.values[k]; !ok {
			f.values[k] = v
		}
	}
	return nil
}

func (f *fakeStore) Audit(_ context.Context, key string, _ int) ([]*AuditEntry, error) {
	var out []*AuditEntry
	for _, e := range f.audit {
		if e.Key == key {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	c, err := cache.New(100)
	require.NoError(t, err)
	store := newFakeStore()
	return NewService(store, c, time.Minute), store
}

func TestGetFallsBackToDefault(t *testing.T) {
	svc, _ := newTestService(t)

	rate, err := svc.GetInt(context.Background(), KeyReferralCommissionRate)
	require.NoError(t, err)
	assert.Equal(t, int64(10), rate)
}

func TestGetUsesCache(t *testing.T) {
	svc, store := newTestService(t)
	store.values[KeyGiftFeePercent] = "5"

	for i := 0; i < 3; i++ {
		v, err := svc.GetInt(context.Background(), KeyGiftFeePercent)
		require.NoError(t, err)
		assert.Equal(t, int64(5), v)
	}
	assert.Equal(t, 1, store.getCalls)
}

func TestSetInvalidatesCacheAndWritesAudit(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	store.values[KeyGiftFeePercent] = "0"

	v, err := svc.GetInt(ctx, KeyGiftFeePercent)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	require.NoError(t, svc.Set(ctx, KeyGiftFeePercent, "3", 777, "ввели комиссию"))

	v, err = svc.GetInt(ctx, KeyGiftFeePercent)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	entries, err := svc.Audit(ctx, KeyGiftFeePercent, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "0", entries[0].OldValue)
	assert.Equal(t, "3", entries[0].NewValue)
	assert.Equal(t, int64(777), entries[0].AdminID)
}

func TestGetBool(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	store.values[KeyDepositEnabled] = "true"
	on, err := svc.GetBool(ctx, KeyDepositEnabled)
	require.NoError(t, err)
	assert.True(t, on)

	store.values[KeyWithdrawEnabled] = "false"
	on, err = svc.GetBool(ctx, KeyWithdrawEnabled)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestGetIntRejectsGarbage(t *testing.T) {
	svc, store := newTestService(t)
	store.values[KeyExchangeRate] = "дорого"

	_, err := svc.GetInt(context.Background(), KeyExchangeRate)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestMaintenanceMode(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	on, _ := svc.MaintenanceMode(ctx)
	assert.False(t, on)

	store.values[KeyMaintenanceMode] = "true"
	store.values[KeyMaintenanceMessage] = "ведутся работы"
	// сбрасываем кешированное "false"
	require.NoError(t, svc.Set(ctx, KeyMaintenanceMode, "true", 777, ""))

	on, msg := svc.MaintenanceMode(ctx)
	assert.True(t, on)
	assert.Equal(t, "ведутся работы", msg)
}

func TestEnsureDefaultsDoesNotOverwrite(t *testing.T) {
	svc, store := newTestService(t)
	store.values[KeyReferralBonus] = "5000"

	require.NoError(t, svc.EnsureDefaults(context.Background()))
	assert.Equal(t, "5000", store.values[KeyReferralBonus])
	assert.Equal(t, Defaults[KeyMaintenanceMessage], store.values[KeyMaintenanceMessage])
}
