package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
)

// fakeStore — in-memory хранилище аккаунтов для тестов сервиса.
type fakeStore struct {
	accounts map[int64]*Account
	getCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[int64]*Account)}
}

func (f *fakeStore) GetOrCreate(_ context.Context, userID int64, referralCode string) (*Account, error) {
	if a, ok := f.accounts[userID]; ok {
		return a, nil
	}
	a := &Account{UserID: userID, ReferralCode: referralCode, CreatedAt: time.Now()}
	f.accounts[userID] = a
	return a, nil
}

func (f *fakeStore) Get(_ context.Context, userID int64) (*Account, error) {
	f.getCalls++
	a, ok := f.accounts[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) GetByReferralCode(_ context.Context, code string) (*Account, error) {
	for _, a := range f.accounts {
		if a.ReferralCode == code {
			return a, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeStore) SetReferrer(_ context.Context, userID, referrerID int64) error {
	a, ok := f.accounts[userID]
	if !ok {
		return common.ErrNotFound
	}
	if a.ReferredBy == nil {
		a.ReferredBy = &referrerID
	}
	return nil
}

func (f *fakeStore) Ban(_ context.Context, userID int64, reason string, until *time.Time) error {
	a, ok := f.accounts[userID]
	if !ok {
		return common.ErrNotFound
	}
	a.IsBanned = true
	a.BanReason = reason
	a.BanUntil = until
	return nil
}

func (f *fakeStore) Unban(_ context.Context, userID int64) error {
	a, ok := f.accounts[userID]
	if !ok {
		return common.ErrNotFound
	}
	a.IsBanned = false
	a.BanReason = ""
	a.BanUntil = nil
	return nil
}

func (f *fakeStore) TouchActivity(_ context.Context, _ int64) error { return nil }

func (f *fakeStore) TopByBalance(_ context.Context, _ int) ([]*Account, error)   { return nil, nil }
func (f *fakeStore) TopByDeposited(_ context.Context, _ int) ([]*Account, error) { return nil, nil }

func (f *fakeStore) Count(_ context.Context) (int64, int64, error) {
	var banned int64
	for _, a := range f.accounts {
		if a.IsBanned {
			banned++
		}
	}
	return int64(len(f.accounts)), banned, nil
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	c, err := cache.New(100)
	require.NoError(t, err)
	store := newFakeStore()
	return NewService(store, c, 5*time.Minute), store
}

func TestGetOrCreateAssignsReferralCode(t *testing.T) {
	svc, _ := newTestService(t)

	a, err := svc.GetOrCreate(context.Background(), 100500)
	require.NoError(t, err)
	assert.Equal(t, int64(100500), a.UserID)
	assert.NotEmpty(t, a.ReferralCode)
	assert.Contains(t, a.ReferralCode, "REF")
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)

	first, err := svc.GetOrCreate(context.Background(), 42)
	require.NoError(t, err)

	second, err := svc.GetOrCreate(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, first.ReferralCode, second.ReferralCode)
}

func TestGetUsesCache(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.GetOrCreate(context.Background(), 7)
	require.NoError(t, err)

	// GetOrCreate уже прогрел кеш, хранилище трогать не должны
	for i := 0; i < 3; i++ {
		_, err = svc.Get(context.Background(), 7)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, store.getCalls)
}

func TestBanInvalidatesCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, 7)
	require.NoError(t, err)

	banned, err := svc.IsBanned(ctx, 7)
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, svc.Ban(ctx, 7, "спам", nil))

	banned, err = svc.IsBanned(ctx, 7)
	require.NoError(t, err)
	assert.True(t, banned)

	require.NoError(t, svc.Unban(ctx, 7))

	banned, err = svc.IsBanned(ctx, 7)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestTemporaryBanExpires(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.GetOrCreate(ctx, 9)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, svc.Ban(ctx, 9, "на час", &past))

	// срок вышел, Banned должен вернуть false
	assert.False(t, a.Banned(time.Now()))

	banned, err := svc.IsBanned(ctx, 9)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestIsBannedUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	banned, err := svc.IsBanned(context.Background(), 404)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestSetReferrerFirstWins(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, svc.SetReferrer(ctx, 1, 10))
	require.NoError(t, svc.SetReferrer(ctx, 1, 20))

	a := store.accounts[1]
	require.NotNil(t, a.ReferredBy)
	assert.Equal(t, int64(10), *a.ReferredBy)
}
