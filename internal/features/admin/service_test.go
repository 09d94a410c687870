package admin

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/config"
	"serotonyl.ru/cashier-bot/internal/features/ledger"
)

// encodeArgon2id строит хеш в том же формате, что scripts/generate_hash.go.
func encodeArgon2id(password string) string {
	salt := []byte("0123456789abcdef")
	hash := argon2.IDKey([]byte(password), salt, 3, 65536, 2, 32)
	return fmt.Sprintf("$argon2id$v=19$m=65536,t=3,p=2$%s$%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

type fakeStore struct {
	admins   map[int64]*Admin
	sessions map[int64]*Session
	attempts []LoginAttempt
}

func newFakeStore() *fakeStore {
	return &fakeStore{admins: make(map[int64]*Admin), sessions: make(map[int64]*Session)}
}

func (f *fakeStore) IsAdmin(_ context.Context, userID int64) (bool, error) {
	_, ok := f.admins[userID]
	return ok, nil
}

func (f *fakeStore) Add(_ context.Context, userID, addedBy int64) error {
	if _, ok := f.admins[userID]; !ok {
		f.admins[userID] = &Admin{UserID: userID, AddedBy: addedBy, CreatedAt: time.Now()}
	}
	return nil
}

func (f *fakeStore) Remove(_ context.Context, userID int64) error {
	if _, ok := f.admins[userID]; !ok {
		return common.ErrNotFound
	}
	delete(f.admins, userID)
	return nil
}

func (f *fakeStore) List(_ context.Context) ([]*Admin, error) {
	var out []*Admin
	for _, a := range f.admins {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) CreateSession(_ context.Context, s *Session) error {
	s.IsActive = true
	f.sessions[s.UserID] = s
	return nil
}

func (f *fakeStore) GetActiveSession(_ context.Context, userID int64) (*Session, error) {
	s, ok := f.sessions[userID]
	if !ok || !s.IsActive || time.Now().After(s.ExpiresAt) {
		return nil, common.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) DeactivateSession(_ context.Context, userID int64) error {
	if s, ok := f.sessions[userID]; ok {
		s.IsActive = false
	}
	return nil
}

func (f *fakeStore) UpdateActivity(_ context.Context, _ int64) error { return nil }

func (f *fakeStore) LogAttempt(_ context.Context, userID int64, success bool) error {
	f.attempts = append(f.attempts, LoginAttempt{UserID: userID, Success: success, AttemptTime: time.Now()})
	return nil
}

func (f *fakeStore) RecentFailedAttempts(_ context.Context, userID int64, period time.Duration) (int, error) {
	since := time.Now().Add(-period)
	count := 0
	for _, a := range f.attempts {
		if a.UserID == userID && !a.Success && a.AttemptTime.After(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CleanupStale(_ context.Context) (int64, error) { return 0, nil }

type fakeLedger struct {
	balances  map[int64]int64
	pending   map[int64]*ledger.Transaction
	finalized []int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[int64]int64), pending: make(map[int64]*ledger.Transaction)}
}

func (f *fakeLedger) Credit(_ context.Context, userID, amount int64, _ string) (int64, error) {
	f.balances[userID] += amount
	return f.balances[userID], nil
}

func (f *fakeLedger) Debit(_ context.Context, userID, amount int64, _ string) (int64, error) {
	if f.balances[userID] < amount {
		return 0, common.ErrInsufficientBalance
	}
	f.balances[userID] -= amount
	return f.balances[userID], nil
}

func (f *fakeLedger) Record(_ context.Context, _ *ledger.Transaction) (int64, error) { return 1, nil }

func (f *fakeLedger) Finalize(_ context.Context, txID int64, approve bool, adminID int64) (*ledger.Transaction, error) {
	t, ok := f.pending[txID]
	if !ok {
		return nil, common.ErrNotFound
	}
	if t.Status != ledger.StatusPending {
		return nil, common.ErrAlreadyFinalized
	}
	if approve {
		t.Status = ledger.StatusApproved
		if t.Kind == ledger.KindDeposit {
			f.balances[t.UserID] += t.Amount
		}
	} else {
		t.Status = ledger.StatusRejected
	}
	t.AdminID = &adminID
	f.finalized = append(f.finalized, txID)
	return t, nil
}

type fakeReferrals struct {
	charges map[int64]int64
}

func (f *fakeReferrals) RecordCharge(_ context.Context, userID, amount int64) error {
	f.charges[userID] += amount
	return nil
}

const testPassword = "очень-секретно"

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeLedger, *fakeReferrals) {
	t.Helper()
	c, err := cache.New(100)
	require.NoError(t, err)

	store := newFakeStore()
	l := newFakeLedger()
	refs := &fakeReferrals{charges: make(map[int64]int64)}
	cfg := &config.Config{
		AdminIDs:          []int64{777},
		AdminPasswordHash: encodeArgon2id(testPassword),
	}
	return NewService(store, l, refs, cfg, c), store, l, refs
}

func TestIsAdmin(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	assert.True(t, svc.IsAdmin(ctx, 777))  // супер-админ из окружения
	assert.False(t, svc.IsAdmin(ctx, 100)) // посторонний

	require.NoError(t, svc.AddAdmin(ctx, 100, 777))
	assert.True(t, svc.IsAdmin(ctx, 100))
}

func TestLoginFlow(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	assert.False(t, svc.Authenticated(ctx, 777))

	assert.ErrorIs(t, svc.Login(ctx, 777, "не тот пароль"), common.ErrWrongPassword)
	require.NoError(t, svc.Login(ctx, 777, testPassword))
	assert.True(t, svc.Authenticated(ctx, 777))

	require.NoError(t, svc.Logout(ctx, 777))
	assert.False(t, svc.Authenticated(ctx, 777))
}

func TestLoginBlocksAfterThreeFailures(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, svc.Login(ctx, 777, "мимо"), common.ErrWrongPassword)
	}
	// даже правильный пароль больше не принимается
	assert.ErrorIs(t, svc.Login(ctx, 777, testPassword), common.ErrTooManyAttempts)
}

func TestLoginRejectsNonAdmin(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	assert.ErrorIs(t, svc.Login(context.Background(), 12345, testPassword), common.ErrNotAdmin)
}

func TestApproveDepositRecordsReferralCharge(t *testing.T) {
	svc, _, l, refs := newTestService(t)
	ctx := context.Background()

	l.pending[1] = &ledger.Transaction{ID: 1, UserID: 5, Kind: ledger.KindDeposit, Amount: 50000, Status: ledger.StatusPending}

	tx, err := svc.Approve(ctx, 1, 777)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, tx.Status)
	assert.Equal(t, int64(50000), l.balances[5])
	assert.Equal(t, int64(50000), refs.charges[5])
}

func TestRejectDoesNotTouchReferrals(t *testing.T) {
	svc, _, l, refs := newTestService(t)
	ctx := context.Background()

	l.pending[2] = &ledger.Transaction{ID: 2, UserID: 5, Kind: ledger.KindDeposit, Amount: 50000, Status: ledger.StatusPending}

	tx, err := svc.Reject(ctx, 2, 777)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusRejected, tx.Status)
	assert.Zero(t, l.balances[5])
	assert.Empty(t, refs.charges)
}

func TestAdjustBalance(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	balance, err := svc.AdjustBalance(ctx, 777, 5, 10000, true)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), balance)

	balance, err = svc.AdjustBalance(ctx, 777, 5, 4000, false)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), balance)

	_, err = svc.AdjustBalance(ctx, 777, 5, 0, true)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.AdjustBalance(ctx, 777, 5, 100000, false)
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)
}

func TestRemoveAdminProtectsSuperAdmin(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.RemoveAdmin(ctx, 777), common.ErrNotAdmin)

	require.NoError(t, svc.AddAdmin(ctx, 100, 777))
	require.NoError(t, svc.RemoveAdmin(ctx, 100))
	// кеш сброшен, права сняты
	assert.False(t, svc.IsAdmin(ctx, 100))
}

func TestNotifyTargetsDeduplicates(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddAdmin(ctx, 100, 777))
	require.NoError(t, svc.AddAdmin(ctx, 777, 777)) // супер-админ попал и в таблицу

	targets := svc.NotifyTargets(ctx)
	assert.ElementsMatch(t, []int64{777, 100}, targets)
}
