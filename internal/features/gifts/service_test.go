package gifts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/features/ledger"
	"serotonyl.ru/cashier-bot/internal/features/settings"
	"serotonyl.ru/cashier-bot/internal/features/users"
)

// fakeLedger — балансы в памяти с семантикой guarded-списания.
type fakeLedger struct {
	balances map[int64]int64
	recorded []*ledger.Transaction

	failCreditFor int64 // userID, для которого Credit падает
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[int64]int64)}
}

func (f *fakeLedger) Credit(_ context.Context, userID, amount int64, _ string) (int64, error) {
	if userID == f.failCreditFor {
		return 0, errors.New("отказ хранилища")
	}
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

func (f *fakeLedger) Record(_ context.Context, t *ledger.Transaction) (int64, error) {
	f.recorded = append(f.recorded, t)
	return int64(len(f.recorded)), nil
}

type fakeAccounts struct {
	accounts map[int64]*users.Account
}

func (f *fakeAccounts) Get(_ context.Context, userID int64) (*users.Account, error) {
	a, ok := f.accounts[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return a, nil
}

type fakeSettings struct {
	values map[string]int64
}

func (f *fakeSettings) GetInt(_ context.Context, key string) (int64, error) {
	return f.values[key], nil
}

// fakeStore — коды и аудит в памяти.
type fakeStore struct {
	codes     map[string]*GiftCode
	usage     map[string]map[int64]bool
	transfers []*Transfer
	nextID    int64
}

func newFakeCodeStore() *fakeStore {
	return &fakeStore{codes: make(map[string]*GiftCode), usage: make(map[string]map[int64]bool), nextID: 1}
}

func (f *fakeStore) CreateCode(_ context.Context, c *GiftCode) error {
	c.ID = f.nextID
	c.CreatedAt = time.Now()
	f.nextID++
	f.codes[c.Code] = c
	return nil
}

func (f *fakeStore) GetCode(_ context.Context, code string) (*GiftCode, error) {
	c, ok := f.codes[code]
	if !ok {
		return nil, common.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) Redeem(_ context.Context, code string, userID int64) (*GiftCode, error) {
	c, ok := f.codes[code]
	if !ok {
		return nil, common.ErrNotFound
	}
	if !c.Usable(time.Now()) {
		return nil, common.ErrExpiredOrExhausted
	}
	if f.usage[code] == nil {
		f.usage[code] = make(map[int64]bool)
	}
	if f.usage[code][userID] {
		return nil, common.ErrCodeAlreadyRedeemed
	}
	f.usage[code][userID] = true
	c.UsedCount++
	return c, nil
}

func (f *fakeStore) RecordTransfer(_ context.Context, t *Transfer) error {
	t.ID = int64(len(f.transfers) + 1)
	f.transfers = append(f.transfers, t)
	return nil
}

func (f *fakeStore) CleanupExpired(_ context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for code, c := range f.codes {
		if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
			delete(f.codes, code)
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeLedger, *fakeAccounts, *fakeSettings) {
	t.Helper()
	c, err := cache.New(100)
	require.NoError(t, err)

	store := newFakeCodeStore()
	l := newFakeLedger()
	accounts := &fakeAccounts{accounts: map[int64]*users.Account{
		1: {UserID: 1},
		2: {UserID: 2},
		3: {UserID: 3, IsBanned: true},
	}}
	cfg := &fakeSettings{values: map[string]int64{settings.KeyGiftFeePercent: 0}}

	return NewService(store, l, accounts, cfg, c), store, l, accounts, cfg
}

func TestTransferWithoutFee(t *testing.T) {
	svc, store, l, _, _ := newTestService(t)
	l.balances[1] = 10000

	tr, err := svc.Transfer(context.Background(), 1, 2, 4000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tr.Fee)
	assert.Equal(t, int64(4000), tr.Net)
	assert.Equal(t, int64(6000), l.balances[1])
	assert.Equal(t, int64(4000), l.balances[2])
	assert.Len(t, store.transfers, 1)
	assert.Len(t, l.recorded, 2)
}

func TestTransferTakesFee(t *testing.T) {
	svc, _, l, _, cfg := newTestService(t)
	cfg.values[settings.KeyGiftFeePercent] = 10
	l.balances[1] = 10000

	tr, err := svc.Transfer(context.Background(), 1, 2, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(300), tr.Fee)
	assert.Equal(t, int64(2700), tr.Net)
	// с отправителя списана вся сумма, получателю пришло за вычетом
	assert.Equal(t, int64(7000), l.balances[1])
	assert.Equal(t, int64(2700), l.balances[2])
}

func TestTransferRejectsSelf(t *testing.T) {
	svc, _, l, _, _ := newTestService(t)
	l.balances[1] = 10000

	_, err := svc.Transfer(context.Background(), 1, 1, 100)
	assert.ErrorIs(t, err, common.ErrSelfTransfer)
}

func TestTransferRejectsBannedReceiver(t *testing.T) {
	svc, _, l, _, _ := newTestService(t)
	l.balances[1] = 10000

	_, err := svc.Transfer(context.Background(), 1, 3, 100)
	assert.ErrorIs(t, err, common.ErrReceiverBanned)
	assert.Equal(t, int64(10000), l.balances[1])
}

func TestTransferInsufficientBalance(t *testing.T) {
	svc, _, l, _, _ := newTestService(t)
	l.balances[1] = 50

	_, err := svc.Transfer(context.Background(), 1, 2, 100)
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)
}

func TestTransferCompensatesFailedSecondLeg(t *testing.T) {
	svc, _, l, _, _ := newTestService(t)
	l.balances[1] = 10000
	l.failCreditFor = 2

	_, err := svc.Transfer(context.Background(), 1, 2, 4000)
	require.Error(t, err)
	// списание откатилось компенсирующим начислением
	assert.Equal(t, int64(10000), l.balances[1])
	assert.Equal(t, int64(0), l.balances[2])
}

func TestCreateCodeAndRedeem(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCode(ctx, 777, 5000, 2, nil)
	require.NoError(t, err)
	assert.Len(t, c.Code, 8)

	amount, err := svc.Redeem(ctx, 1, c.Code)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), amount)

	// второй раз тот же пользователь не может
	_, err = svc.Redeem(ctx, 1, c.Code)
	assert.ErrorIs(t, err, common.ErrCodeAlreadyRedeemed)

	// другой пользователь добирает лимит
	_, err = svc.Redeem(ctx, 2, c.Code)
	require.NoError(t, err)

	// лимит исчерпан
	_, err = svc.Redeem(ctx, 3, c.Code)
	assert.ErrorIs(t, err, common.ErrExpiredOrExhausted)
}

func TestRedeemExpiredCode(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	past := time.Now().Add(-time.Hour)
	store.codes["OLD12345"] = &GiftCode{Code: "OLD12345", Amount: 100, MaxUses: 1, ExpiresAt: &past}

	_, err := svc.Redeem(context.Background(), 1, "OLD12345")
	assert.ErrorIs(t, err, common.ErrExpiredOrExhausted)
}

func TestRedeemUnknownCode(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, err := svc.Redeem(context.Background(), 1, "NOPE0000")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateCodeRejectsBadParams(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, err := svc.CreateCode(context.Background(), 777, 0, 1, nil)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.CreateCode(context.Background(), 777, 100, 0, nil)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestCleanupExpiredCodes(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	store.codes["DEAD0001"] = &GiftCode{Code: "DEAD0001", Amount: 1, MaxUses: 1, ExpiresAt: &past}
	store.codes["LIVE0001"] = &GiftCode{Code: "LIVE0001", Amount: 1, MaxUses: 1, ExpiresAt: &future}

	require.NoError(t, svc.CleanupExpired(ctx))
	assert.NotContains(t, store.codes, "DEAD0001")
	assert.Contains(t, store.codes, "LIVE0001")
}
