package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/features/ledger"
	"serotonyl.ru/cashier-bot/internal/features/settings"
)

type fakeStore struct {
	methods map[string]*Method
}

func newFakeStore() *fakeStore {
	f := &fakeStore{methods: make(map[string]*Method)}
	for i := range defaultMethods {
		m := defaultMethods[i]
		m.UpdatedAt = time.Now()
		f.methods[m.Key] = &m
	}
	return f
}

func (f *fakeStore) Get(_ context.Context, key string) (*Method, error) {
	m, ok := f.methods[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) List(_ context.Context) ([]*Method, error) {
	var out []*Method
	for _, m := range f.methods {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) SetPaused(_ context.Context, key string, paused bool) error {
	m, ok := f.methods[key]
	if !ok {
		return common.ErrNotFound
	}
	m.Paused = paused
	return nil
}

func (f *fakeStore) SetEnabled(_ context.Context, key string, enabled bool) error {
	m, ok := f.methods[key]
	if !ok {
		return common.ErrNotFound
	}
	m.Enabled = enabled
	return nil
}

func (f *fakeStore) UpdateLimits(_ context.Context, key string, min, max int64) error {
	m, ok := f.methods[key]
	if !ok {
		return common.ErrNotFound
	}
	m.MinAmount, m.MaxAmount = min, max
	return nil
}

func (f *fakeStore) EnsureDefaults(_ context.Context) error { return nil }

type fakeLedger struct {
	pending []*ledger.Transaction
}

func (f *fakeLedger) CreatePending(_ context.Context, t *ledger.Transaction) (int64, error) {
	f.pending = append(f.pending, t)
	return int64(len(f.pending)), nil
}

type fakeSettings struct {
	ints  map[string]int64
	bools map[string]bool
}

func (f *fakeSettings) GetInt(_ context.Context, key string) (int64, error) {
	return f.ints[key], nil
}

func (f *fakeSettings) GetBool(_ context.Context, key string) (bool, error) {
	return f.bools[key], nil
}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeLedger, *fakeSettings) {
	t.Helper()
	store := newFakeStore()
	l := &fakeLedger{}
	cfg := &fakeSettings{
		ints: map[string]int64{
			settings.KeyExchangeRate:       13000,
			settings.KeyWithdrawFeePercent: 0,
		},
		bools: map[string]bool{
			settings.KeyDepositEnabled:  true,
			settings.KeyWithdrawEnabled: true,
		},
	}
	return NewService(store, l, cfg), store, l, cfg
}

func TestCreateDepositWithinLimits(t *testing.T) {
	svc, _, l, _ := newTestService(t)

	id, lira, err := svc.CreateDeposit(context.Background(), 1, MethodSyriatelCash, 25000, "TX-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, int64(25000), lira)

	require.Len(t, l.pending, 1)
	assert.Equal(t, ledger.KindDeposit, l.pending[0].Kind)
	assert.Equal(t, "TX-1", l.pending[0].ExternalReference)
}

func TestCreateDepositEnforcesLimits(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.CreateDeposit(ctx, 1, MethodSyriatelCash, 500, "TX-2")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, _, err = svc.CreateDeposit(ctx, 1, MethodSyriatelCash, 60000, "TX-3")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestUSDDepositConverts(t *testing.T) {
	svc, _, l, _ := newTestService(t)

	_, lira, err := svc.CreateDeposit(context.Background(), 1, MethodShamCashUSD, 100, "TX-4")
	require.NoError(t, err)
	assert.Equal(t, int64(1300000), lira)
	assert.Equal(t, int64(1300000), l.pending[0].Amount)
}

func TestPausedMethodUnavailable(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Pause(ctx, MethodShamCash, true))
	_, _, err := svc.CreateDeposit(ctx, 1, MethodShamCash, 5000, "TX-5")
	assert.ErrorIs(t, err, common.ErrMethodUnavailable)

	// и из меню пользователя метод пропадает
	available, err := svc.AvailableMethods(ctx)
	require.NoError(t, err)
	for _, m := range available {
		assert.NotEqual(t, MethodShamCash, m.Key)
	}
}

func TestDepositDisabledGlobally(t *testing.T) {
	svc, _, _, cfg := newTestService(t)
	cfg.bools[settings.KeyDepositEnabled] = false

	_, _, err := svc.CreateDeposit(context.Background(), 1, MethodSyriatelCash, 5000, "TX-6")
	assert.ErrorIs(t, err, common.ErrMethodUnavailable)
}

func TestCreateWithdrawTakesFee(t *testing.T) {
	svc, _, l, cfg := newTestService(t)
	cfg.ints[settings.KeyWithdrawFeePercent] = 5

	id, lira, fee, err := svc.CreateWithdraw(context.Background(), 1, MethodSyriatelCash, 20000, "0999999999")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, int64(20000), lira)
	assert.Equal(t, int64(1000), fee)

	require.Len(t, l.pending, 1)
	assert.Equal(t, ledger.KindWithdraw, l.pending[0].Kind)
	assert.Equal(t, "0999999999", l.pending[0].Details)
}

func TestWithdrawDisabledGlobally(t *testing.T) {
	svc, _, _, cfg := newTestService(t)
	cfg.bools[settings.KeyWithdrawEnabled] = false

	_, _, _, err := svc.CreateWithdraw(context.Background(), 1, MethodSyriatelCash, 5000, "x")
	assert.ErrorIs(t, err, common.ErrMethodUnavailable)
}

func TestUpdateLimitsValidation(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.UpdateLimits(ctx, MethodSyriatelCash, 0, 100), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.UpdateLimits(ctx, MethodSyriatelCash, 100, 50), common.ErrInvalidAmount)

	require.NoError(t, svc.UpdateLimits(ctx, MethodSyriatelCash, 2000, 100000))
	assert.Equal(t, int64(2000), store.methods[MethodSyriatelCash].MinAmount)
}

func TestUnknownMethod(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, _, err := svc.CreateDeposit(context.Background(), 1, "paypal", 100, "TX-7")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
