package referrals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
	"serotonyl.ru/cashier-bot/internal/features/settings"
	"serotonyl.ru/cashier-bot/internal/features/users"
)

// fakeStore — таблица referrals в памяти, с той же семантикой
// активации и обнуления накопителя при выплате.
type fakeStore struct {
	rows    map[int64]*Referral // по referred_id
	nextID  int64
	payouts map[int64]int64 // referrer_id -> выплачено всего
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[int64]*Referral), nextID: 1, payouts: make(map[int64]int64)}
}

func (f *fakeStore) Create(_ context.Context, referrerID, referredID int64) error {
	if _, ok := f.rows[referredID]; ok {
		return nil // первый реферер побеждает
	}
	f.rows[referredID] = &Referral{ID: f.nextID, ReferrerID: referrerID, ReferredID: referredID}
	f.nextID++
	return nil
}

func (f *fakeStore) RecordCharge(_ context.Context, referredID, amount, threshold int64) error {
	r, ok := f.rows[referredID]
	if !ok {
		return nil
	}
	r.AmountCharged += amount
	if !r.Active && r.AmountCharged+r.CommissionEarned >= threshold {
		r.Active = true
	}
	return nil
}

func (f *fakeStore) StatsFor(_ context.Context, referrerID, minCharge int64) (*Stats, error) {
	var s Stats
	for _, r := range f.rows {
		if r.ReferrerID != referrerID {
			continue
		}
		s.Total++
		if r.Active {
			s.Active++
		}
		if r.Active && r.AmountCharged >= minCharge {
			s.Eligible++
			s.ChargedSum += r.AmountCharged
		}
		s.TotalEarned += r.CommissionEarned
	}
	return &s, nil
}

func (f *fakeStore) ListPayable(_ context.Context, minCharge, minActive int64) ([]*Payout, error) {
	agg := make(map[int64]*Payout)
	for _, r := range f.rows {
		if !r.Active || r.AmountCharged < minCharge {
			continue
		}
		p, ok := agg[r.ReferrerID]
		if !ok {
			p = &Payout{ReferrerID: r.ReferrerID}
			agg[r.ReferrerID] = p
		}
		p.EligibleCount++
		p.ChargedSum += r.AmountCharged
	}
	var out []*Payout
	for _, p := range agg {
		if p.EligibleCount >= minActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) SettlePayout(_ context.Context, referrerID, commission, minCharge int64) error {
	f.payouts[referrerID] += commission
	for _, r := range f.rows {
		if r.ReferrerID == referrerID && r.Active && r.AmountCharged >= minCharge {
			r.CommissionEarned += r.AmountCharged
			r.AmountCharged = 0
		}
	}
	return nil
}

type fakeAccounts struct {
	byCode    map[string]*users.Account
	referrers map[int64]int64
}

func (f *fakeAccounts) GetByReferralCode(_ context.Context, code string) (*users.Account, error) {
	a, ok := f.byCode[code]
	if !ok {
		return nil, common.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccounts) SetReferrer(_ context.Context, userID, referrerID int64) error {
	if _, ok := f.referrers[userID]; !ok {
		f.referrers[userID] = referrerID
	}
	return nil
}

type fakeSettings struct {
	values map[string]int64
}

func (f *fakeSettings) GetInt(_ context.Context, key string) (int64, error) {
	return f.values[key], nil
}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeSettings) {
	t.Helper()
	c, err := cache.New(100)
	require.NoError(t, err)

	store := newFakeStore()
	accounts := &fakeAccounts{
		byCode: map[string]*users.Account{
			"REF000010AAAA": {UserID: 10, ReferralCode: "REF000010AAAA"},
		},
		referrers: make(map[int64]int64),
	}
	cfg := &fakeSettings{values: map[string]int64{
		settings.KeyReferralCommissionRate:    10,
		settings.KeyReferralBonus:             2000,
		settings.KeyReferralMinActive:         5,
		settings.KeyReferralMinCharge:         100000,
		settings.KeyReferralActivationDeposit: 100000,
	}}
	return NewService(store, accounts, cfg, c), store, cfg
}

// addEligible добавляет рефереру n активированных рефералов
// с депозитами по charged каждый.
func addEligible(t *testing.T, svc *Service, store *fakeStore, referrerID int64, n int, charged int64) {
	t.Helper()
	ctx := context.Background()
	base := referrerID*1000 + 100
	for i := 0; i < n; i++ {
		id := base + int64(i)
		require.NoError(t, store.Create(ctx, referrerID, id))
		require.NoError(t, svc.RecordCharge(ctx, id, charged))
	}
}

func TestRegisterByCode(t *testing.T) {
	svc, store, _ := newTestService(t)

	svc.Register(context.Background(), 55, "REF000010AAAA")

	r, ok := store.rows[55]
	require.True(t, ok)
	assert.Equal(t, int64(10), r.ReferrerID)
}

func TestRegisterIgnoresSelfAndUnknownCode(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	svc.Register(ctx, 10, "REF000010AAAA") // свой же код
	svc.Register(ctx, 55, "REFNOSUCHCODE")
	assert.Empty(t, store.rows)
}

func TestChargeActivatesAtThreshold(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	svc.Register(ctx, 55, "REF000010AAAA")

	require.NoError(t, svc.RecordCharge(ctx, 55, 40000))
	assert.False(t, store.rows[55].Active)

	require.NoError(t, svc.RecordCharge(ctx, 55, 60000))
	assert.True(t, store.rows[55].Active)
}

func TestChargeForUserWithoutReferrerIsNoop(t *testing.T) {
	svc, store, _ := newTestService(t)

	require.NoError(t, svc.RecordCharge(context.Background(), 999, 500000))
	assert.Empty(t, store.rows)
}

func TestStatsShowsPendingOnlyWhenPayable(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	// 4 учитываемых реферала — меньше порога в 5
	addEligible(t, svc, store, 10, 4, 150000)

	stats, err := svc.Stats(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Eligible)
	assert.Zero(t, stats.Pending)

	// пятый делает реферера готовым к выплате
	addEligible(t, svc, store, 10, 1, 150000)

	stats, err = svc.Stats(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Eligible)
	// 5*150000*10% + 5*2000 = 75000 + 10000
	assert.Equal(t, int64(85000), stats.Pending)
}

func TestDistributePaysAndIsIdempotent(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	addEligible(t, svc, store, 10, 5, 150000)

	paid, err := svc.Distribute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, paid)
	assert.Equal(t, int64(85000), store.payouts[10])

	// повторный запуск цикла никому не платит
	paid, err = svc.Distribute(ctx)
	require.NoError(t, err)
	assert.Zero(t, paid)
	assert.Equal(t, int64(85000), store.payouts[10])
}

func TestDistributeSkipsBelowMinActive(t *testing.T) {
	svc, store, _ := newTestService(t)

	addEligible(t, svc, store, 10, 3, 150000)

	paid, err := svc.Distribute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, paid)
}

func TestDistributeIgnoresLowCharges(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	// активированы (порог активации пройден суммарно), но в текущем
	// цикле депозиты ниже min_charge учитываться не должны
	addEligible(t, svc, store, 10, 5, 100000)

	// выплата переложила депозиты в commission_earned
	paid, err := svc.Distribute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, paid)

	// новые мелкие депозиты не дотягивают до min_charge
	for id := range store.rows {
		require.NoError(t, svc.RecordCharge(ctx, id, 50000))
	}
	paid, err = svc.Distribute(ctx)
	require.NoError(t, err)
	assert.Zero(t, paid)
}
