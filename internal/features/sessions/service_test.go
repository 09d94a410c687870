package sessions

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/cashier-bot/internal/cache"
	"serotonyl.ru/cashier-bot/internal/common"
)

type fakeStore struct {
	sessions map[int64]*Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[int64]*Session)}
}

func (f *fakeStore) Set(_ context.Context, userID int64, step string, payload json.RawMessage, expiresAt time.Time) error {
	f.sessions[userID] = &Session{
		UserID: userID, Step: step, Payload: payload,
		ExpiresAt: expiresAt, UpdatedAt: time.Now(),
	}
	return nil
}

func (f *fakeStore) Get(_ context.Context, userID int64) (*Session, error) {
	s, ok := f.sessions[userID]
	if !ok || s.Expired(time.Now()) {
		delete(f.sessions, userID)
		return nil, common.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) Clear(_ context.Context, userID int64) error {
	delete(f.sessions, userID)
	return nil
}

func (f *fakeStore) CleanupExpired(_ context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for id, s := range f.sessions {
		if s.Expired(now) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T, ttl time.Duration) (*Service, *fakeStore) {
	t.Helper()
	c, err := cache.New(100)
	require.NoError(t, err)
	store := newFakeStore()
	return NewService(store, c, ttl), store
}

func TestSetAndGetTypedPayload(t *testing.T) {
	svc, _ := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	err := svc.Set(ctx, 1, StepDepositReference, DepositPayload{Method: "syriatel_cash", Amount: 25000})
	require.NoError(t, err)

	sess, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StepDepositReference, sess.Step)

	var p DepositPayload
	require.NoError(t, sess.DecodePayload(&p))
	assert.Equal(t, "syriatel_cash", p.Method)
	assert.Equal(t, int64(25000), p.Amount)
}

func TestSetOverwritesPreviousStep(t *testing.T) {
	svc, _ := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, 1, StepGiftReceiver, nil))
	require.NoError(t, svc.Set(ctx, 1, StepGiftAmount, GiftPayload{ReceiverID: 42}))

	sess, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StepGiftAmount, sess.Step)

	var p GiftPayload
	require.NoError(t, sess.DecodePayload(&p))
	assert.Equal(t, int64(42), p.ReceiverID)
}

func TestGetMissingSession(t *testing.T) {
	svc, _ := newTestService(t, 30*time.Minute)

	_, err := svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, common.ErrNotFound)

	step, err := svc.Step(context.Background(), 404)
	require.NoError(t, err)
	assert.Empty(t, step)
}

func TestExpiredSessionIsGone(t *testing.T) {
	svc, _ := newTestService(t, -time.Minute) // сессия рождается протухшей
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, 1, StepWithdrawAmount, nil))

	_, err := svc.Get(ctx, 1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestClearEndsDialog(t *testing.T) {
	svc, _ := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, 1, StepGiftCode, nil))
	require.NoError(t, svc.Clear(ctx, 1))

	_, err := svc.Get(ctx, 1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCleanupExpired(t *testing.T) {
	svc, store := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, 1, StepGiftCode, nil))
	store.sessions[2] = &Session{UserID: 2, Step: StepGiftCode, ExpiresAt: time.Now().Add(-time.Hour)}

	require.NoError(t, svc.CleanupExpired(ctx))
	assert.Len(t, store.sessions, 1)
	assert.Contains(t, store.sessions, int64(1))
}
