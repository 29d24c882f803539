package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epicstrade/rifas/internal/model"
)

func newTestWalletService(t *testing.T) (*WalletService, *memStore, *model.User) {
	t.Helper()
	st := newMemStore()
	user := st.addUser("alice", model.UserRoleUser, 10000)
	return NewWalletService(&memWallets{st: st}, nil, nil), st, user
}

func TestWalletService_CreditAndDebit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, user := newTestWalletService(t)

	w, err := svc.Credit(ctx, user.ID, decimal.RequireFromString("25.50"), model.TxAdminCredit, "user:admin", "bonus")
	require.NoError(t, err)
	assert.Equal(t, "125.50", w.Balance.StringFixed(2))

	w, err = svc.Debit(ctx, user.ID, decimal.RequireFromString("0.50"), model.TxAdminDebit, "user:admin", "fix")
	require.NoError(t, err)
	assert.Equal(t, "125.00", w.Balance.StringFixed(2))
}

func TestWalletService_DebitNeverOverdraws(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, user := newTestWalletService(t)

	_, err := svc.Debit(ctx, user.ID, decimal.RequireFromString("100.01"), model.TxAdminDebit, "", "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(10000), st.wallet(user.ID).balance)
}

func TestWalletService_RejectsInvalidAmounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, user := newTestWalletService(t)

	for _, amount := range []string{"0", "-1", "1.005"} {
		_, err := svc.Credit(ctx, user.ID, decimal.RequireFromString(amount), model.TxAdminCredit, "", "")
		assert.ErrorIs(t, err, ErrInvalidAmount, amount)
	}
	_, err := svc.AddPoints(ctx, user.ID, 0, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWalletService_LockUnlockCapture(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, user := newTestWalletService(t)

	w, err := svc.Lock(ctx, user.ID, decimal.NewFromInt(40), "auction:1")
	require.NoError(t, err)
	assert.Equal(t, "60.00", w.Balance.StringFixed(2))
	assert.Equal(t, "40.00", w.Locked.StringFixed(2))
	assert.Equal(t, "100.00", w.Total().StringFixed(2))

	w, err = svc.Unlock(ctx, user.ID, decimal.NewFromInt(15), "auction:1")
	require.NoError(t, err)
	assert.Equal(t, "75.00", w.Balance.StringFixed(2))
	assert.Equal(t, "25.00", w.Locked.StringFixed(2))

	w, err = svc.CaptureLocked(ctx, user.ID, decimal.NewFromInt(25), "auction:1")
	require.NoError(t, err)
	assert.Equal(t, "75.00", w.Balance.StringFixed(2))
	assert.True(t, w.Locked.IsZero())

	_, err = svc.CaptureLocked(ctx, user.ID, decimal.NewFromInt(1), "auction:1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestWalletService_LockMoreThanBalance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, user := newTestWalletService(t)

	_, err := svc.Lock(ctx, user.ID, decimal.NewFromInt(101), "auction:1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, memWallet{balance: 10000}, st.wallet(user.ID))
}

func TestWalletService_AddPoints(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st, user := newTestWalletService(t)

	w, err := svc.AddPoints(ctx, user.ID, 15, "raffle:1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), w.Points)
	assert.Len(t, st.ledgerOf(user.ID, model.TxPoints), 1)
}

func TestWalletService_UnknownUser(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestWalletService(t)

	_, err := svc.GetWallet(context.Background(), "user:missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestWalletService_PublishesWalletUpdates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newMemStore()
	user := st.addUser("alice", model.UserRoleUser, 0)
	hub := NewEventHub()
	t.Cleanup(hub.Close)
	sub := hub.SubscribeUser(user.ID, "sub-1")

	svc := NewWalletService(&memWallets{st: st}, hub, nil)
	_, err := svc.Credit(ctx, user.ID, decimal.NewFromInt(5), model.TxAdminCredit, "", "")
	require.NoError(t, err)

	event := <-sub.Events
	assert.Equal(t, EventWalletUpdated, event.Type)
	assert.Equal(t, "5.00", event.Data.(*model.Wallet).Balance.StringFixed(2))
}
