package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epicstrade/rifas/internal/clock"
	"github.com/epicstrade/rifas/internal/model"
)

type raffleFixture struct {
	st       *memStore
	repo     *memRaffles
	clk      *clock.Manual
	notifier *recordingNotifier
	svc      *RaffleService
	admin    *model.User
	seller   *model.User
	buyer    *model.User
}

var raffleEpoch = time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)

func newRaffleFixture(t *testing.T) *raffleFixture {
	t.Helper()
	st := newMemStore()
	f := &raffleFixture{
		st:       st,
		repo:     newMemRaffles(st),
		clk:      clock.NewManual(raffleEpoch),
		notifier: &recordingNotifier{},
		admin:    st.addUser("admin", model.UserRoleAdmin, 0),
		seller:   st.addUser("seller", model.UserRoleUser, 0),
		buyer:    st.addUser("buyer", model.UserRoleUser, 10000),
	}
	f.svc = f.service(f.repo)
	return f
}

func (f *raffleFixture) service(repo RaffleRepository) *RaffleService {
	return NewRaffleService(RaffleServiceConfig{
		Raffles:         repo,
		Users:           &memUsers{st: f.st},
		Wallets:         &memWallets{st: f.st},
		Notifier:        f.notifier,
		Clock:           f.clk,
		MaxTickets:      1000,
		MaxPerPurchase:  50,
		PointsPerTicket: 10,
		FeePercent:      decimal.NewFromInt(10),
	})
}

func raffleRequest(total int, price string, drawAt time.Time) *model.CreateRaffleRequest {
	return &model.CreateRaffleRequest{
		Title:        "AK-47 | Redline",
		Game:         "cs2",
		Item:         model.Item{Name: "AK-47 | Redline (Field-Tested)", MarketHashName: "AK-47 | Redline (Field-Tested)"},
		TicketPrice:  decimal.RequireFromString(price),
		TotalTickets: total,
		DrawAt:       drawAt.Format(time.RFC3339),
	}
}

// activeRaffle creates and approves a raffle of the seller
func (f *raffleFixture) activeRaffle(t *testing.T, total int, price string) *model.Raffle {
	t.Helper()
	ctx := context.Background()
	r, err := f.svc.Create(ctx, f.seller.ID, raffleRequest(total, price, raffleEpoch.Add(24*time.Hour)))
	require.NoError(t, err)
	r, err = f.svc.Approve(ctx, r.ID)
	require.NoError(t, err)
	return r
}

func TestRaffleService_CreateStatusDependsOnRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	drawAt := raffleEpoch.Add(time.Hour)

	pending, err := f.svc.Create(ctx, f.seller.ID, raffleRequest(10, "1.00", drawAt))
	require.NoError(t, err)
	assert.Equal(t, model.RaffleStatusPending, pending.Status)
	assert.Nil(t, pending.Seed, "seed must stay hidden")
	assert.Len(t, pending.SeedHash, 64)
	assert.Equal(t, 730, pending.Game.AppID)

	active, err := f.svc.Create(ctx, f.admin.ID, raffleRequest(10, "1.00", drawAt))
	require.NoError(t, err)
	assert.Equal(t, model.RaffleStatusActive, active.Status)
}

func TestRaffleService_CreateValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)

	_, err := f.svc.Create(ctx, f.seller.ID, raffleRequest(10, "1.00", raffleEpoch.Add(-time.Minute)))
	assert.ErrorIs(t, err, ErrInvalidDrawTime)

	_, err = f.svc.Create(ctx, f.seller.ID, raffleRequest(1001, "1.00", raffleEpoch.Add(time.Hour)))
	assert.ErrorIs(t, err, ErrTicketLimitExceeded)

	req := raffleRequest(10, "1.00", raffleEpoch.Add(time.Hour))
	req.Game = "minecraft"
	_, err = f.svc.Create(ctx, f.seller.ID, req)
	assert.ErrorIs(t, err, ErrUnsupportedGame)

	_, err = f.svc.Create(ctx, "user:ghost", raffleRequest(10, "1.00", raffleEpoch.Add(time.Hour)))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRaffleService_ApproveAndReject(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)

	r, err := f.svc.Create(ctx, f.seller.ID, raffleRequest(10, "1.00", raffleEpoch.Add(time.Hour)))
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, r.ID, "")
	assert.ErrorIs(t, err, ErrReasonRequired)

	rejected, err := f.svc.Reject(ctx, r.ID, "fake item")
	require.NoError(t, err)
	assert.Equal(t, model.RaffleStatusRejected, rejected.Status)

	_, err = f.svc.Approve(ctx, r.ID)
	assert.ErrorIs(t, err, ErrRaffleNotPending)

	_, err = f.svc.Approve(ctx, "raffle:missing")
	assert.ErrorIs(t, err, ErrRaffleNotFound)
}

func TestRaffleService_BuyTicketsAssignsSequentialNumbers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 10, "2.50")

	first, err := f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, first.Numbers)
	assert.Equal(t, "7.50", first.Total.StringFixed(2))
	assert.Equal(t, int64(30), first.PointsEarned)
	assert.Equal(t, "92.50", first.Wallet.Balance.StringFixed(2))
	assert.Equal(t, int64(30), first.Wallet.Points)

	second, err := f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, second.Numbers)
	assert.Equal(t, 5, second.Raffle.TicketsSold)

	tickets, err := f.svc.ListTickets(ctx, r.ID, f.buyer.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 5)
}

func TestRaffleService_BuyTicketsRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 5, "1.00")

	_, err := f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 51)
	assert.ErrorIs(t, err, ErrTicketLimitExceeded)

	_, err = f.svc.BuyTickets(ctx, f.seller.ID, r.ID, 1)
	assert.ErrorIs(t, err, ErrOwnRaffle)

	_, err = f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 6)
	assert.ErrorIs(t, err, ErrRaffleSoldOut)

	pending, err := f.svc.Create(ctx, f.seller.ID, raffleRequest(5, "1.00", raffleEpoch.Add(time.Hour)))
	require.NoError(t, err)
	_, err = f.svc.BuyTickets(ctx, f.buyer.ID, pending.ID, 1)
	assert.ErrorIs(t, err, ErrRaffleNotActive)

	f.clk.Set(r.DrawAt)
	_, err = f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 1)
	assert.ErrorIs(t, err, ErrRaffleNotActive, "sales stop at draw time")
}

func TestRaffleService_BannedUserCannotBuy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 5, "1.00")

	reason := "fraud"
	_, err := (&memUsers{st: f.st}).SetBanned(ctx, f.buyer.ID, true, &reason)
	require.NoError(t, err)

	_, err = f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 1)
	assert.ErrorIs(t, err, ErrUserBanned)
}

func TestRaffleService_InsufficientFundsLeavesRaffleUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 100, "30.00")

	_, err := f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 4)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	got, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TicketsSold)
	assert.Equal(t, int64(10000), f.st.wallet(f.buyer.ID).balance)
}

type racingRaffles struct {
	*memRaffles
}

// PurchaseTickets sells one ticket to someone else first
func (r racingRaffles) PurchaseTickets(ctx context.Context, order model.TicketOrder) error {
	r.st.mu.Lock()
	r.raffles[order.RaffleID].TicketsSold++
	r.st.mu.Unlock()
	return r.memRaffles.PurchaseTickets(ctx, order)
}

func TestRaffleService_LostCompareAndSwap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 10, "1.00")

	svc := f.service(racingRaffles{f.repo})
	_, err := svc.BuyTickets(ctx, f.buyer.ID, r.ID, 2)
	assert.ErrorIs(t, err, ErrRaffleConflict)
	assert.Equal(t, int64(10000), f.st.wallet(f.buyer.ID).balance)
}

func TestRaffleService_SellOutDrawsAndPaysCreator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 4, "2.50")

	hub := NewEventHub()
	t.Cleanup(hub.Close)
	f.svc.events = hub
	sub := hub.Subscribe(RaffleTopic(r.ID), "watcher")

	purchase, err := f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 4)
	require.NoError(t, err)

	drawn := purchase.Raffle
	assert.Equal(t, model.RaffleStatusDrawn, drawn.Status)
	require.NotNil(t, drawn.WinnerID)
	require.NotNil(t, drawn.WinningTicket)
	require.NotNil(t, drawn.Seed, "seed is revealed after the draw")
	assert.Equal(t, f.buyer.ID, *drawn.WinnerID)
	assert.Equal(t, WinningTicket(*drawn.Seed, r.ID, 4), *drawn.WinningTicket)

	// 10.00 sold, 10% fee
	assert.Equal(t, int64(900), f.st.wallet(f.seller.ID).balance)
	assert.Equal(t, 1, f.notifier.count())

	var types []EventType
	for len(sub.Events) > 0 {
		types = append(types, (<-sub.Events).Type)
	}
	assert.Equal(t, []EventType{EventRaffleUpdated, EventRaffleDrawn}, types)
}

func TestRaffleService_DrawPicksTicketOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 10, "1.00")
	other := f.st.addUser("other", model.UserRoleUser, 10000)

	_, err := f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 3)
	require.NoError(t, err)
	_, err = f.svc.BuyTickets(ctx, other.ID, r.ID, 4)
	require.NoError(t, err)

	_, err = f.svc.Draw(ctx, r.ID)
	assert.ErrorIs(t, err, ErrRaffleNotDue)

	f.clk.Set(r.DrawAt)
	drawn, err := f.svc.Draw(ctx, r.ID)
	require.NoError(t, err)

	owner, err := f.repo.TicketOwner(ctx, r.ID, *drawn.WinningTicket)
	require.NoError(t, err)
	assert.Equal(t, owner, *drawn.WinnerID)
	assert.LessOrEqual(t, *drawn.WinningTicket, 7)

	_, err = f.svc.Draw(ctx, r.ID)
	assert.ErrorIs(t, err, ErrRaffleNotActive)
}

func TestRaffleService_DrawWithoutSalesCancels(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 10, "1.00")

	f.clk.Set(r.DrawAt.Add(time.Second))
	n, err := f.svc.DrawDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RaffleStatusCancelled, got.Status)
	assert.Nil(t, got.WinnerID)
}

func TestRaffleService_VerifyDrawnRaffle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 3, "1.00")

	_, err := f.svc.Verify(ctx, r.ID)
	assert.ErrorIs(t, err, ErrRaffleNotDrawn)

	_, err = f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 3)
	require.NoError(t, err)

	proof, err := f.svc.Verify(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, proof.Valid)
	assert.Equal(t, proof.WinningTicket, proof.Recomputed)
	assert.Equal(t, CommitSeed(proof.Seed), proof.SeedHash)
}

func TestRaffleService_CancelRefundsAndKeepsPoints(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 10, "4.00")

	_, err := f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(8800), f.st.wallet(f.buyer.ID).balance)

	_, err = f.svc.Cancel(ctx, r.ID, f.seller.ID, false, "changed my mind")
	assert.ErrorIs(t, err, ErrAdminRequired, "creator cannot cancel after sales")

	cancelled, err := f.svc.Cancel(ctx, r.ID, f.admin.ID, true, "item no longer available")
	require.NoError(t, err)
	assert.Equal(t, model.RaffleStatusCancelled, cancelled.Status)

	w := f.st.wallet(f.buyer.ID)
	assert.Equal(t, int64(10000), w.balance)
	assert.Equal(t, int64(30), w.points)
	assert.Len(t, f.st.ledgerOf(f.buyer.ID, model.TxRaffleRefund), 1)

	_, err = f.svc.Cancel(ctx, r.ID, f.admin.ID, true, "again")
	assert.ErrorIs(t, err, ErrRaffleFinished)
}

func TestRaffleService_CreatorCancelsBeforeSales(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 10, "1.00")

	_, err := f.svc.Cancel(ctx, r.ID, f.buyer.ID, false, "not mine")
	assert.ErrorIs(t, err, ErrAdminRequired)

	cancelled, err := f.svc.Cancel(ctx, r.ID, f.seller.ID, false, "wrong item")
	require.NoError(t, err)
	assert.Equal(t, model.RaffleStatusCancelled, cancelled.Status)
}

func TestRaffleService_CancelReasonDefaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 10, "1.00")

	_, err := f.svc.Cancel(ctx, r.ID, f.admin.ID, true, "")
	assert.ErrorIs(t, err, ErrReasonRequired, "admins must say why")

	cancelled, err := f.svc.Cancel(ctx, r.ID, f.seller.ID, false, "")
	require.NoError(t, err)
	assert.Equal(t, model.RaffleStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.RejectReason)
	assert.Equal(t, creatorCancelReason, *cancelled.RejectReason)
}

func TestRaffleService_CancelRacingPurchaseConflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 10, "4.00")

	_, err := f.svc.BuyTickets(ctx, f.buyer.ID, r.ID, 2)
	require.NoError(t, err)

	// A sale that lands after the refunds were computed
	late := f.st.addUser("late", model.UserRoleUser, 10000)
	f.repo.beforeCancel = func(id string) {
		f.repo.beforeCancel = nil
		require.NoError(t, f.repo.PurchaseTickets(ctx, model.TicketOrder{
			RaffleID:     id,
			BuyerID:      late.ID,
			ExpectedSold: 2,
			Numbers:      []int{3},
			Debit:        model.WalletMutation{UserID: late.ID, Type: model.TxTicketPurchase, BalanceDelta: -400, Reference: id},
		}))
	}

	_, err = f.svc.Cancel(ctx, r.ID, f.admin.ID, true, "item no longer available")
	assert.ErrorIs(t, err, ErrRaffleConflict)

	got, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RaffleStatusActive, got.Status)
	assert.Equal(t, int64(9200), f.st.wallet(f.buyer.ID).balance)
	assert.Equal(t, int64(9600), f.st.wallet(late.ID).balance)

	// A retry sees all three tickets and refunds both buyers
	_, err = f.svc.Cancel(ctx, r.ID, f.admin.ID, true, "item no longer available")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), f.st.wallet(f.buyer.ID).balance)
	assert.Equal(t, int64(10000), f.st.wallet(late.ID).balance)
}

func TestRaffleService_ConcurrentBuyersNeverOversell(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRaffleFixture(t)
	r := f.activeRaffle(t, 10, "1.00")

	buyers := make([]*model.User, 25)
	for i := range buyers {
		buyers[i] = f.st.addUser("buyer", model.UserRoleUser, 500)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int
	)
	for _, b := range buyers {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			p, err := f.svc.BuyTickets(ctx, userID, r.ID, 1)
			if err != nil {
				return
			}
			mu.Lock()
			numbers = append(numbers, p.Numbers...)
			mu.Unlock()
		}(b.ID)
	}
	wg.Wait()

	sort.Ints(numbers)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, numbers)

	got, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.TicketsSold)
	assert.Equal(t, model.RaffleStatusDrawn, got.Status)

	var spent int64
	for _, b := range buyers {
		spent += 500 - f.st.wallet(b.ID).balance
	}
	assert.Equal(t, int64(1000), spent)
}
