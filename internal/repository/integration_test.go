package repository_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
	"github.com/epicstrade/rifas/internal/testing/fixtures"
	"github.com/epicstrade/rifas/internal/testing/testdb"
)

func TestWalletRepository_LedgeredApply(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)

	user := f.CreateUser(t, fixtures.WithBalance(1000))

	wallet, err := f.Wallets.Get(tdb.Ctx(), user.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(wallet.Balance))

	err = f.Wallets.Apply(tdb.Ctx(), model.WalletMutation{
		UserID:       user.ID,
		Type:         model.TxAdminDebit,
		BalanceDelta: -1001,
		Reference:    user.ID,
	})
	assert.ErrorIs(t, err, database.ErrInsufficientFunds)

	err = f.Wallets.Apply(tdb.Ctx(),
		model.WalletMutation{UserID: user.ID, Type: model.TxBidLock, BalanceDelta: -400, LockedDelta: 400, Reference: "auction:x"},
		model.WalletMutation{UserID: user.ID, Type: model.TxPoints, PointsDelta: 3, Reference: "raffle:y"},
	)
	require.NoError(t, err)

	wallet, err = f.Wallets.Get(tdb.Ctx(), user.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("6.00").Equal(wallet.Balance))
	assert.True(t, decimal.RequireFromString("4.00").Equal(wallet.Locked))
	assert.Equal(t, int64(3), wallet.Points)

	txs, err := f.Wallets.ListTransactions(tdb.Ctx(), user.ID, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txs, 3, "rejected debit leaves no ledger row")

	lock := model.TxBidLock
	txs, err = f.Wallets.ListTransactions(tdb.Ctx(), user.ID, model.TransactionFilter{Type: &lock})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "auction:x", txs[0].Reference)
}

func TestRaffleRepository_PurchaseTickets(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)

	creator := f.CreateUser(t)
	buyer := f.CreateUser(t, fixtures.WithBalance(1000))
	raffle := f.CreateRaffle(t, creator, fixtures.WithTickets(3))

	order := model.TicketOrder{
		RaffleID:     raffle.ID,
		BuyerID:      buyer.ID,
		ExpectedSold: 0,
		Numbers:      []int{1, 2},
		Debit: model.WalletMutation{
			UserID:       buyer.ID,
			Type:         model.TxTicketPurchase,
			BalanceDelta: -500,
			Reference:    raffle.ID,
		},
	}
	require.NoError(t, f.Raffles.PurchaseTickets(tdb.Ctx(), order))

	// Stale expected count loses the race
	err := f.Raffles.PurchaseTickets(tdb.Ctx(), order)
	assert.ErrorIs(t, err, database.ErrConflict)

	// More than remain
	order.ExpectedSold = 2
	order.Numbers = []int{3, 4}
	err = f.Raffles.PurchaseTickets(tdb.Ctx(), order)
	assert.ErrorIs(t, err, database.ErrConflict)

	got, err := f.Raffles.GetByID(tdb.Ctx(), raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TicketsSold)

	tickets, err := f.Raffles.ListTickets(tdb.Ctx(), raffle.ID, buyer.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, 1, tickets[0].Number)

	owner, err := f.Raffles.TicketOwner(tdb.Ctx(), raffle.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, buyer.ID, owner)

	wallet, err := f.Wallets.Get(tdb.Ctx(), buyer.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("5.00").Equal(wallet.Balance))
}

func TestRaffleRepository_PurchaseRollsBackOnOverdraw(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)

	buyer := f.CreateUser(t, fixtures.WithBalance(100))
	raffle := f.CreateRaffle(t, f.CreateUser(t))

	err := f.Raffles.PurchaseTickets(tdb.Ctx(), model.TicketOrder{
		RaffleID: raffle.ID,
		BuyerID:  buyer.ID,
		Numbers:  []int{1},
		Debit:    model.WalletMutation{UserID: buyer.ID, Type: model.TxTicketPurchase, BalanceDelta: -250, Reference: raffle.ID},
	})
	assert.ErrorIs(t, err, database.ErrInsufficientFunds)

	got, err := f.Raffles.GetByID(tdb.Ctx(), raffle.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TicketsSold)
}

func TestRaffleRepository_CancelRejectsStaleTicketCount(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)

	buyer := f.CreateUser(t, fixtures.WithBalance(1000))
	raffle := f.CreateRaffle(t, f.CreateUser(t), fixtures.WithTickets(3))
	require.NoError(t, f.Raffles.PurchaseTickets(tdb.Ctx(), model.TicketOrder{
		RaffleID: raffle.ID,
		BuyerID:  buyer.ID,
		Numbers:  []int{1},
		Debit:    model.WalletMutation{UserID: buyer.ID, Type: model.TxTicketPurchase, BalanceDelta: -250, Reference: raffle.ID},
	}))

	allowed := []model.RaffleStatus{model.RaffleStatusPending, model.RaffleStatusActive}
	refund := model.WalletMutation{UserID: buyer.ID, Type: model.TxRaffleRefund, BalanceDelta: 250, Reference: raffle.ID}

	err := f.Raffles.Cancel(tdb.Ctx(), raffle.ID, allowed, 0, "stale", nil)
	assert.ErrorIs(t, err, database.ErrConflict)

	got, err := f.Raffles.GetByID(tdb.Ctx(), raffle.ID)
	require.NoError(t, err)
	assert.NotEqual(t, model.RaffleStatusCancelled, got.Status)

	require.NoError(t, f.Raffles.Cancel(tdb.Ctx(), raffle.ID, allowed, 1, "item gone", []model.WalletMutation{refund}))

	wallet, err := f.Wallets.Get(tdb.Ctx(), buyer.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(wallet.Balance))
}

func TestUserRepository_CreateGrantsStartingBalance(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)

	user := &model.User{SteamID: "76561198000000077", PersonaName: "newcomer"}
	require.NoError(t, f.Users.Create(tdb.Ctx(), user, 5000))
	require.NotEmpty(t, user.ID)

	wallet, err := f.Wallets.Get(tdb.Ctx(), user.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("50.00").Equal(wallet.Balance))

	grant := model.TxStartingBalance
	txs, err := f.Wallets.ListTransactions(tdb.Ctx(), user.ID, model.TransactionFilter{Type: &grant})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, decimal.RequireFromString("50.00").Equal(txs[0].BalanceAfter))

	err = f.Users.Create(tdb.Ctx(), &model.User{SteamID: user.SteamID, PersonaName: "dup"}, 5000)
	assert.ErrorIs(t, err, database.ErrDuplicate)

	txs, err = f.Wallets.ListTransactions(tdb.Ctx(), user.ID, model.TransactionFilter{Type: &grant})
	require.NoError(t, err)
	assert.Len(t, txs, 1, "a rejected duplicate grants nothing")
}
