package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's funds. Balance is spendable; Locked is reserved
// against leading auction bids and is not part of Balance.
type Wallet struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Locked    decimal.Decimal `json:"locked_balance"`
	Points    int64           `json:"points"`
	UpdatedOn time.Time       `json:"updated_on"`
}

// Total returns spendable plus reserved funds
func (w *Wallet) Total() decimal.Decimal {
	return w.Balance.Add(w.Locked)
}

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TxStartingBalance TransactionType = "starting_balance"
	TxAdminCredit     TransactionType = "admin_credit"
	TxAdminDebit      TransactionType = "admin_debit"
	TxTicketPurchase  TransactionType = "ticket_purchase"
	TxRaffleRefund    TransactionType = "raffle_refund"
	TxRafflePayout    TransactionType = "raffle_payout"
	TxBidLock         TransactionType = "bid_lock"
	TxBidRelease      TransactionType = "bid_release"
	TxAuctionCapture  TransactionType = "auction_capture"
	TxAuctionPayout   TransactionType = "auction_payout"
	TxPoints          TransactionType = "points"
)

// Transaction is an immutable wallet ledger entry. Amount is the signed
// change to Balance (or to Locked for capture); Points is the signed change
// to the points counter.
type Transaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Type         TransactionType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Points       int64           `json:"points,omitempty"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	LockedAfter  decimal.Decimal `json:"locked_after"`
	Reference    string          `json:"reference,omitempty"` // raffle:x, auction:y, user:z
	Note         string          `json:"note,omitempty"`
	CreatedOn    time.Time       `json:"created_on"`
}

// WalletMutation describes one ledgered change applied atomically.
// Deltas are in centavos; negative values must not overdraw.
type WalletMutation struct {
	UserID       string
	Type         TransactionType
	BalanceDelta int64
	LockedDelta  int64
	PointsDelta  int64
	Reference    string
	Note         string
}

// TransactionFilter narrows ledger listings
type TransactionFilter struct {
	Type   *TransactionType
	Limit  int
	Offset int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxReasonLength = 500
)

// ClampPage normalizes limit/offset pagination values
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
