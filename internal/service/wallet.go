package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
	"github.com/shopspring/decimal"
)

// WalletRepository defines the interface for wallet storage
type WalletRepository interface {
	Get(ctx context.Context, userID string) (*model.Wallet, error)
	Apply(ctx context.Context, mutations ...model.WalletMutation) error
	ListTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]*model.Transaction, error)
}

// WalletService moves funds between spendable and locked balances. Every
// change is ledgered by the repository in the same commit.
type WalletService struct {
	repo   WalletRepository
	events *EventHub
	logger *slog.Logger
}

// NewWalletService creates a new wallet service
func NewWalletService(repo WalletRepository, events *EventHub, logger *slog.Logger) *WalletService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WalletService{repo: repo, events: events, logger: logger}
}

// GetWallet returns a user's wallet
func (s *WalletService) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	w, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrUserNotFound
	}
	return w, nil
}

// ListTransactions returns a user's ledger, newest first
func (s *WalletService) ListTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]*model.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, filter)
}

// Credit adds spendable funds
func (s *WalletService) Credit(ctx context.Context, userID string, amount decimal.Decimal, txType model.TransactionType, ref, note string) (*model.Wallet, error) {
	cents, err := positiveCents(amount)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, creditMutation(userID, txType, cents, ref, note))
}

// Debit removes spendable funds, refusing to overdraw
func (s *WalletService) Debit(ctx context.Context, userID string, amount decimal.Decimal, txType model.TransactionType, ref, note string) (*model.Wallet, error) {
	cents, err := positiveCents(amount)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, debitMutation(userID, txType, cents, ref, note))
}

// Lock reserves spendable funds
func (s *WalletService) Lock(ctx context.Context, userID string, amount decimal.Decimal, ref string) (*model.Wallet, error) {
	cents, err := positiveCents(amount)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, lockMutation(userID, cents, ref))
}

// Unlock returns reserved funds to the spendable balance
func (s *WalletService) Unlock(ctx context.Context, userID string, amount decimal.Decimal, ref string) (*model.Wallet, error) {
	cents, err := positiveCents(amount)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, unlockMutation(userID, cents, ref))
}

// CaptureLocked spends reserved funds
func (s *WalletService) CaptureLocked(ctx context.Context, userID string, amount decimal.Decimal, ref string) (*model.Wallet, error) {
	cents, err := positiveCents(amount)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, captureMutation(userID, cents, ref))
}

// AddPoints awards loyalty points
func (s *WalletService) AddPoints(ctx context.Context, userID string, points int64, ref string) (*model.Wallet, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.apply(ctx, userID, model.WalletMutation{
		UserID:      userID,
		Type:        model.TxPoints,
		PointsDelta: points,
		Reference:   ref,
	})
}

func (s *WalletService) apply(ctx context.Context, userID string, m model.WalletMutation) (*model.Wallet, error) {
	if err := s.repo.Apply(ctx, m); err != nil {
		return nil, mapWalletError(err)
	}
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.events.PublishWallet(w)
	return w, nil
}

// mapWalletError translates store failures of a transaction that carried
// wallet mutations
func mapWalletError(err error) error {
	switch {
	case errors.Is(err, database.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, database.ErrConflict):
		return ErrWalletConflict
	}
	return err
}

func positiveCents(amount decimal.Decimal) (int64, error) {
	if !model.ValidAmount(amount) {
		return 0, ErrInvalidAmount
	}
	return model.CentsOf(amount)
}

func creditMutation(userID string, txType model.TransactionType, cents int64, ref, note string) model.WalletMutation {
	return model.WalletMutation{UserID: userID, Type: txType, BalanceDelta: cents, Reference: ref, Note: note}
}

func debitMutation(userID string, txType model.TransactionType, cents int64, ref, note string) model.WalletMutation {
	return model.WalletMutation{UserID: userID, Type: txType, BalanceDelta: -cents, Reference: ref, Note: note}
}

func lockMutation(userID string, cents int64, ref string) model.WalletMutation {
	return model.WalletMutation{UserID: userID, Type: model.TxBidLock, BalanceDelta: -cents, LockedDelta: cents, Reference: ref}
}

func unlockMutation(userID string, cents int64, ref string) model.WalletMutation {
	return model.WalletMutation{UserID: userID, Type: model.TxBidRelease, BalanceDelta: cents, LockedDelta: -cents, Reference: ref}
}

func captureMutation(userID string, cents int64, ref string) model.WalletMutation {
	return model.WalletMutation{UserID: userID, Type: model.TxAuctionCapture, LockedDelta: -cents, Reference: ref}
}
