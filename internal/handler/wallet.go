package handler

import (
	"context"
	"net/http"

	"github.com/epicstrade/rifas/internal/middleware"
	"github.com/epicstrade/rifas/internal/model"
)

// WalletAPI is the part of the wallet service the handler uses
type WalletAPI interface {
	GetWallet(ctx context.Context, userID string) (*model.Wallet, error)
	ListTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]*model.Transaction, error)
}

// WalletHandler serves the caller's wallet and ledger
type WalletHandler struct {
	wallets WalletAPI
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(wallets WalletAPI) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// Get handles GET /v1/wallet
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.wallets.GetWallet(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "load wallet"))
		return
	}
	WriteData(w, http.StatusOK, wallet, map[string]string{
		"self":         "/v1/wallet",
		"transactions": "/v1/wallet/transactions",
	})
}

// Transactions handles GET /v1/wallet/transactions?type=&limit=&offset=
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	filter := model.TransactionFilter{Limit: limit, Offset: offset}
	if t := r.URL.Query().Get("type"); t != "" {
		txType := model.TransactionType(t)
		filter.Type = &txType
	}

	txs, err := h.wallets.ListTransactions(r.Context(), middleware.GetUserID(r.Context()), filter)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list transactions"))
		return
	}
	WriteCollection(w, http.StatusOK, txs, page(limit, offset, len(txs)), nil)
}
