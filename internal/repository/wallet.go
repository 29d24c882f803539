package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
)

// walletMutationQuery guards and applies one ledgered wallet change. The
// statements run inside a batch transaction; tag keeps the LET names of
// several mutations in the same batch apart.
const walletMutationQuery = `
LET $wal_%[1]s = (SELECT balance_cents, locked_cents, points FROM ONLY type::record($user));
IF $wal_%[1]s = NONE { THROW "conflict: wallet not found" };
IF $wal_%[1]s.balance_cents + $bal_delta < 0 OR $wal_%[1]s.locked_cents + $lock_delta < 0 OR $wal_%[1]s.points + $pts_delta < 0 {
	THROW "insufficient funds"
};
LET $walnew_%[1]s = (UPDATE ONLY type::record($user) SET
	balance_cents += $bal_delta,
	locked_cents += $lock_delta,
	points += $pts_delta,
	wallet_updated_on = time::now()
	RETURN AFTER);
CREATE wallet_tx CONTENT {
	user: type::record($user),
	type: $tx_type,
	balance_delta_cents: $bal_delta,
	locked_delta_cents: $lock_delta,
	points_delta: $pts_delta,
	balance_after_cents: $walnew_%[1]s.balance_cents,
	locked_after_cents: $walnew_%[1]s.locked_cents,
	reference: $reference,
	note: $note,
	created_on: time::now()
};`

// addWalletMutation appends a guarded wallet change to batch
func addWalletMutation(batch *database.AtomicBatch, m model.WalletMutation) {
	tag := fmt.Sprintf("m%d", batch.Len()+1)
	batch.Add(fmt.Sprintf(walletMutationQuery, tag), map[string]interface{}{
		"user":       m.UserID,
		"tx_type":    string(m.Type),
		"bal_delta":  m.BalanceDelta,
		"lock_delta": m.LockedDelta,
		"pts_delta":  m.PointsDelta,
		"reference":  m.Reference,
		"note":       m.Note,
	})
}

type walletTxRecord struct {
	ID                string    `json:"id"`
	User              string    `json:"user"`
	Type              string    `json:"type"`
	BalanceDeltaCents int64     `json:"balance_delta_cents"`
	LockedDeltaCents  int64     `json:"locked_delta_cents"`
	PointsDelta       int64     `json:"points_delta"`
	BalanceAfterCents int64     `json:"balance_after_cents"`
	LockedAfterCents  int64     `json:"locked_after_cents"`
	Reference         string    `json:"reference"`
	Note              string    `json:"note"`
	CreatedOn         time.Time `json:"created_on"`
}

func (r *walletTxRecord) toModel() *model.Transaction {
	amount := r.BalanceDeltaCents
	if amount == 0 {
		amount = r.LockedDeltaCents
	}
	return &model.Transaction{
		ID:           r.ID,
		UserID:       r.User,
		Type:         model.TransactionType(r.Type),
		Amount:       model.FromCents(amount),
		Points:       r.PointsDelta,
		BalanceAfter: model.FromCents(r.BalanceAfterCents),
		LockedAfter:  model.FromCents(r.LockedAfterCents),
		Reference:    r.Reference,
		Note:         r.Note,
		CreatedOn:    r.CreatedOn,
	}
}

// WalletRepository applies ledgered balance changes
type WalletRepository struct {
	db    database.Database
	users *UserRepository
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db database.Database) *WalletRepository {
	return &WalletRepository{db: db, users: NewUserRepository(db)}
}

// Get returns the user's wallet, or nil when the user does not exist
func (r *WalletRepository) Get(ctx context.Context, userID string) (*model.Wallet, error) {
	return r.users.GetWallet(ctx, userID)
}

// Apply runs all mutations in one transaction. Any overdraw aborts the
// whole set with database.ErrInsufficientFunds.
func (r *WalletRepository) Apply(ctx context.Context, mutations ...model.WalletMutation) error {
	batch := database.NewAtomicBatch()
	for _, m := range mutations {
		addWalletMutation(batch, m)
	}
	return batch.Execute(ctx, r.db)
}

// ListTransactions returns the user's ledger, newest first
func (r *WalletRepository) ListTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]*model.Transaction, error) {
	limit, offset := model.ClampPage(filter.Limit, filter.Offset)

	query := `SELECT * FROM wallet_tx WHERE user = type::record($user)`
	vars := map[string]interface{}{"user": userID, "limit": limit, "offset": offset}
	if filter.Type != nil {
		query += ` AND type = $type`
		vars["type"] = string(*filter.Type)
	}
	query += ` ORDER BY created_on DESC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	recs, err := decodeRows[walletTxRecord](result)
	if err != nil {
		return nil, err
	}

	txs := make([]*model.Transaction, 0, len(recs))
	for _, rec := range recs {
		txs = append(txs, rec.toModel())
	}
	return txs, nil
}
