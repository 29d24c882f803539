// Package repository implements the SurrealDB data access layer.
//
// Each repository wraps a database.Database and maps between stored
// records and model types. Money is stored as integer centavos in
// *_cents fields and converted to decimal.Decimal at this boundary.
//
// # Conventions
//
//   - Constructor function (NewXxxRepository) accepts a database connection
//   - Reads return nil, nil when the record does not exist
//   - Conditional updates that match nothing return database.ErrConflict
//   - type::record() for safe ID handling, time::now() for timestamps
//
// # Wallet mutations
//
// Every balance change goes through addWalletMutation, which guards
// against overdraw and writes a wallet_tx ledger row in the same
// statement block. Raffle purchases, draws, bids and settlements compose
// these mutations into a single database.AtomicBatch, so the domain
// change and its money movement commit or fail together:
//
//	err := raffles.PurchaseTickets(ctx, model.TicketOrder{
//	    RaffleID:     "raffle:abc",
//	    BuyerID:      "user:xyz",
//	    ExpectedSold: 10,
//	    Numbers:      []int{11, 12},
//	    Debit:        debit,
//	})
//	if errors.Is(err, database.ErrInsufficientFunds) {
//	    // buyer cannot afford it, nothing was written
//	}
package repository
