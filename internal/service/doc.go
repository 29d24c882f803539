// Package service implements the business logic of the rifas API.
//
// Services own the rules of raffles, auctions, wallets and moderation.
// Handlers call services; services call repositories through interfaces
// declared next to the service that needs them.
//
// # Service Pattern
//
//   - Constructor function (NewXxxService) accepts a config struct with dependencies
//   - Methods take context.Context and return sentinel errors from errors.go
//   - Money crosses the boundary as decimal.Decimal and is converted to
//     centavos only when building model.WalletMutation values
//
// # Consistency
//
// Raffle purchases and auction bids are serialized per raffle or auction
// with an in-process keyed mutex, then committed in one database
// transaction guarded by a compare-and-swap (tickets_sold for raffles,
// version for auctions). The mutex keeps a single instance from racing
// itself; the CAS keeps several instances honest. A lost CAS surfaces as
// ErrRaffleConflict or ErrBidConflict and nothing is written.
//
// # Example Usage
//
//	auctions := NewAuctionService(AuctionServiceConfig{
//	    Auctions:        auctionRepo,
//	    Users:           userRepo,
//	    Wallets:         walletRepo,
//	    Events:          hub,
//	    MinIncrement:    decimal.NewFromInt(1),
//	    AntiSnipeWindow: 30 * time.Second,
//	    AntiSnipeExtend: 30 * time.Second,
//	})
//	result, err := auctions.PlaceBid(ctx, userID, auctionID, decimal.RequireFromString("25.00"))
//	var low *BidTooLowError
//	if errors.As(err, &low) {
//	    // low.Minimum is the smallest acceptable bid
//	}
package service
