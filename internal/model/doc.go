// Package model defines the domain entities and request/response types of
// the rifas API.
//
// # Domain Entities
//
//   - User, Wallet, Transaction: Steam accounts and their ledgered funds
//   - Raffle, RaffleTicket: promotional raffle events (eventos)
//   - Auction, Bid: timed item auctions (leilões)
//   - Report, SupportTicket, AuditLog: moderation and the admin panel
//   - Game, Item, InventoryItem, MarketPrice: Steam catalog data
//   - FAQEntry: chat widget content
//
// # Money
//
// Amounts are shopspring decimals in the API and integer centavos in the
// database. ToCents and FromCents convert between the two.
//
// # Validation
//
// Request types expose Validate() []FieldError; handlers turn a non-empty
// result into a 422 Problem Details response.
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go.
package model
