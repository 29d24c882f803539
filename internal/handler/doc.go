// Package handler provides the HTTP handlers of the raffle and auction API.
//
// Each handler struct wraps a small consumer-side interface (RaffleAPI,
// AuctionAPI, WalletAPI, ...) that the matching service satisfies, so the
// handlers can be tested with plain function-field fakes.
//
// # Response Format
//
//   - WriteData: single resource with optional HATEOAS links
//   - WriteCollection: list with limit/offset pagination
//   - WriteError: RFC 9457 Problem Details
//
// Service errors are translated by MapServiceError. Money is always
// rendered as a two-decimal string.
//
// # Authentication
//
// The auth middleware places the user ID, SteamID and role in the request
// context. Handlers read them through middleware.GetUserID and
// middleware.IsAdmin and never parse tokens themselves.
//
// # Streams
//
// EventsHandler serves Server-Sent Events for raffles, auctions and the
// signed-in user. Auction streams push a countdown tick once a second.
package handler
