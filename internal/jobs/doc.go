// Package jobs implements the background work of the raffle and auction
// platform.
//
// Every job is a Periodic: a Task run on a fixed interval, started and
// stopped by the server alongside the HTTP listener.
//
//   - raffle-drawer: draws raffles that sold out or reached draw_at
//   - auction-settler: settles auctions past ends_at, transferring the
//     winning bid to the seller minus the platform fee
//   - token-cleanup: removes expired refresh tokens
//   - price-purge: evicts stale Steam price and inventory cache entries
//
// Jobs log failures and keep running. Draws and settlements are idempotent
// in the services, so a pass that overlaps a manual trigger is harmless.
package jobs
