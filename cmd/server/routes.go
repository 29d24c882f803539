package main

import (
	"net/http"

	"github.com/epicstrade/rifas/internal/handler"
	"github.com/epicstrade/rifas/internal/middleware"
)

type routeDeps struct {
	auth       *handler.AuthHandler
	wallet     *handler.WalletHandler
	raffle     *handler.RaffleHandler
	auction    *handler.AuctionHandler
	steam      *handler.SteamHandler
	moderation *handler.ModerationHandler
	admin      *handler.AdminHandler
	faq        *handler.FAQHandler
	events     *handler.EventsHandler

	db          handler.Pinger
	tokens      middleware.TokenValidator
	rateLimiter *middleware.RateLimiter
	idempotency *middleware.IdempotencyStore
}

func registerRoutes(mux *http.ServeMux, d routeDeps) {
	authMiddleware := middleware.Auth(d.tokens)
	optionalAuth := middleware.OptionalAuth(d.tokens)

	auth := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}
	optional := func(h http.HandlerFunc) http.Handler {
		return optionalAuth(h)
	}
	// Money-moving routes: authenticated, rate limited per user and
	// replay-safe under Idempotency-Key
	money := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(middleware.RateLimit(d.rateLimiter)(middleware.Idempotency(d.idempotency)(h)))
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(middleware.RateLimit(d.rateLimiter)(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(middleware.RequireAdmin(h))
	}
	adminMoney := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(middleware.RequireAdmin(middleware.Idempotency(d.idempotency)(h)))
	}

	// Health
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("GET /ready", handler.Ready(d.db))

	// Auth
	mux.HandleFunc("GET /v1/auth/steam/login", d.auth.SteamLogin)
	mux.HandleFunc("GET /v1/auth/steam/callback", d.auth.SteamCallback)
	mux.HandleFunc("POST /v1/auth/refresh", d.auth.Refresh)
	mux.Handle("POST /v1/auth/logout", auth(d.auth.Logout))
	mux.Handle("GET /v1/me", auth(d.auth.Me))
	mux.Handle("GET /v1/me/stream", auth(d.events.UserStream))

	// Wallet
	mux.Handle("GET /v1/wallet", auth(d.wallet.Get))
	mux.Handle("GET /v1/wallet/transactions", auth(d.wallet.Transactions))

	// Raffles
	mux.HandleFunc("GET /v1/raffles", d.raffle.List)
	mux.HandleFunc("GET /v1/raffles/{raffleId}", d.raffle.Get)
	mux.Handle("POST /v1/raffles", limited(d.raffle.Create))
	mux.Handle("POST /v1/raffles/{raffleId}/tickets", money(d.raffle.BuyTickets))
	mux.Handle("GET /v1/raffles/{raffleId}/tickets", optional(d.raffle.Tickets))
	mux.HandleFunc("GET /v1/raffles/{raffleId}/proof", d.raffle.Proof)
	mux.Handle("POST /v1/raffles/{raffleId}/cancel", auth(d.raffle.Cancel))
	mux.HandleFunc("GET /v1/raffles/{raffleId}/stream", d.events.RaffleStream)

	// Auctions
	mux.HandleFunc("GET /v1/auctions", d.auction.List)
	mux.HandleFunc("GET /v1/auctions/{auctionId}", d.auction.Get)
	mux.Handle("POST /v1/auctions", limited(d.auction.Create))
	mux.Handle("POST /v1/auctions/{auctionId}/bids", money(d.auction.PlaceBid))
	mux.HandleFunc("GET /v1/auctions/{auctionId}/bids", d.auction.Bids)
	mux.HandleFunc("GET /v1/auctions/{auctionId}/tick", d.auction.Tick)
	mux.Handle("POST /v1/auctions/{auctionId}/cancel", auth(d.auction.Cancel))
	mux.HandleFunc("GET /v1/auctions/{auctionId}/stream", d.events.AuctionStream)

	// Steam
	mux.HandleFunc("GET /v1/steam/profiles/{steamId}", d.steam.Profile)
	mux.Handle("GET /v1/steam/inventory", auth(d.steam.Inventory))
	mux.HandleFunc("GET /v1/steam/inventory/{steamId}", d.steam.Inventory)
	mux.HandleFunc("GET /v1/steam/prices", d.steam.Price)

	// Reports and support tickets
	mux.Handle("POST /v1/reports", limited(d.moderation.CreateReport))
	mux.Handle("POST /v1/tickets", limited(d.moderation.OpenTicket))
	mux.Handle("GET /v1/tickets", auth(d.moderation.ListTickets))
	mux.Handle("GET /v1/tickets/{ticketId}", auth(d.moderation.GetTicket))
	mux.Handle("POST /v1/tickets/{ticketId}/messages", limited(d.moderation.ReplyTicket))
	mux.Handle("POST /v1/tickets/{ticketId}/close", auth(d.moderation.CloseTicket))

	// FAQ
	mux.HandleFunc("GET /v1/faq", d.faq.List)
	mux.HandleFunc("POST /v1/faq/ask", d.faq.Ask)

	// Admin
	mux.Handle("GET /v1/admin/stats", admin(d.admin.Stats))
	mux.Handle("GET /v1/admin/users", admin(d.admin.ListUsers))
	mux.Handle("GET /v1/admin/users/{userId}", admin(d.admin.GetUser))
	mux.Handle("POST /v1/admin/users/{userId}/ban", admin(d.admin.BanUser))
	mux.Handle("POST /v1/admin/users/{userId}/unban", admin(d.admin.UnbanUser))
	mux.Handle("POST /v1/admin/users/{userId}/wallet", adminMoney(d.admin.AdjustWallet))
	mux.Handle("POST /v1/admin/raffles/{raffleId}/approve", admin(d.admin.ApproveRaffle))
	mux.Handle("POST /v1/admin/raffles/{raffleId}/reject", admin(d.admin.RejectRaffle))
	mux.Handle("POST /v1/admin/raffles/{raffleId}/cancel", admin(d.admin.CancelRaffle))
	mux.Handle("POST /v1/admin/auctions/{auctionId}/cancel", admin(d.admin.CancelAuction))
	mux.Handle("GET /v1/admin/logs", admin(d.admin.AuditLogs))
	mux.Handle("GET /v1/admin/reports", admin(d.moderation.ListReports))
	mux.Handle("PATCH /v1/admin/reports/{reportId}", admin(d.moderation.ReviewReport))
}
