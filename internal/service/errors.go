package service

import (
	"errors"
	"fmt"
)

// Centralized service layer errors.
// All errors returned by service methods are defined here so handlers can
// map them with errors.Is.

// ===== Authentication Errors =====
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserBanned       = errors.New("user is banned")
	ErrSteamLoginFailed = errors.New("steam login could not be verified")
	ErrAdminRequired    = errors.New("admin privileges required")
)

// ===== Token Errors =====
var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)

// ===== Wallet Errors =====
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive with at most two decimals")
	ErrWalletConflict    = errors.New("wallet changed concurrently")
)

// ===== Raffle Errors =====
var (
	ErrRaffleNotFound      = errors.New("raffle not found")
	ErrRaffleNotActive     = errors.New("raffle is not open for tickets")
	ErrRaffleNotPending    = errors.New("raffle is not awaiting approval")
	ErrRaffleSoldOut       = errors.New("not enough tickets left")
	ErrRaffleNotDue        = errors.New("raffle is not ready to be drawn")
	ErrRaffleNotDrawn      = errors.New("raffle has not been drawn")
	ErrRaffleFinished      = errors.New("raffle is already finished")
	ErrOwnRaffle           = errors.New("cannot buy tickets for your own raffle")
	ErrTicketLimitExceeded = errors.New("ticket limit exceeded")
	ErrInvalidDrawTime     = errors.New("draw_at must be in the future")
	ErrRaffleConflict      = errors.New("raffle changed concurrently, try again")
)

// ===== Auction Errors =====
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrAuctionClosed    = errors.New("auction is not accepting bids")
	ErrAuctionFinished  = errors.New("auction is already finished")
	ErrAuctionNotEnded  = errors.New("auction has not ended")
	ErrBidTooLow        = errors.New("bid is below the minimum")
	ErrBidConflict      = errors.New("another bid was accepted first")
	ErrOwnAuction       = errors.New("cannot bid on your own auction")
	ErrInvalidSchedule  = errors.New("auction schedule is invalid")
	ErrAuctionHasLeader = errors.New("auction with bids can only be cancelled by an admin")
)

// ===== Steam Errors =====
var (
	ErrUnsupportedGame   = errors.New("unsupported game")
	ErrInventoryPrivate  = errors.New("steam inventory is private")
	ErrSteamUnavailable  = errors.New("steam is unavailable")
	ErrPriceNotAvailable = errors.New("no market price for item")
)

// ===== Moderation Errors =====
var (
	ErrReportNotFound   = errors.New("report not found")
	ErrCannotReportSelf = errors.New("cannot report yourself")
	ErrDuplicateReport  = errors.New("you already have an open report for this target")
	ErrReportReviewed   = errors.New("report was already reviewed")
	ErrReportTarget     = errors.New("report target not found")
	ErrTicketNotFound   = errors.New("support ticket not found")
	ErrTicketClosed     = errors.New("support ticket is closed")
	ErrNotTicketOwner   = errors.New("not the owner of this ticket")
	ErrCannotBanAdmin   = errors.New("cannot ban an admin")
	ErrReasonRequired   = errors.New("reason is required")
	ErrReasonTooLong    = errors.New("reason too long")
)

// SoldOutError carries how many tickets are still available
type SoldOutError struct {
	Remaining int
}

func (e *SoldOutError) Error() string {
	return fmt.Sprintf("%s: %d remaining", ErrRaffleSoldOut, e.Remaining)
}

// Unwrap lets errors.Is match ErrRaffleSoldOut
func (e *SoldOutError) Unwrap() error { return ErrRaffleSoldOut }
