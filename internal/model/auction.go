package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus represents the lifecycle state of an auction
type AuctionStatus string

const (
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusSettled   AuctionStatus = "settled"
	AuctionStatusExpired   AuctionStatus = "expired" // ended with no bids
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

// IsValidAuctionStatus reports whether s is a known auction status
func IsValidAuctionStatus(s string) bool {
	switch AuctionStatus(s) {
	case AuctionStatusActive, AuctionStatusSettled, AuctionStatusExpired, AuctionStatusCancelled:
		return true
	}
	return false
}

// Auction is a timed, server-authoritative bidding process for one item.
// Version increments on every accepted bid and guards the compare-and-swap.
type Auction struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Game          Game            `json:"game"`
	Item          Item            `json:"item"`
	SellerID      string          `json:"seller_id"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	MinIncrement  decimal.Decimal `json:"min_increment"`
	CurrentBid    decimal.Decimal `json:"current_bid"`
	LeaderID      *string         `json:"leader_id,omitempty"`
	BidCount      int             `json:"bid_count"`
	Version       int64           `json:"version"`
	Status        AuctionStatus   `json:"status"`
	StartsAt      time.Time       `json:"starts_at"`
	EndsAt        time.Time       `json:"ends_at"`
	Extensions    int             `json:"extensions"`
	CreatedOn     time.Time       `json:"created_on"`
	UpdatedOn     time.Time       `json:"updated_on"`
	SettledOn     *time.Time      `json:"settled_on,omitempty"`
}

// MinimumBid returns the lowest amount the next bid may offer
func (a *Auction) MinimumBid() decimal.Decimal {
	if a.BidCount == 0 || a.LeaderID == nil {
		return a.StartingPrice
	}
	return a.CurrentBid.Add(a.MinIncrement)
}

// IsOpen reports whether bids are accepted at t
func (a *Auction) IsOpen(t time.Time) bool {
	return a.Status == AuctionStatusActive && !t.Before(a.StartsAt) && t.Before(a.EndsAt)
}

// RemainingSeconds returns whole seconds until the end, never negative
func (a *Auction) RemainingSeconds(t time.Time) int64 {
	d := a.EndsAt.Sub(t)
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}

// Bid is an accepted bid. Rejected bids are never stored.
type Bid struct {
	ID         string          `json:"id"`
	AuctionID  string          `json:"auction_id"`
	BidderID   string          `json:"bidder_id"`
	BidderName string          `json:"bidder_name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Extended   bool            `json:"extended"` // triggered the anti-sniping extension
	CreatedOn  time.Time       `json:"created_on"`
}

// AuctionFilter narrows auction listings
type AuctionFilter struct {
	Status   *AuctionStatus
	Game     string
	SellerID string
	Limit    int
	Offset   int
}

// AuctionTick is the countdown payload clients sync their timers to
type AuctionTick struct {
	AuctionID        string          `json:"auction_id"`
	Status           AuctionStatus   `json:"status"`
	CurrentBid       decimal.Decimal `json:"current_bid"`
	MinimumBid       decimal.Decimal `json:"minimum_bid"`
	LeaderID         *string         `json:"leader_id,omitempty"`
	BidCount         int             `json:"bid_count"`
	EndsAt           time.Time       `json:"ends_at"`
	RemainingSeconds int64           `json:"remaining_seconds"`
	ServerTime       time.Time       `json:"server_time"`
}

// Tick builds the countdown payload at t
func (a *Auction) Tick(t time.Time) AuctionTick {
	return AuctionTick{
		AuctionID:        a.ID,
		Status:           a.Status,
		CurrentBid:       a.CurrentBid,
		MinimumBid:       a.MinimumBid(),
		LeaderID:         a.LeaderID,
		BidCount:         a.BidCount,
		EndsAt:           a.EndsAt,
		RemainingSeconds: a.RemainingSeconds(t),
		ServerTime:       t,
	}
}

// BidResult is returned from a successful bid
type BidResult struct {
	Bid     *Bid        `json:"bid"`
	Auction *Auction    `json:"auction"`
	Tick    AuctionTick `json:"tick"`
}

// Settlement summarizes a settled auction
type Settlement struct {
	AuctionID string          `json:"auction_id"`
	WinnerID  string          `json:"winner_id"`
	SellerID  string          `json:"seller_id"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
	Payout    decimal.Decimal `json:"payout"`
}

const MaxAuctionTitleLength = 100

// CreateAuctionRequest represents a request to open an auction
type CreateAuctionRequest struct {
	Title         string           `json:"title"`
	Game          string           `json:"game"`
	Item          Item             `json:"item"`
	StartingPrice decimal.Decimal  `json:"starting_price"`
	MinIncrement  *decimal.Decimal `json:"min_increment,omitempty"`
	StartsAt      string           `json:"starts_at,omitempty"` // RFC 3339, default now
	EndsAt        string           `json:"ends_at"`             // RFC 3339
}

// Validate checks if the create request is valid
func (r *CreateAuctionRequest) Validate() []FieldError {
	var errors []FieldError

	if r.Title == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	} else if len(r.Title) > MaxAuctionTitleLength {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 100 characters or less"})
	}
	if _, ok := LookupGame(r.Game); !ok {
		errors = append(errors, FieldError{Field: "game", Message: "game must be one of cs2, dota2, tf2, rust"})
	}
	errors = r.Item.validate(errors)
	errors = validateAmount("starting_price", r.StartingPrice, errors)
	if r.MinIncrement != nil {
		errors = validateAmount("min_increment", *r.MinIncrement, errors)
	}
	if r.StartsAt != "" {
		if _, err := time.Parse(time.RFC3339, r.StartsAt); err != nil {
			errors = append(errors, FieldError{Field: "starts_at", Message: "starts_at must be RFC 3339"})
		}
	}
	if r.EndsAt == "" {
		errors = append(errors, FieldError{Field: "ends_at", Message: "ends_at is required"})
	} else if _, err := time.Parse(time.RFC3339, r.EndsAt); err != nil {
		errors = append(errors, FieldError{Field: "ends_at", Message: "ends_at must be RFC 3339"})
	}

	return errors
}

// PlaceBidRequest represents a bid
type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Validate checks if the bid request is valid
func (r *PlaceBidRequest) Validate() []FieldError {
	return validateAmount("amount", r.Amount, nil)
}

// BidPlacement is an accepted bid plus the fund movements it causes.
// ExpectedVersion guards the compare-and-swap on the auction row.
type BidPlacement struct {
	AuctionID       string
	BidderID        string
	BidderName      string
	AmountCents     int64
	ExpectedVersion int64
	EndsAt          time.Time
	Extended        bool
	Mutations       []WalletMutation
}
