package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RaffleStatus represents the lifecycle state of a raffle
type RaffleStatus string

const (
	RaffleStatusPending   RaffleStatus = "pending" // awaiting admin approval
	RaffleStatusActive    RaffleStatus = "active"
	RaffleStatusDrawn     RaffleStatus = "drawn"
	RaffleStatusRejected  RaffleStatus = "rejected"
	RaffleStatusCancelled RaffleStatus = "cancelled"
)

// IsValidRaffleStatus reports whether s is a known raffle status
func IsValidRaffleStatus(s string) bool {
	switch RaffleStatus(s) {
	case RaffleStatusPending, RaffleStatusActive, RaffleStatusDrawn, RaffleStatusRejected, RaffleStatusCancelled:
		return true
	}
	return false
}

// Raffle is a promotional raffle event for a single item.
//
// SeedHash is committed at creation; Seed stays hidden until the draw so
// anyone can recompute the winning ticket afterwards.
type Raffle struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Game          Game            `json:"game"`
	Item          Item            `json:"item"`
	TicketPrice   decimal.Decimal `json:"ticket_price"`
	TotalTickets  int             `json:"total_tickets"`
	TicketsSold   int             `json:"tickets_sold"`
	Status        RaffleStatus    `json:"status"`
	DrawAt        time.Time       `json:"draw_at"`
	CreatorID     string          `json:"creator_id"`
	WinnerID      *string         `json:"winner_id,omitempty"`
	WinningTicket *int            `json:"winning_ticket,omitempty"`
	SeedHash      string          `json:"seed_hash"`
	Seed          *string         `json:"seed,omitempty"`
	RejectReason  *string         `json:"reject_reason,omitempty"`
	CreatedOn     time.Time       `json:"created_on"`
	UpdatedOn     time.Time       `json:"updated_on"`
	DrawnOn       *time.Time      `json:"drawn_on,omitempty"`
}

// Remaining returns the number of unsold tickets
func (r *Raffle) Remaining() int {
	return r.TotalTickets - r.TicketsSold
}

// IsSoldOut reports whether every ticket has been sold
func (r *Raffle) IsSoldOut() bool {
	return r.TicketsSold >= r.TotalTickets
}

// IsDue reports whether the raffle should be drawn at t
func (r *Raffle) IsDue(t time.Time) bool {
	return r.Status == RaffleStatusActive && (r.IsSoldOut() || !t.Before(r.DrawAt))
}

// Public hides the seed until the draw has happened
func (r *Raffle) Public() *Raffle {
	out := *r
	if r.Status != RaffleStatusDrawn {
		out.Seed = nil
	}
	return &out
}

// RaffleTicket is one numbered ticket. Numbers run from 1 to TotalTickets
// in purchase order.
type RaffleTicket struct {
	ID        string    `json:"id"`
	RaffleID  string    `json:"raffle_id"`
	OwnerID   string    `json:"owner_id"`
	Number    int       `json:"number"`
	CreatedOn time.Time `json:"created_on"`
}

// RaffleFilter narrows raffle listings
type RaffleFilter struct {
	Status    *RaffleStatus
	Game      string
	CreatorID string
	Limit     int
	Offset    int
}

// TicketPurchase is the result of buying tickets
type TicketPurchase struct {
	Raffle       *Raffle         `json:"raffle"`
	Numbers      []int           `json:"numbers"`
	Total        decimal.Decimal `json:"total"`
	PointsEarned int64           `json:"points_earned"`
	Wallet       *Wallet         `json:"wallet"`
}

// RaffleProof lets anyone recompute a draw from the revealed seed
type RaffleProof struct {
	RaffleID      string `json:"raffle_id"`
	SeedHash      string `json:"seed_hash"`
	Seed          string `json:"seed"`
	TicketsSold   int    `json:"tickets_sold"`
	WinningTicket int    `json:"winning_ticket"`
	Recomputed    int    `json:"recomputed_ticket"`
	Valid         bool   `json:"valid"`
}

// Constraints
const (
	MaxRaffleTitleLength = 100
	MaxRaffleDescLength  = 2000
	MinRaffleTickets     = 2
)

// CreateRaffleRequest represents a request to create a raffle
type CreateRaffleRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Game         string          `json:"game"` // slug or app id
	Item         Item            `json:"item"`
	TicketPrice  decimal.Decimal `json:"ticket_price"`
	TotalTickets int             `json:"total_tickets"`
	DrawAt       string          `json:"draw_at"` // RFC 3339
}

// Validate checks if the create request is valid
func (r *CreateRaffleRequest) Validate() []FieldError {
	var errors []FieldError

	if r.Title == "" {
		errors = append(errors, FieldError{Field: "title", Message: "title is required"})
	} else if len(r.Title) > MaxRaffleTitleLength {
		errors = append(errors, FieldError{Field: "title", Message: "title must be 100 characters or less"})
	}
	if len(r.Description) > MaxRaffleDescLength {
		errors = append(errors, FieldError{Field: "description", Message: "description must be 2000 characters or less"})
	}
	if _, ok := LookupGame(r.Game); !ok {
		errors = append(errors, FieldError{Field: "game", Message: "game must be one of cs2, dota2, tf2, rust"})
	}
	errors = r.Item.validate(errors)
	errors = validateAmount("ticket_price", r.TicketPrice, errors)
	if r.TotalTickets < MinRaffleTickets {
		errors = append(errors, FieldError{Field: "total_tickets", Message: "total_tickets must be at least 2"})
	}
	if r.DrawAt == "" {
		errors = append(errors, FieldError{Field: "draw_at", Message: "draw_at is required"})
	} else if _, err := time.Parse(time.RFC3339, r.DrawAt); err != nil {
		errors = append(errors, FieldError{Field: "draw_at", Message: "draw_at must be RFC 3339"})
	}

	return errors
}

// BuyTicketsRequest represents a ticket purchase
type BuyTicketsRequest struct {
	Quantity int `json:"quantity"`
}

// Validate checks if the purchase request is valid
func (r *BuyTicketsRequest) Validate() []FieldError {
	if r.Quantity < 1 {
		return []FieldError{{Field: "quantity", Message: "quantity must be at least 1"}}
	}
	return nil
}

// RejectRaffleRequest carries the admin's rejection or cancellation reason
type RejectRaffleRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the reason is present and short enough
func (r *RejectRaffleRequest) Validate() []FieldError {
	if r.Reason == "" {
		return []FieldError{{Field: "reason", Message: "reason is required"}}
	}
	if len(r.Reason) > MaxReasonLength {
		return []FieldError{{Field: "reason", Message: "reason must be 500 characters or less"}}
	}
	return nil
}

// TicketOrder is a purchase the store applies atomically: the numbers are
// assigned from ExpectedSold and the buyer is debited in the same commit.
type TicketOrder struct {
	RaffleID     string
	BuyerID      string
	ExpectedSold int
	Numbers      []int
	Debit        WalletMutation
}

// DrawOutcome is a draw the store applies atomically
type DrawOutcome struct {
	RaffleID      string
	WinnerID      string
	WinningTicket int
	Payout        *WalletMutation
}
