package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserRole represents the role of a user in the system
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin" // Granted from ADMIN_STEAM_IDS at login
)

// User is a Steam-authenticated account
type User struct {
	ID          string     `json:"id"`
	SteamID     string     `json:"steam_id"`
	PersonaName string     `json:"persona_name"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	ProfileURL  string     `json:"profile_url,omitempty"`
	Role        UserRole   `json:"role"`
	Banned      bool       `json:"banned"`
	BanReason   *string    `json:"ban_reason,omitempty"`
	CreatedOn   time.Time  `json:"created_on"`
	UpdatedOn   time.Time  `json:"updated_on"`
	LoginOn     *time.Time `json:"login_on,omitempty"`
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// SteamProfile is the subset of a Steam player summary copied onto a user at login
type SteamProfile struct {
	SteamID     string
	PersonaName string
	AvatarURL   string
	ProfileURL  string
}

// Me is the authenticated user's own view
type Me struct {
	User   *User   `json:"user"`
	Wallet *Wallet `json:"wallet"`
}

// UserListFilter narrows the admin user listing
type UserListFilter struct {
	Search string // persona name or steam id prefix
	Banned *bool
	Limit  int
	Offset int
}

// BanUserRequest bans a user
type BanUserRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the ban request is valid
func (r *BanUserRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Reason == "" {
		errors = append(errors, FieldError{Field: "reason", Message: "reason is required"})
	} else if len(r.Reason) > MaxReasonLength {
		errors = append(errors, FieldError{Field: "reason", Message: "reason must be 500 characters or less"})
	}
	return errors
}

// AdminCreditRequest adjusts a user's wallet. Negative amounts debit.
type AdminCreditRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// Validate checks if the credit request is valid
func (r *AdminCreditRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Amount.IsZero() {
		errors = append(errors, FieldError{Field: "amount", Message: "amount must not be zero"})
	} else if !HasCentPrecision(r.Amount) {
		errors = append(errors, FieldError{Field: "amount", Message: "amount must have at most 2 decimal places"})
	}
	if r.Note == "" {
		errors = append(errors, FieldError{Field: "note", Message: "note is required"})
	} else if len(r.Note) > MaxReasonLength {
		errors = append(errors, FieldError{Field: "note", Message: "note must be 500 characters or less"})
	}
	return errors
}

// RefreshRequest exchanges a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is returned after login and refresh
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}
