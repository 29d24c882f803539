package model

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorCode represents API error codes
type ErrorCode int

const (
	// Authentication errors (1xxx)
	ErrCodeUnauthorized ErrorCode = 1001
	ErrCodeTokenExpired ErrorCode = 1002
	ErrCodeTokenInvalid ErrorCode = 1003
	ErrCodeLoginFailed  ErrorCode = 1004
	ErrCodeBanned       ErrorCode = 1005

	// Authorization errors (2xxx)
	ErrCodeForbidden ErrorCode = 2001
	ErrCodeNotOwner  ErrorCode = 2002

	// Resource errors (3xxx)
	ErrCodeNotFound      ErrorCode = 3001
	ErrCodeAlreadyExists ErrorCode = 3002
	ErrCodeConflict      ErrorCode = 3003

	// Validation errors (4xxx)
	ErrCodeValidation    ErrorCode = 4001
	ErrCodeInvalidInput  ErrorCode = 4002
	ErrCodeLimitExceeded ErrorCode = 4003

	// Business rule errors (6xxx)
	ErrCodeInsufficientFunds ErrorCode = 6001
	ErrCodeBidTooLow         ErrorCode = 6002
	ErrCodeBidConflict       ErrorCode = 6003
	ErrCodeAuctionClosed     ErrorCode = 6004
	ErrCodeRaffleClosed      ErrorCode = 6005
	ErrCodeSoldOut           ErrorCode = 6006

	// Internal errors (5xxx)
	ErrCodeInternal    ErrorCode = 5001
	ErrCodeDatabase    ErrorCode = 5002
	ErrCodeExternalAPI ErrorCode = 5003
)

const errorTypeBase = "https://api.epicstrade.gg/errors/"

// ProblemDetails represents RFC 9457 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
	// Extension fields
	Code    ErrorCode `json:"code,omitempty"`
	Limit   *int      `json:"limit,omitempty"`
	Current *int      `json:"current,omitempty"`
	MinBid  *string   `json:"min_bid,omitempty"`
}

// FieldError represents a validation error on a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

// WriteJSON writes the problem details as JSON response
func (p *ProblemDetails) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func newProblem(slug, title string, status int, code ErrorCode, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   errorTypeBase + slug,
		Title:  title,
		Status: status,
		Detail: detail,
		Code:   code,
	}
}

// Common error constructors

func NewUnauthorizedError(detail string) *ProblemDetails {
	return newProblem("unauthorized", "Unauthorized", http.StatusUnauthorized, ErrCodeUnauthorized, detail)
}

func NewForbiddenError(detail string) *ProblemDetails {
	return newProblem("forbidden", "Forbidden", http.StatusForbidden, ErrCodeForbidden, detail)
}

func NewBannedError() *ProblemDetails {
	return newProblem("banned", "Account Banned", http.StatusForbidden, ErrCodeBanned, "This account has been banned")
}

func NewNotFoundError(resource string) *ProblemDetails {
	return newProblem("not-found", "Not Found", http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func NewValidationError(errors []FieldError) *ProblemDetails {
	detail := "One or more fields failed validation"
	if len(errors) > 0 {
		detail = fmt.Sprintf("%s: %s", errors[0].Field, errors[0].Message)
		if len(errors) > 1 {
			detail = fmt.Sprintf("%s (and %d more errors)", detail, len(errors)-1)
		}
	}
	p := newProblem("validation", "Validation Error", http.StatusUnprocessableEntity, ErrCodeValidation, detail)
	p.Errors = errors
	return p
}

func NewLimitExceededError(resource string, limit, current int) *ProblemDetails {
	p := newProblem("limit-exceeded", "Limit Exceeded", http.StatusUnprocessableEntity, ErrCodeLimitExceeded,
		fmt.Sprintf("Maximum of %d %s reached", limit, resource))
	p.Limit = &limit
	p.Current = &current
	return p
}

func NewConflictError(detail string) *ProblemDetails {
	return newProblem("conflict", "Conflict", http.StatusConflict, ErrCodeConflict, detail)
}

func NewInsufficientFundsError() *ProblemDetails {
	return newProblem("insufficient-funds", "Insufficient Funds", http.StatusUnprocessableEntity, ErrCodeInsufficientFunds,
		"Available balance is too low for this operation")
}

// NewBidTooLowError reports the minimum acceptable bid when known
func NewBidTooLowError(minBid string) *ProblemDetails {
	p := newProblem("bid-too-low", "Bid Too Low", http.StatusUnprocessableEntity, ErrCodeBidTooLow,
		"Bid must be at least the current bid plus the minimum increment")
	if minBid != "" {
		p.MinBid = &minBid
	}
	return p
}

func NewBidConflictError() *ProblemDetails {
	return newProblem("bid-conflict", "Bid Conflict", http.StatusConflict, ErrCodeBidConflict,
		"Another bid was accepted first; refresh and try again")
}

func NewAuctionClosedError() *ProblemDetails {
	return newProblem("auction-closed", "Auction Closed", http.StatusConflict, ErrCodeAuctionClosed, "Auction is not accepting bids")
}

func NewRaffleClosedError(detail string) *ProblemDetails {
	return newProblem("raffle-closed", "Raffle Closed", http.StatusConflict, ErrCodeRaffleClosed, detail)
}

func NewSoldOutError(remaining int) *ProblemDetails {
	p := newProblem("sold-out", "Not Enough Tickets", http.StatusConflict, ErrCodeSoldOut,
		fmt.Sprintf("Only %d tickets remain", remaining))
	p.Current = &remaining
	return p
}

func NewInternalError(detail string) *ProblemDetails {
	if detail == "" {
		detail = "An unexpected error occurred"
	}
	return newProblem("internal", "Internal Server Error", http.StatusInternalServerError, ErrCodeInternal, detail)
}

func NewBadGatewayError(detail string) *ProblemDetails {
	return newProblem("upstream", "Bad Gateway", http.StatusBadGateway, ErrCodeExternalAPI, detail)
}

func NewBadRequestError(detail string) *ProblemDetails {
	return newProblem("bad-request", "Bad Request", http.StatusBadRequest, ErrCodeInvalidInput, detail)
}

func NewRateLimitError(retryAfter int) *ProblemDetails {
	return &ProblemDetails{
		Type:   errorTypeBase + "rate-limited",
		Title:  "Too Many Requests",
		Status: http.StatusTooManyRequests,
		Detail: fmt.Sprintf("Rate limit exceeded. Retry after %d seconds", retryAfter),
	}
}
