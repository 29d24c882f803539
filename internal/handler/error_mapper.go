package handler

import (
	"errors"
	"log/slog"

	"github.com/epicstrade/rifas/internal/model"
	"github.com/epicstrade/rifas/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// This centralizes error handling logic for all handlers, ensuring consistent
// HTTP status codes and error messages across the API.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	var bidTooLow *service.BidTooLowError
	var soldOut *service.SoldOutError

	switch {
	// ===== Authentication Errors → 401 =====
	case errors.Is(err, service.ErrSteamLoginFailed):
		return model.NewUnauthorizedError("steam login could not be verified")
	case errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrRefreshTokenExpired),
		errors.Is(err, service.ErrRefreshTokenRevoked):
		return model.NewUnauthorizedError(err.Error())

	// ===== Authorization Errors → 403 =====
	case errors.Is(err, service.ErrUserBanned):
		return model.NewBannedError()
	case errors.Is(err, service.ErrAdminRequired),
		errors.Is(err, service.ErrNotTicketOwner),
		errors.Is(err, service.ErrCannotBanAdmin):
		return model.NewForbiddenError(err.Error())

	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrUserNotFound):
		return model.NewNotFoundError("user")
	case errors.Is(err, service.ErrRaffleNotFound):
		return model.NewNotFoundError("raffle")
	case errors.Is(err, service.ErrAuctionNotFound):
		return model.NewNotFoundError("auction")
	case errors.Is(err, service.ErrReportNotFound):
		return model.NewNotFoundError("report")
	case errors.Is(err, service.ErrReportTarget):
		return model.NewNotFoundError("report target")
	case errors.Is(err, service.ErrTicketNotFound):
		return model.NewNotFoundError("support ticket")
	case errors.Is(err, service.ErrPriceNotAvailable):
		return model.NewNotFoundError("market price")

	// ===== Money Errors =====
	case errors.Is(err, service.ErrInsufficientFunds):
		return model.NewInsufficientFundsError()
	case errors.As(err, &bidTooLow):
		return model.NewBidTooLowError(bidTooLow.Minimum.StringFixed(2))
	case errors.Is(err, service.ErrBidTooLow):
		return model.NewBidTooLowError("")
	case errors.Is(err, service.ErrBidConflict):
		return model.NewBidConflictError()
	case errors.Is(err, service.ErrAuctionClosed):
		return model.NewAuctionClosedError()
	case errors.As(err, &soldOut):
		return model.NewSoldOutError(soldOut.Remaining)
	case errors.Is(err, service.ErrRaffleSoldOut):
		return model.NewSoldOutError(0)
	case errors.Is(err, service.ErrRaffleNotActive),
		errors.Is(err, service.ErrRaffleFinished):
		return model.NewRaffleClosedError(err.Error())

	// ===== State Conflicts → 409 =====
	case errors.Is(err, service.ErrRaffleConflict),
		errors.Is(err, service.ErrWalletConflict),
		errors.Is(err, service.ErrRaffleNotPending),
		errors.Is(err, service.ErrRaffleNotDue),
		errors.Is(err, service.ErrRaffleNotDrawn),
		errors.Is(err, service.ErrAuctionFinished),
		errors.Is(err, service.ErrAuctionNotEnded),
		errors.Is(err, service.ErrAuctionHasLeader),
		errors.Is(err, service.ErrDuplicateReport),
		errors.Is(err, service.ErrReportReviewed),
		errors.Is(err, service.ErrTicketClosed):
		return model.NewConflictError(err.Error())

	// ===== Validation Errors → 400 / 422 =====
	case errors.Is(err, service.ErrInvalidAmount):
		return model.NewValidationError([]model.FieldError{{Field: "amount", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidDrawTime):
		return model.NewValidationError([]model.FieldError{{Field: "draw_at", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidSchedule):
		return model.NewValidationError([]model.FieldError{{Field: "ends_at", Message: err.Error()}})
	case errors.Is(err, service.ErrReasonRequired),
		errors.Is(err, service.ErrReasonTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "reason", Message: err.Error()}})
	case errors.Is(err, service.ErrUnsupportedGame):
		return model.NewValidationError([]model.FieldError{{Field: "game", Message: "game must be one of cs2, dota2, tf2, rust"}})
	case errors.Is(err, service.ErrTicketLimitExceeded):
		return model.NewBadRequestError(err.Error())
	case errors.Is(err, service.ErrOwnRaffle),
		errors.Is(err, service.ErrOwnAuction),
		errors.Is(err, service.ErrCannotReportSelf):
		return model.NewBadRequestError(err.Error())

	// ===== Steam Errors =====
	case errors.Is(err, service.ErrInventoryPrivate):
		return model.NewForbiddenError("steam inventory is private")
	case errors.Is(err, service.ErrSteamUnavailable):
		return model.NewBadGatewayError("steam is unavailable, try again later")

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}

// MapServiceErrorWithContext converts a service error to a ProblemDetails
// response and logs unexpected failures with the operation that failed.
func MapServiceErrorWithContext(err error, operation string) *model.ProblemDetails {
	pd := MapServiceError(err)
	if pd != nil && pd.Status >= 500 {
		slog.Error(operation+" failed", slog.String("error", err.Error()))
		if pd.Code == model.ErrCodeInternal {
			pd.Detail = operation + ": an unexpected error occurred"
		}
	}
	return pd
}
