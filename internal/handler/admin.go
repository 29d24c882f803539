package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/epicstrade/rifas/internal/middleware"
	"github.com/epicstrade/rifas/internal/model"
)

// AdminAPI is the part of the admin service the panel uses
type AdminAPI interface {
	ListUsers(ctx context.Context, filter model.UserListFilter) ([]*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.Me, error)
	BanUser(ctx context.Context, adminID, userID, reason string) (*model.User, error)
	UnbanUser(ctx context.Context, adminID, userID string) (*model.User, error)
	AdjustWallet(ctx context.Context, adminID, userID string, req *model.AdminCreditRequest) (*model.Wallet, error)
	ApproveRaffle(ctx context.Context, adminID, raffleID string) (*model.Raffle, error)
	RejectRaffle(ctx context.Context, adminID, raffleID, reason string) (*model.Raffle, error)
	CancelRaffle(ctx context.Context, adminID, raffleID, reason string) (*model.Raffle, error)
	CancelAuction(ctx context.Context, adminID, auctionID string) (*model.Auction, error)
	ListAuditLogs(ctx context.Context, limit, offset int) ([]*model.AuditLog, error)
	Stats(ctx context.Context) (*model.DashboardStats, error)
}

// AdminHandler serves /v1/admin. Every route is mounted behind
// RequireAdmin, so the caller's user ID is always an admin ID here.
type AdminHandler struct {
	admin AdminAPI
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin AdminAPI) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func adminUserLinks(id string) map[string]string {
	return map[string]string{
		"self":   "/v1/admin/users/" + id,
		"ban":    "/v1/admin/users/" + id + "/ban",
		"unban":  "/v1/admin/users/" + id + "/unban",
		"wallet": "/v1/admin/users/" + id + "/wallet",
	}
}

// Stats handles GET /v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "dashboard stats"))
		return
	}
	WriteData(w, http.StatusOK, stats, nil)
}

// ListUsers handles GET /v1/admin/users?q=&banned=&limit=&offset=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(r)
	filter := model.UserListFilter{Search: q.Get("q"), Limit: limit, Offset: offset}
	if b := q.Get("banned"); b != "" {
		banned, err := strconv.ParseBool(b)
		if err != nil {
			WriteError(w, model.NewValidationError([]model.FieldError{{Field: "banned", Message: "banned must be true or false"}}))
			return
		}
		filter.Banned = &banned
	}

	users, err := h.admin.ListUsers(r.Context(), filter)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list users"))
		return
	}
	WriteCollection(w, http.StatusOK, users, page(limit, offset, len(users)), nil)
}

// GetUser handles GET /v1/admin/users/{userId}
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("userId")
	me, err := h.admin.GetUser(r.Context(), id)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get user"))
		return
	}
	WriteData(w, http.StatusOK, me, adminUserLinks(id))
}

// BanUser handles POST /v1/admin/users/{userId}/ban
func (h *AdminHandler) BanUser(w http.ResponseWriter, r *http.Request) {
	var req model.BanUserRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	user, err := h.admin.BanUser(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("userId"), req.Reason)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "ban user"))
		return
	}
	WriteData(w, http.StatusOK, user, adminUserLinks(user.ID))
}

// UnbanUser handles POST /v1/admin/users/{userId}/unban
func (h *AdminHandler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.admin.UnbanUser(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("userId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "unban user"))
		return
	}
	WriteData(w, http.StatusOK, user, adminUserLinks(user.ID))
}

// AdjustWallet handles POST /v1/admin/users/{userId}/wallet. Positive
// amounts credit, negative amounts debit.
func (h *AdminHandler) AdjustWallet(w http.ResponseWriter, r *http.Request) {
	var req model.AdminCreditRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	wallet, err := h.admin.AdjustWallet(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("userId"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "adjust wallet"))
		return
	}
	WriteData(w, http.StatusOK, wallet, nil)
}

// ApproveRaffle handles POST /v1/admin/raffles/{raffleId}/approve
func (h *AdminHandler) ApproveRaffle(w http.ResponseWriter, r *http.Request) {
	raffle, err := h.admin.ApproveRaffle(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("raffleId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "approve raffle"))
		return
	}
	WriteData(w, http.StatusOK, raffle, raffleLinks(raffle.ID))
}

// RejectRaffle handles POST /v1/admin/raffles/{raffleId}/reject
func (h *AdminHandler) RejectRaffle(w http.ResponseWriter, r *http.Request) {
	var req model.RejectRaffleRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	raffle, err := h.admin.RejectRaffle(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("raffleId"), req.Reason)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "reject raffle"))
		return
	}
	WriteData(w, http.StatusOK, raffle, raffleLinks(raffle.ID))
}

// CancelRaffle handles POST /v1/admin/raffles/{raffleId}/cancel and
// refunds every ticket
func (h *AdminHandler) CancelRaffle(w http.ResponseWriter, r *http.Request) {
	var req model.RejectRaffleRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	raffle, err := h.admin.CancelRaffle(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("raffleId"), req.Reason)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "cancel raffle"))
		return
	}
	WriteData(w, http.StatusOK, raffle, raffleLinks(raffle.ID))
}

// CancelAuction handles POST /v1/admin/auctions/{auctionId}/cancel and
// releases the leading hold
func (h *AdminHandler) CancelAuction(w http.ResponseWriter, r *http.Request) {
	auction, err := h.admin.CancelAuction(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("auctionId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "cancel auction"))
		return
	}
	WriteData(w, http.StatusOK, auction, auctionLinks(auction.ID))
}

// AuditLogs handles GET /v1/admin/logs
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	logs, err := h.admin.ListAuditLogs(r.Context(), limit, offset)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list audit logs"))
		return
	}
	WriteCollection(w, http.StatusOK, logs, page(limit, offset, len(logs)), nil)
}
