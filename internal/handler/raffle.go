package handler

import (
	"context"
	"net/http"

	"github.com/epicstrade/rifas/internal/middleware"
	"github.com/epicstrade/rifas/internal/model"
)

// RaffleAPI is the part of the raffle service the handler uses
type RaffleAPI interface {
	Create(ctx context.Context, creatorID string, req *model.CreateRaffleRequest) (*model.Raffle, error)
	Get(ctx context.Context, id string) (*model.Raffle, error)
	List(ctx context.Context, filter model.RaffleFilter) ([]*model.Raffle, error)
	ListTickets(ctx context.Context, raffleID, ownerID string) ([]*model.RaffleTicket, error)
	BuyTickets(ctx context.Context, userID, raffleID string, qty int) (*model.TicketPurchase, error)
	Verify(ctx context.Context, raffleID string) (*model.RaffleProof, error)
	Cancel(ctx context.Context, raffleID, actorID string, isAdmin bool, reason string) (*model.Raffle, error)
}

// RaffleHandler handles raffle ("Eventos") endpoints
type RaffleHandler struct {
	raffles RaffleAPI
}

// NewRaffleHandler creates a new raffle handler
func NewRaffleHandler(raffles RaffleAPI) *RaffleHandler {
	return &RaffleHandler{raffles: raffles}
}

func raffleLinks(id string) map[string]string {
	return map[string]string{
		"self":    "/v1/raffles/" + id,
		"tickets": "/v1/raffles/" + id + "/tickets",
		"proof":   "/v1/raffles/" + id + "/proof",
		"stream":  "/v1/raffles/" + id + "/stream",
	}
}

// List handles GET /v1/raffles?status=&game=&creator=&limit=&offset=
func (h *RaffleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(r)
	filter := model.RaffleFilter{
		Game:      q.Get("game"),
		CreatorID: q.Get("creator"),
		Limit:     limit,
		Offset:    offset,
	}
	if s := q.Get("status"); s != "" {
		if !model.IsValidRaffleStatus(s) {
			WriteError(w, model.NewValidationError([]model.FieldError{{Field: "status", Message: "unknown raffle status"}}))
			return
		}
		status := model.RaffleStatus(s)
		filter.Status = &status
	}

	raffles, err := h.raffles.List(r.Context(), filter)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list raffles"))
		return
	}
	WriteCollection(w, http.StatusOK, raffles, page(limit, offset, len(raffles)), nil)
}

// Get handles GET /v1/raffles/{raffleId}
func (h *RaffleHandler) Get(w http.ResponseWriter, r *http.Request) {
	raffle, err := h.raffles.Get(r.Context(), r.PathValue("raffleId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get raffle"))
		return
	}
	WriteData(w, http.StatusOK, raffle, raffleLinks(raffle.ID))
}

// Create handles POST /v1/raffles. Raffles from regular users wait for
// admin approval.
func (h *RaffleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRaffleRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	raffle, err := h.raffles.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "create raffle"))
		return
	}
	WriteData(w, http.StatusCreated, raffle, raffleLinks(raffle.ID))
}

// BuyTickets handles POST /v1/raffles/{raffleId}/tickets
func (h *RaffleHandler) BuyTickets(w http.ResponseWriter, r *http.Request) {
	var req model.BuyTicketsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	purchase, err := h.raffles.BuyTickets(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("raffleId"), req.Quantity)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "buy tickets"))
		return
	}
	WriteData(w, http.StatusCreated, purchase, raffleLinks(purchase.Raffle.ID))
}

// Tickets handles GET /v1/raffles/{raffleId}/tickets. With mine=true only
// the caller's tickets are returned.
func (h *RaffleHandler) Tickets(w http.ResponseWriter, r *http.Request) {
	ownerID := ""
	if r.URL.Query().Get("mine") == "true" {
		ownerID = middleware.GetUserID(r.Context())
		if ownerID == "" {
			WriteError(w, model.NewUnauthorizedError("authentication required"))
			return
		}
	}

	tickets, err := h.raffles.ListTickets(r.Context(), r.PathValue("raffleId"), ownerID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list tickets"))
		return
	}
	WriteCollection(w, http.StatusOK, tickets, nil, nil)
}

// Proof handles GET /v1/raffles/{raffleId}/proof
func (h *RaffleHandler) Proof(w http.ResponseWriter, r *http.Request) {
	proof, err := h.raffles.Verify(r.Context(), r.PathValue("raffleId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "verify raffle"))
		return
	}
	WriteData(w, http.StatusOK, proof, nil)
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (r *cancelRequest) Validate() []model.FieldError {
	if len(r.Reason) > model.MaxReasonLength {
		return []model.FieldError{{Field: "reason", Message: "reason must be 500 characters or less"}}
	}
	return nil
}

// Cancel handles POST /v1/raffles/{raffleId}/cancel. Creators may cancel
// their own raffle before any ticket is sold.
func (h *RaffleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if r.ContentLength != 0 && !decodeRequest(w, r, &req) {
		return
	}

	ctx := r.Context()
	raffle, err := h.raffles.Cancel(ctx, r.PathValue("raffleId"), middleware.GetUserID(ctx), false, req.Reason)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "cancel raffle"))
		return
	}
	WriteData(w, http.StatusOK, raffle, raffleLinks(raffle.ID))
}
