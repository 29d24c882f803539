package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/epicstrade/rifas/internal/middleware"
	"github.com/epicstrade/rifas/internal/model"
)

// AuctionAPI is the part of the auction service the handler uses
type AuctionAPI interface {
	Create(ctx context.Context, sellerID string, req *model.CreateAuctionRequest) (*model.Auction, error)
	Get(ctx context.Context, id string) (*model.Auction, error)
	List(ctx context.Context, filter model.AuctionFilter) ([]*model.Auction, error)
	ListBids(ctx context.Context, auctionID string, limit int) ([]*model.Bid, error)
	Tick(ctx context.Context, auctionID string) (*model.AuctionTick, error)
	PlaceBid(ctx context.Context, userID, auctionID string, amount decimal.Decimal) (*model.BidResult, error)
	Cancel(ctx context.Context, auctionID, actorID string, isAdmin bool) (*model.Auction, error)
}

// AuctionHandler handles auction ("Leilões") endpoints
type AuctionHandler struct {
	auctions AuctionAPI
}

// NewAuctionHandler creates a new auction handler
func NewAuctionHandler(auctions AuctionAPI) *AuctionHandler {
	return &AuctionHandler{auctions: auctions}
}

func auctionLinks(id string) map[string]string {
	return map[string]string{
		"self":   "/v1/auctions/" + id,
		"bids":   "/v1/auctions/" + id + "/bids",
		"tick":   "/v1/auctions/" + id + "/tick",
		"stream": "/v1/auctions/" + id + "/stream",
	}
}

// List handles GET /v1/auctions?status=&game=&seller=&limit=&offset=
func (h *AuctionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(r)
	filter := model.AuctionFilter{
		Game:     q.Get("game"),
		SellerID: q.Get("seller"),
		Limit:    limit,
		Offset:   offset,
	}
	if s := q.Get("status"); s != "" {
		if !model.IsValidAuctionStatus(s) {
			WriteError(w, model.NewValidationError([]model.FieldError{{Field: "status", Message: "unknown auction status"}}))
			return
		}
		status := model.AuctionStatus(s)
		filter.Status = &status
	}

	auctions, err := h.auctions.List(r.Context(), filter)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list auctions"))
		return
	}
	WriteCollection(w, http.StatusOK, auctions, page(limit, offset, len(auctions)), nil)
}

// Get handles GET /v1/auctions/{auctionId}
func (h *AuctionHandler) Get(w http.ResponseWriter, r *http.Request) {
	auction, err := h.auctions.Get(r.Context(), r.PathValue("auctionId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get auction"))
		return
	}
	WriteData(w, http.StatusOK, auction, auctionLinks(auction.ID))
}

// Create handles POST /v1/auctions
func (h *AuctionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAuctionRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	auction, err := h.auctions.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "create auction"))
		return
	}
	WriteData(w, http.StatusCreated, auction, auctionLinks(auction.ID))
}

// PlaceBid handles POST /v1/auctions/{auctionId}/bids. The server decides
// the outcome; a 409 means another bid won the race and the client should
// refresh the minimum.
func (h *AuctionHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	var req model.PlaceBidRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.auctions.PlaceBid(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("auctionId"), req.Amount)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "place bid"))
		return
	}
	WriteData(w, http.StatusCreated, result, auctionLinks(result.Auction.ID))
}

// Bids handles GET /v1/auctions/{auctionId}/bids?limit=
func (h *AuctionHandler) Bids(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	limit, _ = model.ClampPage(limit, 0)

	bids, err := h.auctions.ListBids(r.Context(), r.PathValue("auctionId"), limit)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list bids"))
		return
	}
	WriteCollection(w, http.StatusOK, bids, nil, nil)
}

// Tick handles GET /v1/auctions/{auctionId}/tick, the countdown snapshot
// clients resync their timers against
func (h *AuctionHandler) Tick(w http.ResponseWriter, r *http.Request) {
	tick, err := h.auctions.Tick(r.Context(), r.PathValue("auctionId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "auction tick"))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteData(w, http.StatusOK, tick, nil)
}

// Cancel handles POST /v1/auctions/{auctionId}/cancel. Sellers may cancel
// before the first bid.
func (h *AuctionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auction, err := h.auctions.Cancel(ctx, r.PathValue("auctionId"), middleware.GetUserID(ctx), false)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "cancel auction"))
		return
	}
	WriteData(w, http.StatusOK, auction, auctionLinks(auction.ID))
}
