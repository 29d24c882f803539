package handler

import (
	"context"
	"net/http"
	"regexp"

	"github.com/epicstrade/rifas/internal/middleware"
	"github.com/epicstrade/rifas/internal/model"
)

var steamIDPattern = regexp.MustCompile(`^\d{17}$`)

// InventoryAPI is the part of the inventory service the handler uses
type InventoryAPI interface {
	GetProfile(ctx context.Context, steamID string) (*model.PlayerSummary, error)
	GetInventory(ctx context.Context, steamID, gameKey string, priced bool) (*model.Inventory, error)
	GetItemPrice(ctx context.Context, gameKey, marketHashName string) (*model.MarketPrice, error)
}

// SteamHandler proxies the Steam Web API so the browser never needs the
// API key
type SteamHandler struct {
	inventory InventoryAPI
}

// NewSteamHandler creates a new Steam proxy handler
func NewSteamHandler(inventory InventoryAPI) *SteamHandler {
	return &SteamHandler{inventory: inventory}
}

// Profile handles GET /v1/steam/profiles/{steamId}
func (h *SteamHandler) Profile(w http.ResponseWriter, r *http.Request) {
	steamID := r.PathValue("steamId")
	if !steamIDPattern.MatchString(steamID) {
		WriteError(w, model.NewBadRequestError("steamId must be a 17 digit SteamID64"))
		return
	}

	summary, err := h.inventory.GetProfile(r.Context(), steamID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "steam profile"))
		return
	}
	WriteData(w, http.StatusOK, summary, nil)
}

// Inventory handles GET /v1/steam/inventory/{steamId}?game=cs2&priced=true
// and GET /v1/steam/inventory for the caller
func (h *SteamHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	steamID := r.PathValue("steamId")
	if steamID == "" {
		steamID = middleware.GetSteamID(r.Context())
	}
	if !steamIDPattern.MatchString(steamID) {
		WriteError(w, model.NewBadRequestError("steamId must be a 17 digit SteamID64"))
		return
	}

	game := r.URL.Query().Get("game")
	if game == "" {
		game = "cs2"
	}

	inv, err := h.inventory.GetInventory(r.Context(), steamID, game, r.URL.Query().Get("priced") == "true")
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "steam inventory"))
		return
	}
	WriteData(w, http.StatusOK, inv, nil)
}

// Price handles GET /v1/steam/prices?game=cs2&name=<market hash name>
func (h *SteamHandler) Price(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{{Field: "name", Message: "name is required"}}))
		return
	}
	game := r.URL.Query().Get("game")
	if game == "" {
		game = "cs2"
	}

	price, err := h.inventory.GetItemPrice(r.Context(), game, name)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "market price"))
		return
	}
	WriteData(w, http.StatusOK, price, nil)
}
