package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Game is a Steam title whose items can be raffled or auctioned
type Game struct {
	AppID     int    `json:"app_id"`
	ContextID int    `json:"context_id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
}

// SupportedGames lists the titles the platform accepts items from
var SupportedGames = []Game{
	{AppID: 730, ContextID: 2, Slug: "cs2", Name: "Counter-Strike 2"},
	{AppID: 570, ContextID: 2, Slug: "dota2", Name: "Dota 2"},
	{AppID: 440, ContextID: 2, Slug: "tf2", Name: "Team Fortress 2"},
	{AppID: 252490, ContextID: 2, Slug: "rust", Name: "Rust"},
}

// LookupGame finds a supported game by slug or numeric app id
func LookupGame(key string) (Game, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	appID, _ := strconv.Atoi(key)
	for _, g := range SupportedGames {
		if g.Slug == key || (appID != 0 && g.AppID == appID) {
			return g, true
		}
	}
	return Game{}, false
}

// Item is the virtual skin being raffled or auctioned
type Item struct {
	Name           string          `json:"name"`
	MarketHashName string          `json:"market_hash_name"`
	ImageURL       string          `json:"image_url,omitempty"`
	Rarity         string          `json:"rarity,omitempty"`
	AssetID        string          `json:"asset_id,omitempty"`
	MarketValue    decimal.Decimal `json:"market_value"`
}

func (i *Item) validate(errs []FieldError) []FieldError {
	if i.Name == "" {
		errs = append(errs, FieldError{Field: "item.name", Message: "item name is required"})
	} else if len(i.Name) > MaxItemNameLength {
		errs = append(errs, FieldError{Field: "item.name", Message: "item name must be 200 characters or less"})
	}
	if i.MarketHashName == "" {
		errs = append(errs, FieldError{Field: "item.market_hash_name", Message: "market_hash_name is required"})
	}
	if i.MarketValue.IsNegative() {
		errs = append(errs, FieldError{Field: "item.market_value", Message: "market_value must not be negative"})
	}
	return errs
}

// PlayerSummary is the public Steam profile
type PlayerSummary struct {
	SteamID     string `json:"steam_id"`
	PersonaName string `json:"persona_name"`
	ProfileURL  string `json:"profile_url"`
	Avatar      string `json:"avatar"`
	AvatarFull  string `json:"avatar_full"`
	Visibility  int    `json:"visibility"` // 3 = public
	CountryCode string `json:"country_code,omitempty"`
}

// InventoryItem is one asset from a Steam inventory
type InventoryItem struct {
	AssetID        string           `json:"asset_id"`
	ClassID        string           `json:"class_id"`
	InstanceID     string           `json:"instance_id"`
	Name           string           `json:"name"`
	MarketHashName string           `json:"market_hash_name"`
	Type           string           `json:"type,omitempty"`
	Rarity         string           `json:"rarity,omitempty"`
	IconURL        string           `json:"icon_url,omitempty"`
	Tradable       bool             `json:"tradable"`
	Marketable     bool             `json:"marketable"`
	Price          *decimal.Decimal `json:"price,omitempty"`
}

// Inventory is a priced Steam inventory for one game
type Inventory struct {
	SteamID    string          `json:"steam_id"`
	Game       Game            `json:"game"`
	Items      []InventoryItem `json:"items"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// MarketPrice is a Steam Community Market price overview
type MarketPrice struct {
	AppID          int              `json:"app_id"`
	MarketHashName string           `json:"market_hash_name"`
	Currency       int              `json:"currency"`
	Lowest         *decimal.Decimal `json:"lowest,omitempty"`
	Median         *decimal.Decimal `json:"median,omitempty"`
	Volume         int              `json:"volume"`
	FetchedOn      time.Time        `json:"fetched_on"`
}

// Best returns the lowest listing price, falling back to the median
func (p *MarketPrice) Best() *decimal.Decimal {
	if p.Lowest != nil {
		return p.Lowest
	}
	return p.Median
}

const MaxItemNameLength = 200
