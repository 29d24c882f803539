package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/epicstrade/rifas/internal/model"
	"github.com/shopspring/decimal"
)

var (
	ErrUpstream         = errors.New("steam upstream error")
	ErrRateLimited      = errors.New("steam rate limited")
	ErrPlayerNotFound   = errors.New("steam player not found")
	ErrPrivateInventory = errors.New("steam inventory is private")
	ErrPriceUnavailable = errors.New("steam market price unavailable")
)

const (
	DefaultAPIBaseURL       = "https://api.steampowered.com"
	DefaultCommunityBaseURL = "https://steamcommunity.com"
	iconBaseURL             = "https://community.cloudflare.steamstatic.com/economy/image/"
)

// Config holds Steam Web API client settings
type Config struct {
	APIKey           string
	Currency         int // market currency code, 7 = BRL
	APIBaseURL       string
	CommunityBaseURL string
	HTTPClient       *http.Client
}

// Client calls the Steam Web API and Community endpoints
type Client struct {
	apiKey        string
	currency      int
	apiBase       string
	communityBase string
	httpClient    *http.Client
}

// NewClient creates a Steam client, filling unset fields with defaults
func NewClient(cfg Config) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.CommunityBaseURL == "" {
		cfg.CommunityBaseURL = DefaultCommunityBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Currency == 0 {
		cfg.Currency = 7
	}
	return &Client{
		apiKey:        cfg.APIKey,
		currency:      cfg.Currency,
		apiBase:       strings.TrimRight(cfg.APIBaseURL, "/"),
		communityBase: strings.TrimRight(cfg.CommunityBaseURL, "/"),
		httpClient:    cfg.HTTPClient,
	}
}

// Currency returns the market currency code prices are requested in
func (c *Client) Currency() int {
	return c.currency
}

type playerSummariesResponse struct {
	Response struct {
		Players []struct {
			SteamID                  string `json:"steamid"`
			PersonaName              string `json:"personaname"`
			ProfileURL               string `json:"profileurl"`
			Avatar                   string `json:"avatar"`
			AvatarFull               string `json:"avatarfull"`
			CommunityVisibilityState int    `json:"communityvisibilitystate"`
			LocCountryCode           string `json:"loccountrycode"`
		} `json:"players"`
	} `json:"response"`
}

// PlayerSummary fetches the public profile for steamID
func (c *Client) PlayerSummary(ctx context.Context, steamID string) (*model.PlayerSummary, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("steamids", steamID)

	var out playerSummariesResponse
	if err := c.getJSON(ctx, c.apiBase+"/ISteamUser/GetPlayerSummaries/v2/?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if len(out.Response.Players) == 0 {
		return nil, ErrPlayerNotFound
	}

	p := out.Response.Players[0]
	return &model.PlayerSummary{
		SteamID:     p.SteamID,
		PersonaName: p.PersonaName,
		ProfileURL:  p.ProfileURL,
		Avatar:      p.Avatar,
		AvatarFull:  p.AvatarFull,
		Visibility:  p.CommunityVisibilityState,
		CountryCode: p.LocCountryCode,
	}, nil
}

type inventoryAsset struct {
	AssetID    string `json:"assetid"`
	ClassID    string `json:"classid"`
	InstanceID string `json:"instanceid"`
}

type inventoryTag struct {
	Category         string `json:"category"`
	LocalizedTagName string `json:"localized_tag_name"`
}

type inventoryDescription struct {
	ClassID        string         `json:"classid"`
	InstanceID     string         `json:"instanceid"`
	Name           string         `json:"name"`
	MarketHashName string         `json:"market_hash_name"`
	Type           string         `json:"type"`
	IconURL        string         `json:"icon_url"`
	Tradable       int            `json:"tradable"`
	Marketable     int            `json:"marketable"`
	Tags           []inventoryTag `json:"tags"`
}

type inventoryResponse struct {
	Success      int                    `json:"success"`
	TotalCount   int                    `json:"total_inventory_count"`
	Assets       []inventoryAsset       `json:"assets"`
	Descriptions []inventoryDescription `json:"descriptions"`
}

// Inventory fetches the items steamID holds in game. Items are unpriced.
func (c *Client) Inventory(ctx context.Context, steamID string, game model.Game) ([]model.InventoryItem, error) {
	endpoint := fmt.Sprintf("%s/inventory/%s/%d/%d?l=english&count=2000",
		c.communityBase, url.PathEscape(steamID), game.AppID, game.ContextID)

	var out inventoryResponse
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	if out.Success != 1 && len(out.Assets) == 0 {
		return nil, ErrPrivateInventory
	}

	type classKey struct{ class, instance string }
	descs := make(map[classKey]int, len(out.Descriptions))
	for i, d := range out.Descriptions {
		descs[classKey{d.ClassID, d.InstanceID}] = i
	}

	items := make([]model.InventoryItem, 0, len(out.Assets))
	for _, a := range out.Assets {
		i, ok := descs[classKey{a.ClassID, a.InstanceID}]
		if !ok {
			continue
		}
		d := out.Descriptions[i]

		item := model.InventoryItem{
			AssetID:        a.AssetID,
			ClassID:        a.ClassID,
			InstanceID:     a.InstanceID,
			Name:           d.Name,
			MarketHashName: d.MarketHashName,
			Type:           d.Type,
			Tradable:       d.Tradable == 1,
			Marketable:     d.Marketable == 1,
		}
		if d.IconURL != "" {
			item.IconURL = iconBaseURL + d.IconURL
		}
		for _, tag := range d.Tags {
			if tag.Category == "Rarity" {
				item.Rarity = tag.LocalizedTagName
			}
		}
		items = append(items, item)
	}

	return items, nil
}

type priceOverviewResponse struct {
	Success     bool   `json:"success"`
	LowestPrice string `json:"lowest_price"`
	MedianPrice string `json:"median_price"`
	Volume      string `json:"volume"`
}

// MarketPrice fetches the Community Market price overview for one item
func (c *Client) MarketPrice(ctx context.Context, appID int, marketHashName string) (*model.MarketPrice, error) {
	q := url.Values{}
	q.Set("appid", strconv.Itoa(appID))
	q.Set("currency", strconv.Itoa(c.currency))
	q.Set("market_hash_name", marketHashName)

	var out priceOverviewResponse
	if err := c.getJSON(ctx, c.communityBase+"/market/priceoverview/?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, ErrPriceUnavailable
	}

	price := &model.MarketPrice{
		AppID:          appID,
		MarketHashName: marketHashName,
		Currency:       c.currency,
		Volume:         parseVolume(out.Volume),
		FetchedOn:      time.Now().UTC(),
	}
	if out.LowestPrice != "" {
		if d, err := ParsePrice(out.LowestPrice); err == nil {
			price.Lowest = decimalPtr(d)
		}
	}
	if out.MedianPrice != "" {
		if d, err := ParsePrice(out.MedianPrice); err == nil {
			price.Median = decimalPtr(d)
		}
	}
	if price.Best() == nil {
		return nil, ErrPriceUnavailable
	}

	return price, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		// Steam answers 403 for private inventories and bad keys alike.
		return ErrPrivateInventory
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return nil
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
