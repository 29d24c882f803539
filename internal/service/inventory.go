package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/epicstrade/rifas/internal/clock"
	"github.com/epicstrade/rifas/internal/model"
	"github.com/epicstrade/rifas/internal/steam"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// SteamMarket is the Steam Web API surface used by the inventory service
type SteamMarket interface {
	PlayerSummary(ctx context.Context, steamID string) (*model.PlayerSummary, error)
	Inventory(ctx context.Context, steamID string, game model.Game) ([]model.InventoryItem, error)
	MarketPrice(ctx context.Context, appID int, marketHashName string) (*model.MarketPrice, error)
}

// maxPricedItems bounds market lookups per inventory request
const maxPricedItems = 30

type cachedPrice struct {
	price   *model.MarketPrice
	expires time.Time
}

// InventoryService proxies Steam inventories and market prices. Prices are
// cached for a TTL and concurrent misses for the same item share a single
// upstream request.
type InventoryService struct {
	steam  SteamMarket
	clock  clock.Clock
	logger *slog.Logger
	ttl    time.Duration

	mu     sync.RWMutex
	prices map[string]cachedPrice
	group  singleflight.Group
}

// NewInventoryService creates a new inventory service
func NewInventoryService(api SteamMarket, ttl time.Duration, clk clock.Clock, logger *slog.Logger) *InventoryService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &InventoryService{
		steam:  api,
		clock:  clk,
		logger: logger,
		ttl:    ttl,
		prices: make(map[string]cachedPrice),
	}
}

// GetProfile returns a public Steam profile
func (s *InventoryService) GetProfile(ctx context.Context, steamID string) (*model.PlayerSummary, error) {
	summary, err := s.steam.PlayerSummary(ctx, steamID)
	if err != nil {
		return nil, mapSteamError(err)
	}
	return summary, nil
}

// GetInventory returns the user's items for a game. With priced set, the
// first marketable items are priced from the market cache.
func (s *InventoryService) GetInventory(ctx context.Context, steamID, gameKey string, priced bool) (*model.Inventory, error) {
	game, ok := model.LookupGame(gameKey)
	if !ok {
		return nil, ErrUnsupportedGame
	}
	items, err := s.steam.Inventory(ctx, steamID, game)
	if err != nil {
		return nil, mapSteamError(err)
	}

	inv := &model.Inventory{SteamID: steamID, Game: game, Items: items, TotalValue: decimal.Zero}
	if !priced {
		return inv, nil
	}

	lookups := 0
	for i := range inv.Items {
		item := &inv.Items[i]
		if !item.Marketable || lookups >= maxPricedItems {
			continue
		}
		lookups++
		price, err := s.price(ctx, game.AppID, item.MarketHashName)
		if err != nil {
			if errors.Is(err, steam.ErrRateLimited) {
				s.logger.Warn("steam market rate limited, inventory partially priced", "steam_id", steamID)
				break
			}
			continue
		}
		if best := price.Best(); best != nil {
			v := *best
			item.Price = &v
			inv.TotalValue = inv.TotalValue.Add(v)
		}
	}
	return inv, nil
}

// GetItemPrice returns the market price of one item
func (s *InventoryService) GetItemPrice(ctx context.Context, gameKey, marketHashName string) (*model.MarketPrice, error) {
	game, ok := model.LookupGame(gameKey)
	if !ok {
		return nil, ErrUnsupportedGame
	}
	price, err := s.price(ctx, game.AppID, marketHashName)
	if err != nil {
		return nil, mapSteamError(err)
	}
	return price, nil
}

func (s *InventoryService) price(ctx context.Context, appID int, name string) (*model.MarketPrice, error) {
	key := strconv.Itoa(appID) + "/" + name

	s.mu.RLock()
	entry, ok := s.prices[key]
	s.mu.RUnlock()
	if ok && s.clock.Now().Before(entry.expires) {
		return entry.price, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		p, err := s.steam.MarketPrice(ctx, appID, name)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.prices[key] = cachedPrice{price: p, expires: s.clock.Now().Add(s.ttl)}
		s.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.MarketPrice), nil
}

// PurgeExpired drops stale cache entries and returns how many were removed
func (s *InventoryService) PurgeExpired() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.prices {
		if !now.Before(e.expires) {
			delete(s.prices, k)
			removed++
		}
	}
	return removed
}

func mapSteamError(err error) error {
	switch {
	case errors.Is(err, steam.ErrPrivateInventory):
		return ErrInventoryPrivate
	case errors.Is(err, steam.ErrPlayerNotFound):
		return ErrUserNotFound
	case errors.Is(err, steam.ErrPriceUnavailable):
		return ErrPriceNotAvailable
	case errors.Is(err, steam.ErrRateLimited), errors.Is(err, steam.ErrUpstream):
		return fmt.Errorf("%w: %v", ErrSteamUnavailable, err)
	}
	return err
}
