package jobs

import (
	"context"
	"log/slog"
	"time"
)

// TokenStore removes expired refresh tokens
type TokenStore interface {
	CleanupExpired(ctx context.Context) error
}

// PriceCache drops stale Steam market prices and inventories
type PriceCache interface {
	PurgeExpired() int
}

// NewTokenCleanup creates the hourly refresh token cleanup job
func NewTokenCleanup(tokens TokenStore, interval time.Duration) *Periodic {
	if interval <= 0 {
		interval = time.Hour
	}
	return NewPeriodic(PeriodicConfig{Name: "token-cleanup", Interval: interval, Delay: time.Minute}, tokens.CleanupExpired)
}

// NewPricePurge creates the job that evicts expired cache entries
func NewPricePurge(cache PriceCache, interval time.Duration) *Periodic {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return NewPeriodic(PeriodicConfig{Name: "price-purge", Interval: interval, Delay: interval}, func(ctx context.Context) error {
		if n := cache.PurgeExpired(); n > 0 {
			slog.Debug("price cache purged", slog.Int("entries", n))
		}
		return nil
	})
}
