package jobs

import (
	"context"
	"log/slog"
	"time"
)

// DefaultBatchSize bounds how many raffles or auctions one query loads
const DefaultBatchSize = 50

// RaffleDrawSource draws raffles whose draw time has passed or that sold out
type RaffleDrawSource interface {
	DrawDue(ctx context.Context, limit int) (int, error)
}

// AuctionSettleSource settles auctions whose end time has passed
type AuctionSettleSource interface {
	SettleDue(ctx context.Context, limit int) (int, error)
}

// drainBatches calls fn until it returns a short batch, so a backlog is
// cleared in one pass
func drainBatches(ctx context.Context, batch int, fn func(ctx context.Context, limit int) (int, error)) (int, error) {
	total := 0
	for {
		n, err := fn(ctx, batch)
		total += n
		if err != nil {
			return total, err
		}
		if n < batch {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

// NewRaffleDrawer creates the job that draws due raffles
func NewRaffleDrawer(raffles RaffleDrawSource, interval time.Duration) *Periodic {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return NewPeriodic(PeriodicConfig{Name: "raffle-drawer", Interval: interval, Delay: 5 * time.Second}, func(ctx context.Context) error {
		n, err := drainBatches(ctx, DefaultBatchSize, raffles.DrawDue)
		if n > 0 {
			slog.Info("raffles drawn", slog.Int("count", n))
		}
		return err
	})
}

// NewAuctionSettler creates the job that settles ended auctions
func NewAuctionSettler(auctions AuctionSettleSource, interval time.Duration) *Periodic {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return NewPeriodic(PeriodicConfig{Name: "auction-settler", Interval: interval, Delay: 5 * time.Second}, func(ctx context.Context) error {
		n, err := drainBatches(ctx, DefaultBatchSize, auctions.SettleDue)
		if n > 0 {
			slog.Info("auctions settled", slog.Int("count", n))
		}
		return err
	})
}
