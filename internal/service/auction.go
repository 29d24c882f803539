package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/epicstrade/rifas/internal/clock"
	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
	"github.com/epicstrade/rifas/internal/notify"
	"github.com/shopspring/decimal"
)

// AuctionRepository defines the interface for auction storage
type AuctionRepository interface {
	Create(ctx context.Context, a *model.Auction) error
	GetByID(ctx context.Context, id string) (*model.Auction, error)
	List(ctx context.Context, filter model.AuctionFilter) ([]*model.Auction, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Auction, error)
	ListBids(ctx context.Context, auctionID string, limit int) ([]*model.Bid, error)
	PlaceBid(ctx context.Context, p model.BidPlacement) error
	Close(ctx context.Context, auctionID string, status model.AuctionStatus, mutations []model.WalletMutation) error
	CountByStatus(ctx context.Context, status model.AuctionStatus) (int, error)
}

// BidTooLowError carries the minimum acceptable bid
type BidTooLowError struct {
	Minimum decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("%s: minimum is %s", ErrBidTooLow, e.Minimum.StringFixed(2))
}

// Unwrap lets errors.Is match ErrBidTooLow
func (e *BidTooLowError) Unwrap() error { return ErrBidTooLow }

// AuctionService runs server-authoritative auctions. Bids on one auction
// are serialized by an in-process lock and committed with a version
// compare-and-swap, so concurrent instances cannot both win.
type AuctionService struct {
	auctions AuctionRepository
	users    UserRepository
	wallets  WalletRepository
	events   *EventHub
	notifier notify.Notifier
	clock    clock.Clock
	logger   *slog.Logger
	locks    *keyedMutex

	minIncrement    decimal.Decimal
	antiSnipeWindow time.Duration
	antiSnipeExtend time.Duration
	feePercent      decimal.Decimal
	minDuration     time.Duration
	maxDuration     time.Duration
}

// AuctionServiceConfig holds dependencies and rules for the auction service
type AuctionServiceConfig struct {
	Auctions AuctionRepository
	Users    UserRepository
	Wallets  WalletRepository
	Events   *EventHub
	Notifier notify.Notifier
	Clock    clock.Clock
	Logger   *slog.Logger

	MinIncrement    decimal.Decimal
	AntiSnipeWindow time.Duration
	AntiSnipeExtend time.Duration
	FeePercent      decimal.Decimal
	MinDuration     time.Duration
	MaxDuration     time.Duration
}

// NewAuctionService creates a new auction service
func NewAuctionService(cfg AuctionServiceConfig) *AuctionService {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Noop{}
	}
	return &AuctionService{
		auctions:        cfg.Auctions,
		users:           cfg.Users,
		wallets:         cfg.Wallets,
		events:          cfg.Events,
		notifier:        cfg.Notifier,
		clock:           cfg.Clock,
		logger:          cfg.Logger,
		locks:           newKeyedMutex(),
		minIncrement:    cfg.MinIncrement,
		antiSnipeWindow: cfg.AntiSnipeWindow,
		antiSnipeExtend: cfg.AntiSnipeExtend,
		feePercent:      cfg.FeePercent,
		minDuration:     cfg.MinDuration,
		maxDuration:     cfg.MaxDuration,
	}
}

// Create opens an auction
func (s *AuctionService) Create(ctx context.Context, sellerID string, req *model.CreateAuctionRequest) (*model.Auction, error) {
	if _, err := activeUser(ctx, s.users, sellerID); err != nil {
		return nil, err
	}
	game, ok := model.LookupGame(req.Game)
	if !ok {
		return nil, ErrUnsupportedGame
	}

	now := s.clock.Now()
	startsAt := now
	if req.StartsAt != "" {
		t, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			return nil, ErrInvalidSchedule
		}
		if t.After(now) {
			startsAt = t.UTC()
		}
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, ErrInvalidSchedule
	}
	duration := endsAt.Sub(startsAt)
	if duration <= 0 || (s.minDuration > 0 && duration < s.minDuration) || (s.maxDuration > 0 && duration > s.maxDuration) {
		return nil, ErrInvalidSchedule
	}

	increment := s.minIncrement
	if req.MinIncrement != nil {
		increment = *req.MinIncrement
	}
	if !model.ValidAmount(req.StartingPrice) || !model.ValidAmount(increment) {
		return nil, ErrInvalidAmount
	}

	a := &model.Auction{
		Title:         req.Title,
		Game:          game,
		Item:          req.Item,
		SellerID:      sellerID,
		StartingPrice: req.StartingPrice,
		MinIncrement:  increment,
		StartsAt:      startsAt,
		EndsAt:        endsAt.UTC(),
	}
	if err := s.auctions.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("auction created", "auction_id", a.ID, "seller_id", sellerID, "ends_at", a.EndsAt)
	return a, nil
}

// Get returns an auction
func (s *AuctionService) Get(ctx context.Context, id string) (*model.Auction, error) {
	a, err := s.auctions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAuctionNotFound
	}
	return a, nil
}

// List returns auctions matching filter
func (s *AuctionService) List(ctx context.Context, filter model.AuctionFilter) ([]*model.Auction, error) {
	return s.auctions.List(ctx, filter)
}

// ListBids returns an auction's accepted bids, newest first
func (s *AuctionService) ListBids(ctx context.Context, auctionID string, limit int) ([]*model.Bid, error) {
	if _, err := s.Get(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.auctions.ListBids(ctx, auctionID, limit)
}

// Tick returns the countdown payload for an auction
func (s *AuctionService) Tick(ctx context.Context, auctionID string) (*model.AuctionTick, error) {
	a, err := s.Get(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	tick := a.Tick(s.clock.Now())
	return &tick, nil
}

// PlaceBid accepts amount from userID if it beats the minimum. The
// bidder's funds are locked and the previous leader's released in the
// same commit. A leader raising their own bid only locks the difference.
// A bid inside the anti-sniping window pushes ends_at out.
func (s *AuctionService) PlaceBid(ctx context.Context, userID, auctionID string, amount decimal.Decimal) (*model.BidResult, error) {
	if !model.ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	bidder, err := activeUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(auctionID)
	defer unlock()

	a, err := s.Get(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !a.IsOpen(now) {
		return nil, ErrAuctionClosed
	}
	if a.SellerID == userID {
		return nil, ErrOwnAuction
	}
	if minimum := a.MinimumBid(); amount.LessThan(minimum) {
		return nil, &BidTooLowError{Minimum: minimum}
	}

	amountCents := model.ToCents(amount)
	ref := a.ID
	var mutations []model.WalletMutation
	previousLeader := ""
	if a.LeaderID != nil && *a.LeaderID == userID {
		mutations = append(mutations, lockMutation(userID, amountCents-model.ToCents(a.CurrentBid), ref))
	} else {
		mutations = append(mutations, lockMutation(userID, amountCents, ref))
		if a.LeaderID != nil {
			previousLeader = *a.LeaderID
			mutations = append(mutations, unlockMutation(previousLeader, model.ToCents(a.CurrentBid), ref))
		}
	}

	endsAt, extended := s.extendIfSniped(a.EndsAt, now)
	placement := model.BidPlacement{
		AuctionID:       a.ID,
		BidderID:        userID,
		BidderName:      bidder.PersonaName,
		AmountCents:     amountCents,
		ExpectedVersion: a.Version,
		EndsAt:          endsAt,
		Extended:        extended,
		Mutations:       mutations,
	}
	if err := s.auctions.PlaceBid(ctx, placement); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrBidConflict
		}
		return nil, mapWalletError(err)
	}

	updated, err := s.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	bid := &model.Bid{
		AuctionID:  a.ID,
		BidderID:   userID,
		BidderName: bidder.PersonaName,
		Amount:     amount,
		Extended:   extended,
		CreatedOn:  now,
	}
	if bids, err := s.auctions.ListBids(ctx, a.ID, 1); err == nil && len(bids) == 1 && bids[0].BidderID == userID {
		bid = bids[0]
	}
	result := &model.BidResult{Bid: bid, Auction: updated, Tick: updated.Tick(now)}

	s.logger.Info("bid accepted", "auction_id", a.ID, "user_id", userID, "amount", amount.StringFixed(2), "extended", extended)
	s.events.Publish(&Event{Type: EventBidPlaced, Topic: AuctionTopic(a.ID), Data: result})
	s.publishWallet(ctx, userID)
	if previousLeader != "" {
		s.events.SendToUser(previousLeader, &Event{Type: EventOutbid, Data: result.Tick})
		s.publishWallet(ctx, previousLeader)
	}
	return result, nil
}

// extendIfSniped returns the new end time when a bid at now lands inside
// the anti-sniping window
func (s *AuctionService) extendIfSniped(endsAt, now time.Time) (time.Time, bool) {
	if s.antiSnipeWindow <= 0 || endsAt.Sub(now) > s.antiSnipeWindow {
		return endsAt, false
	}
	extended := now.Add(s.antiSnipeExtend)
	if !extended.After(endsAt) {
		return endsAt, false
	}
	return extended, true
}

// Settle closes an ended auction. The winner's locked funds are captured
// and the seller credited minus the platform fee; an auction without bids
// expires.
func (s *AuctionService) Settle(ctx context.Context, auctionID string) (*model.Settlement, error) {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	a, err := s.Get(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AuctionStatusActive {
		return nil, ErrAuctionFinished
	}
	if s.clock.Now().Before(a.EndsAt) {
		return nil, ErrAuctionNotEnded
	}

	if a.LeaderID == nil {
		if err := s.auctions.Close(ctx, a.ID, model.AuctionStatusExpired, nil); err != nil {
			return nil, mapAuctionStoreError(err)
		}
		s.publishClosed(ctx, a.ID)
		s.logger.Info("auction expired", "auction_id", a.ID)
		return &model.Settlement{AuctionID: a.ID, SellerID: a.SellerID}, nil
	}

	winnerID := *a.LeaderID
	fee := model.PercentOf(a.CurrentBid, s.feePercent)
	payout := a.CurrentBid.Sub(fee)
	mutations := []model.WalletMutation{captureMutation(winnerID, model.ToCents(a.CurrentBid), a.ID)}
	if payout.IsPositive() {
		mutations = append(mutations, creditMutation(a.SellerID, model.TxAuctionPayout, model.ToCents(payout), a.ID,
			fmt.Sprintf("sale %s, fee %s", a.CurrentBid.StringFixed(2), fee.StringFixed(2))))
	}
	if err := s.auctions.Close(ctx, a.ID, model.AuctionStatusSettled, mutations); err != nil {
		return nil, mapAuctionStoreError(err)
	}

	settlement := &model.Settlement{
		AuctionID: a.ID,
		WinnerID:  winnerID,
		SellerID:  a.SellerID,
		Amount:    a.CurrentBid,
		Fee:       fee,
		Payout:    payout,
	}
	s.logger.Info("auction settled", "auction_id", a.ID, "winner_id", winnerID, "amount", a.CurrentBid.StringFixed(2))
	s.publishClosed(ctx, a.ID)
	s.publishWallet(ctx, winnerID)
	s.publishWallet(ctx, a.SellerID)
	_ = s.notifier.Notify(ctx, fmt.Sprintf("Leilão %q liquidado por R$ %s (taxa R$ %s)", a.Title, a.CurrentBid.StringFixed(2), fee.StringFixed(2)))
	return settlement, nil
}

// SettleDue settles every ended auction and returns how many were closed
func (s *AuctionService) SettleDue(ctx context.Context, limit int) (int, error) {
	due, err := s.auctions.ListDue(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, a := range due {
		if _, err := s.Settle(ctx, a.ID); err != nil {
			if errors.Is(err, ErrAuctionFinished) || errors.Is(err, ErrAuctionNotEnded) {
				continue
			}
			s.logger.Error("failed to settle auction", "auction_id", a.ID, "error", err)
			continue
		}
		settled++
	}
	return settled, nil
}

// Cancel withdraws an active auction and releases the leader's lock.
// Sellers may cancel only before the first bid.
func (s *AuctionService) Cancel(ctx context.Context, auctionID, actorID string, isAdmin bool) (*model.Auction, error) {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	a, err := s.Get(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AuctionStatusActive {
		return nil, ErrAuctionFinished
	}
	if !isAdmin {
		if a.SellerID != actorID {
			return nil, ErrAdminRequired
		}
		if a.LeaderID != nil {
			return nil, ErrAuctionHasLeader
		}
	}

	var mutations []model.WalletMutation
	if a.LeaderID != nil {
		mutations = append(mutations, unlockMutation(*a.LeaderID, model.ToCents(a.CurrentBid), a.ID))
	}
	if err := s.auctions.Close(ctx, a.ID, model.AuctionStatusCancelled, mutations); err != nil {
		return nil, mapAuctionStoreError(err)
	}

	s.logger.Info("auction cancelled", "auction_id", a.ID, "actor_id", actorID)
	s.publishClosed(ctx, a.ID)
	if a.LeaderID != nil {
		s.publishWallet(ctx, *a.LeaderID)
	}
	return s.Get(ctx, a.ID)
}

// CountByStatus returns the number of auctions in status
func (s *AuctionService) CountByStatus(ctx context.Context, status model.AuctionStatus) (int, error) {
	return s.auctions.CountByStatus(ctx, status)
}

func (s *AuctionService) publishClosed(ctx context.Context, auctionID string) {
	a, err := s.Get(ctx, auctionID)
	if err != nil {
		return
	}
	s.events.Publish(&Event{Type: EventAuctionClosed, Topic: AuctionTopic(auctionID), Data: a.Tick(s.clock.Now())})
}

func (s *AuctionService) publishWallet(ctx context.Context, userID string) {
	if s.events == nil {
		return
	}
	if w, err := s.wallets.Get(ctx, userID); err == nil {
		s.events.PublishWallet(w)
	}
}

func mapAuctionStoreError(err error) error {
	if errors.Is(err, database.ErrConflict) {
		return ErrBidConflict
	}
	return mapWalletError(err)
}
