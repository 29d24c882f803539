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

// creatorCancelReason is recorded when a creator cancels without a reason
const creatorCancelReason = "cancelled by creator"

// RaffleRepository defines the interface for raffle storage
type RaffleRepository interface {
	Create(ctx context.Context, raffle *model.Raffle, seed string) error
	GetByID(ctx context.Context, id string) (*model.Raffle, error)
	List(ctx context.Context, filter model.RaffleFilter) ([]*model.Raffle, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Raffle, error)
	Transition(ctx context.Context, id string, allowed []model.RaffleStatus, next model.RaffleStatus, reason *string) (*model.Raffle, error)
	PurchaseTickets(ctx context.Context, order model.TicketOrder) error
	Draw(ctx context.Context, outcome model.DrawOutcome) error
	Cancel(ctx context.Context, raffleID string, allowed []model.RaffleStatus, expectedSold int, reason string, refunds []model.WalletMutation) error
	TicketOwner(ctx context.Context, raffleID string, number int) (string, error)
	ListTickets(ctx context.Context, raffleID, ownerID string) ([]*model.RaffleTicket, error)
	TicketCountsByOwner(ctx context.Context, raffleID string) (map[string]int, error)
	CountByStatus(ctx context.Context, status model.RaffleStatus) (int, error)
}

// RaffleService runs raffle events: creation, ticket sales, draws and
// cancellation with refunds
type RaffleService struct {
	raffles  RaffleRepository
	users    UserRepository
	wallets  WalletRepository
	events   *EventHub
	notifier notify.Notifier
	clock    clock.Clock
	logger   *slog.Logger
	locks    *keyedMutex

	maxTickets      int
	maxPerPurchase  int
	pointsPerTicket int
	feePercent      decimal.Decimal
}

// RaffleServiceConfig holds dependencies and rules for the raffle service
type RaffleServiceConfig struct {
	Raffles  RaffleRepository
	Users    UserRepository
	Wallets  WalletRepository
	Events   *EventHub
	Notifier notify.Notifier
	Clock    clock.Clock
	Logger   *slog.Logger

	MaxTickets      int
	MaxPerPurchase  int
	PointsPerTicket int
	FeePercent      decimal.Decimal
}

// NewRaffleService creates a new raffle service
func NewRaffleService(cfg RaffleServiceConfig) *RaffleService {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Noop{}
	}
	return &RaffleService{
		raffles:         cfg.Raffles,
		users:           cfg.Users,
		wallets:         cfg.Wallets,
		events:          cfg.Events,
		notifier:        cfg.Notifier,
		clock:           cfg.Clock,
		logger:          cfg.Logger,
		locks:           newKeyedMutex(),
		maxTickets:      cfg.MaxTickets,
		maxPerPurchase:  cfg.MaxPerPurchase,
		pointsPerTicket: cfg.PointsPerTicket,
		feePercent:      cfg.FeePercent,
	}
}

// Create opens a raffle. Regular users' raffles wait for admin approval;
// admins' raffles go live immediately.
func (s *RaffleService) Create(ctx context.Context, creatorID string, req *model.CreateRaffleRequest) (*model.Raffle, error) {
	creator, err := activeUser(ctx, s.users, creatorID)
	if err != nil {
		return nil, err
	}

	game, ok := model.LookupGame(req.Game)
	if !ok {
		return nil, ErrUnsupportedGame
	}
	drawAt, err := time.Parse(time.RFC3339, req.DrawAt)
	if err != nil || !drawAt.After(s.clock.Now()) {
		return nil, ErrInvalidDrawTime
	}
	if s.maxTickets > 0 && req.TotalTickets > s.maxTickets {
		return nil, ErrTicketLimitExceeded
	}
	if !model.ValidAmount(req.TicketPrice) {
		return nil, ErrInvalidAmount
	}

	seed, err := NewSeed()
	if err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}

	status := model.RaffleStatusPending
	if creator.IsAdmin() {
		status = model.RaffleStatusActive
	}

	raffle := &model.Raffle{
		Title:        req.Title,
		Description:  req.Description,
		Game:         game,
		Item:         req.Item,
		TicketPrice:  req.TicketPrice,
		TotalTickets: req.TotalTickets,
		Status:       status,
		DrawAt:       drawAt.UTC(),
		CreatorID:    creator.ID,
		SeedHash:     CommitSeed(seed),
	}
	if err := s.raffles.Create(ctx, raffle, seed); err != nil {
		return nil, err
	}

	s.logger.Info("raffle created", "raffle_id", raffle.ID, "creator_id", creator.ID, "status", raffle.Status)
	return raffle.Public(), nil
}

// Get returns a raffle with its seed hidden until drawn
func (s *RaffleService) Get(ctx context.Context, id string) (*model.Raffle, error) {
	raffle, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return raffle.Public(), nil
}

func (s *RaffleService) get(ctx context.Context, id string) (*model.Raffle, error) {
	raffle, err := s.raffles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if raffle == nil {
		return nil, ErrRaffleNotFound
	}
	return raffle, nil
}

// List returns raffles matching filter
func (s *RaffleService) List(ctx context.Context, filter model.RaffleFilter) ([]*model.Raffle, error) {
	raffles, err := s.raffles.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i, r := range raffles {
		raffles[i] = r.Public()
	}
	return raffles, nil
}

// ListTickets returns a raffle's tickets, optionally only one owner's
func (s *RaffleService) ListTickets(ctx context.Context, raffleID, ownerID string) ([]*model.RaffleTicket, error) {
	if _, err := s.get(ctx, raffleID); err != nil {
		return nil, err
	}
	return s.raffles.ListTickets(ctx, raffleID, ownerID)
}

// BuyTickets sells qty consecutive tickets to userID. The buyer is debited
// and earns points in the same commit that assigns the numbers. Selling
// the last ticket draws the raffle right away.
func (s *RaffleService) BuyTickets(ctx context.Context, userID, raffleID string, qty int) (*model.TicketPurchase, error) {
	if qty < 1 {
		return nil, ErrInvalidAmount
	}
	if s.maxPerPurchase > 0 && qty > s.maxPerPurchase {
		return nil, ErrTicketLimitExceeded
	}
	if _, err := activeUser(ctx, s.users, userID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(raffleID)
	defer unlock()

	raffle, err := s.get(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if raffle.Status != model.RaffleStatusActive || !s.clock.Now().Before(raffle.DrawAt) {
		return nil, ErrRaffleNotActive
	}
	if raffle.CreatorID == userID {
		return nil, ErrOwnRaffle
	}
	if qty > raffle.Remaining() {
		return nil, &SoldOutError{Remaining: raffle.Remaining()}
	}

	numbers := make([]int, qty)
	for i := range numbers {
		numbers[i] = raffle.TicketsSold + i + 1
	}
	total := raffle.TicketPrice.Mul(decimal.NewFromInt(int64(qty)))
	totalCents, err := model.CentsOf(total)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	points := int64(qty * s.pointsPerTicket)

	order := model.TicketOrder{
		RaffleID:     raffle.ID,
		BuyerID:      userID,
		ExpectedSold: raffle.TicketsSold,
		Numbers:      numbers,
		Debit: model.WalletMutation{
			UserID:       userID,
			Type:         model.TxTicketPurchase,
			BalanceDelta: -totalCents,
			PointsDelta:  points,
			Reference:    raffle.ID,
			Note:         fmt.Sprintf("%d ticket(s) #%d-#%d", qty, numbers[0], numbers[qty-1]),
		},
	}
	if err := s.raffles.PurchaseTickets(ctx, order); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrRaffleConflict
		}
		return nil, mapWalletError(err)
	}

	updated, err := s.get(ctx, raffle.ID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.wallets.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tickets purchased", "raffle_id", raffle.ID, "user_id", userID, "qty", qty, "total", total.StringFixed(2))
	s.events.Publish(&Event{Type: EventRaffleUpdated, Topic: RaffleTopic(raffle.ID), Data: updated.Public()})
	s.events.PublishWallet(wallet)

	if updated.IsSoldOut() {
		if drawn, err := s.drawLocked(ctx, updated); err != nil {
			s.logger.Error("draw after sell-out failed", "raffle_id", raffle.ID, "error", err)
		} else {
			updated = drawn
		}
	}

	return &model.TicketPurchase{
		Raffle:       updated.Public(),
		Numbers:      numbers,
		Total:        total,
		PointsEarned: points,
		Wallet:       wallet,
	}, nil
}

// Draw picks the winner of a due raffle (sold out or past draw_at)
func (s *RaffleService) Draw(ctx context.Context, raffleID string) (*model.Raffle, error) {
	unlock := s.locks.Lock(raffleID)
	defer unlock()

	raffle, err := s.get(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if raffle.Status != model.RaffleStatusActive {
		return nil, ErrRaffleNotActive
	}
	if !raffle.IsDue(s.clock.Now()) {
		return nil, ErrRaffleNotDue
	}
	return s.drawLocked(ctx, raffle)
}

// drawLocked draws raffle; the caller holds the raffle's lock. A raffle
// that sold nothing is cancelled instead.
func (s *RaffleService) drawLocked(ctx context.Context, raffle *model.Raffle) (*model.Raffle, error) {
	if raffle.TicketsSold == 0 {
		if err := s.raffles.Cancel(ctx, raffle.ID, []model.RaffleStatus{model.RaffleStatusActive}, 0, "no tickets sold", nil); err != nil {
			return nil, mapRaffleStoreError(err)
		}
		cancelled, err := s.get(ctx, raffle.ID)
		if err != nil {
			return nil, err
		}
		s.events.Publish(&Event{Type: EventRaffleCancelled, Topic: RaffleTopic(raffle.ID), Data: cancelled.Public()})
		return cancelled.Public(), nil
	}
	if raffle.Seed == nil {
		return nil, fmt.Errorf("raffle %s has no seed", raffle.ID)
	}

	ticket := WinningTicket(*raffle.Seed, raffle.ID, raffle.TicketsSold)
	winnerID, err := s.raffles.TicketOwner(ctx, raffle.ID, ticket)
	if err != nil {
		return nil, fmt.Errorf("ticket %d owner: %w", ticket, err)
	}

	proceeds := raffle.TicketPrice.Mul(decimal.NewFromInt(int64(raffle.TicketsSold)))
	fee := model.PercentOf(proceeds, s.feePercent)
	outcome := model.DrawOutcome{
		RaffleID:      raffle.ID,
		WinnerID:      winnerID,
		WinningTicket: ticket,
	}
	if payout := proceeds.Sub(fee); payout.IsPositive() {
		m := creditMutation(raffle.CreatorID, model.TxRafflePayout, model.ToCents(payout), raffle.ID,
			fmt.Sprintf("%d tickets sold, fee %s", raffle.TicketsSold, fee.StringFixed(2)))
		outcome.Payout = &m
	}

	if err := s.raffles.Draw(ctx, outcome); err != nil {
		return nil, mapRaffleStoreError(err)
	}

	drawn, err := s.get(ctx, raffle.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("raffle drawn", "raffle_id", raffle.ID, "winning_ticket", ticket, "winner_id", winnerID)
	s.events.Publish(&Event{Type: EventRaffleDrawn, Topic: RaffleTopic(raffle.ID), Data: drawn.Public()})
	if w, err := s.wallets.Get(ctx, raffle.CreatorID); err == nil {
		s.events.PublishWallet(w)
	}
	_ = s.notifier.Notify(ctx, fmt.Sprintf("Rifa %q sorteada: bilhete #%d (%s)", raffle.Title, ticket, winnerID))
	return drawn.Public(), nil
}

// DrawDue draws every due raffle and returns how many were processed
func (s *RaffleService) DrawDue(ctx context.Context, limit int) (int, error) {
	due, err := s.raffles.ListDue(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, r := range due {
		if _, err := s.Draw(ctx, r.ID); err != nil {
			if errors.Is(err, ErrRaffleNotActive) || errors.Is(err, ErrRaffleNotDue) {
				continue
			}
			s.logger.Error("failed to draw raffle", "raffle_id", r.ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

// Verify recomputes a drawn raffle from its revealed seed
func (s *RaffleService) Verify(ctx context.Context, raffleID string) (*model.RaffleProof, error) {
	raffle, err := s.get(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if raffle.Status != model.RaffleStatusDrawn || raffle.Seed == nil || raffle.WinningTicket == nil {
		return nil, ErrRaffleNotDrawn
	}
	recomputed, valid := VerifyDraw(raffle.ID, raffle.SeedHash, *raffle.Seed, raffle.TicketsSold, *raffle.WinningTicket)
	return &model.RaffleProof{
		RaffleID:      raffle.ID,
		SeedHash:      raffle.SeedHash,
		Seed:          *raffle.Seed,
		TicketsSold:   raffle.TicketsSold,
		WinningTicket: *raffle.WinningTicket,
		Recomputed:    recomputed,
		Valid:         valid,
	}, nil
}

// Approve puts a pending raffle on sale
func (s *RaffleService) Approve(ctx context.Context, raffleID string) (*model.Raffle, error) {
	raffle, err := s.get(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if raffle.Status != model.RaffleStatusPending {
		return nil, ErrRaffleNotPending
	}
	if !raffle.DrawAt.After(s.clock.Now()) {
		return nil, ErrInvalidDrawTime
	}
	updated, err := s.raffles.Transition(ctx, raffleID, []model.RaffleStatus{model.RaffleStatusPending}, model.RaffleStatusActive, nil)
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrRaffleNotPending
		}
		return nil, err
	}
	return updated.Public(), nil
}

// Reject declines a pending raffle
func (s *RaffleService) Reject(ctx context.Context, raffleID, reason string) (*model.Raffle, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if len(reason) > model.MaxReasonLength {
		return nil, ErrReasonTooLong
	}
	if _, err := s.get(ctx, raffleID); err != nil {
		return nil, err
	}
	updated, err := s.raffles.Transition(ctx, raffleID, []model.RaffleStatus{model.RaffleStatusPending}, model.RaffleStatusRejected, &reason)
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrRaffleNotPending
		}
		return nil, err
	}
	return updated.Public(), nil
}

// Cancel stops a raffle and refunds every ticket at its purchase price.
// Creators may cancel while pending or before the first sale; admins may
// cancel any pending or active raffle and must give a reason. Points
// already earned are kept.
func (s *RaffleService) Cancel(ctx context.Context, raffleID, actorID string, isAdmin bool, reason string) (*model.Raffle, error) {
	if reason == "" {
		if isAdmin {
			return nil, ErrReasonRequired
		}
		reason = creatorCancelReason
	}

	unlock := s.locks.Lock(raffleID)
	defer unlock()

	raffle, err := s.get(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	switch raffle.Status {
	case model.RaffleStatusPending, model.RaffleStatusActive:
	default:
		return nil, ErrRaffleFinished
	}
	if !isAdmin {
		if raffle.CreatorID != actorID {
			return nil, ErrAdminRequired
		}
		if raffle.TicketsSold > 0 {
			return nil, ErrAdminRequired
		}
	}

	counts, err := s.raffles.TicketCountsByOwner(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	priceCents := model.ToCents(raffle.TicketPrice)
	refunds := make([]model.WalletMutation, 0, len(counts))
	for ownerID, n := range counts {
		refunds = append(refunds, creditMutation(ownerID, model.TxRaffleRefund, priceCents*int64(n), raffleID,
			fmt.Sprintf("refund of %d ticket(s)", n)))
	}

	allowed := []model.RaffleStatus{model.RaffleStatusPending, model.RaffleStatusActive}
	if err := s.raffles.Cancel(ctx, raffleID, allowed, raffle.TicketsSold, reason, refunds); err != nil {
		return nil, mapRaffleStoreError(err)
	}

	cancelled, err := s.get(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("raffle cancelled", "raffle_id", raffleID, "actor_id", actorID, "refunds", len(refunds))
	s.events.Publish(&Event{Type: EventRaffleCancelled, Topic: RaffleTopic(raffleID), Data: cancelled.Public()})
	for ownerID := range counts {
		if w, err := s.wallets.Get(ctx, ownerID); err == nil {
			s.events.PublishWallet(w)
		}
	}
	return cancelled.Public(), nil
}

// CountByStatus returns the number of raffles in status
func (s *RaffleService) CountByStatus(ctx context.Context, status model.RaffleStatus) (int, error) {
	return s.raffles.CountByStatus(ctx, status)
}

func mapRaffleStoreError(err error) error {
	if errors.Is(err, database.ErrConflict) {
		return ErrRaffleConflict
	}
	return mapWalletError(err)
}
