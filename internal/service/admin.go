package service

import (
	"context"
	"log/slog"

	"github.com/epicstrade/rifas/internal/clock"
	"github.com/epicstrade/rifas/internal/model"
)

// AdminService backs the admin panel. Every mutating call is written to
// the audit log under the acting admin.
type AdminService struct {
	users      UserRepository
	wallets    *WalletService
	raffles    *RaffleService
	auctions   *AuctionService
	moderation ModerationRepository
	support    SupportRepository
	tokens     *TokenService
	clock      clock.Clock
	logger     *slog.Logger
}

// AdminServiceConfig holds dependencies for the admin service
type AdminServiceConfig struct {
	Users      UserRepository
	Wallets    *WalletService
	Raffles    *RaffleService
	Auctions   *AuctionService
	Moderation ModerationRepository
	Support    SupportRepository
	Tokens     *TokenService
	Clock      clock.Clock
	Logger     *slog.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(cfg AdminServiceConfig) *AdminService {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AdminService{
		users:      cfg.Users,
		wallets:    cfg.Wallets,
		raffles:    cfg.Raffles,
		auctions:   cfg.Auctions,
		moderation: cfg.Moderation,
		support:    cfg.Support,
		tokens:     cfg.Tokens,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
}

// ListUsers returns users matching filter
func (s *AdminService) ListUsers(ctx context.Context, filter model.UserListFilter) ([]*model.User, error) {
	return s.users.List(ctx, filter)
}

// GetUser returns a user with their wallet
func (s *AdminService) GetUser(ctx context.Context, userID string) (*model.Me, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	wallet, err := s.users.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.Me{User: user, Wallet: wallet}, nil
}

// BanUser bans a user and ends their sessions
func (s *AdminService) BanUser(ctx context.Context, adminID, userID, reason string) (*model.User, error) {
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}
	if target.IsAdmin() {
		return nil, ErrCannotBanAdmin
	}

	user, err := s.users.SetBanned(ctx, userID, true, &reason)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.RevokeAllUserTokens(ctx, userID); err != nil {
		s.logger.Error("failed to revoke tokens of banned user", "user_id", userID, "error", err)
	}
	recordAudit(ctx, s.moderation, s.logger, adminID, model.AuditUserBanned, "user", userID, map[string]string{"reason": reason})
	return user, nil
}

// UnbanUser lifts a ban
func (s *AdminService) UnbanUser(ctx context.Context, adminID, userID string) (*model.User, error) {
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}
	user, err := s.users.SetBanned(ctx, userID, false, nil)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.moderation, s.logger, adminID, model.AuditUserUnbanned, "user", userID, nil)
	return user, nil
}

// AdjustWallet credits (positive amount) or debits (negative) a user
func (s *AdminService) AdjustWallet(ctx context.Context, adminID, userID string, req *model.AdminCreditRequest) (*model.Wallet, error) {
	var (
		wallet *model.Wallet
		err    error
	)
	if req.Amount.IsNegative() {
		wallet, err = s.wallets.Debit(ctx, userID, req.Amount.Neg(), model.TxAdminDebit, adminID, req.Note)
	} else {
		wallet, err = s.wallets.Credit(ctx, userID, req.Amount, model.TxAdminCredit, adminID, req.Note)
	}
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.moderation, s.logger, adminID, model.AuditWalletAdjusted, "user", userID, map[string]string{
		"amount": req.Amount.StringFixed(2),
		"note":   req.Note,
	})
	return wallet, nil
}

// ApproveRaffle puts a pending raffle on sale
func (s *AdminService) ApproveRaffle(ctx context.Context, adminID, raffleID string) (*model.Raffle, error) {
	raffle, err := s.raffles.Approve(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.moderation, s.logger, adminID, model.AuditRaffleApproved, "raffle", raffleID, nil)
	return raffle, nil
}

// RejectRaffle declines a pending raffle
func (s *AdminService) RejectRaffle(ctx context.Context, adminID, raffleID, reason string) (*model.Raffle, error) {
	raffle, err := s.raffles.Reject(ctx, raffleID, reason)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.moderation, s.logger, adminID, model.AuditRaffleRejected, "raffle", raffleID, map[string]string{"reason": reason})
	return raffle, nil
}

// CancelRaffle cancels a raffle and refunds its tickets
func (s *AdminService) CancelRaffle(ctx context.Context, adminID, raffleID, reason string) (*model.Raffle, error) {
	raffle, err := s.raffles.Cancel(ctx, raffleID, adminID, true, reason)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.moderation, s.logger, adminID, model.AuditRaffleCancelled, "raffle", raffleID, map[string]string{"reason": reason})
	return raffle, nil
}

// CancelAuction cancels an auction and releases the leading bid
func (s *AdminService) CancelAuction(ctx context.Context, adminID, auctionID string) (*model.Auction, error) {
	auction, err := s.auctions.Cancel(ctx, auctionID, adminID, true)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.moderation, s.logger, adminID, model.AuditAuctionCancelled, "auction", auctionID, nil)
	return auction, nil
}

// ListAuditLogs returns the audit trail, newest first
func (s *AdminService) ListAuditLogs(ctx context.Context, limit, offset int) ([]*model.AuditLog, error) {
	return s.moderation.ListAuditLogs(ctx, limit, offset)
}

// Stats returns the dashboard counters
func (s *AdminService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{GeneratedOn: s.clock.Now()}
	var err error

	if stats.Users, err = s.users.Count(ctx, false); err != nil {
		return nil, err
	}
	if stats.BannedUsers, err = s.users.Count(ctx, true); err != nil {
		return nil, err
	}
	if stats.ActiveRaffles, err = s.raffles.CountByStatus(ctx, model.RaffleStatusActive); err != nil {
		return nil, err
	}
	if stats.PendingRaffles, err = s.raffles.CountByStatus(ctx, model.RaffleStatusPending); err != nil {
		return nil, err
	}
	if stats.ActiveAuctions, err = s.auctions.CountByStatus(ctx, model.AuctionStatusActive); err != nil {
		return nil, err
	}
	if stats.OpenReports, err = s.moderation.CountOpenReports(ctx); err != nil {
		return nil, err
	}
	if stats.OpenTickets, err = s.support.CountOpen(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}
