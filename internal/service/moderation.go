package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
	"github.com/epicstrade/rifas/internal/notify"
)

// ModerationRepository defines the interface for report and audit storage
type ModerationRepository interface {
	CreateReport(ctx context.Context, report *model.Report) error
	GetReport(ctx context.Context, id string) (*model.Report, error)
	ListReports(ctx context.Context, filter model.ReportFilter) ([]*model.Report, error)
	HasOpenReport(ctx context.Context, reporterID string, targetType model.ReportTargetType, targetID string) (bool, error)
	ReviewReport(ctx context.Context, id, reviewerID string, status model.ReportStatus, notes *string) (*model.Report, error)
	CountOpenReports(ctx context.Context) (int, error)
	CreateAuditLog(ctx context.Context, entry *model.AuditLog) error
	ListAuditLogs(ctx context.Context, limit, offset int) ([]*model.AuditLog, error)
}

// SupportRepository defines the interface for support ticket storage
type SupportRepository interface {
	Create(ctx context.Context, ownerID, subject, body string) (*model.SupportTicket, error)
	GetByID(ctx context.Context, id string) (*model.SupportTicket, error)
	List(ctx context.Context, filter model.TicketFilter) ([]*model.SupportTicket, error)
	AddMessage(ctx context.Context, id, authorID, body string, fromStaff bool, next model.TicketStatus) (*model.SupportTicket, error)
	Close(ctx context.Context, id string) (*model.SupportTicket, error)
	CountOpen(ctx context.Context) (int, error)
}

// ModerationService handles reports (denúncias) and support tickets
type ModerationService struct {
	reports  ModerationRepository
	support  SupportRepository
	users    UserRepository
	raffles  RaffleRepository
	auctions AuctionRepository
	events   *EventHub
	notifier notify.Notifier
	logger   *slog.Logger
}

// ModerationServiceConfig holds dependencies for the moderation service
type ModerationServiceConfig struct {
	Reports  ModerationRepository
	Support  SupportRepository
	Users    UserRepository
	Raffles  RaffleRepository
	Auctions AuctionRepository
	Events   *EventHub
	Notifier notify.Notifier
	Logger   *slog.Logger
}

// NewModerationService creates a new moderation service
func NewModerationService(cfg ModerationServiceConfig) *ModerationService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Noop{}
	}
	return &ModerationService{
		reports:  cfg.Reports,
		support:  cfg.Support,
		users:    cfg.Users,
		raffles:  cfg.Raffles,
		auctions: cfg.Auctions,
		events:   cfg.Events,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
	}
}

// Report operations

// CreateReport files a report against a user, raffle or auction
func (s *ModerationService) CreateReport(ctx context.Context, reporterID string, req *model.CreateReportRequest) (*model.Report, error) {
	if _, err := activeUser(ctx, s.users, reporterID); err != nil {
		return nil, err
	}
	targetType := model.ReportTargetType(req.TargetType)
	if targetType == model.ReportTargetUser && req.TargetID == reporterID {
		return nil, ErrCannotReportSelf
	}
	if err := s.checkTarget(ctx, targetType, req.TargetID); err != nil {
		return nil, err
	}

	dup, err := s.reports.HasOpenReport(ctx, reporterID, targetType, req.TargetID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, ErrDuplicateReport
	}

	report := &model.Report{
		ReporterID:  reporterID,
		TargetType:  targetType,
		TargetID:    req.TargetID,
		Category:    model.ReportCategory(req.Category),
		Description: req.Description,
	}
	if err := s.reports.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info("report created", "report_id", report.ID, "target_type", targetType, "target_id", req.TargetID)
	_ = s.notifier.Notify(ctx, fmt.Sprintf("Nova denúncia (%s) contra %s %s", report.Category, targetType, req.TargetID))
	return report, nil
}

func (s *ModerationService) checkTarget(ctx context.Context, targetType model.ReportTargetType, id string) error {
	var found bool
	switch targetType {
	case model.ReportTargetUser:
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		found = u != nil
	case model.ReportTargetRaffle:
		r, err := s.raffles.GetByID(ctx, id)
		if err != nil {
			return err
		}
		found = r != nil
	case model.ReportTargetAuction:
		a, err := s.auctions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		found = a != nil
	}
	if !found {
		return ErrReportTarget
	}
	return nil
}

// ListReports returns reports for admins
func (s *ModerationService) ListReports(ctx context.Context, filter model.ReportFilter) ([]*model.Report, error) {
	return s.reports.ListReports(ctx, filter)
}

// ReviewReport resolves or dismisses an open report
func (s *ModerationService) ReviewReport(ctx context.Context, adminID, reportID string, req *model.ReviewReportRequest) (*model.Report, error) {
	existing, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrReportNotFound
	}

	report, err := s.reports.ReviewReport(ctx, reportID, adminID, model.ReportStatus(req.Status), req.Notes)
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrReportReviewed
		}
		return nil, err
	}

	action := model.AuditReportResolved
	if report.Status == model.ReportStatusDismissed {
		action = model.AuditReportDismissed
	}
	recordAudit(ctx, s.reports, s.logger, adminID, action, "report", reportID, nil)
	return report, nil
}

// Support ticket operations

// OpenTicket opens a support ticket with its first message
func (s *ModerationService) OpenTicket(ctx context.Context, userID string, req *model.CreateTicketRequest) (*model.SupportTicket, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	ticket, err := s.support.Create(ctx, userID, req.Subject, req.Message)
	if err != nil {
		return nil, err
	}
	s.logger.Info("support ticket opened", "ticket_id", ticket.ID, "user_id", userID)
	_ = s.notifier.Notify(ctx, fmt.Sprintf("Novo ticket de suporte: %s", req.Subject))
	return ticket, nil
}

// ListTickets returns the caller's tickets, or every ticket for admins
func (s *ModerationService) ListTickets(ctx context.Context, userID string, isAdmin bool, filter model.TicketFilter) ([]*model.SupportTicket, error) {
	if !isAdmin {
		filter.OwnerID = userID
	}
	return s.support.List(ctx, filter)
}

// GetTicket returns a ticket visible to the caller
func (s *ModerationService) GetTicket(ctx context.Context, userID string, isAdmin bool, ticketID string) (*model.SupportTicket, error) {
	ticket, err := s.support.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	if !isAdmin && ticket.OwnerID != userID {
		return nil, ErrNotTicketOwner
	}
	return ticket, nil
}

// ReplyTicket appends a message. A staff reply marks the ticket answered;
// an owner reply reopens it for staff.
func (s *ModerationService) ReplyTicket(ctx context.Context, userID string, isAdmin bool, ticketID, body string) (*model.SupportTicket, error) {
	ticket, err := s.GetTicket(ctx, userID, isAdmin, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == model.TicketStatusClosed {
		return nil, ErrTicketClosed
	}

	fromStaff := isAdmin && ticket.OwnerID != userID
	next := model.TicketStatusOpen
	if fromStaff {
		next = model.TicketStatusAnswered
	}
	updated, err := s.support.AddMessage(ctx, ticketID, userID, body, fromStaff, next)
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrTicketClosed
		}
		return nil, err
	}

	if fromStaff {
		s.events.SendToUser(ticket.OwnerID, &Event{Type: EventTicketReply, Data: updated})
	}
	return updated, nil
}

// CloseTicket closes a ticket; owners may close their own
func (s *ModerationService) CloseTicket(ctx context.Context, userID string, isAdmin bool, ticketID string) (*model.SupportTicket, error) {
	ticket, err := s.GetTicket(ctx, userID, isAdmin, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == model.TicketStatusClosed {
		return nil, ErrTicketClosed
	}
	closed, err := s.support.Close(ctx, ticketID)
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrTicketClosed
		}
		return nil, err
	}
	if isAdmin && ticket.OwnerID != userID {
		recordAudit(ctx, s.reports, s.logger, userID, model.AuditTicketClosed, "support_ticket", ticketID, nil)
	}
	return closed, nil
}

func (s *ModerationService) requireUser(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// recordAudit writes an audit entry. Failures are logged and never undo
// the action that was already committed.
func recordAudit(ctx context.Context, repo ModerationRepository, logger *slog.Logger, actorID, action, targetType, targetID string, details map[string]string) {
	entry := &model.AuditLog{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
	}
	if err := repo.CreateAuditLog(ctx, entry); err != nil {
		logger.Error("failed to write audit log", "action", action, "target_id", targetID, "error", err)
		return
	}
	logger.Info("admin action", "actor_id", actorID, "action", action, "target_type", targetType, "target_id", targetID)
}
