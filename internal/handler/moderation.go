package handler

import (
	"context"
	"net/http"

	"github.com/epicstrade/rifas/internal/middleware"
	"github.com/epicstrade/rifas/internal/model"
)

// ModerationAPI is the part of the moderation service the handler uses
type ModerationAPI interface {
	CreateReport(ctx context.Context, reporterID string, req *model.CreateReportRequest) (*model.Report, error)
	ListReports(ctx context.Context, filter model.ReportFilter) ([]*model.Report, error)
	ReviewReport(ctx context.Context, adminID, reportID string, req *model.ReviewReportRequest) (*model.Report, error)
	OpenTicket(ctx context.Context, userID string, req *model.CreateTicketRequest) (*model.SupportTicket, error)
	ListTickets(ctx context.Context, userID string, isAdmin bool, filter model.TicketFilter) ([]*model.SupportTicket, error)
	GetTicket(ctx context.Context, userID string, isAdmin bool, ticketID string) (*model.SupportTicket, error)
	ReplyTicket(ctx context.Context, userID string, isAdmin bool, ticketID, body string) (*model.SupportTicket, error)
	CloseTicket(ctx context.Context, userID string, isAdmin bool, ticketID string) (*model.SupportTicket, error)
}

// ModerationHandler handles reports (denúncias) and support tickets.
// Admin callers see every ticket; everyone else only sees their own.
type ModerationHandler struct {
	moderation ModerationAPI
}

// NewModerationHandler creates a new moderation handler
func NewModerationHandler(moderation ModerationAPI) *ModerationHandler {
	return &ModerationHandler{moderation: moderation}
}

func ticketLinks(id string) map[string]string {
	return map[string]string{
		"self":     "/v1/tickets/" + id,
		"messages": "/v1/tickets/" + id + "/messages",
		"close":    "/v1/tickets/" + id + "/close",
	}
}

// CreateReport handles POST /v1/reports
func (h *ModerationHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req model.CreateReportRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	report, err := h.moderation.CreateReport(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "create report"))
		return
	}
	WriteData(w, http.StatusCreated, report, nil)
}

// OpenTicket handles POST /v1/tickets
func (h *ModerationHandler) OpenTicket(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTicketRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ticket, err := h.moderation.OpenTicket(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "open ticket"))
		return
	}
	WriteData(w, http.StatusCreated, ticket, ticketLinks(ticket.ID))
}

// ListTickets handles GET /v1/tickets?status=&limit=&offset=
func (h *ModerationHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	filter := model.TicketFilter{Limit: limit, Offset: offset}
	if s := r.URL.Query().Get("status"); s != "" {
		status := model.TicketStatus(s)
		switch status {
		case model.TicketStatusOpen, model.TicketStatusAnswered, model.TicketStatusClosed:
			filter.Status = &status
		default:
			WriteError(w, model.NewValidationError([]model.FieldError{{Field: "status", Message: "unknown ticket status"}}))
			return
		}
	}

	ctx := r.Context()
	tickets, err := h.moderation.ListTickets(ctx, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), filter)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list tickets"))
		return
	}
	WriteCollection(w, http.StatusOK, tickets, page(limit, offset, len(tickets)), nil)
}

// GetTicket handles GET /v1/tickets/{ticketId}
func (h *ModerationHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticket, err := h.moderation.GetTicket(ctx, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), r.PathValue("ticketId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get ticket"))
		return
	}
	WriteData(w, http.StatusOK, ticket, ticketLinks(ticket.ID))
}

// ReplyTicket handles POST /v1/tickets/{ticketId}/messages
func (h *ModerationHandler) ReplyTicket(w http.ResponseWriter, r *http.Request) {
	var req model.ReplyTicketRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ctx := r.Context()
	ticket, err := h.moderation.ReplyTicket(ctx, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), r.PathValue("ticketId"), req.Message)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "reply ticket"))
		return
	}
	WriteData(w, http.StatusCreated, ticket, ticketLinks(ticket.ID))
}

// CloseTicket handles POST /v1/tickets/{ticketId}/close
func (h *ModerationHandler) CloseTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticket, err := h.moderation.CloseTicket(ctx, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), r.PathValue("ticketId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "close ticket"))
		return
	}
	WriteData(w, http.StatusOK, ticket, ticketLinks(ticket.ID))
}

// ListReports handles GET /v1/admin/reports?status=
func (h *ModerationHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	filter := model.ReportFilter{Limit: limit, Offset: offset}
	if s := r.URL.Query().Get("status"); s != "" {
		status := model.ReportStatus(s)
		filter.Status = &status
	}

	reports, err := h.moderation.ListReports(r.Context(), filter)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list reports"))
		return
	}
	WriteCollection(w, http.StatusOK, reports, page(limit, offset, len(reports)), nil)
}

// ReviewReport handles PATCH /v1/admin/reports/{reportId}
func (h *ModerationHandler) ReviewReport(w http.ResponseWriter, r *http.Request) {
	var req model.ReviewReportRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	report, err := h.moderation.ReviewReport(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("reportId"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "review report"))
		return
	}
	WriteData(w, http.StatusOK, report, nil)
}
