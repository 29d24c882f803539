package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
	"github.com/google/uuid"
)

type ticketMessageRecord struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	FromStaff bool      `json:"from_staff"`
	Body      string    `json:"body"`
	CreatedOn time.Time `json:"created_on"`
}

type supportTicketRecord struct {
	ID        string                `json:"id"`
	Owner     string                `json:"owner"`
	Subject   string                `json:"subject"`
	Status    string                `json:"status"`
	Messages  []ticketMessageRecord `json:"messages"`
	CreatedOn time.Time             `json:"created_on"`
	UpdatedOn time.Time             `json:"updated_on"`
	ClosedOn  *time.Time            `json:"closed_on"`
}

func (r *supportTicketRecord) toModel() *model.SupportTicket {
	msgs := make([]model.TicketMessage, 0, len(r.Messages))
	for _, m := range r.Messages {
		msgs = append(msgs, model.TicketMessage{
			ID:        m.ID,
			AuthorID:  m.Author,
			FromStaff: m.FromStaff,
			Body:      m.Body,
			CreatedOn: m.CreatedOn,
		})
	}
	return &model.SupportTicket{
		ID:        r.ID,
		OwnerID:   r.Owner,
		Subject:   r.Subject,
		Status:    model.TicketStatus(r.Status),
		Messages:  msgs,
		CreatedOn: r.CreatedOn,
		UpdatedOn: r.UpdatedOn,
		ClosedOn:  r.ClosedOn,
	}
}

func newMessage(authorID, body string, fromStaff bool) map[string]interface{} {
	return map[string]interface{}{
		"id":         uuid.NewString(),
		"author":     authorID,
		"from_staff": fromStaff,
		"body":       body,
	}
}

// SupportRepository handles support ticket data access
type SupportRepository struct {
	db database.Database
}

// NewSupportRepository creates a new support repository
func NewSupportRepository(db database.Database) *SupportRepository {
	return &SupportRepository{db: db}
}

// Create opens a ticket with its first message
func (r *SupportRepository) Create(ctx context.Context, ownerID, subject, body string) (*model.SupportTicket, error) {
	query := `
		CREATE support_ticket CONTENT {
			owner: type::record($owner),
			subject: $subject,
			status: "open",
			messages: [object::extend($message, { created_on: time::now() })],
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{
		"owner":   ownerID,
		"subject": subject,
		"message": newMessage(ownerID, body, false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	rec, err := firstRow[supportTicketRecord](result)
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// GetByID retrieves a ticket, or nil when missing
func (r *SupportRepository) GetByID(ctx context.Context, id string) (*model.SupportTicket, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	rec, err := notFoundAsNil(decodeRecord[supportTicketRecord](result))
	if rec == nil || err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// List returns tickets, most recently updated first
func (r *SupportRepository) List(ctx context.Context, filter model.TicketFilter) ([]*model.SupportTicket, error) {
	limit, offset := model.ClampPage(filter.Limit, filter.Offset)

	query := `SELECT * FROM support_ticket`
	vars := map[string]interface{}{"limit": limit, "offset": offset}
	var where []string
	if filter.OwnerID != "" {
		where = append(where, "owner = type::record($owner)")
		vars["owner"] = filter.OwnerID
	}
	if filter.Status != nil {
		where = append(where, "status = $status")
		vars["status"] = string(*filter.Status)
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += ` ORDER BY updated_on DESC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	recs, err := decodeRows[supportTicketRecord](result)
	if err != nil {
		return nil, err
	}
	tickets := make([]*model.SupportTicket, 0, len(recs))
	for _, rec := range recs {
		tickets = append(tickets, rec.toModel())
	}
	return tickets, nil
}

// AddMessage appends a message and moves the ticket to next. Closed
// tickets are left untouched and reported as database.ErrConflict.
func (r *SupportRepository) AddMessage(ctx context.Context, id, authorID, body string, fromStaff bool, next model.TicketStatus) (*model.SupportTicket, error) {
	query := `
		UPDATE type::record($id) SET
			messages += object::extend($message, { created_on: time::now() }),
			status = $status,
			updated_on = time::now()
		WHERE status != "closed"
		RETURN AFTER
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{
		"id":      id,
		"message": newMessage(authorID, body, fromStaff),
		"status":  string(next),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reply to ticket: %w", err)
	}
	return conflictIfEmpty(result)
}

// Close closes a ticket
func (r *SupportRepository) Close(ctx context.Context, id string) (*model.SupportTicket, error) {
	query := `
		UPDATE type::record($id) SET
			status = "closed",
			closed_on = time::now(),
			updated_on = time::now()
		WHERE status != "closed"
		RETURN AFTER
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to close ticket: %w", err)
	}
	return conflictIfEmpty(result)
}

// CountOpen returns tickets waiting on staff
func (r *SupportRepository) CountOpen(ctx context.Context) (int, error) {
	result, err := r.db.Query(ctx, `SELECT count() FROM support_ticket WHERE status = "open" GROUP ALL`, nil)
	if err != nil {
		return 0, err
	}
	return countOf(result), nil
}

func conflictIfEmpty(result []interface{}) (*model.SupportTicket, error) {
	rec, err := firstRow[supportTicketRecord](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, database.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}
