package model

import "time"

// ReportTargetType is what a report points at
type ReportTargetType string

const (
	ReportTargetUser    ReportTargetType = "user"
	ReportTargetRaffle  ReportTargetType = "raffle"
	ReportTargetAuction ReportTargetType = "auction"
)

// ReportCategory represents the type of report
type ReportCategory string

const (
	ReportCategoryScam          ReportCategory = "scam"
	ReportCategoryFakeItem      ReportCategory = "fake_item"
	ReportCategoryShillBidding  ReportCategory = "shill_bidding"
	ReportCategoryHarassment    ReportCategory = "harassment"
	ReportCategoryInappropriate ReportCategory = "inappropriate_content"
	ReportCategoryOther         ReportCategory = "other"
)

// ReportStatus represents the state of a report
type ReportStatus string

const (
	ReportStatusOpen      ReportStatus = "open"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// Report (denúncia) is a user complaint reviewed by admins
type Report struct {
	ID           string           `json:"id"`
	ReporterID   string           `json:"reporter_id"`
	TargetType   ReportTargetType `json:"target_type"`
	TargetID     string           `json:"target_id"`
	Category     ReportCategory   `json:"category"`
	Description  string           `json:"description,omitempty"`
	Status       ReportStatus     `json:"status"`
	ReviewedByID *string          `json:"reviewed_by_id,omitempty"`
	ReviewNotes  *string          `json:"review_notes,omitempty"`
	CreatedOn    time.Time        `json:"created_on"`
	ResolvedOn   *time.Time       `json:"resolved_on,omitempty"`
}

// ReportFilter narrows report listings
type ReportFilter struct {
	Status *ReportStatus
	Limit  int
	Offset int
}

// TicketStatus represents the state of a support ticket
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"     // waiting on staff
	TicketStatusAnswered TicketStatus = "answered" // waiting on user
	TicketStatusClosed   TicketStatus = "closed"
)

// TicketMessage is one message in a support thread
type TicketMessage struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	FromStaff bool      `json:"from_staff"`
	Body      string    `json:"body"`
	CreatedOn time.Time `json:"created_on"`
}

// SupportTicket is a help request opened by a user
type SupportTicket struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Subject   string          `json:"subject"`
	Status    TicketStatus    `json:"status"`
	Messages  []TicketMessage `json:"messages"`
	CreatedOn time.Time       `json:"created_on"`
	UpdatedOn time.Time       `json:"updated_on"`
	ClosedOn  *time.Time      `json:"closed_on,omitempty"`
}

// TicketFilter narrows support ticket listings
type TicketFilter struct {
	OwnerID string
	Status  *TicketStatus
	Limit   int
	Offset  int
}

// AuditLog records an admin action
type AuditLog struct {
	ID         string            `json:"id"`
	ActorID    string            `json:"actor_id"`
	Action     string            `json:"action"`
	TargetType string            `json:"target_type"`
	TargetID   string            `json:"target_id"`
	Details    map[string]string `json:"details,omitempty"`
	CreatedOn  time.Time         `json:"created_on"`
}

// Audit actions
const (
	AuditUserBanned       = "user.banned"
	AuditUserUnbanned     = "user.unbanned"
	AuditWalletAdjusted   = "wallet.adjusted"
	AuditRaffleApproved   = "raffle.approved"
	AuditRaffleRejected   = "raffle.rejected"
	AuditRaffleCancelled  = "raffle.cancelled"
	AuditAuctionCancelled = "auction.cancelled"
	AuditReportResolved   = "report.resolved"
	AuditReportDismissed  = "report.dismissed"
	AuditTicketClosed     = "ticket.closed"
)

// DashboardStats powers the admin panel overview
type DashboardStats struct {
	Users          int       `json:"users"`
	BannedUsers    int       `json:"banned_users"`
	ActiveRaffles  int       `json:"active_raffles"`
	PendingRaffles int       `json:"pending_raffles"`
	ActiveAuctions int       `json:"active_auctions"`
	OpenReports    int       `json:"open_reports"`
	OpenTickets    int       `json:"open_tickets"`
	GeneratedOn    time.Time `json:"generated_on"`
}

// Constraints
const (
	MaxReportDescriptionLength = 1000
	MaxTicketSubjectLength     = 120
	MaxTicketMessageLength     = 4000
)

// IsValidReportCategory reports whether cat is a known category
func IsValidReportCategory(cat string) bool {
	switch ReportCategory(cat) {
	case ReportCategoryScam,
		ReportCategoryFakeItem,
		ReportCategoryShillBidding,
		ReportCategoryHarassment,
		ReportCategoryInappropriate,
		ReportCategoryOther:
		return true
	}
	return false
}

// CreateReportRequest represents a request to create a report
type CreateReportRequest struct {
	TargetType  string `json:"target_type"`
	TargetID    string `json:"target_id"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

// Validate checks if the report request is valid
func (r *CreateReportRequest) Validate() []FieldError {
	var errors []FieldError

	switch ReportTargetType(r.TargetType) {
	case ReportTargetUser, ReportTargetRaffle, ReportTargetAuction:
	default:
		errors = append(errors, FieldError{Field: "target_type", Message: "target_type must be user, raffle or auction"})
	}
	if r.TargetID == "" {
		errors = append(errors, FieldError{Field: "target_id", Message: "target_id is required"})
	}
	if !IsValidReportCategory(r.Category) {
		errors = append(errors, FieldError{Field: "category", Message: "invalid category"})
	}
	if len(r.Description) > MaxReportDescriptionLength {
		errors = append(errors, FieldError{Field: "description", Message: "description must be 1000 characters or less"})
	}

	return errors
}

// ReviewReportRequest resolves or dismisses a report
type ReviewReportRequest struct {
	Status string  `json:"status"` // resolved, dismissed
	Notes  *string `json:"notes,omitempty"`
}

// Validate checks if the review request is valid
func (r *ReviewReportRequest) Validate() []FieldError {
	switch ReportStatus(r.Status) {
	case ReportStatusResolved, ReportStatusDismissed:
		return nil
	}
	return []FieldError{{Field: "status", Message: "status must be resolved or dismissed"}}
}

// CreateTicketRequest opens a support ticket
type CreateTicketRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Validate checks if the ticket request is valid
func (r *CreateTicketRequest) Validate() []FieldError {
	var errors []FieldError
	if r.Subject == "" {
		errors = append(errors, FieldError{Field: "subject", Message: "subject is required"})
	} else if len(r.Subject) > MaxTicketSubjectLength {
		errors = append(errors, FieldError{Field: "subject", Message: "subject must be 120 characters or less"})
	}
	errors = append(errors, validateMessageBody("message", r.Message)...)
	return errors
}

// ReplyTicketRequest appends a message to a ticket
type ReplyTicketRequest struct {
	Message string `json:"message"`
}

// Validate checks if the reply is valid
func (r *ReplyTicketRequest) Validate() []FieldError {
	return validateMessageBody("message", r.Message)
}

func validateMessageBody(field, body string) []FieldError {
	if body == "" {
		return []FieldError{{Field: field, Message: field + " is required"}}
	}
	if len(body) > MaxTicketMessageLength {
		return []FieldError{{Field: field, Message: field + " must be 4000 characters or less"}}
	}
	return nil
}
