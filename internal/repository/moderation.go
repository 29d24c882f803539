package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/model"
)

type reportRecord struct {
	ID          string     `json:"id"`
	Reporter    string     `json:"reporter"`
	TargetType  string     `json:"target_type"`
	TargetID    string     `json:"target_id"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	ReviewedBy  *string    `json:"reviewed_by"`
	ReviewNotes *string    `json:"review_notes"`
	CreatedOn   time.Time  `json:"created_on"`
	ResolvedOn  *time.Time `json:"resolved_on"`
}

func (r *reportRecord) toModel() *model.Report {
	return &model.Report{
		ID:           r.ID,
		ReporterID:   r.Reporter,
		TargetType:   model.ReportTargetType(r.TargetType),
		TargetID:     r.TargetID,
		Category:     model.ReportCategory(r.Category),
		Description:  r.Description,
		Status:       model.ReportStatus(r.Status),
		ReviewedByID: r.ReviewedBy,
		ReviewNotes:  r.ReviewNotes,
		CreatedOn:    r.CreatedOn,
		ResolvedOn:   r.ResolvedOn,
	}
}

type auditRecord struct {
	ID         string            `json:"id"`
	Actor      string            `json:"actor"`
	Action     string            `json:"action"`
	TargetType string            `json:"target_type"`
	TargetID   string            `json:"target_id"`
	Details    map[string]string `json:"details"`
	CreatedOn  time.Time         `json:"created_on"`
}

func (r *auditRecord) toModel() *model.AuditLog {
	return &model.AuditLog{
		ID:         r.ID,
		ActorID:    r.Actor,
		Action:     r.Action,
		TargetType: r.TargetType,
		TargetID:   r.TargetID,
		Details:    r.Details,
		CreatedOn:  r.CreatedOn,
	}
}

// ModerationRepository handles reports and the admin audit trail
type ModerationRepository struct {
	db database.Database
}

// NewModerationRepository creates a new moderation repository
func NewModerationRepository(db database.Database) *ModerationRepository {
	return &ModerationRepository{db: db}
}

// Report operations

// CreateReport stores an open report
func (r *ModerationRepository) CreateReport(ctx context.Context, report *model.Report) error {
	query := `
		CREATE report CONTENT {
			reporter: type::record($reporter),
			target_type: $target_type,
			target_id: $target_id,
			category: $category,
			description: $description,
			status: "open",
			created_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"reporter":    report.ReporterID,
		"target_type": string(report.TargetType),
		"target_id":   report.TargetID,
		"category":    string(report.Category),
		"description": report.Description,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	created, err := firstRow[reportRecord](result)
	if err != nil {
		return fmt.Errorf("failed to extract report: %w", err)
	}
	*report = *created.toModel()
	return nil
}

// GetReport retrieves a report by ID, or nil when missing
func (r *ModerationRepository) GetReport(ctx context.Context, id string) (*model.Report, error) {
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	rec, err := notFoundAsNil(decodeRecord[reportRecord](result))
	if rec == nil || err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// ListReports returns reports, newest first
func (r *ModerationRepository) ListReports(ctx context.Context, filter model.ReportFilter) ([]*model.Report, error) {
	limit, offset := model.ClampPage(filter.Limit, filter.Offset)

	query := `SELECT * FROM report`
	vars := map[string]interface{}{"limit": limit, "offset": offset}
	if filter.Status != nil {
		query += ` WHERE status = $status`
		vars["status"] = string(*filter.Status)
	}
	query += ` ORDER BY created_on DESC LIMIT $limit START $offset`

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}
	recs, err := decodeRows[reportRecord](result)
	if err != nil {
		return nil, err
	}
	reports := make([]*model.Report, 0, len(recs))
	for _, rec := range recs {
		reports = append(reports, rec.toModel())
	}
	return reports, nil
}

// HasOpenReport reports whether reporter already has an open report on the target
func (r *ModerationRepository) HasOpenReport(ctx context.Context, reporterID string, targetType model.ReportTargetType, targetID string) (bool, error) {
	query := `
		SELECT count() FROM report
		WHERE reporter = type::record($reporter)
			AND target_type = $target_type
			AND target_id = $target_id
			AND status = "open"
		GROUP ALL
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{
		"reporter":    reporterID,
		"target_type": string(targetType),
		"target_id":   targetID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check reports: %w", err)
	}
	return countOf(result) > 0, nil
}

// ReviewReport closes an open report. database.ErrConflict means it was
// already reviewed.
func (r *ModerationRepository) ReviewReport(ctx context.Context, id, reviewerID string, status model.ReportStatus, notes *string) (*model.Report, error) {
	query := `
		UPDATE type::record($id) SET
			status = $status,
			reviewed_by = type::record($reviewer),
			review_notes = $notes,
			resolved_on = time::now()
		WHERE status = "open"
		RETURN AFTER
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{
		"id":       id,
		"status":   string(status),
		"reviewer": reviewerID,
		"notes":    notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}
	rec, err := firstRow[reportRecord](result)
	if errors.Is(err, database.ErrNotFound) {
		return nil, database.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// CountOpenReports returns the number of unreviewed reports
func (r *ModerationRepository) CountOpenReports(ctx context.Context) (int, error) {
	result, err := r.db.Query(ctx, `SELECT count() FROM report WHERE status = "open" GROUP ALL`, nil)
	if err != nil {
		return 0, err
	}
	return countOf(result), nil
}

// Audit operations

// CreateAuditLog records an admin action
func (r *ModerationRepository) CreateAuditLog(ctx context.Context, entry *model.AuditLog) error {
	query := `
		CREATE audit_log CONTENT {
			actor: type::record($actor),
			action: $action,
			target_type: $target_type,
			target_id: $target_id,
			details: $details,
			created_on: time::now()
		}
	`
	details := entry.Details
	if details == nil {
		details = map[string]string{}
	}
	result, err := r.db.Query(ctx, query, map[string]interface{}{
		"actor":       entry.ActorID,
		"action":      entry.Action,
		"target_type": entry.TargetType,
		"target_id":   entry.TargetID,
		"details":     details,
	})
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	created, err := firstRow[auditRecord](result)
	if err != nil {
		return err
	}
	*entry = *created.toModel()
	return nil
}

// ListAuditLogs returns the audit trail, newest first
func (r *ModerationRepository) ListAuditLogs(ctx context.Context, limit, offset int) ([]*model.AuditLog, error) {
	limit, offset = model.ClampPage(limit, offset)
	query := `SELECT * FROM audit_log ORDER BY created_on DESC LIMIT $limit START $offset`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"limit": limit, "offset": offset})
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	recs, err := decodeRows[auditRecord](result)
	if err != nil {
		return nil, err
	}
	logs := make([]*model.AuditLog, 0, len(recs))
	for _, rec := range recs {
		logs = append(logs, rec.toModel())
	}
	return logs, nil
}
