package repository

import (
	"context"
	"database/sql"
	"fmt"

	"thesis-eval/internal/database"
	"thesis-eval/internal/models"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create creates a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (actor_id, action, entity, entity_id, details, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	details := "{}"
	if len(log.Details) > 0 {
		details = string(log.Details)
	}

	err := r.db.QueryRowContext(ctx, query,
		log.ActorID,
		log.Action,
		log.Entity,
		log.EntityID,
		details,
		log.IPAddress,
		log.UserAgent,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", database.TranslateError(err, "audit log"))
	}
	return nil
}

// List retrieves audit logs matching the filter, newest first
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 1

	if filter.Entity != "" {
		where += fmt.Sprintf(` AND entity = $%d`, argPos)
		args = append(args, filter.Entity)
		argPos++
	}
	if filter.Action != "" {
		where += fmt.Sprintf(` AND action = $%d`, argPos)
		args = append(args, filter.Action)
		argPos++
	}
	if filter.ActorID != nil {
		where += fmt.Sprintf(` AND actor_id = $%d`, argPos)
		args = append(args, *filter.ActorID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", database.TranslateError(err, "audit log"))
	}

	query := `
		SELECT id, actor_id, action, entity, entity_id, details, ip_address, user_agent, created_at
		FROM audit_logs` + where + ` ORDER BY created_at DESC, id`
	query, args = appendPage(query, args, models.Page{Limit: filter.Limit, Offset: filter.Offset})

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get audit logs: %w", database.TranslateError(err, "audit log"))
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var log models.AuditLog
		var details []byte
		if err := rows.Scan(
			&log.ID,
			&log.ActorID,
			&log.Action,
			&log.Entity,
			&log.EntityID,
			&details,
			&log.IPAddress,
			&log.UserAgent,
			&log.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit log: %w", database.TranslateError(err, "audit log"))
		}
		log.Details = details
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, database.TranslateError(err, "audit log")
	}

	return logs, total, nil
}
