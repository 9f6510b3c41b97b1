package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mlefebvre/budget-approval-api/internal/models"
)

// AuditRepository persists workflow audit trail records.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts an audit row.
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, actor_id, action, request_id, details, created_at)
	VALUES (:id, :actor_id, :action, :request_id, :details, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListByRequest returns the audit trail of one request, oldest first.
func (r *AuditRepository) ListByRequest(ctx context.Context, requestID string) ([]models.AuditLog, error) {
	const query = `SELECT id, actor_id, action, request_id, details, created_at
	FROM audit_logs WHERE request_id = $1 ORDER BY created_at ASC`
	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, requestID); err != nil {
		return nil, fmt.Errorf("list audit logs for %s: %w", requestID, err)
	}
	return logs, nil
}
