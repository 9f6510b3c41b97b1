package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mlefebvre/budget-approval-api/internal/models"
)

const requestColumns = `id, creator_id, creator_role, kind, purpose, amount, state,
       director_validator_id, director_validated_at, director_comment,
       finance_validator_id, finance_validated_at, finance_comment,
       general_validator_id, general_validated_at, general_comment,
       recall_reason, submitted_at, created_at, updated_at`

// RequestRepository persists spending requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new draft row.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.State == "" {
		req.State = models.StateDraft
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	const query = `INSERT INTO requests
	(id, creator_id, creator_role, kind, purpose, amount, state,
	 director_validator_id, director_validated_at, director_comment,
	 finance_validator_id, finance_validated_at, finance_comment,
	 general_validator_id, general_validated_at, general_comment,
	 recall_reason, submitted_at, created_at, updated_at)
	VALUES (:id, :creator_id, :creator_role, :kind, :purpose, :amount, :state,
	 :director_validator_id, :director_validated_at, :director_comment,
	 :finance_validator_id, :finance_validated_at, :finance_comment,
	 :general_validator_id, :general_validated_at, :general_comment,
	 :recall_reason, :submitted_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id = $1`, requestColumns)
	var req models.Request
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter, newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM requests`, requestColumns))

	conditions := make([]string, 0, 4)
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.CreatorID != "" {
		args = append(args, filter.CreatorID)
		conditions = append(conditions, fmt.Sprintf("creator_id = $%d", len(args)))
	}
	if filter.TeamDirectorID != "" {
		args = append(args, filter.TeamDirectorID)
		own := len(args)
		args = append(args, filter.TeamDirectorID)
		team := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(creator_id = $%d OR creator_id IN (SELECT id FROM actors WHERE supervising_director_id = $%d))",
			own, team))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// UpdateForTransition runs a read-modify-write cycle on a single request
// under a row lock. The apply callback sees the freshly loaded row; if it
// returns an error the transaction rolls back and nothing is persisted. Two
// concurrent transitions on the same request id serialize on the lock, which
// is what makes the check-slot-then-set sequence atomic.
func (r *RequestRepository) UpdateForTransition(ctx context.Context, id string, apply func(*models.Request) error) (*models.Request, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id = $1 FOR UPDATE`, requestColumns)
	var req models.Request
	if err := tx.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}

	if err := apply(&req); err != nil {
		return nil, err
	}
	req.UpdatedAt = time.Now().UTC()

	const update = `UPDATE requests SET
	 state = :state,
	 director_validator_id = :director_validator_id,
	 director_validated_at = :director_validated_at,
	 director_comment = :director_comment,
	 finance_validator_id = :finance_validator_id,
	 finance_validated_at = :finance_validated_at,
	 finance_comment = :finance_comment,
	 general_validator_id = :general_validator_id,
	 general_validated_at = :general_validated_at,
	 general_comment = :general_comment,
	 recall_reason = :recall_reason,
	 submitted_at = :submitted_at,
	 updated_at = :updated_at
	WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, update, &req); err != nil {
		return nil, fmt.Errorf("update request %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition for %s: %w", id, err)
	}
	return &req, nil
}

// IsNotFound reports whether the error is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
