package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mlefebvre/budget-approval-api/internal/models"
)

const actorColumns = `id, email, full_name, role, supervising_director_id, active, created_at, updated_at`

// ActorRepository reads the directory. Actor provisioning is owned by an
// external system; this service never writes the actors table.
type ActorRepository struct {
	db *sqlx.DB
}

// NewActorRepository constructs the repository.
func NewActorRepository(db *sqlx.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

// GetByID fetches a directory entry.
func (r *ActorRepository) GetByID(ctx context.Context, id string) (*models.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM actors WHERE id = $1 LIMIT 1`, actorColumns)
	var actor models.Actor
	if err := r.db.GetContext(ctx, &actor, query, id); err != nil {
		return nil, err
	}
	return &actor, nil
}

// ListActiveByRole returns every active actor holding the given role.
func (r *ActorRepository) ListActiveByRole(ctx context.Context, role models.Role) ([]models.Actor, error) {
	query := fmt.Sprintf(`SELECT %s FROM actors WHERE role = $1 AND active = true ORDER BY full_name ASC`, actorColumns)
	var actors []models.Actor
	if err := r.db.SelectContext(ctx, &actors, query, role); err != nil {
		return nil, fmt.Errorf("list actors by role %s: %w", role, err)
	}
	return actors, nil
}
