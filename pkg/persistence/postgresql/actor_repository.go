package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/probata/caseflow/pkg/models"
	"github.com/probata/caseflow/pkg/persistence"
)

// ActorRepository reads the tenant actor roster.
type ActorRepository struct {
	db *sql.DB
}

// NewActorRepository creates a new actor repository.
func NewActorRepository(db *sql.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

func (r *ActorRepository) ActorByID(ctx context.Context, tenantID, actorID string) (*models.Actor, error) {
	var actor models.Actor

	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, role FROM actors WHERE tenant_id = $1 AND id = $2`,
		tenantID, actorID,
	).Scan(&actor.ID, &actor.TenantID, &actor.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrActorNotFound
		}

		return nil, fmt.Errorf("failed to query actor %s: %w", actorID, err)
	}

	return &actor, nil
}
