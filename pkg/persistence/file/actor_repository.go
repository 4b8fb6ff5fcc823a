package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/probata/caseflow/pkg/models"
	"github.com/probata/caseflow/pkg/persistence"
)

// ActorRepository reads the tenant's actor roster from
// <root>/tenants/<tenant>/actors.json.
type ActorRepository struct {
	root string
}

func NewActorRepository(root string) *ActorRepository {
	return &ActorRepository{root: root}
}

func (r *ActorRepository) ActorByID(_ context.Context, tenantID, actorID string) (*models.Actor, error) {
	path := filepath.Join(r.root, "tenants", tenantID, "actors.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrActorNotFound
		}

		return nil, fmt.Errorf("failed to read actors for tenant %s: %w", tenantID, err)
	}

	var actors []*models.Actor

	err = json.Unmarshal(data, &actors)
	if err != nil {
		return nil, fmt.Errorf("failed to decode actors for tenant %s: %w", tenantID, err)
	}

	for _, actor := range actors {
		if actor.ID == actorID {
			return actor, nil
		}
	}

	return nil, persistence.ErrActorNotFound
}
