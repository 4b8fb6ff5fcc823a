// Package file provides file-based persistence for case plans, used for local
// development and tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/probata/caseflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root      string
	planRepo  *PlanRepository
	actorRepo *ActorRepository
}

// NewPersistence creates a new instance of Persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:      cleanRoot,
		planRepo:  NewPlanRepository(cleanRoot),
		actorRepo: NewActorRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) PlanRepository() persistence.PlanRepository {
	return fp.planRepo
}

func (fp *Persistence) ActorRepository() persistence.ActorRepository {
	return fp.actorRepo
}
