package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/probata/caseflow/pkg/models"
	"github.com/probata/caseflow/pkg/persistence"
)

// planDocument is the on-disk shape of one case's plan.
type planDocument struct {
	Steps []*models.WorkflowStep  `json:"steps"`
	Edges []models.DependencyEdge `json:"edges"`
}

// PlanRepository stores one JSON document per case under
// <root>/tenants/<tenant>/cases/<case>.json.
type PlanRepository struct {
	root string
	mu   sync.Mutex
}

func NewPlanRepository(root string) *PlanRepository {
	return &PlanRepository{root: root}
}

func (r *PlanRepository) casePath(tenantID, caseID string) string {
	return filepath.Join(r.root, "tenants", tenantID, "cases", caseID+".json")
}

func (r *PlanRepository) load(tenantID, caseID string) (*planDocument, error) {
	data, err := os.ReadFile(r.casePath(tenantID, caseID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewCaseError("load", caseID, persistence.ErrCaseNotFound)
		}

		return nil, fmt.Errorf("failed to read plan for case %s: %w", caseID, err)
	}

	var doc planDocument

	err = json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plan for case %s: %w", caseID, err)
	}

	return &doc, nil
}

func (r *PlanRepository) store(tenantID, caseID string, doc *planDocument) error {
	path := r.casePath(tenantID, caseID)

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return fmt.Errorf("failed to create case directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plan for case %s: %w", caseID, err)
	}

	err = os.WriteFile(path, data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write plan for case %s: %w", caseID, err)
	}

	return nil
}

func (r *PlanRepository) StepsByCase(_ context.Context, tenantID, caseID string) ([]*models.WorkflowStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(tenantID, caseID)
	if err != nil {
		return nil, err
	}

	return doc.Steps, nil
}

func (r *PlanRepository) EdgesByCase(_ context.Context, tenantID, caseID string) ([]models.DependencyEdge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(tenantID, caseID)
	if err != nil {
		return nil, err
	}

	return doc.Edges, nil
}

func (r *PlanRepository) StepByID(_ context.Context, tenantID, stepID string) (*models.WorkflowStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	step, _, err := r.findStep(tenantID, stepID)
	if err != nil {
		return nil, err
	}

	return step, nil
}

// findStep scans every case document of the tenant for the step.
func (r *PlanRepository) findStep(tenantID, stepID string) (*models.WorkflowStep, *planDocument, error) {
	casesDir := filepath.Join(r.root, "tenants", tenantID, "cases")

	entries, err := os.ReadDir(casesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, persistence.NewStepError("StepByID", stepID, persistence.ErrStepNotFound)
		}

		return nil, nil, fmt.Errorf("failed to list cases: %w", err)
	}

	for _, entry := range entries {
		caseID := strings.TrimSuffix(entry.Name(), ".json")

		doc, err := r.load(tenantID, caseID)
		if err != nil {
			continue
		}

		for _, step := range doc.Steps {
			if step.ID == stepID {
				return step, doc, nil
			}
		}
	}

	return nil, nil, persistence.NewStepError("StepByID", stepID, persistence.ErrStepNotFound)
}

func (r *PlanRepository) ReplacePlan(_ context.Context, tenantID, caseID string, steps []*models.WorkflowStep, edges []models.DependencyEdge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(steps))
	for _, step := range steps {
		if seen[step.StepKey] {
			return persistence.NewCaseError("ReplacePlan", caseID, persistence.ErrDuplicateStepKey)
		}

		seen[step.StepKey] = true
	}

	return r.store(tenantID, caseID, &planDocument{Steps: steps, Edges: edges})
}

func (r *PlanRepository) UpdateStep(ctx context.Context, tenantID string, step *models.WorkflowStep, expectedUpdatedAt time.Time) error {
	return r.UpdateSteps(ctx, tenantID, []*models.WorkflowStep{step}, map[string]time.Time{step.ID: expectedUpdatedAt})
}

func (r *PlanRepository) UpdateSteps(_ context.Context, tenantID string, steps []*models.WorkflowStep, expected map[string]time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(steps) == 0 {
		return nil
	}

	caseID := steps[0].CaseID

	doc, err := r.load(tenantID, caseID)
	if err != nil {
		return err
	}

	byID := make(map[string]int, len(doc.Steps))
	for i, stored := range doc.Steps {
		byID[stored.ID] = i
	}

	for _, step := range steps {
		i, ok := byID[step.ID]
		if !ok {
			return persistence.NewStepError("UpdateSteps", step.ID, persistence.ErrStepNotFound)
		}

		if want, ok := expected[step.ID]; ok && !doc.Steps[i].UpdatedAt.Equal(want) {
			return persistence.NewStepError("UpdateSteps", step.ID, persistence.ErrConcurrentUpdate)
		}

		doc.Steps[i] = step
	}

	return r.store(tenantID, caseID, doc)
}

func (r *PlanRepository) CasesWithDueSteps(_ context.Context, before time.Time) ([]persistence.CaseRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenantsDir := filepath.Join(r.root, "tenants")

	tenants, err := os.ReadDir(tenantsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	var refs []persistence.CaseRef

	for _, tenant := range tenants {
		casesDir := filepath.Join(tenantsDir, tenant.Name(), "cases")

		cases, err := os.ReadDir(casesDir)
		if err != nil {
			continue
		}

		for _, entry := range cases {
			caseID := strings.TrimSuffix(entry.Name(), ".json")

			doc, err := r.load(tenant.Name(), caseID)
			if err != nil {
				continue
			}

			for _, step := range doc.Steps {
				if step.Status.IsTerminal() || step.DueDate == nil {
					continue
				}

				if !step.DueDate.After(before) {
					refs = append(refs, persistence.CaseRef{TenantID: tenant.Name(), CaseID: caseID})

					break
				}
			}
		}
	}

	return refs, nil
}
