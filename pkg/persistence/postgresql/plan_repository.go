package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/probata/caseflow/pkg/models"
	"github.com/probata/caseflow/pkg/persistence"
)

// PlanRepository handles step and edge database operations.
type PlanRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPlanRepository creates a new plan repository.
func NewPlanRepository(db *sql.DB, logger *slog.Logger) *PlanRepository {
	return &PlanRepository{db: db, logger: logger}
}

const stepColumns = `
	id
  , tenant_id
  , case_id
  , step_key
  , title
  , sequence
  , status
  , due_date
  , deadline_source
  , assigned_actor_id
  , is_readiness_overridden
  , override_rationale
  , overridden_by
  , overridden_at
  , blocked_reason
  , blocked_detail
  , created_at
  , updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStep(row rowScanner) (*models.WorkflowStep, error) {
	var (
		step              models.WorkflowStep
		dueDate           sql.NullTime
		deadlineSource    sql.NullString
		assignedActorID   sql.NullString
		overrideRationale sql.NullString
		overriddenBy      sql.NullString
		overriddenAt      sql.NullTime
		blockedReason     sql.NullString
		blockedDetail     sql.NullString
	)

	err := row.Scan(
		&step.ID,
		&step.TenantID,
		&step.CaseID,
		&step.StepKey,
		&step.Title,
		&step.Sequence,
		&step.Status,
		&dueDate,
		&deadlineSource,
		&assignedActorID,
		&step.IsReadinessOverridden,
		&overrideRationale,
		&overriddenBy,
		&overriddenAt,
		&blockedReason,
		&blockedDetail,
		&step.CreatedAt,
		&step.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		step.DueDate = &dueDate.Time
	}

	step.DeadlineSource = deadlineSource.String
	step.AssignedActorID = assignedActorID.String
	step.OverrideRationale = overrideRationale.String
	step.OverriddenBy = overriddenBy.String

	if overriddenAt.Valid {
		step.OverriddenAt = &overriddenAt.Time
	}

	if blockedReason.Valid {
		code := models.BlockedReasonCode(blockedReason.String)
		step.BlockedReason = &code
	}

	step.BlockedDetail = blockedDetail.String

	return &step, nil
}

// StepsByCase returns all steps of one case.
func (r *PlanRepository) StepsByCase(ctx context.Context, tenantID, caseID string) ([]*models.WorkflowStep, error) {
	query := `SELECT ` + stepColumns + ` FROM workflow_steps WHERE tenant_id = $1 AND case_id = $2`

	rows, err := r.db.QueryContext(ctx, query, tenantID, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	steps := make([]*models.WorkflowStep, 0)

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		steps = append(steps, step)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	if len(steps) == 0 {
		return nil, persistence.NewCaseError("StepsByCase", caseID, persistence.ErrCaseNotFound)
	}

	return steps, nil
}

// EdgesByCase returns all dependency edges of one case.
func (r *PlanRepository) EdgesByCase(ctx context.Context, tenantID, caseID string) ([]models.DependencyEdge, error) {
	query := `
		SELECT e.case_id, e.step_id, e.depends_on_step_id
		FROM dependency_edges e
		JOIN workflow_steps s ON s.id = e.step_id
		WHERE s.tenant_id = $1 AND e.case_id = $2
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	edges := make([]models.DependencyEdge, 0)

	for rows.Next() {
		var edge models.DependencyEdge

		err := rows.Scan(&edge.CaseID, &edge.StepID, &edge.DependsOnStepID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}

		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}

// StepByID returns one step by id.
func (r *PlanRepository) StepByID(ctx context.Context, tenantID, stepID string) (*models.WorkflowStep, error) {
	query := `SELECT ` + stepColumns + ` FROM workflow_steps WHERE tenant_id = $1 AND id = $2`

	step, err := scanStep(r.db.QueryRowContext(ctx, query, tenantID, stepID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStepError("StepByID", stepID, persistence.ErrStepNotFound)
		}

		return nil, fmt.Errorf("failed to scan step: %w", err)
	}

	return step, nil
}

// ReplacePlan hard-deletes the case's prior plan and writes the new step and
// edge set inside one transaction.
func (r *PlanRepository) ReplacePlan(ctx context.Context, tenantID, caseID string, steps []*models.WorkflowStep, edges []models.DependencyEdge) error {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = r.replacePlanTx(ctx, transaction, tenantID, caseID, steps, edges)
	if err != nil {
		_ = transaction.Rollback()

		return err
	}

	err = transaction.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit plan replacement: %w", err)
	}

	return nil
}

func (r *PlanRepository) replacePlanTx(ctx context.Context, tx *sql.Tx, tenantID, caseID string, steps []*models.WorkflowStep, edges []models.DependencyEdge) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM workflow_steps WHERE tenant_id = $1 AND case_id = $2`, tenantID, caseID)
	if err != nil {
		return fmt.Errorf("failed to delete prior plan: %w", err)
	}

	insertStep := `
		INSERT INTO workflow_steps (` + stepColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	for _, step := range steps {
		var blockedReason any
		if step.BlockedReason != nil {
			blockedReason = string(*step.BlockedReason)
		}

		_, err := tx.ExecContext(ctx, insertStep,
			step.ID, step.TenantID, step.CaseID, step.StepKey,
			step.Title, step.Sequence, step.Status,
			step.DueDate, nullable(step.DeadlineSource), nullable(step.AssignedActorID),
			step.IsReadinessOverridden, nullable(step.OverrideRationale), nullable(step.OverriddenBy), step.OverriddenAt,
			blockedReason, nullable(step.BlockedDetail),
			step.CreatedAt, step.UpdatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				return persistence.NewStepError("ReplacePlan", step.ID, persistence.ErrDuplicateStepKey)
			}

			return fmt.Errorf("failed to insert step %s: %w", step.ID, err)
		}
	}

	insertEdge := `
		INSERT INTO dependency_edges (case_id, step_id, depends_on_step_id)
		VALUES ($1, $2, $3)
	`

	for _, edge := range edges {
		_, err := tx.ExecContext(ctx, insertEdge, edge.CaseID, edge.StepID, edge.DependsOnStepID)
		if err != nil {
			return fmt.Errorf("failed to insert edge %s -> %s: %w", edge.StepID, edge.DependsOnStepID, err)
		}
	}

	return nil
}

// UpdateStep writes one step guarded by the optimistic-concurrency marker.
func (r *PlanRepository) UpdateStep(ctx context.Context, tenantID string, step *models.WorkflowStep, expectedUpdatedAt time.Time) error {
	return r.UpdateSteps(ctx, tenantID, []*models.WorkflowStep{step}, map[string]time.Time{step.ID: expectedUpdatedAt})
}

// UpdateSteps writes a batch of steps inside one transaction; the batch fails
// on the first optimistic-concurrency conflict.
func (r *PlanRepository) UpdateSteps(ctx context.Context, tenantID string, steps []*models.WorkflowStep, expected map[string]time.Time) error {
	if len(steps) == 0 {
		return nil
	}

	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, step := range steps {
		err := r.updateStepTx(ctx, transaction, tenantID, step, expected[step.ID])
		if err != nil {
			_ = transaction.Rollback()

			return err
		}
	}

	err = transaction.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit step updates: %w", err)
	}

	return nil
}

func (r *PlanRepository) updateStepTx(ctx context.Context, tx *sql.Tx, tenantID string, step *models.WorkflowStep, expectedUpdatedAt time.Time) error {
	query := `
		UPDATE workflow_steps SET
			status = $1
		  , due_date = $2
		  , is_readiness_overridden = $3
		  , override_rationale = $4
		  , overridden_by = $5
		  , overridden_at = $6
		  , blocked_reason = $7
		  , blocked_detail = $8
		  , updated_at = $9
		WHERE tenant_id = $10 AND id = $11 AND updated_at = $12
	`

	var blockedReason any
	if step.BlockedReason != nil {
		blockedReason = string(*step.BlockedReason)
	}

	result, err := tx.ExecContext(ctx, query,
		step.Status, step.DueDate,
		step.IsReadinessOverridden, nullable(step.OverrideRationale), nullable(step.OverriddenBy), step.OverriddenAt,
		blockedReason, nullable(step.BlockedDetail),
		step.UpdatedAt,
		tenantID, step.ID, expectedUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update step %s: %w", step.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		// Either the row is gone or its marker moved under us.
		var exists bool

		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM workflow_steps WHERE tenant_id = $1 AND id = $2)`,
			tenantID, step.ID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check step existence: %w", err)
		}

		if !exists {
			return persistence.NewStepError("UpdateStep", step.ID, persistence.ErrStepNotFound)
		}

		return persistence.NewStepError("UpdateStep", step.ID, persistence.ErrConcurrentUpdate)
	}

	return nil
}

func (r *PlanRepository) CasesWithDueSteps(ctx context.Context, before time.Time) ([]persistence.CaseRef, error) {
	query := `
		SELECT DISTINCT tenant_id, case_id
		FROM workflow_steps
		WHERE due_date IS NOT NULL
		  AND due_date <= $1
		  AND status NOT IN ('complete', 'skipped')
		ORDER BY tenant_id, case_id`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases with due steps: %w", err)
	}
	defer rows.Close()

	var refs []persistence.CaseRef

	for rows.Next() {
		var ref persistence.CaseRef

		err := rows.Scan(&ref.TenantID, &ref.CaseID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case reference: %w", err)
		}

		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}
