package plan

import (
	"time"

	"github.com/probata/caseflow/pkg/models"
)

// Snapshot is the full step/edge state of one case loaded at the start of a
// resolver pass, plus the per-step classification signals and the evaluation
// instant. The resolver never reads anything outside the snapshot.
type Snapshot struct {
	CaseID  string
	Steps   []*models.WorkflowStep
	Edges   []models.DependencyEdge
	Signals map[string]SignalSet
	Now     time.Time
}

// Result holds the recomputed steps in deterministic evaluation order and the
// ids of steps whose persisted fields changed during the pass.
type Result struct {
	Steps   []*models.WorkflowStep
	Changed []string
}

// Resolve recomputes the status of every non-terminal, non-overridden step of
// one case. It is a pure function over the snapshot: input steps are copied,
// never mutated, and resolving the same snapshot twice yields identical
// output.
func Resolve(snap Snapshot) (*Result, error) {
	graph, err := BuildGraph(snap.CaseID, snap.Steps, snap.Edges)
	if err != nil {
		return nil, err
	}

	steps := make(map[string]*models.WorkflowStep, len(snap.Steps))

	for _, src := range snap.Steps {
		copied := *src
		steps[src.ID] = &copied
	}

	result := &Result{Steps: make([]*models.WorkflowStep, 0, len(steps))}

	for _, id := range graph.Order() {
		step := steps[id]
		before := *step

		// Overdue is an orthogonal display flag; it never replaces the
		// underlying status and applies to overridden steps too.
		step.Overdue = step.IsOverdue(snap.Now)

		switch {
		case step.Status.IsTerminal():
			// Frozen; the resolver never touches terminal steps.
		case step.IsReadinessOverridden:
			// Frozen at the asserted value until cleared by completion or a
			// new override. Recalculation must not undo a manager's decision.
		default:
			resolveStep(step, steps, graph, snap)
		}

		if changed(before, *step) {
			result.Changed = append(result.Changed, step.ID)
		}

		result.Steps = append(result.Steps, step)
	}

	return result, nil
}

func resolveStep(step *models.WorkflowStep, steps map[string]*models.WorkflowStep, graph *Graph, snap Snapshot) {
	unmet := make([]*models.WorkflowStep, 0)

	for _, prereqID := range graph.Prerequisites[step.ID] {
		if prereq := steps[prereqID]; !prereq.Status.IsTerminal() {
			unmet = append(unmet, prereq)
		}
	}

	if len(unmet) == 0 {
		// Readiness only governs the NotStarted/Blocked to Ready gate; steps
		// already making forward task progress are left untouched.
		if step.Status == models.StepStatusNotStarted || step.Status == models.StepStatusBlocked {
			step.Status = models.StepStatusReady
			step.ClearBlocked()
		}

		return
	}

	step.Status = models.StepStatusBlocked

	classification := Classify(step, unmet, snap.Signals[step.ID], snap.Now)
	step.BlockedReason = &classification.Code
	step.BlockedDetail = classification.Detail
}

// changed compares the resolver-owned fields of two step values.
func changed(a, b models.WorkflowStep) bool {
	if a.Status != b.Status || a.Overdue != b.Overdue || a.BlockedDetail != b.BlockedDetail {
		return true
	}

	switch {
	case a.BlockedReason == nil && b.BlockedReason == nil:
		return false
	case a.BlockedReason == nil || b.BlockedReason == nil:
		return true
	default:
		return *a.BlockedReason != *b.BlockedReason
	}
}
