// Package plan implements the case workflow plan and readiness engine: the
// dependency graph builder, the readiness resolver, the blocked-reason
// classifier, the recovery-action mapper and the override manager.
package plan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/probata/caseflow/pkg/models"
)

// Graph integrity errors are fatal. They indicate a write-time defect in plan
// authoring and must never be repaired by dropping edges.
var (
	ErrCycleDetected     = errors.New("cycle detected in dependency graph")
	ErrDanglingReference = errors.New("dependency edge references unknown step")
)

// GraphIntegrityError wraps a fatal graph defect with the case and offending
// step for logging.
type GraphIntegrityError struct {
	CaseID string
	StepID string
	Err    error
}

func (e *GraphIntegrityError) Error() string {
	return fmt.Sprintf("dependency graph for case %s is corrupt at step %s: %v", e.CaseID, e.StepID, e.Err)
}

func (e *GraphIntegrityError) Unwrap() error {
	return e.Err
}

// Graph is the validated adjacency structure for one case: prerequisites per
// step and the reverse dependents index used by impact displays. It is built
// once per pass and passed by value; it holds no object references.
type Graph struct {
	CaseID string

	// Prerequisites maps step id to the ids of steps it depends on.
	Prerequisites map[string][]string
	// Dependents maps step id to the ids of steps depending on it.
	Dependents map[string][]string

	steps map[string]*models.WorkflowStep
	order []string
}

// BuildGraph assembles the dependency graph for one case from stored rows,
// validating referential integrity and acyclicity.
func BuildGraph(caseID string, steps []*models.WorkflowStep, edges []models.DependencyEdge) (*Graph, error) {
	g := &Graph{
		CaseID:        caseID,
		Prerequisites: make(map[string][]string, len(steps)),
		Dependents:    make(map[string][]string, len(steps)),
		steps:         make(map[string]*models.WorkflowStep, len(steps)),
	}

	for _, step := range steps {
		g.steps[step.ID] = step
		g.order = append(g.order, step.ID)
	}

	// Deterministic evaluation order: ascending sequence, then step key.
	sort.SliceStable(g.order, func(i, j int) bool {
		a, b := g.steps[g.order[i]], g.steps[g.order[j]]
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}

		return a.StepKey < b.StepKey
	})

	for _, edge := range edges {
		if _, ok := g.steps[edge.StepID]; !ok {
			return nil, &GraphIntegrityError{CaseID: caseID, StepID: edge.StepID, Err: ErrDanglingReference}
		}

		if _, ok := g.steps[edge.DependsOnStepID]; !ok {
			return nil, &GraphIntegrityError{CaseID: caseID, StepID: edge.DependsOnStepID, Err: ErrDanglingReference}
		}

		g.Prerequisites[edge.StepID] = append(g.Prerequisites[edge.StepID], edge.DependsOnStepID)
		g.Dependents[edge.DependsOnStepID] = append(g.Dependents[edge.DependsOnStepID], edge.StepID)
	}

	if stepID, cyclic := g.findCycle(); cyclic {
		return nil, &GraphIntegrityError{CaseID: caseID, StepID: stepID, Err: ErrCycleDetected}
	}

	return g, nil
}

// Step returns the step with the given id, or nil when unknown.
func (g *Graph) Step(id string) *models.WorkflowStep {
	return g.steps[id]
}

// Order returns step ids in deterministic evaluation order.
func (g *Graph) Order() []string {
	return g.order
}

// findCycle runs a depth-first traversal with visiting/visited marker sets and
// returns a step id on the first cycle found.
func (g *Graph) findCycle() (string, bool) {
	visited := make(map[string]bool, len(g.steps))
	visiting := make(map[string]bool, len(g.steps))

	var visit func(id string) (string, bool)
	visit = func(id string) (string, bool) {
		visited[id] = true
		visiting[id] = true

		for _, prereq := range g.Prerequisites[id] {
			if visiting[prereq] {
				return prereq, true
			}

			if !visited[prereq] {
				if offender, cyclic := visit(prereq); cyclic {
					return offender, true
				}
			}
		}

		visiting[id] = false

		return "", false
	}

	for _, id := range g.order {
		if !visited[id] {
			if offender, cyclic := visit(id); cyclic {
				return offender, true
			}
		}
	}

	return "", false
}
