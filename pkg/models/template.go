package models

// PlanTemplate is the externally supplied playbook describing which steps a
// case needs. The engine never decides step content, it only arranges and
// resolves it.
type PlanTemplate struct {
	Name  string         `json:"name"  validate:"required,min=3"`
	Steps []TemplateStep `json:"steps" validate:"required,min=1,dive"`
}

// TemplateStep is one step definition inside a plan template. DependsOn refers
// to other steps by key within the same template.
type TemplateStep struct {
	Key             string   `json:"key"      validate:"required,lowercase"`
	Title           string   `json:"title"    validate:"required"`
	Sequence        int      `json:"sequence" validate:"min=0"`
	DependsOn       []string `json:"depends_on,omitempty"`
	DueInDays       int      `json:"due_in_days,omitempty" validate:"min=0"`
	DeadlineSource  string   `json:"deadline_source,omitempty"`
	AssignedActorID string   `json:"assigned_actor_id,omitempty"`
}
