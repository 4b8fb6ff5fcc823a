package models

// Role is the case-scoped role an actor holds within a tenant.
type Role string

const (
	RoleReader      Role = "reader"
	RoleParticipant Role = "participant"
	RoleManager     Role = "manager"
	RoleTenantAdmin Role = "tenant_admin"
)

// Actor identifies the requesting user for authorization decisions.
type Actor struct {
	ID       string `json:"id"        validate:"required"`
	TenantID string `json:"tenant_id" validate:"required"`
	Role     Role   `json:"role"      validate:"required"`
}

// CanRead reports whether the actor has at least read access to case data.
func (a Actor) CanRead() bool {
	switch a.Role {
	case RoleReader, RoleParticipant, RoleManager, RoleTenantAdmin:
		return true
	default:
		return false
	}
}

// CanEdit reports whether the actor may mutate step content, such as uploading
// evidence or correcting case data.
func (a Actor) CanEdit() bool {
	switch a.Role {
	case RoleParticipant, RoleManager, RoleTenantAdmin:
		return true
	default:
		return false
	}
}

// CanOverride reports whether the actor holds manager-equivalent capability
// and may assert a step's readiness manually.
func (a Actor) CanOverride() bool {
	return a.Role == RoleManager || a.Role == RoleTenantAdmin
}
