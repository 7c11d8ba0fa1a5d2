package projects

import (
	"time"

	"github.com/keygate/keygate/pkg/rbac"
)

// Project is an aggregate root owning an ordered list of members.
// Member order is invitation order; it is preserved for display but carries
// no correctness weight.
type Project struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	OwnerID     int64            `json:"owner_id"`
	TenantID    int64            `json:"tenant_id"`
	Members     []*ProjectMember `json:"members,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ProjectMember is owned by its project and references a user by id only.
type ProjectMember struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	UserID    int64     `json:"user_id"`
	Role      rbac.Role `json:"role"`
	InvitedBy int64     `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProject creates a project. Name uniqueness is checked one layer up by
// the service before this factory is called.
func NewProject(name, description string, ownerID, tenantID int64) *Project {
	now := time.Now()
	return &Project{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		TenantID:    tenantID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewProjectMember creates a membership record.
func NewProjectMember(projectID, userID int64, role rbac.Role, invitedBy int64) *ProjectMember {
	now := time.Now()
	return &ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		InvitedBy: invitedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Update applies a partial update: only non-nil fields change.
func (p *Project) Update(name, description *string) {
	if name != nil {
		p.Name = *name
	}
	if description != nil {
		p.Description = *description
	}
	p.UpdatedAt = time.Now()
}

// InviteUser validates the role against the catalog and appends a new member.
// Duplicate-membership detection happens one layer up in the service; this
// method alone does not check for existing membership.
func (p *Project) InviteUser(catalog *rbac.Catalog, userID int64, role rbac.Role, invitedBy int64) (*ProjectMember, error) {
	if err := catalog.Require(role); err != nil {
		return nil, err
	}

	member := NewProjectMember(p.ID, userID, role, invitedBy)
	p.Members = append(p.Members, member)
	p.UpdatedAt = time.Now()
	return member, nil
}

// ChangeRole validates the new role against the catalog before mutating.
func (m *ProjectMember) ChangeRole(catalog *rbac.Catalog, newRole rbac.Role) error {
	if err := catalog.Require(newRole); err != nil {
		return err
	}

	m.Role = newRole
	m.UpdatedAt = time.Now()
	return nil
}
