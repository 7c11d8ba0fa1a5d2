package rbac

import (
	"sort"

	"github.com/keygate/keygate/pkg/apperrors"
)

// Role represents a project-level role name.
type Role string

const (
	RoleAdmin        Role = "ADMIN"         // Full access, including user removal
	RoleProjectOwner Role = "PROJECT_OWNER" // Full access to owned projects
	RoleEditor       Role = "EDITOR"        // Can update and view projects
	RoleViewer       Role = "VIEWER"        // Read-only access
)

// Action represents an operation a role may be permitted to perform.
type Action string

const (
	ActionCreateProject Action = "CREATE_PROJECT"
	ActionUpdateProject Action = "UPDATE_PROJECT"
	ActionDeleteProject Action = "DELETE_PROJECT"
	ActionViewProject   Action = "VIEW_PROJECT"
	ActionInviteUser    Action = "INVITE_USER"
	ActionDeleteUser    Action = "DELETE_USER"
)

// Catalog is an immutable mapping of roles to permitted actions.
// It is constructed once at process start and shared by reference; it is
// never mutated at runtime.
type Catalog struct {
	actions map[Role][]Action
}

// DefaultCatalog returns the built-in role catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		actions: map[Role][]Action{
			RoleAdmin: {
				ActionCreateProject,
				ActionUpdateProject,
				ActionDeleteProject,
				ActionViewProject,
				ActionInviteUser,
				ActionDeleteUser,
			},
			RoleProjectOwner: {
				ActionCreateProject,
				ActionUpdateProject,
				ActionDeleteProject,
				ActionViewProject,
				ActionInviteUser,
			},
			RoleEditor: {
				ActionUpdateProject,
				ActionViewProject,
			},
			RoleViewer: {
				ActionViewProject,
			},
		},
	}
}

// Validate reports whether role is defined in the catalog.
func (c *Catalog) Validate(role Role) bool {
	_, ok := c.actions[role]
	return ok
}

// Require returns an InvalidRole domain error when role is not defined.
func (c *Catalog) Require(role Role) error {
	if !c.Validate(role) {
		return apperrors.New(apperrors.KindInvalidRole, "invalid role: %s (must be one of %v)", role, c.Roles())
	}
	return nil
}

// Allows reports whether role is permitted to perform action.
func (c *Catalog) Allows(role Role, action Action) bool {
	for _, a := range c.actions[role] {
		if a == action {
			return true
		}
	}
	return false
}

// Actions returns a copy of the actions permitted to role.
func (c *Catalog) Actions(role Role) []Action {
	src := c.actions[role]
	out := make([]Action, len(src))
	copy(out, src)
	return out
}

// Roles returns all defined role names in stable order.
func (c *Catalog) Roles() []Role {
	roles := make([]Role, 0, len(c.actions))
	for r := range c.actions {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
