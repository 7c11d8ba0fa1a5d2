package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/keygate/keygate/pkg/projects"
	"github.com/keygate/keygate/pkg/rbac"
)

// ProjectStore implements projects.Store on PostgreSQL. Deleting a project
// cascades to its members through the foreign key constraint.
type ProjectStore struct {
	db *sql.DB
}

// NewProjectStore creates a project store over an open connection pool.
func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

const projectColumns = `id, name, description, owner_id, tenant_id, created_at, updated_at`

func scanProject(row interface{ Scan(...interface{}) error }) (*projects.Project, error) {
	var p projects.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.TenantID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Save inserts the project when ID is zero, otherwise updates the row.
func (s *ProjectStore) Save(ctx context.Context, project *projects.Project) (*projects.Project, error) {
	if project.ID == 0 {
		query := `
			INSERT INTO projects (name, description, owner_id, tenant_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		err := s.db.QueryRowContext(ctx, query,
			project.Name, project.Description, project.OwnerID, project.TenantID,
			project.CreatedAt, project.UpdatedAt,
		).Scan(&project.ID)
		if err != nil {
			return nil, translateUnique(err, "project %q already exists", project.Name)
		}
		return project, nil
	}

	query := `
		UPDATE projects
		SET name = $1, description = $2, owner_id = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := s.db.ExecContext(ctx, query,
		project.Name, project.Description, project.OwnerID, project.UpdatedAt, project.ID,
	)
	if err != nil {
		return nil, translateUnique(err, "project %q already exists", project.Name)
	}
	return project, nil
}

// GetByID returns the project or (nil, nil) when absent.
func (s *ProjectStore) GetByID(ctx context.Context, id int64) (*projects.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1`, projectColumns)

	project, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// GetByName returns the project with the given name or (nil, nil).
func (s *ProjectStore) GetByName(ctx context.Context, name string) (*projects.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE name = $1`, projectColumns)

	project, err := scanProject(s.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get project by name: %w", err)
	}
	return project, nil
}

// GetByTenantID returns the tenant's projects ordered by id.
func (s *ProjectStore) GetByTenantID(ctx context.Context, tenantID int64) ([]*projects.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE tenant_id = $1 ORDER BY id`, projectColumns)
	return s.queryProjects(ctx, query, tenantID)
}

// GetByOwnerID returns the owner's projects ordered by id.
func (s *ProjectStore) GetByOwnerID(ctx context.Context, ownerID int64) ([]*projects.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE owner_id = $1 ORDER BY id`, projectColumns)
	return s.queryProjects(ctx, query, ownerID)
}

// GetByUserID returns projects the user is a member of, ordered by id.
func (s *ProjectStore) GetByUserID(ctx context.Context, userID int64) ([]*projects.Project, error) {
	query := `
		SELECT p.id, p.name, p.description, p.owner_id, p.tenant_id, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members pm ON pm.project_id = p.id
		WHERE pm.user_id = $1
		ORDER BY p.id
	`
	return s.queryProjects(ctx, query, userID)
}

// Exists reports whether the project is present.
func (s *ProjectStore) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check project: %w", err)
	}
	return exists, nil
}

// Delete removes a project; members go with it via ON DELETE CASCADE.
func (s *ProjectStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *ProjectStore) queryProjects(ctx context.Context, query string, args ...interface{}) ([]*projects.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []*projects.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MemberStore implements projects.MemberStore on PostgreSQL.
type MemberStore struct {
	db *sql.DB
}

// NewMemberStore creates a member store over an open connection pool.
func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberColumns = `id, project_id, user_id, role, invited_by, created_at, updated_at`

func scanMember(row interface{ Scan(...interface{}) error }) (*projects.ProjectMember, error) {
	var m projects.ProjectMember
	err := row.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.InvitedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Save inserts the member when ID is zero, otherwise updates the row. A
// duplicate (project, user) pair surfaces as AlreadyExists.
func (s *MemberStore) Save(ctx context.Context, member *projects.ProjectMember) (*projects.ProjectMember, error) {
	if member.ID == 0 {
		query := `
			INSERT INTO project_members (project_id, user_id, role, invited_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		err := s.db.QueryRowContext(ctx, query,
			member.ProjectID, member.UserID, member.Role, member.InvitedBy,
			member.CreatedAt, member.UpdatedAt,
		).Scan(&member.ID)
		if err != nil {
			return nil, translateUnique(err, "user %d is already a member of project %d", member.UserID, member.ProjectID)
		}
		return member, nil
	}

	query := `UPDATE project_members SET role = $1, updated_at = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, query, member.Role, member.UpdatedAt, member.ID); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	return member, nil
}

// GetByID returns the member or (nil, nil) when absent.
func (s *MemberStore) GetByID(ctx context.Context, id int64) (*projects.ProjectMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM project_members WHERE id = $1`, memberColumns)

	member, err := scanMember(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// GetByProjectID returns the project's members in invitation order.
func (s *MemberStore) GetByProjectID(ctx context.Context, projectID int64) ([]*projects.ProjectMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM project_members WHERE project_id = $1 ORDER BY created_at, id`, memberColumns)
	return s.queryMembers(ctx, query, projectID)
}

// GetByUserID returns the user's memberships across all projects.
func (s *MemberStore) GetByUserID(ctx context.Context, userID int64) ([]*projects.ProjectMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM project_members WHERE user_id = $1 ORDER BY id`, memberColumns)
	return s.queryMembers(ctx, query, userID)
}

// GetByRole returns all members holding the given role.
func (s *MemberStore) GetByRole(ctx context.Context, role rbac.Role) ([]*projects.ProjectMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM project_members WHERE role = $1 ORDER BY id`, memberColumns)
	return s.queryMembers(ctx, query, string(role))
}

// Delete removes a member, reporting whether a row was deleted.
func (s *MemberStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM project_members WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MemberStore) queryMembers(ctx context.Context, query string, args ...interface{}) ([]*projects.ProjectMember, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var out []*projects.ProjectMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
