package projects

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/keygate/keygate/pkg/apperrors"
	"github.com/keygate/keygate/pkg/rbac"
)

// Store is the persistence gateway for projects. Lookups return (nil, nil)
// when the project is absent.
type Store interface {
	Save(ctx context.Context, project *Project) (*Project, error)
	GetByID(ctx context.Context, id int64) (*Project, error)
	GetByName(ctx context.Context, name string) (*Project, error)
	GetByTenantID(ctx context.Context, tenantID int64) ([]*Project, error)
	GetByOwnerID(ctx context.Context, ownerID int64) ([]*Project, error)
	GetByUserID(ctx context.Context, userID int64) ([]*Project, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// MemberStore is the persistence gateway for project members.
type MemberStore interface {
	Save(ctx context.Context, member *ProjectMember) (*ProjectMember, error)
	GetByID(ctx context.Context, id int64) (*ProjectMember, error)
	GetByProjectID(ctx context.Context, projectID int64) ([]*ProjectMember, error)
	GetByUserID(ctx context.Context, userID int64) ([]*ProjectMember, error)
	GetByRole(ctx context.Context, role rbac.Role) ([]*ProjectMember, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Service orchestrates project and membership operations.
type Service struct {
	store   Store
	members MemberStore
	catalog *rbac.Catalog
	logger  *logrus.Logger
}

// NewService creates a project service.
func NewService(store Store, members MemberStore, catalog *rbac.Catalog, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{store: store, members: members, catalog: catalog, logger: logger}
}

// CreateProject creates a project with a system-wide unique name. The storage
// layer's unique constraint is the authoritative guard; this lookup is the
// fast error path.
func (s *Service) CreateProject(ctx context.Context, name, description string, ownerID, tenantID int64) (*Project, error) {
	existing, err := s.store.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check project name: %w", err)
	}
	if existing != nil {
		return nil, apperrors.New(apperrors.KindAlreadyExists, "project %q already exists", name)
	}

	saved, err := s.store.Save(ctx, NewProject(name, description, ownerID, tenantID))
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"project_id": saved.ID,
		"tenant_id":  saved.TenantID,
	}).Info("project created")

	return saved, nil
}

// GetProject returns a project by id.
func (s *Service) GetProject(ctx context.Context, id int64) (*Project, error) {
	project, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "project %d not found", id)
	}
	return project, nil
}

// GetProjectByName returns a project by name, or nil if absent.
func (s *Service) GetProjectByName(ctx context.Context, name string) (*Project, error) {
	return s.store.GetByName(ctx, name)
}

// ListByTenant returns projects belonging to a tenant.
func (s *Service) ListByTenant(ctx context.Context, tenantID int64) ([]*Project, error) {
	return s.store.GetByTenantID(ctx, tenantID)
}

// ListByOwner returns projects owned by a user.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]*Project, error) {
	return s.store.GetByOwnerID(ctx, ownerID)
}

// ListByUser returns projects a user is a member of.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*Project, error) {
	return s.store.GetByUserID(ctx, userID)
}

// UpdateProject applies a partial update: only non-nil fields change.
func (s *Service) UpdateProject(ctx context.Context, id int64, name, description *string) (*Project, error) {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	project.Update(name, description)
	return s.store.Save(ctx, project)
}

// DeleteProject hard-deletes a project. The storage layer cascades the
// delete to the project's members as one operation.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	exists, err := s.store.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.New(apperrors.KindNotFound, "project %d not found", id)
	}

	if _, err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.WithField("project_id", id).Info("project deleted")
	return nil
}

// InviteUser adds a user to a project with the given role. A user may appear
// at most once per project; the membership list is checked here because the
// entity cannot see other members' persisted state.
func (s *Service) InviteUser(ctx context.Context, projectID, userID int64, role rbac.Role, invitedBy int64) (*ProjectMember, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	members, err := s.members.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.UserID == userID {
			return nil, apperrors.New(apperrors.KindAlreadyExists, "user %d is already a member of project %d", userID, projectID)
		}
	}

	member, err := project.InviteUser(s.catalog, userID, role, invitedBy)
	if err != nil {
		return nil, err
	}

	saved, err := s.members.Save(ctx, member)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"project_id": projectID,
		"user_id":    userID,
		"role":       role,
	}).Info("user invited to project")

	return saved, nil
}

// ListMembers returns a project's members in invitation order.
func (s *Service) ListMembers(ctx context.Context, projectID int64) ([]*ProjectMember, error) {
	exists, err := s.store.Exists(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.New(apperrors.KindNotFound, "project %d not found", projectID)
	}

	return s.members.GetByProjectID(ctx, projectID)
}

// ListUserMemberships returns all memberships held by a user.
func (s *Service) ListUserMemberships(ctx context.Context, userID int64) ([]*ProjectMember, error) {
	return s.members.GetByUserID(ctx, userID)
}

// ChangeMemberRole changes a member's role after catalog validation.
func (s *Service) ChangeMemberRole(ctx context.Context, memberID int64, newRole rbac.Role) (*ProjectMember, error) {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "project member %d not found", memberID)
	}

	if err := member.ChangeRole(s.catalog, newRole); err != nil {
		return nil, err
	}

	return s.members.Save(ctx, member)
}

// RemoveMember removes a member from its project.
func (s *Service) RemoveMember(ctx context.Context, memberID int64) error {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperrors.New(apperrors.KindNotFound, "project member %d not found", memberID)
	}

	if _, err := s.members.Delete(ctx, memberID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"project_id": member.ProjectID,
		"user_id":    member.UserID,
	}).Info("member removed from project")

	return nil
}
