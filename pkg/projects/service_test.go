package projects_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/pkg/apperrors"
	"github.com/keygate/keygate/pkg/projects"
	"github.com/keygate/keygate/pkg/rbac"
	"github.com/keygate/keygate/pkg/storage/memory"
)

func newTestService(t *testing.T) *projects.Service {
	t.Helper()
	members := memory.NewMemberStore()
	store := memory.NewProjectStore(members)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return projects.NewService(store, members, rbac.DefaultCatalog(), logger)
}

func TestCreateProject(t *testing.T) {
	svc := newTestService(t)

	project, err := svc.CreateProject(context.Background(), "atlas", "mapping service", 7, 1)
	require.NoError(t, err)
	assert.NotZero(t, project.ID)
	assert.Equal(t, "atlas", project.Name)
}

func TestCreateProjectDuplicateName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, "atlas", "", 7, 1)
	require.NoError(t, err)

	// Name uniqueness is system wide, not per tenant
	_, err = svc.CreateProject(ctx, "atlas", "", 8, 2)
	assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))
}

func TestGetProjectNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetProject(context.Background(), 404)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestUpdateProjectPartial(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProject(ctx, "atlas", "old", 7, 1)
	require.NoError(t, err)

	desc := "new"
	updated, err := svc.UpdateProject(ctx, created.ID, nil, &desc)
	require.NoError(t, err)
	assert.Equal(t, "atlas", updated.Name)
	assert.Equal(t, "new", updated.Description)
}

func TestInviteUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "atlas", "", 7, 1)
	require.NoError(t, err)

	member, err := svc.InviteUser(ctx, project.ID, 9, rbac.RoleEditor, 7)
	require.NoError(t, err)
	assert.NotZero(t, member.ID)
	assert.Equal(t, rbac.RoleEditor, member.Role)

	members, err := svc.ListMembers(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestInviteUserTwice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "atlas", "", 7, 1)
	require.NoError(t, err)

	_, err = svc.InviteUser(ctx, project.ID, 9, rbac.RoleEditor, 7)
	require.NoError(t, err)

	_, err = svc.InviteUser(ctx, project.ID, 9, rbac.RoleViewer, 7)
	assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))
}

func TestInviteUserInvalidRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "atlas", "", 7, 1)
	require.NoError(t, err)

	_, err = svc.InviteUser(ctx, project.ID, 9, rbac.Role("ROOT"), 7)
	assert.Equal(t, apperrors.KindInvalidRole, apperrors.KindOf(err))
}

func TestInviteUserProjectNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.InviteUser(context.Background(), 404, 9, rbac.RoleViewer, 7)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestChangeMemberRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "atlas", "", 7, 1)
	require.NoError(t, err)
	member, err := svc.InviteUser(ctx, project.ID, 9, rbac.RoleViewer, 7)
	require.NoError(t, err)

	changed, err := svc.ChangeMemberRole(ctx, member.ID, rbac.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleEditor, changed.Role)

	_, err = svc.ChangeMemberRole(ctx, member.ID, rbac.Role("ROOT"))
	assert.Equal(t, apperrors.KindInvalidRole, apperrors.KindOf(err))

	_, err = svc.ChangeMemberRole(ctx, 404, rbac.RoleEditor)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestRemoveMember(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "atlas", "", 7, 1)
	require.NoError(t, err)
	member, err := svc.InviteUser(ctx, project.ID, 9, rbac.RoleViewer, 7)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMember(ctx, member.ID))

	members, err := svc.ListMembers(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	err = svc.RemoveMember(ctx, member.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestDeleteProjectCascades(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "atlas", "", 7, 1)
	require.NoError(t, err)
	member, err := svc.InviteUser(ctx, project.ID, 9, rbac.RoleViewer, 7)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProject(ctx, project.ID))

	_, err = svc.GetProject(ctx, project.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	memberships, err := svc.ListUserMemberships(ctx, member.UserID)
	require.NoError(t, err)
	assert.Empty(t, memberships)
}

func TestListQueries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p1, err := svc.CreateProject(ctx, "atlas", "", 7, 1)
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, "borealis", "", 7, 1)
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, "cascade", "", 8, 2)
	require.NoError(t, err)

	byTenant, err := svc.ListByTenant(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, byTenant, 2)

	byOwner, err := svc.ListByOwner(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, byOwner, 1)

	_, err = svc.InviteUser(ctx, p1.ID, 9, rbac.RoleViewer, 7)
	require.NoError(t, err)

	byUser, err := svc.ListByUser(ctx, 9)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, p1.ID, byUser[0].ID)
}
