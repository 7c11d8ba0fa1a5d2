package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/pkg/apperrors"
	"github.com/keygate/keygate/pkg/projects"
	"github.com/keygate/keygate/pkg/rbac"
)

func TestProjectStoreSaveInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs("atlas", "mapping service", int64(7), int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	store := NewProjectStore(db)
	saved, err := store.Save(context.Background(), projects.NewProject("atlas", "mapping service", 7, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), saved.ID)
}

func TestProjectStoreSaveDuplicateName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO projects`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "projects_name_key"})

	store := NewProjectStore(db)
	_, err = store.Save(context.Background(), projects.NewProject("atlas", "", 7, 1))
	assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))
}

func TestProjectStoreGetByUserID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM projects p\s+JOIN project_members pm`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "owner_id", "tenant_id", "created_at", "updated_at"}).
			AddRow(int64(3), "atlas", "", int64(7), int64(1), now, now))

	store := NewProjectStore(db)
	got, err := store.GetByUserID(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "atlas", got[0].Name)
}

func TestMemberStoreSaveDuplicateMembership(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO project_members`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "project_members_project_id_user_id_key"})

	store := NewMemberStore(db)
	_, err = store.Save(context.Background(), projects.NewProjectMember(3, 9, rbac.RoleViewer, 7))
	assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))
}

func TestMemberStoreGetByProjectID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM project_members WHERE project_id`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "user_id", "role", "invited_by", "created_at", "updated_at"}).
			AddRow(int64(1), int64(3), int64(9), "EDITOR", int64(7), now, now).
			AddRow(int64(2), int64(3), int64(10), "VIEWER", int64(7), now, now))

	store := NewMemberStore(db)
	got, err := store.GetByProjectID(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rbac.RoleEditor, got[0].Role)
	assert.Equal(t, rbac.RoleViewer, got[1].Role)
}
