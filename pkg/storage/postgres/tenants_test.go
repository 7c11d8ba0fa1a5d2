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
	"github.com/keygate/keygate/pkg/tenants"
)

func TestTenantStoreSaveInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO tenants`).
		WithArgs("acme", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	store := NewTenantStore(db)
	saved, err := store.Save(context.Background(), tenants.NewTenant("acme"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), saved.ID)
}

func TestTenantStoreSaveDuplicateName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO tenants`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "tenants_name_key"})

	store := NewTenantStore(db)
	_, err = store.Save(context.Background(), tenants.NewTenant("acme"))
	assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))
}

func TestTenantStoreGetByName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM tenants WHERE name`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow(int64(7), "acme", now, now))

	store := NewTenantStore(db)
	got, err := store.GetByName(context.Background(), "acme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)

	mock.ExpectQuery(`SELECT (.+) FROM tenants WHERE name`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	missing, err := store.GetByName(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTenantStoreDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM tenants WHERE id`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewTenantStore(db)
	deleted, err := store.Delete(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, deleted)
}
