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
	"github.com/keygate/keygate/pkg/users"
)

func userRows(u *users.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "name", "password_hash", "tenant_id", "is_admin",
		"email_verified", "email_code", "email_code_expires_at", "created_at", "updated_at",
	}).AddRow(
		u.ID, u.Email, u.Name, u.PasswordHash, u.TenantID, u.IsAdmin,
		u.EmailVerified, nil, nil, u.CreatedAt, u.UpdatedAt,
	)
}

func TestUserStoreSaveInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("a@example.com", "A", "hash", int64(1), false, false, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	store := NewUserStore(db)
	now := time.Now()
	saved, err := store.Save(context.Background(), &users.User{
		Email: "a@example.com", Name: "A", PasswordHash: "hash", TenantID: 1,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStoreSaveDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	store := NewUserStore(db)
	_, err = store.Save(context.Background(), &users.User{Email: "a@example.com"})
	assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))
}

func TestUserStoreSaveUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewUserStore(db)
	saved, err := store.Save(context.Background(), &users.User{ID: 42, Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStoreGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	u := &users.User{ID: 42, Email: "a@example.com", Name: "A", PasswordHash: "hash", TenantID: 1, CreatedAt: now, UpdatedAt: now}
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(int64(42)).
		WillReturnRows(userRows(u))

	store := NewUserStore(db)
	got, err := store.GetByID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a@example.com", got.Email)
	assert.Empty(t, got.EmailCode)
	assert.Nil(t, got.EmailCodeExpiresAt)
}

func TestUserStoreGetByIDAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewUserStore(db)
	got, err := store.GetByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserStoreExistsByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	store := NewUserStore(db)
	exists, err := store.ExistsByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserStoreDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM users WHERE id`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users WHERE id`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewUserStore(db)
	deleted, err := store.Delete(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUserStoreClearExpiredCodes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	store := NewUserStore(db)
	n, err := store.ClearExpiredCodes(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
