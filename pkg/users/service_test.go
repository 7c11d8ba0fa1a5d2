package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/pkg/apperrors"
	"github.com/keygate/keygate/pkg/auth"
	"github.com/keygate/keygate/pkg/storage/memory"
	"github.com/keygate/keygate/pkg/users"
)

func newTestService(t *testing.T) (*users.Service, *memory.UserStore) {
	t.Helper()
	store := memory.NewUserStore()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return users.NewService(store, auth.NewPasswordHasherWithCost(4), logger), store
}

func createTestUser(t *testing.T, svc *users.Service) *users.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), "test@example.com", "Test User", "password123", 1, false)
	require.NoError(t, err)
	return user
}

func TestCreateUser(t *testing.T) {
	svc, _ := newTestService(t)

	user := createTestUser(t, svc)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "test@example.com", user.Email)
	assert.False(t, user.EmailVerified)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	createTestUser(t, svc)

	_, err := svc.CreateUser(context.Background(), "test@example.com", "Other", "password456", 2, true)
	assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))
}

func TestGetUserNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetUser(context.Background(), 404)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	created := createTestUser(t, svc)

	user, err := svc.Authenticate(context.Background(), "test@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Authenticate(context.Background(), "test@example.com", "wrong")
	assert.Equal(t, apperrors.KindInvalidPassword, apperrors.KindOf(err))

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "password123")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestVerifyEmailFlow(t *testing.T) {
	svc, store := newTestService(t)
	created := createTestUser(t, svc)
	ctx := context.Background()

	code, err := svc.GenerateEmailCode(ctx, created.ID, 30*time.Minute)
	require.NoError(t, err)
	assert.Len(t, code, 16)

	// Code is persisted before verification
	stored, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, code, stored.EmailCode)

	user, err := svc.VerifyEmail(ctx, created.ID, code)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
	assert.Empty(t, user.EmailCode)

	// The code is single use
	_, err = svc.VerifyEmail(ctx, created.ID, code)
	assert.Equal(t, apperrors.KindCodeNotGenerated, apperrors.KindOf(err))
}

func TestVerifyEmailExpiredCodePersistsClearedSlot(t *testing.T) {
	svc, store := newTestService(t)
	created := createTestUser(t, svc)
	ctx := context.Background()

	code, err := svc.GenerateEmailCode(ctx, created.ID, 30*time.Minute)
	require.NoError(t, err)

	// Force the persisted slot to be expired
	stored, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	expired := time.Now().Add(-time.Hour)
	stored.EmailCodeExpiresAt = &expired
	_, err = store.Save(ctx, stored)
	require.NoError(t, err)

	_, err = svc.VerifyEmail(ctx, created.ID, code)
	assert.Equal(t, apperrors.KindCodeExpired, apperrors.KindOf(err))

	// The cleared slot was written back: resubmission is CodeNotGenerated
	_, err = svc.VerifyEmail(ctx, created.ID, code)
	assert.Equal(t, apperrors.KindCodeNotGenerated, apperrors.KindOf(err))
}

func TestRequestPasswordResetIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	createTestUser(t, svc)
	ctx := context.Background()

	first, err := svc.RequestPasswordReset(ctx, "test@example.com", 30*time.Minute)
	require.NoError(t, err)

	// Repeated requests within the validity window return the same code
	second, err := svc.RequestPasswordReset(ctx, "test@example.com", 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRequestPasswordResetExpiredPendingCode(t *testing.T) {
	svc, store := newTestService(t)
	created := createTestUser(t, svc)
	ctx := context.Background()

	_, err := svc.RequestPasswordReset(ctx, "test@example.com", 30*time.Minute)
	require.NoError(t, err)

	stored, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	expired := time.Now().Add(-time.Hour)
	stored.EmailCodeExpiresAt = &expired
	_, err = store.Save(ctx, stored)
	require.NoError(t, err)

	_, err = svc.RequestPasswordReset(ctx, "test@example.com", 30*time.Minute)
	assert.Equal(t, apperrors.KindCodeExpired, apperrors.KindOf(err))
}

func TestResetPasswordFlow(t *testing.T) {
	svc, _ := newTestService(t)
	createTestUser(t, svc)
	ctx := context.Background()

	code, err := svc.RequestPasswordReset(ctx, "test@example.com", 30*time.Minute)
	require.NoError(t, err)

	_, err = svc.ResetPassword(ctx, "test@example.com", code, "brand_new_pw")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "test@example.com", "brand_new_pw")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "test@example.com", "password123")
	assert.Equal(t, apperrors.KindInvalidPassword, apperrors.KindOf(err))
}

func TestResetPasswordWrongCodeAllowsRetry(t *testing.T) {
	svc, _ := newTestService(t)
	createTestUser(t, svc)
	ctx := context.Background()

	code, err := svc.RequestPasswordReset(ctx, "test@example.com", 30*time.Minute)
	require.NoError(t, err)

	_, err = svc.ResetPassword(ctx, "test@example.com", "0000000000000000", "brand_new_pw")
	assert.Equal(t, apperrors.KindCodeMismatch, apperrors.KindOf(err))

	// Mismatch leaves the slot pending
	_, err = svc.ResetPassword(ctx, "test@example.com", code, "brand_new_pw")
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	created := createTestUser(t, svc)
	ctx := context.Background()

	_, err := svc.ChangePassword(ctx, created.ID, "password123", "replacement_pw")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "test@example.com", "replacement_pw")
	require.NoError(t, err)
}

func TestDeleteUser(t *testing.T) {
	svc, _ := newTestService(t)
	created := createTestUser(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.DeleteUser(ctx, created.ID))

	err := svc.DeleteUser(ctx, created.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestListQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "a@example.com", "A", "password123", 1, true)
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, "b@example.com", "B", "password123", 1, false)
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, "c@example.com", "C", "password123", 2, false)
	require.NoError(t, err)

	all, err := svc.ListUsers(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tenant1, err := svc.ListByTenant(ctx, 1, 0, 10)
	require.NoError(t, err)
	assert.Len(t, tenant1, 2)

	admins, err := svc.ListAdmins(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "a@example.com", admins[0].Email)
}
