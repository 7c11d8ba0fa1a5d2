package tenants_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/pkg/apperrors"
	"github.com/keygate/keygate/pkg/storage/memory"
	"github.com/keygate/keygate/pkg/tenants"
)

func newTestService(t *testing.T) *tenants.Service {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return tenants.NewService(memory.NewTenantStore(nil, nil), logger)
}

func TestCreateTenant(t *testing.T) {
	svc := newTestService(t)

	tenant, err := svc.CreateTenant(context.Background(), "acme")
	require.NoError(t, err)
	assert.NotZero(t, tenant.ID)
	assert.Equal(t, "acme", tenant.Name)
}

func TestCreateTenantDuplicateName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTenant(ctx, "acme")
	require.NoError(t, err)

	_, err = svc.CreateTenant(ctx, "acme")
	assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))
}

func TestGetTenant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTenant(ctx, "acme")
	require.NoError(t, err)

	byID, err := svc.GetTenant(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, byID.Name)

	byName, err := svc.GetTenantByName(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = svc.GetTenant(ctx, 404)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = svc.GetTenantByName(ctx, "ghost")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestDeleteTenant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTenant(ctx, "acme")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTenant(ctx, created.ID))

	err = svc.DeleteTenant(ctx, created.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestListTenants(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"acme", "globex", "initech"} {
		_, err := svc.CreateTenant(ctx, name)
		require.NoError(t, err)
	}

	page, err := svc.ListTenants(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "globex", page[0].Name)
}
