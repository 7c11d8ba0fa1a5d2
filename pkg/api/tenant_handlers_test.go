package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/pkg/tenants"
	"github.com/keygate/keygate/pkg/users"
)

func TestTenantLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.signupAndLogin(t, "admin@example.com", true)

	w := env.do(t, "POST", "/tenants", admin, CreateTenantRequest{Name: "acme"})
	require.Equal(t, http.StatusCreated, w.Code)

	var tenant tenants.Tenant
	decodeBody(t, w, &tenant)
	require.NotZero(t, tenant.ID)
	assert.Equal(t, "acme", tenant.Name)

	w = env.do(t, "GET", fmt.Sprintf("/tenants/%d", tenant.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", "/tenants", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []*tenants.Tenant
	decodeBody(t, w, &list)
	assert.Len(t, list, 1)

	w = env.do(t, "DELETE", fmt.Sprintf("/tenants/%d", tenant.ID), admin, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "GET", fmt.Sprintf("/tenants/%d", tenant.ID), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateTenantDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.signupAndLogin(t, "admin@example.com", true)

	w := env.do(t, "POST", "/tenants", admin, CreateTenantRequest{Name: "acme"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, "POST", "/tenants", admin, CreateTenantRequest{Name: "acme"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteUnknownTenant(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.signupAndLogin(t, "admin@example.com", true)

	w := env.do(t, "DELETE", "/tenants/404", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUserSelfOnly(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.signupAndLogin(t, "alice@example.com", false)
	bob, _ := env.signupAndLogin(t, "bob@example.com", false)

	w := env.do(t, "GET", fmt.Sprintf("/users/%d", alice.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", fmt.Sprintf("/users/%d", bob.ID), aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminCanReadAnyUser(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.signupAndLogin(t, "admin@example.com", true)
	bob, _ := env.signupAndLogin(t, "bob@example.com", false)

	w := env.do(t, "GET", fmt.Sprintf("/users/%d", bob.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user users.User
	decodeBody(t, w, &user)
	assert.Equal(t, "bob@example.com", user.Email)
}

func TestListUsersAndAdmins(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.signupAndLogin(t, "admin@example.com", true)
	env.signupAndLogin(t, "plain@example.com", false)

	w := env.do(t, "GET", "/users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []*users.User
	decodeBody(t, w, &all)
	assert.Len(t, all, 2)

	w = env.do(t, "GET", "/users/admins", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var admins []*users.User
	decodeBody(t, w, &admins)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin@example.com", admins[0].Email)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.signupAndLogin(t, "admin@example.com", true)
	bob, _ := env.signupAndLogin(t, "bob@example.com", false)

	w := env.do(t, "DELETE", fmt.Sprintf("/users/%d", bob.ID), admin, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "DELETE", fmt.Sprintf("/users/%d", bob.ID), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
