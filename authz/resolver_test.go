// authz/resolver_test.go
package authz_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/accesskit/gatekeeper/api/authz"
	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
	"github.com/accesskit/gatekeeper/api/test/mock"
)

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	m.Run()
}

func permission(resource, action, scope string) model.Permission {
	return model.Permission{
		ID:       resource + ":" + action + ":" + scope,
		Name:     resource + "." + action,
		Resource: resource,
		Action:   action,
		Scope:    scope,
		Active:   true,
	}
}

func directGrant(userID string, p model.Permission, effect model.Effect) model.UserPermission {
	return model.UserPermission{UserID: userID, Permission: p, Effect: effect}
}

func roleAssignment(userID string, role model.Role) model.UserRole {
	return model.UserRole{UserID: userID, Role: role, Effect: model.EffectAllow}
}

func newResolver(store authz.Store) *authz.Resolver {
	return authz.NewResolver(store, nil, 0, 0)
}

func TestHasPermissionDirectAllow(t *testing.T) {
	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{
		directGrant("u1", permission("document", "read", authz.ScopeTeam), model.EffectAllow),
	}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{}, nil)

	r := newResolver(store)

	ok, err := r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeOwn)
	require.NoError(t, err)
	assert.True(t, ok, "team grant must satisfy an own-scope request")

	ok, err = r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeAll)
	require.NoError(t, err)
	assert.False(t, ok, "team grant must not satisfy an all-scope request")
}

func TestHasPermissionDenyBeatsAllow(t *testing.T) {
	p := permission("document", "read", authz.ScopeAll)
	deny := permission("document", "read", "")

	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{
		directGrant("u1", p, model.EffectAllow),
		directGrant("u1", deny, model.EffectDeny),
	}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{}, nil)

	r := newResolver(store)

	ok, err := r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeOwn)
	require.NoError(t, err)
	assert.False(t, ok, "a blanket deny must override any allow")
}

func TestHasPermissionScopedDenyMatchesExactScopeOnly(t *testing.T) {
	allow := permission("document", "read", authz.ScopeAll)
	deny := permission("document", "read", authz.ScopeTeam)

	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{
		directGrant("u1", allow, model.EffectAllow),
		directGrant("u1", deny, model.EffectDeny),
	}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{}, nil)

	r := newResolver(store)

	// The deny binds only at its own scope.
	ok, err := r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeTeam)
	require.NoError(t, err)
	assert.False(t, ok)

	// A request at a different scope still resolves through the allow.
	ok, err = r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeOwn)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasPermissionRoleDenyBeatsDirectAllow(t *testing.T) {
	editor := model.Role{ID: "r1", Name: "editor", Active: true}

	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{
		directGrant("u1", permission("document", "delete", authz.ScopeAll), model.EffectAllow),
	}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{
		roleAssignment("u1", editor),
	}, nil)
	store.On("RolePermissions", tmock.Anything, "r1").Return([]model.RolePermission{
		{RoleID: "r1", Permission: permission("document", "delete", ""), Effect: model.EffectDeny},
	}, nil)

	r := newResolver(store)

	ok, err := r.HasPermission(context.Background(), "u1", "document", "delete", authz.ScopeOwn)
	require.NoError(t, err)
	assert.False(t, ok, "role deny must override a direct allow")
}

func TestHasPermissionRoleAllow(t *testing.T) {
	viewer := model.Role{ID: "r2", Name: "viewer", Active: true}

	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{
		roleAssignment("u1", viewer),
	}, nil)
	store.On("RolePermissions", tmock.Anything, "r2").Return([]model.RolePermission{
		{RoleID: "r2", Permission: permission("document", "read", authz.ScopeOrganization), Effect: model.EffectAllow},
	}, nil)

	r := newResolver(store)

	ok, err := r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeTeam)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasPermissionBlanketDenyBeatsRoleAllow(t *testing.T) {
	deny := permission("order", "delete", "")
	ops := model.Role{ID: "r4", Name: "ops", Active: true}

	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{
		directGrant("u1", deny, model.EffectDeny),
	}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{
		roleAssignment("u1", ops),
	}, nil)
	store.On("RolePermissions", tmock.Anything, "r4").Return([]model.RolePermission{
		{RoleID: "r4", Permission: permission("order", "delete", authz.ScopeAll), Effect: model.EffectAllow},
	}, nil)

	r := newResolver(store)

	ok, err := r.HasPermission(context.Background(), "u1", "order", "delete", authz.ScopeOwn)
	require.NoError(t, err)
	assert.False(t, ok, "an unscoped direct deny must mask a role allow at any requested scope")
}

func TestHasPermissionDeactivatedPermissionNeverGrants(t *testing.T) {
	dead := permission("document", "read", authz.ScopeAll)
	dead.Active = false

	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{
		directGrant("u1", dead, model.EffectAllow),
	}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{}, nil)

	r := newResolver(store)

	ok, err := r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeOwn)
	require.NoError(t, err)
	assert.False(t, ok, "a deactivated permission grants nothing regardless of scope")
}

func TestHasPermissionExpiredGrantIgnored(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	grant := directGrant("u1", permission("document", "read", authz.ScopeAll), model.EffectAllow)
	grant.ExpiresAt = &past

	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{grant}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{}, nil)

	r := authz.NewResolver(store, nil, 0, 0, authz.WithClock(func() time.Time { return now }))

	ok, err := r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeOwn)
	require.NoError(t, err)
	assert.False(t, ok, "expired grants contribute nothing")
}

func TestHasPermissionExpiredDenyStopsMasking(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	deny := directGrant("u1", permission("document", "read", ""), model.EffectDeny)
	deny.ExpiresAt = &past
	allow := directGrant("u1", permission("document", "read", authz.ScopeAll), model.EffectAllow)

	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{deny, allow}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{}, nil)

	r := authz.NewResolver(store, nil, 0, 0, authz.WithClock(func() time.Time { return now }))

	ok, err := r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeOwn)
	require.NoError(t, err)
	assert.True(t, ok, "an expired deny no longer masks the allow")
}

func TestHasPermissionInactiveRoleIgnored(t *testing.T) {
	retired := model.Role{ID: "r3", Name: "retired", Active: false}

	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{
		roleAssignment("u1", retired),
	}, nil)

	r := newResolver(store)

	ok, err := r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeOwn)
	require.NoError(t, err)
	assert.False(t, ok)
	store.AssertNotCalled(t, "RolePermissions", tmock.Anything, "r3")
}

func TestHasPermissionStoreErrorPropagates(t *testing.T) {
	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return(nil, errors.New("connection refused"))

	r := newResolver(store)

	ok, err := r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeOwn)
	assert.Error(t, err, "persistence failure must surface, not resolve to deny")
	assert.False(t, ok)
}

func TestHasAllPermissionsShortCircuits(t *testing.T) {
	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{}, nil)

	r := newResolver(store)

	ok, err := r.HasAllPermissions(context.Background(), "u1", []authz.PermissionCheck{
		{Resource: "document", Action: "read", Scope: authz.ScopeOwn},
		{Resource: "document", Action: "delete", Scope: authz.ScopeOwn},
	})
	require.NoError(t, err)
	assert.False(t, ok)

	// Only the first check should have hit the store.
	store.AssertNumberOfCalls(t, "UserPermissions", 1)
}

func TestHasAnyRole(t *testing.T) {
	editor := model.Role{ID: "r1", Name: "editor", Active: true}

	store := new(mock.MockStore)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{
		roleAssignment("u1", editor),
	}, nil)

	r := newResolver(store)

	ok, err := r.HasAnyRole(context.Background(), "u1", []string{"admin", "editor"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.HasAnyRole(context.Background(), "u1", []string{"admin"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.HasAnyRole(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecisionCacheInvalidation(t *testing.T) {
	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{
		directGrant("u1", permission("document", "read", authz.ScopeAll), model.EffectAllow),
	}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{}, nil)

	r := authz.NewResolver(store, nil, 16, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeOwn)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	// Decision cache absorbs the repeats.
	store.AssertNumberOfCalls(t, "UserPermissions", 1)

	r.InvalidateUser("u1")

	_, err := r.HasPermission(context.Background(), "u1", "document", "read", authz.ScopeOwn)
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "UserPermissions", 2)
}

func TestEffectivePermissionsFiltersDeadGrants(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	live := directGrant("u1", permission("document", "read", authz.ScopeOwn), model.EffectAllow)
	expired := directGrant("u1", permission("document", "delete", authz.ScopeOwn), model.EffectAllow)
	expired.ExpiresAt = &past
	inactive := directGrant("u1", model.Permission{Resource: "report", Action: "read", Active: false}, model.EffectAllow)

	viewer := model.Role{ID: "r2", Name: "viewer", Active: true}

	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{live, expired, inactive}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{
		roleAssignment("u1", viewer),
	}, nil)
	store.On("RolePermissions", tmock.Anything, "r2").Return([]model.RolePermission{
		{RoleID: "r2", Permission: permission("report", "read", authz.ScopeTeam), Effect: model.EffectAllow},
	}, nil)

	r := authz.NewResolver(store, nil, 0, 0, authz.WithClock(func() time.Time { return now }))

	direct, derived, err := r.EffectivePermissions(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, direct, 1)
	assert.Equal(t, "document", direct[0].Permission.Resource)
	require.Len(t, derived, 1)
	assert.Equal(t, "report", derived[0].Permission.Resource)
}
