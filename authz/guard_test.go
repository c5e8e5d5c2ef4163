// authz/guard_test.go
package authz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/accesskit/gatekeeper/api/audit"
	"github.com/accesskit/gatekeeper/api/authz"
	gk_errors "github.com/accesskit/gatekeeper/api/errors"
	"github.com/accesskit/gatekeeper/api/model"
	"github.com/accesskit/gatekeeper/api/test/mock"
)

var testMeta = authz.RequestMeta{
	Method:    "GET",
	Path:      "/api/v1/documents/:id",
	IP:        "10.0.0.1",
	UserAgent: "test-client",
}

func newGuard(store authz.Store, auditService audit.Service) *authz.Guard {
	return authz.NewGuard(newResolver(store), auditService, "super_admin")
}

func TestAuthorizePublicRouteSkipsEverything(t *testing.T) {
	auditService := new(mock.MockAuditService)
	g := newGuard(new(mock.MockStore), auditService)

	err := g.Authorize(context.Background(), nil, authz.RouteConfig{Public: true}, testMeta)
	assert.NoError(t, err)
	auditService.AssertNotCalled(t, "Record", tmock.Anything, tmock.Anything)
}

func TestAuthorizeNilPrincipal(t *testing.T) {
	g := newGuard(new(mock.MockStore), new(mock.MockAuditService))

	cfg := authz.RouteConfig{RequiredRoles: []string{"editor"}}
	err := g.Authorize(context.Background(), nil, cfg, testMeta)
	assert.ErrorIs(t, err, gk_errors.ErrUnauthenticated)

	err = g.Authorize(context.Background(), &model.Principal{}, cfg, testMeta)
	assert.ErrorIs(t, err, gk_errors.ErrUnauthenticated)
}

func TestAuthorizeAdminBypassIsAudited(t *testing.T) {
	store := new(mock.MockStore)
	auditService := new(mock.MockAuditService)
	auditService.On("Record", tmock.Anything, tmock.Anything).Return()

	g := newGuard(store, auditService)
	admin := &model.Principal{ID: "root", RoleType: "super_admin"}

	err := g.Authorize(context.Background(), admin, authz.RouteConfig{
		RequiredRoles: []string{"editor"},
	}, testMeta)
	require.NoError(t, err)

	// The bypass itself never consults the resolver.
	store.AssertNotCalled(t, "RoleAssignments", tmock.Anything, tmock.Anything)

	auditService.AssertNumberOfCalls(t, "Record", 1)
	entry := auditService.Calls[0].Arguments.Get(1).(audit.Entry)
	assert.Equal(t, audit.KindAdminBypass, entry.Kind)
	assert.Equal(t, "root", entry.ActorID)
	assert.True(t, entry.Success)
}

func TestAuthorizeNoRequirementsAllows(t *testing.T) {
	auditService := new(mock.MockAuditService)
	g := newGuard(new(mock.MockStore), auditService)

	err := g.Authorize(context.Background(), &model.Principal{ID: "u1"}, authz.RouteConfig{}, testMeta)
	assert.NoError(t, err)
	auditService.AssertNotCalled(t, "Record", tmock.Anything, tmock.Anything)
}

func TestAuthorizeRolePathSufficient(t *testing.T) {
	editor := model.Role{ID: "r1", Name: "editor", Active: true}
	store := new(mock.MockStore)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{
		roleAssignment("u1", editor),
	}, nil)

	auditService := new(mock.MockAuditService)
	auditService.On("Record", tmock.Anything, tmock.Anything).Return()

	g := newGuard(store, auditService)

	// Role check passes; the (unsatisfiable) permission check is never
	// consulted.
	err := g.Authorize(context.Background(), &model.Principal{ID: "u1"}, authz.RouteConfig{
		RequiredRoles: []string{"editor"},
		RequiredPermissions: []authz.PermissionCheck{
			{Resource: "document", Action: "purge", Scope: authz.ScopeAll},
		},
	}, testMeta)
	require.NoError(t, err)

	store.AssertNotCalled(t, "UserPermissions", tmock.Anything, tmock.Anything)

	entry := auditService.Calls[0].Arguments.Get(1).(audit.Entry)
	assert.Equal(t, audit.KindAccessGranted, entry.Kind)
	assert.Equal(t, "role", entry.Metadata["check"])
}

func TestAuthorizePermissionPathRequiresAll(t *testing.T) {
	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{
		directGrant("u1", permission("document", "read", authz.ScopeAll), model.EffectAllow),
	}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{}, nil)

	auditService := new(mock.MockAuditService)
	auditService.On("Record", tmock.Anything, tmock.Anything).Return()

	g := newGuard(store, auditService)

	// Holds read but not delete: the permission path is an AND.
	err := g.Authorize(context.Background(), &model.Principal{ID: "u1"}, authz.RouteConfig{
		RequiredPermissions: []authz.PermissionCheck{
			{Resource: "document", Action: "read", Scope: authz.ScopeOwn},
			{Resource: "document", Action: "delete", Scope: authz.ScopeOwn},
		},
	}, testMeta)
	assert.ErrorIs(t, err, gk_errors.ErrForbidden)

	entry := auditService.Calls[0].Arguments.Get(1).(audit.Entry)
	assert.Equal(t, audit.KindAccessDenied, entry.Kind)
	assert.False(t, entry.Success)
	assert.Equal(t, audit.SeverityWarning, entry.Severity)
	assert.Equal(t, "document", entry.ResourceType)
}

func TestAuthorizeDenialAuditedWithReason(t *testing.T) {
	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{}, nil)

	auditService := new(mock.MockAuditService)
	auditService.On("Record", tmock.Anything, tmock.Anything).Return()

	g := newGuard(store, auditService)

	err := g.Authorize(context.Background(), &model.Principal{ID: "u1"}, authz.RouteConfig{
		RequiredRoles: []string{"editor"},
		RequiredPermissions: []authz.PermissionCheck{
			{Resource: "document", Action: "read", Scope: authz.ScopeOwn},
		},
	}, testMeta)
	assert.ErrorIs(t, err, gk_errors.ErrForbidden)

	auditService.AssertNumberOfCalls(t, "Record", 1)
	entry := auditService.Calls[0].Arguments.Get(1).(audit.Entry)
	assert.Equal(t, "required roles and permissions not held", entry.Error)
	assert.Equal(t, testMeta.IP, entry.IP)
	assert.Equal(t, testMeta.UserAgent, entry.UserAgent)
}

func TestAuthorizeResolverErrorFailsClosed(t *testing.T) {
	store := new(mock.MockStore)
	store.On("RoleAssignments", tmock.Anything, "u1").Return(nil, errors.New("connection refused"))

	auditService := new(mock.MockAuditService)
	g := newGuard(store, auditService)

	err := g.Authorize(context.Background(), &model.Principal{ID: "u1"}, authz.RouteConfig{
		RequiredRoles: []string{"editor"},
	}, testMeta)
	require.Error(t, err)
	assert.NotErrorIs(t, err, gk_errors.ErrForbidden)
	auditService.AssertNotCalled(t, "Record", tmock.Anything, tmock.Anything)
}
