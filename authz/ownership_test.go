// authz/ownership_test.go
package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/accesskit/gatekeeper/api/authz"
	gk_errors "github.com/accesskit/gatekeeper/api/errors"
	"github.com/accesskit/gatekeeper/api/model"
	"github.com/accesskit/gatekeeper/api/test/mock"
)

func noScopeBypass() *bool {
	v := false
	return &v
}

func newValidator(store authz.Store, fetcher authz.ResourceFetcher) *authz.OwnershipValidator {
	return authz.NewOwnershipValidator(newResolver(store), fetcher, "super_admin")
}

func TestValidateOwnerFieldMatch(t *testing.T) {
	fetcher := new(mock.MockResourceFetcher)
	fetcher.On("FetchResource", tmock.Anything, "document", "d1").Return(map[string]interface{}{
		"id":       "d1",
		"owner_id": "u1",
	}, nil)

	v := newValidator(new(mock.MockStore), fetcher)

	cfg := authz.OwnershipConfig{
		ResourceType:     "document",
		OwnerFields:      []string{"owner_id", "created_by"},
		IDParam:          "id",
		AllowScopeBypass: noScopeBypass(),
	}

	err := v.Validate(context.Background(), &model.Principal{ID: "u1"}, cfg, map[string]string{"id": "d1"}, "GET")
	assert.NoError(t, err)

	err = v.Validate(context.Background(), &model.Principal{ID: "u2"}, cfg, map[string]string{"id": "d1"}, "GET")
	assert.ErrorIs(t, err, gk_errors.ErrForbidden)
}

func TestValidateAnyOwnerFieldSuffices(t *testing.T) {
	fetcher := new(mock.MockResourceFetcher)
	fetcher.On("FetchResource", tmock.Anything, "document", "d1").Return(map[string]interface{}{
		"owner_id":   "someone-else",
		"created_by": "u1",
	}, nil)

	v := newValidator(new(mock.MockStore), fetcher)

	cfg := authz.OwnershipConfig{
		ResourceType:     "document",
		OwnerFields:      []string{"owner_id", "created_by"},
		IDParam:          "id",
		AllowScopeBypass: noScopeBypass(),
	}

	err := v.Validate(context.Background(), &model.Principal{ID: "u1"}, cfg, map[string]string{"id": "d1"}, "GET")
	assert.NoError(t, err)
}

func TestValidateNestedOwnerField(t *testing.T) {
	fetcher := new(mock.MockResourceFetcher)
	fetcher.On("FetchResource", tmock.Anything, "document", "d1").Return(map[string]interface{}{
		"attributes": map[string]interface{}{
			"owner": map[string]interface{}{
				"id": "u1",
			},
		},
	}, nil)

	v := newValidator(new(mock.MockStore), fetcher)

	cfg := authz.OwnershipConfig{
		ResourceType:     "document",
		OwnerFields:      []string{"attributes.owner.id"},
		IDParam:          "id",
		AllowScopeBypass: noScopeBypass(),
	}

	err := v.Validate(context.Background(), &model.Principal{ID: "u1"}, cfg, map[string]string{"id": "d1"}, "GET")
	assert.NoError(t, err)
}

func TestValidateScopeBypassSkipsFetch(t *testing.T) {
	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{
		directGrant("u1", permission("document", "read", authz.ScopeAll), model.EffectAllow),
	}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{}, nil)

	fetcher := new(mock.MockResourceFetcher)
	v := newValidator(store, fetcher)

	cfg := authz.OwnershipConfig{
		ResourceType: "document",
		OwnerFields:  []string{"owner_id"},
		IDParam:      "id",
	}

	err := v.Validate(context.Background(), &model.Principal{ID: "u1"}, cfg, map[string]string{"id": "d1"}, "GET")
	require.NoError(t, err)
	fetcher.AssertNotCalled(t, "FetchResource", tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestValidateAdminSkipsEverything(t *testing.T) {
	fetcher := new(mock.MockResourceFetcher)
	v := newValidator(new(mock.MockStore), fetcher)

	cfg := authz.OwnershipConfig{ResourceType: "document", OwnerFields: []string{"owner_id"}, IDParam: "id"}
	err := v.Validate(context.Background(), &model.Principal{ID: "root", RoleType: "super_admin"}, cfg, nil, "DELETE")
	assert.NoError(t, err)
	fetcher.AssertNotCalled(t, "FetchResource", tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestValidateMissingIDParam(t *testing.T) {
	v := newValidator(new(mock.MockStore), new(mock.MockResourceFetcher))

	cfg := authz.OwnershipConfig{
		ResourceType:     "document",
		OwnerFields:      []string{"owner_id"},
		IDParam:          "id",
		AllowScopeBypass: noScopeBypass(),
	}

	err := v.Validate(context.Background(), &model.Principal{ID: "u1"}, cfg, map[string]string{}, "GET")
	assert.ErrorIs(t, err, gk_errors.ErrMissingResourceID)
}

func TestValidateResourceNotFound(t *testing.T) {
	fetcher := new(mock.MockResourceFetcher)
	fetcher.On("FetchResource", tmock.Anything, "document", "missing").Return(nil, nil)

	v := newValidator(new(mock.MockStore), fetcher)

	cfg := authz.OwnershipConfig{
		ResourceType:     "document",
		OwnerFields:      []string{"owner_id"},
		IDParam:          "id",
		AllowScopeBypass: noScopeBypass(),
	}

	err := v.Validate(context.Background(), &model.Principal{ID: "u1"}, cfg, map[string]string{"id": "missing"}, "GET")
	assert.ErrorIs(t, err, gk_errors.ErrResourceNotFound)
}

func TestValidateUnauthenticated(t *testing.T) {
	v := newValidator(new(mock.MockStore), new(mock.MockResourceFetcher))
	cfg := authz.OwnershipConfig{ResourceType: "document", OwnerFields: []string{"owner_id"}, IDParam: "id"}

	err := v.Validate(context.Background(), nil, cfg, map[string]string{"id": "d1"}, "GET")
	assert.ErrorIs(t, err, gk_errors.ErrUnauthenticated)
}

func TestActionForMethod(t *testing.T) {
	assert.Equal(t, "read", authz.ActionForMethod("GET"))
	assert.Equal(t, "read", authz.ActionForMethod("HEAD"))
	assert.Equal(t, "create", authz.ActionForMethod("POST"))
	assert.Equal(t, "update", authz.ActionForMethod("PUT"))
	assert.Equal(t, "update", authz.ActionForMethod("PATCH"))
	assert.Equal(t, "delete", authz.ActionForMethod("DELETE"))
	assert.Equal(t, "read", authz.ActionForMethod("OPTIONS"))
}
