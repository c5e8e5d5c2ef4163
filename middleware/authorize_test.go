// middleware/authorize_test.go
package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"

	"github.com/accesskit/gatekeeper/api/authz"
	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/middleware"
	"github.com/accesskit/gatekeeper/api/model"
	"github.com/accesskit/gatekeeper/api/test/mock"
	"github.com/accesskit/gatekeeper/api/util"
)

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	gin.SetMode(gin.TestMode)
	m.Run()
}

func guardedRouter(store authz.Store, cfg authz.RouteConfig, principal *model.Principal) *gin.Engine {
	auditService := new(mock.MockAuditService)
	auditService.On("Record", tmock.Anything, tmock.Anything).Return()

	resolver := authz.NewResolver(store, nil, 0, 0)
	guard := authz.NewGuard(resolver, auditService, "super_admin")

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if principal != nil {
			c.Set(util.PrincipalContextKey, principal)
		}
		c.Next()
	})
	router.GET("/resource", middleware.Authorize(guard, cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestAuthorizeMiddlewareUnauthenticated(t *testing.T) {
	router := guardedRouter(new(mock.MockStore), authz.RouteConfig{
		RequiredRoles: []string{"editor"},
	}, nil)

	w := get(router, "/resource")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorizeMiddlewareForbidden(t *testing.T) {
	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, "u1").Return([]model.UserPermission{}, nil)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{}, nil)

	router := guardedRouter(store, authz.RouteConfig{
		RequiredRoles: []string{"editor"},
	}, &model.Principal{ID: "u1"})

	w := get(router, "/resource")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizeMiddlewareAllowed(t *testing.T) {
	store := new(mock.MockStore)
	store.On("RoleAssignments", tmock.Anything, "u1").Return([]model.UserRole{
		{UserID: "u1", Role: model.Role{ID: "r1", Name: "editor", Active: true}, Effect: model.EffectAllow},
	}, nil)

	router := guardedRouter(store, authz.RouteConfig{
		RequiredRoles: []string{"editor"},
	}, &model.Principal{ID: "u1"})

	w := get(router, "/resource")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeMiddlewarePublicRoute(t *testing.T) {
	router := guardedRouter(new(mock.MockStore), authz.RouteConfig{Public: true}, nil)

	w := get(router, "/resource")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizeMiddlewareStoreDownFailsClosed(t *testing.T) {
	store := new(mock.MockStore)
	store.On("RoleAssignments", tmock.Anything, "u1").Return(nil, errors.New("connection refused"))

	router := guardedRouter(store, authz.RouteConfig{
		RequiredRoles: []string{"editor"},
	}, &model.Principal{ID: "u1"})

	w := get(router, "/resource")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequireOwnershipMiddleware(t *testing.T) {
	store := new(mock.MockStore)
	store.On("UserPermissions", tmock.Anything, tmock.Anything).Return([]model.UserPermission{}, nil)
	store.On("RoleAssignments", tmock.Anything, tmock.Anything).Return([]model.UserRole{}, nil)

	fetcher := new(mock.MockResourceFetcher)
	fetcher.On("FetchResource", tmock.Anything, "document", "d1").Return(map[string]interface{}{
		"owner_id": "u1",
	}, nil)
	fetcher.On("FetchResource", tmock.Anything, "document", "missing").Return(nil, nil)

	resolver := authz.NewResolver(store, nil, 0, 0)
	validator := authz.NewOwnershipValidator(resolver, fetcher, "super_admin")

	newRouter := func(principal *model.Principal) *gin.Engine {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			if principal != nil {
				c.Set(util.PrincipalContextKey, principal)
			}
			c.Next()
		})
		router.GET("/documents/:id", middleware.RequireOwnership(validator, authz.OwnershipConfig{
			ResourceType: "document",
			OwnerFields:  []string{"owner_id"},
			IDParam:      "id",
		}), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("owner allowed", func(t *testing.T) {
		w := get(newRouter(&model.Principal{ID: "u1"}), "/documents/d1")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		w := get(newRouter(&model.Principal{ID: "u2"}), "/documents/d1")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing resource", func(t *testing.T) {
		w := get(newRouter(&model.Principal{ID: "u1"}), "/documents/missing")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
