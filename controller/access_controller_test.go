// controller/access_controller_test.go
package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"

	"github.com/accesskit/gatekeeper/api/controller"
	gk_errors "github.com/accesskit/gatekeeper/api/errors"
	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
	"github.com/accesskit/gatekeeper/api/test/mock"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestAccessController(t *testing.T) {
	logger.InitTestLogger()

	accessService := new(mock.MockAccessService)
	accessController := controller.NewAccessController(accessService)
	router := setupRouter()
	api := router.Group("/access")
	accessController.RegisterRoutes(api)

	t.Run("AssignRole_Success", func(t *testing.T) {
		accessService.On("AssignRole", tmock.Anything, "u1", "r1", "", (*time.Time)(nil)).
			Return(&model.UserRole{UserID: "u1", Role: model.Role{ID: "r1"}}, nil).Once()

		body := strings.NewReader(`{"role_id":"r1"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/access/users/u1/roles", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("AssignRole_Conflict", func(t *testing.T) {
		accessService.On("AssignRole", tmock.Anything, "u1", "r1", "", (*time.Time)(nil)).
			Return(nil, gk_errors.ErrAssignmentConflict).Once()

		body := strings.NewReader(`{"role_id":"r1"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/access/users/u1/roles", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("AssignRole_MissingRoleID", func(t *testing.T) {
		body := strings.NewReader(`{}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/access/users/u1/roles", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RemoveRole_NotFound", func(t *testing.T) {
		accessService.On("RemoveRole", tmock.Anything, "u1", "r9", "").
			Return(gk_errors.ErrAssignmentNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/access/users/u1/roles/r9", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GrantPermission_InvalidEffect", func(t *testing.T) {
		accessService.On("GrantPermission", tmock.Anything, "u1", "p1", model.Effect("maybe"), "", (*time.Time)(nil)).
			Return(nil, gk_errors.ErrInvalidPermissionData).Once()

		body := strings.NewReader(`{"permission_id":"p1","effect":"maybe"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/access/users/u1/permissions", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("CheckAccess_Allowed", func(t *testing.T) {
		accessService.On("CheckAccess", tmock.Anything, "u1", "document", "read", "own").
			Return(true, nil).Once()

		body := strings.NewReader(`{"user_id":"u1","resource":"document","action":"read","scope":"own"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/access/check", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]bool
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp["allowed"])
	})

	t.Run("CheckAccess_Unavailable", func(t *testing.T) {
		accessService.On("CheckAccess", tmock.Anything, "u1", "document", "read", "").
			Return(false, gk_errors.ErrDatabaseOperation).Once()

		body := strings.NewReader(`{"user_id":"u1","resource":"document","action":"read"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/access/check", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("UserEffectivePermissions_Success", func(t *testing.T) {
		accessService.On("UserEffectivePermissions", tmock.Anything, "u1").
			Return([]model.UserPermission{{UserID: "u1"}}, []model.RolePermission{}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/access/users/u1/permissions", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRoleController(t *testing.T) {
	logger.InitTestLogger()

	roleService := new(mock.MockRoleService)
	roleController := controller.NewRoleController(roleService)
	router := setupRouter()
	api := router.Group("/roles")
	roleController.RegisterRoutes(api)

	t.Run("CreateRole_Success", func(t *testing.T) {
		roleService.On("CreateRole", tmock.Anything, tmock.Anything, "").
			Return(&model.Role{ID: "r1", Name: "editor"}, nil).Once()

		body := strings.NewReader(`{"name":"editor"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/roles", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("CreateRole_Conflict", func(t *testing.T) {
		roleService.On("CreateRole", tmock.Anything, tmock.Anything, "").
			Return(nil, gk_errors.ErrRoleConflict).Once()

		body := strings.NewReader(`{"name":"editor"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/roles", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("GetRole_NotFound", func(t *testing.T) {
		roleService.On("GetRole", tmock.Anything, "missing").
			Return(nil, gk_errors.ErrRoleNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/roles/missing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("DeactivateRole_Success", func(t *testing.T) {
		roleService.On("DeactivateRole", tmock.Anything, "r1", "").
			Return(nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/roles/r1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
