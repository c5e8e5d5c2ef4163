// controller/permission_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	gk_errors "github.com/accesskit/gatekeeper/api/errors"
	"github.com/accesskit/gatekeeper/api/model"
	"github.com/accesskit/gatekeeper/api/service"
	"github.com/accesskit/gatekeeper/api/util"
	helper_util "github.com/accesskit/gatekeeper/api/util/helper"
)

type PermissionController struct {
	permissionService service.IPermissionService
}

func NewPermissionController(permissionService service.IPermissionService) *PermissionController {
	return &PermissionController{
		permissionService: permissionService,
	}
}

// RegisterRoutes registers the API routes for permissions
func (pc *PermissionController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", pc.CreatePermission)
	r.PUT("/:id", pc.UpdatePermission)
	r.DELETE("/:id", pc.DeactivatePermission)
	r.GET("/:id", pc.GetPermission)
	r.GET("", pc.ListPermissions)
}

// CreatePermission endpoint
func (pc *PermissionController) CreatePermission(c *gin.Context) {
	var permission model.Permission
	if err := c.ShouldBindJSON(&permission); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid permission data", gk_errors.ErrInvalidPermissionData)
		return
	}
	creatorID := util.ActorIDFromContext(c)

	created, err := pc.permissionService.CreatePermission(c, permission, creatorID)
	if err != nil {
		switch {
		case errors.Is(err, gk_errors.ErrPermissionConflict):
			util.RespondWithError(c, http.StatusConflict, "Permission already exists", err)
		case errors.Is(err, gk_errors.ErrInvalidPermissionData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid permission data", err)
		case errors.Is(err, gk_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create permission", gk_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdatePermission endpoint
func (pc *PermissionController) UpdatePermission(c *gin.Context) {
	permissionID := c.Param("id")
	var permission model.Permission
	if err := c.ShouldBindJSON(&permission); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid permission data", err)
		return
	}
	permission.ID = permissionID
	updaterID := util.ActorIDFromContext(c)

	updated, err := pc.permissionService.UpdatePermission(c, permission, updaterID)
	if err != nil {
		switch {
		case errors.Is(err, gk_errors.ErrPermissionNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Permission not found", err)
		case errors.Is(err, gk_errors.ErrInvalidPermissionData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid permission data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update permission", err)
		}
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeactivatePermission endpoint
func (pc *PermissionController) DeactivatePermission(c *gin.Context) {
	permissionID := c.Param("id")
	deleterID := util.ActorIDFromContext(c)

	if err := pc.permissionService.DeactivatePermission(c, permissionID, deleterID); err != nil {
		switch {
		case errors.Is(err, gk_errors.ErrPermissionNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Permission not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to deactivate permission", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetPermission endpoint
func (pc *PermissionController) GetPermission(c *gin.Context) {
	permissionID := c.Param("id")

	permission, err := pc.permissionService.GetPermission(c, permissionID)
	if err != nil {
		if errors.Is(err, gk_errors.ErrPermissionNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Permission not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve permission", err)
		}
		return
	}

	c.JSON(http.StatusOK, permission)
}

// ListPermissions endpoint
func (pc *PermissionController) ListPermissions(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	criteria := model.PermissionSearchCriteria{
		Resource: c.Query("resource"),
		Action:   c.Query("action"),
		Category: c.Query("category"),
	}

	permissions, err := pc.permissionService.ListPermissions(c, criteria, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list permissions", err)
		return
	}

	c.JSON(http.StatusOK, permissions)
}
