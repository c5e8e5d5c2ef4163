// controller/role_controller.go
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

type RoleController struct {
	roleService service.IRoleService
}

func NewRoleController(roleService service.IRoleService) *RoleController {
	return &RoleController{
		roleService: roleService,
	}
}

// RegisterRoutes registers the API routes for roles
func (rc *RoleController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", rc.CreateRole)
	r.PUT("/:id", rc.UpdateRole)
	r.DELETE("/:id", rc.DeactivateRole)
	r.GET("/:id", rc.GetRole)
	r.GET("", rc.ListRoles)
	r.POST("/:id/permissions", rc.GrantPermission)
	r.DELETE("/:id/permissions/:permissionId", rc.RevokePermission)
}

// CreateRole endpoint
func (rc *RoleController) CreateRole(c *gin.Context) {
	var role model.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid role data", gk_errors.ErrInvalidRoleData)
		return
	}
	creatorID := util.ActorIDFromContext(c)

	createdRole, err := rc.roleService.CreateRole(c, role, creatorID)
	if err != nil {
		switch {
		case errors.Is(err, gk_errors.ErrRoleConflict):
			util.RespondWithError(c, http.StatusConflict, "Role already exists", err)
		case errors.Is(err, gk_errors.ErrInvalidRoleData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid role data", err)
		case errors.Is(err, gk_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create role", gk_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, createdRole)
}

// UpdateRole endpoint
func (rc *RoleController) UpdateRole(c *gin.Context) {
	roleID := c.Param("id")
	var role model.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid role data", err)
		return
	}
	role.ID = roleID
	updaterID := util.ActorIDFromContext(c)

	updatedRole, err := rc.roleService.UpdateRole(c, role, updaterID)
	if err != nil {
		if errors.Is(err, gk_errors.ErrRoleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update role", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedRole)
}

// DeactivateRole endpoint
func (rc *RoleController) DeactivateRole(c *gin.Context) {
	roleID := c.Param("id")
	deleterID := util.ActorIDFromContext(c)

	if err := rc.roleService.DeactivateRole(c, roleID, deleterID); err != nil {
		if errors.Is(err, gk_errors.ErrRoleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to deactivate role", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetRole endpoint
func (rc *RoleController) GetRole(c *gin.Context) {
	roleID := c.Param("id")

	role, err := rc.roleService.GetRole(c, roleID)
	if err != nil {
		if errors.Is(err, gk_errors.ErrRoleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve role", err)
		}
		return
	}

	c.JSON(http.StatusOK, role)
}

// ListRoles endpoint
func (rc *RoleController) ListRoles(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	roles, err := rc.roleService.ListRoles(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list roles", err)
		return
	}

	c.JSON(http.StatusOK, roles)
}

type rolePermissionRequest struct {
	PermissionID string `json:"permission_id" binding:"required"`
	Effect       string `json:"effect" binding:"required"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

// GrantPermission endpoint links a permission to the role
func (rc *RoleController) GrantPermission(c *gin.Context) {
	roleID := c.Param("id")
	var req rolePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid grant data", err)
		return
	}

	expiresAt, err := helper_util.ParseNullableTime(req.ExpiresAt)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid expiry timestamp", err)
		return
	}
	actorID := util.ActorIDFromContext(c)

	err = rc.roleService.GrantPermission(c, roleID, req.PermissionID, model.Effect(req.Effect), expiresAt, actorID)
	if err != nil {
		switch {
		case errors.Is(err, gk_errors.ErrRoleNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		case errors.Is(err, gk_errors.ErrPermissionNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Permission not found", err)
		case errors.Is(err, gk_errors.ErrInvalidPermissionData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid effect", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to grant permission", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// RevokePermission endpoint unlinks a permission from the role
func (rc *RoleController) RevokePermission(c *gin.Context) {
	roleID := c.Param("id")
	permissionID := c.Param("permissionId")
	actorID := util.ActorIDFromContext(c)

	if err := rc.roleService.RevokePermission(c, roleID, permissionID, actorID); err != nil {
		if errors.Is(err, gk_errors.ErrPermissionNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Permission link not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke permission", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
