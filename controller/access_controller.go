// controller/access_controller.go
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

type AccessController struct {
	accessService service.IAccessService
}

func NewAccessController(accessService service.IAccessService) *AccessController {
	return &AccessController{
		accessService: accessService,
	}
}

// RegisterRoutes registers the API routes for assignments and grants
func (ac *AccessController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/users/:userId/roles", ac.AssignRole)
	r.DELETE("/users/:userId/roles/:roleId", ac.RemoveRole)
	r.GET("/users/:userId/roles", ac.UserRoles)
	r.POST("/users/:userId/permissions", ac.GrantPermission)
	r.DELETE("/users/:userId/permissions/:permissionId", ac.RevokePermission)
	r.GET("/users/:userId/permissions", ac.UserEffectivePermissions)
	r.POST("/check", ac.CheckAccess)
}

type assignRoleRequest struct {
	RoleID    string `json:"role_id" binding:"required"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// AssignRole endpoint
func (ac *AccessController) AssignRole(c *gin.Context) {
	userID := c.Param("userId")
	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid assignment data", gk_errors.ErrInvalidAssignmentData)
		return
	}

	expiresAt, err := helper_util.ParseNullableTime(req.ExpiresAt)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid expiry timestamp", err)
		return
	}
	assignedBy := util.ActorIDFromContext(c)

	assignment, err := ac.accessService.AssignRole(c, userID, req.RoleID, assignedBy, expiresAt)
	if err != nil {
		switch {
		case errors.Is(err, gk_errors.ErrAssignmentConflict):
			util.RespondWithError(c, http.StatusConflict, "User already holds this role", err)
		case errors.Is(err, gk_errors.ErrRoleNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		case errors.Is(err, gk_errors.ErrUserNotFound):
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		case errors.Is(err, gk_errors.ErrInvalidAssignmentData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid assignment data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to assign role", err)
		}
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// RemoveRole endpoint
func (ac *AccessController) RemoveRole(c *gin.Context) {
	userID := c.Param("userId")
	roleID := c.Param("roleId")
	actorID := util.ActorIDFromContext(c)

	if err := ac.accessService.RemoveRole(c, userID, roleID, actorID); err != nil {
		if errors.Is(err, gk_errors.ErrAssignmentNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Assignment not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to remove role", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// UserRoles endpoint lists a user's live role assignments
func (ac *AccessController) UserRoles(c *gin.Context) {
	userID := c.Param("userId")

	assignments, err := ac.accessService.UserRoles(c, userID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list user roles", err)
		return
	}

	c.JSON(http.StatusOK, assignments)
}

type grantPermissionRequest struct {
	PermissionID string `json:"permission_id" binding:"required"`
	Effect       string `json:"effect" binding:"required"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

// GrantPermission endpoint attaches a direct grant to a user
func (ac *AccessController) GrantPermission(c *gin.Context) {
	userID := c.Param("userId")
	var req grantPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid grant data", gk_errors.ErrInvalidPermissionData)
		return
	}

	expiresAt, err := helper_util.ParseNullableTime(req.ExpiresAt)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid expiry timestamp", err)
		return
	}
	assignedBy := util.ActorIDFromContext(c)

	grant, err := ac.accessService.GrantPermission(c, userID, req.PermissionID, model.Effect(req.Effect), assignedBy, expiresAt)
	if err != nil {
		switch {
		case errors.Is(err, gk_errors.ErrPermissionNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Permission not found", err)
		case errors.Is(err, gk_errors.ErrUserNotFound):
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		case errors.Is(err, gk_errors.ErrInvalidPermissionData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid grant data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to grant permission", err)
		}
		return
	}

	c.JSON(http.StatusCreated, grant)
}

// RevokePermission endpoint removes a direct grant from a user
func (ac *AccessController) RevokePermission(c *gin.Context) {
	userID := c.Param("userId")
	permissionID := c.Param("permissionId")
	actorID := util.ActorIDFromContext(c)

	if err := ac.accessService.RevokePermission(c, userID, permissionID, actorID); err != nil {
		if errors.Is(err, gk_errors.ErrPermissionNotFound) || errors.Is(err, gk_errors.ErrAssignmentNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Grant not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke permission", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// UserEffectivePermissions endpoint answers "what can this user do"
func (ac *AccessController) UserEffectivePermissions(c *gin.Context) {
	userID := c.Param("userId")

	direct, derived, err := ac.accessService.UserEffectivePermissions(c, userID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to resolve effective permissions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"direct":  direct,
		"derived": derived,
	})
}

type checkAccessRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
	Scope    string `json:"scope,omitempty"`
}

// CheckAccess endpoint answers a single permission question
func (ac *AccessController) CheckAccess(c *gin.Context) {
	var req checkAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid check request", err)
		return
	}

	allowed, err := ac.accessService.CheckAccess(c, req.UserID, req.Resource, req.Action, req.Scope)
	if err != nil {
		util.RespondWithError(c, http.StatusServiceUnavailable, "Access check unavailable", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allowed": allowed})
}
