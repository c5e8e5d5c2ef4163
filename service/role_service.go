// service/role_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/accesskit/gatekeeper/api/authz"
	"github.com/accesskit/gatekeeper/api/dao"
	gk_errors "github.com/accesskit/gatekeeper/api/errors"
	logger "github.com/accesskit/gatekeeper/api/logging"
	"github.com/accesskit/gatekeeper/api/model"
	"github.com/accesskit/gatekeeper/api/util"
)

// IRoleService defines the interface for role catalog operations
type IRoleService interface {
	CreateRole(ctx context.Context, role model.Role, creatorID string) (*model.Role, error)
	UpdateRole(ctx context.Context, role model.Role, updaterID string) (*model.Role, error)
	DeactivateRole(ctx context.Context, roleID string, deleterID string) error
	GetRole(ctx context.Context, roleID string) (*model.Role, error)
	GetRoleByName(ctx context.Context, name string) (*model.Role, error)
	ListRoles(ctx context.Context, limit int, offset int) ([]*model.Role, error)
	GrantPermission(ctx context.Context, roleID, permissionID string, effect model.Effect, expiresAt *time.Time, actorID string) error
	RevokePermission(ctx context.Context, roleID, permissionID, actorID string) error
}

// RoleService handles business logic for role operations
type RoleService struct {
	roleDAO         *dao.RoleDAO
	grantDAO        *dao.GrantDAO
	resolver        *authz.Resolver
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IRoleService = &RoleService{}

// NewRoleService creates a new instance of RoleService
func NewRoleService(roleDAO *dao.RoleDAO, grantDAO *dao.GrantDAO, resolver *authz.Resolver, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *RoleService {
	service := &RoleService{
		roleDAO:         roleDAO,
		grantDAO:        grantDAO,
		resolver:        resolver,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe(util.EventRoleChanged, service.handleRoleChanged)

	return service
}

// roleChange is the payload carried by role catalog events. ChangeType is
// one of the values NotificationService accepts.
type roleChange struct {
	ChangeType string
	Role       model.Role
}

func (s *RoleService) handleRoleChanged(ctx context.Context, event util.Event) error {
	change := event.Payload.(roleChange)
	logger.Info("Role changed event received",
		zap.String("roleID", change.Role.ID),
		zap.String("changeType", change.ChangeType))

	if err := s.notificationSvc.NotifyRoleChange(ctx, change.ChangeType, change.Role); err != nil {
		logger.Warn("Failed to send role change notification", zap.Error(err), zap.String("roleID", change.Role.ID))
		return err
	}

	return nil
}

// CreateRole handles the creation of a new role
func (s *RoleService) CreateRole(ctx context.Context, role model.Role, creatorID string) (*model.Role, error) {
	if err := s.validationUtil.ValidateRole(role); err != nil {
		return nil, fmt.Errorf("%w: %v", gk_errors.ErrInvalidRoleData, err)
	}

	role.Active = true
	role.CreatedAt = time.Now()
	role.UpdatedAt = time.Now()

	roleID, err := s.roleDAO.CreateRole(dao.ContextWithActor(ctx, creatorID), role)
	if err != nil {
		logger.Error("Error creating role", zap.Error(err), zap.String("creatorID", creatorID))
		return nil, err
	}

	role.ID = roleID

	s.eventBus.Publish(ctx, util.EventRoleChanged, roleChange{ChangeType: "created", Role: role})

	logger.Info("Role created successfully", zap.String("roleID", roleID), zap.String("creatorID", creatorID))
	return &role, nil
}

// UpdateRole handles updates to an existing role. Holders of the role see
// the change on their next evaluation.
func (s *RoleService) UpdateRole(ctx context.Context, role model.Role, updaterID string) (*model.Role, error) {
	if err := s.validationUtil.ValidateRole(role); err != nil {
		return nil, fmt.Errorf("%w: %v", gk_errors.ErrInvalidRoleData, err)
	}

	role.UpdatedAt = time.Now()

	updatedRole, err := s.roleDAO.UpdateRole(dao.ContextWithActor(ctx, updaterID), role)
	if err != nil {
		logger.Error("Error updating role", zap.Error(err), zap.String("roleID", role.ID), zap.String("updaterID", updaterID))
		return nil, err
	}

	if err := s.invalidateRoleHolders(ctx, role.ID); err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, util.EventRoleChanged, roleChange{ChangeType: "updated", Role: *updatedRole})

	logger.Info("Role updated successfully", zap.String("roleID", role.ID), zap.String("updaterID", updaterID))
	return updatedRole, nil
}

// DeactivateRole soft-deletes a role and flushes every holder's cache.
func (s *RoleService) DeactivateRole(ctx context.Context, roleID string, deleterID string) error {
	if err := s.roleDAO.DeactivateRole(dao.ContextWithActor(ctx, deleterID), roleID); err != nil {
		logger.Error("Error deactivating role", zap.Error(err), zap.String("roleID", roleID), zap.String("deleterID", deleterID))
		return err
	}

	if err := s.invalidateRoleHolders(ctx, roleID); err != nil {
		return err
	}

	s.eventBus.Publish(ctx, util.EventRoleChanged, roleChange{ChangeType: "deactivated", Role: model.Role{ID: roleID}})

	logger.Info("Role deactivated successfully", zap.String("roleID", roleID), zap.String("deleterID", deleterID))
	return nil
}

// GetRole retrieves a role by its ID
func (s *RoleService) GetRole(ctx context.Context, roleID string) (*model.Role, error) {
	role, err := s.roleDAO.GetRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, gk_errors.ErrRoleNotFound) {
			return nil, gk_errors.ErrRoleNotFound
		}
		logger.Error("Error retrieving role", zap.Error(err), zap.String("roleID", roleID))
		return nil, gk_errors.ErrInternalServer
	}

	return role, nil
}

// GetRoleByName retrieves a role by its unique name
func (s *RoleService) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	role, err := s.roleDAO.GetRoleByName(ctx, name)
	if err != nil {
		if errors.Is(err, gk_errors.ErrRoleNotFound) {
			return nil, gk_errors.ErrRoleNotFound
		}
		logger.Error("Error retrieving role by name", zap.Error(err), zap.String("roleName", name))
		return nil, gk_errors.ErrInternalServer
	}

	return role, nil
}

// ListRoles retrieves active roles with pagination
func (s *RoleService) ListRoles(ctx context.Context, limit int, offset int) ([]*model.Role, error) {
	roles, err := s.roleDAO.ListRoles(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing roles", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return roles, nil
}

// GrantPermission links a permission to a role with an allow or deny
// effect. Every user holding the role is invalidated.
func (s *RoleService) GrantPermission(ctx context.Context, roleID, permissionID string, effect model.Effect, expiresAt *time.Time, actorID string) error {
	if err := s.validationUtil.ValidateEffect(effect); err != nil {
		return fmt.Errorf("%w: %v", gk_errors.ErrInvalidPermissionData, err)
	}

	if err := s.roleDAO.GrantPermissionToRole(dao.ContextWithActor(ctx, actorID), roleID, permissionID, effect, expiresAt); err != nil {
		logger.Error("Error granting permission to role",
			zap.Error(err),
			zap.String("roleID", roleID),
			zap.String("permissionID", permissionID))
		return err
	}

	return s.invalidateRoleHolders(ctx, roleID)
}

// RevokePermission unlinks a permission from a role.
func (s *RoleService) RevokePermission(ctx context.Context, roleID, permissionID, actorID string) error {
	if err := s.roleDAO.RevokePermissionFromRole(dao.ContextWithActor(ctx, actorID), roleID, permissionID); err != nil {
		logger.Error("Error revoking permission from role",
			zap.Error(err),
			zap.String("roleID", roleID),
			zap.String("permissionID", permissionID))
		return err
	}

	return s.invalidateRoleHolders(ctx, roleID)
}

// invalidateRoleHolders flushes the role's cached permission set and every
// holder's grants and decisions.
func (s *RoleService) invalidateRoleHolders(ctx context.Context, roleID string) error {
	if err := s.cacheService.InvalidateRole(ctx, roleID); err != nil {
		logger.Error("Failed to invalidate role cache", zap.Error(err), zap.String("roleID", roleID))
		return fmt.Errorf("role persisted but cache invalidation failed: %w", err)
	}

	userIDs, err := s.grantDAO.UserIDsWithRole(ctx, roleID)
	if err != nil {
		logger.Error("Failed to list role holders for invalidation", zap.Error(err), zap.String("roleID", roleID))
		return err
	}

	if err := s.cacheService.InvalidateUsersWithRole(ctx, userIDs); err != nil {
		logger.Error("Failed to invalidate role holder caches", zap.Error(err), zap.String("roleID", roleID))
		return fmt.Errorf("role persisted but cache invalidation failed: %w", err)
	}

	for _, userID := range userIDs {
		s.resolver.InvalidateUser(userID)
	}
	return nil
}
