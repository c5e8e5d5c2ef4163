// service/access_service.go
package service

import (
	"context"
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

// IAccessService defines the interface for grant and assignment operations
type IAccessService interface {
	AssignRole(ctx context.Context, userID, roleID, assignedBy string, expiresAt *time.Time) (*model.UserRole, error)
	RemoveRole(ctx context.Context, userID, roleID, actorID string) error
	GrantPermission(ctx context.Context, userID, permissionID string, effect model.Effect, assignedBy string, expiresAt *time.Time) (*model.UserPermission, error)
	RevokePermission(ctx context.Context, userID, permissionID, actorID string) error
	UserRoles(ctx context.Context, userID string) ([]model.UserRole, error)
	UserEffectivePermissions(ctx context.Context, userID string) ([]model.UserPermission, []model.RolePermission, error)
	CheckAccess(ctx context.Context, userID, resource, action, scope string) (bool, error)
}

// AccessService handles business logic for role assignments and direct
// permission grants. Every mutation invalidates the subject's cached
// grants before returning, so the next evaluation sees fresh state.
type AccessService struct {
	grantDAO        *dao.GrantDAO
	resolver        *authz.Resolver
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IAccessService = &AccessService{}

func NewAccessService(grantDAO *dao.GrantDAO, resolver *authz.Resolver, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *AccessService {
	service := &AccessService{
		grantDAO:        grantDAO,
		resolver:        resolver,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe(util.EventRoleAssigned, service.handleRoleAssigned)
	eventBus.Subscribe(util.EventRoleRemoved, service.handleRoleRemoved)

	return service
}

func (s *AccessService) handleRoleAssigned(ctx context.Context, event util.Event) error {
	assignment := event.Payload.(model.UserRole)

	if err := s.notificationSvc.NotifyAssignmentChange(ctx, "assigned", assignment.UserID, assignment.Role.ID); err != nil {
		logger.Warn("Failed to send assignment notification",
			zap.Error(err),
			zap.String("userID", assignment.UserID))
		return err
	}
	return nil
}

func (s *AccessService) handleRoleRemoved(ctx context.Context, event util.Event) error {
	payload := event.Payload.(map[string]string)

	if err := s.notificationSvc.NotifyAssignmentChange(ctx, "removed", payload["userID"], payload["roleID"]); err != nil {
		logger.Warn("Failed to send assignment notification",
			zap.Error(err),
			zap.String("userID", payload["userID"]))
		return err
	}
	return nil
}

// AssignRole attaches a role to a user. Duplicate live assignments are
// rejected by the DAO.
func (s *AccessService) AssignRole(ctx context.Context, userID, roleID, assignedBy string, expiresAt *time.Time) (*model.UserRole, error) {
	if err := s.validationUtil.ValidateAssignment(userID, roleID); err != nil {
		return nil, fmt.Errorf("%w: %v", gk_errors.ErrInvalidAssignmentData, err)
	}

	assignment, err := s.grantDAO.CreateRoleAssignment(ctx, userID, roleID, assignedBy, expiresAt)
	if err != nil {
		logger.Error("Error assigning role",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("roleID", roleID),
			zap.String("assignedBy", assignedBy))
		return nil, err
	}

	if err := s.invalidateUser(ctx, userID); err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, util.EventRoleAssigned, *assignment)

	logger.Info("Role assigned successfully",
		zap.String("userID", userID),
		zap.String("roleID", roleID),
		zap.String("assignedBy", assignedBy))
	return assignment, nil
}

// RemoveRole detaches a role from a user.
func (s *AccessService) RemoveRole(ctx context.Context, userID, roleID, actorID string) error {
	if err := s.validationUtil.ValidateAssignment(userID, roleID); err != nil {
		return fmt.Errorf("%w: %v", gk_errors.ErrInvalidAssignmentData, err)
	}

	if err := s.grantDAO.DeleteRoleAssignment(ctx, userID, roleID, actorID); err != nil {
		logger.Error("Error removing role",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("roleID", roleID))
		return err
	}

	if err := s.invalidateUser(ctx, userID); err != nil {
		return err
	}

	s.eventBus.Publish(ctx, util.EventRoleRemoved, map[string]string{
		"userID": userID,
		"roleID": roleID,
	})

	logger.Info("Role removed successfully",
		zap.String("userID", userID),
		zap.String("roleID", roleID),
		zap.String("actorID", actorID))
	return nil
}

// GrantPermission attaches a direct allow or deny grant to a user.
func (s *AccessService) GrantPermission(ctx context.Context, userID, permissionID string, effect model.Effect, assignedBy string, expiresAt *time.Time) (*model.UserPermission, error) {
	if err := s.validationUtil.ValidateEffect(effect); err != nil {
		return nil, fmt.Errorf("%w: %v", gk_errors.ErrInvalidPermissionData, err)
	}

	grant, err := s.grantDAO.CreateUserPermission(ctx, userID, permissionID, effect, assignedBy, expiresAt)
	if err != nil {
		logger.Error("Error granting permission",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("permissionID", permissionID),
			zap.String("effect", string(effect)))
		return nil, err
	}

	if err := s.invalidateUser(ctx, userID); err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, util.EventPermissionGranted, *grant)

	logger.Info("Permission granted successfully",
		zap.String("userID", userID),
		zap.String("permissionID", permissionID),
		zap.String("effect", string(effect)))
	return grant, nil
}

// RevokePermission removes a direct grant from a user.
func (s *AccessService) RevokePermission(ctx context.Context, userID, permissionID, actorID string) error {
	if err := s.grantDAO.DeleteUserPermission(ctx, userID, permissionID, actorID); err != nil {
		logger.Error("Error revoking permission",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("permissionID", permissionID))
		return err
	}

	if err := s.invalidateUser(ctx, userID); err != nil {
		return err
	}

	s.eventBus.Publish(ctx, util.EventPermissionRevoked, map[string]string{
		"userID":       userID,
		"permissionID": permissionID,
	})

	logger.Info("Permission revoked successfully",
		zap.String("userID", userID),
		zap.String("permissionID", permissionID),
		zap.String("actorID", actorID))
	return nil
}

// UserRoles returns the user's live role assignments.
func (s *AccessService) UserRoles(ctx context.Context, userID string) ([]model.UserRole, error) {
	assignments, err := s.grantDAO.RoleAssignments(ctx, userID)
	if err != nil {
		logger.Error("Error listing user roles", zap.Error(err), zap.String("userID", userID))
		return nil, err
	}

	now := time.Now()
	live := make([]model.UserRole, 0, len(assignments))
	for _, assignment := range assignments {
		if assignment.Effective(now) && assignment.Role.Active {
			live = append(live, assignment)
		}
	}
	return live, nil
}

// UserEffectivePermissions returns the user's direct and role-derived
// permissions after expiry and active filtering.
func (s *AccessService) UserEffectivePermissions(ctx context.Context, userID string) ([]model.UserPermission, []model.RolePermission, error) {
	direct, derived, err := s.resolver.EffectivePermissions(ctx, userID)
	if err != nil {
		logger.Error("Error resolving effective permissions", zap.Error(err), zap.String("userID", userID))
		return nil, nil, err
	}
	return direct, derived, nil
}

// CheckAccess answers a single permission question for a user.
func (s *AccessService) CheckAccess(ctx context.Context, userID, resource, action, scope string) (bool, error) {
	return s.resolver.HasPermission(ctx, userID, resource, action, scope)
}

// invalidateUser drops the user's cached grants and decisions. Mutations
// must not return success while stale entries can still be served.
func (s *AccessService) invalidateUser(ctx context.Context, userID string) error {
	if err := s.cacheService.InvalidateUser(ctx, userID); err != nil {
		logger.Error("Failed to invalidate user cache after mutation",
			zap.Error(err),
			zap.String("userID", userID))
		return fmt.Errorf("grant persisted but cache invalidation failed: %w", err)
	}
	s.resolver.InvalidateUser(userID)
	return nil
}
